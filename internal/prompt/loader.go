package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Conceptual-Machines/revit-mcp-api/pkg/embedded"
)

// ErrPromptNotFound is returned when an embedded prompt is missing or blank
var ErrPromptNotFound = errors.New("prompt not found")

type Loader struct{}

func NewPromptLoader() *Loader {
	return &Loader{}
}

// GetRequirementsPrompt loads the requirements extraction system prompt
func (l *Loader) GetRequirementsPrompt() (string, error) {
	return load("requirements_extraction", embedded.RequirementsExtractionPromptTxt)
}

// GetRevitQueryPrompt loads the Revit query system prompt
func (l *Loader) GetRevitQueryPrompt() (string, error) {
	return load("revit_query", embedded.RevitQueryPromptTxt)
}

func load(name string, data []byte) (string, error) {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%w: %s", ErrPromptNotFound, name)
	}
	return text, nil
}

// BuildQueryContext renders project info, elements and the user query as one user message
func BuildQueryContext(projectInfo, elements any, query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project Information: %s\n", compactJSON(projectInfo))
	fmt.Fprintf(&b, "Revit Elements: %s\n", compactJSON(elements))
	fmt.Fprintf(&b, "User Query: %s", strings.TrimSpace(query))
	return b.String()
}

// BuildRequirementsContext wraps a description for the extraction prompt
func BuildRequirementsContext(description string) string {
	return "Extract architectural requirements from the following description:\n\n" + strings.TrimSpace(description)
}

func compactJSON(v any) string {
	if v == nil {
		return "{}"
	}
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(body)
}
