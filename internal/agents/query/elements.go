package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Element is one Revit element sent by the plugin
type Element struct {
	ID         ElementID      `json:"id"`
	Type       string         `json:"type"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

// ElementID accepts both numeric and string ids
type ElementID string

func (id *ElementID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ElementID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("element id must be a string or number: %w", err)
	}
	*id = ElementID(n.String())
	return nil
}

// Elements decodes either a list of elements or an object of category lists
// such as {"walls": [...], "doors": [...]}. Elements from a category without
// an explicit type take the singular category name ("walls" -> "Wall").
type Elements []Element

func (e *Elements) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*e = nil
		return nil
	}

	if data[0] == '[' {
		var list []Element
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*e = list
		return nil
	}

	var categories map[string][]json.RawMessage
	if err := json.Unmarshal(data, &categories); err != nil {
		return fmt.Errorf("revit_elements must be a list or an object of lists: %w", err)
	}

	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var out Elements
	for _, name := range names {
		for _, raw := range categories[name] {
			el, err := decodeCategoryElement(raw)
			if err != nil {
				return fmt.Errorf("revit_elements.%s: %w", name, err)
			}
			if el.Type == "" {
				el.Type = categoryType(name)
			}
			out = append(out, el)
		}
	}
	*e = out
	return nil
}

// decodeCategoryElement keeps unknown keys as parameters: plugin payloads
// put values like length and height beside id and type.
func decodeCategoryElement(raw json.RawMessage) (Element, error) {
	var el Element
	if err := json.Unmarshal(raw, &el); err != nil {
		return el, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return el, err
	}
	for k, v := range fields {
		if k == "id" || k == "type" || k == "parameters" {
			continue
		}
		if el.Parameters == nil {
			el.Parameters = map[string]any{}
		}
		el.Parameters[k] = v
	}
	return el, nil
}

func categoryType(name string) string {
	name = strings.TrimSuffix(strings.ToLower(name), "s")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + name[1:]
}

// Kind classifies an element type string ("Basic Wall" is a wall)
func (el Element) Kind() string {
	t := strings.ToLower(el.Type)
	switch {
	case strings.Contains(t, "wall"):
		return "wall"
	case strings.Contains(t, "door"):
		return "door"
	case strings.Contains(t, "window"):
		return "window"
	case strings.Contains(t, "floor"), strings.Contains(t, "slab"):
		return "floor"
	case strings.Contains(t, "roof"):
		return "roof"
	default:
		return "other"
	}
}

// Param returns a parameter as a display string
func (el Element) Param(name string) (string, bool) {
	v, ok := el.Parameters[name]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, x != ""
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return fmt.Sprintf("%v", x), true
	}
}
