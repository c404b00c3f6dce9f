package services

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Conceptual-Machines/revit-mcp-api/internal/llm"
	"github.com/Conceptual-Machines/revit-mcp-api/pkg/floorplan"
)

const squareFeetToMetres = 0.09290304

var (
	numberWord = `(\d+|one|two|three|four|five|six|seven|eight|nine|ten)`

	areaMetresRe = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:m²|m2|sqm|sq\.?\s*m(?:eters|etres)?\b|square\s+met(?:er|re)s?)`)
	areaFeetRe   = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:ft²|sq\.?\s*ft\b|sqft|square\s+f(?:ee|oo)t)`)
	bedroomsRe   = regexp.MustCompile(`(?i)\b` + numberWord + `[\s-]*(?:bed(?:room)?s?)\b`)
	bathroomsRe  = regexp.MustCompile(`(?i)\b` + numberWord + `[\s-]*(?:bath(?:room)?s?)\b`)
	studioRe     = regexp.MustCompile(`(?i)\bstudio\b`)

	numberWords = map[string]int{
		"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
		"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	}
)

// Defaults used when neither the LLM nor the description supply a value
var DefaultRequirements = floorplan.Requirements{
	TotalArea: 100,
	Bedrooms:  2,
	Bathrooms: 1,
	Style:     "modern",
}

// ExtractHeuristic reads area, room counts and style straight from the text.
// Only the fields it finds are set on the returned overlay.
func ExtractHeuristic(description string) *floorplan.Overlay {
	o := &floorplan.Overlay{}

	if m := areaMetresRe.FindStringSubmatch(description); m != nil {
		if v, ok := parseNumber(m[1]); ok && v > 0 {
			o.TotalArea = &v
		}
	} else if m := areaFeetRe.FindStringSubmatch(description); m != nil {
		if v, ok := parseNumber(m[1]); ok && v > 0 {
			v *= squareFeetToMetres
			o.TotalArea = &v
		}
	}

	if m := bedroomsRe.FindStringSubmatch(description); m != nil {
		if n, ok := parseCount(m[1]); ok {
			o.Bedrooms = &n
		}
	} else if studioRe.MatchString(description) {
		zero := 0
		o.Bedrooms = &zero
	}
	if m := bathroomsRe.FindStringSubmatch(description); m != nil {
		if n, ok := parseCount(m[1]); ok {
			o.Bathrooms = &n
		}
	}

	lower := strings.ToLower(description)
	for _, style := range llm.ArchitecturalStyles {
		if strings.Contains(lower, style) {
			s := style
			o.Style = &s
			break
		}
	}

	return o
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	return v, err == nil
}

func parseCount(s string) (int, bool) {
	if n, ok := numberWords[strings.ToLower(s)]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > MaxRoomsPerType {
		return 0, false
	}
	return n, true
}
