// ABOUTME: Profile type with optional identity and context fields
// ABOUTME: Builds the annotation line folded into the first released message

package profile

import "strings"

// TechnicalLevel is the user's self-reported expertise.
type TechnicalLevel string

const (
	LevelBeginner     TechnicalLevel = "beginner"
	LevelIntermediate TechnicalLevel = "intermediate"
	LevelAdvanced     TechnicalLevel = "advanced"
	LevelExpert       TechnicalLevel = "expert"
)

// DisplayLabel maps the enum value to its human-readable label.
// Unknown values are returned as-is.
func (l TechnicalLevel) DisplayLabel() string {
	switch l {
	case LevelBeginner:
		return "Beginner"
	case LevelIntermediate:
		return "Intermediate"
	case LevelAdvanced:
		return "Advanced"
	case LevelExpert:
		return "Expert"
	}
	return string(l)
}

// Profile holds the optional user context collected by the gate.
// All fields may be empty; an all-empty profile is what an explicit
// skip produces.
type Profile struct {
	Name           string         `json:"name,omitempty"`
	TechnicalLevel TechnicalLevel `json:"technical_level,omitempty"`
	Purpose        string         `json:"purpose,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p Profile) IsEmpty() bool {
	return p.Name == "" && p.TechnicalLevel == "" && p.Purpose == ""
}

// Annotate prepends the profile's annotation line to text, separated
// by a blank line. Only non-empty fields appear, in fixed order:
// name, technical level (display label), purpose. An empty profile
// returns text unchanged.
func (p Profile) Annotate(text string) string {
	var fields []string
	if p.Name != "" {
		fields = append(fields, "Name: "+p.Name)
	}
	if p.TechnicalLevel != "" {
		fields = append(fields, "Technical level: "+p.TechnicalLevel.DisplayLabel())
	}
	if p.Purpose != "" {
		fields = append(fields, "Purpose: "+p.Purpose)
	}
	if len(fields) == 0 {
		return text
	}
	return "[" + strings.Join(fields, " | ") + "]\n\n" + text
}
