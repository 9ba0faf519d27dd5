package models

import (
	"strconv"
	"strings"
)

type EducationLevel string

const (
	LevelDegree  EducationLevel = "degree"
	LevelTwelfth EducationLevel = "twelfth"
	LevelTenth   EducationLevel = "tenth"
)

var EducationLevels = []EducationLevel{LevelDegree, LevelTwelfth, LevelTenth}

func ParseEducationLevel(s string) (EducationLevel, bool) {
	switch EducationLevel(strings.ToLower(s)) {
	case LevelDegree:
		return LevelDegree, true
	case LevelTwelfth:
		return LevelTwelfth, true
	case LevelTenth:
		return LevelTenth, true
	}
	return "", false
}

// QualificationOptions lists the qualifications selectable for a block.
// The tenth block has none.
func QualificationOptions(level EducationLevel) []Option {
	switch level {
	case LevelDegree:
		return []Option{
			{Value: "PG", Label: "Post Graduation"},
			{Value: "UG", Label: "Under Graduation"},
			{Value: "Diploma", Label: "Diploma"},
		}
	case LevelTwelfth:
		return []Option{
			{Value: "12th", Label: "12th"},
			{Value: "Diploma", Label: "Diploma"},
		}
	default:
		return nil
	}
}

// HasFieldOfStudy reports whether the block carries a branch/stream.
func (l EducationLevel) HasFieldOfStudy() bool {
	return l != LevelTenth
}

// DefaultLabel is the label a fresh block starts with.
func (l EducationLevel) DefaultLabel() string {
	switch l {
	case LevelDegree:
		return "Degree"
	case LevelTwelfth:
		return "12th"
	default:
		return "10th"
	}
}

type EducationBlock struct {
	Level           EducationLevel `json:"level"`
	Qualification   string         `json:"qualification,omitempty"`
	Label           string         `json:"label"`
	InstitutionName string         `json:"institutionName"`
	Address         string         `json:"address"`
	FieldOfStudy    string         `json:"fieldOfStudy,omitempty"`
	Score           string         `json:"score"`
	PassingYear     string         `json:"passingYear"`
	Document        *Document      `json:"document,omitempty"`
}

func NewEducationBlock(level EducationLevel) EducationBlock {
	return EducationBlock{Level: level, Label: level.DefaultLabel()}
}

func (b EducationBlock) Clone() EducationBlock {
	b.Document = b.Document.Clone()
	return b
}

// NormalizedScore strips a trailing percent sign and maps blanks to "0".
func (b EducationBlock) NormalizedScore() string {
	return NormalizeNumeric(strings.TrimSuffix(strings.TrimSpace(b.Score), "%"))
}

func (b EducationBlock) NormalizedYear() string {
	return NormalizeNumeric(b.PassingYear)
}

// NormalizeNumeric returns s trimmed, or "0" when s is blank or not a
// number.
func NormalizeNumeric(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "0"
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "0"
	}
	return s
}
