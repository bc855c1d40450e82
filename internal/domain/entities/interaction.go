package entities

import "strings"

// Severity is the closed set of interaction severities.
type Severity string

const (
	SeveritySafe    Severity = "safe"
	SeverityCaution Severity = "caution"
	SeverityDanger  Severity = "danger"
)

var severitySynonyms = map[string]Severity{
	"safe":            SeveritySafe,
	"none":            SeveritySafe,
	"low":             SeveritySafe,
	"minor":           SeveritySafe,
	"no interaction":  SeveritySafe,
	"caution":         SeverityCaution,
	"moderate":        SeverityCaution,
	"medium":          SeverityCaution,
	"warning":         SeverityCaution,
	"unknown":         SeverityCaution,
	"danger":          SeverityDanger,
	"dangerous":       SeverityDanger,
	"high":            SeverityDanger,
	"severe":          SeverityDanger,
	"major":           SeverityDanger,
	"contraindicated": SeverityDanger,
	"avoid":           SeverityDanger,
}

// NormalizeSeverity folds a raw model value into the closed severity set.
// Anything unrecognised becomes caution.
func NormalizeSeverity(raw string) Severity {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.Join(strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
	if s, ok := severitySynonyms[key]; ok {
		return s
	}
	return SeverityCaution
}

// Rank orders severities from safest to most dangerous.
func (s Severity) Rank() int {
	switch s {
	case SeveritySafe:
		return 0
	case SeverityDanger:
		return 2
	default:
		return 1
	}
}

// DefaultConfidence is used when the model gives no usable confidence.
func (s Severity) DefaultConfidence() int {
	switch s {
	case SeveritySafe:
		return 70
	case SeverityDanger:
		return 80
	default:
		return 60
	}
}

// InteractionTarget describes the medication being checked.
type InteractionTarget struct {
	DrugName          string   `json:"drugName"`
	GenericName       string   `json:"genericName,omitempty"`
	ActiveIngredients []string `json:"activeIngredients,omitempty"`
	Strength          string   `json:"strength,omitempty"`
}

// TargetFromRecord builds an interaction target from a resolved record.
func TargetFromRecord(r *StructuredMedicationRecord) InteractionTarget {
	if r == nil {
		return InteractionTarget{}
	}
	target := InteractionTarget{
		DrugName:    r.DrugName,
		GenericName: r.GenericName,
		Strength:    r.Strength,
	}
	for _, ing := range r.ActiveIngredients {
		if name := strings.TrimSpace(ing.Name); name != "" {
			target.ActiveIngredients = append(target.ActiveIngredients, name)
		}
	}
	return target
}

// InteractionGuardItem is one validated interaction finding.
type InteractionGuardItem struct {
	OtherMedication string   `json:"otherMedication"`
	Severity        Severity `json:"severity"`
	Confidence      int      `json:"confidence"`
	Headline        string   `json:"headline"`
	Summary         string   `json:"summary"`
	Mechanism       string   `json:"mechanism,omitempty"`
	WhatToDo        []string `json:"whatToDo,omitempty"`
	Monitoring      []string `json:"monitoring,omitempty"`
	RedFlags        []string `json:"redFlags,omitempty"`
}

// InteractionGuardResult is the interaction report for one target medication.
type InteractionGuardResult struct {
	OverallRisk Severity               `json:"overallRisk,omitempty"`
	Items       []InteractionGuardItem `json:"items"`
	Disclaimer  string                 `json:"disclaimer,omitempty"`
}
