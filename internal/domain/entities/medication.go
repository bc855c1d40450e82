package entities

import (
	"fmt"
	"strings"
)

// Language is the output language requested by the caller.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
)

// ParseLanguage maps a caller-supplied tag onto the supported languages.
// An empty tag defaults to English.
func ParseLanguage(tag string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "en", "english":
		return LanguageEnglish, nil
	case "ar", "arabic":
		return LanguageArabic, nil
	}
	return "", fmt.Errorf("unsupported language %q", tag)
}

// DisplayName is the language name used in prompts.
func (l Language) DisplayName() string {
	if l == LanguageArabic {
		return "Arabic"
	}
	return "English"
}

// PatientContext is the optional subject profile used for personalisation.
// Every field is optional.
type PatientContext struct {
	Age                *int     `json:"age,omitempty"`
	Sex                string   `json:"sex,omitempty"`
	Allergies          []string `json:"allergies,omitempty"`
	Conditions         []string `json:"conditions,omitempty"`
	CurrentMedications []string `json:"currentMedications,omitempty"`
	Notes              string   `json:"notes,omitempty"`
}

// IsEmpty reports whether the context carries no usable facts.
func (p *PatientContext) IsEmpty() bool {
	if p == nil {
		return true
	}
	return p.Age == nil &&
		strings.TrimSpace(p.Sex) == "" &&
		len(nonBlank(p.Allergies)) == 0 &&
		len(nonBlank(p.Conditions)) == 0 &&
		len(nonBlank(p.CurrentMedications)) == 0 &&
		strings.TrimSpace(p.Notes) == ""
}

// RecordIngredient is an active ingredient as reported by the model.
type RecordIngredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength,omitempty"`
}

// PersonalizationBlock holds patient-specific risk annotations.
type PersonalizationBlock struct {
	RiskLevel string   `json:"riskLevel"`
	Summary   string   `json:"summary"`
	Alerts    []string `json:"alerts,omitempty"`
}

// StructuredMedicationRecord is the validated output of the generative step.
type StructuredMedicationRecord struct {
	DrugName          string             `json:"drugName"`
	GenericName       string             `json:"genericName,omitempty"`
	BrandNames        []string           `json:"brandNames,omitempty"`
	ActiveIngredients []RecordIngredient `json:"activeIngredients,omitempty"`
	Strength          string             `json:"strength,omitempty"`
	DosageForm        string             `json:"dosageForm,omitempty"`
	Route             string             `json:"route,omitempty"`
	Manufacturer      string             `json:"manufacturer,omitempty"`
	ProductType       ProductKind        `json:"productType"`

	Indications       []string `json:"indications,omitempty"`
	Dosage            []string `json:"dosage,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	SideEffects       []string `json:"sideEffects,omitempty"`
	Interactions      []string `json:"interactions,omitempty"`
	Storage           []string `json:"storage,omitempty"`
	Overdose          string   `json:"overdose,omitempty"`

	Personalized *PersonalizationBlock `json:"personalized"`
	Confidence   int                   `json:"confidence"`

	// PersonalizationDiscarded is set when the model emitted personalisation
	// without any patient context and it was removed.
	PersonalizationDiscarded bool `json:"personalizationDiscarded,omitempty"`
}

// HasUntrustedPersonalization reports a personalisation block that cannot be
// trusted because no patient context was supplied.
func (r *StructuredMedicationRecord) HasUntrustedPersonalization(hasPatientContext bool) bool {
	return r != nil && !hasPatientContext && r.Personalized != nil
}

// IsUnknown reports whether the model declined to identify the product.
func (r *StructuredMedicationRecord) IsUnknown() bool {
	if r == nil {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(r.DrugName))
	return name == "" || name == "unknown"
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
