package registry

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

const (
	maxSectionEntries = 2
	maxSectionChars   = 1200
)

// stringList accepts either a JSON string or an array of strings. The
// registry is not consistent about which one it sends for a given field.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		*s = many
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one != "" {
			*s = stringList{one}
		}
		return nil
	}
	// Anything else (numbers, objects, null) is ignored rather than failing the whole record.
	*s = nil
	return nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type labelEnvelope struct {
	Error   *errorBody    `json:"error"`
	Results []labelResult `json:"results"`
}

type labelOpenFDA struct {
	BrandName        stringList `json:"brand_name"`
	GenericName      stringList `json:"generic_name"`
	SubstanceName    stringList `json:"substance_name"`
	ManufacturerName stringList `json:"manufacturer_name"`
	Route            stringList `json:"route"`
	ProductType      stringList `json:"product_type"`
	ProductNDC       stringList `json:"product_ndc"`
	PackageNDC       stringList `json:"package_ndc"`
	UNII             stringList `json:"unii"`
	SPLSetID         stringList `json:"spl_set_id"`
}

type labelResult struct {
	ID            string       `json:"id"`
	SetID         string       `json:"set_id"`
	EffectiveTime string       `json:"effective_time"`
	OpenFDA       labelOpenFDA `json:"openfda"`

	IndicationsAndUsage     stringList `json:"indications_and_usage"`
	Purpose                 stringList `json:"purpose"`
	DosageAndAdministration stringList `json:"dosage_and_administration"`
	Contraindications       stringList `json:"contraindications"`
	DoNotUse                stringList `json:"do_not_use"`
	BoxedWarning            stringList `json:"boxed_warning"`
	Warnings                stringList `json:"warnings"`
	WarningsAndCautions     stringList `json:"warnings_and_cautions"`
	DrugInteractions        stringList `json:"drug_interactions"`
	AdverseReactions        stringList `json:"adverse_reactions"`
	Overdosage              stringList `json:"overdosage"`
	StorageAndHandling      stringList `json:"storage_and_handling"`
}

type ndcEnvelope struct {
	Error   *errorBody  `json:"error"`
	Results []ndcResult `json:"results"`
}

type ndcIngredient struct {
	Name     string `json:"name"`
	Strength string `json:"strength"`
}

type ndcPackage struct {
	PackageNDC  string `json:"package_ndc"`
	Description string `json:"description"`
}

type ndcResult struct {
	ProductNDC        string          `json:"product_ndc"`
	BrandName         string          `json:"brand_name"`
	GenericName       string          `json:"generic_name"`
	LabelerName       string          `json:"labeler_name"`
	DosageForm        string          `json:"dosage_form"`
	Route             stringList      `json:"route"`
	MarketingCategory string          `json:"marketing_category"`
	ProductType       string          `json:"product_type"`
	ActiveIngredients []ndcIngredient `json:"active_ingredients"`
	Packaging         []ndcPackage    `json:"packaging"`
}

func (r ndcResult) packageNDCs() []string {
	out := make([]string, 0, len(r.Packaging))
	for _, p := range r.Packaging {
		if code := strings.TrimSpace(p.PackageNDC); code != "" {
			out = append(out, code)
		}
	}
	return out
}

func projectLabel(r labelResult, match entities.MatchScore) *entities.LabelRecord {
	return &entities.LabelRecord{
		ID:                r.ID,
		SetID:             r.SetID,
		EffectiveTime:     r.EffectiveTime,
		BrandNames:        r.OpenFDA.BrandName,
		GenericNames:      r.OpenFDA.GenericName,
		SubstanceNames:    r.OpenFDA.SubstanceName,
		ManufacturerNames: r.OpenFDA.ManufacturerName,
		Routes:            r.OpenFDA.Route,
		ProductTypes:      r.OpenFDA.ProductType,
		ProductNDCs:       r.OpenFDA.ProductNDC,
		PackageNDCs:       r.OpenFDA.PackageNDC,
		UNIIs:             r.OpenFDA.UNII,
		SPLSetIDs:         r.OpenFDA.SPLSetID,

		Indications:       section(r.IndicationsAndUsage, r.Purpose),
		Dosage:            section(r.DosageAndAdministration),
		Contraindications: section(r.Contraindications, r.DoNotUse),
		Warnings:          section(r.BoxedWarning, r.Warnings, r.WarningsAndCautions),
		Interactions:      section(r.DrugInteractions),
		AdverseReactions:  section(r.AdverseReactions),
		Overdosage:        section(r.Overdosage),
		Storage:           section(r.StorageAndHandling),

		Match: match,
	}
}

// section flattens the given label fields into at most maxSectionEntries
// non-empty entries of at most maxSectionChars each.
func section(fields ...stringList) []string {
	var out []string
	for _, field := range fields {
		for _, entry := range field {
			entry = utils.NormalizeText(entry)
			if entry == "" {
				continue
			}
			out = append(out, utils.Truncate(entry, maxSectionChars))
			if len(out) == maxSectionEntries {
				return out
			}
		}
	}
	return out
}

func projectNDC(r ndcResult, match entities.MatchScore) *entities.NDCRecord {
	ingredients := make([]entities.ActiveIngredient, 0, len(r.ActiveIngredients))
	for _, ing := range r.ActiveIngredients {
		name := strings.TrimSpace(ing.Name)
		if name == "" {
			continue
		}
		ingredients = append(ingredients, entities.ActiveIngredient{
			Name:       name,
			Strength:   strings.TrimSpace(ing.Strength),
			StrengthMg: ParseStrengthMg(ing.Strength),
		})
	}
	return &entities.NDCRecord{
		ProductNDC:        r.ProductNDC,
		PackageNDCs:       r.packageNDCs(),
		BrandName:         r.BrandName,
		GenericName:       r.GenericName,
		LabelerName:       r.LabelerName,
		DosageForm:        r.DosageForm,
		Routes:            r.Route,
		MarketingCategory: r.MarketingCategory,
		ProductType:       r.ProductType,
		ActiveIngredients: ingredients,
		Match:             match,
	}
}

var (
	strengthPattern  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(mcg|µg|μg|ug|mg|g)\b`)
	thousandsPattern = regexp.MustCompile(`(\d),(\d{3})`)
)

// ParseStrengthMg extracts the first amount from a free-text strength and
// converts it to milligrams. It returns nil when no amount with a known unit is present.
func ParseStrengthMg(strength string) *float64 {
	cleaned := thousandsPattern.ReplaceAllString(strength, "$1$2")
	m := strengthPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	switch strings.ToLower(m[2]) {
	case "g":
		value *= 1000
	case "mcg", "µg", "μg", "ug":
		value /= 1000
	}
	return &value
}
