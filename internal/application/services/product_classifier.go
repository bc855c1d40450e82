package services

import (
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

// Confidence levels. Registry-derived kinds are trusted well above keyword sniffing.
const (
	confidenceRegistryVetSupplement = 95
	confidenceRegistryVetDrug       = 95
	confidenceRegistrySupplement    = 92
	confidenceRegistryHumanDrug     = 92
	confidenceRegistryUnrecognised  = 70
	confidenceKeywordVetSupplement  = 70
	confidenceKeywordVetDrug        = 65
	confidenceKeywordSupplement     = 65
	confidenceInsufficient          = 50
)

var (
	veterinaryCues = []string{
		"veterinary", "vet use", "animal use", "for animals", "animal health",
		"dog", "dogs", "puppy", "puppies", "cat", "cats", "kitten", "kittens", "canine", "feline",
		"horse", "horses", "equine", "cattle", "bovine", "sheep", "goat", "goats", "poultry",
		"livestock", "pets", "swine", "camel", "camels",
		"بيطري", "بيطرية", "للحيوانات", "حيوانات", "الحيوانات", "كلاب", "قطط", "ماشية", "أبقار",
		"دواجن", "خيول", "أغنام", "ماعز", "إبل",
	}
	supplementCues = []string{
		"dietary supplement", "food supplement", "nutritional supplement", "supplement",
		"supplements", "vitamin", "vitamins", "multivitamin", "herbal", "omega 3", "probiotic",
		"probiotics", "minerals",
		"مكمل غذائي", "مكملات غذائية", "مكمل", "مكملات", "فيتامين", "فيتامينات", "عشبي", "أعشاب",
	}
)

// ClassifyProduct fuses registry product types and keyword signals into one
// classification. A found label with product types takes priority over the
// free-text corpus.
func ClassifyProduct(label *entities.LabelSnapshot, corpus string) entities.ProductClassification {
	if label != nil && label.Found && label.Record != nil && len(nonEmpty(label.Record.ProductTypes)) > 0 {
		return classifyFromProductTypes(nonEmpty(label.Record.ProductTypes))
	}
	return ClassifyFromKeywords(corpus)
}

func classifyFromProductTypes(productTypes []string) entities.ProductClassification {
	var animal, dietary, human bool
	reasons := make([]string, 0, len(productTypes))
	for _, raw := range productTypes {
		reasons = append(reasons, "Registry product type: "+raw)
		value := strings.ToLower(raw)
		if strings.Contains(value, "animal") || strings.Contains(value, "veterinary") {
			animal = true
		}
		if strings.Contains(value, "dietary") || strings.Contains(value, "supplement") {
			dietary = true
		}
		if strings.Contains(value, "human") || strings.Contains(value, "drug") {
			human = true
		}
	}

	switch {
	case animal && dietary:
		return entities.ProductClassification{Kind: entities.ProductKindVeterinarySupplement, Confidence: confidenceRegistryVetSupplement, Reasons: reasons}
	case animal:
		return entities.ProductClassification{Kind: entities.ProductKindVeterinaryDrug, Confidence: confidenceRegistryVetDrug, Reasons: reasons}
	case dietary:
		return entities.ProductClassification{Kind: entities.ProductKindHumanSupplement, Confidence: confidenceRegistrySupplement, Reasons: reasons}
	case human:
		return entities.ProductClassification{Kind: entities.ProductKindHumanDrug, Confidence: confidenceRegistryHumanDrug, Reasons: reasons}
	default:
		return entities.ProductClassification{Kind: entities.ProductKindUnknown, Confidence: confidenceRegistryUnrecognised, Reasons: reasons}
	}
}

// ClassifyFromKeywords classifies using only OCR and search text.
func ClassifyFromKeywords(corpus string) entities.ProductClassification {
	haystack := " " + utils.NormalizeForMatch(corpus) + " "
	vet := matchedCues(haystack, veterinaryCues)
	supp := matchedCues(haystack, supplementCues)

	var reasons []string
	for _, cue := range vet {
		reasons = append(reasons, "Veterinary keyword: "+cue)
	}
	for _, cue := range supp {
		reasons = append(reasons, "Supplement keyword: "+cue)
	}

	switch {
	case len(vet) > 0 && len(supp) > 0:
		return entities.ProductClassification{Kind: entities.ProductKindVeterinarySupplement, Confidence: confidenceKeywordVetSupplement, Reasons: reasons}
	case len(vet) > 0:
		return entities.ProductClassification{Kind: entities.ProductKindVeterinaryDrug, Confidence: confidenceKeywordVetDrug, Reasons: reasons}
	case len(supp) > 0:
		return entities.ProductClassification{Kind: entities.ProductKindHumanSupplement, Confidence: confidenceKeywordSupplement, Reasons: reasons}
	default:
		return entities.ProductClassification{Kind: entities.ProductKindUnknown, Confidence: confidenceInsufficient, Reasons: []string{"Insufficient signals"}}
	}
}

// matchedCues returns the cues present in haystack. Latin cues must match
// whole words; Arabic cues match anywhere since articles and prefixes attach to the word.
func matchedCues(haystack string, cues []string) []string {
	var found []string
	for _, cue := range cues {
		needle := utils.NormalizeForMatch(cue)
		if needle == "" {
			continue
		}
		if utils.HasLatinLetter(needle) {
			needle = " " + needle + " "
		}
		if strings.Contains(haystack, needle) {
			found = append(found, cue)
		}
	}
	return found
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
