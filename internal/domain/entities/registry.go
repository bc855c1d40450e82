package entities

import (
	"strings"
	"time"
)

// RegistryDataset identifies which openFDA dataset a record came from.
type RegistryDataset string

const (
	DatasetLabel RegistryDataset = "label"
	DatasetNDC   RegistryDataset = "ndc"
)

// Score at or above which a match is confirmed regardless of which fields matched.
const (
	LabelConfirmedScore = 120
	NDCConfirmedScore   = 130
)

// Markers written into MatchScore.Reason by the registry scorer.
const (
	ReasonProductNDC           = "product_ndc match"
	ReasonPackageNDC           = "package_ndc match"
	ReasonBrandExact           = "brand_name exact match"
	ReasonBrandPartial         = "brand_name partial match"
	ReasonGenericExact         = "generic_name exact match"
	ReasonGenericPartial       = "generic_name partial match"
	ReasonSubstanceExact       = "substance_name exact match"
	ReasonSubstancePartial     = "substance_name partial match"
	ReasonManufacturerExact    = "manufacturer_name exact match"
	ReasonManufacturerPartial  = "manufacturer_name partial match"
	ReasonLabelerExact         = "labeler_name exact match"
	ReasonLabelerPartial       = "labeler_name partial match"
	reasonIdentifierMarkerText = "ndc match"
	reasonSubstanceMarkerText  = "substance_name"
)

// MatchTier is the trust level surfaced to consumers of a registry lookup.
type MatchTier string

const (
	MatchTierConfirmed MatchTier = "confirmed"
	MatchTierUncertain MatchTier = "uncertain"
	MatchTierNotFound  MatchTier = "not_found"
)

// RegistryQuery is the set of optional fields a registry lookup can use.
type RegistryQuery struct {
	Brand        string `json:"brand,omitempty"`
	Generic      string `json:"generic,omitempty"`
	ProductNDC   string `json:"productNdc,omitempty"`
	PackageNDC   string `json:"packageNdc,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
}

// IsEmpty reports whether the query has nothing to search for.
func (q RegistryQuery) IsEmpty() bool {
	return strings.TrimSpace(q.Brand) == "" &&
		strings.TrimSpace(q.Generic) == "" &&
		strings.TrimSpace(q.ProductNDC) == "" &&
		strings.TrimSpace(q.PackageNDC) == ""
}

// MatchScore explains why a registry record was selected.
type MatchScore struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// HasReason reports whether the reason trail contains marker.
func (m MatchScore) HasReason(marker string) bool {
	return strings.Contains(m.Reason, marker)
}

// Confirmed applies the confirmation policy for the given dataset.
func (m MatchScore) Confirmed(dataset RegistryDataset) bool {
	if m.HasReason(reasonIdentifierMarkerText) {
		return true
	}
	if m.HasReason(ReasonBrandExact) && (m.HasReason(ReasonGenericExact) || m.HasReason(reasonSubstanceMarkerText)) {
		return true
	}
	threshold := LabelConfirmedScore
	if dataset == DatasetNDC {
		threshold = NDCConfirmedScore
	}
	return m.Score >= threshold
}

// LabelRecord holds the harmonised identity fields and bounded clinical
// sections of one drug label.
type LabelRecord struct {
	ID                string   `json:"id,omitempty"`
	SetID             string   `json:"setId,omitempty"`
	EffectiveTime     string   `json:"effectiveTime,omitempty"`
	BrandNames        []string `json:"brandNames,omitempty"`
	GenericNames      []string `json:"genericNames,omitempty"`
	SubstanceNames    []string `json:"substanceNames,omitempty"`
	ManufacturerNames []string `json:"manufacturerNames,omitempty"`
	Routes            []string `json:"routes,omitempty"`
	ProductTypes      []string `json:"productTypes,omitempty"`
	ProductNDCs       []string `json:"productNdcs,omitempty"`
	PackageNDCs       []string `json:"packageNdcs,omitempty"`
	UNIIs             []string `json:"uniis,omitempty"`
	SPLSetIDs         []string `json:"splSetIds,omitempty"`

	Indications       []string `json:"indications,omitempty"`
	Dosage            []string `json:"dosage,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
	Warnings          []string `json:"warnings,omitempty"`
	Interactions      []string `json:"interactions,omitempty"`
	AdverseReactions  []string `json:"adverseReactions,omitempty"`
	Overdosage        []string `json:"overdosage,omitempty"`
	Storage           []string `json:"storage,omitempty"`

	Match MatchScore `json:"match"`
}

// LabelSnapshot is the outcome of one label lookup. Found=false with an empty
// Error is a clean miss; a non-empty Error means the lookup degraded.
type LabelSnapshot struct {
	Found     bool          `json:"found"`
	Query     RegistryQuery `json:"query"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Record    *LabelRecord  `json:"record,omitempty"`
	NDC       *NDCSnapshot  `json:"ndc,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Confirmed reports whether the label match passes the confirmation policy.
func (s *LabelSnapshot) Confirmed() bool {
	if s == nil || !s.Found || s.Record == nil {
		return false
	}
	return s.Record.Match.Confirmed(DatasetLabel)
}

// Tier returns the trust tier of the snapshot.
func (s *LabelSnapshot) Tier() MatchTier {
	switch {
	case s == nil || !s.Found || s.Record == nil:
		return MatchTierNotFound
	case s.Confirmed():
		return MatchTierConfirmed
	default:
		return MatchTierUncertain
	}
}

// ActiveIngredient is one ingredient of an NDC product.
type ActiveIngredient struct {
	Name       string   `json:"name"`
	Strength   string   `json:"strength,omitempty"`
	StrengthMg *float64 `json:"strengthMg,omitempty"`
}

// NDCRecord holds the product directory fields of one NDC product.
type NDCRecord struct {
	ProductNDC        string             `json:"productNdc,omitempty"`
	PackageNDCs       []string           `json:"packageNdcs,omitempty"`
	BrandName         string             `json:"brandName,omitempty"`
	GenericName       string             `json:"genericName,omitempty"`
	LabelerName       string             `json:"labelerName,omitempty"`
	DosageForm        string             `json:"dosageForm,omitempty"`
	Routes            []string           `json:"routes,omitempty"`
	MarketingCategory string             `json:"marketingCategory,omitempty"`
	ProductType       string             `json:"productType,omitempty"`
	ActiveIngredients []ActiveIngredient `json:"activeIngredients,omitempty"`

	Match MatchScore `json:"match"`
}

// NDCSnapshot is the outcome of one NDC directory lookup.
type NDCSnapshot struct {
	Found     bool          `json:"found"`
	Query     RegistryQuery `json:"query"`
	FetchedAt time.Time     `json:"fetchedAt"`
	Record    *NDCRecord    `json:"record,omitempty"`
	Error     string        `json:"error,omitempty"`
}

// Confirmed reports whether the NDC match passes the confirmation policy.
func (s *NDCSnapshot) Confirmed() bool {
	if s == nil || !s.Found || s.Record == nil {
		return false
	}
	return s.Record.Match.Confirmed(DatasetNDC)
}

// Tier returns the trust tier of the snapshot.
func (s *NDCSnapshot) Tier() MatchTier {
	switch {
	case s == nil || !s.Found || s.Record == nil:
		return MatchTierNotFound
	case s.Confirmed():
		return MatchTierConfirmed
	default:
		return MatchTierUncertain
	}
}
