package entities

import "time"

// FreeTextResult is one ranked web search result.
type FreeTextResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// FreeTextSnapshot is the immutable outcome of a web search for one request.
type FreeTextSnapshot struct {
	Found     bool             `json:"found"`
	Query     string           `json:"query"`
	Scoped    bool             `json:"scoped"`
	Results   []FreeTextResult `json:"results,omitempty"`
	FetchedAt time.Time        `json:"fetchedAt"`
	Error     string           `json:"error,omitempty"`
}

// ProductKind is the regulatory category of a scanned product.
type ProductKind string

const (
	ProductKindHumanDrug            ProductKind = "human_drug"
	ProductKindHumanSupplement      ProductKind = "human_supplement"
	ProductKindVeterinaryDrug       ProductKind = "veterinary_drug"
	ProductKindVeterinarySupplement ProductKind = "veterinary_supplement"
	ProductKindUnknown              ProductKind = "unknown"
)

// ProductClassification is the fused product category with its evidence trail.
type ProductClassification struct {
	Kind       ProductKind `json:"kind"`
	Confidence int         `json:"confidence"`
	Reasons    []string    `json:"reasons"`
}

// MedicationPreflight bundles every piece of evidence gathered before the
// generative step.
type MedicationPreflight struct {
	Identifier      string                `json:"identifier,omitempty"`
	Seed            string                `json:"seed"`
	CandidateNames  []string              `json:"candidateNames,omitempty"`
	RegistryEnabled bool                  `json:"registryEnabled"`
	FreeText        *FreeTextSnapshot     `json:"freeText,omitempty"`
	Label           *LabelSnapshot        `json:"label,omitempty"`
	Classification  ProductClassification `json:"classification"`
	EvidenceForAI   EvidenceForAI         `json:"evidenceForAi"`
}

// EvidenceForAI is the bounded projection of a preflight that is embedded in
// generative prompts. Every slice in it has a fixed maximum length.
type EvidenceForAI struct {
	Identifier     string                `json:"identifier,omitempty"`
	Classification ProductClassification `json:"classification"`
	Registry       *RegistryEvidence     `json:"registry,omitempty"`
	WebResults     []WebEvidence         `json:"webResults,omitempty"`
	CandidateNames []string              `json:"candidateNames,omitempty"`
}

// RegistryEvidence is the prompt-safe view of a label match.
type RegistryEvidence struct {
	Tier              MatchTier    `json:"tier"`
	MatchScore        int          `json:"matchScore"`
	MatchReason       string       `json:"matchReason"`
	BrandNames        []string     `json:"brandNames,omitempty"`
	GenericNames      []string     `json:"genericNames,omitempty"`
	SubstanceNames    []string     `json:"substanceNames,omitempty"`
	Manufacturers     []string     `json:"manufacturers,omitempty"`
	Routes            []string     `json:"routes,omitempty"`
	ProductTypes      []string     `json:"productTypes,omitempty"`
	Indications       []string     `json:"indications,omitempty"`
	Dosage            []string     `json:"dosage,omitempty"`
	Contraindications []string     `json:"contraindications,omitempty"`
	Warnings          []string     `json:"warnings,omitempty"`
	Interactions      []string     `json:"interactions,omitempty"`
	AdverseReactions  []string     `json:"adverseReactions,omitempty"`
	NDC               *NDCEvidence `json:"ndc,omitempty"`
}

// NDCEvidence is the prompt-safe view of an NDC directory match.
type NDCEvidence struct {
	Tier              MatchTier          `json:"tier"`
	ProductNDC        string             `json:"productNdc,omitempty"`
	DosageForm        string             `json:"dosageForm,omitempty"`
	Routes            []string           `json:"routes,omitempty"`
	MarketingCategory string             `json:"marketingCategory,omitempty"`
	ActiveIngredients []ActiveIngredient `json:"activeIngredients,omitempty"`
}

// WebEvidence is the prompt-safe view of one search result.
type WebEvidence struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}
