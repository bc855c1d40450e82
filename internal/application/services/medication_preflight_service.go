package services

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

// Bounds on the evidence embedded in prompts.
const (
	evidenceMaxWebResults  = 5
	evidenceMaxSnippet     = 300
	evidenceMaxCandidates  = 3
	evidenceMaxIngredients = 8
)

// PreflightOptions controls one preflight run.
type PreflightOptions struct {
	DisableRegistry bool
	Search          providers.SearchOptions
}

// MedicationPreflightService gathers web and registry evidence for OCR text
// before the generative step.
type MedicationPreflightService struct {
	search   providers.FreeTextSearchProvider
	registry providers.DrugRegistryProvider
}

// NewMedicationPreflightService creates a preflight service. Either provider may be nil.
func NewMedicationPreflightService(search providers.FreeTextSearchProvider, registry providers.DrugRegistryProvider) *MedicationPreflightService {
	return &MedicationPreflightService{search: search, registry: registry}
}

// BuildPreflight never fails: every source degrades independently.
func (s *MedicationPreflightService) BuildPreflight(ctx context.Context, ocrText string, opts PreflightOptions) *entities.MedicationPreflight {
	ctx, span := observability.StartSpan(ctx, "medication.preflight")
	defer span.End()
	logger := observability.LoggerFromContext(ctx)

	normalized := utils.NormalizeText(ocrText)
	identifier, hasIdentifier := utils.ExtractNDC(normalized)
	seed := BuildSearchSeed(normalized)
	registryEnabled := s.registry != nil && !opts.DisableRegistry

	pre := &entities.MedicationPreflight{
		Identifier:      identifier,
		Seed:            seed,
		RegistryEnabled: registryEnabled,
	}

	// The web search and the identifier lookup only depend on the OCR text.
	g, gctx := errgroup.WithContext(ctx)
	if s.search != nil && seed != "" {
		g.Go(func() error {
			pre.FreeText = s.search.SearchTrusted(gctx, seed, opts.Search)
			return nil
		})
	}
	if registryEnabled && hasIdentifier {
		g.Go(func() error {
			pre.Label = s.lookupRegistry(gctx, identifierQuery(identifier))
			return nil
		})
	}
	_ = g.Wait()

	pre.CandidateNames = ExtractCandidateNames(pre.FreeText)

	// Without an identifier, names from the search titles drive the registry.
	if registryEnabled && !hasIdentifier {
		for _, name := range pre.CandidateNames {
			if ctx.Err() != nil {
				break
			}
			label := s.lookupRegistry(ctx, entities.RegistryQuery{Brand: name})
			pre.Label = label
			if label.Found || label.Error != "" || label.NDC != nil {
				break
			}
		}
	}

	pre.Classification = ClassifyProduct(pre.Label, evidenceCorpus(normalized, pre.FreeText))
	pre.EvidenceForAI = BuildEvidenceForAI(pre)

	observability.SetSpanAttributes(span,
		attribute.Bool("preflight.identifier", hasIdentifier),
		attribute.Bool("preflight.registry_enabled", registryEnabled),
		attribute.String("preflight.kind", string(pre.Classification.Kind)),
		attribute.String("preflight.tier", string(pre.Label.Tier())),
	)
	logger.Debug().
		Str("seed", seed).
		Strs("candidates", pre.CandidateNames).
		Str("kind", string(pre.Classification.Kind)).
		Str("tier", string(pre.Label.Tier())).
		Msg("preflight complete")

	return pre
}

func identifierQuery(identifier string) entities.RegistryQuery {
	q := entities.RegistryQuery{ProductNDC: utils.NormalizeToProductNDC(identifier)}
	if utils.IsPackageNDC(identifier) {
		q.PackageNDC = identifier
	}
	return q
}

// lookupRegistry runs the label lookup and then the NDC lookup for the same
// query, embedding the NDC outcome in the label snapshot.
func (s *MedicationPreflightService) lookupRegistry(ctx context.Context, q entities.RegistryQuery) *entities.LabelSnapshot {
	label := s.registry.FetchLabelSnapshot(ctx, q)
	if label == nil {
		label = &entities.LabelSnapshot{Query: q}
	}
	if ctx.Err() != nil {
		return label
	}
	if ndc := s.registry.FetchNDCSnapshot(ctx, q); ndc != nil && (ndc.Found || ndc.Error != "") {
		label.NDC = ndc
	}
	return label
}

func evidenceCorpus(ocrText string, freeText *entities.FreeTextSnapshot) string {
	var b strings.Builder
	b.WriteString(ocrText)
	if freeText != nil {
		for _, r := range freeText.Results {
			b.WriteString("\n")
			b.WriteString(r.Title)
			b.WriteString("\n")
			b.WriteString(r.Snippet)
		}
	}
	return b.String()
}

// BuildEvidenceForAI projects a preflight into the bounded prompt payload.
func BuildEvidenceForAI(pre *entities.MedicationPreflight) entities.EvidenceForAI {
	evidence := entities.EvidenceForAI{
		Identifier:     pre.Identifier,
		Classification: pre.Classification,
	}

	if pre.FreeText != nil {
		for _, r := range pre.FreeText.Results {
			if len(evidence.WebResults) == evidenceMaxWebResults {
				break
			}
			evidence.WebResults = append(evidence.WebResults, entities.WebEvidence{
				Title:   r.Title,
				Link:    r.Link,
				Snippet: utils.Truncate(r.Snippet, evidenceMaxSnippet),
			})
		}
	}

	if len(pre.CandidateNames) > evidenceMaxCandidates {
		evidence.CandidateNames = append([]string(nil), pre.CandidateNames[:evidenceMaxCandidates]...)
	} else {
		evidence.CandidateNames = append([]string(nil), pre.CandidateNames...)
	}

	evidence.Registry = registryEvidence(pre.Label)
	return evidence
}

func registryEvidence(label *entities.LabelSnapshot) *entities.RegistryEvidence {
	if label == nil {
		return nil
	}
	var out *entities.RegistryEvidence
	if label.Found && label.Record != nil {
		r := label.Record
		out = &entities.RegistryEvidence{
			Tier:              label.Tier(),
			MatchScore:        r.Match.Score,
			MatchReason:       r.Match.Reason,
			BrandNames:        r.BrandNames,
			GenericNames:      r.GenericNames,
			SubstanceNames:    r.SubstanceNames,
			Manufacturers:     r.ManufacturerNames,
			Routes:            r.Routes,
			ProductTypes:      r.ProductTypes,
			Indications:       r.Indications,
			Dosage:            r.Dosage,
			Contraindications: r.Contraindications,
			Warnings:          r.Warnings,
			Interactions:      r.Interactions,
			AdverseReactions:  r.AdverseReactions,
		}
	}
	if label.NDC != nil && label.NDC.Found && label.NDC.Record != nil {
		if out == nil {
			out = &entities.RegistryEvidence{Tier: entities.MatchTierNotFound}
		}
		n := label.NDC.Record
		ingredients := n.ActiveIngredients
		if len(ingredients) > evidenceMaxIngredients {
			ingredients = ingredients[:evidenceMaxIngredients]
		}
		out.NDC = &entities.NDCEvidence{
			Tier:              label.NDC.Tier(),
			ProductNDC:        n.ProductNDC,
			DosageForm:        n.DosageForm,
			Routes:            n.Routes,
			MarketingCategory: n.MarketingCategory,
			ActiveIngredients: ingredients,
		}
	}
	return out
}
