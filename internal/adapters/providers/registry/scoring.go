package registry

import (
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

// Label dataset weights.
const (
	labelIdentifierWeight          = 120
	labelBrandExactWeight          = 100
	labelBrandPartialWeight        = 50
	labelGenericExactWeight        = 80
	labelGenericPartialWeight      = 40
	labelSubstanceExactWeight      = 35
	labelSubstancePartialWeight    = 20
	labelManufacturerExactWeight   = 20
	labelManufacturerPartialWeight = 10
)

// NDC dataset weights.
const (
	ndcPackageWeight        = 150
	ndcProductWeight        = 130
	ndcBrandExactWeight     = 90
	ndcBrandPartialWeight   = 45
	ndcGenericExactWeight   = 80
	ndcGenericPartialWeight = 40
	ndcLabelerExactWeight   = 20
	ndcLabelerPartialWeight = 10
)

type fieldMatch int

const (
	noMatch fieldMatch = iota
	partialMatch
	exactMatch
)

// compareField returns the best match of needle against any of the values.
// Both sides are compared in their normalised form; partial means substring in either direction.
func compareField(needle string, values ...string) fieldMatch {
	n := utils.NormalizeForMatch(needle)
	if n == "" {
		return noMatch
	}
	best := noMatch
	for _, v := range values {
		candidate := utils.NormalizeForMatch(v)
		if candidate == "" {
			continue
		}
		if candidate == n {
			return exactMatch
		}
		if strings.Contains(candidate, n) || strings.Contains(n, candidate) {
			best = partialMatch
		}
	}
	return best
}

type scorer struct {
	score   int
	reasons []string
}

func (s *scorer) add(weight int, reason string) {
	s.score += weight
	s.reasons = append(s.reasons, reason)
}

func (s *scorer) field(m fieldMatch, exactWeight, partialWeight int, exactReason, partialReason string) {
	switch m {
	case exactMatch:
		s.add(exactWeight, exactReason)
	case partialMatch:
		s.add(partialWeight, partialReason)
	}
}

func (s *scorer) result() entities.MatchScore {
	return entities.MatchScore{Score: s.score, Reason: strings.Join(s.reasons, ", ")}
}

func sameCode(a, b string) bool {
	a = strings.TrimSpace(a)
	return a != "" && strings.EqualFold(a, strings.TrimSpace(b))
}

func containsCode(code string, values []string) bool {
	for _, v := range values {
		if sameCode(code, v) {
			return true
		}
	}
	return false
}

// productCode returns the product-level identifier for the query, deriving
// it from the package code when only that was supplied.
func productCode(q entities.RegistryQuery) string {
	if code := strings.TrimSpace(q.ProductNDC); code != "" {
		return utils.NormalizeToProductNDC(code)
	}
	if code := strings.TrimSpace(q.PackageNDC); code != "" {
		return utils.NormalizeToProductNDC(code)
	}
	return ""
}

// scoreLabel scores one label record against the query.
// The identifier weight is counted at most once.
func scoreLabel(q entities.RegistryQuery, r labelResult) entities.MatchScore {
	var s scorer

	switch {
	case containsCode(q.PackageNDC, r.OpenFDA.PackageNDC):
		s.add(labelIdentifierWeight, entities.ReasonPackageNDC)
	case containsCode(productCode(q), r.OpenFDA.ProductNDC):
		s.add(labelIdentifierWeight, entities.ReasonProductNDC)
	}

	s.field(compareField(q.Brand, r.OpenFDA.BrandName...),
		labelBrandExactWeight, labelBrandPartialWeight,
		entities.ReasonBrandExact, entities.ReasonBrandPartial)
	s.field(compareField(q.Generic, r.OpenFDA.GenericName...),
		labelGenericExactWeight, labelGenericPartialWeight,
		entities.ReasonGenericExact, entities.ReasonGenericPartial)
	s.field(compareField(q.Generic, r.OpenFDA.SubstanceName...),
		labelSubstanceExactWeight, labelSubstancePartialWeight,
		entities.ReasonSubstanceExact, entities.ReasonSubstancePartial)
	s.field(compareField(q.Manufacturer, r.OpenFDA.ManufacturerName...),
		labelManufacturerExactWeight, labelManufacturerPartialWeight,
		entities.ReasonManufacturerExact, entities.ReasonManufacturerPartial)

	return s.result()
}

// scoreNDC scores one NDC directory record against the query. A product
// code match only counts when the package code did not match.
func scoreNDC(q entities.RegistryQuery, r ndcResult) entities.MatchScore {
	var s scorer

	switch {
	case containsCode(q.PackageNDC, r.packageNDCs()):
		s.add(ndcPackageWeight, entities.ReasonPackageNDC)
	case sameCode(productCode(q), r.ProductNDC):
		s.add(ndcProductWeight, entities.ReasonProductNDC)
	}

	s.field(compareField(q.Brand, r.BrandName),
		ndcBrandExactWeight, ndcBrandPartialWeight,
		entities.ReasonBrandExact, entities.ReasonBrandPartial)
	s.field(compareField(q.Generic, r.GenericName),
		ndcGenericExactWeight, ndcGenericPartialWeight,
		entities.ReasonGenericExact, entities.ReasonGenericPartial)
	s.field(compareField(q.Manufacturer, r.LabelerName),
		ndcLabelerExactWeight, ndcLabelerPartialWeight,
		entities.ReasonLabelerExact, entities.ReasonLabelerPartial)

	return s.result()
}
