package services

import (
	"regexp"
	"strings"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/pkg/utils"
)

const (
	candidateMaxResults = 8
	candidateMaxNames   = 4
	candidateMaxWords   = 4
	candidateMinChars   = 3
	candidateMaxChars   = 50
)

var (
	// Titles look like "Product: description" or "Product - Site".
	titleSeparator     = regexp.MustCompile(`:|\||–|—|\s-\s`)
	titleBoilerplate   = regexp.MustCompile(`(?i)\b(?:what\s+is|side\s+effects|drug\s+information|uses|dosage|warnings)\b`)
	nonAlphanumericRun = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
)

// ExtractCandidateNames derives up to four product names from search result titles.
// Names without a Latin letter are discarded because the registry is keyed in Latin script.
func ExtractCandidateNames(snapshot *entities.FreeTextSnapshot) []string {
	if snapshot == nil {
		return nil
	}

	results := snapshot.Results
	if len(results) > candidateMaxResults {
		results = results[:candidateMaxResults]
	}

	seen := make(map[string]struct{})
	var names []string
	for _, r := range results {
		name := candidateFromTitle(r.Title)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
		if len(names) == candidateMaxNames {
			break
		}
	}
	return names
}

func candidateFromTitle(title string) string {
	head := title
	if loc := titleSeparator.FindStringIndex(title); loc != nil {
		head = title[:loc[0]]
	}
	head = titleBoilerplate.ReplaceAllString(head, " ")
	head = nonAlphanumericRun.ReplaceAllString(head, " ")

	words := strings.Fields(head)
	if len(words) > candidateMaxWords {
		words = words[:candidateMaxWords]
	}
	name := strings.Join(words, " ")

	if n := utils.RuneLen(name); n < candidateMinChars || n > candidateMaxChars {
		return ""
	}
	if !utils.HasLatinLetter(name) {
		return ""
	}
	return name
}
