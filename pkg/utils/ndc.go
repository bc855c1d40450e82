package utils

import (
	"regexp"
	"strings"
)

// ndcPattern matches product (labeler-product) and package (labeler-product-package)
// codes. Only digits may not touch the code: OCR often glues letters to it.
var ndcPattern = regexp.MustCompile(`(?:^|\D)(\d{4,5}-\d{3,4}(?:-\d{1,2})?)(?:\D|$)`)

// ExtractNDC returns the first NDC-shaped code found in text, verbatim.
func ExtractNDC(text string) (string, bool) {
	m := ndcPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// NormalizeToProductNDC drops the package segment of a package-level code.
// Codes with fewer than two segments are returned unchanged.
func NormalizeToProductNDC(code string) string {
	parts := strings.Split(strings.TrimSpace(code), "-")
	if len(parts) < 2 {
		return code
	}
	return parts[0] + "-" + parts[1]
}

// IsPackageNDC reports whether code carries a package segment.
func IsPackageNDC(code string) bool {
	return len(strings.Split(strings.TrimSpace(code), "-")) >= 3
}
