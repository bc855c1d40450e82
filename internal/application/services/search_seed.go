package services

import (
	"sort"
	"strings"

	"github.com/zatekoja/medscan/backend/pkg/utils"
)

const (
	seedMinTokenLen   = 3
	seedMaxTokenLen   = 24
	seedMaxTokens     = 10
	seedFallbackLines = 3
	seedFallbackChars = 120
)

// seedStopwords is packaging, dosage-form, unit and regulatory vocabulary in
// English and Arabic. Keys are compared after NFKC and lowercasing.
var seedStopwords = toSet([]string{
	// dosage forms
	"tablet", "tablets", "tab", "tabs", "capsule", "capsules", "caps", "caplet", "caplets",
	"syrup", "suspension", "solution", "injection", "injectable", "cream", "ointment", "gel",
	"drops", "spray", "powder", "sachet", "sachets", "lozenge", "lozenges", "suppository",
	"suppositories", "inhaler", "patch", "patches", "film", "coated", "chewable", "effervescent",
	"softgel", "softgels", "liquid", "oral", "topical", "vial", "ampoule", "ampoules",
	"extended", "release", "delayed", "modified",
	// units
	"mg", "mcg", "gram", "grams", "ml", "iu", "units", "unit", "percent",
	// packaging and regulatory
	"each", "contains", "contain", "per", "pack", "package", "packet", "box", "bottle",
	"blister", "strip", "strips", "count", "net", "batch", "lot", "exp", "expiry", "expires",
	"mfg", "mfd", "manufactured", "manufacturer", "marketed", "distributed", "made", "product",
	"pharmaceutical", "pharmaceuticals", "pharma", "laboratories", "ltd", "inc", "llc", "co",
	"ndc", "reg", "registration", "rx", "only", "otc", "prescription", "drug", "drugs",
	"medicine", "medicines", "keep", "reach", "children", "store", "below", "temperature",
	"protect", "light", "moisture", "dry", "place", "warning", "warnings", "caution",
	"directions", "dosage", "dose", "use", "uses", "see", "leaflet", "insert", "read",
	"information", "ingredients", "active", "inactive", "ingredient", "the", "and", "for",
	"with", "from", "not", "take", "every", "hours", "hour", "daily", "day", "days", "times",
	"adults", "adult", "doctor", "physician", "pharmacist",
	// Arabic
	"أقراص", "قرص", "كبسولات", "كبسولة", "شراب", "معلق", "محلول", "حقن", "حقنة", "كريم",
	"مرهم", "جل", "نقط", "قطرة", "بخاخ", "بودرة", "أكياس", "كيس", "لبوس", "تحاميل", "مغلفة",
	"ملجم", "مجم", "ملغ", "مل", "جرام", "غرام", "وحدة", "دولية",
	"عبوة", "علبة", "زجاجة", "شريط", "شرائط", "تشغيلة", "رقم", "تاريخ", "الانتهاء", "الإنتاج",
	"إنتاج", "تصنيع", "صنع", "شركة", "للأدوية", "الأدوية", "دواء", "يحفظ", "بعيدا", "عن",
	"متناول", "الأطفال", "درجة", "حرارة", "تحذير", "تحذيرات", "الجرعة", "جرعة", "الاستعمال",
	"استعمال", "طريقة", "النشرة", "المادة", "الفعالة", "يحتوي", "كل", "على", "من", "في",
	"مع", "بوصفة", "طبية", "الطبيب", "الصيدلي",
})

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[utils.CaseFoldKey(w)] = struct{}{}
	}
	return set
}

func isSeedStopword(token string) bool {
	_, ok := seedStopwords[utils.CaseFoldKey(token)]
	return ok
}

type seedToken struct {
	display string
	count   int
	order   int
}

// BuildSearchSeed turns raw OCR text into a compact web search query.
// An embedded NDC code short-circuits to the quoted code. Otherwise the
// ten most frequent non-stopword tokens are used, falling back to the first
// lines of the text when nothing survives filtering.
func BuildSearchSeed(ocrText string) string {
	normalized := utils.NormalizeText(ocrText)
	if normalized == "" {
		return ""
	}

	if code, ok := utils.ExtractNDC(normalized); ok {
		return `"` + code + `"`
	}

	byKey := make(map[string]*seedToken)
	var ordered []*seedToken
	for _, token := range utils.Tokenize(normalized) {
		n := utils.RuneLen(token)
		if n < seedMinTokenLen || n > seedMaxTokenLen || isSeedStopword(token) {
			continue
		}
		key := utils.CaseFoldKey(token)
		if existing, ok := byKey[key]; ok {
			existing.count++
			continue
		}
		t := &seedToken{display: token, count: 1, order: len(ordered)}
		byKey[key] = t
		ordered = append(ordered, t)
	}

	if len(ordered) == 0 {
		return fallbackSeed(normalized)
	}

	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].count > ordered[j].count
	})
	if len(ordered) > seedMaxTokens {
		ordered = ordered[:seedMaxTokens]
	}

	parts := make([]string, len(ordered))
	for i, t := range ordered {
		parts[i] = t.display
	}
	return strings.Join(parts, " ")
}

func fallbackSeed(normalized string) string {
	var lines []string
	for _, line := range strings.Split(normalized, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
			if len(lines) == seedFallbackLines {
				break
			}
		}
	}
	return strings.TrimSpace(utils.Truncate(strings.Join(lines, " "), seedFallbackChars))
}
