package entities

import "time"

// ScanResult is a persisted resolution: the request text and everything produced for it.
type ScanResult struct {
	ID           string                      `json:"id" db:"id"`
	Language     Language                    `json:"language" db:"language"`
	OCRText      string                      `json:"ocrText" db:"ocr_text"`
	Record       *StructuredMedicationRecord `json:"record" db:"record"`
	Interactions *InteractionGuardResult     `json:"interactions,omitempty" db:"interactions"`
	Preflight    *MedicationPreflight        `json:"preflight,omitempty" db:"preflight"`
	CreatedAt    time.Time                   `json:"createdAt" db:"created_at"`
}
