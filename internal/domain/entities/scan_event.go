package entities

import (
	"time"

	"github.com/google/uuid"
)

// ScanEvent announces a completed scan to downstream consumers. It carries the
// identification summary only, never OCR text or patient context.
type ScanEvent struct {
	ID          string      `json:"id"`
	ScanID      string      `json:"scanId"`
	DrugName    string      `json:"drugName"`
	GenericName string      `json:"genericName,omitempty"`
	ProductType ProductKind `json:"productType"`
	Confidence  int         `json:"confidence"`
	Language    Language    `json:"language"`
	RegistryHit bool        `json:"registryHit"`
	OverallRisk Severity    `json:"overallRisk,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// NewScanEvent summarises a scan result.
func NewScanEvent(result *ScanResult) *ScanEvent {
	event := &ScanEvent{
		ID:        uuid.New().String(),
		ScanID:    result.ID,
		Language:  result.Language,
		Timestamp: time.Now().UTC(),
	}
	if result.Record != nil {
		event.DrugName = result.Record.DrugName
		event.GenericName = result.Record.GenericName
		event.ProductType = result.Record.ProductType
		event.Confidence = result.Record.Confidence
	}
	if result.Preflight != nil && result.Preflight.Label != nil {
		event.RegistryHit = result.Preflight.Label.Found
	}
	if result.Interactions != nil {
		event.OverallRisk = result.Interactions.OverallRisk
	}
	return event
}
