package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/repositories"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

const scanResultsTable = "scan_results"

// ScanResultsSchema creates the scan store. Safe to run on every start.
const ScanResultsSchema = `
CREATE TABLE IF NOT EXISTS scan_results (
    id           TEXT PRIMARY KEY,
    language     TEXT NOT NULL,
    ocr_text     TEXT NOT NULL,
    record       JSONB NOT NULL,
    interactions JSONB,
    preflight    JSONB,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_scan_results_created_at ON scan_results (created_at DESC);
`

var scanResultColumns = []interface{}{
	"id", "language", "ocr_text", "record", "interactions", "preflight", "created_at",
}

// ScanResultAdapter implements ScanResultRepository on PostgreSQL.
type ScanResultAdapter struct {
	client  *postgres.Client
	db      *goqu.Database
	metrics *observability.Metrics
}

// NewScanResultAdapter creates a new scan result adapter. metrics may be nil.
func NewScanResultAdapter(client *postgres.Client, metrics *observability.Metrics) *ScanResultAdapter {
	return &ScanResultAdapter{
		client:  client,
		db:      goqu.New("postgres", client.DB()),
		metrics: metrics,
	}
}

var _ repositories.ScanResultRepository = (*ScanResultAdapter)(nil)

// EnsureSchema creates the scan_results table when missing.
func (a *ScanResultAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.client.DB().ExecContext(ctx, ScanResultsSchema); err != nil {
		return apperrors.NewInternalError("failed to create scan_results schema", err)
	}
	return nil
}

// Save inserts a scan result. JSON columns are sent as text so the driver
// does not encode them as bytea.
func (a *ScanResultAdapter) Save(ctx context.Context, result *entities.ScanResult) error {
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "scan_results.insert", time.Since(start)) }()

	record, err := json.Marshal(result.Record)
	if err != nil {
		return apperrors.NewInternalError("failed to encode scan record", err)
	}
	interactions, err := nullableJSON(result.Interactions, result.Interactions != nil)
	if err != nil {
		return apperrors.NewInternalError("failed to encode scan interactions", err)
	}
	preflight, err := nullableJSON(result.Preflight, result.Preflight != nil)
	if err != nil {
		return apperrors.NewInternalError("failed to encode scan preflight", err)
	}

	row := goqu.Record{
		"id":           result.ID,
		"language":     string(result.Language),
		"ocr_text":     result.OCRText,
		"record":       string(record),
		"interactions": interactions,
		"preflight":    preflight,
		"created_at":   result.CreatedAt,
	}

	query, args, err := a.db.Insert(scanResultsTable).Prepared(true).Rows(row).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save scan result", err)
	}
	return nil
}

// GetByID loads a scan result.
func (a *ScanResultAdapter) GetByID(ctx context.Context, id string) (*entities.ScanResult, error) {
	start := time.Now()
	defer func() { observability.RecordDBMetric(ctx, a.metrics, "scan_results.select", time.Since(start)) }()

	query, args, err := a.db.Select(scanResultColumns...).
		From(scanResultsTable).
		Where(goqu.Ex{"id": id}).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	result := &entities.ScanResult{}
	var language string
	var record, interactions, preflight []byte

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&result.ID,
		&language,
		&result.OCRText,
		&record,
		&interactions,
		&preflight,
		&result.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("scan %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get scan result", err)
	}

	result.Language = entities.Language(language)
	if err := json.Unmarshal(record, &result.Record); err != nil {
		return nil, apperrors.NewInternalError("failed to decode scan record", err)
	}
	if len(interactions) > 0 {
		if err := json.Unmarshal(interactions, &result.Interactions); err != nil {
			return nil, apperrors.NewInternalError("failed to decode scan interactions", err)
		}
	}
	if len(preflight) > 0 {
		if err := json.Unmarshal(preflight, &result.Preflight); err != nil {
			return nil, apperrors.NewInternalError("failed to decode scan preflight", err)
		}
	}
	return result, nil
}

func nullableJSON(v interface{}, present bool) (sql.NullString, error) {
	if !present {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
