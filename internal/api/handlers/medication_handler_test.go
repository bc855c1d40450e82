package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

type MockMedicationService struct {
	mock.Mock
}

func (m *MockMedicationService) Resolve(ctx context.Context, req services.ResolveRequest) (*entities.ScanResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ScanResult), args.Error(1)
}

func (m *MockMedicationService) GetScan(ctx context.Context, id string) (*entities.ScanResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ScanResult), args.Error(1)
}

func (m *MockMedicationService) CheckInteractions(ctx context.Context, in services.InteractionInput) *entities.InteractionGuardResult {
	args := m.Called(ctx, in)
	return args.Get(0).(*entities.InteractionGuardResult)
}

func newMux(service handlers.MedicationService) *http.ServeMux {
	h := handlers.NewMedicationHandler(service)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/medications/resolve", h.Resolve)
	mux.HandleFunc("POST /api/medications/interactions", h.CheckInteractions)
	mux.HandleFunc("GET /api/medications/scans/{id}", h.GetScan)
	return mux
}

func doRequest(t *testing.T, mux http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestMedicationHandler_Resolve(t *testing.T) {
	service := new(MockMedicationService)
	scan := &entities.ScanResult{
		ID:       "scan-1",
		Language: entities.LanguageArabic,
		Record: &entities.StructuredMedicationRecord{
			DrugName:    "Tylenol",
			GenericName: "acetaminophen",
			ProductType: entities.ProductKindHumanDrug,
			Confidence:  92,
		},
		Interactions: &entities.InteractionGuardResult{
			OverallRisk: entities.SeverityCaution,
			Items:       []entities.InteractionGuardItem{{OtherMedication: "warfarin", Severity: entities.SeverityCaution}},
		},
		Preflight: &entities.MedicationPreflight{Seed: "tylenol", RegistryEnabled: true},
	}
	service.On("Resolve", mock.Anything, mock.MatchedBy(func(req services.ResolveRequest) bool {
		return req.OCRText == "TYLENOL 500mg" &&
			req.Language == entities.LanguageArabic &&
			req.Patient != nil && *req.Patient.Age == 70 &&
			len(req.OtherMedications) == 1 &&
			req.DisableRegistry
	})).Return(scan, nil)

	rec := doRequest(t, newMux(service), http.MethodPost, "/api/medications/resolve",
		`{"ocrText":"TYLENOL 500mg","language":"ar","patientContext":{"age":70},"otherMedications":["warfarin"],"disableRegistry":true}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body handlers.ResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "scan-1", body.ScanID)
	assert.Equal(t, "Tylenol", body.Record.DrugName)
	require.NotNil(t, body.Interactions)
	assert.Equal(t, entities.SeverityCaution, body.Interactions.OverallRisk)
	require.NotNil(t, body.Preflight)
	assert.Equal(t, "tylenol", body.Preflight.Seed)
	service.AssertExpectations(t)
}

func TestMedicationHandler_ResolveErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"input", apperrors.NewInputError("text too short"), http.StatusUnprocessableEntity, handlers.RetakePhotoCode},
		{"analysis", apperrors.NewAnalysisError("model returned no usable JSON", nil), http.StatusBadGateway, ""},
		{"configuration", apperrors.NewConfigurationError("no model configured", nil), http.StatusServiceUnavailable, ""},
		{"internal", apperrors.NewInternalError("boom", errors.New("x")), http.StatusInternalServerError, ""},
		{"untyped", errors.New("plain"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockMedicationService)
			service.On("Resolve", mock.Anything, mock.Anything).Return(nil, tt.err)

			rec := doRequest(t, newMux(service), http.MethodPost, "/api/medications/resolve", `{"ocrText":"ab"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body handlers.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}

func TestMedicationHandler_ResolveRejectsBadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"ocrText":`},
		{"unsupported language", `{"ocrText":"Advil","language":"fr"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockMedicationService)

			rec := doRequest(t, newMux(service), http.MethodPost, "/api/medications/resolve", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			service.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
		})
	}
}

func TestMedicationHandler_ResolveDefaultsToEnglish(t *testing.T) {
	service := new(MockMedicationService)
	service.On("Resolve", mock.Anything, mock.MatchedBy(func(req services.ResolveRequest) bool {
		return req.Language == entities.LanguageEnglish
	})).Return(&entities.ScanResult{ID: "scan-2", Record: &entities.StructuredMedicationRecord{DrugName: "Advil"}}, nil)

	rec := doRequest(t, newMux(service), http.MethodPost, "/api/medications/resolve", `{"ocrText":"Advil 200"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	service.AssertExpectations(t)
}

func TestMedicationHandler_CheckInteractions(t *testing.T) {
	service := new(MockMedicationService)
	report := &entities.InteractionGuardResult{
		OverallRisk: entities.SeverityDanger,
		Items: []entities.InteractionGuardItem{{
			OtherMedication: "warfarin",
			Severity:        entities.SeverityDanger,
			Confidence:      80,
			Headline:        "Bleeding risk",
		}},
		Disclaimer: services.DisclaimerDefault,
	}
	service.On("CheckInteractions", mock.Anything, mock.MatchedBy(func(in services.InteractionInput) bool {
		return in.Target.DrugName == "Aspirin" && in.Language == entities.LanguageEnglish && len(in.OtherMedications) == 1
	})).Return(report)

	rec := doRequest(t, newMux(service), http.MethodPost, "/api/medications/interactions",
		`{"target":{"drugName":"Aspirin"},"otherMedications":["warfarin"]}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body entities.InteractionGuardResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, entities.SeverityDanger, body.OverallRisk)
	assert.Len(t, body.Items, 1)
}

func TestMedicationHandler_CheckInteractionsRequiresTarget(t *testing.T) {
	service := new(MockMedicationService)

	rec := doRequest(t, newMux(service), http.MethodPost, "/api/medications/interactions", `{"otherMedications":["warfarin"]}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	service.AssertNotCalled(t, "CheckInteractions", mock.Anything, mock.Anything)
}

func TestMedicationHandler_GetScan(t *testing.T) {
	service := new(MockMedicationService)
	service.On("GetScan", mock.Anything, "scan-9").Return(&entities.ScanResult{
		ID:     "scan-9",
		Record: &entities.StructuredMedicationRecord{DrugName: "Panadol"},
	}, nil)
	service.On("GetScan", mock.Anything, "missing").Return(nil, apperrors.NewNotFoundError("scan missing not found"))

	mux := newMux(service)

	rec := doRequest(t, mux, http.MethodGet, "/api/medications/scans/scan-9", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var scan entities.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scan))
	assert.Equal(t, "Panadol", scan.Record.DrugName)

	rec = doRequest(t, mux, http.MethodGet, "/api/medications/scans/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
