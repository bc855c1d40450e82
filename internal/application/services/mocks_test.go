package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
)

// Mocks

type MockTextGenerator struct {
	mock.Mock
}

func (m *MockTextGenerator) Complete(ctx context.Context, req providers.CompletionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type MockSearchProvider struct {
	mock.Mock
}

func (m *MockSearchProvider) Search(ctx context.Context, query string, opts providers.SearchOptions) *entities.FreeTextSnapshot {
	args := m.Called(ctx, query, opts)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.FreeTextSnapshot)
}

func (m *MockSearchProvider) SearchTrusted(ctx context.Context, seed string, opts providers.SearchOptions) *entities.FreeTextSnapshot {
	args := m.Called(ctx, seed, opts)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.FreeTextSnapshot)
}

type MockRegistryProvider struct {
	mock.Mock
}

func (m *MockRegistryProvider) FetchLabelSnapshot(ctx context.Context, q entities.RegistryQuery) *entities.LabelSnapshot {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.LabelSnapshot)
}

func (m *MockRegistryProvider) FetchNDCSnapshot(ctx context.Context, q entities.RegistryQuery) *entities.NDCSnapshot {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*entities.NDCSnapshot)
}

type MockScanResultRepository struct {
	mock.Mock
}

func (m *MockScanResultRepository) Save(ctx context.Context, result *entities.ScanResult) error {
	args := m.Called(ctx, result)
	return args.Error(0)
}

func (m *MockScanResultRepository) GetByID(ctx context.Context, id string) (*entities.ScanResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ScanResult), args.Error(1)
}

type MockEventBus struct {
	mock.Mock
}

func (m *MockEventBus) Publish(ctx context.Context, channel string, event *entities.ScanEvent) error {
	args := m.Called(ctx, channel, event)
	return args.Error(0)
}

func (m *MockEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ScanEvent, error) {
	args := m.Called(ctx, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan *entities.ScanEvent), args.Error(1)
}

func (m *MockEventBus) Close() error {
	return m.Called().Error(0)
}

func tylenolLabel(q entities.RegistryQuery) *entities.LabelSnapshot {
	return &entities.LabelSnapshot{
		Found: true,
		Query: q,
		Record: &entities.LabelRecord{
			BrandNames:   []string{"Tylenol"},
			GenericNames: []string{"Acetaminophen"},
			ProductTypes: []string{"HUMAN OTC DRUG"},
			Indications:  []string{"temporarily relieves minor aches and pains"},
			Match: entities.MatchScore{
				Score:  180,
				Reason: entities.ReasonBrandExact + ", " + entities.ReasonGenericExact,
			},
		},
	}
}

const tylenolRecordJSON = `{
  "drugName": "Tylenol",
  "genericName": "Acetaminophen",
  "brandNames": ["Tylenol"],
  "activeIngredients": [{"name": "Acetaminophen", "strength": "500 mg"}],
  "strength": "500 mg",
  "dosageForm": "tablet",
  "route": "oral",
  "manufacturer": "Kenvue",
  "productType": "human_drug",
  "indications": ["pain", "fever"],
  "dosage": ["1 tablet every 6 hours"],
  "contraindications": [],
  "warnings": ["liver warning"],
  "sideEffects": [],
  "interactions": [],
  "storage": ["store below 25C"],
  "overdose": "seek help",
  "personalized": null,
  "confidence": 88
}`
