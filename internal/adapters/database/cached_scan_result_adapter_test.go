package database_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zatekoja/medscan/backend/internal/adapters/database"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
)

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

type memoryCache struct {
	mu     sync.Mutex
	items  map[string][]byte
	ttls   map[string]int
	getErr error
	setErr error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: map[string][]byte{}, ttls: map[string]int{}}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.items[key]
	if !ok {
		return nil, providers.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.items[key] = value
	c.ttls[key] = ttl
	return nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func sampleScan() *entities.ScanResult {
	return &entities.ScanResult{
		ID:       "scan-42",
		Language: entities.LanguageEnglish,
		OCRText:  "Advil 200mg",
		Record:   &entities.StructuredMedicationRecord{DrugName: "Advil", Confidence: 81},
	}
}

func TestCachedScanResultAdapter_SaveWritesThrough(t *testing.T) {
	repo := new(MockScanResultRepository)
	cache := newMemoryCache()
	adapter := database.NewCachedScanResultAdapter(repo, cache, 600, nil)
	scan := sampleScan()
	repo.On("Save", mock.Anything, scan).Return(nil)

	require.NoError(t, adapter.Save(context.Background(), scan))

	assert.Contains(t, cache.items, "scan:scan-42")
	assert.Equal(t, 600, cache.ttls["scan:scan-42"])

	got, err := adapter.GetByID(context.Background(), "scan-42")
	require.NoError(t, err)
	assert.Equal(t, "Advil", got.Record.DrugName)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestCachedScanResultAdapter_SaveFailureSkipsCache(t *testing.T) {
	repo := new(MockScanResultRepository)
	cache := newMemoryCache()
	adapter := database.NewCachedScanResultAdapter(repo, cache, 0, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))

	require.Error(t, adapter.Save(context.Background(), sampleScan()))
	assert.Empty(t, cache.items)
}

func TestCachedScanResultAdapter_ReadThrough(t *testing.T) {
	repo := new(MockScanResultRepository)
	cache := newMemoryCache()
	adapter := database.NewCachedScanResultAdapter(repo, cache, 0, nil)
	repo.On("GetByID", mock.Anything, "scan-42").Return(sampleScan(), nil).Once()

	first, err := adapter.GetByID(context.Background(), "scan-42")
	require.NoError(t, err)
	second, err := adapter.GetByID(context.Background(), "scan-42")
	require.NoError(t, err)

	assert.Equal(t, first.Record.DrugName, second.Record.DrugName)
	assert.Equal(t, database.DefaultScanResultTTL, cache.ttls["scan:scan-42"])
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestCachedScanResultAdapter_CacheFailuresFallBack(t *testing.T) {
	repo := new(MockScanResultRepository)
	cache := newMemoryCache()
	cache.getErr = errors.New("redis: connection refused")
	cache.setErr = errors.New("redis: connection refused")
	adapter := database.NewCachedScanResultAdapter(repo, cache, 0, nil)
	repo.On("GetByID", mock.Anything, "scan-42").Return(sampleScan(), nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(nil)

	got, err := adapter.GetByID(context.Background(), "scan-42")
	require.NoError(t, err)
	assert.Equal(t, "Advil", got.Record.DrugName)
	assert.NoError(t, adapter.Save(context.Background(), sampleScan()))
}

func TestCachedScanResultAdapter_CorruptEntryIsRefetched(t *testing.T) {
	repo := new(MockScanResultRepository)
	cache := newMemoryCache()
	cache.items["scan:scan-42"] = []byte("{not json")
	adapter := database.NewCachedScanResultAdapter(repo, cache, 0, nil)
	repo.On("GetByID", mock.Anything, "scan-42").Return(sampleScan(), nil)

	got, err := adapter.GetByID(context.Background(), "scan-42")

	require.NoError(t, err)
	assert.Equal(t, "Advil", got.Record.DrugName)
	assert.NotEqual(t, "{not json", string(cache.items["scan:scan-42"]))
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestCachedScanResultAdapter_NotFoundPassesThrough(t *testing.T) {
	repo := new(MockScanResultRepository)
	adapter := database.NewCachedScanResultAdapter(repo, newMemoryCache(), 0, nil)
	repo.On("GetByID", mock.Anything, "nope").Return(nil, apperrors.NewNotFoundError("scan nope not found"))

	_, err := adapter.GetByID(context.Background(), "nope")

	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}
