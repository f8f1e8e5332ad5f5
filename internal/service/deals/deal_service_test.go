package deals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDealRepository struct {
	mock.Mock
}

func (m *MockDealRepository) ListLive(ctx context.Context) ([]domain.Deal, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Deal), args.Error(1)
}

func (m *MockDealRepository) GetBySlug(ctx context.Context, slug string) (*domain.Deal, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deal), args.Error(1)
}

func (m *MockDealRepository) GetByID(ctx context.Context, id int64) (*domain.Deal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deal), args.Error(1)
}

func (m *MockDealRepository) UpsertProvider(ctx context.Context, deal *domain.Deal) (repository.UpsertOutcome, error) {
	args := m.Called(ctx, deal)
	return args.Get(0).(repository.UpsertOutcome), args.Error(1)
}

func (m *MockDealRepository) DeleteProviderMissingFrom(ctx context.Context, externalIDs []string) (int64, error) {
	args := m.Called(ctx, externalIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDealRepository) ExpireDeparted(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetDeals(ctx context.Context) ([]domain.Deal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Deal), args.Error(1)
}

func (m *MockCache) SetDeals(ctx context.Context, deals []domain.Deal) error {
	args := m.Called(ctx, deals)
	return args.Error(0)
}

func (m *MockCache) InvalidateDeals(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestDealService_List_CacheHit(t *testing.T) {
	repo := &MockDealRepository{}
	cache := &MockCache{}
	service := NewDealService(repo, cache)

	cached := []domain.Deal{{ID: 1, Slug: "vny-teb-x"}}

	ctx := context.Background()
	cache.On("GetDeals", ctx).Return(cached, nil).Once()

	got, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, cached, got)
	repo.AssertNotCalled(t, "ListLive", mock.Anything)
}

func TestDealService_List_CacheMiss(t *testing.T) {
	repo := &MockDealRepository{}
	cache := &MockCache{}
	service := NewDealService(repo, cache)

	fresh := []domain.Deal{{ID: 1, Slug: "vny-teb-x"}}

	ctx := context.Background()
	cache.On("GetDeals", ctx).Return(nil, nil).Once()
	repo.On("ListLive", ctx).Return(fresh, nil).Once()
	cache.On("SetDeals", ctx, fresh).Return(nil).Once()

	got, err := service.List(ctx)

	assert.NoError(t, err)
	assert.Equal(t, fresh, got)
	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestDealService_ExpireDeparted(t *testing.T) {
	repo := &MockDealRepository{}
	cache := &MockCache{}
	service := NewDealService(repo, cache)

	ctx := context.Background()
	repo.On("ExpireDeparted", ctx, mock.AnythingOfType("time.Time")).Return(int64(3), nil).Once()
	cache.On("InvalidateDeals", ctx).Return(nil).Once()

	count, err := service.ExpireDeparted(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
	cache.AssertExpectations(t)
}

// A sweep that retires nothing keeps the cache warm. Safe to run arbitrarily
// often.
func TestDealService_ExpireDeparted_NothingToExpire(t *testing.T) {
	repo := &MockDealRepository{}
	cache := &MockCache{}
	service := NewDealService(repo, cache)

	ctx := context.Background()
	repo.On("ExpireDeparted", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), nil).Once()

	count, err := service.ExpireDeparted(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
	cache.AssertNotCalled(t, "InvalidateDeals", mock.Anything)
}

func TestDealService_ExpireDeparted_Error(t *testing.T) {
	repo := &MockDealRepository{}
	service := NewDealService(repo, &MockCache{})

	ctx := context.Background()
	repo.On("ExpireDeparted", ctx, mock.AnythingOfType("time.Time")).Return(int64(0), errors.New("db down")).Once()

	_, err := service.ExpireDeparted(ctx)
	assert.Error(t, err)
}
