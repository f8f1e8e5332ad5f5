package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skyops/emptylegs/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockDealUseCase struct {
	mock.Mock
}

func (m *MockDealUseCase) List(ctx context.Context) ([]domain.Deal, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Deal), args.Error(1)
}

func (m *MockDealUseCase) GetBySlug(ctx context.Context, slug string) (*domain.Deal, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Deal), args.Error(1)
}

func (m *MockDealUseCase) ExpireDeparted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestDealHandler_list(t *testing.T) {
	mockService := &MockDealUseCase{}
	handler := NewDealHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/deals", nil)

	external := "EXT-1"
	deals := []domain.Deal{{
		ID:             1,
		ExternalID:     &external,
		Slug:           "vny-teb-ext-1",
		FromLocation:   "VNY",
		ToLocation:     "TEB",
		DepartureTime:  time.Date(2026, 9, 10, 15, 0, 0, 0, time.UTC),
		TotalSeats:     10,
		AvailableSeats: 6,
		Source:         domain.DealSourceProvider,
		Status:         domain.DealStatusPublished,
	}}

	mockService.On("List", c.Request.Context()).Return(deals, nil)

	handler.list(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response []dealResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Len(t, response, 1)
	assert.Equal(t, "vny-teb-ext-1", response[0].Slug)
	assert.Equal(t, "PROVIDER", response[0].Source)

	mockService.AssertExpectations(t)
}

func TestDealHandler_get_NotFound(t *testing.T) {
	mockService := &MockDealUseCase{}
	handler := NewDealHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "slug", Value: "missing"}}
	c.Request = httptest.NewRequest("GET", "/deals/missing", nil)

	mockService.On("GetBySlug", c.Request.Context(), "missing").Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockService.AssertExpectations(t)
}

func TestDealHandler_sweep(t *testing.T) {
	mockService := &MockDealUseCase{}
	handler := NewDealHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/deals/sweep", nil)

	mockService.On("ExpireDeparted", c.Request.Context()).Return(int64(4), nil)

	handler.sweep(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]int64
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, int64(4), response["expired_count"])

	mockService.AssertExpectations(t)
}
