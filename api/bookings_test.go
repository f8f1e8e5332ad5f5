package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockBookingUseCase is a mock implementation of booking.BookingUseCase
type MockBookingUseCase struct {
	mock.Mock
}

func (m *MockBookingUseCase) CreateBooking(ctx context.Context, input booking.CreateBookingInput) (*domain.Booking, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) GetBooking(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Approve(ctx context.Context, id int64, actor string) (*domain.Booking, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) Reject(ctx context.Context, id int64, reason domain.RejectionReason, note string, noteVisible bool, actor string) (*domain.Booking, error) {
	args := m.Called(ctx, id, reason, note, noteVisible, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ConfirmPayment(ctx context.Context, id int64, actor string, override bool) (*domain.Booking, error) {
	args := m.Called(ctx, id, actor, override)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) AttachEvidence(ctx context.Context, id int64, mediaRef, rawText string) error {
	args := m.Called(ctx, id, mediaRef, rawText)
	return args.Error(0)
}

func (m *MockBookingUseCase) ExpireIfOverdue(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ExpireOverdueBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingUseCase) ResolveInboundEvidence(ctx context.Context, contactPhone, mediaRef, rawText string) error {
	args := m.Called(ctx, contactPhone, mediaRef, rawText)
	return args.Error(0)
}

func TestBookingHandler_create(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	input := booking.CreateBookingInput{
		DealID:         7,
		RequestedSeats: 2,
		ContactName:    "Dana",
		ContactPhone:   "+15550001111",
	}
	body, _ := json.Marshal(input)
	c.Request = httptest.NewRequest("POST", "/bookings", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	created := &domain.Booking{
		ID:             1,
		Reference:      "BK-abc12345",
		DealID:         7,
		RequestedSeats: 2,
		Status:         domain.BookingStatusPending,
		ContactPhone:   "+15550001111",
	}

	mockService.On("CreateBooking", c.Request.Context(), input).Return(created, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "BK-abc12345", response.Reference)
	assert.Equal(t, string(domain.BookingStatusPending), response.Status)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_approve(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "11"}}
	body, _ := json.Marshal(actorRequest{Actor: "admin-1"})
	c.Request = httptest.NewRequest("POST", "/bookings/11/approve", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	approved := &domain.Booking{
		ID:        11,
		Reference: "BK-abc12345",
		Status:    domain.BookingStatusApproved,
	}

	mockService.On("Approve", c.Request.Context(), int64(11), "admin-1").Return(approved, nil)

	handler.approve(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, string(domain.BookingStatusApproved), response.Status)

	mockService.AssertExpectations(t)
}

// A capacity conflict must come back as 409, clearly distinguishable from a
// validation failure.
func TestBookingHandler_approve_CapacityConflict(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "11"}}
	c.Request = httptest.NewRequest("POST", "/bookings/11/approve", nil)

	mockService.On("Approve", c.Request.Context(), int64(11), "").Return(nil, domain.ErrInsufficientSeats)

	handler.approve(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_reject(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "11"}}
	body, _ := json.Marshal(rejectRequest{Reason: "SOLD_OUT", Actor: "admin-1"})
	c.Request = httptest.NewRequest("POST", "/bookings/11/reject", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	reason := domain.RejectionSoldOut
	rejected := &domain.Booking{
		ID:              11,
		Reference:       "BK-abc12345",
		Status:          domain.BookingStatusRejected,
		RejectionReason: &reason,
	}

	mockService.On("Reject", c.Request.Context(), int64(11), domain.RejectionSoldOut, "", false, "admin-1").Return(rejected, nil)

	handler.reject(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "SOLD_OUT", response.RejectionReason)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_confirmPayment(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "11"}}
	body, _ := json.Marshal(actorRequest{Actor: "admin-1"})
	c.Request = httptest.NewRequest("POST", "/bookings/11/confirm-payment", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	paid := &domain.Booking{
		ID:           11,
		Reference:    "BK-abc12345",
		Status:       domain.BookingStatusPaid,
		TicketNumber: "EL202600042",
	}

	mockService.On("ConfirmPayment", c.Request.Context(), int64(11), "admin-1", false).Return(paid, nil)

	handler.confirmPayment(c)

	assert.Equal(t, http.StatusOK, w.Code)

	var response bookingResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "EL202600042", response.TicketNumber)

	mockService.AssertExpectations(t)
}

func TestBookingHandler_attachEvidence(t *testing.T) {
	mockService := &MockBookingUseCase{}
	handler := NewBookingHandler(mockService)

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "11"}}
	body, _ := json.Marshal(evidenceRequest{MediaRef: "media/receipt.jpg", RawText: "paid"})
	c.Request = httptest.NewRequest("POST", "/bookings/11/evidence", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	mockService.On("AttachEvidence", c.Request.Context(), int64(11), "media/receipt.jpg", "paid").Return(nil)

	handler.attachEvidence(c)

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockService.AssertExpectations(t)
}

func TestBookingHandler_invalidID(t *testing.T) {
	handler := NewBookingHandler(&MockBookingUseCase{})

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	c.Params = gin.Params{{Key: "id", Value: "not-a-number"}}
	c.Request = httptest.NewRequest("GET", "/bookings/not-a-number", nil)

	handler.get(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
