package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/service/booking"
)

type BookingHandler struct {
	service booking.BookingUseCase
}

type createBookingRequest struct {
	DealID         int64  `json:"deal_id"`
	RequestedSeats int    `json:"requested_seats"`
	ContactName    string `json:"contact_name"`
	ContactPhone   string `json:"contact_phone"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
	Note   string `json:"note"`
	// NoteVisible includes the note in the client-facing rejection message
	// for any reason, not only OTHER.
	NoteVisible bool   `json:"note_visible"`
	Actor       string `json:"actor"`
}

type actorRequest struct {
	Actor    string `json:"actor"`
	Override bool   `json:"override"`
}

type evidenceRequest struct {
	MediaRef string `json:"media_ref"`
	RawText  string `json:"raw_text"`
}

type bookingResponse struct {
	ID              int64  `json:"id"`
	Reference       string `json:"reference"`
	DealID          int64  `json:"deal_id"`
	RequestedSeats  int    `json:"requested_seats"`
	ContactName     string `json:"contact_name"`
	ContactPhone    string `json:"contact_phone"`
	Status          string `json:"status"`
	PaymentDeadline string `json:"payment_deadline,omitempty"`
	PaymentLink     string `json:"payment_link,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	RejectionNote   string `json:"rejection_note,omitempty"`
	TicketNumber    string `json:"ticket_number,omitempty"`
	ReviewFlag      bool   `json:"review_flag"`
}

func NewBookingHandler(service booking.BookingUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/", h.create)
	router.GET("/:id", h.get)
	router.POST("/:id/approve", h.approve)
	router.POST("/:id/reject", h.reject)
	router.POST("/:id/confirm-payment", h.confirmPayment)
	router.POST("/:id/evidence", h.attachEvidence)
	router.POST("/:id/expire", h.expire)
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.CreateBooking(c.Request.Context(), booking.CreateBookingInput{
		DealID:         req.DealID,
		RequestedSeats: req.RequestedSeats,
		ContactName:    req.ContactName,
		ContactPhone:   req.ContactPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toBookingResponse(created))
}

func (h *BookingHandler) get(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(b))
}

func (h *BookingHandler) approve(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req actorRequest
	_ = c.ShouldBindJSON(&req)

	updated, err := h.service.Approve(c.Request.Context(), id, req.Actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) reject(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Reject(c.Request.Context(), id, domain.RejectionReason(req.Reason), req.Note, req.NoteVisible, req.Actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) confirmPayment(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req actorRequest
	_ = c.ShouldBindJSON(&req)

	updated, err := h.service.ConfirmPayment(c.Request.Context(), id, req.Actor, req.Override)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func (h *BookingHandler) attachEvidence(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req evidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.AttachEvidence(c.Request.Context(), id, req.MediaRef, req.RawText); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (h *BookingHandler) expire(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	updated, err := h.service.ExpireIfOverdue(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toBookingResponse(updated))
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	resp := bookingResponse{
		ID:             b.ID,
		Reference:      b.Reference,
		DealID:         b.DealID,
		RequestedSeats: b.RequestedSeats,
		ContactName:    b.ContactName,
		ContactPhone:   b.ContactPhone,
		Status:         string(b.Status),
		PaymentLink:    b.PaymentLink,
		RejectionNote:  b.RejectionNote,
		TicketNumber:   b.TicketNumber,
		ReviewFlag:     b.ReviewFlag,
	}
	if b.PaymentDeadline != nil {
		resp.PaymentDeadline = b.PaymentDeadline.Format(time.RFC3339)
	}
	if b.RejectionReason != nil {
		resp.RejectionReason = string(*b.RejectionReason)
	}
	return resp
}
