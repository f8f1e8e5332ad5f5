package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skyops/emptylegs/internal/domain"
	"github.com/skyops/emptylegs/internal/service/deals"
)

type DealHandler struct {
	service deals.DealUseCase
}

type dealResponse struct {
	Slug               string `json:"slug"`
	FromLocation       string `json:"from_location"`
	ToLocation         string `json:"to_location"`
	DepartureTime      string `json:"departure_time"`
	Aircraft           string `json:"aircraft"`
	TotalSeats         int    `json:"total_seats"`
	AvailableSeats     int    `json:"available_seats"`
	OriginalPriceCents int64  `json:"original_price_cents"`
	DiscountPriceCents int64  `json:"discount_price_cents"`
	Source             string `json:"source"`
	Status             string `json:"status"`
}

func NewDealHandler(service deals.DealUseCase) *DealHandler {
	return &DealHandler{service: service}
}

func (h *DealHandler) Register(router *gin.RouterGroup) {
	router.GET("/", h.list)
	router.GET("/:slug", h.get)
	router.POST("/sweep", h.sweep)
}

func (h *DealHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	resp := make([]dealResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toDealResponse(&list[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *DealHandler) get(c *gin.Context) {
	deal, err := h.service.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDealResponse(deal))
}

func (h *DealHandler) sweep(c *gin.Context) {
	count, err := h.service.ExpireDeparted(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"expired_count": count})
}

func toDealResponse(d *domain.Deal) dealResponse {
	return dealResponse{
		Slug:               d.Slug,
		FromLocation:       d.FromLocation,
		ToLocation:         d.ToLocation,
		DepartureTime:      d.DepartureTime.Format(time.RFC3339),
		Aircraft:           d.Aircraft,
		TotalSeats:         d.TotalSeats,
		AvailableSeats:     d.AvailableSeats,
		OriginalPriceCents: d.OriginalPriceCents,
		DiscountPriceCents: d.DiscountPriceCents,
		Source:             string(d.Source),
		Status:             string(d.Status),
	}
}
