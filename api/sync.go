package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skyops/emptylegs/internal/domain"
	syncsvc "github.com/skyops/emptylegs/internal/service/sync"
)

// Reconciler is the sync use case as seen from the HTTP layer.
type Reconciler interface {
	Run(ctx context.Context, input syncsvc.RunInput) (*syncsvc.RunResult, error)
	History(ctx context.Context, limit int) ([]domain.SyncRun, error)
}

type SyncHandler struct {
	reconciler Reconciler
}

type runRequest struct {
	SyncType    string `json:"sync_type"`
	TriggeredBy string `json:"triggered_by"`
}

type syncRunResponse struct {
	ID           int64    `json:"id"`
	Status       string   `json:"status"`
	SyncType     string   `json:"sync_type"`
	TriggeredBy  string   `json:"triggered_by"`
	DealsFound   int      `json:"deals_found"`
	DealsCreated int      `json:"deals_created"`
	DealsUpdated int      `json:"deals_updated"`
	DealsRemoved int      `json:"deals_removed"`
	Errors       []string `json:"errors"`
	StartedAt    string   `json:"started_at"`
	CompletedAt  string   `json:"completed_at,omitempty"`
}

func NewSyncHandler(reconciler Reconciler) *SyncHandler {
	return &SyncHandler{reconciler: reconciler}
}

func (h *SyncHandler) Register(router *gin.RouterGroup) {
	router.POST("/runs", h.run)
	router.GET("/runs", h.history)
}

func (h *SyncHandler) run(c *gin.Context) {
	var req runRequest
	_ = c.ShouldBindJSON(&req)

	syncType := domain.SyncTypeManual
	if req.SyncType == string(domain.SyncTypeScheduled) {
		syncType = domain.SyncTypeScheduled
	}

	result, err := h.reconciler.Run(c.Request.Context(), syncsvc.RunInput{
		SyncType:    syncType,
		TriggeredBy: req.TriggeredBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *SyncHandler) history(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	runs, err := h.reconciler.History(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]syncRunResponse, 0, len(runs))
	for i := range runs {
		resp = append(resp, toSyncRunResponse(&runs[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func toSyncRunResponse(sr *domain.SyncRun) syncRunResponse {
	resp := syncRunResponse{
		ID:           sr.ID,
		Status:       string(sr.Status),
		SyncType:     string(sr.SyncType),
		TriggeredBy:  sr.TriggeredBy,
		DealsFound:   sr.DealsFound,
		DealsCreated: sr.DealsCreated,
		DealsUpdated: sr.DealsUpdated,
		DealsRemoved: sr.DealsRemoved,
		Errors:       sr.Errors,
		StartedAt:    sr.StartedAt.Format(time.RFC3339),
	}
	if sr.CompletedAt != nil {
		resp.CompletedAt = sr.CompletedAt.Format(time.RFC3339)
	}
	return resp
}
