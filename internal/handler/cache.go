package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/dharmasatrya/faresearch/internal/jobs"
	"github.com/dharmasatrya/faresearch/internal/models"
)

// InvalidationQueue is implemented by *jobs.Enqueuer.
type InvalidationQueue interface {
	EnqueueInvalidate(ctx context.Context, p jobs.InvalidatePayload) (string, error)
}

type CacheHandler struct {
	invalidator jobs.Invalidator
	queue       InvalidationQueue
}

// NewCacheHandler runs invalidations inline unless queue is non-nil.
func NewCacheHandler(invalidator jobs.Invalidator, queue InvalidationQueue) *CacheHandler {
	return &CacheHandler{
		invalidator: invalidator,
		queue:       queue,
	}
}

type invalidateResponse struct {
	Resource string `json:"resource"`
	Queued   bool   `json:"queued"`
	TaskID   string `json:"task_id,omitempty"`
	Deleted  int    `json:"deleted"`
}

func (h *CacheHandler) Invalidate(c echo.Context) error {
	ctx := c.Request().Context()

	var req jobs.InvalidatePayload
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to parse request body: " + err.Error(),
			Code:    http.StatusBadRequest,
		})
	}

	req.Resource = strings.TrimSpace(req.Resource)
	if req.Resource == "" {
		return c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "validation_error",
			Message: "resource is required",
			Code:    http.StatusBadRequest,
		})
	}

	if h.queue != nil {
		taskID, err := h.queue.EnqueueInvalidate(ctx, req)
		if err == nil {
			return c.JSON(http.StatusAccepted, invalidateResponse{
				Resource: req.Resource,
				Queued:   true,
				TaskID:   taskID,
			})
		}
		log.Warn().Err(err).Str("resource", req.Resource).Msg("enqueue failed, invalidating inline")
	}

	deleted, err := h.invalidator.Invalidate(ctx, req.Resource, req.Params)
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "cache_unavailable",
			Message: "Failed to invalidate cache: " + err.Error(),
			Code:    http.StatusServiceUnavailable,
		})
	}

	return c.JSON(http.StatusOK, invalidateResponse{
		Resource: req.Resource,
		Deleted:  deleted,
	})
}
