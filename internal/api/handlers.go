// Package api exposes the enrichment trigger and status endpoints.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ContentEnricher/internal/domain"
	"ContentEnricher/internal/usecase"
)

// UserHeader carries the id of the user the request acts for.
const UserHeader = "X-User-ID"

// Triggerer resets an item to pending and submits it for enrichment.
type Triggerer interface {
	Retrigger(ctx context.Context, contentID, ownerID string, sync bool) (usecase.Outcome, bool, error)
}

// ContentReader loads a single record.
type ContentReader interface {
	Get(ctx context.Context, id string) (domain.ContentItem, error)
}

// ContentHandler serves /contents routes.
type ContentHandler struct {
	trigger Triggerer
	reader  ContentReader
	logger  *slog.Logger
}

// NewContentHandler builds the handler.
func NewContentHandler(trigger Triggerer, reader ContentReader, log *slog.Logger) *ContentHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &ContentHandler{trigger: trigger, reader: reader, logger: log}
}

type enrichResponse struct {
	ContentID string   `json:"content_id"`
	RunID     string   `json:"run_id,omitempty"`
	Status    string   `json:"status"`
	Queued    bool     `json:"queued"`
	Skipped   bool     `json:"skipped,omitempty"`
	Failed    []string `json:"failed_stages,omitempty"`
	Degraded  []string `json:"degraded_stages,omitempty"`
}

type statusResponse struct {
	ContentID   string    `json:"content_id"`
	Status      string    `json:"status"`
	ContentType string    `json:"content_type,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Enrich handles POST /contents/:id/enrich.
func (h *ContentHandler) Enrich(c *gin.Context) {
	owner, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")

	sync := false
	if raw := c.Query("sync"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sync must be a boolean"})
			return
		}
		sync = v
	}

	out, queued, err := h.trigger.Retrigger(c.Request.Context(), id, owner, sync)
	if err != nil {
		h.writeError(c, id, err)
		return
	}

	resp := enrichResponse{
		ContentID: id,
		RunID:     out.RunID,
		Status:    string(out.Status),
		Queued:    queued,
		Skipped:   out.Skipped,
	}
	for _, n := range out.Failed {
		resp.Failed = append(resp.Failed, string(n))
	}
	for _, n := range out.Degraded {
		resp.Degraded = append(resp.Degraded, string(n))
	}

	if queued {
		resp.Status = string(domain.StatusPending)
		c.JSON(http.StatusAccepted, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Status handles GET /contents/:id/status.
func (h *ContentHandler) Status(c *gin.Context) {
	owner, ok := requireUser(c)
	if !ok {
		return
	}
	id := c.Param("id")

	item, err := h.reader.Get(c.Request.Context(), id)
	if err == nil && item.UserID != owner {
		err = domain.ErrNotFound
	}
	if err != nil {
		h.writeError(c, id, err)
		return
	}

	c.JSON(http.StatusOK, statusResponse{
		ContentID:   item.ID,
		Status:      string(item.Status),
		ContentType: item.ContentType,
		UpdatedAt:   item.UpdatedAt,
	})
}

func requireUser(c *gin.Context) (string, bool) {
	owner := c.GetHeader(UserHeader)
	if owner == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": UserHeader + " header is required"})
		return "", false
	}
	return owner, true
}

func (h *ContentHandler) writeError(c *gin.Context, id string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "content not found"})
	case errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed", "content_id", id, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
