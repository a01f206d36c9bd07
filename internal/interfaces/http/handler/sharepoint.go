package handler

import (
	"context"
	"net/http"
	"strconv"

	spapp "github.com/erp/sharepointsync/internal/application/sharepoint"
	"github.com/erp/sharepointsync/internal/domain/sharepoint"
	"github.com/erp/sharepointsync/internal/interfaces/http/dto"
	"github.com/erp/sharepointsync/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Scanner runs one reconciliation pass
type Scanner interface {
	Scan(ctx context.Context, trigger sharepoint.ScanTrigger) (*spapp.ScanResult, error)
}

// Importer turns a pending item into an operation
type Importer interface {
	ImportItem(ctx context.Context, id uuid.UUID, actor sharepoint.Actor) (*spapp.ImportResult, error)
}

// PendingItems reads and ignores pending items
type PendingItems interface {
	ListPending(ctx context.Context, query spapp.ListPendingQuery) ([]spapp.PendingItemResponse, error)
	GetPendingItem(ctx context.Context, id uuid.UUID) (*spapp.PendingItemResponse, error)
	IgnoreItem(ctx context.Context, id uuid.UUID, actor sharepoint.Actor) (*sharepoint.PendingItem, error)
	ListScanRuns(ctx context.Context, limit int) ([]spapp.ScanRunResponse, error)
}

// SharePointHandler serves the sync endpoints
type SharePointHandler struct {
	BaseHandler
	scanner  Scanner
	importer Importer
	items    PendingItems
}

// NewSharePointHandler creates a new SharePointHandler
func NewSharePointHandler(scanner Scanner, importer Importer, items PendingItems) *SharePointHandler {
	return &SharePointHandler{
		scanner:  scanner,
		importer: importer,
		items:    items,
	}
}

// Scan godoc
// @ID           scanSharePoint
// @Summary      Scan the document library
// @Description  Lists the root folder and records every folder not seen before as pending
// @Tags         sharepoint
// @Produce      json
// @Success      200 {object} ScanResponse
// @Failure      409 {object} ErrorResponse "Another scan is running"
// @Failure      503 {object} ErrorResponse "Folder source unreachable"
// @Failure      500 {object} ErrorResponse
// @Router       /sharepoint/scan [get]
func (h *SharePointHandler) Scan(c *gin.Context) {
	result, err := h.scanner.Scan(c.Request.Context(), sharepoint.TriggerManual)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListPending godoc
// @ID           listSharePointPending
// @Summary      List pending items
// @Description  Lists detected folders, newest first, optionally filtered by status
// @Tags         sharepoint
// @Produce      json
// @Param        status query string false "pending, imported or ignored"
// @Param        limit  query int    false "Maximum rows (default 100, max 500)"
// @Success      200 {object} PendingItemListResponse
// @Failure      400 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /sharepoint/pending [get]
func (h *SharePointHandler) ListPending(c *gin.Context) {
	var query spapp.ListPendingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	items, err := h.items.ListPending(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse[[]spapp.PendingItemResponse]{Data: items})
}

// GetPending godoc
// @ID           getSharePointPending
// @Summary      Get a pending item
// @Tags         sharepoint
// @Produce      json
// @Param        id path string true "Pending item ID" format(uuid)
// @Success      200 {object} PendingItemDetailResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /sharepoint/pending/{id} [get]
func (h *SharePointHandler) GetPending(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "Invalid pending item ID")
		return
	}

	item, err := h.items.GetPendingItem(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse[*spapp.PendingItemResponse]{Data: item})
}

// Import godoc
// @ID           importSharePointPending
// @Summary      Import a pending item
// @Description  Creates an operation with its documents and invoices and marks the item imported, atomically
// @Tags         sharepoint
// @Produce      json
// @Param        id          path   string true  "Pending item ID" format(uuid)
// @Param        X-User-ID   header string true  "Acting user ID" format(uuid)
// @Param        X-User-Name header string false "Acting user display name"
// @Success      200 {object} ImportResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already imported or ignored"
// @Failure      502 {object} ErrorResponse "Record creation failed, item left pending"
// @Router       /sharepoint/pending/{id}/import [post]
func (h *SharePointHandler) Import(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "Invalid pending item ID")
		return
	}
	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, "A valid X-User-ID header is required")
		return
	}

	result, err := h.importer.ImportItem(c.Request.Context(), id, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Ignore godoc
// @ID           ignoreSharePointPending
// @Summary      Ignore a pending item
// @Tags         sharepoint
// @Produce      json
// @Param        id          path   string true  "Pending item ID" format(uuid)
// @Param        X-User-ID   header string true  "Acting user ID" format(uuid)
// @Success      200 {object} EmptyResponse
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse "Already imported or ignored"
// @Router       /sharepoint/pending/{id}/ignore [post]
func (h *SharePointHandler) Ignore(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		h.BadRequest(c, "Invalid pending item ID")
		return
	}
	actor, err := getActor(c)
	if err != nil {
		h.BadRequest(c, "A valid X-User-ID header is required")
		return
	}

	if _, err := h.items.IgnoreItem(c.Request.Context(), id, actor); err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, EmptyResponse{})
}

// ListScans godoc
// @ID           listSharePointScans
// @Summary      List recent scans
// @Tags         sharepoint
// @Produce      json
// @Param        limit query int false "Maximum rows (default 20)"
// @Success      200 {object} ScanRunListResponse
// @Failure      500 {object} ErrorResponse
// @Router       /sharepoint/scans [get]
func (h *SharePointHandler) ListScans(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := h.items.ListScanRuns(c.Request.Context(), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse[[]spapp.ScanRunResponse]{Data: runs})
}
