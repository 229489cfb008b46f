package handlers

import (
	"context"
	"net/http"

	"water-quality-api/models"
	"water-quality-api/services"

	"github.com/gin-gonic/gin"
)

type Ingester interface {
	Ingest(ctx context.Context, payload map[string]any) (*models.Reading, error)
}

type Querier interface {
	Latest(ctx context.Context) (*models.Reading, error)
	History(ctx context.Context, limit int) ([]models.Reading, error)
}

type ReadingsHandler struct {
	ingest Ingester
	query  Querier
}

func NewReadingsHandler(ingest Ingester, query Querier) *ReadingsHandler {
	return &ReadingsHandler{ingest: ingest, query: query}
}

type createResponse struct {
	Message     string        `json:"message"`
	FinalStatus models.Label  `json:"final_status"`
	MLLabel     *models.Label `json:"ml_label"`
}

// Create handles POST /readings.
func (h *ReadingsHandler) Create(c *gin.Context) {
	payload, err := services.DecodePayload(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}

	r, err := h.ingest.Ingest(c.Request.Context(), payload)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, createResponse{
		Message:     "Data stored successfully",
		FinalStatus: r.FinalStatus,
		MLLabel:     r.MLLabel,
	})
}

// GetLatest handles GET /readings/latest.
func (h *ReadingsHandler) GetLatest(c *gin.Context) {
	r, err := h.query.Latest(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// GetHistory handles GET /readings/history?limit=N.
func (h *ReadingsHandler) GetHistory(c *gin.Context) {
	rows, err := h.query.History(c.Request.Context(), ParseLimit(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if rows == nil {
		rows = []models.Reading{}
	}
	c.JSON(http.StatusOK, rows)
}
