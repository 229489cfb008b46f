package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"water-quality-api/services"

	"github.com/gin-gonic/gin"
)

// StatusClientClosedRequest is nginx's non-standard status for a client that
// went away before the response was written.
const StatusClientClosedRequest = 499

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case services.KindStore:
		return http.StatusBadGateway
	case services.KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := statusFor(kind)
	body := gin.H{"error": services.PublicMessage(err), "kind": kind}

	var ve *services.ValidationError
	if errors.As(err, &ve) {
		body["fields"] = ve.Fields
	}
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}
