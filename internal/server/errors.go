package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/buildings"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/images"
	"github.com/MarcoPoloResearchLab/buildings/backend/internal/impressions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// failureMessages holds the client-facing text per outcome of one endpoint.
type failureMessages struct {
	notFound string
	invalid  string
	conflict string
	failed   string
}

type codedError interface {
	Code() string
}

func classifyError(err error) int {
	switch {
	case errors.Is(err, buildings.ErrNotFound),
		errors.Is(err, impressions.ErrBuildingNotFound),
		errors.Is(err, images.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, buildings.ErrInvalidInput),
		errors.Is(err, impressions.ErrInvalidInput),
		errors.Is(err, images.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, buildings.ErrConflict),
		errors.Is(err, impressions.ErrConflict),
		errors.Is(err, buildings.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, images.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func (h *httpHandler) respondError(c *gin.Context, err error, messages failureMessages) {
	status := classifyError(err)
	message := messages.failed
	switch status {
	case http.StatusNotFound:
		message = messages.notFound
	case http.StatusBadRequest:
		message = messages.invalid
	case http.StatusConflict:
		message = messages.conflict
	case http.StatusRequestEntityTooLarge:
		message = "Payload too large"
	}
	if message == "" {
		message = messages.failed
	}

	body := gin.H{"error": message}
	var coded codedError
	if errors.As(err, &coded) {
		body["code"] = coded.Code()
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(messages.failed, zap.String("route", c.FullPath()), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("route", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
