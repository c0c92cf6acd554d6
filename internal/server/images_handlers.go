package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	uploadOutcomeStored   = "stored"
	uploadOutcomeRejected = "rejected"
	uploadOutcomeFailed   = "failed"
	imagePayloadMediaType = "text/plain; charset=utf-8"
)

var (
	uploadImageMessages = failureMessages{
		invalid: "Invalid image data",
		failed:  "Failed to upload image",
	}
	getImageMessages = failureMessages{
		notFound: "Image not found",
		invalid:  "Invalid filename",
		failed:   "Failed to fetch image",
	}
	deleteImageMessages = failureMessages{
		invalid: "Invalid filename",
		failed:  "Failed to delete image",
	}
)

type uploadImagePayload struct {
	ImageData string `json:"imageData"`
}

type deleteImagePayload struct {
	Filename string `json:"filename"`
}

func (h *httpHandler) handleUploadImage(c *gin.Context) {
	if h.uploadMaxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadMaxBytes+uploadEnvelopeBytes)
	}

	var payload uploadImagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.recordUpload(uploadOutcomeRejected)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
			return
		}
		h.metrics.recordUpload(uploadOutcomeRejected)
		badRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(payload.ImageData) == "" {
		h.metrics.recordUpload(uploadOutcomeRejected)
		badRequest(c, "No image data provided")
		return
	}

	filename, err := h.images.Upload(c.Request.Context(), payload.ImageData)
	if err != nil {
		if classifyError(err) >= http.StatusInternalServerError {
			h.metrics.recordUpload(uploadOutcomeFailed)
		} else {
			h.metrics.recordUpload(uploadOutcomeRejected)
		}
		h.respondError(c, err, uploadImageMessages)
		return
	}

	h.metrics.recordUpload(uploadOutcomeStored)
	c.JSON(http.StatusOK, gin.H{"filename": filename})
}

func (h *httpHandler) handleGetImage(c *gin.Context) {
	payload, err := h.images.Fetch(c.Request.Context(), c.Param("filename"))
	if err != nil {
		h.respondError(c, err, getImageMessages)
		return
	}
	c.Data(http.StatusOK, imagePayloadMediaType, payload)
}

// handleDeleteImage takes the filename from the query string or a JSON body.
func (h *httpHandler) handleDeleteImage(c *gin.Context) {
	filename := strings.TrimSpace(c.Query("filename"))
	if filename == "" {
		var payload deleteImagePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			badRequest(c, "Filename is required")
			return
		}
		filename = strings.TrimSpace(payload.Filename)
	}
	if filename == "" {
		badRequest(c, "Filename is required")
		return
	}

	if err := h.images.Delete(c.Request.Context(), filename); err != nil {
		h.respondError(c, err, deleteImageMessages)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": filename})
}
