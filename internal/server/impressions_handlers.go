package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/buildings/backend/internal/impressions"
	"github.com/gin-gonic/gin"
)

var createImpressionMessages = failureMessages{
	notFound: "Building not found",
	invalid:  "Invalid impression",
	conflict: "Impression already exists",
	failed:   "Failed to create impression",
}

// invalidImpressionMessage names the rejected field when validation can tell which one failed.
func invalidImpressionMessage(err error) string {
	switch {
	case errors.Is(err, impressions.ErrMissingContent):
		return "Content is required"
	case errors.Is(err, impressions.ErrInvalidMoods):
		return "Invalid moods"
	default:
		return createImpressionMessages.invalid
	}
}

type createImpressionPayload struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Moods      []string `json:"moods"`
	Photos     []string `json:"photos"`
	Hyperlinks []string `json:"hyperlinks"`
}

func (h *httpHandler) handleListImpressions(c *gin.Context) {
	records, err := h.impressions.ListForBuilding(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err, failureMessages{
			invalid: "Invalid building id",
			failed:  "Failed to fetch impressions",
		})
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *httpHandler) handleCreateImpression(c *gin.Context) {
	var payload createImpressionPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	impression, err := h.impressions.Create(c.Request.Context(), impressions.CreateRequest{
		ID:         payload.ID,
		BuildingID: c.Param("id"),
		Content:    payload.Content,
		Moods:      payload.Moods,
		Photos:     payload.Photos,
		Hyperlinks: payload.Hyperlinks,
	})
	if err != nil {
		messages := createImpressionMessages
		messages.invalid = invalidImpressionMessage(err)
		h.respondError(c, err, messages)
		return
	}

	h.publish(RealtimeEventImpressionCreated, impression.BuildingID, impression.ID)
	c.JSON(http.StatusCreated, impression)
}
