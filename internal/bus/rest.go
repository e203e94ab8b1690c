package bus

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pausewise/pausewise/internal/common"
	"github.com/pausewise/pausewise/internal/model"
	"github.com/pausewise/pausewise/internal/service"
)

// PostDetection is the plain-JSON counterpart to the purchase_detected
// message, for pages that cannot hold a socket open.
func PostDetection(coordinator service.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload PurchaseDetectedPayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		decision, err := coordinator.HandleDetection(c.Request.Context(), model.DetectionEvent{
			Product:         payload.Product,
			Site:            payload.Site,
			ConfidenceScore: payload.Confidence,
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, decision)
	}
}

// PostOutcome is the plain-JSON counterpart to the purchase_outcome message.
func PostOutcome(coordinator service.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload PurchaseOutcomePayload
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
			return
		}

		result, err := coordinator.ResolveOutcome(c.Request.Context(), payload.EventID, payload.Outcome, payload.ReflectionTimeSeconds)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, result)
		case isUserErr(err):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}

func isUserErr(err error) bool {
	_, ok := common.AsUserError(err)
	return ok
}
