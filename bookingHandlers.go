package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/utils"
)

// defaultAvailabilityDays is the window returned when "to" is omitted.
const defaultAvailabilityDays = 7

// availabilityHandler serves GET /services/:id/availability?from=YYYY-MM-DD&to=YYYY-MM-DD.
func availabilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		serviceId, err := strconv.Atoi(c.Param("id"))
		if err != nil || serviceId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid service id"})
			return
		}
		loc := config.ShopLocation()

		from := utils.ConvertToLocalTime(time.Now(), loc)
		from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, loc)
		if v := c.Query("from"); v != "" {
			if from, err = utils.ParseDate(v, loc); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
				return
			}
		}
		to := from.AddDate(0, 0, defaultAvailabilityDays-1)
		if v := c.Query("to"); v != "" {
			if to, err = utils.ParseDate(v, loc); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
				return
			}
		}

		days, err := models.GetAvailableSlots(c.Request.Context(), config.GetDB(), serviceId, from, to, config.BookingSlotGranularity(), loc)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrServiceNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, models.ErrInvalidDateRange):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.Error(err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute availability"})
			}
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"service_id": serviceId,
			"timezone":   loc.String(),
			"days":       days,
		})
	}
}
