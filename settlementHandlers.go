package main

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stitchline/store_backend/config"
	"github.com/stitchline/store_backend/models"
	"github.com/stitchline/store_backend/models/reports"
	"github.com/stitchline/store_backend/utils"
	"github.com/stitchline/store_backend/workflow"
)

func orderIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return 0, false
	}
	return id, true
}

func completeOrderHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := orderIdParam(c)
		if !ok {
			return
		}
		result, err := workflow.CompleteOrderWithLock(c.Request.Context(), config.GetDB(), logger, orderId)
		if err != nil {
			switch {
			case errors.Is(err, models.ErrOrderNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			case errors.Is(err, models.ErrOrderAlreadyCompleted):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": models.ErrSettlementFailed.Error()})
			}
			return
		}
		ctx := c.Request.Context()
		userId, _ := utils.GetUserIdFromContext(ctx)
		role, _ := utils.GetRoleFromContext(ctx)
		cid, _ := utils.GetCorrelationIdFromContext(ctx)
		logger.WithFields(logrus.Fields{
			"field":          "settlement",
			"order_id":       orderId,
			"user_id":        userId,
			"role":           role,
			"correlation_id": cid,
			"distributions":  len(result.Distributions),
		}).Info("order settled")
		c.JSON(http.StatusOK, result)
	}
}

func orderDistributionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := orderIdParam(c)
		if !ok {
			return
		}
		report, err := reports.GetOrderDistributionReport(c.Request.Context(), orderId)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load distributions"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

func exportDistributionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := orderIdParam(c)
		if !ok {
			return
		}
		f, err := reports.ExportOrderDistributions(c.Request.Context(), orderId)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export distributions"})
			return
		}
		defer f.Close()

		c.Header("Content-Type", utils.XlsxContentType)
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="order-%d-distributions.xlsx"`, orderId))
		c.Status(http.StatusOK)
		if err := f.Write(c.Writer); err != nil {
			c.Error(err)
		}
	}
}

func archiveDistributionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderId, ok := orderIdParam(c)
		if !ok {
			return
		}
		objectName, err := reports.ArchiveOrderDistributions(c.Request.Context(), orderId)
		if err != nil {
			if errors.Is(err, models.ErrOrderNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to archive distributions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"object_name": objectName})
	}
}

func reconcileHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cid, issues, err := workflow.RunAllocationReconciliation(c.Request.Context(), config.GetDB(), logger)
		if err != nil {
			c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
			return
		}
		if issues == nil {
			issues = []models.ReconciliationReport{}
		}
		c.JSON(http.StatusOK, gin.H{
			"correlation_id": cid,
			"issues":         issues,
		})
	}
}

type outboxReplayRequest struct {
	RecordId int `json:"record_id"`
}

// outboxReplayHandler re-queues a FAILED/DEAD outbox message.
func outboxReplayHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req outboxReplayRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		if req.RecordId <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "record_id is required"})
			return
		}
		next, err := models.ReplayOutboxMessage(c.Request.Context(), config.GetDB(), req.RecordId)
		if err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no FAILED or DEAD outbox message with that id"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"record_id":       req.RecordId,
			"publish_status":  models.OutboxPublishStatusFailed,
			"next_attempt_at": next.Format(time.RFC3339Nano),
		})
	}
}
