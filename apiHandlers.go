package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/invoice_audit/config"
	"github.com/mmdatafocus/invoice_audit/middlewares"
	"github.com/mmdatafocus/invoice_audit/models"
	"github.com/mmdatafocus/invoice_audit/utils"
	"github.com/mmdatafocus/invoice_audit/workflow"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type consolidationTaskRequest struct {
	At *time.Time `json:"at"`
}

func (s *server) healthHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"redis":    s.redis != nil,
			"database": s.db != nil,
		})
	}
}

// consolidationTaskHandler runs the daily consolidation on demand, typically from
// Cloud Scheduler. An optional {"at": RFC3339} body replays the window ending then.
func (s *server) consolidationTaskHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req consolidationTaskRequest
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := utils.UnmarshalFromJSON(body, &req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		ctx := utils.SetTriggerInContext(c.Request.Context(), string(models.RunTriggerTask))
		if claim := middlewares.CtxValue(ctx); claim != nil {
			s.logger.WithField("caller", claim.Caller).Info("consolidation requested")
		}
		var outcome *workflow.ConsolidationOutcome
		if req.At != nil {
			outcome, err = s.consolidator.RunAt(ctx, *req.At, models.RunTriggerTask)
		} else {
			outcome, err = s.consolidator.Run(ctx, models.RunTriggerTask)
		}
		if err != nil {
			kind := utils.ErrorKindOf(err)
			status := http.StatusInternalServerError
			if kind == utils.ErrorKindBusy {
				status = http.StatusConflict
			} else {
				config.LogError(s.logger, "apiHandlers.go", "consolidationTaskHandler", "Running consolidation", req.At, err)
			}
			c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
			return
		}
		c.JSON(http.StatusOK, outcome)
	}
}

// resultsHandler lists indexed reconciliation results for one calendar day in the
// audit timezone. ?status=OK|Anomaly narrows the list.
func (s *server) resultsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit database not configured"})
			return
		}

		day := c.Query("date")
		if day == "" {
			day = workflow.SummaryDate(time.Now(), s.cfg.Location)
		}
		from, err := time.ParseInLocation(dateLayout, day, s.cfg.Location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}

		filter := models.ResultFilter{From: from, To: from.AddDate(0, 0, 1)}
		if raw := c.Query("status"); raw != "" {
			status, err := models.ParseAuditStatus(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			filter.Status = status
		}

		results, err := models.ListReconciliationResults(c.Request.Context(), s.db, filter)
		if err != nil {
			config.LogError(s.logger, "apiHandlers.go", "resultsHandler", "Listing results", day, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list results"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"date": day, "count": len(results), "results": results})
	}
}

// runHandler reports the latest consolidation run recorded for a summary date.
func (s *server) runHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit database not configured"})
			return
		}
		day := c.Param("date")
		if _, err := time.Parse(dateLayout, day); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		run, err := models.LatestConsolidationRun(c.Request.Context(), s.db, day)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no consolidation run for " + day})
				return
			}
			config.LogError(s.logger, "apiHandlers.go", "runHandler", "Loading consolidation run", day, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run"})
			return
		}
		c.JSON(http.StatusOK, run)
	}
}

func (s *server) summaryDownloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		day := c.Param("date")
		at, err := time.ParseInLocation(dateLayout, day, s.cfg.Location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		name := workflow.SummaryName(at, s.cfg.Location)

		data, err := s.store.Download(c.Request.Context(), s.cfg.SummaryBucket, name)
		if err != nil {
			if errors.Is(err, utils.ErrorObjectNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no summary for " + day})
				return
			}
			config.LogError(s.logger, "apiHandlers.go", "summaryDownloadHandler", "Downloading summary", name, err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to read summary"})
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
		c.Data(http.StatusOK, utils.ContentTypeXLSX, data)
	}
}
