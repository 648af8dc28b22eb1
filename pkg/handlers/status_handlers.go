package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"restockbot/internal/models"
	"restockbot/pkg/logger"
)

const (
	serviceName    = "restockbot"
	serviceVersion = "1.0.0"
)

// HealthCheck handles health check requests
func (h *HandlerService) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   serviceName,
		Version:   serviceVersion,
		Timestamp: time.Now().UTC(),
	})
}

// GetStatus returns the overall system status
func (h *HandlerService) GetStatus(c *gin.Context) {
	status := models.SystemStatus{
		Service:    serviceName,
		Version:    serviceVersion,
		Status:     "running",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:  time.Now().UTC(),
		Categories: len(h.config.Categories),
	}
	if h.scheduler != nil {
		status.Scheduler = h.scheduler.GetStatus()
	}

	c.JSON(http.StatusOK, status)
}

// GetTrackers returns the per-category tracker stats.
func (h *HandlerService) GetTrackers(c *gin.Context) {
	stats := h.registry.Snapshot()

	out := make([]models.TrackerStatus, 0, len(stats))
	for _, st := range stats {
		out = append(out, models.TrackerStatus{
			Name:          st.Name,
			Cycles:        st.Cycles,
			Failures:      st.Failures,
			NewItems:      st.NewItems,
			Matches:       st.Matches,
			LastCycle:     st.LastCycle,
			LastError:     st.LastError,
			SpeedupActive: st.SpeedupActive,
			Stopped:       st.Stopped,
		})
	}

	c.JSON(http.StatusOK, out)
}

// GetTracker returns one tracker's stats by category name.
func (h *HandlerService) GetTracker(c *gin.Context) {
	name := c.Param("name")
	for _, st := range h.registry.Snapshot() {
		if st.Name == name {
			c.JSON(http.StatusOK, models.TrackerStatus{
				Name:          st.Name,
				Cycles:        st.Cycles,
				Failures:      st.Failures,
				NewItems:      st.NewItems,
				Matches:       st.Matches,
				LastCycle:     st.LastCycle,
				LastError:     st.LastError,
				SpeedupActive: st.SpeedupActive,
				Stopped:       st.Stopped,
			})
			return
		}
	}
	notFound(c, "no tracker for category "+name)
}

// GetPurchases returns the purchase activity summary.
func (h *HandlerService) GetPurchases(c *gin.Context) {
	if h.purchases == nil {
		writeError(c, http.StatusServiceUnavailable, "purchasing not initialized", ErrServiceUnavailable)
		return
	}

	snap := h.purchases.Snapshot()
	c.JSON(http.StatusOK, models.PurchaseStatus{
		Attempts:  snap.Attempts,
		Successes: snap.Successes,
		Failures:  snap.Failures,
		Cancelled: snap.Cancelled,
		Purchased: snap.Purchased,
	})
}

// RefreshTrackers forces an immediate poll of every running tracker.
func (h *HandlerService) RefreshTrackers(c *gin.Context) {
	logger.Info("manual refresh requested over HTTP")
	h.registry.RefreshAll(c.Request.Context())

	c.JSON(http.StatusOK, models.RefreshResponse{
		Triggered: len(h.registry.All()),
		Timestamp: time.Now().UTC(),
	})
}

// GetScheduledJobs returns the report scheduler's jobs.
func (h *HandlerService) GetScheduledJobs(c *gin.Context) {
	if h.scheduler == nil {
		writeError(c, http.StatusServiceUnavailable, "scheduler not initialized", ErrServiceUnavailable)
		return
	}

	c.JSON(http.StatusOK, h.scheduler.GetJobs())
}

// GetAppConfig returns the current configuration (sensitive data masked)
func (h *HandlerService) GetAppConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.sanitizeConfig())
}
