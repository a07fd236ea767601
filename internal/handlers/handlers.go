package handlers

import (
	"database/sql"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AwesomeDJG/UngaaBoard/internal/badges"
	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
	"github.com/AwesomeDJG/UngaaBoard/pkg/middleware"
	"github.com/AwesomeDJG/UngaaBoard/pkg/models"
)

var (
	db      *sql.DB
	logger  logging.Logger
	engine  *badges.Engine
	metrics *EnsignMetrics
)

// EnsignMetrics holds all Prometheus metrics for Ensign
type EnsignMetrics struct {
	Evaluations   *prometheus.CounterVec
	BadgeAwards   *prometheus.CounterVec
	DBQueries     *prometheus.CounterVec
	DBDuration    *prometheus.HistogramVec
	DBConnections *prometheus.GaugeVec
}

// Init initializes the handlers with database, logger, engine and metrics
func Init(database *sql.DB, log logging.Logger, badgeEngine *badges.Engine, ensignMetrics *EnsignMetrics) {
	db = database
	logger = log
	engine = badgeEngine
	metrics = ensignMetrics
}

// HandleTrigger runs a full evaluate-and-award cycle for one user. The
// trigger type is diagnostic only; callers treat this as fire-and-forget but
// the response carries the outcome for anyone who cares.
func HandleTrigger(c middleware.Context) {
	var req models.TriggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "Invalid trigger payload"})
		return
	}
	if req.TriggerType == "" {
		req.TriggerType = "manual"
	}

	result, err := engine.CheckAndAward(c.Request.Context(), req.UserID, req.TriggerType)
	if err != nil {
		countEvaluation(req.TriggerType, "error")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to evaluate badges"})
		return
	}

	resp := models.TriggerResponse{
		UserID:      req.UserID,
		TriggerType: req.TriggerType,
		Stats:       result.Stats,
		Awarded:     []string{},
	}
	for _, def := range result.Awarded {
		resp.Awarded = append(resp.Awarded, def.Label)
		countAward(def.ID, "awarded")
	}
	for _, failure := range result.Failures {
		resp.Failures = append(resp.Failures, models.FailedAward{
			BadgeID: failure.Definition.ID,
			Label:   failure.Definition.Label,
			Error:   failure.Err.Error(),
		})
		countAward(failure.Definition.ID, "failed")
	}

	if len(result.Failures) > 0 {
		countEvaluation(req.TriggerType, "partial")
	} else {
		countEvaluation(req.TriggerType, "ok")
	}

	c.JSON(http.StatusOK, resp)
}

// GetBadges returns the full badge registry with normalized holders
func GetBadges(c middleware.Context) {
	records, err := engine.Registry().ListAll(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("Failed to list badges")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list badges"})
		return
	}

	badgeList := make([]models.BadgeRecord, 0, len(records))
	for _, rec := range records {
		badgeList = append(badgeList, rec.BadgeRecord)
	}
	c.JSON(http.StatusOK, badgeList)
}

// GetUserBadges returns the badges held by one user
func GetUserBadges(c middleware.Context) {
	userID := c.Param("id")

	records, err := engine.Registry().ListAll(c.Request.Context())
	if err != nil {
		logger.WithError(err).Error("Failed to list badges")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to list badges"})
		return
	}

	held := make([]models.BadgeRecord, 0)
	for _, rec := range records {
		if rec.HasHolder(userID) {
			held = append(held, rec.BadgeRecord)
		}
	}
	c.JSON(http.StatusOK, models.UserBadgesResponse{UserID: userID, Badges: held})
}

// GetUserStats returns a freshly computed stats snapshot for one user
func GetUserStats(c middleware.Context) {
	userID := c.Param("id")

	stats, err := engine.Stats().Aggregate(c.Request.Context(), userID)
	if err != nil {
		logger.WithError(err).WithField("user_id", userID).Error("Failed to aggregate user stats")
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to compute stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func countEvaluation(trigger, status string) {
	if metrics != nil {
		metrics.Evaluations.WithLabelValues(trigger, status).Inc()
	}
}

func countAward(badgeID, status string) {
	if metrics != nil {
		metrics.BadgeAwards.WithLabelValues(badgeID, status).Inc()
	}
}
