package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"

	"github.com/AwesomeDJG/UngaaBoard/internal/badges"
	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
	"github.com/AwesomeDJG/UngaaBoard/pkg/models"
)

func setupTestRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock, func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	Init(db, logging.NewLogger(), badges.NewEngine(db, logging.NewLogger()), nil)

	router := gin.New()
	router.POST("/triggers", HandleTrigger)
	router.GET("/badges", GetBadges)
	router.GET("/users/:id/badges", GetUserBadges)
	router.GET("/users/:id/stats", GetUserStats)

	return router, mock, func() { db.Close() }
}

func badgeRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "badge_id", "label", "color", "holders", "image_url", "created_at", "updated_at"})
}

func TestHandleTrigger_AwardsBadge(t *testing.T) {
	router, mock, done := setupTestRouter(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"uptoes"}).AddRow(12))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM follows")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_badges")).WillReturnRows(badgeRows())
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_badges")).
		WithArgs("uptoe_10", "10 Uptoes", "#f1c40f", []byte(`["u1"]`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	body, _ := json.Marshal(models.TriggerRequest{UserID: "u1", TriggerType: "post_created"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.TriggerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Awarded) != 1 || resp.Awarded[0] != "10 Uptoes" {
		t.Fatalf("awarded = %v, want [10 Uptoes]", resp.Awarded)
	}
	if resp.Stats.TotalUptoes != 12 {
		t.Fatalf("stats.total_uptoes = %d, want 12", resp.Stats.TotalUptoes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHandleTrigger_RejectsInvalidPayload(t *testing.T) {
	router, _, done := setupTestRouter(t)
	defer done()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/triggers", bytes.NewReader([]byte(`{"trigger_type":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing user_id, got %d", w.Code)
	}
}

func TestHandleTrigger_StatsFailureReturns500(t *testing.T) {
	router, mock, done := setupTestRouter(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts")).
		WithArgs("u1").
		WillReturnError(sqlmock.ErrCancelled)

	body, _ := json.Marshal(models.TriggerRequest{UserID: "u1"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/triggers", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestGetUserBadges_FiltersByHolder(t *testing.T) {
	router, mock, done := setupTestRouter(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_badges")).WillReturnRows(
		badgeRows().
			AddRow("rec-1", "uptoe_10", "10 Uptoes", "#f1c40f", []byte(`["u1","u2"]`), nil, now, now).
			AddRow("rec-2", "follower_5", "5 Followers", "#3498db", []byte(`["u2"]`), nil, now, now))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users/u1/badges", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp models.UserBadgesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Badges) != 1 || resp.Badges[0].Label != "10 Uptoes" {
		t.Fatalf("badges = %v, want only 10 Uptoes", resp.Badges)
	}
}

func TestGetUserStats(t *testing.T) {
	router, mock, done := setupTestRouter(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts")).
		WithArgs("u5").
		WillReturnRows(sqlmock.NewRows([]string{"uptoes"}).AddRow(3).AddRow(nil))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM follows")).
		WithArgs("u5").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/users/u5/stats", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var stats models.UserStats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.TotalUptoes != 3 || stats.FollowerCount != 7 {
		t.Fatalf("stats = %+v, want 3 uptoes and 7 followers", stats)
	}
}

func TestGetBadges_NormalizesLegacyHolders(t *testing.T) {
	router, mock, done := setupTestRouter(t)
	defer done()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM user_badges")).WillReturnRows(
		badgeRows().AddRow("rec-1", nil, "10 Uptoes", "#f1c40f", []byte(`"not json"`), nil, now, now))

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/badges", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var badgeList []models.BadgeRecord
	if err := json.Unmarshal(w.Body.Bytes(), &badgeList); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(badgeList) != 1 {
		t.Fatalf("expected 1 badge, got %d", len(badgeList))
	}
	if len(badgeList[0].Holders) != 0 {
		t.Fatalf("holders = %v, want normalized empty", badgeList[0].Holders)
	}
}
