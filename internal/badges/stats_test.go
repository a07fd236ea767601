package badges

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
)

func TestAggregate_SumsUptoesTreatingNullAsZero(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"uptoes"}).AddRow(5).AddRow(nil).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM follows WHERE following_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	agg := NewStatsAggregator(db, logging.NewLogger())
	stats, err := agg.Aggregate(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalUptoes != 12 {
		t.Fatalf("total uptoes = %d, want 12", stats.TotalUptoes)
	}
	if stats.FollowerCount != 3 {
		t.Fatalf("follower count = %d, want 3", stats.FollowerCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAggregate_NoPostsIsZeroNotError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts WHERE user_id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"uptoes"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM follows WHERE following_id = $1")).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	agg := NewStatsAggregator(db, logging.NewLogger())
	stats, err := agg.Aggregate(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalUptoes != 0 || stats.FollowerCount != 0 {
		t.Fatalf("stats = %+v, want zeroes", stats)
	}
}

func TestAggregate_PostQueryFailureAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	cause := errors.New("connection reset")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnError(cause)

	agg := NewStatsAggregator(db, logging.NewLogger())
	_, err = agg.Aggregate(context.Background(), "u1")

	var fetchErr *StatsFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected StatsFetchError, got %v", err)
	}
	if fetchErr.Op != "query_post_uptoes" {
		t.Fatalf("op = %q, want query_post_uptoes", fetchErr.Op)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
}

func TestAggregate_FollowCountFailureAborts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT uptoes FROM posts WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"uptoes"}).AddRow(50))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM follows WHERE following_id = $1")).
		WithArgs("u1").
		WillReturnError(errors.New("timeout"))

	agg := NewStatsAggregator(db, logging.NewLogger())
	_, err = agg.Aggregate(context.Background(), "u1")

	var fetchErr *StatsFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("expected StatsFetchError, got %v", err)
	}
	if fetchErr.Op != "count_follow_edges" {
		t.Fatalf("op = %q, want count_follow_edges", fetchErr.Op)
	}
}
