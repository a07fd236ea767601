package badges

import (
	"context"
	"database/sql"

	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
	"github.com/AwesomeDJG/UngaaBoard/pkg/models"
)

// StatsAggregator computes a user's engagement totals from raw rows. Totals
// are recomputed on every call; nothing is cached between invocations.
type StatsAggregator struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStatsAggregator(db *sql.DB, logger logging.Logger) *StatsAggregator {
	return &StatsAggregator{db: db, logger: logger}
}

// Aggregate computes the current stats snapshot for one user. A user with no
// posts or followers gets zeroes, not an error. If either read fails the whole
// aggregation aborts with a StatsFetchError; partial stats are never returned.
func (a *StatsAggregator) Aggregate(ctx context.Context, userID string) (models.UserStats, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT uptoes FROM posts WHERE user_id = $1
	`, userID)
	if err != nil {
		return models.UserStats{}, &StatsFetchError{Op: "query_post_uptoes", UserID: userID, Err: err}
	}
	defer rows.Close()

	totalUptoes := 0
	for rows.Next() {
		var uptoes sql.NullInt64
		if err := rows.Scan(&uptoes); err != nil {
			return models.UserStats{}, &StatsFetchError{Op: "scan_post_uptoes", UserID: userID, Err: err}
		}
		// NULL uptoes count as zero
		if uptoes.Valid {
			totalUptoes += int(uptoes.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return models.UserStats{}, &StatsFetchError{Op: "query_post_uptoes", UserID: userID, Err: err}
	}

	var followerCount int
	err = a.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM follows WHERE following_id = $1
	`, userID).Scan(&followerCount)
	if err != nil {
		return models.UserStats{}, &StatsFetchError{Op: "count_follow_edges", UserID: userID, Err: err}
	}

	return models.UserStats{
		UserID:        userID,
		TotalUptoes:   totalUptoes,
		FollowerCount: followerCount,
	}, nil
}
