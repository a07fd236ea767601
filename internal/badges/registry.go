package badges

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
	"github.com/AwesomeDJG/UngaaBoard/pkg/models"
)

// Record is a registry row plus what the engine learned while normalizing it
type Record struct {
	models.BadgeRecord

	// holdersWellFormed is false when the stored holders value was not a
	// proper JSON array and had to be repaired on read.
	holdersWellFormed bool
}

// Registry accesses the shared badge table. The table is shared with other
// writers (including the legacy browser client), so every mutation here is
// written to be safe against concurrent award attempts.
type Registry struct {
	db     *sql.DB
	logger logging.Logger
}

func NewRegistry(db *sql.DB, logger logging.Logger) *Registry {
	return &Registry{db: db, logger: logger}
}

// ListAll returns a point-in-time snapshot of the full registry, holders
// normalized. Malformed holders values are repaired to empty and logged,
// never raised.
func (r *Registry) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, badge_id, label, color, holders, image_url, created_at, updated_at
		FROM user_badges
	`)
	if err != nil {
		return nil, &RegistrySnapshotError{Op: "list_badges", Err: err}
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var badgeID, imageURL sql.NullString
		var rawHolders []byte
		if err := rows.Scan(&rec.ID, &badgeID, &rec.Label, &rec.Color, &rawHolders, &imageURL, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, &RegistrySnapshotError{Op: "scan_badge", Err: err}
		}
		rec.BadgeID = badgeID.String
		if imageURL.Valid {
			rec.ImageURL = &imageURL.String
		}

		rec.Holders, rec.holdersWellFormed = normalizeHolders(rawHolders)
		if !rec.holdersWellFormed {
			r.logger.WithFields(logging.Fields{
				"record_id": rec.ID,
				"label":     rec.Label,
			}).Warn("Badge holders value is malformed; normalized on read")
		}

		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &RegistrySnapshotError{Op: "list_badges", Err: err}
	}

	return records, nil
}

// Insert creates the badge row with its initial holder in a single statement.
// ON CONFLICT makes a concurrent first-award race harmless: the loser inserts
// nothing and the user is picked up by the next trigger's append path.
func (r *Registry) Insert(ctx context.Context, def Definition, userID string) error {
	holders, _ := json.Marshal([]string{userID})
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_badges (badge_id, label, color, holders, image_url)
		VALUES ($1, $2, $3, $4, NULL)
		ON CONFLICT (badge_id) WHERE badge_id IS NOT NULL DO NOTHING
	`, def.ID, def.Label, def.Color, holders)
	if err != nil {
		return &AwardWriteError{Op: "insert_badge", BadgeID: def.ID, Label: def.Label, UserID: userID, Err: err}
	}
	return nil
}

// AddHolder appends the user to the record's holder set unless already
// present. The membership check runs inside the UPDATE, so two concurrent
// triggers cannot overwrite each other's appends or duplicate a holder.
// Legacy rows get their badge_id backfilled on the way through.
func (r *Registry) AddHolder(ctx context.Context, recordID string, def Definition, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE user_badges
		SET holders = holders || to_jsonb($2::text),
		    badge_id = COALESCE(badge_id, $3),
		    updated_at = NOW()
		WHERE id = $1 AND NOT holders ? $2
	`, recordID, userID, def.ID)
	if err != nil {
		return &AwardWriteError{Op: "add_holder", BadgeID: def.ID, Label: def.Label, UserID: userID, Err: err}
	}
	return nil
}

// ReplaceHolders rewrites the holder set wholesale. Only used to repair rows
// whose stored holders value was not a proper array, where an in-place jsonb
// append would be unsound.
func (r *Registry) ReplaceHolders(ctx context.Context, recordID string, def Definition, holders []string) error {
	payload, err := json.Marshal(holders)
	if err != nil {
		return &AwardWriteError{Op: "replace_holders", BadgeID: def.ID, Label: def.Label, Err: err}
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE user_badges
		SET holders = $2,
		    badge_id = COALESCE(badge_id, $3),
		    updated_at = NOW()
		WHERE id = $1
	`, recordID, payload, def.ID)
	if err != nil {
		return &AwardWriteError{Op: "replace_holders", BadgeID: def.ID, Label: def.Label, Err: err}
	}
	return nil
}
