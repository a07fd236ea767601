package badges

import (
	"context"
	"database/sql"

	"github.com/AwesomeDJG/UngaaBoard/pkg/logging"
	"github.com/AwesomeDJG/UngaaBoard/pkg/models"
)

// Engine runs the evaluate-and-award cycle: fresh stats, registry snapshot,
// rule evaluation, then one independent reconcile per satisfied badge.
type Engine struct {
	stats    *StatsAggregator
	registry *Registry
	defs     []Definition
	logger   logging.Logger
}

// AwardFailure records one badge whose write failed during a cycle
type AwardFailure struct {
	Definition Definition
	Err        error
}

// Result summarizes one evaluate-and-award cycle. Callers that only want
// fire-and-forget semantics can ignore it; tests and the HTTP surface assert
// on it instead of inspecting logs.
type Result struct {
	Stats    models.UserStats
	Awarded  []Definition
	Held     []Definition
	Failures []AwardFailure
}

// NewEngine creates an engine over the default badge table
func NewEngine(db *sql.DB, logger logging.Logger) *Engine {
	engine, _ := NewEngineWithDefinitions(db, logger, DefaultDefinitions)
	return engine
}

// NewEngineWithDefinitions creates an engine over a custom badge table
func NewEngineWithDefinitions(db *sql.DB, logger logging.Logger, defs []Definition) (*Engine, error) {
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	return &Engine{
		stats:    NewStatsAggregator(db, logger),
		registry: NewRegistry(db, logger),
		defs:     defs,
		logger:   logger,
	}, nil
}

// Stats exposes the aggregator for read-only callers
func (e *Engine) Stats() *StatsAggregator { return e.stats }

// Registry exposes the registry store for read-only callers
func (e *Engine) Registry() *Registry { return e.registry }

// Definitions returns the badge table the engine evaluates
func (e *Engine) Definitions() []Definition { return e.defs }

// CheckAndAward re-evaluates one user against every badge rule and persists
// any newly earned badges. The trigger tag is diagnostic only. A stats or
// snapshot failure aborts the cycle; a write failure for one badge is
// recorded in the result and does not abort the others. Badges are never
// revoked, whatever the stats say.
func (e *Engine) CheckAndAward(ctx context.Context, userID, trigger string) (Result, error) {
	log := e.logger.WithFields(logging.Fields{
		"user_id": userID,
		"trigger": trigger,
	})

	stats, err := e.stats.Aggregate(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to aggregate user stats")
		return Result{}, err
	}

	records, err := e.registry.ListAll(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to snapshot badge registry")
		return Result{Stats: stats}, err
	}

	result := Result{Stats: stats}
	for _, def := range Satisfied(e.defs, stats) {
		rec := findRecord(records, def)

		switch {
		case rec == nil:
			if err := e.registry.Insert(ctx, def, userID); err != nil {
				log.WithError(err).WithField("label", def.Label).Error("Failed to create badge")
				result.Failures = append(result.Failures, AwardFailure{Definition: def, Err: err})
				continue
			}
			result.Awarded = append(result.Awarded, def)
			log.WithField("label", def.Label).Info("Created badge with initial holder")

		case rec.HasHolder(userID):
			// Already held; awarding is idempotent.
			result.Held = append(result.Held, def)

		case !rec.holdersWellFormed:
			holders := append(append([]string(nil), rec.Holders...), userID)
			if err := e.registry.ReplaceHolders(ctx, rec.ID, def, holders); err != nil {
				log.WithError(err).WithField("label", def.Label).Error("Failed to repair badge holders")
				result.Failures = append(result.Failures, AwardFailure{Definition: def, Err: err})
				continue
			}
			result.Awarded = append(result.Awarded, def)
			log.WithField("label", def.Label).Info("Repaired badge holders and awarded badge")

		default:
			if err := e.registry.AddHolder(ctx, rec.ID, def, userID); err != nil {
				log.WithError(err).WithField("label", def.Label).Error("Failed to award badge")
				result.Failures = append(result.Failures, AwardFailure{Definition: def, Err: err})
				continue
			}
			result.Awarded = append(result.Awarded, def)
			log.WithField("label", def.Label).Info("Awarded badge")
		}
	}

	return result, nil
}

// findRecord matches a definition to its registry row: stable badge_id first,
// label as a fallback for legacy rows that predate badge ids.
func findRecord(records []Record, def Definition) *Record {
	for i := range records {
		if records[i].BadgeID == def.ID {
			return &records[i]
		}
	}
	for i := range records {
		if records[i].BadgeID == "" && records[i].Label == def.Label {
			return &records[i]
		}
	}
	return nil
}
