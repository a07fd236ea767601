package badges

import "fmt"

// StatsFetchError means one of the stats reads failed. The whole invocation
// aborts and no awards are attempted.
type StatsFetchError struct {
	Op     string
	UserID string
	Err    error
}

func (e *StatsFetchError) Error() string {
	return fmt.Sprintf("stats fetch %s for user %s: %v", e.Op, e.UserID, e.Err)
}

func (e *StatsFetchError) Unwrap() error { return e.Err }

// RegistrySnapshotError means the full badge-list read failed, before any
// evaluation took place.
type RegistrySnapshotError struct {
	Op  string
	Err error
}

func (e *RegistrySnapshotError) Error() string {
	return fmt.Sprintf("registry %s: %v", e.Op, e.Err)
}

func (e *RegistrySnapshotError) Unwrap() error { return e.Err }

// AwardWriteError means the insert or update for one specific badge failed.
// It never aborts sibling award attempts.
type AwardWriteError struct {
	Op      string
	BadgeID string
	Label   string
	UserID  string
	Err     error
}

func (e *AwardWriteError) Error() string {
	return fmt.Sprintf("award %s for badge %q user %s: %v", e.Op, e.Label, e.UserID, e.Err)
}

func (e *AwardWriteError) Unwrap() error { return e.Err }
