package workflow

import (
	"context"
	"time"

	"atelier/internal/logging"
)

// IncrementReason explains why a save created a new version instead of
// overwriting the latest one.
type IncrementReason string

const (
	ReasonNone       IncrementReason = ""
	ReasonMisplaced  IncrementReason = "misplaced"
	ReasonRestored   IncrementReason = "restored version"
	ReasonStale      IncrementReason = "stale"
	autoCommentStart                 = "Auto-Increment because the previous version was "
)

// AutoComment is the comment recorded on a version created for reason.
func (r IncrementReason) AutoComment() string {
	switch r {
	case ReasonMisplaced:
		return autoCommentStart + "misplaced."
	case ReasonRestored:
		return autoCommentStart + "an older restored version."
	case ReasonStale:
		return autoCommentStart + "too old."
	default:
		return ""
	}
}

// IncrementDecision is the outcome of the auto-increment policy.
type IncrementDecision struct {
	Increment bool
	Reason    IncrementReason
}

// DecideIncrement applies the auto-increment rules to the scene at current
// whose working file is saveFilePath. The first matching rule wins:
//  1. the scene sits inside a reserved folder
//  2. the scene was restored from a version
//  3. the latest version is older than the auto-increment timeout
//
// Otherwise the latest version is overwritten.
func (m *Manager) DecideIncrement(ctx context.Context, current, saveFilePath string) (IncrementDecision, error) {
	if m.versions.InReservedFolder(current) {
		return IncrementDecision{Increment: true, Reason: ReasonMisplaced}, nil
	}
	if m.versions.IsRestoredFilePath(current) {
		return IncrementDecision{Increment: true, Reason: ReasonRestored}, nil
	}
	latest, ok, err := m.versions.LatestVersion(saveFilePath, false)
	if err != nil {
		return IncrementDecision{}, err
	}
	if ok {
		age := m.now().Sub(latest.ModTime)
		if age > m.cfg.AutoIncrementTimeout() {
			m.logger.DebugContext(ctx, "latest version is stale",
				logging.String("snapshot", latest.Path),
				logging.Duration("age", age.Round(time.Second)))
			return IncrementDecision{Increment: true, Reason: ReasonStale}, nil
		}
	}
	return IncrementDecision{}, nil
}
