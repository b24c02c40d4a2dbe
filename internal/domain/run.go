package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunInfo identifies one pipeline run. It is stamped on the map footer and on
// published records.
type RunInfo struct {
	ID          string
	GeneratedAt time.Time
}

// NewRunInfo returns a RunInfo with a fresh random ID and the current time.
func NewRunInfo() RunInfo {
	return RunInfo{
		ID:          uuid.NewString(),
		GeneratedAt: Now(),
	}
}
