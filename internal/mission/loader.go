// Package mission resolves mission records by id and prepares them for playback.
package mission

import (
	"context"
	"errors"

	"github.com/OCAP2/launch-telemetry/pkg/core"
)

// ErrNotFound is returned when no mission exists for the requested id.
var ErrNotFound = errors.New("mission not found")

// ErrInvalid wraps validation failures of a loaded mission.
var ErrInvalid = errors.New("invalid mission")

// Loader resolves missions by id. Implementations must be safe for
// concurrent use; the simulator loads from its own goroutine.
type Loader interface {
	Load(ctx context.Context, missionID string) (*core.Mission, error)
	List(ctx context.Context) ([]core.MissionSummary, error)
}
