// Package session stores the view state of exploration sessions.
//
// A view remembers where a user is looking in a graph: the source file, the
// center node and radius, the rank range on screen, the active conditions
// and what a click does. Views are plain data; the window itself is rebuilt
// from them on demand.
//
// # Backends
//
//   - [MemoryStore]: in-process storage for a single server or tests
//   - [RedisStore]: shared storage for several server instances
//   - [FileStore]: JSON files for the CLI, so the explorer can resume
//
// # Usage
//
//	store := session.NewMemoryStore()
//	view := session.New("data/test.gfa", 0, 200, session.DefaultTTL)
//	if err := store.Set(ctx, view); err != nil {
//	    return err
//	}
//
//	view, err := store.Get(ctx, view.ID)
//	if errors.Is(err, session.ErrNotFound) {
//	    // Unknown or expired view
//	}
package session

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// ErrNotFound is returned when a view does not exist or has expired.
var ErrNotFound = perrors.New(perrors.ErrCodeSessionNotFound, "view not found")

// Click modes.
const (
	ModeCenter = "center" // A click recenters the window
	ModeInfo   = "info"   // A click describes the target
)

// Default durations.
const (
	// DefaultTTL is how long an untouched view is kept.
	DefaultTTL = 24 * time.Hour
)

// View is the persisted state of one exploration session.
type View struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	Center     int       `json:"center"`
	Radius     int       `json:"radius"`
	Lo         int       `json:"lo"`
	Hi         int       `json:"hi"`
	Conditions []string  `json:"conditions,omitempty"`
	Mode       string    `json:"mode"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// New creates a view with a random id. Lo and Hi start out empty (Hi < Lo)
// until the caller records the window range.
func New(source string, center, radius int, ttl time.Duration) *View {
	now := time.Now()
	return &View{
		ID:        uuid.NewString(),
		Source:    source,
		Center:    center,
		Radius:    radius,
		Lo:        0,
		Hi:        -1,
		Mode:      ModeCenter,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

// IsExpired returns true if the view has exceeded its TTL.
func (v *View) IsExpired() bool {
	return time.Now().After(v.ExpiresAt)
}

// Touch marks the view as updated and extends its life by ttl.
func (v *View) Touch(ttl time.Duration) {
	now := time.Now()
	v.UpdatedAt = now
	v.ExpiresAt = now.Add(ttl)
}

// TTL returns the remaining lifetime, at least one second.
func (v *View) TTL() time.Duration {
	return max(time.Until(v.ExpiresAt), time.Second)
}

// Store is the interface for view storage backends.
type Store interface {
	// Get retrieves a view by ID.
	// Returns ErrNotFound if the view doesn't exist or has expired.
	Get(ctx context.Context, id string) (*View, error)

	// Set stores a view, replacing any previous version.
	Set(ctx context.Context, view *View) error

	// Delete removes a view. Deleting a missing view is not an error.
	Delete(ctx context.Context, id string) error

	// Cleanup removes expired views (may be a no-op where the backend
	// expires keys itself).
	Cleanup(ctx context.Context) error

	// Close releases the backend.
	Close() error
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateID rejects ids that cannot be used as keys or file names.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return perrors.New(perrors.ErrCodeInvalidInput, "invalid view id %q", id)
	}
	return nil
}
