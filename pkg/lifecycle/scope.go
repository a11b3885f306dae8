package lifecycle

import (
	"sync"

	"f1telemetryapi/pkg/metrics"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Releaser is a large object whose references can be dropped on demand.
type Releaser interface {
	Release()
}

// Scope owns the large objects of one request: the session handle, lap
// tables and telemetry tables. Release must be deferred right after the
// scope is created so every exit path drops them.
//
// Releasing does not free memory synchronously; it guarantees that nothing
// owned by the request keeps a reference after the handler returns.
type Scope struct {
	ID     string
	Logger logrus.FieldLogger

	mu       sync.Mutex
	owned    []Releaser
	released bool
}

func NewScope(name string, logger logrus.FieldLogger) *Scope {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	id := uuid.NewString()
	metrics.LiveScopes.Inc()
	return &Scope{
		ID:     id,
		Logger: logger.WithFields(logrus.Fields{"scope": id, "query": name}),
	}
}

// Own registers r for release. Objects registered after Release are
// released immediately.
func (s *Scope) Own(r Releaser) {
	if r == nil {
		return
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		r.Release()
		metrics.ReleasedObjects.Inc()
		return
	}
	s.owned = append(s.owned, r)
	s.mu.Unlock()
}

// Release drops every owned object, last acquired first. Calls after the
// first are no-ops.
func (s *Scope) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	owned := s.owned
	s.owned = nil
	s.mu.Unlock()

	for i := len(owned) - 1; i >= 0; i-- {
		owned[i].Release()
	}
	metrics.ReleasedObjects.Add(float64(len(owned)))
	metrics.LiveScopes.Dec()
	s.Logger.Debugf("released %d objects", len(owned))
}
