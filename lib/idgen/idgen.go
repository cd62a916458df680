// Package idgen provides collision-resistant identifiers for host-global
// bookkeeping such as JSONP callback names.
package idgen

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

// Now returns the current time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// Generator combines a timestamp with random bits. IDs contain only
// [0-9a-z] so they are valid inside JavaScript identifiers and DOM ids.
type Generator struct {
	clock Clock
}

// New creates a generator. A nil clock uses the wall clock.
func New(clock Clock) *Generator {
	if clock == nil {
		clock = RealClock{}
	}
	return &Generator{clock: clock}
}

// New returns the next identifier.
func (g *Generator) New() string {
	ts := strconv.FormatInt(g.clock.Now().UnixMilli(), 36)
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return ts + random[:12]
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Reset resets the counter.
func (s *Sequential) Reset() {
	atomic.StoreUint64(&s.counter, 0)
}
