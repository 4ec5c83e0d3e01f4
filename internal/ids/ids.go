// Package ids generates identifiers for stored records (profiles, leads,
// generation audit rows). ULIDs sort by creation time, which keeps
// id-ordered scans aligned with insertion order.
package ids

import (
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

var global = &generator{
	entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
}

func (g *generator) next(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// New returns a fresh record identifier.
func New() string {
	return global.next(time.Now())
}
