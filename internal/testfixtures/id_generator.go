package testfixtures

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// fixtureNamespace seeds the deterministic UUIDs handed out in tests.
var fixtureNamespace = uuid.MustParse("6f1c2a52-3c1b-4d43-9f57-2f7b4f0c9e11")

// IDGenerator produces deterministic identifiers for tests: "prefix-N", or
// name based UUIDs when created with NewUUIDGenerator.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	uuids   bool
	counter uint64
}

// NewIDGenerator yields "prefix-1", "prefix-2", ... An empty prefix is "id".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &IDGenerator{prefix: prefix}
}

// NewUUIDGenerator yields the same UUID sequence for the same seed, shaped
// like the identifiers production code generates.
func NewUUIDGenerator(seed string) *IDGenerator {
	return &IDGenerator{prefix: seed, uuids: true}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	if g.uuids {
		return uuid.NewSHA1(fixtureNamespace, []byte(g.prefix+"/"+strconv.FormatUint(g.counter, 10))).String()
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc exposes Next for injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Reset restarts the sequence.
func (g *IDGenerator) Reset() {
	g.mu.Lock()
	g.counter = 0
	g.mu.Unlock()
}
