package orchcore

import "github.com/google/uuid"

// UUIDGenerator is the production IDGenerator: every session, request, and
// artifact ID is a random UUIDv4. SequentialIDGenerator in fakes.go exists
// only so tests get reproducible IDs; real wiring always uses this one.
type UUIDGenerator struct {
	prefix string
}

// NewUUIDGenerator returns a generator that prefixes every ID with prefix
// followed by a hyphen (e.g. "sess-3f1e2b9a-...").
func NewUUIDGenerator(prefix string) *UUIDGenerator {
	return &UUIDGenerator{prefix: prefix}
}

func (g *UUIDGenerator) NewID() string {
	id := uuid.New().String()
	if g.prefix == "" {
		return id
	}
	return g.prefix + "-" + id
}
