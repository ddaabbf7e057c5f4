package idgenerator

import "sync/atomic"

// IdGenerator hands out increasing uint32 IDs and is safe for concurrent use.
// The first Id returns start+1, so a generator started at 0 never returns 0
// until the counter wraps.
type IdGenerator struct {
	id atomic.Uint32
}

// NewIdGenerator creates an IdGenerator whose first Id is startValue+1.
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next ID.
func (g *IdGenerator) Id() uint32 {
	return g.id.Add(1)
}

// Last returns the most recently issued ID, or the start value if none was issued.
func (g *IdGenerator) Last() uint32 {
	return g.id.Load()
}
