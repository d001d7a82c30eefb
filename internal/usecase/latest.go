package usecase

import "sync/atomic"

// Generation issues increasing tokens for latest-wins operations. A
// completion whose token is no longer the latest must be discarded.
type Generation struct {
	n atomic.Uint64
}

// Next issues a new token, superseding every earlier one.
func (g *Generation) Next() uint64 {
	return g.n.Add(1)
}

// IsLatest reports whether token is the most recently issued one.
func (g *Generation) IsLatest(token uint64) bool {
	return g.n.Load() == token
}
