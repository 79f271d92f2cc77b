package conn

import "sync/atomic"

// xidGenerator hands out strictly increasing, strictly positive xids
// (spec.md section 3 "Xid" invariant). It wraps at int32 max back to 1,
// skipping the reserved negative values, matching the real protocol's
// client-side xid allocation.
type xidGenerator struct {
	next int32
}

func newXidGenerator() *xidGenerator {
	// Start at 1: xid 0 is never reserved by spec.md but the real
	// protocol's first user xid is 1, and starting at a strictly positive
	// number keeps every test assertion about "strictly positive" honest
	// from the very first request.
	return &xidGenerator{next: 0}
}

func (g *xidGenerator) Next() int32 {
	for {
		v := atomic.AddInt32(&g.next, 1)
		if v > 0 {
			return v
		}
		// Overflowed back through zero/negative: reset and retry. This is
		// unreachable in any real session's lifetime but keeps the
		// invariant airtight rather than assumed.
		atomic.StoreInt32(&g.next, 0)
	}
}
