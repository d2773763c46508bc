package srcom

import "sync/atomic"

// ReqSeq issues monotonically increasing request identities for one logical
// query (e.g. the game search box). Interactive call sites stamp each request
// with Next() and discard any completion whose identity no longer matches
// Current(). A slow reply to an old request loses to a newer one without
// cancelling the in-flight socket.
type ReqSeq struct {
	n atomic.Uint64
}

// Next issues a new request identity and makes it current.
func (s *ReqSeq) Next() uint64 {
	return s.n.Add(1)
}

// Current returns the most recently issued identity.
func (s *ReqSeq) Current() uint64 {
	return s.n.Load()
}

// IsCurrent reports whether id is still the most recently issued identity.
// A completion for a stale id must be silently dropped.
func (s *ReqSeq) IsCurrent(id uint64) bool {
	return s.n.Load() == id
}
