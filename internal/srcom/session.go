package srcom

import "context"

// gameSearcher is the slice of Client a search session needs.
type gameSearcher interface {
	SearchGames(ctx context.Context, name string) ([]Game, error)
}

// SearchResult is one delivered search response.
type SearchResult struct {
	Games []Game
	Err   error
}

// SearchSession issues interactive game searches and discards responses
// that arrive after a newer query was started. Every query gets an id from
// a monotonic sequence; only the response matching the latest id is
// delivered, so a slow response for "mari" cannot clobber the results for
// "mario" typed moments later.
type SearchSession struct {
	searcher gameSearcher
	seq      ReqSeq
}

// NewSearchSession creates a session over the given client.
func NewSearchSession(searcher gameSearcher) *SearchSession {
	return &SearchSession{searcher: searcher}
}

// Search starts a query in the background. The returned channel delivers at
// most one result and is then closed; a channel closed without a result
// means the query went stale before its response arrived.
func (s *SearchSession) Search(ctx context.Context, name string) <-chan SearchResult {
	id := s.seq.Next()
	ch := make(chan SearchResult, 1)

	go func() {
		defer close(ch)

		games, err := s.searcher.SearchGames(ctx, name)

		// A newer query superseded this one while it was in flight.
		if !s.seq.IsCurrent(id) {
			return
		}

		ch <- SearchResult{Games: games, Err: err}
	}()

	return ch
}
