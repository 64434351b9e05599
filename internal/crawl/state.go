package crawl

import "sync"

// state is the traversal state of one run. Only the orchestrator touches
// it. visited and landed are guarded by mu so that pages of one level can
// be analyzed concurrently without double visits.
type state struct {
	mu      sync.Mutex
	visited map[string]struct{}
	// landed holds redirect targets claimed by a visited page. They do not
	// count against maxPages.
	landed   map[string]struct{}
	maxPages int

	frontier []string
	depth    int
}

func newState(start string, maxPages int) *state {
	return &state{
		visited:  make(map[string]struct{}),
		landed:   make(map[string]struct{}),
		maxPages: maxPages,
		frontier: []string{start},
	}
}

// tryVisit marks u as visited and reports whether the caller owns the
// visit. It refuses URLs already visited and any URL once the page bound
// is reached.
func (s *state) tryVisit(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen(u) {
		return false
	}
	if len(s.visited) >= s.maxPages {
		return false
	}
	s.visited[u] = struct{}{}
	return true
}

// claimLanding records u as the redirect target of a page being visited.
// It fails when u was already visited or claimed.
func (s *state) claimLanding(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen(u) {
		return false
	}
	s.landed[u] = struct{}{}
	return true
}

func (s *state) isVisited(u string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen(u)
}

// seen must be called with mu held.
func (s *state) seen(u string) bool {
	if _, ok := s.visited[u]; ok {
		return true
	}
	_, ok := s.landed[u]
	return ok
}

func (s *state) pagesScanned() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visited)
}

// takeLevel returns the current frontier and clears it.
func (s *state) takeLevel() []string {
	batch := s.frontier
	s.frontier = nil
	return batch
}

// proceed reports whether another level should be crawled.
func (s *state) proceed(maxDepth int) bool {
	return len(s.frontier) > 0 && s.pagesScanned() < s.maxPages && s.depth < maxDepth
}
