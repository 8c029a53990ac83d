package bot

import "sync"

// pendingVideo is the submission a user has sent but not yet chosen a
// processing mode for.
type pendingVideo struct {
	FileID string
	Size   int64
}

// sessionStore keeps one pending slot per user and tracks which users
// have a run in flight. A new video replaces whatever was pending
// before; the previous submission is dropped.
type sessionStore struct {
	mu      sync.Mutex
	pending map[int64]pendingVideo
	running map[int64]bool
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		pending: make(map[int64]pendingVideo),
		running: make(map[int64]bool),
	}
}

// Put stores the pending submission for a user and reports whether an
// earlier one was overwritten.
func (s *sessionStore) Put(userID int64, v pendingVideo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, overwrote := s.pending[userID]
	s.pending[userID] = v
	return overwrote
}

// Get returns the pending submission for a user, if any. The slot is
// not consumed: the user may retry after a transient failure without
// resending the video.
func (s *sessionStore) Get(userID int64) (pendingVideo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.pending[userID]
	return v, ok
}

// StartRun marks the user's run as in flight. It reports false when a
// run is already executing, so at most one run per user proceeds at a
// time; a second button press during the run is turned away instead of
// starting a parallel run.
func (s *sessionStore) StartRun(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[userID] {
		return false
	}
	s.running[userID] = true
	return true
}

// FinishRun clears the user's in-flight mark.
func (s *sessionStore) FinishRun(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, userID)
}
