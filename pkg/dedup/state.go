package dedup

import (
	"sync"
)

// State is the durable dedup state: seen post ids and seen usernames.
// Entries are never removed.
type State struct {
	mu        sync.RWMutex
	posts     map[string]struct{}
	postOrder []string
	users     map[string]struct{}
	userOrder []string
}

// NewState creates an empty state
func NewState() *State {
	return &State{
		posts: make(map[string]struct{}),
		users: make(map[string]struct{}),
	}
}

// NewStateFrom seeds a state with existing entries
func NewStateFrom(postIDs, usernames []string) *State {
	s := NewState()
	for _, id := range postIDs {
		s.AddPost(id)
	}
	for _, u := range usernames {
		s.AddUser(u)
	}
	return s
}

// ContainsPost reports whether the post id was already handled
func (s *State) ContainsPost(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.posts[id]
	return ok
}

// AddPost records a post id and reports whether it was new
func (s *State) AddPost(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; ok {
		return false
	}
	s.posts[id] = struct{}{}
	s.postOrder = append(s.postOrder, id)
	return true
}

// ContainsUser reports whether the username was already handled
func (s *State) ContainsUser(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// AddUser records a username and reports whether it was new
func (s *State) AddUser(username string) bool {
	if username == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; ok {
		return false
	}
	s.users[username] = struct{}{}
	s.userOrder = append(s.userOrder, username)
	return true
}

// PostIDs returns the seen post ids in insertion order
func (s *State) PostIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.postOrder...)
}

// Usernames returns the seen usernames in insertion order
func (s *State) Usernames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.userOrder...)
}

// Len returns the number of seen posts and users
func (s *State) Len() (posts, users int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.postOrder), len(s.userOrder)
}
