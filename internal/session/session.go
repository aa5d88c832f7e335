// Package session holds the in-memory authentication state shared by the
// stores. It is written only by the user store's login/logout paths and by
// app bootstrap; every store reads it to decide row visibility and write
// permission.
package session

import (
	"sync"

	"github.com/Frandy4ever/atlas-mobile-intro/internal/models"
)

// Session is the explicit authorization context passed to each store.
type Session struct {
	mu      sync.RWMutex
	user    *models.User
	loading bool
}

// New returns a session in the loading state with no authenticated user.
func New() *Session {
	return &Session{loading: true}
}

// Set replaces the authenticated user and clears the loading flag.
func (s *Session) Set(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user == nil {
		s.user = nil
	} else {
		copied := *user
		s.user = &copied
	}
	s.loading = false
}

// Clear logs the current user out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	s.loading = false
}

// Current returns a copy of the authenticated user, or nil.
func (s *Session) Current() *models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	copied := *s.user
	return &copied
}

// IsAuthenticated reports whether a user is logged in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// IsAdmin reports whether the current user holds the admin role.
func (s *Session) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.user.IsAdmin
}

// Loading reports whether startup initialization is still in progress.
func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// FinishLoading marks startup initialization as complete.
func (s *Session) FinishLoading() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
}
