package services

import (
	"strings"
	"sync"

	"github.com/openforce/backend/internal/domain/models"
)

// PolicyStore holds users, profiles and permission sets. Policy is loaded at
// bootstrap and mutated only through the admin API, so reads dominate.
type PolicyStore struct {
	mu       sync.RWMutex
	users    map[string]models.User
	profiles map[string]models.Profile
	permSets map[string]models.PermissionSet
}

// NewPolicyStore creates an empty PolicyStore
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{
		users:    make(map[string]models.User),
		profiles: make(map[string]models.Profile),
		permSets: make(map[string]models.PermissionSet),
	}
}

// PutUser installs or replaces a user, keyed by lowercase email
func (s *PolicyStore) PutUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(user.Email)] = user
}

// User resolves a user by email
func (s *PolicyStore) User(email string) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return nil, false
	}
	return &user, true
}

// PutProfile installs or replaces a profile
func (s *PolicyStore) PutProfile(profile models.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.APIName] = profile
}

// Profile resolves a profile by API name
func (s *PolicyStore) Profile(apiName string) (*models.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[apiName]
	if !ok {
		return nil, false
	}
	return &profile, true
}

// PutPermissionSet installs or replaces a permission set
func (s *PolicyStore) PutPermissionSet(ps models.PermissionSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permSets[ps.APIName] = ps
}

// PermissionSet resolves a permission set by API name
func (s *PolicyStore) PermissionSet(apiName string) (*models.PermissionSet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ps, ok := s.permSets[apiName]
	if !ok {
		return nil, false
	}
	return &ps, true
}
