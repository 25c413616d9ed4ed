package directory

import (
	"strings"
	"sync"

	"github.com/baechuer/roadside-admin/internal/domain"
)

// Store holds the record set shown to one reviewer. Every fetch cycle takes
// a token from Begin and hands its result to Commit; only the most recently
// issued token may replace the set, so a slow, superseded cycle can never
// overwrite a newer one.
type Store struct {
	mu        sync.RWMutex
	users     []domain.User
	issued    uint64
	committed uint64
}

func NewStore() *Store {
	return &Store{users: []domain.User{}}
}

// Begin issues the token for a new fetch cycle.
func (s *Store) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// Commit replaces the whole record set if token is still the latest issued.
func (s *Store) Commit(token uint64, users []domain.User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token != s.issued {
		return false
	}
	next := make([]domain.User, len(users))
	copy(next, users)
	s.users = next
	s.committed = token
	return true
}

// Snapshot returns a copy of the current record set.
func (s *Store) Snapshot() []domain.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.User, len(s.users))
	copy(out, s.users)
	return out
}

// Version is the token of the cycle that produced the current set; zero
// until the first commit.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.committed
}

// Find returns the first record with the given email.
func (s *Store) Find(email string) (domain.User, bool) {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.User{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.TrimSpace(u.Email) == email {
			return u, true
		}
	}
	return domain.User{}, false
}

// PatchStatus sets the license status of every record carrying email and
// reports how many were changed. Other records are untouched.
func (s *Store) PatchStatus(email string, status domain.LicenseStatus) int {
	email = strings.TrimSpace(email)
	if email == "" {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for i := range s.users {
		if strings.TrimSpace(s.users[i].Email) == email {
			s.users[i].LicenseStatus = status
			n++
		}
	}
	return n
}
