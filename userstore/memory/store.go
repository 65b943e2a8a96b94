// Package memory is an in-process [sessioncore.UserProvider] for examples,
// tests and single-node deployments that keep their accounts elsewhere.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/MrEthical07/sessioncore"
)

// ErrEmailTaken is returned by Put when another account already owns the email.
var ErrEmailTaken = errors.New("memory: email already registered")

// Store keeps accounts in maps guarded by a RWMutex. Records are copied on
// the way in and out.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]sessioncore.UserRecord
	byEmail map[string]string
}

// New returns a store seeded with users. It panics on conflicting seeds.
func New(users ...sessioncore.UserRecord) *Store {
	s := &Store{
		byID:    make(map[string]sessioncore.UserRecord),
		byEmail: make(map[string]string),
	}
	for _, u := range users {
		if err := s.Put(u); err != nil {
			panic(err)
		}
	}
	return s
}

// Put inserts or replaces an account.
func (s *Store) Put(u sessioncore.UserRecord) error {
	if u.ID == "" {
		return errors.New("memory: user id is required")
	}
	email := normalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[email]; ok && owner != u.ID {
		return fmt.Errorf("%w: %s", ErrEmailTaken, email)
	}
	if prev, ok := s.byID[u.ID]; ok {
		delete(s.byEmail, normalizeEmail(prev.Email))
	}
	u.Email = email
	s.byID[u.ID] = clone(u)
	if email != "" {
		s.byEmail[email] = u.ID
	}
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (sessioncore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return sessioncore.UserRecord{}, sessioncore.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (sessioncore.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return sessioncore.UserRecord{}, sessioncore.ErrUserNotFound
	}
	return clone(s.byID[id]), nil
}

// Save updates an existing account. Unknown ids return
// [sessioncore.ErrUserNotFound].
func (s *Store) Save(_ context.Context, u sessioncore.UserRecord) error {
	s.mu.RLock()
	_, ok := s.byID[u.ID]
	s.mu.RUnlock()
	if !ok {
		return sessioncore.ErrUserNotFound
	}
	return s.Put(u)
}

// SetActive toggles the account's active flag.
func (s *Store) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return sessioncore.ErrUserNotFound
	}
	u.Active = active
	s.byID[id] = u
	return nil
}

// Len returns the number of stored accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func clone(u sessioncore.UserRecord) sessioncore.UserRecord {
	if u.Roles != nil {
		u.Roles = append([]string(nil), u.Roles...)
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		u.LastLogin = &t
	}
	return u
}
