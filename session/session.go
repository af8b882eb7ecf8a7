// Package session tracks the signed-in identity and its paired profile
// document. The Manager is an explicitly constructed object, not an ambient
// singleton, so tests can inject fixtures.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"borrowbox/backend/database"
	"borrowbox/backend/models"
)

// Validation errors, raised before any network call.
var (
	ErrMissingFields    = errors.New("please fill in all fields")
	ErrInvalidEmail     = errors.New("please enter a valid email address")
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrInvalidUserType  = errors.New("unknown account type")
	ErrNotLoggedIn      = errors.New("no user is logged in")
)

// MinPasswordLength matches the signup screen's rule.
const MinPasswordLength = 8

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// State is the session snapshot delivered to listeners.
type State struct {
	User       *models.UserProfile
	IsLoggedIn bool
	IsLoading  bool
}

// Manager holds the signed-in user's profile and exposes the auth lifecycle.
// All methods are safe for concurrent use.
type Manager struct {
	auth AuthProvider
	db   database.Backend

	mu           sync.RWMutex
	user         *models.UserProfile
	creds        *Credentials
	loggedIn     bool
	loading      bool
	listeners    map[int]func(State)
	nextListener int
}

// NewManager creates a Manager over the given identity provider and profile
// store. The session starts in the loading state until the first auth
// resolution (Login, Signup, Resume or Logout).
func NewManager(auth AuthProvider, db database.Backend) *Manager {
	return &Manager{
		auth:      auth,
		db:        db,
		loading:   true,
		listeners: make(map[int]func(State)),
	}
}

// Login signs in with email and password and resolves the paired profile
// document. A valid identity without a profile document fails as an
// invalid-credentials class error; the inconsistency is not auto-healed.
func (m *Manager) Login(ctx context.Context, email, password string) (*models.UserProfile, error) {
	if email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	creds, err := m.auth.SignIn(ctx, email, password)
	if err != nil {
		m.setLoggedOut()
		return nil, err
	}

	profile, err := m.resolveProfile(ctx, creds.UID)
	if err != nil {
		m.setLoggedOut()
		return nil, err
	}

	m.setLoggedIn(profile, creds)
	return profile, nil
}

// Signup creates the auth identity, then writes the paired profile document.
// If the profile write fails after the identity exists, the identity is left
// without a profile; there is no compensating rollback.
func (m *Manager) Signup(ctx context.Context, email, password, name, userType, city string) (*models.UserProfile, error) {
	if email == "" || password == "" || name == "" || city == "" {
		return nil, ErrMissingFields
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !models.ValidUserType(userType) {
		return nil, ErrInvalidUserType
	}

	uid, err := m.auth.CreateAccount(ctx, email, password, name)
	if err != nil {
		return nil, err
	}

	profile := models.UserProfile{
		UID:       uid,
		Email:     email,
		Name:      name,
		UserType:  userType,
		City:      city,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := m.db.Set(ctx, models.CollectionUsers, uid, profile.Doc()); err != nil {
		return nil, fmt.Errorf("writing profile for new account %s: %w", uid, err)
	}

	m.setLoggedIn(&profile, nil)
	return &profile, nil
}

// Logout clears the auth session and the cached profile.
func (m *Manager) Logout() {
	m.setLoggedOut()
}

// UpdateProfile merge-writes the given fields into the profile document and
// updates the cached copy only after the write succeeds.
func (m *Manager) UpdateProfile(ctx context.Context, updates map[string]interface{}) error {
	m.mu.RLock()
	user := m.user
	m.mu.RUnlock()
	if user == nil {
		return ErrNotLoggedIn
	}

	if err := m.db.Update(ctx, models.CollectionUsers, user.UID, updates); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	merged := user.Doc()
	for k, v := range updates {
		merged[k] = v
	}
	updated := models.ProfileFromDoc(user.UID, merged)

	m.mu.Lock()
	m.user = &updated
	state := m.stateLocked()
	listeners := m.listenersLocked()
	m.mu.Unlock()
	notify(listeners, state)
	return nil
}

// Resume is the passive auth-state-change path: given an identity the
// provider reports as present, it re-resolves the paired profile and
// recomputes the session flags.
func (m *Manager) Resume(ctx context.Context, uid string) (*models.UserProfile, error) {
	profile, err := m.resolveProfile(ctx, uid)
	if err != nil {
		m.setLoggedOut()
		return nil, err
	}
	m.setLoggedIn(profile, nil)
	return profile, nil
}

// State returns the current session snapshot.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stateLocked()
}

// User returns the cached profile, or nil when logged out.
func (m *Manager) User() *models.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Credentials returns the tokens from the last password sign-in, or nil.
func (m *Manager) Credentials() *Credentials {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.creds
}

// OnChange registers a listener invoked with a state snapshot after every
// session change. The returned func unregisters it.
func (m *Manager) OnChange(fn func(State)) func() {
	m.mu.Lock()
	m.nextListener++
	key := m.nextListener
	m.listeners[key] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, key)
		m.mu.Unlock()
	}
}

func (m *Manager) resolveProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := m.db.Get(ctx, models.CollectionUsers, uid)
	if err != nil {
		return nil, fmt.Errorf("loading profile %s: %w", uid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: account %s has no profile document", ErrInvalidCredentials, uid)
	}
	profile := models.ProfileFromDoc(uid, doc.Data)
	return &profile, nil
}

func (m *Manager) setLoggedIn(profile *models.UserProfile, creds *Credentials) {
	m.mu.Lock()
	m.user = profile
	if creds != nil {
		m.creds = creds
	}
	m.loggedIn = true
	m.loading = false
	state := m.stateLocked()
	listeners := m.listenersLocked()
	m.mu.Unlock()
	notify(listeners, state)
}

func (m *Manager) setLoggedOut() {
	m.mu.Lock()
	m.user = nil
	m.creds = nil
	m.loggedIn = false
	m.loading = false
	state := m.stateLocked()
	listeners := m.listenersLocked()
	m.mu.Unlock()
	notify(listeners, state)
}

func (m *Manager) stateLocked() State {
	return State{User: m.user, IsLoggedIn: m.loggedIn, IsLoading: m.loading}
}

func (m *Manager) listenersLocked() []func(State) {
	fns := make([]func(State), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	return fns
}

// notify runs outside the lock so listeners can call back into the manager.
func notify(listeners []func(State), state State) {
	for _, fn := range listeners {
		fn(state)
	}
}
