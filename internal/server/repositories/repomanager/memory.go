package repomanager

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/dmitrijs2005/timecaddy/internal/common"
	"github.com/dmitrijs2005/timecaddy/internal/dbx"
	"github.com/dmitrijs2005/timecaddy/internal/server/models"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/resetrequests"
	"github.com/dmitrijs2005/timecaddy/internal/server/repositories/users"
	"github.com/google/uuid"
)

// InMemoryRepositoryManager keeps rows in process memory and ignores the
// DBTX it is handed, so writes are not rolled back with a transaction. It
// enforces the schema's unique constraints and the reset request cascade.
// Failures can be injected per method name with FailOn.
type InMemoryRepositoryManager struct {
	mu       sync.Mutex
	users    map[string]models.User
	requests map[string]models.PasswordResetRequest
	failures map[string]error
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{
		users:    make(map[string]models.User),
		requests: make(map[string]models.PasswordResetRequest),
		failures: make(map[string]error),
	}
}

func (m *InMemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error { return nil }

func (m *InMemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return &memUsers{m: m}
}

func (m *InMemoryRepositoryManager) ResetRequests(dbx.DBTX) resetrequests.Repository {
	return &memRequests{m: m}
}

// FailOn makes every later call of method (e.g. "Confirm", "SetPassword")
// return err. A nil err clears the failure.
func (m *InMemoryRepositoryManager) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// AllUsers returns a snapshot of stored users.
func (m *InMemoryRepositoryManager) AllUsers() []models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out
}

// RequestsOf returns a snapshot of the reset requests of userID.
func (m *InMemoryRepositoryManager) RequestsOf(userID string) []models.PasswordResetRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PasswordResetRequest
	for _, r := range m.requests {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out
}

// lock takes the mutex and returns the injected failure for method, if any.
func (m *InMemoryRepositoryManager) lock(method string) error {
	m.mu.Lock()
	return m.failures[method]
}

type memUsers struct {
	m *InMemoryRepositoryManager
}

func (r *memUsers) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if err := r.m.lock("Create"); err != nil {
		r.m.mu.Unlock()
		return nil, err
	}
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.Username == user.Username {
			return nil, &common.ConstraintError{Constraint: "username"}
		}
		if u.Email == user.Email {
			return nil, &common.ConstraintError{Constraint: "email"}
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.m.users[user.ID] = *user
	return user, nil
}

func (r *memUsers) find(method string, match func(models.User) bool) (*models.User, error) {
	if err := r.m.lock(method); err != nil {
		r.m.mu.Unlock()
		return nil, err
	}
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.find("GetByID", func(u models.User) bool { return u.ID == id })
}

func (r *memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find("GetByUsername", func(u models.User) bool { return u.Username == username })
}

func (r *memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find("GetByEmail", func(u models.User) bool { return u.Email == email })
}

func unconfirmedAt(u models.User, now time.Time) bool {
	return u.SignupConfirmationTime == nil || u.SignupConfirmationTime.After(now)
}

func (r *memUsers) Confirm(ctx context.Context, id string, now time.Time) (bool, error) {
	if err := r.m.lock("Confirm"); err != nil {
		r.m.mu.Unlock()
		return false, err
	}
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok || !unconfirmedAt(u, now) {
		return false, nil
	}
	t := now
	u.SignupConfirmationTime = &t
	r.m.users[id] = u
	return true, nil
}

func (r *memUsers) DeleteIfUnconfirmedStale(ctx context.Context, id string, now time.Time, window time.Duration) (bool, error) {
	if err := r.m.lock("DeleteIfUnconfirmedStale"); err != nil {
		r.m.mu.Unlock()
		return false, err
	}
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok || !unconfirmedAt(u, now) || !u.SignupTime.Before(now.Add(-window)) {
		return false, nil
	}
	r.m.deleteUserLocked(id)
	return true, nil
}

func (r *memUsers) DeleteUnconfirmed(ctx context.Context, id string) (bool, error) {
	if err := r.m.lock("DeleteUnconfirmed"); err != nil {
		r.m.mu.Unlock()
		return false, err
	}
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok || u.SignupConfirmationTime != nil {
		return false, nil
	}
	r.m.deleteUserLocked(id)
	return true, nil
}

func (r *memUsers) DeleteAllUnconfirmedStale(ctx context.Context, now time.Time, window time.Duration) (int64, error) {
	if err := r.m.lock("DeleteAllUnconfirmedStale"); err != nil {
		r.m.mu.Unlock()
		return 0, err
	}
	defer r.m.mu.Unlock()

	var n int64
	for id, u := range r.m.users {
		if unconfirmedAt(u, now) && u.SignupTime.Before(now.Add(-window)) {
			r.m.deleteUserLocked(id)
			n++
		}
	}
	return n, nil
}

func (r *memUsers) SetPassword(ctx context.Context, id, hash, salt string) error {
	return r.update("SetPassword", id, func(u *models.User) {
		u.PasswordHash = hash
		u.PasswordSalt = salt
	})
}

func (r *memUsers) SetDisabled(ctx context.Context, id string, disabled bool) error {
	return r.update("SetDisabled", id, func(u *models.User) { u.Disabled = disabled })
}

func (r *memUsers) update(method, id string, fn func(*models.User)) error {
	if err := r.m.lock(method); err != nil {
		r.m.mu.Unlock()
		return err
	}
	defer r.m.mu.Unlock()

	u, ok := r.m.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(&u)
	r.m.users[id] = u
	return nil
}

func (m *InMemoryRepositoryManager) deleteUserLocked(id string) {
	delete(m.users, id)
	for rid, req := range m.requests {
		if req.UserID == id {
			delete(m.requests, rid)
		}
	}
}

type memRequests struct {
	m *InMemoryRepositoryManager
}

func (r *memRequests) LockOwner(ctx context.Context, userID string) error {
	if err := r.m.lock("LockOwner"); err != nil {
		r.m.mu.Unlock()
		return err
	}
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[userID]; !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *memRequests) CountSince(ctx context.Context, userID string, since time.Time) (int, error) {
	if err := r.m.lock("CountSince"); err != nil {
		r.m.mu.Unlock()
		return 0, err
	}
	defer r.m.mu.Unlock()

	n := 0
	for _, req := range r.m.requests {
		if req.UserID == userID && !req.RequestTime.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r *memRequests) URLTokenExists(ctx context.Context, urlToken string) (bool, error) {
	if err := r.m.lock("URLTokenExists"); err != nil {
		r.m.mu.Unlock()
		return false, err
	}
	defer r.m.mu.Unlock()

	for _, req := range r.m.requests {
		if req.PasswordResetURLToken == urlToken {
			return true, nil
		}
	}
	return false, nil
}

func (r *memRequests) DeactivateAll(ctx context.Context, userID string) (int64, error) {
	if err := r.m.lock("DeactivateAll"); err != nil {
		r.m.mu.Unlock()
		return 0, err
	}
	defer r.m.mu.Unlock()

	var n int64
	for id, req := range r.m.requests {
		if req.UserID == userID && req.Active {
			req.Active = false
			r.m.requests[id] = req
			n++
		}
	}
	return n, nil
}

func (r *memRequests) Create(ctx context.Context, req *models.PasswordResetRequest) (*models.PasswordResetRequest, error) {
	if err := r.m.lock("CreateResetRequest"); err != nil {
		r.m.mu.Unlock()
		return nil, err
	}
	defer r.m.mu.Unlock()

	for _, other := range r.m.requests {
		if other.PasswordResetURLToken == req.PasswordResetURLToken {
			return nil, &common.ConstraintError{Constraint: "url_token"}
		}
		if req.Active && other.Active && other.UserID == req.UserID {
			return nil, &common.ConstraintError{Constraint: "active"}
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	r.m.requests[req.ID] = *req
	return req, nil
}

func (r *memRequests) GetByURLToken(ctx context.Context, urlToken string) (*models.PasswordResetRequest, error) {
	if err := r.m.lock("GetByURLToken"); err != nil {
		r.m.mu.Unlock()
		return nil, err
	}
	defer r.m.mu.Unlock()

	for _, req := range r.m.requests {
		if req.PasswordResetURLToken == urlToken {
			return &req, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memRequests) Deactivate(ctx context.Context, id string) (bool, error) {
	if err := r.m.lock("Deactivate"); err != nil {
		r.m.mu.Unlock()
		return false, err
	}
	defer r.m.mu.Unlock()

	req, ok := r.m.requests[id]
	if !ok || !req.Active {
		return false, nil
	}
	req.Active = false
	r.m.requests[id] = req
	return true, nil
}
