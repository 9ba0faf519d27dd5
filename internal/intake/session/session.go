// Package session carries the authenticated applicant identity into a
// wizard. Authentication itself happens elsewhere; this package only
// stores and resolves the resulting identity.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"internship-intake/internal/common/errors"
	"internship-intake/internal/common/logger"
)

// Context is the identity a wizard instance acts for.
type Context struct {
	SessionID string    `json:"sessionId"`
	StudentID string    `json:"studentId"`
	Email     string    `json:"email,omitempty"`
	Mobile    string    `json:"mobile,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (c Context) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

type Store interface {
	Save(ctx context.Context, sc Context, ttl time.Duration) error
	Load(ctx context.Context, sessionID string) (Context, error)
	Delete(ctx context.Context, sessionID string) error
}

// Manager issues, resolves and clears sessions.
type Manager struct {
	store  Store
	ttl    time.Duration
	now    func() time.Time
	logger logger.Logger
}

func NewManager(store Store, ttl time.Duration, log logger.Logger) *Manager {
	return &Manager{
		store:  store,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.ForComponent(log, "session"),
	}
}

// Login records an identity established by the auth layer and returns its
// session.
func (m *Manager) Login(ctx context.Context, studentID, email, mobile string) (Context, error) {
	if studentID == "" {
		return Context{}, errors.NewSessionNotFoundError("")
	}
	now := m.now().UTC()
	sc := Context{
		SessionID: uuid.NewString(),
		StudentID: studentID,
		Email:     email,
		Mobile:    mobile,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sc, m.ttl); err != nil {
		return Context{}, errors.NewCacheUnavailableError(err)
	}
	m.logger.Info("session started", map[string]interface{}{"sessionId": sc.SessionID, "studentId": studentID})
	return sc, nil
}

// Load resolves a session, rejecting expired ones.
func (m *Manager) Load(ctx context.Context, sessionID string) (Context, error) {
	sc, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return Context{}, err
	}
	if sc.Expired(m.now()) {
		_ = m.store.Delete(ctx, sessionID)
		return Context{}, errors.NewSessionExpiredError(sessionID)
	}
	return sc, nil
}

func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	m.logger.Info("session cleared", map[string]interface{}{"sessionId": sessionID})
	return nil
}
