package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/dbx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/events"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/notify"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/credentials"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/identities"
)

type nopLogger struct{}

func (n nopLogger) Debug(context.Context, string, ...any) {}
func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

// --- identities ---

type fakeIdentities struct {
	mu        sync.Mutex
	seq       int
	rows      map[string]*models.Identity
	createErr error
	getErr    error
}

func newFakeIdentities() *fakeIdentities {
	return &fakeIdentities{rows: map[string]*models.Identity{}}
}

func (f *fakeIdentities) add(username, email, hash string, status models.IdentityStatus) *models.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	i := &models.Identity{
		ID:           fmt.Sprintf("00000000-0000-4000-8000-%012d", f.seq),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Status:       status,
	}
	f.rows[i.ID] = i
	cp := *i
	return &cp
}

func (f *fakeIdentities) Create(_ context.Context, identity *models.Identity) (*models.Identity, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, r := range f.rows {
		if r.Username == identity.Username || strings.EqualFold(r.Email, identity.Email) {
			return nil, common.ErrAlreadyExists
		}
	}
	return f.add(identity.Username, identity.Email, identity.PasswordHash, identity.Status), nil
}

func (f *fakeIdentities) find(match func(*models.Identity) bool) (*models.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, r := range f.rows {
		if match(r) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeIdentities) GetByID(_ context.Context, id string) (*models.Identity, error) {
	return f.find(func(i *models.Identity) bool { return i.ID == id })
}

func (f *fakeIdentities) GetByIDForUpdate(ctx context.Context, id string) (*models.Identity, error) {
	return f.GetByID(ctx, id)
}

func (f *fakeIdentities) GetByUsername(_ context.Context, username string) (*models.Identity, error) {
	return f.find(func(i *models.Identity) bool { return i.Username == username })
}

func (f *fakeIdentities) GetByEmail(_ context.Context, email string) (*models.Identity, error) {
	return f.find(func(i *models.Identity) bool { return strings.EqualFold(i.Email, email) })
}

func (f *fakeIdentities) Exists(_ context.Context, username, email string) (bool, error) {
	_, err := f.find(func(i *models.Identity) bool {
		return i.Username == username || strings.EqualFold(i.Email, email)
	})
	if err == common.ErrorNotFound {
		return false, nil
	}
	return err == nil, err
}

func (f *fakeIdentities) Activate(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.Status != models.StatusPending {
		return common.ErrorNotFound
	}
	r.Status = models.StatusActive
	return nil
}

func (f *fakeIdentities) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok {
		return common.ErrorNotFound
	}
	r.PasswordHash = hash
	return nil
}

func (f *fakeIdentities) get(id string) *models.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.rows[id]
	return &cp
}

// --- credentials ---

type fakeCredentials struct {
	mu        sync.Mutex
	seq       int
	rows      map[string]*models.EphemeralCredential
	upsertErr error
}

func newFakeCredentials() *fakeCredentials {
	return &fakeCredentials{rows: map[string]*models.EphemeralCredential{}}
}

func credKey(kind models.CredentialKind, identityID string) string {
	return string(kind) + "|" + identityID
}

func (f *fakeCredentials) Upsert(_ context.Context, c *models.EphemeralCredential) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	c.ID = fmt.Sprintf("cred-%d", f.seq)
	cp := *c
	f.rows[credKey(c.Kind, c.IdentityID)] = &cp
	return nil
}

func (f *fakeCredentials) Replace(_ context.Context, kind models.CredentialKind, identityID, value string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[credKey(kind, identityID)]
	if !ok {
		return common.ErrorNotFound
	}
	r.Value = value
	r.ExpiresAt = expiresAt
	return nil
}

func (f *fakeCredentials) FindForUpdate(_ context.Context, kind models.CredentialKind, identityID string) (*models.EphemeralCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[credKey(kind, identityID)]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeCredentials) FindByValueForUpdate(_ context.Context, kind models.CredentialKind, value string) (*models.EphemeralCredential, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.Kind == kind && r.Value == value {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeCredentials) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, r := range f.rows {
		if r.ID == id {
			delete(f.rows, k)
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeCredentials) DeleteExpiredBefore(_ context.Context, kind models.CredentialKind, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for k, r := range f.rows {
		if r.Kind == kind && r.ExpiresAt.Before(now) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

func (f *fakeCredentials) lookup(kind models.CredentialKind, identityID string) (*models.EphemeralCredential, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[credKey(kind, identityID)]
	if !ok {
		return nil, false
	}
	cp := *r
	return &cp, true
}

// --- manager ---

type fakeRepoManager struct {
	ids   *fakeIdentities
	creds *fakeCredentials
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error  { return nil }
func (m *fakeRepoManager) Identities(dbx.DBTX) identities.Repository   { return m.ids }
func (m *fakeRepoManager) Credentials(dbx.DBTX) credentials.Repository { return m.creds }

// --- side channels ---

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, msg notify.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return f.err
}

func (f *fakeNotifier) last() notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, e events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.err
}

func (f *fakePublisher) Close() error { return nil }

type fakeLimiter struct {
	allow  bool
	err    error
	calls  int
	resets []string
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, error) {
	f.calls++
	return f.allow, f.err
}

func (f *fakeLimiter) Reset(_ context.Context, key string) error {
	f.resets = append(f.resets, key)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }
