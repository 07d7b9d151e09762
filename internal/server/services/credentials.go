// Package services contains the identity service business logic.
// CredentialService owns signup confirmation, login and password reset:
// the ephemeral credentials (OTP, reset token) and the session tokens
// issued once an identity proves itself.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/auth"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/cryptox"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/dbx"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/config"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/events"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/models"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/notify"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/server/repositories/repomanager"
)

const (
	signupAckMessage = "OTP sent to your email"
	resetAckMessage  = "If the email is registered, a password reset link has been sent"

	resetTokenBytes = 32 // 64 hex chars
)

// SignupAck never carries the code itself.
type SignupAck struct {
	IdentityID string
	Message    string
}

type Ack struct {
	Message string
}

// Tokens issues and verifies session tokens.
type Tokens interface {
	Issue(ctx context.Context, id auth.Identity) (string, error)
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

// AttemptLimiter bounds OTP guesses per identity.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

type CredentialService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tokens      Tokens
	hasher      cryptox.PasswordHasher
	logger      logging.Logger

	notifier  notify.Notifier
	publisher events.Publisher
	limiter   AttemptLimiter
	metrics   *metrics.Metrics
	now       func() time.Time

	otpValidity   time.Duration
	resetValidity time.Duration
	resetLinkBase string
}

type Option func(*CredentialService)

func WithNotifier(n notify.Notifier) Option   { return func(s *CredentialService) { s.notifier = n } }
func WithPublisher(p events.Publisher) Option { return func(s *CredentialService) { s.publisher = p } }
func WithLimiter(l AttemptLimiter) Option     { return func(s *CredentialService) { s.limiter = l } }
func WithMetrics(m *metrics.Metrics) Option   { return func(s *CredentialService) { s.metrics = m } }
func WithClock(now func() time.Time) Option   { return func(s *CredentialService) { s.now = now } }

// NewCredentialService wires the service. Without options notifications
// are logged, events are dropped and OTP attempts are not limited.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, tokens Tokens,
	hasher cryptox.PasswordHasher, cfg *config.Config, l logging.Logger, opts ...Option) *CredentialService {

	s := &CredentialService{
		db:            db,
		repomanager:   m,
		tokens:        tokens,
		hasher:        hasher,
		logger:        l.With("module", "credentials"),
		publisher:     events.NopPublisher{},
		now:           time.Now,
		otpValidity:   cfg.OTPValidity,
		resetValidity: cfg.ResetTokenValidity,
		resetLinkBase: cfg.ResetLinkBaseURL,
	}
	s.notifier = notify.NewLogNotifier(l)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestSignup registers a PENDING identity and sends it a signup code.
func (s *CredentialService) RequestSignup(ctx context.Context, username, email, password string) (*SignupAck, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	if username == "" || password == "" || !strings.Contains(email, "@") {
		return nil, common.ErrorValidation
	}

	exists, err := s.repomanager.Identities(s.db).Exists(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("error checking identity: %w", err)
	}
	if exists {
		return nil, common.ErrAlreadyExists
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	code, err := common.GenerateOTP()
	if err != nil {
		return nil, fmt.Errorf("error generating otp: %w", err)
	}
	expiresAt := s.now().Add(s.otpValidity)

	var identity *models.Identity
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		identity, err = s.repomanager.Identities(tx).Create(ctx, &models.Identity{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Status:       models.StatusPending,
		})
		if err != nil {
			return err
		}
		return s.repomanager.Credentials(tx).Upsert(ctx, &models.EphemeralCredential{
			Kind:       models.KindSignupOTP,
			IdentityID: identity.ID,
			Value:      code,
			ExpiresAt:  expiresAt,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, common.ErrAlreadyExists
		}
		return nil, fmt.Errorf("error creating identity: %w", err)
	}

	s.deliver(ctx, notify.Message{
		Kind:       notify.KindSignupOTP,
		IdentityID: identity.ID,
		To:         identity.Email,
		Username:   identity.Username,
		Code:       code,
		ExpiresAt:  expiresAt,
	})

	s.logger.Info(ctx, "signup requested", "identity_id", identity.ID)
	return &SignupAck{IdentityID: identity.ID, Message: signupAckMessage}, nil
}

// VerifyOtp redeems the signup code of identityID. Checks run in a fixed
// order: unknown identity, already verified, no code, expired, mismatch.
// On success the identity becomes ACTIVE, the code is destroyed and a
// session token is returned.
func (s *CredentialService) VerifyOtp(ctx context.Context, identityID, code string) (string, error) {
	if s.limiter != nil {
		ok, err := s.limiter.Allow(ctx, identityID)
		if err != nil {
			s.logger.Warn(ctx, "attempt limiter unavailable", "error", err)
		}
		if !ok {
			s.metrics.OTPAttemptRejected()
			return "", common.ErrTooManyAttempts
		}
	}

	now := s.now()
	var (
		identity *models.Identity
		token    string
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		ids := s.repomanager.Identities(tx)
		creds := s.repomanager.Credentials(tx)

		var err error
		identity, err = ids.GetByIDForUpdate(ctx, identityID)
		if err != nil {
			return err
		}
		if identity.Active() {
			return common.ErrAlreadyVerified
		}

		cred, err := creds.FindForUpdate(ctx, models.KindSignupOTP, identityID)
		if err != nil {
			return err
		}
		if cred.Expired(now) {
			return common.ErrExpired
		}
		if !cryptox.EqualSecret(cred.Value, code) {
			return common.ErrMismatch
		}

		if err := ids.Activate(ctx, identityID); err != nil {
			return err
		}
		if err := creds.Delete(ctx, cred.ID); err != nil {
			return err
		}

		token, err = s.tokens.Issue(ctx, auth.Identity{ID: identity.ID, Username: identity.Username})
		return err
	})
	if err != nil {
		s.metrics.CredentialOutcome(string(models.KindSignupOTP), outcomeLabel(err))
		return "", err
	}

	s.metrics.CredentialOutcome(string(models.KindSignupOTP), "redeemed")
	s.metrics.TokenIssued()
	s.resetAttempts(ctx, identityID)
	s.publish(ctx, events.New(events.TypeIdentityActivated, identity.ID, identity.Username, now))
	s.logger.Info(ctx, "identity activated", "identity_id", identity.ID)
	return token, nil
}

// ResendOtp replaces the pending code of identityID with a fresh one and
// a fresh expiry, then delivers it again.
func (s *CredentialService) ResendOtp(ctx context.Context, identityID string) error {
	identity, err := s.repomanager.Identities(s.db).GetByID(ctx, identityID)
	if err != nil {
		return err
	}

	code, err := common.GenerateOTP()
	if err != nil {
		return fmt.Errorf("error generating otp: %w", err)
	}
	expiresAt := s.now().Add(s.otpValidity)

	if err := s.repomanager.Credentials(s.db).Replace(ctx, models.KindSignupOTP, identityID, code, expiresAt); err != nil {
		return err
	}

	s.resetAttempts(ctx, identityID)
	s.deliver(ctx, notify.Message{
		Kind:       notify.KindSignupOTP,
		IdentityID: identity.ID,
		To:         identity.Email,
		Username:   identity.Username,
		Code:       code,
		ExpiresAt:  expiresAt,
	})
	return nil
}

// RequestReset answers the same way whether or not email belongs to an
// ACTIVE identity; only an ACTIVE one actually gets a reset link.
func (s *CredentialService) RequestReset(ctx context.Context, email string) (*Ack, error) {
	ack := &Ack{Message: resetAckMessage}

	identity, err := s.repomanager.Identities(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.logger.Error(ctx, "reset lookup failed", "error", err)
		}
		return ack, nil
	}
	if !identity.Active() {
		return ack, nil
	}

	token, err := common.MakeRandHexString(resetTokenBytes)
	if err != nil {
		s.logger.Error(ctx, "reset token generation failed", "error", err)
		return ack, nil
	}
	expiresAt := s.now().Add(s.resetValidity)

	err = s.repomanager.Credentials(s.db).Upsert(ctx, &models.EphemeralCredential{
		Kind:       models.KindResetToken,
		IdentityID: identity.ID,
		Value:      token,
		ExpiresAt:  expiresAt,
	})
	if err != nil {
		s.logger.Error(ctx, "reset token store failed", "identity_id", identity.ID, "error", err)
		return ack, nil
	}

	s.deliver(ctx, notify.Message{
		Kind:       notify.KindPasswordReset,
		IdentityID: identity.ID,
		To:         identity.Email,
		Username:   identity.Username,
		Link:       s.resetLinkBase + token,
		ExpiresAt:  expiresAt,
	})
	return ack, nil
}

// ConsumeReset redeems a reset token and sets a new password. Checks run
// in a fixed order: unknown token, expired, empty password.
func (s *CredentialService) ConsumeReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return common.ErrorNotFound
	}

	// hash outside the transaction so the row lock is not held while argon2 runs
	var hash string
	if newPassword != "" {
		var err error
		if hash, err = s.hasher.Hash(ctx, newPassword); err != nil {
			return fmt.Errorf("error hashing password: %w", err)
		}
	}

	now := s.now()
	var identityID string
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		creds := s.repomanager.Credentials(tx)

		cred, err := creds.FindByValueForUpdate(ctx, models.KindResetToken, token)
		if err != nil {
			return err
		}
		if cred.Expired(now) {
			return common.ErrExpired
		}
		if newPassword == "" {
			return common.ErrorValidation
		}

		identityID = cred.IdentityID
		if err := s.repomanager.Identities(tx).UpdatePasswordHash(ctx, cred.IdentityID, hash); err != nil {
			return err
		}
		return creds.Delete(ctx, cred.ID)
	})
	if err != nil {
		s.metrics.CredentialOutcome(string(models.KindResetToken), outcomeLabel(err))
		return err
	}

	s.metrics.CredentialOutcome(string(models.KindResetToken), "redeemed")
	s.publish(ctx, events.New(events.TypePasswordReset, identityID, "", now))
	s.logger.Info(ctx, "password reset", "identity_id", identityID)
	return nil
}

// Login accepts an email (anything containing "@") or a username. Unknown
// logins, wrong passwords and PENDING identities are all ErrorUnauthorized.
func (s *CredentialService) Login(ctx context.Context, login, password string) (string, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return "", common.ErrorUnauthorized
	}

	repo := s.repomanager.Identities(s.db)
	var (
		identity *models.Identity
		err      error
	)
	if strings.Contains(login, "@") {
		identity, err = repo.GetByEmail(ctx, login)
	} else {
		identity, err = repo.GetByUsername(ctx, login)
	}
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "login lookup failed", "error", err)
		return "", common.ErrorInternal
	}

	ok, err := s.hasher.Verify(ctx, password, identity.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "stored password hash unreadable", "identity_id", identity.ID, "error", err)
		return "", common.ErrorInternal
	}
	if !ok || !identity.Active() {
		return "", common.ErrorUnauthorized
	}

	token, err := s.tokens.Issue(ctx, auth.Identity{ID: identity.ID, Username: identity.Username})
	if err != nil {
		return "", common.ErrorInternal
	}
	s.metrics.TokenIssued()
	return token, nil
}

// Validate verifies a session token. Errors are *auth.VerificationError.
func (s *CredentialService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	return s.tokens.Verify(ctx, token)
}

// LookupPendingID returns the id of a PENDING identity by email so a
// client that lost it can still reach verify-otp.
func (s *CredentialService) LookupPendingID(ctx context.Context, email string) (string, error) {
	identity, err := s.repomanager.Identities(s.db).GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	if identity.Active() {
		return "", common.ErrorNotFound
	}
	return identity.ID, nil
}

// --- helpers below ---

// deliver runs after the credential is committed. A failed delivery is
// logged; the client can ask for a resend.
func (s *CredentialService) deliver(ctx context.Context, msg notify.Message) {
	err := s.notifier.Notify(ctx, msg)
	s.metrics.Notification(string(msg.Kind), err)
	if err != nil {
		s.logger.Error(ctx, "notification failed", "kind", msg.Kind, "identity_id", msg.IdentityID, "error", err)
	}
}

func (s *CredentialService) publish(ctx context.Context, e events.Event) {
	err := s.publisher.Publish(ctx, e)
	s.metrics.EventPublished(e.Type, err)
	if err != nil {
		s.logger.Warn(ctx, "identity event not published", "type", e.Type, "identity_id", e.IdentityID, "error", err)
	}
}

func (s *CredentialService) resetAttempts(ctx context.Context, identityID string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, identityID); err != nil {
		s.logger.Warn(ctx, "attempt limiter reset failed", "identity_id", identityID, "error", err)
	}
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return "not_found"
	case errors.Is(err, common.ErrAlreadyVerified):
		return "already_verified"
	case errors.Is(err, common.ErrExpired):
		return "expired"
	case errors.Is(err, common.ErrMismatch):
		return "mismatch"
	case errors.Is(err, common.ErrorValidation):
		return "invalid"
	default:
		return "error"
	}
}
