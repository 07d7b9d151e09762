// Package notify delivers out-of-band messages (signup codes, reset links)
// to identities. Rendering and sending the actual email is done by a
// separate mail worker consuming the queue.
package notify

import (
	"context"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
)

type Kind string

const (
	KindSignupOTP     Kind = "signup_otp"
	KindPasswordReset Kind = "password_reset"
)

// Message is the job payload. Exactly one of Code or Link is set.
type Message struct {
	Kind       Kind      `json:"kind"`
	IdentityID string    `json:"identityId"`
	To         string    `json:"to"`
	Username   string    `json:"username"`
	Code       string    `json:"code,omitempty"`
	Link       string    `json:"link,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// LogNotifier writes messages to the log instead of delivering them.
// Secrets are only logged at debug level.
type LogNotifier struct {
	logger logging.Logger
}

func NewLogNotifier(l logging.Logger) *LogNotifier {
	return &LogNotifier{logger: l.With("module", "notify")}
}

func (n *LogNotifier) Notify(ctx context.Context, msg Message) error {
	n.logger.Info(ctx, "notification", "kind", msg.Kind, "identity_id", msg.IdentityID, "to", msg.To)
	n.logger.Debug(ctx, "notification secret", "kind", msg.Kind, "code", msg.Code, "link", msg.Link)
	return nil
}
