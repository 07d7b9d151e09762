// Package filter is the gateway's delegated authentication step. Each
// request runs through a fixed pipeline of named stages:
//
//	bypass  -> allow-listed path prefixes go through untouched
//	extract -> a "Bearer <token>" Authorization header is required
//	verify  -> the token is checked by a Verifier under a deadline
//	rewrite -> the request is cloned with X-User-Name set to the subject
//
// Evaluate is pure with respect to the request: it never mutates it.
package filter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/verifier"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
)

const (
	StageBypass  = "bypass"
	StageExtract = "extract"
	StageVerify  = "verify"
	StageRewrite = "rewrite"

	DefaultVerifyTimeout = 3 * time.Second
)

const (
	msgMissingToken = "Missing or invalid Authorization header"
	msgInvalidToken = "Invalid or expired token"
)

type Decision int

const (
	DecisionBypass Decision = iota
	DecisionReject
	DecisionForward
)

func (d Decision) String() string {
	switch d {
	case DecisionBypass:
		return "bypass"
	case DecisionReject:
		return "reject"
	case DecisionForward:
		return "forward"
	default:
		return "unknown"
	}
}

// Outcome is the verdict for one request. Request is what should be sent
// upstream (the original for bypass, a rewritten clone for forward, nil
// for reject).
type Outcome struct {
	Decision Decision
	Stage    string
	Request  *http.Request
	Subject  string
	Message  string
	Err      error
}

type evaluation struct {
	req     *http.Request
	token   string
	subject string
}

type stage struct {
	name string
	run  func(ctx context.Context, e *evaluation) *Outcome
}

type Pipeline struct {
	publicPrefixes []string
	verifier       verifier.Verifier
	timeout        time.Duration
	metrics        *metrics.Metrics
	stages         []stage
}

type Option func(*Pipeline)

func WithMetrics(m *metrics.Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

// NewPipeline builds the pipeline. A non-positive timeout selects
// DefaultVerifyTimeout.
func NewPipeline(v verifier.Verifier, publicPrefixes []string, timeout time.Duration, opts ...Option) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultVerifyTimeout
	}
	p := &Pipeline{
		publicPrefixes: publicPrefixes,
		verifier:       v,
		timeout:        timeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.stages = []stage{
		{StageBypass, p.bypass},
		{StageExtract, p.extract},
		{StageVerify, p.verify},
		{StageRewrite, p.rewrite},
	}
	return p
}

// Evaluate runs the stages in order until one of them decides.
func (p *Pipeline) Evaluate(ctx context.Context, r *http.Request) Outcome {
	e := &evaluation{req: r}
	for _, s := range p.stages {
		if out := s.run(ctx, e); out != nil {
			out.Stage = s.name
			return *out
		}
	}
	// rewrite always decides
	return Outcome{Decision: DecisionReject, Message: msgInvalidToken}
}

func (p *Pipeline) bypass(_ context.Context, e *evaluation) *Outcome {
	for _, prefix := range p.publicPrefixes {
		if strings.HasPrefix(e.req.URL.Path, prefix) {
			return &Outcome{Decision: DecisionBypass, Request: e.req}
		}
	}
	return nil
}

func (p *Pipeline) extract(_ context.Context, e *evaluation) *Outcome {
	token, ok := common.BearerToken(e.req.Header.Get(common.AuthorizationHeader))
	if !ok {
		return &Outcome{Decision: DecisionReject, Message: msgMissingToken}
	}
	e.token = token
	return nil
}

func (p *Pipeline) verify(ctx context.Context, e *evaluation) *Outcome {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	subject, err := p.verifier.Verify(ctx, e.token)
	p.metrics.ObserveVerify(time.Since(start), err)

	if err == nil && subject == "" {
		err = common.ErrorUnauthorized
	}
	if err != nil {
		return &Outcome{Decision: DecisionReject, Message: msgInvalidToken, Err: err}
	}
	e.subject = subject
	return nil
}

func (p *Pipeline) rewrite(ctx context.Context, e *evaluation) *Outcome {
	out := e.req.Clone(ctx)
	out.Header.Set(common.TrustedIdentityHeader, e.subject)
	return &Outcome{Decision: DecisionForward, Request: out, Subject: e.subject}
}
