package filter

import (
	"encoding/json"
	"net/http"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/metrics"
)

// Filter applies a Pipeline in front of an http.Handler.
type Filter struct {
	pipeline *Pipeline
	logger   logging.Logger
	metrics  *metrics.Metrics
}

func New(p *Pipeline, l logging.Logger, m *metrics.Metrics) *Filter {
	return &Filter{pipeline: p, logger: l.With("module", "auth_filter"), metrics: m}
}

// Handler forwards bypassed and verified requests to next. A rejected
// request gets a 401 and next is never called.
func (f *Filter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		out := f.pipeline.Evaluate(r.Context(), r)
		f.metrics.FilterDecision(out.Decision.String())

		switch out.Decision {
		case DecisionBypass, DecisionForward:
			next.ServeHTTP(w, out.Request)
		default:
			f.logger.Debug(r.Context(), "request rejected",
				"path", r.URL.Path, "stage", out.Stage, "error", out.Err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "failed", "message": out.Message})
		}
	})
}
