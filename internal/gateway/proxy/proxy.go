// Package proxy forwards gateway requests to upstream services by path
// prefix.
package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sort"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/config"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/logging"
	"github.com/gorilla/mux"
)

// NewRouter registers one reverse proxy per route on r. Longer prefixes
// win over shorter ones. Path, query and headers are preserved.
func NewRouter(r *mux.Router, routes []config.Route, l logging.Logger) error {
	sorted := append([]config.Route(nil), routes...)
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i].Prefix) > len(sorted[j].Prefix) })

	for _, route := range sorted {
		target, err := url.Parse(route.Upstream)
		if err != nil {
			return fmt.Errorf("route %s: %w", route.Prefix, err)
		}
		r.PathPrefix(route.Prefix).Handler(newReverseProxy(target, l))
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "no route")
	})
	return nil
}

func newReverseProxy(target *url.URL, l logging.Logger) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			req.URL.Scheme = target.Scheme
			req.URL.Host = target.Host
			req.Host = target.Host
		},
		ErrorHandler: func(w http.ResponseWriter, req *http.Request, err error) {
			l.Warn(req.Context(), "upstream unavailable", "upstream", target.Host, "path", req.URL.Path, "error", err)
			writeError(w, http.StatusBadGateway, "upstream unavailable")
		},
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
