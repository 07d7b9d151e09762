package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/common"
)

type validateResponse struct {
	Status   string `json:"status"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// HTTP posts the token to the identity service's /auth/validate.
type HTTP struct {
	client *http.Client
	url    string
}

// NewHTTP uses http.DefaultClient when client is nil. Deadlines come from
// the request context.
func NewHTTP(client *http.Client, validateURL string) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client, url: validateURL}
}

func (h *HTTP) Verify(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	req.Header.Set(common.AuthorizationHeader, common.BearerScheme+" "+token)

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrTransportFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w: identity service answered %s", common.ErrTransportFailure, resp.Status)
	}

	var body validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: undecodable validate response: %w", common.ErrTransportFailure, err)
	}

	if resp.StatusCode != http.StatusOK || body.Status != "success" || body.Username == "" {
		return "", fmt.Errorf("%w: %s", common.ErrorUnauthorized, body.Message)
	}
	return body.Username, nil
}
