package verification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"trustdocs/internal/config"
)

// ProfileProvider reports whether an owner's profile is complete. The profile
// domain owns this signal; the reconciler always asks live instead of caching,
// because the two domains are only eventually consistent with each other.
type ProfileProvider interface {
	IsComplete(ctx context.Context, ownerID string) (bool, error)
}

// HTTPProfileProvider queries the profile domain's completeness endpoint.
type HTTPProfileProvider struct {
	base   string
	client *http.Client
}

func NewHTTPProfileProvider(cfg config.ProfileConfig) *HTTPProfileProvider {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPProfileProvider{
		base:   cfg.BaseURL,
		client: &http.Client{Timeout: timeout},
	}
}

var _ ProfileProvider = (*HTTPProfileProvider)(nil)

func (p *HTTPProfileProvider) IsComplete(ctx context.Context, ownerID string) (bool, error) {
	u := fmt.Sprintf("%s/profiles/%s/completeness", p.base, url.PathEscape(ownerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("query profile completeness: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("profile completeness returned status %d", resp.StatusCode)
	}
	var body struct {
		Complete bool `json:"complete"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode profile completeness: %w", err)
	}
	return body.Complete, nil
}

// StaticProfileProvider always answers the same. Used when no profile service
// is configured and in tests.
type StaticProfileProvider bool

func (p StaticProfileProvider) IsComplete(context.Context, string) (bool, error) {
	return bool(p), nil
}
