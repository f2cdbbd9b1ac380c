package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

// Result reports a successful publish.
type Result struct {
	ExternalPostID string
}

// Publisher posts content to an external platform.
type Publisher interface {
	Publish(ctx context.Context, platform, content string) (Result, error)
}

// Credentials carries what a platform call needs to authenticate.
type Credentials struct {
	AccessToken string
}

// CredentialsProvider resolves platform credentials at publish time.
type CredentialsProvider interface {
	Credentials(platform string) (Credentials, error)
}

// ConfigCredentials resolves tokens from the loaded configuration.
type ConfigCredentials struct {
	cfg *config.Config
}

// NewConfigCredentials wraps the config as a credentials source.
func NewConfigCredentials(cfg *config.Config) *ConfigCredentials {
	return &ConfigCredentials{cfg: cfg}
}

// Credentials returns the platform's access token or a configuration error.
func (p *ConfigCredentials) Credentials(platform string) (Credentials, error) {
	settings, ok := p.cfg.PlatformFor(platform)
	if !ok || !settings.Enabled {
		return Credentials{}, services.Wrap(services.ErrConfiguration, "publishing", "credentials",
			fmt.Sprintf("platform %q is not configured", platform), nil)
	}
	if settings.AccessToken == "" {
		return Credentials{}, services.Wrap(services.ErrConfiguration, "publishing", "credentials",
			fmt.Sprintf("platform %q has no access token", platform), nil)
	}
	return Credentials{AccessToken: settings.AccessToken}, nil
}

// HTTPPublisher posts content over each platform's JSON API.
type HTTPPublisher struct {
	cfg        *config.Config
	creds      CredentialsProvider
	httpClient *http.Client
}

// Option customizes the publisher.
type Option func(*HTTPPublisher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPPublisher) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// NewHTTPPublisher builds a publisher over the configured platforms.
func NewHTTPPublisher(cfg *config.Config, creds CredentialsProvider, opts ...Option) *HTTPPublisher {
	publisher := &HTTPPublisher{
		cfg:        cfg,
		creds:      creds,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(publisher)
	}
	return publisher
}

// Publish validates the request against platform settings, resolves
// credentials, and performs the platform call.
func (p *HTTPPublisher) Publish(ctx context.Context, platform, content string) (Result, error) {
	var empty Result
	platform = strings.ToLower(strings.TrimSpace(platform))

	settings, ok := p.cfg.PlatformFor(platform)
	if !ok || !settings.Enabled {
		return empty, services.Wrap(services.ErrValidation, "publishing", "publish",
			fmt.Sprintf("unsupported platform %q", platform), nil)
	}
	if strings.TrimSpace(content) == "" {
		return empty, services.Wrap(services.ErrValidation, "publishing", "publish", "content is empty", nil)
	}
	if settings.MaxContentLength > 0 {
		if length := len([]rune(content)); length > settings.MaxContentLength {
			return empty, services.Wrap(services.ErrValidation, "publishing", "publish",
				fmt.Sprintf("content length %d exceeds %s ceiling %d", length, platform, settings.MaxContentLength), nil)
		}
	}

	creds, err := p.creds.Credentials(platform)
	if err != nil {
		return empty, err
	}

	endpoint, body, err := buildPlatformRequest(platform, settings.BaseURL, content)
	if err != nil {
		return empty, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return empty, fmt.Errorf("publish request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	timeout := time.Duration(settings.RequestTimeoutSecs) * time.Second
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "publishing", "publish", "platform call failed", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "publishing", "publish", "read platform response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return empty, services.RateLimited(platform, retryAfterFrom(resp, settings))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return empty, services.Wrap(services.ErrConfiguration, "publishing", "publish",
			fmt.Sprintf("%s rejected credentials (http %d)", platform, resp.StatusCode), nil)
	case resp.StatusCode >= http.StatusInternalServerError:
		return empty, services.Wrap(services.ErrTransient, "publishing", "publish",
			fmt.Sprintf("%s server error (http %d): %s", platform, resp.StatusCode, snippet(respBody)), nil)
	case resp.StatusCode >= http.StatusBadRequest:
		return empty, services.Wrap(services.ErrValidation, "publishing", "publish",
			fmt.Sprintf("%s rejected request (http %d): %s", platform, resp.StatusCode, snippet(respBody)), nil)
	}

	externalID, err := parsePlatformResponse(platform, respBody)
	if err != nil {
		return empty, services.Wrap(services.ErrTransient, "publishing", "publish", "parse platform response", err)
	}
	return Result{ExternalPostID: externalID}, nil
}

func buildPlatformRequest(platform, baseURL, content string) (string, []byte, error) {
	switch platform {
	case "twitter":
		body, err := json.Marshal(map[string]string{"text": content})
		if err != nil {
			return "", nil, fmt.Errorf("encode tweet: %w", err)
		}
		return baseURL + "/tweets", body, nil
	case "linkedin":
		payload := map[string]any{
			"lifecycleState": "PUBLISHED",
			"specificContent": map[string]any{
				"com.linkedin.ugc.ShareContent": map[string]any{
					"shareCommentary":    map[string]string{"text": content},
					"shareMediaCategory": "NONE",
				},
			},
			"visibility": map[string]string{
				"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
			},
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return "", nil, fmt.Errorf("encode share: %w", err)
		}
		return baseURL + "/ugcPosts", body, nil
	default:
		return "", nil, services.Wrap(services.ErrValidation, "publishing", "publish",
			fmt.Sprintf("no request builder for platform %q", platform), nil)
	}
}

func parsePlatformResponse(platform string, body []byte) (string, error) {
	switch platform {
	case "twitter":
		var parsed struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", err
		}
		if parsed.Data.ID == "" {
			return "", fmt.Errorf("twitter response missing post id: %s", snippet(body))
		}
		return parsed.Data.ID, nil
	case "linkedin":
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", err
		}
		if parsed.ID == "" {
			return "", fmt.Errorf("linkedin response missing post id: %s", snippet(body))
		}
		return parsed.ID, nil
	default:
		return "", fmt.Errorf("no response parser for platform %q", platform)
	}
}

func retryAfterFrom(resp *http.Response, settings config.Platform) time.Duration {
	if value := strings.TrimSpace(resp.Header.Get("Retry-After")); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
			return time.Duration(seconds) * time.Second
		}
		if when, err := http.ParseTime(value); err == nil {
			if delay := time.Until(when); delay > 0 {
				return delay
			}
		}
	}
	if settings.RateWindowSeconds > 0 {
		return time.Duration(settings.RateWindowSeconds) * time.Second
	}
	return time.Minute
}

func snippet(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	trimmed = strings.Join(strings.Fields(trimmed), " ")
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
