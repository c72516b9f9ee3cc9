package googfit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// DefaultTimeout bounds every outbound request when no client is supplied
const DefaultTimeout = 30 * time.Second

// TokenOption configures a TokenManager
type TokenOption func(*TokenManager)

// WithHTTPClient sets the client used for both the token endpoint and dataset requests
func WithHTTPClient(client *http.Client) TokenOption {
	return func(t *TokenManager) {
		t.client = client
	}
}

// WithMetrics counts refreshes and requests
func WithMetrics(metrics *Metrics) TokenOption {
	return func(t *TokenManager) {
		t.metrics = metrics
	}
}

// NewHTTPClient returns a traced client with the default timeout
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// TokenManager keeps a valid access token for outbound requests.
// It is safe for concurrent use.
type TokenManager struct {
	config       *oauth2.Config
	refreshToken string
	client       *http.Client
	metrics      *Metrics

	mu        sync.Mutex
	token     *oauth2.Token
	refreshes int
}

// NewTokenManager exchanges the refresh token for an access token before returning
func NewTokenManager(ctx context.Context, config *oauth2.Config, refreshToken string, opts ...TokenOption) (*TokenManager, error) {
	if refreshToken == "" {
		return nil, &AuthError{Op: "refresh", Err: errors.New("missing refresh token")}
	}
	cfg := *config
	if cfg.Endpoint.AuthStyle == oauth2.AuthStyleAutoDetect {
		// client credentials travel as form fields
		cfg.Endpoint.AuthStyle = oauth2.AuthStyleInParams
	}
	t := &TokenManager{
		config:       &cfg,
		refreshToken: refreshToken,
		client:       NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if _, err := t.Refresh(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// AccessToken returns the current access token
func (t *TokenManager) AccessToken() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token == nil {
		return ""
	}
	return t.token.AccessToken
}

// Refreshes returns the number of successful refreshes
func (t *TokenManager) Refreshes() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refreshes
}

// Refresh exchanges the refresh token for a new access token
func (t *TokenManager) Refresh(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.refresh(ctx)
}

// refreshStale refreshes unless another caller already replaced `stale`
func (t *TokenManager) refreshStale(ctx context.Context, stale string) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != nil && t.token.AccessToken != stale {
		log.Debug().Msg("access token already refreshed")
		return t.token.AccessToken, nil
	}
	return t.refresh(ctx)
}

// refresh must be called with mu held
func (t *TokenManager) refresh(c context.Context) (_ string, err error) {
	ctx, span := tracer.Start(c, "googfit.token.refresh")
	defer func() {
		endSpan(span, err)
	}()

	ctx = context.WithValue(ctx, oauth2.HTTPClient, t.client)
	src := t.config.TokenSource(ctx, &oauth2.Token{RefreshToken: t.refreshToken})
	tok, err := src.Token()
	t.metrics.refreshed(err)
	if err != nil {
		log.Error().Err(err).Msg("refresh")
		return "", tokenError("refresh", err)
	}
	t.token = tok
	t.refreshes++
	log.Info().Int("refreshes", t.refreshes).Time("expiry", tok.Expiry).Msg("refresh")
	return tok.AccessToken, nil
}

// AuthorizedGet issues a GET with the current access token. An unauthorized
// response triggers exactly one refresh and one retry.
func (t *TokenManager) AuthorizedGet(c context.Context, url string) (_ []byte, err error) {
	ctx, span := tracer.Start(c, "googfit.token.authorizedGet")
	defer func() {
		endSpan(span, err)
	}()

	access := t.AccessToken()
	status, body, err := t.get(ctx, url, access)
	if err != nil {
		return nil, err
	}
	if status != http.StatusUnauthorized {
		return body, nil
	}

	log.Info().Str("url", url).Msg("unauthorized, refreshing access token")
	if access, err = t.refreshStale(ctx, access); err != nil {
		return nil, err
	}
	status, body, err = t.get(ctx, url, access)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		return nil, &AuthError{Op: "get", Err: fmt.Errorf("%w: %s", ErrUnauthorized, body)}
	}
	return body, nil
}

// get returns the status and body of a 2xx or 401 response, anything else is a RequestError
func (t *TokenManager) get(ctx context.Context, url, access string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+access)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("http client do: %w", err)
	}
	defer res.Body.Close()

	elapsed := time.Since(start)
	t.metrics.request(res.StatusCode, elapsed.Seconds())
	log.Debug().Str("url", url).Int("status", res.StatusCode).Dur("elapsed", elapsed).Msg("get")

	if res.StatusCode != http.StatusUnauthorized {
		if err = googleapi.CheckResponse(res); err != nil {
			rerr := &RequestError{StatusCode: res.StatusCode, Err: err}
			var gerr *googleapi.Error
			if errors.As(err, &gerr) {
				rerr.Body = gerr.Body
			}
			return res.StatusCode, nil, rerr
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return res.StatusCode, body, nil
}

// Exchange trades a one-time authorization code for a token carrying a refresh token
func Exchange(ctx context.Context, config *oauth2.Config, code string, client *http.Client) (*oauth2.Token, error) {
	if client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	}
	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, tokenError("exchange", err)
	}
	return tok, nil
}

// tokenError classifies a token endpoint failure: a rejected credential
// (400 or 401) is an AuthError, any other status is a RequestError
func tokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if re.Response == nil {
		if re.ErrorCode != "" {
			return &AuthError{Op: op, Err: err}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	switch re.Response.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized:
		return &AuthError{Op: op, Err: err}
	default:
		return &RequestError{StatusCode: re.Response.StatusCode, Body: string(re.Body), Err: err}
	}
}
