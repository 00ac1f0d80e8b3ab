package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/chrolicious/hoolgg-roster/internal/logging"
	"github.com/chrolicious/hoolgg-roster/internal/reconcile"
)

// Defaults for HTTPClient.
const (
	DefaultAPIBaseURL     = "https://{region}.api.blizzard.com"
	DefaultTokenURL       = "https://{region}.battle.net/oauth/token"
	DefaultRequestTimeout = 15 * time.Second
	DefaultTokenTimeout   = 10 * time.Second
	DefaultLocale         = "en_US"
	DefaultTokenLifetime  = 24 * time.Hour
	DefaultMaxBodyBytes   = 4 << 20

	// TokenExpiryMargin is subtracted from the issued expiry before caching.
	TokenExpiryMargin = 5 * time.Minute

	regionPlaceholder = "{region}"
	maxErrorBody      = 512
)

// Options configures an HTTPClient. Zero values take the defaults above.
// Base URLs may contain "{region}", which is replaced per call.
type Options struct {
	APIBaseURL     string
	TokenURL       string
	RequestTimeout time.Duration
	TokenTimeout   time.Duration
	Locale         string
	MaxBodyBytes   int64 // cap on a decoded response body
	HTTPClient     *http.Client
	Logger         *zap.Logger
	Now            func() time.Time
}

// HTTPClient implements Provider over HTTPS.
type HTTPClient struct {
	apiBaseURL     string
	tokenURL       string
	requestTimeout time.Duration
	tokenTimeout   time.Duration
	locale         string
	maxBodyBytes   int64
	http           *http.Client
	logger         *zap.Logger
	now            func() time.Time
}

var _ Provider = (*HTTPClient)(nil)

// NewHTTPClient returns a client for the live provider API.
func NewHTTPClient(opts Options) *HTTPClient {
	c := &HTTPClient{
		apiBaseURL:     opts.APIBaseURL,
		tokenURL:       opts.TokenURL,
		requestTimeout: opts.RequestTimeout,
		tokenTimeout:   opts.TokenTimeout,
		locale:         opts.Locale,
		maxBodyBytes:   opts.MaxBodyBytes,
		http:           opts.HTTPClient,
		logger:         logging.OrNop(opts.Logger),
		now:            opts.Now,
	}
	if c.apiBaseURL == "" {
		c.apiBaseURL = DefaultAPIBaseURL
	}
	if c.tokenURL == "" {
		c.tokenURL = DefaultTokenURL
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}
	if c.tokenTimeout <= 0 {
		c.tokenTimeout = DefaultTokenTimeout
	}
	if c.locale == "" {
		c.locale = DefaultLocale
	}
	if c.maxBodyBytes <= 0 {
		c.maxBodyBytes = DefaultMaxBodyBytes
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func withRegion(base, region string) string {
	return strings.TrimRight(strings.ReplaceAll(base, regionPlaceholder, region), "/")
}

// Token requests a client-credentials token. The returned expiry already has
// TokenExpiryMargin taken off.
func (c *HTTPClient) Token(ctx context.Context, creds Credentials) (*Token, error) {
	if !creds.Configured() {
		return nil, &Error{Fetch: FetchToken, Message: "no API credentials configured"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.tokenTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)

	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     withRegion(c.tokenURL, creds.Region),
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	tok, err := cfg.Token(ctx)
	if err != nil {
		perr := &Error{Fetch: FetchToken, Message: "token request failed", Cause: err}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			perr.StatusCode = rerr.Response.StatusCode
		}
		return nil, perr
	}

	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = c.now().Add(DefaultTokenLifetime)
	}
	c.logger.Debug("obtained provider token", zap.String("region", creds.Region), zap.Time("expiry", expiry))
	return &Token{AccessToken: tok.AccessToken, Expiry: expiry.Add(-TokenExpiryMargin).UTC()}, nil
}

func characterPath(realm, name string) string {
	return "/profile/wow/character/" + url.PathEscape(RealmSlug(realm)) + "/" + url.PathEscape(CharacterSlug(name))
}

// Equipment fetches the equipped items of a character.
func (c *HTTPClient) Equipment(ctx context.Context, s Session, realm, name string) (*reconcile.EquipmentSnapshot, error) {
	var snap reconcile.EquipmentSnapshot
	if err := c.get(ctx, s, FetchEquipment, characterPath(realm, name)+"/equipment", "profile", &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Profile fetches class and level.
func (c *HTTPClient) Profile(ctx context.Context, s Session, realm, name string) (*reconcile.Profile, error) {
	var p reconcile.Profile
	if err := c.get(ctx, s, FetchProfile, characterPath(realm, name), "profile", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Media fetches character render assets.
func (c *HTTPClient) Media(ctx context.Context, s Session, realm, name string) (*reconcile.Media, error) {
	var m reconcile.Media
	if err := c.get(ctx, s, FetchMedia, characterPath(realm, name)+"/character-media", "profile", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Statistics fetches the raw statistics document.
func (c *HTTPClient) Statistics(ctx context.Context, s Session, realm, name string) (map[string]any, error) {
	var stats map[string]any
	if err := c.get(ctx, s, FetchStatistics, characterPath(realm, name)+"/statistics", "profile", &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

// ItemMedia fetches the icon assets of an item from the static namespace.
func (c *HTTPClient) ItemMedia(ctx context.Context, s Session, itemID int) (*reconcile.Media, error) {
	var m reconcile.Media
	path := "/data/wow/media/item/" + strconv.Itoa(itemID)
	if err := c.get(ctx, s, FetchItemMedia, path, "static", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *HTTPClient) get(ctx context.Context, s Session, fetch, path, namespace string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	q := url.Values{}
	q.Set("namespace", namespace+"-"+s.Region)
	q.Set("locale", c.locale)
	endpoint := withRegion(c.apiBaseURL, s.Region) + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &Error{Fetch: fetch, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Fetch: fetch, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("provider request",
		zap.String("fetch", fetch),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", c.now().Sub(start)))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("provider error response",
			zap.String("fetch", fetch),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return &Error{Fetch: fetch, StatusCode: resp.StatusCode, Message: fmt.Sprintf("API error: %d", resp.StatusCode)}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, c.maxBodyBytes)).Decode(out); err != nil {
		return &Error{Fetch: fetch, Message: "invalid response body", Cause: err}
	}
	return nil
}
