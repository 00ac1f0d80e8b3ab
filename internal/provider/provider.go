// Package provider talks to the external character-data provider: an OAuth
// client-credentials token endpoint plus the character profile and item media
// APIs. Responses are decoded into the snapshot types the reconciler consumes.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/chrolicious/hoolgg-roster/internal/reconcile"
)

// RateLimitHint is reported when the provider throttles the shared credentials.
const RateLimitHint = "Rate limit reached. Consider adding your own API key in Settings for higher limits."

// Fetch names used in errors, logs and metrics.
const (
	FetchToken      = "token"
	FetchEquipment  = "equipment"
	FetchProfile    = "profile"
	FetchMedia      = "media"
	FetchStatistics = "stats"
	FetchItemMedia  = "item_media"
)

// Credentials identify an OAuth client in a region.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Region       string
}

// Configured reports whether both client id and secret are set.
func (c Credentials) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Token is an access token and the time after which it must not be reused.
type Token struct {
	AccessToken string
	Expiry      time.Time
}

// Session carries what every API call needs.
type Session struct {
	Region      string
	AccessToken string
}

// Provider is the external character-data API.
type Provider interface {
	Token(ctx context.Context, creds Credentials) (*Token, error)
	Equipment(ctx context.Context, s Session, realm, name string) (*reconcile.EquipmentSnapshot, error)
	Profile(ctx context.Context, s Session, realm, name string) (*reconcile.Profile, error)
	Media(ctx context.Context, s Session, realm, name string) (*reconcile.Media, error)
	Statistics(ctx context.Context, s Session, realm, name string) (map[string]any, error)
	ItemMedia(ctx context.Context, s Session, itemID int) (*reconcile.Media, error)
}

// Error is a failed provider call.
type Error struct {
	Fetch      string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Fetch, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Fetch, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// RateLimited reports whether the provider answered 429.
func (e *Error) RateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRateLimited reports whether err is a throttled provider call.
func IsRateLimited(err error) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.RateLimited()
}

// RealmSlug converts a realm display name to its URL slug: lowercase, spaces
// to hyphens, apostrophes dropped and diacritics stripped.
func RealmSlug(realm string) string {
	slug := stripMarks(strings.ToLower(strings.TrimSpace(realm)))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, "'", "")
	return slug
}

// CharacterSlug lowercases a character name.
func CharacterSlug(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func stripMarks(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Details holds the three fetches that follow a successful equipment fetch.
// Each result is independent: a failed fetch leaves its value nil.
type Details struct {
	Profile    *reconcile.Profile
	ProfileErr error
	Media      *reconcile.Media
	MediaErr   error
	Stats      map[string]any
	StatsErr   error
}

// FetchDetails runs the profile, media and statistics fetches concurrently.
// One failure never cancels the others.
func FetchDetails(ctx context.Context, p Provider, s Session, realm, name string) Details {
	var d Details
	var g errgroup.Group
	g.Go(func() error {
		d.Profile, d.ProfileErr = p.Profile(ctx, s, realm, name)
		return nil
	})
	g.Go(func() error {
		d.Media, d.MediaErr = p.Media(ctx, s, realm, name)
		return nil
	})
	g.Go(func() error {
		d.Stats, d.StatsErr = p.Statistics(ctx, s, realm, name)
		return nil
	})
	_ = g.Wait()
	return d
}
