// Package roster implements the operations on the roster document. Every
// mutating operation runs as one load, mutate, save transaction on the store.
package roster

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/derive"
	"github.com/chrolicious/hoolgg-roster/internal/logging"
	"github.com/chrolicious/hoolgg-roster/internal/metrics"
	"github.com/chrolicious/hoolgg-roster/internal/provider"
	"github.com/chrolicious/hoolgg-roster/internal/season"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// Store is the persisted document. Update saves only when fn returns nil.
type Store interface {
	Update(ctx context.Context, fn func(*types.RosterDocument) error) error
	View(ctx context.Context, fn func(*types.RosterDocument) error) error
}

// Service exposes the roster operations.
type Service struct {
	store    Store
	provider provider.Provider
	calendar *season.Calendar
	shared   provider.Credentials
	logger   *zap.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithProvider sets the character-data provider used by sync operations.
func WithProvider(p provider.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithCalendar replaces the built-in season calendar.
func WithCalendar(cal *season.Calendar) Option {
	return func(s *Service) { s.calendar = cal }
}

// WithSharedCredentials sets the client used in shared credential mode.
func WithSharedCredentials(clientID, clientSecret string) Option {
	return func(s *Service) {
		s.shared = provider.Credentials{ClientID: clientID, ClientSecret: clientSecret}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMetrics records sync fetch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a Service on top of store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:    store,
		calendar: season.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.OrNop(s.logger)
	return s
}

// Calendar returns the season calendar in use.
func (s *Service) Calendar() *season.Calendar {
	return s.calendar
}

// Document returns the full document with derived fields and the current
// week's target, crest cap and task plan.
func (s *Service) Document(ctx context.Context) (derive.View, error) {
	var view derive.View
	err := s.store.View(ctx, func(doc *types.RosterDocument) error {
		view = derive.Snapshot(doc, s.calendar)
		return nil
	})
	return view, err
}

// Character returns one character.
func (s *Service) Character(ctx context.Context, id int) (*types.Character, error) {
	var c *types.Character
	err := s.store.View(ctx, func(doc *types.RosterDocument) error {
		var err error
		c, err = lookup(doc, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// SetWeek changes the current week. Moving to a different week clears daily
// tasks and seeds the new week's entries for every character.
func (s *Service) SetWeek(ctx context.Context, req types.WeekRequest) (types.Meta, error) {
	if err := types.Validate(req); err != nil {
		return types.Meta{}, validationError(err)
	}
	var meta types.Meta
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		changed, err := derive.AdvanceWeek(doc, *req.CurrentWeek)
		if err != nil {
			if errors.Is(err, derive.ErrWeekOutOfRange) {
				return &ErrValidation{Field: "current_week", Message: err.Error()}
			}
			return err
		}
		if changed {
			s.logger.Info("advanced week", zap.Int("week", doc.Meta.CurrentWeek))
		}
		meta = doc.Meta
		return nil
	})
	return meta, err
}

// ResetDaily clears every character's daily tasks.
func (s *Service) ResetDaily(ctx context.Context) error {
	return s.store.Update(ctx, func(doc *types.RosterDocument) error {
		derive.ResetDaily(doc)
		return nil
	})
}

// UpdateCredentials edits the provider credentials. Any update drops the
// cached token.
func (s *Service) UpdateCredentials(ctx context.Context, req types.CredentialsUpdate) error {
	if err := types.Validate(req); err != nil {
		return validationError(err)
	}
	return s.store.Update(ctx, func(doc *types.RosterDocument) error {
		cfg := &doc.APIConfig
		if req.CredentialMode != nil {
			cfg.CredentialMode = *req.CredentialMode
		}
		if req.ClientID != nil {
			cfg.ClientID = *req.ClientID
		}
		if req.ClientSecret != nil {
			cfg.ClientSecret = *req.ClientSecret
		}
		if req.Region != nil {
			cfg.Region = *req.Region
		}
		cfg.InvalidateToken()
		return nil
	})
}

// character is Update narrowed to one character. fn runs only when the
// character exists.
func (s *Service) character(ctx context.Context, id int, fn func(doc *types.RosterDocument, c *types.Character) error) (*types.Character, error) {
	var out *types.Character
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		c, err := lookup(doc, id)
		if err != nil {
			return err
		}
		if err := fn(doc, c); err != nil {
			return err
		}
		derive.RefreshCharacter(c, doc.Meta.CurrentWeek)
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func lookup(doc *types.RosterDocument, id int) (*types.Character, error) {
	c := doc.Character(id)
	if c == nil {
		return nil, &ErrNotFound{Kind: KindCharacter, ID: id}
	}
	return c, nil
}
