package roster

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/derive"
	"github.com/chrolicious/hoolgg-roster/internal/provider"
	"github.com/chrolicious/hoolgg-roster/internal/reconcile"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// FetchResult is the outcome of one provider fetch during a sync.
type FetchResult struct {
	Fetch       string `json:"fetch"`
	Success     bool   `json:"success"`
	Error       string `json:"error,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

// SyncOutcome is the result of syncing one character. A character succeeds
// when its equipment was merged; the other fetches are best effort.
type SyncOutcome struct {
	ID      int           `json:"id"`
	Name    string        `json:"name"`
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Fetches []FetchResult `json:"fetches,omitempty"`
}

// SyncReport aggregates the outcomes of a sync of every character.
type SyncReport struct {
	Results []SyncOutcome `json:"results"`
	Synced  int           `json:"synced"`
	Failed  int           `json:"failed"`
}

const notConfiguredMessage = "Not configured"

var (
	errNoProvider = &ErrProvider{Fetch: provider.FetchToken, Message: "no provider configured"}

	// errSkipSave aborts a store transaction that changed nothing worth writing.
	errSkipSave = errors.New("skip save")
)

// SyncCharacter pulls equipment, profile, avatar and stats for one character.
// If equipment fails nothing is merged and the error is an *ErrProvider; any
// other fetch failure is only reported in the outcome.
func (s *Service) SyncCharacter(ctx context.Context, id int) (*types.Character, SyncOutcome, error) {
	var (
		c       *types.Character
		outcome SyncOutcome
		perr    *ErrProvider
	)
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		var err error
		if c, err = lookup(doc, id); err != nil {
			return err
		}
		if !c.Configured() {
			return errNotConfigured
		}
		outcome, perr = s.syncOne(ctx, doc, c)
		return nil
	})
	if err != nil {
		return nil, SyncOutcome{}, err
	}
	if perr != nil {
		return c, outcome, perr
	}
	return c, outcome, nil
}

// SyncAll syncs every character in display order, isolating failures, and
// saves once at the end.
func (s *Service) SyncAll(ctx context.Context) (SyncReport, error) {
	return s.SyncAllFunc(ctx, nil)
}

// SyncAllFunc is SyncAll with a progress callback. onResult runs after each
// character, before the document is saved; it may be nil.
func (s *Service) SyncAllFunc(ctx context.Context, onResult func(SyncOutcome)) (SyncReport, error) {
	report := SyncReport{Results: []SyncOutcome{}}
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		for _, c := range doc.Characters {
			outcome := SyncOutcome{ID: c.ID, Name: c.Name, Error: notConfiguredMessage}
			if c.Configured() {
				outcome, _ = s.syncOne(ctx, doc, c)
			}
			report.Results = append(report.Results, outcome)
			if outcome.Success {
				report.Synced++
			} else {
				report.Failed++
			}
			if onResult != nil {
				onResult(outcome)
			}
		}
		return nil
	})
	if err != nil {
		return SyncReport{}, err
	}
	s.logger.Info("synced roster", zap.Int("synced", report.Synced), zap.Int("failed", report.Failed))
	return report, nil
}

func (s *Service) syncOne(ctx context.Context, doc *types.RosterDocument, c *types.Character) (SyncOutcome, *ErrProvider) {
	outcome := SyncOutcome{ID: c.ID, Name: c.Name}
	logger := s.logger.With(zap.Int("character", c.ID), zap.String("name", c.CharacterName), zap.String("realm", c.Realm))

	fail := func(perr *ErrProvider) (SyncOutcome, *ErrProvider) {
		outcome.Error = perr.Message
		outcome.Fetches = append(outcome.Fetches, fetchResult(perr.Fetch, perr))
		logger.Warn("sync failed", zap.String("fetch", perr.Fetch), zap.Error(perr))
		return outcome, perr
	}

	sess, _, err := s.session(ctx, &doc.APIConfig)
	if err != nil {
		s.metrics.ObserveSyncFetch(provider.FetchToken, err)
		return fail(providerError(provider.FetchToken, err))
	}

	snap, err := s.provider.Equipment(ctx, sess, c.Realm, c.CharacterName)
	s.metrics.ObserveSyncFetch(provider.FetchEquipment, err)
	if err != nil {
		return fail(providerError(provider.FetchEquipment, err))
	}
	gear, res := reconcile.ReconcileEquipment(c.Gear, snap)
	if !res.Applied {
		return fail(&ErrProvider{Fetch: provider.FetchEquipment, Message: "equipment response has no item list"})
	}
	c.Gear = gear
	if len(res.Ignored) > 0 {
		logger.Debug("ignored unknown slots", zap.Strings("slots", res.Ignored))
	}
	outcome.Fetches = append(outcome.Fetches, fetchResult(provider.FetchEquipment, nil))

	d := provider.FetchDetails(ctx, s.provider, sess, c.Realm, c.CharacterName)

	s.metrics.ObserveSyncFetch(provider.FetchProfile, d.ProfileErr)
	if d.ProfileErr == nil {
		reconcile.ApplyProfile(c, d.Profile)
	}
	outcome.Fetches = append(outcome.Fetches, fetchResult(provider.FetchProfile, d.ProfileErr))

	s.metrics.ObserveSyncFetch(provider.FetchMedia, d.MediaErr)
	if d.MediaErr == nil {
		reconcile.ApplyAvatar(c, d.Media)
	}
	outcome.Fetches = append(outcome.Fetches, fetchResult(provider.FetchMedia, d.MediaErr))

	s.metrics.ObserveSyncFetch(provider.FetchStatistics, d.StatsErr)
	if d.StatsErr == nil && len(d.Stats) > 0 {
		c.Stats = reconcile.ParseStats(d.Stats)
	}
	outcome.Fetches = append(outcome.Fetches, fetchResult(provider.FetchStatistics, d.StatsErr))

	now := s.now().UTC()
	c.LastSyncTimestamp = &now
	matched := reconcile.MatchBis(c.BisList, c.Gear)
	derive.RefreshCharacter(c, doc.Meta.CurrentWeek)

	outcome.Success = true
	logger.Info("synced character",
		zap.Int("slots", res.Slots),
		zap.Bool("two_handed", res.TwoHanded),
		zap.Int("bis_matched", matched),
		zap.Float64("avg_ilvl", c.AvgItemLevel))
	return outcome, nil
}

func fetchResult(fetch string, err error) FetchResult {
	if err == nil {
		return FetchResult{Fetch: fetch, Success: true}
	}
	perr := providerError(fetch, err)
	return FetchResult{Fetch: fetch, Error: perr.Message, RateLimited: perr.RateLimited}
}

// session returns a provider session, reusing the cached token while it is
// valid. refreshed reports whether a new token was written to cfg.
func (s *Service) session(ctx context.Context, cfg *types.APIConfig) (sess provider.Session, refreshed bool, err error) {
	if s.provider == nil {
		return provider.Session{}, false, errNoProvider
	}
	region := cfg.Region
	if region == "" {
		region = types.DefaultRegion
	}
	if cfg.TokenValid(s.now()) {
		return provider.Session{Region: region, AccessToken: cfg.CachedToken}, false, nil
	}

	creds := s.shared
	if cfg.CredentialMode == types.CredentialsCustom {
		creds = provider.Credentials{ClientID: cfg.ClientID, ClientSecret: cfg.ClientSecret}
	}
	creds.Region = region

	tok, err := s.provider.Token(ctx, creds)
	if err != nil {
		return provider.Session{}, false, err
	}
	expiry := tok.Expiry.UTC()
	cfg.CachedToken = tok.AccessToken
	cfg.TokenExpiry = &expiry
	s.logger.Debug("cached provider token", zap.String("mode", string(cfg.CredentialMode)), zap.Time("expiry", expiry))
	return provider.Session{Region: region, AccessToken: tok.AccessToken}, true, nil
}

// withSession runs fn with a provider session. The document is saved only
// when a new token was cached.
func (s *Service) withSession(ctx context.Context, fn func(provider.Session) error) error {
	var fnErr error
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		sess, refreshed, err := s.session(ctx, &doc.APIConfig)
		if err != nil {
			fnErr = providerError(provider.FetchToken, err)
			return errSkipSave
		}
		fnErr = fn(sess)
		if !refreshed {
			return errSkipSave
		}
		return nil
	})
	if err != nil && !errors.Is(err, errSkipSave) {
		return err
	}
	return fnErr
}

// ItemIcon returns the icon URL of an item.
func (s *Service) ItemIcon(ctx context.Context, itemID int) (string, error) {
	var icon string
	err := s.withSession(ctx, func(sess provider.Session) error {
		m, err := s.provider.ItemMedia(ctx, sess, itemID)
		if err != nil {
			return providerError(provider.FetchItemMedia, err)
		}
		url, ok := m.Asset(reconcile.AssetIcon)
		if !ok {
			return &ErrNotFound{Kind: KindItemIcon, ID: itemID}
		}
		icon = url
		return nil
	})
	return icon, err
}

// StatsDebug is the raw statistics response next to its parsed form.
type StatsDebug struct {
	Character string             `json:"character"`
	Raw       map[string]any     `json:"raw_stats_response"`
	Parsed    map[string]float64 `json:"parsed_stats"`
}

// RawStats fetches a character's statistics without storing them.
func (s *Service) RawStats(ctx context.Context, id int) (StatsDebug, error) {
	c, err := s.Character(ctx, id)
	if err != nil {
		return StatsDebug{}, err
	}
	if !c.Configured() {
		return StatsDebug{}, errNotConfigured
	}
	out := StatsDebug{Character: c.Name}
	err = s.withSession(ctx, func(sess provider.Session) error {
		raw, err := s.provider.Statistics(ctx, sess, c.Realm, c.CharacterName)
		if err != nil {
			return providerError(provider.FetchStatistics, err)
		}
		out.Raw = raw
		out.Parsed = reconcile.ParseStats(raw)
		return nil
	})
	if err != nil {
		return StatsDebug{}, err
	}
	return out, nil
}
