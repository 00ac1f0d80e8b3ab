package roster

import (
	"context"
	"slices"

	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/derive"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// AddCharacter creates a character with id max(existing)+1.
func (s *Service) AddCharacter(ctx context.Context, req types.CreateCharacterRequest) (*types.Character, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	var c *types.Character
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		c = types.NewCharacter(doc.NextCharacterID(), req)
		derive.SeedWeek(c, doc.Meta.CurrentWeek)
		derive.RefreshCharacter(c, doc.Meta.CurrentWeek)
		doc.Characters = append(doc.Characters, c)
		doc.SortCharacters()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("added character", zap.Int("id", c.ID), zap.String("name", c.Name))
	return c, nil
}

// DeleteCharacter removes a character. Its id becomes free for reuse only if
// it was the highest id.
func (s *Service) DeleteCharacter(ctx context.Context, id int) error {
	err := s.store.Update(ctx, func(doc *types.RosterDocument) error {
		if !doc.RemoveCharacter(id) {
			return &ErrNotFound{Kind: KindCharacter, ID: id}
		}
		return nil
	})
	if err == nil {
		s.logger.Info("deleted character", zap.Int("id", id))
	}
	return err
}

// ReorderCharacters sets each listed character's order to its index in ids.
// Unlisted characters keep their order; unknown ids are ignored.
func (s *Service) ReorderCharacters(ctx context.Context, req types.ReorderRequest) error {
	return s.store.Update(ctx, func(doc *types.RosterDocument) error {
		for idx, id := range req.Order {
			if c := doc.Character(id); c != nil {
				c.Order = idx
			}
		}
		doc.SortCharacters()
		return nil
	})
}

// UpdateCharacterConfig edits display name, realm and character name.
func (s *Service) UpdateCharacterConfig(ctx context.Context, id int, req types.CharacterConfigUpdate) (*types.Character, error) {
	return s.character(ctx, id, func(_ *types.RosterDocument, c *types.Character) error {
		if req.Name != nil {
			c.Name = *req.Name
		}
		if req.Realm != nil {
			c.Realm = *req.Realm
		}
		if req.CharacterName != nil {
			c.CharacterName = *req.CharacterName
		}
		return nil
	})
}

// SetProfessions replaces the profession list. Progress of kept professions is
// preserved, new ones start fresh and dropped ones are removed.
func (s *Service) SetProfessions(ctx context.Context, id int, req types.SetProfessionsRequest) (*types.Character, error) {
	return s.character(ctx, id, func(_ *types.RosterDocument, c *types.Character) error {
		professions := req.Professions
		if professions == nil {
			professions = []string{}
		}
		c.Professions = professions
		if c.ProfessionProgress == nil {
			c.ProfessionProgress = map[string]*types.ProfessionState{}
		}
		for _, p := range professions {
			if p == "" {
				continue
			}
			if _, ok := c.ProfessionProgress[p]; !ok {
				c.ProfessionProgress[p] = types.NewProfessionState()
			}
		}
		for p := range c.ProfessionProgress {
			if !slices.Contains(professions, p) {
				delete(c.ProfessionProgress, p)
			}
		}
		return nil
	})
}
