package roster

import (
	"context"

	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// AddBis appends a wishlist entry with id max(existing)+1.
func (s *Service) AddBis(ctx context.Context, charID int, req types.CreateBisRequest) (*types.BisItem, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	var item *types.BisItem
	_, err := s.character(ctx, charID, func(_ *types.RosterDocument, c *types.Character) error {
		item = &types.BisItem{
			ID:              c.NextBisID(),
			Slot:            req.Slot,
			ItemName:        req.ItemName,
			ItemID:          req.ItemID.Value,
			TargetItemLevel: req.TargetItemLevel.Value,
		}
		c.BisList = append(c.BisList, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateBis edits a wishlist entry. Clearing obtained also clears synced.
func (s *Service) UpdateBis(ctx context.Context, charID, bisID int, req types.BisUpdate) (*types.BisItem, error) {
	var item *types.BisItem
	_, err := s.character(ctx, charID, func(_ *types.RosterDocument, c *types.Character) error {
		item = c.Bis(bisID)
		if item == nil {
			return &ErrNotFound{Kind: KindBis, ID: bisID}
		}
		if req.Obtained != nil {
			item.SetObtained(*req.Obtained)
		}
		if req.ItemName != nil {
			item.ItemName = *req.ItemName
		}
		if req.ItemID.Set {
			item.ItemID = req.ItemID.Value
		}
		if req.TargetItemLevel.Set {
			item.TargetItemLevel = req.TargetItemLevel.Value
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteBis removes a wishlist entry.
func (s *Service) DeleteBis(ctx context.Context, charID, bisID int) error {
	_, err := s.character(ctx, charID, func(_ *types.RosterDocument, c *types.Character) error {
		if !c.RemoveBis(bisID) {
			return &ErrNotFound{Kind: KindBis, ID: bisID}
		}
		return nil
	})
	return err
}

// AddTalentBuild appends a talent build with id max(existing)+1.
func (s *Service) AddTalentBuild(ctx context.Context, charID int, req types.CreateTalentBuildRequest) (*types.TalentBuild, error) {
	if err := types.Validate(req); err != nil {
		return nil, validationError(err)
	}
	var build *types.TalentBuild
	_, err := s.character(ctx, charID, func(_ *types.RosterDocument, c *types.Character) error {
		build = &types.TalentBuild{
			ID:           c.NextTalentBuildID(),
			Category:     req.Category,
			Name:         req.Name,
			Description:  req.Description,
			TalentString: req.TalentString,
		}
		c.TalentBuilds = append(c.TalentBuilds, build)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return build, nil
}

// UpdateTalentBuild edits a talent build.
func (s *Service) UpdateTalentBuild(ctx context.Context, charID, buildID int, req types.TalentBuildUpdate) (*types.TalentBuild, error) {
	var build *types.TalentBuild
	_, err := s.character(ctx, charID, func(_ *types.RosterDocument, c *types.Character) error {
		build = c.TalentBuild(buildID)
		if build == nil {
			return &ErrNotFound{Kind: KindTalentBuild, ID: buildID}
		}
		if req.Category != nil {
			build.Category = *req.Category
		}
		if req.Name != nil {
			build.Name = *req.Name
		}
		if req.Description != nil {
			build.Description = *req.Description
		}
		if req.TalentString != nil {
			build.TalentString = *req.TalentString
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return build, nil
}

// DeleteTalentBuild removes a talent build.
func (s *Service) DeleteTalentBuild(ctx context.Context, charID, buildID int) error {
	_, err := s.character(ctx, charID, func(_ *types.RosterDocument, c *types.Character) error {
		if !c.RemoveTalentBuild(buildID) {
			return &ErrNotFound{Kind: KindTalentBuild, ID: buildID}
		}
		return nil
	})
	return err
}
