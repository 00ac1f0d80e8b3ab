package server

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/chrolicious/hoolgg-roster/internal/roster"
	"github.com/chrolicious/hoolgg-roster/internal/types"
)

// handleGetData returns the full document with derived fields.
func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.Document(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, view)
}

func (s *Server) handleUpdateMeta(w http.ResponseWriter, r *http.Request) {
	var req types.WeekRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	meta, err := s.service.SetWeek(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"meta": meta})
}

func (s *Server) handleResetDaily(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ResetDaily(r.Context()); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, nil)
}

func (s *Server) handleAddCharacter(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCharacterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	c, err := s.service.AddCharacter(r.Context(), req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusCreated, map[string]any{"character": c})
}

func (s *Server) handleDeleteCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err == nil {
		err = s.service.DeleteCharacter(r.Context(), id)
	}
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, nil)
}

func (s *Server) handleReorderCharacters(w http.ResponseWriter, r *http.Request) {
	var req types.ReorderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := s.service.ReorderCharacters(r.Context(), req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, nil)
}

func (s *Server) handleGetCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	c, err := s.service.Character(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"character": c})
}

// characterUpdate decodes a request body of type T and applies it to the
// character named by the {id} path parameter.
func characterUpdate[T any](s *Server, apply func(context.Context, int, T) (*types.Character, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			s.errorResponse(w, r, err)
			return
		}
		var req T
		if err := decodeJSON(w, r, &req); err != nil {
			s.errorResponse(w, r, err)
			return
		}
		c, err := apply(r.Context(), id, req)
		if err != nil {
			s.errorResponse(w, r, err)
			return
		}
		s.success(w, http.StatusOK, map[string]any{"character": c})
	}
}

func (s *Server) handleUpdateWeeklyProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.WeeklyProgressUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	c, err := s.service.UpdateWeeklyProgress(r.Context(), id, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"weekly_progress": c.WeeklyProgress})
}

func (s *Server) handleAddBis(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.CreateBisRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	item, err := s.service.AddBis(r.Context(), id, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusCreated, map[string]any{"item": item})
}

func (s *Server) handleUpdateBis(w http.ResponseWriter, r *http.Request) {
	id, bisID, err := twoIDs(r, "id", "bis_id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.BisUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	item, err := s.service.UpdateBis(r.Context(), id, bisID, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"item": item})
}

func (s *Server) handleDeleteBis(w http.ResponseWriter, r *http.Request) {
	id, bisID, err := twoIDs(r, "id", "bis_id")
	if err == nil {
		err = s.service.DeleteBis(r.Context(), id, bisID)
	}
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, nil)
}

func (s *Server) handleAddTalentBuild(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.CreateTalentBuildRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	build, err := s.service.AddTalentBuild(r.Context(), id, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusCreated, map[string]any{"build": build})
}

func (s *Server) handleUpdateTalentBuild(w http.ResponseWriter, r *http.Request) {
	id, buildID, err := twoIDs(r, "id", "talent_id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	var req types.TalentBuildUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	build, err := s.service.UpdateTalentBuild(r.Context(), id, buildID, req)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"build": build})
}

func (s *Server) handleDeleteTalentBuild(w http.ResponseWriter, r *http.Request) {
	id, buildID, err := twoIDs(r, "id", "talent_id")
	if err == nil {
		err = s.service.DeleteTalentBuild(r.Context(), id, buildID)
	}
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, nil)
}

func (s *Server) handleSyncCharacter(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	c, outcome, err := s.service.SyncCharacter(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"character": c, "fetches": outcome.Fetches})
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.SyncAll(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{
		"results": report.Results,
		"synced":  report.Synced,
		"failed":  report.Failed,
	})
}

// handleSyncAllStream syncs every character and streams one "result" event
// per character, then a "complete" event with the totals.
func (s *Server) handleSyncAllStream(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, r, &ErrBadRequest{Message: err.Error()})
		return
	}

	report, err := s.service.SyncAllFunc(r.Context(), func(outcome roster.SyncOutcome) {
		if err := sse.WriteEvent("result", outcome); err != nil {
			s.logger.Debug("writing SSE event", zap.Error(err))
		}
	})
	if err != nil {
		s.logger.Error("sync-all stream failed", zap.Error(err))
		_ = sse.WriteError(errorMessage(err))
		return
	}
	_ = sse.WriteEvent("complete", map[string]any{
		"success": true,
		"synced":  report.Synced,
		"failed":  report.Failed,
	})
}

func (s *Server) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var req types.CredentialsUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if err := s.service.UpdateCredentials(r.Context(), req); err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, nil)
}

func (s *Server) handleItemIcon(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "item_id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	icon, err := s.service.ItemIcon(r.Context(), itemID)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.success(w, http.StatusOK, map[string]any{"icon_url": icon})
}

func (s *Server) handleDebugStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	debug, err := s.service.RawStats(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, debug)
}

func twoIDs(r *http.Request, first, second string) (int, int, error) {
	a, err := pathID(r, first)
	if err != nil {
		return 0, 0, err
	}
	b, err := pathID(r, second)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}
