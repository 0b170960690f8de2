package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/agrovista/cosecha/internal/common"
	"github.com/agrovista/cosecha/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

type proposeResponse struct {
	Exact     int `json:"exact"`
	Suggested int `json:"suggested"`
	None      int `json:"none"`
	Skipped   int `json:"skipped"`
}

type confirmAllResponse struct {
	Confirmed int `json:"confirmed"`
}

type patchMappingRequest struct {
	EEFFConcept *string `json:"eeffConcept"`
	Confirmed   *bool   `json:"confirmed"`
	MatchType   *string `json:"matchType"`
}

type recalculateResponse struct {
	KPIs   *model.CampaignKPIs `json:"kpis"`
	Alerts []model.Alert       `json:"alerts"`
}

func (s *Server) handleProposeMappings(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	stats, err := s.engine.ProposeMappings(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, proposeResponse{
		Exact:     stats.Exact,
		Suggested: stats.Suggested,
		None:      stats.None,
		Skipped:   stats.Skipped,
	})
}

func (s *Server) handleConfirmAll(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	confirmed, err := s.engine.ConfirmAllSuggested(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, confirmAllResponse{Confirmed: confirmed})
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	mappings, err := s.engine.Mappings(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mappings)
}

// handlePatchMapping routes a partial update to the matching ledger
// transition: matchType drives ignore/restore, eeffConcept drives a manual
// edit, confirmed drives confirmation. Concept edits apply before
// confirmation so a single request can set and confirm.
func (s *Server) handlePatchMapping(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")
	category, err := url.PathUnescape(chi.URLParam(r, "category"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid category"})
		return
	}
	process, err := model.ParseProcess(chi.URLParam(r, "process"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	key := model.MappingKey{Category: category, Process: process}

	var req patchMappingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if req.MatchType != nil {
		switch model.MatchType(*req.MatchType) {
		case model.MatchTypeIgnored:
			err = s.engine.IgnoreMapping(r.Context(), campaignID, key)
		case model.MatchTypeNone:
			err = s.engine.RestoreMapping(r.Context(), campaignID, key)
		default:
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "matchType must be \"ignored\" or \"none\""})
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
	}

	if req.EEFFConcept != nil {
		if err := s.engine.SetMapping(r.Context(), campaignID, key, *req.EEFFConcept); err != nil {
			writeError(w, err)
			return
		}
	}

	if req.Confirmed != nil {
		if !*req.Confirmed {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "confirmed can only be set to true; edit the mapping to reset it"})
			return
		}
		if err := s.engine.ConfirmMapping(r.Context(), campaignID, key); err != nil {
			writeError(w, err)
			return
		}
	}

	mappings, err := s.engine.Mappings(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	for i := range mappings {
		if mappings[i].Key() == key {
			writeJSON(w, http.StatusOK, mappings[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "mapping not found"})
}

func (s *Server) handleRecalculate(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	kpis, alerts, err := s.engine.Recalculate(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recalculateResponse{KPIs: kpis, Alerts: alerts})
}

func (s *Server) handleGetKPIs(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	kpis, err := s.engine.KPIs(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, kpis)
}

func (s *Server) handleGetAlerts(w http.ResponseWriter, r *http.Request) {
	campaignID := chi.URLParam(r, "campaignID")

	alerts, err := s.engine.Alerts(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleAckAlert(w http.ResponseWriter, r *http.Request) {
	alertID := chi.URLParam(r, "alertID")

	if err := s.engine.AcknowledgeAlert(r.Context(), alertID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, common.ErrConcurrentModification):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
