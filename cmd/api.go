package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/karuna-health/assess-portal/internal/catalog"
	"github.com/karuna-health/assess-portal/internal/config"
	"github.com/karuna-health/assess-portal/internal/mailer"
	"github.com/karuna-health/assess-portal/internal/model"
	"github.com/karuna-health/assess-portal/internal/report"
	"github.com/karuna-health/assess-portal/internal/response"
	"github.com/karuna-health/assess-portal/internal/scoring"
	"github.com/karuna-health/assess-portal/internal/store"
)

// categoryTarget is the campaign goal for every category rollup.
const categoryTarget = 90

type api struct {
	cat    *catalog.Catalog
	store  store.Store
	mailer *mailer.Mailer
	cfg    *config.Config
}

type submitRequest struct {
	Facility    model.FacilityMeta `json:"facility"`
	SubmittedBy string             `json:"submitted_by"`
	response.Input
}

func (a *api) submitAssessment(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}
	if err := req.Facility.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rs, err := response.Build(a.cat, req.Input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	result, err := scoring.Score(rs)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	sub := model.NewSubmission(req.Facility, result)
	sub.SubmittedBy = req.SubmittedBy
	if err := a.store.CreateSubmission(r.Context(), sub); err != nil {
		if eris.Is(err, store.ErrDuplicateFacility) {
			writeError(w, http.StatusConflict, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	a.logActivity(r, "assessment_submitted", sub.Meta.FacilityName, map[string]any{
		"submission_id":   sub.ID,
		"overall_percent": sub.OverallPercent,
	})

	// Report generation and delivery run off the request path.
	go a.deliverReport(sub)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":              sub.ID,
		"overall_percent": sub.OverallPercent,
		"band":            result.Band.Label(),
		"level":           report.PerformanceLevel(sub.OverallPercent),
	})
}

// deliverReport writes the workbook to the output directory and mails it if
// SMTP is configured.
func (a *api) deliverReport(sub *model.Submission) {
	f, err := report.Workbook(a.cat, sub.Result, sub.Meta)
	if err != nil {
		zap.L().Error("report generation failed",
			zap.String("submission", sub.ID), zap.Error(err))
		return
	}

	if err := os.MkdirAll(a.cfg.Report.OutputDir, 0o755); err != nil {
		zap.L().Error("create report dir failed", zap.Error(err))
		return
	}
	path := filepath.Join(a.cfg.Report.OutputDir, report.Filename(sub.Meta))
	if err := f.Save(path); err != nil {
		zap.L().Error("report save failed", zap.String("path", path), zap.Error(err))
		return
	}
	zap.L().Info("report written", zap.String("path", path))

	if !a.mailer.Enabled() {
		return
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		zap.L().Error("report encode failed", zap.Error(err))
		return
	}
	subject := fmt.Sprintf("Assessment report: %s (%s)", sub.Meta.FacilityName, sub.Meta.Date.Format("02 Jan 2006"))
	body := fmt.Sprintf("Assessment report for %s, %s district. Overall score %.1f%% (%s).",
		sub.Meta.FacilityName, sub.Meta.District, sub.OverallPercent, report.PerformanceLevel(sub.OverallPercent))
	if err := a.mailer.SendReport(subject, body, report.Filename(sub.Meta), buf.Bytes()); err != nil {
		zap.L().Error("report mail failed", zap.String("submission", sub.ID), zap.Error(err))
	}
}

func (a *api) getAssessment(w http.ResponseWriter, r *http.Request) {
	sub, err := a.store.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *api) listAssessments(w http.ResponseWriter, r *http.Request) {
	filter := store.SubmissionFilter{
		District: r.URL.Query().Get("district"),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	subs, err := a.store.ListSubmissions(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": subs, "count": len(subs)})
}

func (a *api) downloadReport(w http.ResponseWriter, r *http.Request) {
	sub, err := a.store.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	f, err := report.Workbook(a.cat, sub.Result, sub.Meta)
	if err != nil {
		if eris.Is(err, report.ErrEmptyReport) {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, eris.Wrap(err, "encode workbook"))
		return
	}
	serveXLSX(w, report.Filename(sub.Meta), buf.Bytes())
}

func (a *api) sectionDocument(w http.ResponseWriter, r *http.Request) {
	sub, err := a.store.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	html, err := report.SectionDocument(a.cat, sub.Result, chi.URLParam(r, "section"), sub.Meta)
	if err != nil {
		switch {
		case eris.Is(err, catalog.ErrNotFound):
			writeError(w, http.StatusNotFound, err)
		case eris.Is(err, report.ErrEmptyReport):
			writeError(w, http.StatusUnprocessableEntity, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(html)
}

func (a *api) registerParticipant(w http.ResponseWriter, r *http.Request) {
	var p model.Participant
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, eris.Wrap(err, "decode request"))
		return
	}
	if err := p.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := a.store.CreateParticipant(r.Context(), &p); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	a.logActivity(r, "participant_registered", "", map[string]any{
		"participant_id": p.ID,
		"district":       p.District,
	})
	writeJSON(w, http.StatusCreated, p)
}

func (a *api) listParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := a.store.ListParticipants(r.Context(), r.URL.Query().Get("district"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": participants, "count": len(participants)})
}

func (a *api) participantRoster(w http.ResponseWriter, r *http.Request) {
	participants, err := a.store.ListParticipants(r.Context(), r.URL.Query().Get("district"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	f, err := report.Roster(participants)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		writeError(w, http.StatusInternalServerError, eris.Wrap(err, "encode roster"))
		return
	}
	serveXLSX(w, "participants.xlsx", buf.Bytes())
}

func (a *api) dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := a.store.Stats(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	progress, err := a.store.DistrictProgress(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	performance, err := a.store.CategoryPerformance(ctx, categoryTarget)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":                stats,
		"district_progress":    progress,
		"category_performance": performance,
	})
}

func (a *api) recentActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	activity, err := a.store.RecentActivity(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity": activity})
}

func (a *api) getCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cat)
}

func (a *api) logActivity(r *http.Request, activityType, facility string, details map[string]any) {
	err := a.store.LogActivity(r.Context(), &model.Activity{
		Type:         activityType,
		Module:       "api",
		FacilityName: facility,
		Details:      details,
		IPAddress:    r.RemoteAddr,
	})
	if err != nil {
		zap.L().Warn("activity log failed", zap.String("type", activityType), zap.Error(err))
	}
}

func serveXLSX(w http.ResponseWriter, filename string, data []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
