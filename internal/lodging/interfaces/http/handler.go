package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"lodging-ledger/internal/audit"
	lodgingapp "lodging-ledger/internal/lodging/application"
	lodging "lodging-ledger/internal/lodging/domain"
)

const (
	basePath   = "/api/lodging"
	monthsPath = basePath + "/months/"
)

// Handler serves the lodging ledger API and its legacy aliases.
type Handler struct {
	ledger      *lodgingapp.LedgerService
	auditLogger audit.Logger
	logger      *slog.Logger
}

// NewHandler constructs a handler. auditLogger may be nil.
func NewHandler(ledger *lodgingapp.LedgerService, auditLogger audit.Logger, logger *slog.Logger) (*Handler, error) {
	if ledger == nil {
		return nil, errors.New("lodging handler: nil ledger service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: ledger, auditLogger: auditLogger, logger: logger}, nil
}

// ServeHTTP handles routes under /api/lodging and /api/hospedagem.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == basePath:
		switch r.Method {
		case http.MethodGet:
			h.handleDocument(w, r)
		case http.MethodPost:
			h.handleReplace(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case path == basePath+"/previous-day" && r.Method == http.MethodPost:
		h.handlePreviousDay(w, r)
		return
	case path == basePath+"/days/toggle" && r.Method == http.MethodPost:
		h.handleToggle(w, r)
		return
	case path == basePath+"/summary" && r.Method == http.MethodGet:
		h.handleSummary(w, r)
		return
	case path == basePath+"/profile":
		switch r.Method {
		case http.MethodGet:
			h.handleProfile(w, r)
		case http.MethodPut:
			h.handleSaveProfile(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	case strings.HasPrefix(path, monthsPath):
		h.handleMonth(w, r, strings.TrimPrefix(path, monthsPath))
		return
	case path == legacyPath || strings.HasPrefix(path, legacyPath+"/"):
		h.serveLegacy(w, r, path)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.ledger.Document(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	var doc lodging.Document
	if err := decodeBody(r, w, &doc); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if err := h.ledger.ReplaceDocument(r.Context(), &doc); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msgDataSaved, "saved": true})
	h.logAudit(r, "document.replace", "document", "", map[string]any{"months": len(doc.Months)})
}

type locationRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (l locationRequest) location() *lodging.Location {
	if l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	return &lodging.Location{Latitude: *l.Latitude, Longitude: *l.Longitude}
}

type dayResponse struct {
	Message string                `json:"message"`
	Month   lodging.MonthKey      `json:"month"`
	Day     int                   `json:"day"`
	Date    string                `json:"date,omitempty"`
	Outcome lodging.ToggleOutcome `json:"outcome,omitempty"`
}

func (h *Handler) handlePreviousDay(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeOptionalBody(r, w, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	logged, err := h.ledger.LogPreviousDay(r.Context(), req.location())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, dayResponse{
		Message: msgDayLogged,
		Month:   logged.Month,
		Day:     logged.Day,
		Date:    logged.Date.Format("2006-01-02"),
	})
	h.logAudit(r, "day.log_previous", "month", logged.Month.String(), map[string]any{"day": logged.Day})
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date string `json:"date"`
		locationRequest
	}
	if err := decodeBody(r, w, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	res, err := h.ledger.ToggleDay(r.Context(), req.Date, req.location())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dayResponse{
		Message: toggleMessage(res.Outcome),
		Month:   res.Month,
		Day:     res.Day,
		Date:    req.Date,
		Outcome: res.Outcome,
	})
	h.logAudit(r, "day.toggle", "month", res.Month.String(), map[string]any{"date": req.Date, "outcome": res.Outcome})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ledger.Summary(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.ledger.Profile(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	var profile lodging.Profile
	if err := decodeBody(r, w, &profile); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	saved, err := h.ledger.SaveProfile(r.Context(), profile)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": msgProfileSaved, "profile": saved})
	h.logAudit(r, "profile.save", "profile", "1", map[string]any{"dailyRate": saved.DailyRate.String()})
}

func (h *Handler) handleMonth(w http.ResponseWriter, r *http.Request, rest string) {
	if rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	key := parts[0]
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleMonthView(w, r, key)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "close":
			if r.Method == http.MethodPost {
				h.handleClose(w, r, key)
				return
			}
		case "reopen":
			if r.Method == http.MethodPost {
				h.handleReopen(w, r, key)
				return
			}
		case "export.xlsx":
			if r.Method == http.MethodGet {
				h.handleExport(w, r, key, formatXLSX)
				return
			}
		case "export.pdf":
			if r.Method == http.MethodGet {
				h.handleExport(w, r, key, formatPDF)
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleMonthView(w http.ResponseWriter, r *http.Request, key string) {
	view, err := h.ledger.Month(r.Context(), key)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type monthResponse struct {
	Message string            `json:"message"`
	Month   lodging.MonthView `json:"month"`
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request, key string) {
	var req struct {
		PaidAmount json.RawMessage `json:"paidAmount"`
	}
	if err := decodeBody(r, w, &req); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	view, err := h.ledger.CloseMonth(r.Context(), key, rawAmount(req.PaidAmount))
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, monthResponse{Message: msgMonthClosedOK, Month: view})
	meta := map[string]any{"days": view.DayCount}
	if view.PaidAmount != nil {
		meta["paidAmount"] = view.PaidAmount.String()
	}
	if view.ComputedAmount != nil {
		meta["computedAmount"] = view.ComputedAmount.String()
	}
	h.logAudit(r, "month.close", "month", view.Month.String(), meta)
}

func (h *Handler) handleReopen(w http.ResponseWriter, r *http.Request, key string) {
	view, err := h.ledger.ReopenMonth(r.Context(), key)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, monthResponse{Message: msgMonthReopened, Month: view})
	h.logAudit(r, "month.reopen", "month", view.Month.String(), nil)
}

func (h *Handler) logAudit(r *http.Request, action, resourceType, resourceID string, meta map[string]any) {
	if h.auditLogger == nil {
		return
	}
	var metadata any
	if meta != nil {
		metadata = meta
	}
	entry := audit.FromRequest(r, action, resourceType, resourceID, metadata)
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", "action", action, "error", err)
	}
}

func toggleMessage(outcome lodging.ToggleOutcome) string {
	if outcome == lodging.ToggleRemoved {
		return msgDayRemoved
	}
	return msgDayLogged
}

// rawAmount accepts a JSON number or string and returns its text.
func rawAmount(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// decodeOptionalBody decodes v when the request carries a body.
func decodeOptionalBody(r *http.Request, w http.ResponseWriter, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return &lodging.ValidationError{Field: "body", Message: msgInvalidJSON}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		var verr *lodging.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &lodging.ValidationError{Field: "body", Message: msgInvalidJSON}
	}
	return nil
}
