package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"lodging-ledger/internal/audit"
	lodgingapp "lodging-ledger/internal/lodging/application"
)

const tablesPath = "/api/database/tables"

// RecordsHandler serves raw table maintenance under /api/database/tables.
type RecordsHandler struct {
	service     *lodgingapp.RecordsService
	auditLogger audit.Logger
	logger      *slog.Logger
}

// NewRecordsHandler constructs a handler.
func NewRecordsHandler(service *lodgingapp.RecordsService, auditLogger audit.Logger, logger *slog.Logger) (*RecordsHandler, error) {
	if service == nil {
		return nil, errors.New("records handler: nil service")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecordsHandler{service: service, auditLogger: auditLogger, logger: logger}, nil
}

func (h *RecordsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")
	if path == tablesPath {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tables": h.service.Tables()})
		return
	}
	rest := strings.TrimPrefix(path, tablesPath+"/")
	if rest == path || rest == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	parts := strings.Split(rest, "/")
	switch len(parts) {
	case 1:
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r, parts[0])
			return
		case http.MethodPost:
			h.handleCreate(w, r, parts[0])
			return
		}
	case 2:
		switch r.Method {
		case http.MethodGet:
			h.handleGet(w, r, parts[0], parts[1])
			return
		case http.MethodPut:
			h.handleUpdate(w, r, parts[0], parts[1])
			return
		case http.MethodDelete:
			h.handleDelete(w, r, parts[0], parts[1])
			return
		}
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusMethodNotAllowed)
}

func (h *RecordsHandler) handleList(w http.ResponseWriter, r *http.Request, table string) {
	rows, err := h.service.List(r.Context(), table)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *RecordsHandler) handleGet(w http.ResponseWriter, r *http.Request, table, id string) {
	row, err := h.service.Get(r.Context(), table, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *RecordsHandler) handleCreate(w http.ResponseWriter, r *http.Request, table string) {
	var body json.RawMessage
	if err := decodeBody(r, w, &body); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	row, err := h.service.Create(r.Context(), table, body)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
	h.logAudit(r, "record.create", row)
}

func (h *RecordsHandler) handleUpdate(w http.ResponseWriter, r *http.Request, table, id string) {
	var body json.RawMessage
	if err := decodeBody(r, w, &body); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	row, err := h.service.Update(r.Context(), table, id, body)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
	h.logAudit(r, "record.update", row)
}

func (h *RecordsHandler) handleDelete(w http.ResponseWriter, r *http.Request, table, id string) {
	if err := h.service.Delete(r.Context(), table, id); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, msgRecordDeleted)
	h.logAudit(r, "record.delete", lodgingapp.Record{Table: table, ID: id})
}

func (h *RecordsHandler) logAudit(r *http.Request, action string, row lodgingapp.Record) {
	if h.auditLogger == nil {
		return
	}
	var metadata any
	if len(row.Data) > 0 {
		metadata = row.Data
	}
	entry := audit.FromRequest(r, action, row.Table, row.ID, metadata)
	if err := h.auditLogger.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", "action", action, "error", err)
	}
}
