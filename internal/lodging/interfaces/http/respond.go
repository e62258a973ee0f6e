package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	lodging "lodging-ledger/internal/lodging/domain"
)

const (
	msgMonthClosed   = "This month is closed and cannot be changed."
	msgDuplicateDay  = "This day has already been logged."
	msgDayLogged     = "Day logged successfully."
	msgDayRemoved    = "Day removed successfully."
	msgMonthClosedOK = "Month closed successfully."
	msgMonthReopened = "Month reopened successfully."
	msgDataSaved     = "Data saved successfully."
	msgProfileSaved  = "Settings saved successfully."
	msgRecordDeleted = "Record deleted successfully."
	msgInvalidJSON   = "Invalid JSON body."
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeBody(r *http.Request, w http.ResponseWriter, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var verr *lodging.ValidationError
		if errors.As(err, &verr) {
			return verr
		}
		return &lodging.ValidationError{Field: "body", Message: msgInvalidJSON}
	}
	return nil
}

// classifyError maps a service error to a status, a stable code and a
// message safe to show the user.
func classifyError(err error) (int, errorResponse) {
	var verr *lodging.ValidationError
	switch {
	case errors.Is(err, lodging.ErrMonthClosed):
		return http.StatusConflict, errorResponse{Error: "month_closed", Message: msgMonthClosed}
	case errors.Is(err, lodging.ErrDuplicateDay):
		return http.StatusConflict, errorResponse{Error: "duplicate_day", Message: msgDuplicateDay}
	case errors.Is(err, lodging.ErrRecordExists):
		return http.StatusConflict, errorResponse{Error: "record_exists", Message: "A record with this id already exists."}
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: "invalid", Message: verr.Message, Field: verr.Field}
	case errors.Is(err, lodging.ErrInvalid):
		return http.StatusBadRequest, errorResponse{Error: "invalid", Message: err.Error()}
	case errors.Is(err, lodging.ErrMonthNotFound):
		return http.StatusNotFound, errorResponse{Error: "month_not_found", Message: "This month has no lodging record."}
	case errors.Is(err, lodging.ErrRecordNotFound):
		return http.StatusNotFound, errorResponse{Error: "record_not_found", Message: "Record not found."}
	case errors.Is(err, lodging.ErrUnknownTable):
		return http.StatusNotFound, errorResponse{Error: "unknown_table", Message: "Unknown table."}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal", Message: "Could not save the change."}
	}
}

func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	status, resp := classifyError(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("lodging request failed", "error", err)
	}
	writeJSON(w, status, resp)
}

// respondLegacyError answers 400 with {"message"} for every failure.
func respondLegacyError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	status, resp := classifyError(err)
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("legacy lodging request failed", "error", err)
	}
	writeMessage(w, http.StatusBadRequest, resp.Message)
}
