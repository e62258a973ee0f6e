package http

import (
	"encoding/json"
	"net/http"

	lodging "lodging-ledger/internal/lodging/domain"
)

const legacyPath = "/api/hospedagem"

type legacyDocument struct {
	Usuario     legacyProfile          `json:"usuario"`
	Hospedagens map[string]legacyMonth `json:"hospedagens"`
}

type legacyProfile struct {
	Nome        string      `json:"nome"`
	LocalPadrao string      `json:"localPadrao"`
	ValorDiaria json.Number `json:"valorDiaria"`
}

// legacyMonth keeps dias as the sorted list of day numbers the original
// client reads.
type legacyMonth struct {
	Dias           []int        `json:"dias"`
	Fechado        bool         `json:"fechado"`
	ValorCalculado *json.Number `json:"valorCalculado,omitempty"`
	ValorPago      *json.Number `json:"valorPago,omitempty"`
}

func toLegacyDocument(doc *lodging.Document) legacyDocument {
	out := legacyDocument{
		Usuario: legacyProfile{
			Nome:        doc.User.Name,
			LocalPadrao: doc.User.DefaultLocation,
			ValorDiaria: json.Number(doc.User.DailyRate.String()),
		},
		Hospedagens: make(map[string]legacyMonth, len(doc.Months)),
	}
	for key, record := range doc.Months {
		if record == nil {
			continue
		}
		month := legacyMonth{Dias: record.Days.Sorted(), Fechado: record.Closed}
		if record.ComputedAmount != nil {
			n := json.Number(record.ComputedAmount.String())
			month.ValorCalculado = &n
		}
		if record.PaidAmount != nil {
			n := json.Number(record.PaidAmount.String())
			month.ValorPago = &n
		}
		out.Hospedagens[key.String()] = month
	}
	return out
}

// serveLegacy handles the original /api/hospedagem surface. Every failure
// answers 400 with a message.
func (h *Handler) serveLegacy(w http.ResponseWriter, r *http.Request, path string) {
	switch {
	case path == legacyPath && r.Method == http.MethodGet:
		doc, err := h.ledger.Document(r.Context())
		if err != nil {
			respondLegacyError(w, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, toLegacyDocument(doc))
	case path == legacyPath && r.Method == http.MethodPost:
		var doc lodging.Document
		if err := decodeBody(r, w, &doc); err != nil {
			respondLegacyError(w, h.logger, err)
			return
		}
		if err := h.ledger.ReplaceDocument(r.Context(), &doc); err != nil {
			respondLegacyError(w, h.logger, err)
			return
		}
		writeMessage(w, http.StatusOK, msgDataSaved)
		h.logAudit(r, "document.replace", "document", "", map[string]any{"months": len(doc.Months), "legacy": true})
	case path == legacyPath+"/registrar-diaria" && r.Method == http.MethodPost:
		logged, err := h.ledger.LogPreviousDay(r.Context(), nil)
		if err != nil {
			respondLegacyError(w, h.logger, err)
			return
		}
		writeMessage(w, http.StatusCreated, msgDayLogged)
		h.logAudit(r, "day.log_previous", "month", logged.Month.String(), map[string]any{"day": logged.Day, "legacy": true})
	case path == legacyPath+"/registrar-diaria-especifica" && r.Method == http.MethodPost:
		var req struct {
			Date string `json:"date"`
		}
		if err := decodeBody(r, w, &req); err != nil {
			respondLegacyError(w, h.logger, err)
			return
		}
		res, err := h.ledger.ToggleDay(r.Context(), req.Date, nil)
		if err != nil {
			respondLegacyError(w, h.logger, err)
			return
		}
		writeMessage(w, http.StatusOK, toggleMessage(res.Outcome))
		h.logAudit(r, "day.toggle", "month", res.Month.String(), map[string]any{"date": req.Date, "outcome": res.Outcome, "legacy": true})
	default:
		writeMessage(w, http.StatusNotFound, "Not found.")
	}
}
