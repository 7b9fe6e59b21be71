package reports

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/paperledger/paperledger/internal/platform/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{service: service, logger: logger}
}

// Generate handles GET /reports/{type}?period_start=&period_end=. A repeat
// call for the same period returns the existing snapshot.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	reportType := ReportType(strings.ToUpper(chi.URLParam(r, "type")))
	start, ok := h.dateQuery(w, r, "period_start")
	if !ok {
		return
	}
	end, ok := h.dateQuery(w, r, "period_end")
	if !ok {
		return
	}
	rep, err := h.service.Generate(r.Context(), reportType, start, end)
	if err != nil {
		h.logger.Warn("generate report", slog.String("type", string(reportType)), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.render(r, rep))
}

func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	rep, err := h.service.Read(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.render(r, rep))
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	rep, err := h.service.Refresh(r.Context(), id)
	if err != nil {
		h.logger.Warn("refresh report", slog.String("report_id", id.String()), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.render(r, rep))
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.reportID(w, r)
	if !ok {
		return
	}
	rep, err := h.service.Archive(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ToReportResponse(rep))
}

// render converts a report to wire form. A sub-ledger read with account_id
// narrows the stored ledger to that account's slice.
func (h *Handler) render(r *http.Request, rep Report) ReportResponse {
	resp := ToReportResponse(rep)
	if rep.Type != TypeSubLedger || len(rep.CachedData) == 0 {
		return resp
	}
	raw := r.URL.Query().Get("account_id")
	if raw == "" {
		return resp
	}
	accountID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return resp
	}
	var gl GeneralLedger
	if err := json.Unmarshal(rep.CachedData, &gl); err != nil {
		return resp
	}
	for _, acct := range gl.Accounts {
		if acct.AccountID == accountID {
			if data, err := json.Marshal(acct); err == nil {
				resp.Data = data
			}
			break
		}
	}
	return resp
}

func (h *Handler) reportID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", "invalid report id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) dateQuery(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "bad-request", "Bad Request", name+" must be a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return t, true
}
