package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/fastprintguys/printbook-system/internal/model"
	"github.com/fastprintguys/printbook-system/internal/pricing"
	"github.com/fastprintguys/printbook-system/internal/repository"
	"github.com/fastprintguys/printbook-system/internal/service"
)

// Catalog возвращает весь справочник параметров печати.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		h.logger.Error("catalog error", zap.Error(err))
		h.writeStatusError(w, http.StatusInternalServerError, "Failed to fetch the catalog.")
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Data   *model.Catalog `json:"data"`
	}{
		Status: "success",
		Data:   catalog,
	})
}

// EligibleBindings возвращает названия переплётов, доступных для указанного
// количества страниц.
func (h *Handler) EligibleBindings(w http.ResponseWriter, r *http.Request) {
	pageCount, err := strconv.Atoi(r.URL.Query().Get("page_count"))
	if err != nil || pageCount < 0 {
		h.writeStatusError(w, http.StatusBadRequest, "page_count must be a non-negative integer.")
		return
	}

	names := h.service.EligibleBindings(pageCount)

	h.writeJSON(w, http.StatusOK, struct {
		Status    string   `json:"status"`
		PageCount int      `json:"page_count"`
		Data      []string `json:"data"`
	}{
		Status:    "success",
		PageCount: pageCount,
		Data:      names,
	})
}

type quoteRequest struct {
	TrimSize      int64 `json:"trim_size"`
	BindingType   int64 `json:"binding_type"`
	InteriorColor int64 `json:"interior_color"`
	PaperType     int64 `json:"paper_type"`
	CoverFinish   int64 `json:"cover_finish"`
	PageCount     int   `json:"page_count"`
	Quantity      int   `json:"quantity"`
}

type quoteResponse struct {
	UnitPrice  string `json:"unit_price"`
	TotalPrice string `json:"total_price"`
	Quantity   int    `json:"quantity"`
}

// Quote рассчитывает стоимость тиража по выбранным позициям каталога.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	quote, err := h.service.GetQuote(r.Context(), service.QuoteInput{
		TrimSizeID:      req.TrimSize,
		BindingTypeID:   req.BindingType,
		InteriorColorID: req.InteriorColor,
		PaperTypeID:     req.PaperType,
		CoverFinishID:   req.CoverFinish,
		PageCount:       req.PageCount,
		Quantity:        req.Quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation),
			errors.Is(err, pricing.ErrInvalidSelection),
			errors.Is(err, repository.ErrCatalogRefNotFound):
			h.writeStatusError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("quote error", zap.Error(err))
			h.writeStatusError(w, http.StatusInternalServerError, "Failed to compute the quote.")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, struct {
		Status string        `json:"status"`
		Data   quoteResponse `json:"data"`
	}{
		Status: "success",
		Data: quoteResponse{
			UnitPrice:  quote.UnitPrice.StringFixed(2),
			TotalPrice: quote.TotalPrice.StringFixed(2),
			Quantity:   quote.Quantity,
		},
	})
}
