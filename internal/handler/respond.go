package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/floramart/promo-engine/internal/domain/order"
	"github.com/floramart/promo-engine/internal/domain/product"
	"github.com/floramart/promo-engine/internal/domain/promotion"
	"github.com/floramart/promo-engine/internal/domain/redemption"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, successEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Error: msg})
}

// rejectionStatus maps a domain rejection to its HTTP status. Unknown code
// is the only 404; every other rejection is a 400 surfaced verbatim.
func rejectionStatus(err error) (int, bool) {
	switch {
	case errors.Is(err, promotion.ErrCodeNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, promotion.ErrNotYetStarted),
		errors.Is(err, promotion.ErrExpired),
		errors.Is(err, promotion.ErrDeactivated),
		errors.Is(err, promotion.ErrBelowMinimum),
		errors.Is(err, promotion.ErrNoEligibleItems),
		errors.Is(err, promotion.ErrInvalidValue),
		errors.Is(err, promotion.ErrScopeTypeMismatch),
		errors.Is(err, redemption.ErrUsageLimitExceeded),
		errors.Is(err, redemption.ErrPerUserLimitExceeded):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// writeDomainError maps domain errors to HTTP responses, logging anything
// unexpected as a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if status, ok := rejectionStatus(err); ok {
		writeError(w, status, rejectionMessage(err))
		return
	}

	var pnf *order.ProductNotFoundError
	if errors.As(err, &pnf) {
		writeError(w, http.StatusUnprocessableEntity, pnf.Error())
		return
	}
	var iq *order.InvalidQuantityError
	if errors.As(err, &iq) {
		writeError(w, http.StatusUnprocessableEntity, iq.Error())
		return
	}
	switch {
	case errors.Is(err, order.ErrEmptyItems), errors.Is(err, order.ErrNegativeFee):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, product.ErrNotFound):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

// rejectionMessage extracts the sentinel's text even when the error was
// wrapped on its way up.
func rejectionMessage(err error) string {
	for _, sentinel := range []error{
		promotion.ErrCodeNotFound,
		promotion.ErrNotYetStarted,
		promotion.ErrExpired,
		promotion.ErrDeactivated,
		promotion.ErrBelowMinimum,
		promotion.ErrNoEligibleItems,
		promotion.ErrInvalidValue,
		promotion.ErrScopeTypeMismatch,
		redemption.ErrUsageLimitExceeded,
		redemption.ErrPerUserLimitExceeded,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}
