package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/floramart/promo-engine/internal/domain/promotion"
)

type promotionRequest struct {
	Code          string           `json:"code"`
	Scope         string           `json:"scope"`
	Type          string           `json:"type"`
	Value         decimal.Decimal  `json:"value"`
	MaxDiscount   *decimal.Decimal `json:"maxDiscount"`
	MinOrderValue *decimal.Decimal `json:"minOrderValue"`
	StartDate     time.Time        `json:"startDate"`
	EndDate       time.Time        `json:"endDate"`
	UsageLimit    *int             `json:"usageLimit"`
	PerUserLimit  *int             `json:"perUserLimit"`
	IsActive      bool             `json:"isActive"`
	Targets       []targetRequest  `json:"targets"`
}

type targetRequest struct {
	ProductID     string           `json:"productId"`
	VariantID     *string          `json:"variantId"`
	SpecificValue *decimal.Decimal `json:"specificValue"`
}

type promotionView struct {
	ID            string          `json:"id"`
	Code          string          `json:"code"`
	Scope         string          `json:"scope"`
	Type          string          `json:"type"`
	Value         float64         `json:"value"`
	MaxDiscount   *float64        `json:"maxDiscount,omitempty"`
	MinOrderValue *float64        `json:"minOrderValue,omitempty"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	UsageLimit    *int            `json:"usageLimit,omitempty"`
	PerUserLimit  *int            `json:"perUserLimit,omitempty"`
	IsActive      bool            `json:"isActive"`
	UsedCount     int             `json:"usedCount"`
	Status        string          `json:"status"`
	Targets       []targetRequest `json:"targets,omitempty"`
}

// CreatePromotion handles POST /admin/promotions.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.promos.Create(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, viewOf(p, time.Now()))
}

// GetPromotion handles GET /admin/promotions/{id}.
func (h *Handler) GetPromotion(w http.ResponseWriter, r *http.Request) {
	p, err := h.promos.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(p, time.Now()))
}

// UpdatePromotion handles PUT /admin/promotions/{id}. The code is immutable:
// whatever code the request carries is ignored.
func (h *Handler) UpdatePromotion(w http.ResponseWriter, r *http.Request) {
	var req promotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := req.toDomain()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p.ID = chi.URLParam(r, "id")

	if err := h.promos.Update(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, viewOf(p, time.Now()))
}

// DeletePromotion handles DELETE /admin/promotions/{id}.
func (h *Handler) DeletePromotion(w http.ResponseWriter, r *http.Request) {
	if err := h.promos.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TogglePromotion handles POST /admin/promotions/{id}/toggle: the manual
// kill switch, independent of the time window.
func (h *Handler) TogglePromotion(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IsActive bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.promos.SetActive(r.Context(), id, req.IsActive); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPromotions handles GET /admin/promotions?status=... The status filter
// is derived from the window, the active flag and now, expiry first.
func (h *Handler) ListPromotions(w http.ResponseWriter, r *http.Request) {
	var filter promotion.Status
	if s := r.URL.Query().Get("status"); s != "" {
		parsed, err := promotion.ParseStatus(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter = parsed
	}

	promos, err := h.promos.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	now := time.Now()
	views := make([]promotionView, 0, len(promos))
	for i := range promos {
		if filter != "" && promos[i].StatusAt(now) != filter {
			continue
		}
		views = append(views, viewOf(&promos[i], now))
	}
	writeData(w, http.StatusOK, views)
}

func (r *promotionRequest) toDomain() (*promotion.Promotion, error) {
	if r.Code == "" {
		return nil, errors.New("code is required")
	}
	scope := promotion.Scope(r.Scope)
	if scope != promotion.ScopeGlobalOrder && scope != promotion.ScopeSpecificItems {
		return nil, errors.Errorf("unknown scope %q", r.Scope)
	}
	ptype := promotion.Type(r.Type)
	switch ptype {
	case promotion.TypePercentage, promotion.TypeFixed, promotion.TypeFreeShip, promotion.TypeFreeShipPercentage:
	default:
		return nil, errors.Errorf("unknown type %q", r.Type)
	}
	if ptype.DiscountsShipping() && scope != promotion.ScopeGlobalOrder {
		return nil, promotion.ErrScopeTypeMismatch
	}
	if !r.EndDate.After(r.StartDate) {
		return nil, errors.New("endDate must be after startDate")
	}

	p := &promotion.Promotion{
		Code:          r.Code,
		Scope:         scope,
		Type:          ptype,
		Value:         r.Value,
		MaxDiscount:   r.MaxDiscount,
		MinOrderValue: r.MinOrderValue,
		StartDate:     r.StartDate,
		EndDate:       r.EndDate,
		UsageLimit:    r.UsageLimit,
		PerUserLimit:  r.PerUserLimit,
		IsActive:      r.IsActive,
	}
	if ptype == promotion.TypeFreeShip {
		// The magnitude is fixed at 100 for plain free shipping.
		p.Value = decimal.NewFromInt(100)
	}
	for _, t := range r.Targets {
		p.Targets = append(p.Targets, promotion.Target{
			ProductID:     t.ProductID,
			VariantID:     t.VariantID,
			SpecificValue: t.SpecificValue,
		})
	}
	return p, nil
}

func viewOf(p *promotion.Promotion, now time.Time) promotionView {
	v := promotionView{
		ID:        p.ID,
		Code:      p.Code,
		Scope:     string(p.Scope),
		Type:      string(p.Type),
		Value:     p.Value.InexactFloat64(),
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		IsActive:  p.IsActive,
		UsedCount: p.UsedCount,
		Status:    string(p.StatusAt(now)),
	}
	if p.MaxDiscount != nil {
		f := p.MaxDiscount.InexactFloat64()
		v.MaxDiscount = &f
	}
	if p.MinOrderValue != nil {
		f := p.MinOrderValue.InexactFloat64()
		v.MinOrderValue = &f
	}
	v.UsageLimit = p.UsageLimit
	v.PerUserLimit = p.PerUserLimit
	for _, t := range p.Targets {
		v.Targets = append(v.Targets, targetRequest{
			ProductID:     t.ProductID,
			VariantID:     t.VariantID,
			SpecificValue: t.SpecificValue,
		})
	}
	return v
}
