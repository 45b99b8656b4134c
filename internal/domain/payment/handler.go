package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/martly/martly-api/internal/domain/user"
	"github.com/martly/martly-api/internal/middleware"
	"github.com/martly/martly-api/internal/pkg/database"
	"github.com/martly/martly-api/internal/pkg/paystack"
	"github.com/martly/martly-api/internal/pkg/response"
	"github.com/martly/martly-api/internal/pkg/validator"
)

// Handler handles payment HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates payment handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// TopUpRequest carries the amount to fund, in minor units
type TopUpRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

func (h *Handler) InitializeTopUp(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())

	var req TopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	out, err := h.svc.InitializeTopUp(r.Context(), buyerID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			response.BadRequest(w, "amount must be greater than zero")
		case errors.Is(err, user.ErrNotFound):
			response.NotFound(w, "user not found")
		default:
			response.Error(w, http.StatusBadGateway, "GATEWAY_ERROR", "payment gateway unavailable")
		}
		return
	}

	response.OK(w, out)
}

func (h *Handler) VerifyTopUp(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())
	reference := chi.URLParam(r, "reference")

	out, err := h.svc.VerifyTopUp(r.Context(), buyerID, reference)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "transaction not found")
		case errors.Is(err, ErrForbidden):
			response.Forbidden(w, "transaction belongs to a different user")
		case errors.Is(err, ErrVerificationFailed), errors.Is(err, paystack.ErrVerificationFailed):
			response.Error(w, http.StatusPaymentRequired, "NOT_CONFIRMED", "payment not confirmed by gateway")
		case database.IsLockTimeout(err):
			response.ServiceUnavailable(w, "transaction is being verified, try again")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, out)
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())

	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	txs, err := h.svc.ListTransactions(r.Context(), buyerID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, txs)
}

// Routes returns payment routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireBuyer())
		r.Post("/topup", h.InitializeTopUp)
		r.Get("/topup/verify/{reference}", h.VerifyTopUp)
		r.Get("/transactions", h.ListTransactions)
	})

	return r
}
