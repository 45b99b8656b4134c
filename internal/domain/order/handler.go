package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/martly/martly-api/internal/middleware"
	"github.com/martly/martly-api/internal/pkg/database"
	"github.com/martly/martly-api/internal/pkg/response"
	"github.com/martly/martly-api/internal/pkg/validator"
)

// Handler handles order HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates order handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ValidateQRRequest carries the token read out of a scanned QR code
type ValidateQRRequest struct {
	QRToken string `json:"qr_token" validate:"required,uuid4"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	role := middleware.GetRole(r.Context())

	limit := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	offset := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}

	orders, err := h.svc.List(r.Context(), userID, role, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, orders)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "id")

	detail, err := h.svc.Get(r.Context(), id, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "order not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, detail)
}

func (h *Handler) ValidateQR(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())
	id := chi.URLParam(r, "id")

	var req ValidateQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	detail, err := h.svc.ValidateQR(r.Context(), id, vendorID, req.QRToken)
	if err != nil {
		var processed *AlreadyProcessedError
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "order not found")
		case errors.Is(err, ErrWrongVendor):
			response.Forbidden(w, "order belongs to a different vendor")
		case errors.Is(err, ErrInvalidQR):
			response.BadRequest(w, "qr token does not match this order")
		case errors.Is(err, ErrQRExpired):
			response.Error(w, http.StatusGone, "QR_EXPIRED", "qr code has expired")
		case errors.As(err, &processed):
			response.ConflictWithDetails(w, "ALREADY_PROCESSED", "order already processed",
				map[string]string{"status": string(processed.Status)})
		case database.IsLockTimeout(err):
			response.ServiceUnavailable(w, "order is being settled, try again")
		default:
			response.InternalError(w)
		}
		return
	}

	response.OK(w, detail)
}

// Routes returns order routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireVendor())
		r.Post("/{id}/validate", h.ValidateQR)
	})

	return r
}
