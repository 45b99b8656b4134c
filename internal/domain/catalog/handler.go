package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/martly/martly-api/internal/middleware"
	"github.com/martly/martly-api/internal/pkg/response"
	"github.com/martly/martly-api/internal/pkg/validator"
)

type Handler struct {
	repo *Repository
}

type createProductRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Category    string `json:"category" validate:"max=255"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Quantity    int    `json:"quantity" validate:"gte=0"`
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())

	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if fieldErrors := validator.Validate(req); fieldErrors != nil {
		response.ValidationError(w, fieldErrors)
		return
	}

	p := &Product{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}
	if err := h.repo.Create(r.Context(), p); err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, p)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)
	if limit > 100 {
		limit = 100
	}

	products, err := h.repo.List(r.Context(), limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, products)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid product id")
		return
	}

	p, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			response.NotFound(w, "product not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, p)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	vendorID := middleware.GetUserID(r.Context())

	products, err := h.repo.ListByVendor(r.Context(), vendorID)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, products)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.With(middleware.RequireVendor()).Post("/", h.Create)
		r.With(middleware.RequireVendor()).Get("/mine", h.ListMine)
	})
	return r
}

func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}
