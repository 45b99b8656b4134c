package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/martly/martly-api/internal/middleware"
	"github.com/martly/martly-api/internal/pkg/response"
)

type Handler struct {
	repo *Repository
}

type addItemRequest struct {
	Quantity int `json:"quantity"`
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())

	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		response.BadRequest(w, "invalid product id")
		return
	}

	var req addItemRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	// Quantity defaults to 1 when the body is absent or empty
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	item, err := h.repo.Add(r.Context(), buyerID, productID, req.Quantity)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.Created(w, item)
}

func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())

	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid cart item id")
		return
	}

	if err := h.repo.Remove(r.Context(), buyerID, itemID); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			response.NotFound(w, "cart item not found")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]string{"message": "item removed"})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())

	items, err := h.repo.ListView(r.Context(), buyerID)
	if err != nil {
		response.InternalError(w)
		return
	}

	var total int64
	for _, item := range items {
		total += item.LineTotal
	}

	response.OK(w, map[string]interface{}{"items": items, "total": total})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireBuyer())
	r.Get("/", h.List)
	r.Post("/{productID}", h.Add)
	r.Delete("/{id}", h.Remove)
	return r
}
