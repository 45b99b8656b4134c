package checkout

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/martly/martly-api/internal/domain/cart"
	"github.com/martly/martly-api/internal/domain/catalog"
	"github.com/martly/martly-api/internal/domain/wallet"
	"github.com/martly/martly-api/internal/middleware"
	"github.com/martly/martly-api/internal/pkg/database"
	"github.com/martly/martly-api/internal/pkg/response"
)

// Handler handles checkout HTTP requests
type Handler struct {
	svc *Service
}

// NewHandler creates checkout handler
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Request optionally restricts checkout to a subset of cart item ids.
// An empty body purchases the whole cart.
type Request struct {
	ItemIDs []uuid.UUID `json:"item_ids,omitempty"`
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	buyerID := middleware.GetUserID(r.Context())

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		response.BadRequest(w, "invalid JSON body")
		return
	}

	out, err := h.svc.Checkout(r.Context(), buyerID, req.ItemIDs)
	if err != nil {
		var funds *wallet.InsufficientFundsError
		var stock *catalog.InsufficientStockError
		switch {
		case errors.Is(err, cart.ErrEmptyCart):
			response.BadRequest(w, "cart is empty")
		case errors.Is(err, catalog.ErrProductNotFound):
			response.NotFound(w, "product no longer exists")
		case errors.As(err, &funds):
			response.ErrorWithDetails(w, http.StatusBadRequest, "INSUFFICIENT_FUNDS",
				"wallet balance does not cover the cart total",
				map[string]string{
					"balance":  strconv.FormatInt(funds.Balance, 10),
					"required": strconv.FormatInt(funds.Required, 10),
				})
		case errors.As(err, &stock):
			response.ConflictWithDetails(w, "INSUFFICIENT_STOCK",
				"not enough stock for "+stock.Name,
				map[string]string{
					"product_id": stock.ProductID.String(),
					"available":  strconv.Itoa(stock.Available),
					"requested":  strconv.Itoa(stock.Requested),
				})
		case database.IsLockTimeout(err):
			response.ServiceUnavailable(w, "cart items are contended, try again")
		default:
			response.InternalError(w)
		}
		return
	}

	response.Created(w, out)
}

// Routes returns checkout routes
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Use(middleware.RequireBuyer())
	r.Post("/", h.Checkout)
	return r
}
