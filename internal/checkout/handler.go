package checkout

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler exposes the stateless calculation endpoint. The draft itself
// lives in the client; the server only derives totals from a snapshot.
type Handler struct {
	validate *validator.Validate
}

func NewHandler() *Handler {
	return &Handler{validate: validator.New()}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/calculate", h.calculate)
}

type calculateRequest struct {
	Draft Draft `json:"draft"`
}

func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}

	httpx.JSON(w, http.StatusOK, Calculate(req.Draft))
}
