package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/shivcommunication/storefront/internal/model"
	"github.com/shivcommunication/storefront/internal/repo"
)

// ProductHandler serves the public catalog and the admin catalog API
type ProductHandler struct {
	products repo.ProductRepo
}

// NewProductHandler creates a new product handler
func NewProductHandler(products repo.ProductRepo) *ProductHandler {
	return &ProductHandler{products: products}
}

type productResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int64     `json:"price"`
	Image       string    `json:"image,omitempty"`
	Category    string    `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type createProductRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Price       int64  `json:"price" validate:"gte=0"`
	Image       string `json:"image" validate:"omitempty,url"`
	Category    string `json:"category" validate:"max=100"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// HandleList handles GET /products
func (h *ProductHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("list products")
		respondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"products": out})
}

// HandleGet handles GET /products/{id}
func (h *ProductHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("product_id", id.String()).Msg("get product")
		respondWithError(w, http.StatusInternalServerError, "failed to load product")
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

// HandleCreate handles POST /admin/api/products
func (h *ProductHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := validate.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product: "+err.Error())
		return
	}

	p, err := h.products.Create(r.Context(), model.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
	})
	if err != nil {
		log.Error().Err(err).Msg("create product")
		respondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	log.Info().Str("product_id", p.ID.String()).Msg("product created")
	respondJSON(w, http.StatusCreated, toProductResponse(p))
}

// HandleDelete handles DELETE /admin/api/products/{id}
func (h *ProductHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	err := h.products.Delete(r.Context(), id)
	if errors.Is(err, repo.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		log.Error().Err(err).Str("product_id", id.String()).Msg("delete product")
		respondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid product id")
		return uuid.Nil, false
	}
	return id, true
}
