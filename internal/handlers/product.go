package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/productcatalog/apiserver/internal/services"
	"github.com/productcatalog/apiserver/internal/store"
	"github.com/productcatalog/apiserver/types"
	"github.com/sirupsen/logrus"
)

const (
	msgCategoryNotFound = "Category not found"
	msgInvalidIDs       = "Missing or invalid ids"
	msgNothingDeleted   = "No products were deleted"
)

// ProductHandler provides HTTP handlers for products.
type ProductHandler struct {
	productService *services.ProductService
	log            logrus.FieldLogger
}

func NewProductHandler(productService *services.ProductService, log logrus.FieldLogger) *ProductHandler {
	return &ProductHandler{productService: productService, log: log}
}

// ProductRouter registers product routes on the given router.
func ProductRouter(r chi.Router, productService *services.ProductService, log logrus.FieldLogger) {
	handler := NewProductHandler(productService, log)

	r.Get("/", handler.ListProducts)
	r.Post("/", handler.CreateProduct)
	r.Delete("/", handler.DeleteProducts)
	r.Route("/{productID}", func(r chi.Router) {
		r.Get("/", handler.GetProduct)
		r.Put("/", handler.UpdateProduct)
		r.Delete("/", handler.DeleteProduct)
	})
}

func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := parseListQuery(r, defaultProductPageSize)
	q.CategoryIDs = parseCategoryIDs(r.URL.Query().Get("categoryId"))

	page, err := h.productService.List(r.Context(), q)
	if err != nil {
		h.log.WithError(err).Error("failed to list products")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.productService.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err, "failed to fetch product")
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		writeError(w, http.StatusBadRequest, msgMissingTitle)
		return
	}
	if req.CategoryID != nil && !validID(*req.CategoryID) {
		writeError(w, http.StatusBadRequest, msgCategoryNotFound)
		return
	}

	product := types.Product{
		Title:       title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
	}
	if req.Price != nil {
		product.Price = *req.Price
	}

	created, err := h.productService.Create(r.Context(), product)
	if err != nil {
		h.writeStoreError(w, err, "failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch types.ProductPatch
	if err := readJSON(r, &patch); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if categoryID, ok := patch.CategoryID.Get(); ok && !validID(categoryID) {
		writeError(w, http.StatusBadRequest, msgCategoryNotFound)
		return
	}

	updated, err := h.productService.Update(r.Context(), id, patch)
	if err != nil {
		h.writeStoreError(w, err, "failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "productID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.productService.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err, "failed to delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteProducts removes every listed product that exists. Ids that are
// already gone are skipped; the response lists what was actually removed.
func (h *ProductHandler) DeleteProducts(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ids, ok := parseIDList(req.IDs)
	if !ok {
		writeError(w, http.StatusBadRequest, msgInvalidIDs)
		return
	}

	result, err := h.productService.DeleteMany(r.Context(), ids)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, msgNothingDeleted)
			return
		}
		h.log.WithError(err).WithField("ids", ids).Error("failed to delete products")
		writeError(w, http.StatusInternalServerError, msgServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ProductHandler) writeStoreError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, http.StatusBadRequest, msgCategoryNotFound)
	default:
		h.log.WithError(err).Error(msg)
		writeError(w, http.StatusInternalServerError, msgServerError)
	}
}

// parseIDList accepts a non-empty JSON array of positive integers.
func parseIDList(raw json.RawMessage) ([]int, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil || len(ids) == 0 {
		return nil, false
	}
	for _, id := range ids {
		if !validID(id) {
			return nil, false
		}
	}
	return ids, true
}

type ProductRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       *float64 `json:"price"`
	CategoryID  *int     `json:"categoryId"`
}

type BulkDeleteRequest struct {
	IDs json.RawMessage `json:"ids"`
}
