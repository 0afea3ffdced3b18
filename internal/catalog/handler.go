package catalog

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/hvmc/store-backend/pkg/models"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	store  Store
	logger *logrus.Logger
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.ListCategories(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list categories")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	h.respondWithJSON(w, http.StatusOK, categories)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(category.Name) == "" {
		h.respondWithError(w, http.StatusBadRequest, "Category name is required")
		return
	}

	category.ID = uuid.New().String()
	if err := h.store.CreateCategory(r.Context(), &category); err != nil {
		h.logger.WithError(err).Error("Failed to create category")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create category")
		return
	}

	h.logger.WithField("category_id", category.ID).Info("Category created")
	h.respondWithJSON(w, http.StatusCreated, category)
}

func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.store.GetCategory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if err == ErrNotFound {
			h.respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get category")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get category")
		return
	}
	h.respondWithJSON(w, http.StatusOK, category)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var category models.Category
	if err := json.NewDecoder(r.Body).Decode(&category); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	category.ID = mux.Vars(r)["id"]

	if err := h.store.UpdateCategory(r.Context(), &category); err != nil {
		if err == ErrNotFound {
			h.respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update category")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}
	h.respondWithJSON(w, http.StatusOK, category)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCategory(r.Context(), mux.Vars(r)["id"]); err != nil {
		if err == ErrNotFound {
			h.respondWithError(w, http.StatusNotFound, "Category not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete category")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list products")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}
	if products == nil {
		products = []*models.Product{}
	}
	h.respondWithJSON(w, http.StatusOK, products)
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(product.Name) == "" {
		h.respondWithError(w, http.StatusBadRequest, "Product name is required")
		return
	}
	if product.CategoryID == "" {
		h.respondWithError(w, http.StatusBadRequest, "Product category is required")
		return
	}
	if product.Price.IsNegative() {
		h.respondWithError(w, http.StatusBadRequest, "Product price must not be negative")
		return
	}

	product.ID = uuid.New().String()
	product.CreatedAt = time.Now().UTC()
	if err := h.store.CreateProduct(r.Context(), &product); err != nil {
		h.logger.WithError(err).Error("Failed to create product")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	h.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"category":   product.CategoryID,
	}).Info("Product created")
	h.respondWithJSON(w, http.StatusCreated, product)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.store.GetProduct(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if err == ErrNotFound {
			h.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to get product")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to get product")
		return
	}
	h.respondWithJSON(w, http.StatusOK, product)
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var product models.Product
	if err := json.NewDecoder(r.Body).Decode(&product); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	product.ID = mux.Vars(r)["id"]

	if err := h.store.UpdateProduct(r.Context(), &product); err != nil {
		if err == ErrNotFound {
			h.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to update product")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to update product")
		return
	}
	h.respondWithJSON(w, http.StatusOK, product)
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteProduct(r.Context(), mux.Vars(r)["id"]); err != nil {
		if err == ErrNotFound {
			h.respondWithError(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.WithError(err).Error("Failed to delete product")
		h.respondWithError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func (h *Handler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
