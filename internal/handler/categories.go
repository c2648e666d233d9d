package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/orderdeck/api/internal/database"
	"github.com/orderdeck/api/internal/service"
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategoriesByOutlet(ctx context.Context, outletID uuid.UUID) ([]database.Category, error)
	CreateCategory(ctx context.Context, arg database.CreateCategoryParams) (database.Category, error)
	UpdateCategory(ctx context.Context, arg database.UpdateCategoryParams) (database.Category, error)
	SoftDeleteCategory(ctx context.Context, arg database.SoftDeleteCategoryParams) (uuid.UUID, error)
	UpdateCategorySortOrder(ctx context.Context, arg database.UpdateCategorySortOrderParams) (uuid.UUID, error)
}

// NewCategoryStore creates a CategoryStore from a DBTX (pool or tx).
type NewCategoryStore func(db database.DBTX) CategoryStore

// CategoryHandler handles category endpoints. Plain CRUD goes through store;
// Reorder opens its own transaction via pool + newStore.
type CategoryHandler struct {
	store    CategoryStore
	pool     service.TxBeginner
	newStore NewCategoryStore
	mutation []func(http.Handler) http.Handler
}

// NewCategoryHandler creates a category handler. Any mutation middlewares are
// applied to the write endpoints only; the list endpoint stays open to all staff.
func NewCategoryHandler(store CategoryStore, pool service.TxBeginner, newStore NewCategoryStore, mutation ...func(http.Handler) http.Handler) *CategoryHandler {
	return &CategoryHandler{store: store, pool: pool, newStore: newStore, mutation: mutation}
}

// RegisterRoutes registers category endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/categories
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(h.mutation...)
		r.Post("/", h.Create)
		r.Patch("/reorder", h.Reorder)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

type categoryRequest struct {
	Name string `json:"name"`
}

type reorderRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type categoryResponse struct {
	ID        uuid.UUID `json:"id"`
	OutletID  uuid.UUID `json:"outlet_id"`
	Name      string    `json:"name"`
	SortOrder int32     `json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func dbCategoryToResponse(c database.Category) categoryResponse {
	return categoryResponse{
		ID:        c.ID,
		OutletID:  c.OutletID,
		Name:      c.Name,
		SortOrder: c.SortOrder,
		CreatedAt: c.CreatedAt,
	}
}

// List handles GET /outlets/{oid}/categories.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	categories, err := h.store.ListCategoriesByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = dbCategoryToResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create handles POST /outlets/{oid}/categories.
func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "name is required")
		return
	}

	category, err := h.store.CreateCategory(r.Context(), database.CreateCategoryParams{
		OutletID: outletID,
		Name:     req.Name,
	})
	if err != nil {
		log.Printf("ERROR: create category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, dbCategoryToResponse(category))
}

// Update handles PUT /outlets/{oid}/categories/{id}.
func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid category ID")
		return
	}

	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "name is required")
		return
	}

	category, err := h.store.UpdateCategory(r.Context(), database.UpdateCategoryParams{
		ID:       categoryID,
		OutletID: outletID,
		Name:     req.Name,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "category not found")
			return
		}
		log.Printf("ERROR: update category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, dbCategoryToResponse(category))
}

// Delete handles DELETE /outlets/{oid}/categories/{id} (soft delete).
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	categoryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid category ID")
		return
	}

	if _, err := h.store.SoftDeleteCategory(r.Context(), database.SoftDeleteCategoryParams{
		ID:       categoryID,
		OutletID: outletID,
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, codeNotFound, "category not found")
			return
		}
		log.Printf("ERROR: delete category: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PATCH /outlets/{oid}/categories/reorder. The submitted ids
// must be a permutation of the outlet's active categories; positions are
// assigned from list index so sort_order stays contiguous 0..N-1. The whole
// reorder runs in one transaction so a partial failure changes nothing.
func (h *CategoryHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, codeValidation, "ids are required")
		return
	}

	tx, err := h.pool.Begin(r.Context())
	if err != nil {
		log.Printf("ERROR: begin reorder tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	defer tx.Rollback(r.Context())

	store := h.newStore(tx)

	existing, err := store.ListCategoriesByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list categories for reorder: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if len(req.IDs) != len(existing) {
		writeError(w, http.StatusBadRequest, codeValidation, "ids must include every category exactly once")
		return
	}
	known := make(map[uuid.UUID]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(req.IDs))
	for _, id := range req.IDs {
		if !known[id] {
			writeError(w, http.StatusBadRequest, codeValidation, "unknown category id "+id.String())
			return
		}
		if seen[id] {
			writeError(w, http.StatusBadRequest, codeValidation, "duplicate category id "+id.String())
			return
		}
		seen[id] = true
	}

	for i, id := range req.IDs {
		if _, err := store.UpdateCategorySortOrder(r.Context(), database.UpdateCategorySortOrderParams{
			ID:        id,
			OutletID:  outletID,
			SortOrder: int32(i),
		}); err != nil {
			log.Printf("ERROR: update sort order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
	}

	categories, err := store.ListCategoriesByOutlet(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: list categories after reorder: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if err := tx.Commit(r.Context()); err != nil {
		log.Printf("ERROR: commit reorder tx: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = dbCategoryToResponse(c)
	}
	writeJSON(w, http.StatusOK, resp)
}
