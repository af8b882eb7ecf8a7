package handlers

import (
	"encoding/json"
	"net/http"

	"borrowbox/backend/middleware"
	"borrowbox/backend/models"
	"borrowbox/backend/services"

	"github.com/gorilla/mux"
)

// ItemHandler serves the listed-items routes.
type ItemHandler struct {
	catalog *services.Catalog
	uploads *services.Uploads
}

// NewItemHandler creates an ItemHandler.
func NewItemHandler(catalog *services.Catalog, uploads *services.Uploads) *ItemHandler {
	return &ItemHandler{catalog: catalog, uploads: uploads}
}

// GetItems returns the full catalog, newest first.
func (h *ItemHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.GetAllItems(r.Context())
	if err != nil {
		http.Error(w, "Failed to get items: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// GetAvailableItems returns available items, optionally filtered by the
// category query parameter.
func (h *ItemHandler) GetAvailableItems(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	items, err := h.catalog.GetAvailableItems(r.Context(), category)
	if err != nil {
		http.Error(w, "Failed to get available items: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// SearchItems returns available items matching the q query parameter.
func (h *ItemHandler) SearchItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	items, err := h.catalog.SearchItems(r.Context(), query)
	if err != nil {
		http.Error(w, "Failed to search items: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(items)
}

// GetItem returns one item by id.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get item: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(item)
}

// AddItem creates a listing owned by the authenticated user.
func (h *ItemHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	var item models.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if item.Title == "" || item.Description == "" {
		http.Error(w, "Title and description are required", http.StatusBadRequest)
		return
	}
	if !models.ValidCategory(item.Category) {
		http.Error(w, "Unknown category: "+item.Category, http.StatusBadRequest)
		return
	}
	if !item.IsFree && item.Price <= 0 {
		http.Error(w, "Price must be positive unless the item is free", http.StatusBadRequest)
		return
	}
	if item.PricingType == "" {
		item.PricingType = models.PricingPerDay
	}
	if item.PricingType != models.PricingPerDay && item.PricingType != models.PricingPerHour {
		http.Error(w, "Unknown pricing type: "+item.PricingType, http.StatusBadRequest)
		return
	}

	// The listing belongs to the caller no matter what the body says.
	item.OwnerID = userID
	item.Available = true

	id, err := h.catalog.CreateItem(r.Context(), item)
	if err != nil {
		http.Error(w, "Failed to create item: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// UpdateItem merge-updates a listing. Only the owner may update it.
func (h *ItemHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// Ownership and identity fields are not writable through this route.
	delete(updates, "ownerId")
	delete(updates, "createdAt")

	if err := h.catalog.UpdateItem(r.Context(), item.ID, updates); err != nil {
		http.Error(w, "Failed to update item: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// DeleteItem permanently removes a listing. Only the owner may delete it.
func (h *ItemHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteItem(r.Context(), item.ID); err != nil {
		http.Error(w, "Failed to delete item: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

// UploadItemImage stores a photo for the listing and points the listing's
// imageUrl at it. If the follow-up document write fails the blob stays
// behind; nothing cleans it up.
func (h *ItemHandler) UploadItemImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.ownedItem(w, r)
	if !ok {
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "Missing image file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	url, err := h.uploads.UploadItemImage(r.Context(), file, item.ID)
	if err != nil {
		http.Error(w, "Failed to upload image: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.catalog.UpdateItem(r.Context(), item.ID, map[string]interface{}{"imageUrl": url}); err != nil {
		http.Error(w, "Failed to save image URL: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"imageUrl": url})
}

// ownedItem loads the routed item and checks the caller owns it, writing the
// error response itself when not.
func (h *ItemHandler) ownedItem(w http.ResponseWriter, r *http.Request) (*models.Item, bool) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return nil, false
	}

	vars := mux.Vars(r)
	id := vars["id"]

	item, err := h.catalog.GetItem(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get item: "+err.Error(), http.StatusInternalServerError)
		return nil, false
	}
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return nil, false
	}
	if item.OwnerID != userID {
		http.Error(w, "Forbidden: not the item owner", http.StatusForbidden)
		return nil, false
	}
	return item, true
}
