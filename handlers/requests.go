package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"borrowbox/backend/middleware"
	"borrowbox/backend/models"
	"borrowbox/backend/services"

	"github.com/gorilla/mux"
)

// RequestHandler serves the borrow-request routes.
type RequestHandler struct {
	requests *services.Requests
	catalog  *services.Catalog
}

// NewRequestHandler creates a RequestHandler.
func NewRequestHandler(requests *services.Requests, catalog *services.Catalog) *RequestHandler {
	return &RequestHandler{requests: requests, catalog: catalog}
}

// AddRequest creates a borrow request from the authenticated user against an
// available item they don't own.
func (h *RequestHandler) AddRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	var req models.BorrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := h.catalog.GetItem(r.Context(), req.ItemID)
	if err != nil {
		http.Error(w, "Failed to get item: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if item == nil {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}
	if !item.Available {
		http.Error(w, "Item is not available", http.StatusBadRequest)
		return
	}

	// The borrower is the caller; item name and lender come from the listing.
	req.BorrowerID = userID
	req.ItemName = item.Title
	req.LenderID = item.OwnerID

	id, err := h.requests.CreateRequest(r.Context(), req)
	if err != nil {
		if errors.Is(err, services.ErrEndNotAfterStart) || errors.Is(err, services.ErrOwnItem) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to create request: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"id": id})
}

// GetRequest returns one request. Only the borrower or the lender may see it.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	req, err := h.requests.GetRequest(r.Context(), vars["id"])
	if err != nil {
		http.Error(w, "Failed to get request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if req == nil {
		http.Error(w, "Request not found", http.StatusNotFound)
		return
	}
	if req.BorrowerID != userID && req.LenderID != userID {
		http.Error(w, "Forbidden: not a party to this request", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(req)
}

// GetBorrowerRequests returns the requests the authenticated user made.
func (h *RequestHandler) GetBorrowerRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.requests.GetUserRequests)
}

// GetLenderRequests returns the requests against the authenticated user's
// items.
func (h *RequestHandler) GetLenderRequests(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.requests.GetLenderRequests)
}

func (h *RequestHandler) listRequests(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, userID string) ([]models.BorrowRequest, error)) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	requests, err := fetch(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to get requests: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(requests)
}

type statusUpdate struct {
	Status string `json:"status"`
}

// UpdateRequestStatus moves a request through its status machine. The lender
// decides approve/reject/activate/complete; the borrower may only cancel.
func (h *RequestHandler) UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	var update statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	req, err := h.requests.GetRequest(r.Context(), id)
	if err != nil {
		http.Error(w, "Failed to get request: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if req == nil {
		http.Error(w, "Request not found", http.StatusNotFound)
		return
	}

	allowed := req.LenderID == userID ||
		(req.BorrowerID == userID && update.Status == models.StatusCancelled)
	if !allowed {
		http.Error(w, "Forbidden: not allowed to change this request", http.StatusForbidden)
		return
	}

	if err := h.requests.UpdateRequestStatus(r.Context(), id, update.Status); err != nil {
		if errors.Is(err, models.ErrInvalidTransition) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, services.ErrRequestNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to update request: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
