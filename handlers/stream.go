package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"borrowbox/backend/middleware"
	"borrowbox/backend/models"
)

// Server-sent-event streams over the live subscriptions. Every event carries
// the full re-sorted result set, not a delta, matching the subscription
// contract.

// StreamAvailableItems streams the available-items set, optionally filtered
// by the category query parameter.
func (h *ItemHandler) StreamAvailableItems(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")

	events := make(chan []byte, 16)
	cancel, err := h.catalog.SubscribeToAvailableItems(r.Context(), func(items []models.Item) {
		pushEvent(events, items, "items")
	}, category)
	if err != nil {
		http.Error(w, "Failed to subscribe: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancel()

	streamEvents(w, r, events)
}

// StreamUserRequests streams the authenticated user's borrower-side requests.
func (h *RequestHandler) StreamUserRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserIDFromContext(r)
	if userID == "" {
		http.Error(w, "Unauthorized: No user ID found", http.StatusUnauthorized)
		return
	}

	events := make(chan []byte, 16)
	cancel, err := h.requests.SubscribeToUserRequests(r.Context(), userID, func(requests []models.BorrowRequest) {
		pushEvent(events, requests, "requests")
	})
	if err != nil {
		http.Error(w, "Failed to subscribe: "+err.Error(), http.StatusInternalServerError)
		return
	}
	defer cancel()

	streamEvents(w, r, events)
}

// pushEvent encodes a snapshot and queues it without blocking the
// subscription goroutine. A slow client that falls 16 snapshots behind loses
// the oldest ones; each event is a full set, so the next one catches up.
func pushEvent(events chan []byte, payload interface{}, kind string) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error encoding %s snapshot: %v", kind, err)
		return
	}
	for {
		select {
		case events <- data:
			return
		default:
			select {
			case <-events:
			default:
			}
		}
	}
}

func streamEvents(w http.ResponseWriter, r *http.Request, events chan []byte) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-events:
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
