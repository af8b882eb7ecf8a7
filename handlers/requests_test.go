package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"borrowbox/backend/database"
	"borrowbox/backend/models"
	"borrowbox/backend/services"

	"github.com/gorilla/mux"
)

func setupRequestTest() (*RequestHandler, *database.Memory) {
	db := database.NewMemory()
	return NewRequestHandler(services.NewRequests(db), services.NewCatalog(db)), db
}

func seedTestRequest(t *testing.T, db *database.Memory, req models.BorrowRequest) string {
	t.Helper()
	id, err := db.Add(context.Background(), models.CollectionRequests, req.Doc())
	if err != nil {
		t.Fatalf("Failed to seed request: %v", err)
	}
	return id
}

func TestAddRequest(t *testing.T) {
	handler, db := setupRequestTest()
	itemID := seedTestItem(t, db, models.Item{Title: "Drill", OwnerID: "lender-1", Available: true})

	reqBody := models.BorrowRequest{
		ItemID:     itemID,
		BorrowerID: "spoofed-borrower",
		LenderID:   "spoofed-lender",
		ItemName:   "Spoofed Name",
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-04",
	}

	req := NewAuthenticatedRequest("POST", "/requests", reqBody)
	w := httptest.NewRecorder()

	handler.AddRequest(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Error decoding response: %v", err)
	}

	doc, _ := db.Get(context.Background(), models.CollectionRequests, response["id"])
	if doc == nil {
		t.Fatal("Expected request to be stored")
	}
	stored := models.RequestFromDoc(doc.ID, doc.Data)
	if stored.BorrowerID != TestUserID {
		t.Errorf("Expected borrower from auth context, got %q", stored.BorrowerID)
	}
	if stored.LenderID != "lender-1" || stored.ItemName != "Drill" {
		t.Errorf("Expected lender and item name from the listing, got %+v", stored)
	}
	if stored.Status != models.StatusPending {
		t.Errorf("Expected pending status, got %q", stored.Status)
	}
}

func TestAddRequestItemNotFound(t *testing.T) {
	handler, _ := setupRequestTest()

	reqBody := models.BorrowRequest{ItemID: "nope", StartDate: "2025-03-01", EndDate: "2025-03-04"}
	req := NewAuthenticatedRequest("POST", "/requests", reqBody)
	w := httptest.NewRecorder()

	handler.AddRequest(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestAddRequestItemUnavailable(t *testing.T) {
	handler, db := setupRequestTest()
	itemID := seedTestItem(t, db, models.Item{Title: "Drill", OwnerID: "lender-1", Available: false})

	reqBody := models.BorrowRequest{ItemID: itemID, StartDate: "2025-03-01", EndDate: "2025-03-04"}
	req := NewAuthenticatedRequest("POST", "/requests", reqBody)
	w := httptest.NewRecorder()

	handler.AddRequest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestAddRequestOwnItem(t *testing.T) {
	handler, db := setupRequestTest()
	itemID := seedTestItem(t, db, models.Item{Title: "Drill", OwnerID: TestUserID, Available: true})

	reqBody := models.BorrowRequest{ItemID: itemID, StartDate: "2025-03-01", EndDate: "2025-03-04"}
	req := NewAuthenticatedRequest("POST", "/requests", reqBody)
	w := httptest.NewRecorder()

	handler.AddRequest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for borrowing own item, got %d", w.Code)
	}
}

func TestAddRequestBadDates(t *testing.T) {
	handler, db := setupRequestTest()
	itemID := seedTestItem(t, db, models.Item{Title: "Drill", OwnerID: "lender-1", Available: true})

	reqBody := models.BorrowRequest{ItemID: itemID, StartDate: "2025-03-04", EndDate: "2025-03-01"}
	req := NewAuthenticatedRequest("POST", "/requests", reqBody)
	w := httptest.NewRecorder()

	handler.AddRequest(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for reversed dates, got %d", w.Code)
	}
}

func TestGetRequestPartyOnly(t *testing.T) {
	handler, db := setupRequestTest()

	tests := []struct {
		name     string
		borrower string
		lender   string
		expected int
	}{
		{"borrower may read", TestUserID, "lender-1", http.StatusOK},
		{"lender may read", "borrower-1", TestUserID, http.StatusOK},
		{"stranger may not", "borrower-1", "lender-1", http.StatusForbidden},
	}

	for _, tt := range tests {
		id := seedTestRequest(t, db, models.BorrowRequest{
			ItemName:   "Drill",
			BorrowerID: tt.borrower,
			LenderID:   tt.lender,
			Status:     models.StatusPending,
		})

		req := NewAuthenticatedRequest("GET", "/requests/"+id, nil)
		req = mux.SetURLVars(req, map[string]string{"id": id})
		w := httptest.NewRecorder()

		handler.GetRequest(w, req)

		if w.Code != tt.expected {
			t.Errorf("%s: expected status %d, got %d", tt.name, tt.expected, w.Code)
		}
	}
}

func TestGetRequestNotFound(t *testing.T) {
	handler, _ := setupRequestTest()

	req := NewAuthenticatedRequest("GET", "/requests/nope", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "nope"})
	w := httptest.NewRecorder()

	handler.GetRequest(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetBorrowerRequests(t *testing.T) {
	handler, db := setupRequestTest()
	seedTestRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: TestUserID, LenderID: "lender-1", CreatedAt: "2025-01-01T10:00:00Z"})
	seedTestRequest(t, db, models.BorrowRequest{ItemName: "Tent", BorrowerID: "other", LenderID: "lender-1", CreatedAt: "2025-01-02T10:00:00Z"})

	req := NewAuthenticatedRequest("GET", "/requests/borrower", nil)
	w := httptest.NewRecorder()

	handler.GetBorrowerRequests(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var requests []models.BorrowRequest
	if err := json.NewDecoder(w.Body).Decode(&requests); err != nil {
		t.Fatalf("Error decoding response: %v", err)
	}
	if len(requests) != 1 || requests[0].ItemName != "Drill" {
		t.Errorf("Expected only the caller's requests, got %+v", requests)
	}
}

func TestGetLenderRequests(t *testing.T) {
	handler, db := setupRequestTest()
	seedTestRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "borrower-1", LenderID: TestUserID, CreatedAt: "2025-01-01T10:00:00Z"})

	req := NewAuthenticatedRequest("GET", "/requests/lender", nil)
	w := httptest.NewRecorder()

	handler.GetLenderRequests(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var requests []models.BorrowRequest
	if err := json.NewDecoder(w.Body).Decode(&requests); err != nil {
		t.Fatalf("Error decoding response: %v", err)
	}
	if len(requests) != 1 || requests[0].ItemName != "Drill" {
		t.Errorf("Expected the lender's incoming requests, got %+v", requests)
	}
}

func TestUpdateRequestStatusAsLender(t *testing.T) {
	handler, db := setupRequestTest()
	id := seedTestRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "borrower-1", LenderID: TestUserID, Status: models.StatusPending})

	req := NewAuthenticatedRequest("PATCH", "/requests/"+id+"/status", statusUpdate{Status: models.StatusApproved})
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()

	handler.UpdateRequestStatus(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	doc, _ := db.Get(context.Background(), models.CollectionRequests, id)
	stored := models.RequestFromDoc(doc.ID, doc.Data)
	if stored.Status != models.StatusApproved {
		t.Errorf("Expected approved, got %q", stored.Status)
	}
}

func TestUpdateRequestStatusBorrowerMayOnlyCancel(t *testing.T) {
	handler, db := setupRequestTest()

	id := seedTestRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: TestUserID, LenderID: "lender-1", Status: models.StatusPending})

	// Borrower approving their own request is forbidden.
	req := NewAuthenticatedRequest("PATCH", "/requests/"+id+"/status", statusUpdate{Status: models.StatusApproved})
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()
	handler.UpdateRequestStatus(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for borrower approval, got %d", w.Code)
	}

	// Cancelling is allowed.
	req = NewAuthenticatedRequest("PATCH", "/requests/"+id+"/status", statusUpdate{Status: models.StatusCancelled})
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w = httptest.NewRecorder()
	handler.UpdateRequestStatus(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for borrower cancel, got %d: %s", w.Code, w.Body.String())
	}
}

func TestUpdateRequestStatusIllegalTransition(t *testing.T) {
	handler, db := setupRequestTest()
	id := seedTestRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "borrower-1", LenderID: TestUserID, Status: models.StatusApproved})

	req := NewAuthenticatedRequest("PATCH", "/requests/"+id+"/status", statusUpdate{Status: models.StatusPending})
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()

	handler.UpdateRequestStatus(w, req)

	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 for approved to pending, got %d", w.Code)
	}
}

func TestUpdateRequestStatusStranger(t *testing.T) {
	handler, db := setupRequestTest()
	id := seedTestRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "borrower-1", LenderID: "lender-1", Status: models.StatusPending})

	req := NewAuthenticatedRequest("PATCH", "/requests/"+id+"/status", statusUpdate{Status: models.StatusApproved})
	req = mux.SetURLVars(req, map[string]string{"id": id})
	w := httptest.NewRecorder()

	handler.UpdateRequestStatus(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for a stranger, got %d", w.Code)
	}
}
