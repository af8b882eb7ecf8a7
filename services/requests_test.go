package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"borrowbox/backend/database"
	"borrowbox/backend/models"
)

func seedRequest(t *testing.T, db *database.Memory, req models.BorrowRequest) string {
	t.Helper()
	id, err := db.Add(context.Background(), models.CollectionRequests, req.Doc())
	if err != nil {
		t.Fatalf("Failed to seed request: %v", err)
	}
	return id
}

func TestCreateRequestForcesPending(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)
	ctx := context.Background()

	id, err := requests.CreateRequest(ctx, models.BorrowRequest{
		ItemID:     "item-1",
		ItemName:   "Drill",
		BorrowerID: "borrower-1",
		LenderID:   "lender-1",
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-04",
		Status:     models.StatusApproved,
	})
	if err != nil {
		t.Fatalf("CreateRequest failed: %v", err)
	}

	got, err := requests.GetRequest(ctx, id)
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got.Status != models.StatusPending {
		t.Errorf("Expected caller-supplied status to be overridden with pending, got %s", got.Status)
	}
	if got.CreatedAt == "" || got.UpdatedAt == "" {
		t.Error("Expected timestamps to be stamped")
	}
	if got.BorrowerID != "borrower-1" || got.LenderID != "lender-1" || got.ItemName != "Drill" {
		t.Errorf("Request fields changed in round trip: %+v", got)
	}
	if got.Days() != 3 {
		t.Errorf("Expected a 3 day span, got %d", got.Days())
	}
}

func TestCreateRequestDateValidation(t *testing.T) {
	requests := NewRequests(database.NewMemory())
	ctx := context.Background()

	base := models.BorrowRequest{
		ItemID:     "item-1",
		BorrowerID: "borrower-1",
		LenderID:   "lender-1",
	}

	tests := []struct {
		name    string
		start   string
		end     string
		wantErr error
	}{
		{"end equals start", "2025-03-01", "2025-03-01", ErrEndNotAfterStart},
		{"end before start", "2025-03-04", "2025-03-01", ErrEndNotAfterStart},
		{"malformed start", "not-a-date", "2025-03-04", nil},
		{"malformed end", "2025-03-01", "03/04/2025", nil},
	}

	for _, tt := range tests {
		req := base
		req.StartDate = tt.start
		req.EndDate = tt.end
		_, err := requests.CreateRequest(ctx, req)
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.wantErr, err)
		}
	}
}

func TestCreateRequestRejectsOwnItem(t *testing.T) {
	requests := NewRequests(database.NewMemory())

	_, err := requests.CreateRequest(context.Background(), models.BorrowRequest{
		ItemID:     "item-1",
		BorrowerID: "user-1",
		LenderID:   "user-1",
		StartDate:  "2025-03-01",
		EndDate:    "2025-03-04",
	})
	if !errors.Is(err, ErrOwnItem) {
		t.Errorf("Expected ErrOwnItem, got %v", err)
	}
}

func TestGetRequestMissing(t *testing.T) {
	requests := NewRequests(database.NewMemory())

	got, err := requests.GetRequest(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetRequest failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing request, got %+v", got)
	}
}

func TestGetUserRequests(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)
	ctx := context.Background()

	seedRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "user-1", LenderID: "user-2", Status: models.StatusPending, CreatedAt: "2025-01-01T10:00:00Z"})
	seedRequest(t, db, models.BorrowRequest{ItemName: "Tent", BorrowerID: "user-1", LenderID: "user-3", Status: models.StatusApproved, CreatedAt: "2025-01-02T10:00:00Z"})
	seedRequest(t, db, models.BorrowRequest{ItemName: "Ball", BorrowerID: "user-9", LenderID: "user-2", Status: models.StatusPending, CreatedAt: "2025-01-03T10:00:00Z"})

	got, err := requests.GetUserRequests(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserRequests failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 requests for user-1, got %d", len(got))
	}
	if got[0].ItemName != "Tent" || got[1].ItemName != "Drill" {
		t.Errorf("Expected newest-first order, got %s then %s", got[0].ItemName, got[1].ItemName)
	}
}

func TestGetLenderRequests(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)

	seedRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "user-1", LenderID: "user-2", CreatedAt: "2025-01-01T10:00:00Z"})
	seedRequest(t, db, models.BorrowRequest{ItemName: "Ball", BorrowerID: "user-9", LenderID: "user-2", CreatedAt: "2025-01-03T10:00:00Z"})
	seedRequest(t, db, models.BorrowRequest{ItemName: "Tent", BorrowerID: "user-1", LenderID: "user-3", CreatedAt: "2025-01-02T10:00:00Z"})

	got, err := requests.GetLenderRequests(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("GetLenderRequests failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 requests for lender user-2, got %d", len(got))
	}
	if got[0].ItemName != "Ball" || got[1].ItemName != "Drill" {
		t.Errorf("Expected newest-first order, got %s then %s", got[0].ItemName, got[1].ItemName)
	}
}

func TestUpdateRequestStatusLifecycle(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)
	ctx := context.Background()

	id := seedRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "user-1", LenderID: "user-2", Status: models.StatusPending, UpdatedAt: "2025-01-01T10:00:00Z"})

	for _, next := range []string{models.StatusApproved, models.StatusActive, models.StatusCompleted} {
		if err := requests.UpdateRequestStatus(ctx, id, next); err != nil {
			t.Fatalf("Transition to %s failed: %v", next, err)
		}
		got, _ := requests.GetRequest(ctx, id)
		if got.Status != next {
			t.Errorf("Expected status %s, got %s", next, got.Status)
		}
	}

	got, _ := requests.GetRequest(ctx, id)
	if got.UpdatedAt == "2025-01-01T10:00:00Z" {
		t.Error("Expected updatedAt to be re-stamped")
	}
}

func TestUpdateRequestStatusRejectsIllegalTransition(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)
	ctx := context.Background()

	id := seedRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "user-1", LenderID: "user-2", Status: models.StatusApproved})

	err := requests.UpdateRequestStatus(ctx, id, models.StatusPending)
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition, got %v", err)
	}

	// The stored status is untouched on a rejected transition
	got, _ := requests.GetRequest(ctx, id)
	if got.Status != models.StatusApproved {
		t.Errorf("Expected status to remain approved, got %s", got.Status)
	}
}

func TestUpdateRequestStatusMissing(t *testing.T) {
	requests := NewRequests(database.NewMemory())

	err := requests.UpdateRequestStatus(context.Background(), "nope", models.StatusApproved)
	if !errors.Is(err, ErrRequestNotFound) {
		t.Errorf("Expected ErrRequestNotFound, got %v", err)
	}
}

func TestSubscribeToUserRequests(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)
	ctx := context.Background()

	seedRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "user-1", LenderID: "user-2", CreatedAt: "2025-01-01T10:00:00Z"})

	var snapshots [][]models.BorrowRequest
	cancel, err := requests.SubscribeToUserRequests(ctx, "user-1", func(reqs []models.BorrowRequest) {
		snapshots = append(snapshots, reqs)
	})
	if err != nil {
		t.Fatalf("SubscribeToUserRequests failed: %v", err)
	}
	defer cancel()

	if len(snapshots) != 1 || len(snapshots[0]) != 1 {
		t.Fatalf("Expected immediate snapshot with 1 request, got %+v", snapshots)
	}

	seedRequest(t, db, models.BorrowRequest{ItemName: "Tent", BorrowerID: "user-1", LenderID: "user-3", CreatedAt: "2025-01-02T10:00:00Z"})
	if len(snapshots) != 2 {
		t.Fatalf("Expected 2 snapshots, got %d", len(snapshots))
	}
	if len(snapshots[1]) != 2 || snapshots[1][0].ItemName != "Tent" {
		t.Errorf("Expected full newest-first snapshot, got %+v", snapshots[1])
	}
}

func TestPollLenderRequests(t *testing.T) {
	db := database.NewMemory()
	requests := NewRequests(db)
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	seedRequest(t, db, models.BorrowRequest{ItemName: "Drill", BorrowerID: "user-1", LenderID: "user-2", CreatedAt: "2025-01-01T10:00:00Z"})

	var mu sync.Mutex
	var calls [][]models.BorrowRequest
	done := make(chan struct{})

	stop := requests.PollLenderRequests(ctx, "user-2", 10*time.Millisecond, func(reqs []models.BorrowRequest) {
		mu.Lock()
		calls = append(calls, reqs)
		n := len(calls)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})
	defer stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for poll callbacks")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(calls) < 3 {
		t.Fatalf("Expected at least 3 callbacks, got %d", len(calls))
	}
	// The immediate fetch and each tick both deliver the full current set
	for i, reqs := range calls[:3] {
		if len(reqs) != 1 || reqs[0].ItemName != "Drill" {
			t.Errorf("Callback %d: expected the lender's request, got %+v", i, reqs)
		}
	}
}
