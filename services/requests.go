package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"borrowbox/backend/database"
	"borrowbox/backend/models"
)

// Validation errors surfaced before any write happens.
var (
	ErrEndNotAfterStart = errors.New("end date must be after start date")
	ErrOwnItem          = errors.New("you cannot borrow your own item")
	ErrRequestNotFound  = errors.New("request not found")
)

// Requests is the data-access layer for borrow requests.
type Requests struct {
	db database.Backend
}

// NewRequests creates a Requests store over the given document store.
func NewRequests(db database.Backend) *Requests {
	return &Requests{db: db}
}

// CreateRequest stores a new borrow request. The status is forced to pending
// regardless of what the caller supplied, the borrow span must end strictly
// after it starts, and borrowing your own item is rejected.
func (r *Requests) CreateRequest(ctx context.Context, req models.BorrowRequest) (string, error) {
	start, err := time.Parse(models.DateFormat, req.StartDate)
	if err != nil {
		return "", fmt.Errorf("invalid start date %q: %w", req.StartDate, err)
	}
	end, err := time.Parse(models.DateFormat, req.EndDate)
	if err != nil {
		return "", fmt.Errorf("invalid end date %q: %w", req.EndDate, err)
	}
	if !end.After(start) {
		return "", ErrEndNotAfterStart
	}
	if req.BorrowerID == req.LenderID {
		return "", ErrOwnItem
	}

	now := nowISO()
	req.Status = models.StatusPending
	req.CreatedAt = now
	req.UpdatedAt = now

	id, err := r.db.Add(ctx, models.CollectionRequests, req.Doc())
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	return id, nil
}

// GetRequest returns the request, or (nil, nil) when the id does not exist.
func (r *Requests) GetRequest(ctx context.Context, id string) (*models.BorrowRequest, error) {
	doc, err := r.db.Get(ctx, models.CollectionRequests, id)
	if err != nil {
		return nil, fmt.Errorf("getting request: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	req := models.RequestFromDoc(doc.ID, doc.Data)
	return &req, nil
}

// GetUserRequests returns the requests a user made as borrower, newest first.
func (r *Requests) GetUserRequests(ctx context.Context, userID string) ([]models.BorrowRequest, error) {
	return r.byField(ctx, "borrowerId", userID)
}

// GetLenderRequests returns the requests against a user's items, newest first.
func (r *Requests) GetLenderRequests(ctx context.Context, userID string) ([]models.BorrowRequest, error) {
	return r.byField(ctx, "lenderId", userID)
}

func (r *Requests) byField(ctx context.Context, field, userID string) ([]models.BorrowRequest, error) {
	docs, err := r.db.GetAll(ctx, models.CollectionRequests, database.Query{
		Filters: []database.Filter{{Field: field, Value: userID}},
	})
	if err != nil {
		return nil, fmt.Errorf("getting requests by %s: %w", field, err)
	}

	requests := requestsFromDocs(docs)
	sortRequestsNewestFirst(requests)
	return requests, nil
}

// UpdateRequestStatus moves a request to a new status. Only transitions
// allowed by the status table go through; anything else fails with
// models.ErrInvalidTransition. Last writer wins between concurrent legal
// updates, the store does no compare-and-swap.
func (r *Requests) UpdateRequestStatus(ctx context.Context, id, status string) error {
	current, err := r.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return fmt.Errorf("%w: %s", ErrRequestNotFound, id)
	}

	next, err := models.Transition(current.Status, status)
	if err != nil {
		return err
	}

	err = r.db.Update(ctx, models.CollectionRequests, id, map[string]interface{}{
		"status":    next,
		"updatedAt": nowISO(),
	})
	if err != nil {
		return fmt.Errorf("updating request status: %w", err)
	}
	return nil
}

// SubscribeToUserRequests delivers the user's borrower-side requests
// immediately and after every remote change, newest first. The returned func
// cancels the subscription.
func (r *Requests) SubscribeToUserRequests(ctx context.Context, userID string, callback func([]models.BorrowRequest)) (func(), error) {
	q := database.Query{Filters: []database.Filter{{Field: "borrowerId", Value: userID}}}
	return r.db.Subscribe(ctx, models.CollectionRequests, q, func(docs []database.Document) {
		requests := requestsFromDocs(docs)
		sortRequestsNewestFirst(requests)
		callback(requests)
	})
}

// PollLenderRequests fetches the lender's incoming requests immediately and
// then on a fixed interval, for screens with no live subscription. The
// returned func stops the polling.
func (r *Requests) PollLenderRequests(ctx context.Context, userID string, interval time.Duration, callback func([]models.BorrowRequest)) func() {
	pollCtx, cancel := context.WithCancel(ctx)

	fetch := func() {
		requests, err := r.GetLenderRequests(pollCtx, userID)
		if err != nil {
			if pollCtx.Err() == nil {
				log.Printf("Error polling lender requests for %s: %v", userID, err)
			}
			return
		}
		callback(requests)
	}

	go func() {
		fetch()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-pollCtx.Done():
				return
			case <-ticker.C:
				fetch()
			}
		}
	}()

	return cancel
}

func requestsFromDocs(docs []database.Document) []models.BorrowRequest {
	requests := make([]models.BorrowRequest, 0, len(docs))
	for _, doc := range docs {
		requests = append(requests, models.RequestFromDoc(doc.ID, doc.Data))
	}
	return requests
}

func sortRequestsNewestFirst(requests []models.BorrowRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedTime().After(requests[j].CreatedTime())
	})
}
