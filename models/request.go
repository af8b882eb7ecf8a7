package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// BorrowRequest statuses
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// DateFormat is the calendar-date layout used for borrow spans.
const DateFormat = "2006-01-02"

// ErrInvalidTransition is returned when a status change is not allowed from
// the request's current status.
var ErrInvalidTransition = errors.New("invalid request status transition")

// BorrowRequest is a pending-or-resolved ask to borrow one item.
type BorrowRequest struct {
	ID           string `json:"id"`
	ItemID       string `json:"itemId"`
	ItemName     string `json:"itemName"`
	BorrowerID   string `json:"borrowerId"`
	BorrowerName string `json:"borrowerName"`
	LenderID     string `json:"lenderId"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

// transitions maps each non-terminal status to the statuses it may move to.
// rejected, completed and cancelled are terminal.
var transitions = map[string][]string{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusActive, StatusCancelled},
	StatusActive:   {StatusCompleted, StatusCancelled},
}

// ValidStatus reports whether s is a declared request status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a request may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Transition validates a status change, returning the new status or
// ErrInvalidTransition for illegal moves.
func Transition(from, to string) (string, error) {
	if !ValidStatus(to) {
		return "", fmt.Errorf("unknown request status %q", to)
	}
	if !CanTransition(from, to) {
		return "", fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return to, nil
}

// CalculateDays returns the whole number of days between two calendar dates,
// rounding partial days up. Malformed dates count as zero.
func CalculateDays(startDate, endDate string) int {
	start, err := time.Parse(DateFormat, startDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(DateFormat, endDate)
	if err != nil {
		return 0
	}
	diff := end.Sub(start).Hours()
	return int(math.Ceil(math.Abs(diff) / HoursPerDay))
}

// Days returns the borrow span length of the request.
func (r BorrowRequest) Days() int {
	return CalculateDays(r.StartDate, r.EndDate)
}

// RequestFromDoc builds a BorrowRequest from a raw document snapshot.
func RequestFromDoc(id string, data map[string]interface{}) BorrowRequest {
	return BorrowRequest{
		ID:           id,
		ItemID:       docString(data, "itemId"),
		ItemName:     docString(data, "itemName"),
		BorrowerID:   docString(data, "borrowerId"),
		BorrowerName: docString(data, "borrowerName"),
		LenderID:     docString(data, "lenderId"),
		StartDate:    docString(data, "startDate"),
		EndDate:      docString(data, "endDate"),
		Status:       docString(data, "status"),
		CreatedAt:    docString(data, "createdAt"),
		UpdatedAt:    docString(data, "updatedAt"),
	}
}

// Doc returns the persisted field map for the request.
func (r BorrowRequest) Doc() map[string]interface{} {
	return map[string]interface{}{
		"itemId":       r.ItemID,
		"itemName":     r.ItemName,
		"borrowerId":   r.BorrowerID,
		"borrowerName": r.BorrowerName,
		"lenderId":     r.LenderID,
		"startDate":    r.StartDate,
		"endDate":      r.EndDate,
		"status":       r.Status,
		"createdAt":    r.CreatedAt,
		"updatedAt":    r.UpdatedAt,
	}
}

// CreatedTime parses the creation timestamp for sorting.
func (r BorrowRequest) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339, r.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
