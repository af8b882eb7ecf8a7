package models

import "time"

// Item is a lendable object listed by an owner.
type Item struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	ImageURL    string  `json:"imageUrl"`
	Price       float64 `json:"price"`
	PricePerDay float64 `json:"pricePerDay"`
	PricingType string  `json:"pricingType"`
	IsFree      bool    `json:"isFree"`
	OwnerID     string  `json:"ownerId"`
	OwnerName   string  `json:"ownerName"`
	OwnerAvatar string  `json:"ownerAvatar"`
	Available   bool    `json:"available"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

// EffectivePrice returns the price per pricing unit, forcing zero for free
// items regardless of any stored number.
func (i Item) EffectivePrice() float64 {
	if i.IsFree {
		return 0
	}
	return i.Price
}

// DailyPrice normalizes the price to a per-day rate.
func (i Item) DailyPrice() float64 {
	if i.IsFree {
		return 0
	}
	if i.PricingType == PricingPerHour {
		return i.Price * HoursPerDay
	}
	return i.Price
}

// TotalCost computes the cost of borrowing the item for the given number of
// whole days. Hourly items are charged for every hour of the span.
func (i Item) TotalCost(days int) float64 {
	if i.IsFree {
		return 0
	}
	if i.PricingType == PricingPerHour {
		return float64(days) * HoursPerDay * i.Price
	}
	return float64(days) * i.Price
}

// ItemFromDoc builds an Item from a raw document snapshot.
func ItemFromDoc(id string, data map[string]interface{}) Item {
	return Item{
		ID:          id,
		Title:       docString(data, "title"),
		Description: docString(data, "description"),
		Category:    docString(data, "category"),
		ImageURL:    docString(data, "imageUrl"),
		Price:       docFloat(data, "price"),
		PricePerDay: docFloat(data, "pricePerDay"),
		PricingType: docString(data, "pricingType"),
		IsFree:      docBool(data, "isFree"),
		OwnerID:     docString(data, "ownerId"),
		OwnerName:   docString(data, "ownerName"),
		OwnerAvatar: docString(data, "ownerAvatar"),
		Available:   docBool(data, "available"),
		CreatedAt:   docString(data, "createdAt"),
		UpdatedAt:   docString(data, "updatedAt"),
	}
}

// Doc returns the persisted field map for the item. The ID is carried by the
// document path, not the fields.
func (i Item) Doc() map[string]interface{} {
	return map[string]interface{}{
		"title":       i.Title,
		"description": i.Description,
		"category":    i.Category,
		"imageUrl":    i.ImageURL,
		"price":       i.Price,
		"pricePerDay": i.PricePerDay,
		"pricingType": i.PricingType,
		"isFree":      i.IsFree,
		"ownerId":     i.OwnerID,
		"ownerName":   i.OwnerName,
		"ownerAvatar": i.OwnerAvatar,
		"available":   i.Available,
		"createdAt":   i.CreatedAt,
		"updatedAt":   i.UpdatedAt,
	}
}

// CreatedTime parses the creation timestamp, returning the zero time for
// missing or malformed values so sorting stays total.
func (i Item) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339, i.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
