package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"borrowbox/backend/database"
	"borrowbox/backend/models"
)

// Catalog is the data-access layer for listed items. It performs no
// ownership checks; callers gate who may mutate what.
type Catalog struct {
	db database.Backend
}

// NewCatalog creates a Catalog over the given document store.
func NewCatalog(db database.Backend) *Catalog {
	return &Catalog{db: db}
}

// CreateItem stores a new listing and returns its generated id. Timestamps
// are stamped from the client clock and the normalized daily price is
// derived from the pricing type.
func (c *Catalog) CreateItem(ctx context.Context, item models.Item) (string, error) {
	now := nowISO()
	item.CreatedAt = now
	item.UpdatedAt = now
	item.PricePerDay = item.DailyPrice()

	id, err := c.db.Add(ctx, models.CollectionItems, item.Doc())
	if err != nil {
		return "", fmt.Errorf("creating item: %w", err)
	}
	return id, nil
}

// GetItem returns the item, or (nil, nil) when the id does not exist.
func (c *Catalog) GetItem(ctx context.Context, id string) (*models.Item, error) {
	doc, err := c.db.Get(ctx, models.CollectionItems, id)
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	if doc == nil {
		return nil, nil
	}
	item := models.ItemFromDoc(doc.ID, doc.Data)
	return &item, nil
}

// GetAllItems returns the full collection, newest first. The single-field
// ordering runs server-side; no composite index is needed without filters.
func (c *Catalog) GetAllItems(ctx context.Context) ([]models.Item, error) {
	docs, err := c.db.GetAll(ctx, models.CollectionItems, database.Query{
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("getting items: %w", err)
	}
	return itemsFromDocs(docs), nil
}

// GetAvailableItems returns available items, optionally restricted to one
// category. Sorting happens in memory so the equality filters don't need a
// composite index.
func (c *Catalog) GetAvailableItems(ctx context.Context, category string) ([]models.Item, error) {
	q := database.Query{Filters: []database.Filter{{Field: "available", Value: true}}}
	if category != "" && category != models.CategoryAll {
		q.Filters = append(q.Filters, database.Filter{Field: "category", Value: category})
	}

	docs, err := c.db.GetAll(ctx, models.CollectionItems, q)
	if err != nil {
		return nil, fmt.Errorf("getting available items: %w", err)
	}

	items := itemsFromDocs(docs)
	sortItemsNewestFirst(items)
	return items, nil
}

// SearchItems matches the query case-insensitively as a substring of title,
// description or category, over available items only. A blank query returns
// the available set unfiltered. This is a full-collection scan; fine while
// the catalog stays small.
func (c *Catalog) SearchItems(ctx context.Context, query string) ([]models.Item, error) {
	all, err := c.GetAllItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("searching items: %w", err)
	}

	query = strings.TrimSpace(query)
	var results []models.Item
	if query == "" {
		for _, item := range all {
			if item.Available {
				results = append(results, item)
			}
		}
		return results, nil
	}

	lower := strings.ToLower(query)
	for _, item := range all {
		if !item.Available {
			continue
		}
		if strings.Contains(strings.ToLower(item.Title), lower) ||
			strings.Contains(strings.ToLower(item.Description), lower) ||
			strings.Contains(strings.ToLower(item.Category), lower) {
			results = append(results, item)
		}
	}
	return results, nil
}

// UpdateItem merge-writes the given fields and stamps updatedAt.
func (c *Catalog) UpdateItem(ctx context.Context, id string, updates map[string]interface{}) error {
	merged := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		merged[k] = v
	}
	merged["updatedAt"] = nowISO()

	if err := c.db.Update(ctx, models.CollectionItems, id, merged); err != nil {
		return fmt.Errorf("updating item: %w", err)
	}
	return nil
}

// DeleteItem permanently removes the listing.
func (c *Catalog) DeleteItem(ctx context.Context, id string) error {
	if err := c.db.Delete(ctx, models.CollectionItems, id); err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	return nil
}

// SubscribeToAvailableItems delivers the current available-items set
// immediately and the full re-sorted set after every remote change. The
// returned func cancels the subscription.
func (c *Catalog) SubscribeToAvailableItems(ctx context.Context, callback func([]models.Item), category string) (func(), error) {
	q := database.Query{Filters: []database.Filter{{Field: "available", Value: true}}}
	if category != "" && category != models.CategoryAll {
		q.Filters = append(q.Filters, database.Filter{Field: "category", Value: category})
	}
	return c.subscribe(ctx, q, callback)
}

// SubscribeToUserItems delivers the owner's listings, same contract as
// SubscribeToAvailableItems.
func (c *Catalog) SubscribeToUserItems(ctx context.Context, ownerID string, callback func([]models.Item)) (func(), error) {
	q := database.Query{Filters: []database.Filter{{Field: "ownerId", Value: ownerID}}}
	return c.subscribe(ctx, q, callback)
}

func (c *Catalog) subscribe(ctx context.Context, q database.Query, callback func([]models.Item)) (func(), error) {
	return c.db.Subscribe(ctx, models.CollectionItems, q, func(docs []database.Document) {
		items := itemsFromDocs(docs)
		sortItemsNewestFirst(items)
		callback(items)
	})
}

func itemsFromDocs(docs []database.Document) []models.Item {
	items := make([]models.Item, 0, len(docs))
	for _, doc := range docs {
		items = append(items, models.ItemFromDoc(doc.ID, doc.Data))
	}
	return items
}

func sortItemsNewestFirst(items []models.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedTime().After(items[j].CreatedTime())
	})
}

// nowISO stamps documents with the client clock in ISO-8601, matching the
// stored timestamp format.
func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
