package database

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreBackend implements Backend against Cloud Firestore.
type FirestoreBackend struct {
	client *firestore.Client
}

// NewFirestoreBackend wraps an initialized Firestore client.
func NewFirestoreBackend(client *firestore.Client) *FirestoreBackend {
	return &FirestoreBackend{client: client}
}

func (b *FirestoreBackend) Add(ctx context.Context, collection string, data map[string]interface{}) (string, error) {
	ref, _, err := b.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("adding document to %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (b *FirestoreBackend) Get(ctx context.Context, collection, id string) (*Document, error) {
	snap, err := b.client.Collection(collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", collection, id, err)
	}
	return &Document{ID: snap.Ref.ID, Data: snap.Data()}, nil
}

func (b *FirestoreBackend) Set(ctx context.Context, collection, id string, data map[string]interface{}) error {
	if _, err := b.client.Collection(collection).Doc(id).Set(ctx, data); err != nil {
		return fmt.Errorf("setting %s/%s: %w", collection, id, err)
	}
	return nil
}

func (b *FirestoreBackend) Update(ctx context.Context, collection, id string, data map[string]interface{}) error {
	updates := make([]firestore.Update, 0, len(data))
	for field, value := range data {
		updates = append(updates, firestore.Update{Path: field, Value: value})
	}
	if _, err := b.client.Collection(collection).Doc(id).Update(ctx, updates); err != nil {
		return fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	return nil
}

func (b *FirestoreBackend) Delete(ctx context.Context, collection, id string) error {
	if _, err := b.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return nil
}

func (b *FirestoreBackend) GetAll(ctx context.Context, collection string, q Query) ([]Document, error) {
	iter := b.buildQuery(collection, q).Documents(ctx)
	defer iter.Stop()

	var docs []Document
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("querying %s: %w", collection, err)
		}
		docs = append(docs, Document{ID: snap.Ref.ID, Data: snap.Data()})
	}
	return docs, nil
}

func (b *FirestoreBackend) Subscribe(ctx context.Context, collection string, q Query, fn func([]Document)) (func(), error) {
	subCtx, cancel := context.WithCancel(ctx)
	snaps := b.buildQuery(collection, q).Snapshots(subCtx)

	go func() {
		defer snaps.Stop()
		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					log.Printf("Subscription to %s ended: %v", collection, err)
				}
				return
			}

			var docs []Document
			docIter := snap.Documents
			for {
				docSnap, err := docIter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("Error reading %s snapshot: %v", collection, err)
					return
				}
				docs = append(docs, Document{ID: docSnap.Ref.ID, Data: docSnap.Data()})
			}
			fn(docs)
		}
	}()

	return cancel, nil
}

func (b *FirestoreBackend) buildQuery(collection string, q Query) firestore.Query {
	fq := b.client.Collection(collection).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, "==", f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Descending {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	return fq
}
