package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreKV stores each key as a document in one collection.
type FirestoreKV struct {
	client     *firestore.Client
	collection string
}

type kvDoc struct {
	Value     []byte    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// NewFirestoreKV connects to projectID.
func NewFirestoreKV(ctx context.Context, projectID, collection string) (*FirestoreKV, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}
	if collection == "" {
		collection = "akbar_kv"
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}
	return &FirestoreKV{client: client, collection: collection}, nil
}

func (s *FirestoreKV) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(key)
}

// Get reads key.
func (s *FirestoreKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := validateKey(key); err != nil {
		return nil, false, err
	}
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("firestore get %s: %w", key, err)
	}
	var doc kvDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, false, fmt.Errorf("firestore get %s decode: %w", key, err)
	}
	return doc.Value, true, nil
}

// Set overwrites key.
func (s *FirestoreKV) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.doc(key).Set(ctx, kvDoc{Value: value, UpdatedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("firestore set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *FirestoreKV) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if _, err := s.doc(key).Delete(ctx); err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("firestore delete %s: %w", key, err)
	}
	return nil
}

// Close releases the client.
func (s *FirestoreKV) Close() error {
	return s.client.Close()
}
