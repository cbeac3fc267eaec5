package counter

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const firestoreField = "lifetimeUpgrades"

// FirestoreStore keeps the total as a field on a single Firestore document,
// so several workstations can share one tally.
type FirestoreStore struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreClient creates a Firestore client for projectID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return client, nil
}

// NewFirestoreStore returns a store backed by collection/document.
func NewFirestoreStore(client *firestore.Client, collection, document string) *FirestoreStore {
	return &FirestoreStore{
		client: client,
		doc:    client.Collection(collection).Doc(document),
	}
}

func (s *FirestoreStore) Read(ctx context.Context) (int, error) {
	snap, err := s.doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", s.doc.Path, err)
	}

	total, err := lifetimeFrom(snap.Data())
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", s.doc.Path, err)
	}
	return total, nil
}

// lifetimeFrom extracts the total from document data. A missing field
// reads as zero.
func lifetimeFrom(data map[string]any) (int, error) {
	v, ok := data[firestoreField]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("field %s holds non-integer %v", firestoreField, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("field %s has type %T", firestoreField, v)
	}
}

func (s *FirestoreStore) Write(ctx context.Context, total int) error {
	_, err := s.doc.Set(ctx, map[string]any{
		firestoreField: total,
		"updatedAt":    time.Now().UTC(),
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set %s: %w", s.doc.Path, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
