package docstore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Firestore is a Backend on Google Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore connects to the Firestore database of projectID. credentialsFile may be empty
// to use Application Default Credentials.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*Firestore, error) {
	if projectID == "" {
		return nil, errors.New("firestore project id is required")
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Insert implements Backend. The analysis timestamp is assigned by the Firestore server.
func (f *Firestore) Insert(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		data[k] = v
	}
	data[FieldAnalysisTimestamp] = firestore.ServerTimestamp

	ref, _, err := f.client.Collection(collection).Add(ctx, data)
	if err != nil {
		return "", fmt.Errorf("firestore add: %w", err)
	}
	return ref.ID, nil
}

// ListByUser implements Backend. The query needs a composite index on (userId, analysisTimestamp desc).
func (f *Firestore) ListByUser(ctx context.Context, collection, userID string) ([]Snapshot, error) {
	q := f.client.Collection(collection).
		Where(FieldUserID, "==", userID).
		OrderBy(FieldAnalysisTimestamp, firestore.Desc)
	return collect(q.Documents(ctx))
}

// ListByMinMatchScore implements Backend.
func (f *Firestore) ListByMinMatchScore(ctx context.Context, collection string, min float64) ([]Snapshot, error) {
	q := f.client.Collection(collection).
		Where(FieldMatchScore, ">=", min).
		OrderBy(FieldMatchScore, firestore.Desc).
		OrderBy(FieldAnalysisTimestamp, firestore.Desc)
	return collect(q.Documents(ctx))
}

// Close implements Backend.
func (f *Firestore) Close() error {
	return f.client.Close()
}

func collect(it *firestore.DocumentIterator) ([]Snapshot, error) {
	defer it.Stop()

	var snaps []Snapshot
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore query: %w", err)
		}
		snaps = append(snaps, Snapshot{ID: doc.Ref.ID, Data: doc.Data()})
	}
	return snaps, nil
}
