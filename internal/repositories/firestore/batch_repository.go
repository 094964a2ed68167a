package firestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/printlane/api/internal/domain"
	pfirestore "github.com/printlane/api/internal/platform/firestore"
	"github.com/printlane/api/internal/repositories"
)

const batchCollection = "documentBatches"

// BatchRepository persists document batches within Firestore.
type BatchRepository struct {
	base     *pfirestore.BaseRepository[batchDocument]
	provider *pfirestore.Provider
}

var _ repositories.BatchRepository = (*BatchRepository)(nil)

// NewBatchRepository constructs a Firestore-backed batch repository.
func NewBatchRepository(provider *pfirestore.Provider) (*BatchRepository, error) {
	if provider == nil {
		return nil, errors.New("batch repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[batchDocument](provider, batchCollection, nil, nil)
	return &BatchRepository{
		base:     base,
		provider: provider,
	}, nil
}

// Insert stores a new batch document keyed by the batch identifier.
func (r *BatchRepository) Insert(ctx context.Context, batch domain.DocumentBatch) (domain.DocumentBatch, error) {
	if r == nil || r.base == nil {
		return domain.DocumentBatch{}, errors.New("batch repository not initialised")
	}
	batchID := strings.TrimSpace(batch.ID)
	if batchID == "" {
		return domain.DocumentBatch{}, errors.New("batch repository: batch id is required")
	}

	doc := encodeBatch(batch)
	if _, err := r.base.Set(ctx, batchID, doc); err != nil {
		return domain.DocumentBatch{}, err
	}

	saved := batch
	saved.ID = batchID
	return saved, nil
}

// Update replaces the batch document after verifying the stored UpdatedAt
// matches expectedUpdatedAt. A mismatch means another writer interleaved and
// surfaces as a conflict RepositoryError.
func (r *BatchRepository) Update(ctx context.Context, batch domain.DocumentBatch, expectedUpdatedAt time.Time) (domain.DocumentBatch, error) {
	if r == nil || r.base == nil {
		return domain.DocumentBatch{}, errors.New("batch repository not initialised")
	}
	batchID := strings.TrimSpace(batch.ID)
	if batchID == "" {
		return domain.DocumentBatch{}, errors.New("batch repository: batch id is required")
	}

	ref, err := r.base.DocumentRef(ctx, batchID)
	if err != nil {
		return domain.DocumentBatch{}, err
	}

	doc := encodeBatch(batch)
	err = r.provider.RunTransaction(ctx, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var stored batchDocument
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("batch repository: decode %s: %w", batchID, err)
		}
		if !stored.UpdatedAt.Equal(expectedUpdatedAt.UTC()) {
			// FailedPrecondition categorises as a conflict in the shared error wrapper.
			return status.Errorf(codes.FailedPrecondition, "batch %s was modified concurrently", batchID)
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.DocumentBatch{}, err
	}

	return batch, nil
}

// FindByID loads a batch by identifier.
func (r *BatchRepository) FindByID(ctx context.Context, batchID string) (domain.DocumentBatch, error) {
	if r == nil || r.base == nil {
		return domain.DocumentBatch{}, errors.New("batch repository not initialised")
	}
	id := strings.TrimSpace(batchID)
	if id == "" {
		return domain.DocumentBatch{}, errors.New("batch repository: batch id is required")
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.DocumentBatch{}, err
	}
	return decodeBatch(doc.ID, doc.Data), nil
}

// ListByOwner returns batches for one owner ordered by most recent update.
func (r *BatchRepository) ListByOwner(ctx context.Context, ownerID string, pager domain.Pagination) (domain.CursorPage[domain.DocumentBatch], error) {
	if r == nil || r.base == nil {
		return domain.CursorPage[domain.DocumentBatch]{}, errors.New("batch repository not initialised")
	}
	owner := strings.TrimSpace(ownerID)
	if owner == "" {
		return domain.CursorPage[domain.DocumentBatch]{}, errors.New("batch repository: owner id is required")
	}

	limit := pager.PageSize
	if limit < 0 {
		limit = 0
	}
	fetchLimit := limit
	if limit > 0 {
		fetchLimit = limit + 1
	}

	var startAfter []any
	if token := strings.TrimSpace(pager.PageToken); token != "" {
		tokenTime, tokenID, err := decodeBatchListToken(token)
		if err != nil {
			return domain.CursorPage[domain.DocumentBatch]{}, fmt.Errorf("batch repository: invalid page token: %w", err)
		}
		startAfter = []any{tokenTime, tokenID}
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("ownerUid", "==", owner)
		q = q.OrderBy("updatedAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		if len(startAfter) == 2 {
			q = q.StartAfter(startAfter...)
		}
		if fetchLimit > 0 {
			q = q.Limit(fetchLimit)
		}
		return q
	})
	if err != nil {
		return domain.CursorPage[domain.DocumentBatch]{}, err
	}

	nextToken := ""
	if limit > 0 && len(docs) == fetchLimit {
		last := docs[len(docs)-1]
		tokenTime := last.Data.UpdatedAt
		if tokenTime.IsZero() {
			tokenTime = last.UpdateTime
		}
		nextToken = encodeBatchListToken(tokenTime, last.ID)
		docs = docs[:len(docs)-1]
	}

	items := make([]domain.DocumentBatch, 0, len(docs))
	for _, doc := range docs {
		items = append(items, decodeBatch(doc.ID, doc.Data))
	}

	return domain.CursorPage[domain.DocumentBatch]{
		Items:         items,
		NextPageToken: nextToken,
	}, nil
}

func encodeBatchListToken(updatedAt time.Time, docID string) string {
	payload := fmt.Sprintf("%s|%s", updatedAt.UTC().Format(time.RFC3339Nano), docID)
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func decodeBatchListToken(token string) (time.Time, string, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return time.Time{}, "", err
	}
	parts := strings.SplitN(string(data), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, "", errors.New("invalid token structure")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, "", err
	}
	return ts, parts[1], nil
}
