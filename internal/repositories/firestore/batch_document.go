package firestore

import (
	"strings"
	"time"

	domain "github.com/printlane/api/internal/domain"
)

// batchDocument is the Firestore representation of a document batch. All
// timestamps are stored UTC so the optimistic-lock comparison is stable.
type batchDocument struct {
	OwnerUID  string              `firestore:"ownerUid"`
	Status    string              `firestore:"status"`
	Items     []batchItemDocument `firestore:"items"`
	Paired    []pairDocument      `firestore:"paired"`
	Unpaired  []candidateDocument `firestore:"unpaired"`
	Singles   []documentDocument  `firestore:"singles"`
	Selection selectionDocument   `firestore:"selection"`
	Layout    *layoutDocument     `firestore:"layout,omitempty"`
	CreatedAt time.Time           `firestore:"createdAt"`
	UpdatedAt time.Time           `firestore:"updatedAt"`
}

type batchItemDocument struct {
	ID            string            `firestore:"id"`
	FileName      string            `firestore:"fileName"`
	ContentType   string            `firestore:"contentType"`
	SizeBytes     int64             `firestore:"sizeBytes"`
	Status        string            `firestore:"status"`
	FailureReason string            `firestore:"failureReason,omitempty"`
	Document      *documentDocument `firestore:"document,omitempty"`
	CreatedAt     time.Time         `firestore:"createdAt"`
	UpdatedAt     time.Time         `firestore:"updatedAt"`
}

type documentDocument struct {
	ID           string    `firestore:"id"`
	Tag          string    `firestore:"tag"`
	BaseType     string    `firestore:"baseType"`
	Side         string    `firestore:"side"`
	Category     string    `firestore:"category"`
	QualityScore int       `firestore:"qualityScore"`
	Rotation     int       `firestore:"rotation"`
	ImageRef     string    `firestore:"imageRef"`
	CreatedAt    time.Time `firestore:"createdAt"`
}

type pairDocument struct {
	ID         string           `firestore:"id"`
	Front      documentDocument `firestore:"front"`
	Back       documentDocument `firestore:"back"`
	Confidence int              `firestore:"confidence"`
	Method     string           `firestore:"method"`
	CreatedAt  time.Time        `firestore:"createdAt"`
}

type candidateDocument struct {
	Document documentDocument `firestore:"document"`
	Reason   string           `firestore:"reason"`
}

type selectionDocument struct {
	FrontID string `firestore:"frontId,omitempty"`
	BackID  string `firestore:"backId,omitempty"`
}

type layoutDocument struct {
	LayoutType   string `firestore:"layoutType"`
	TotalPages   int    `firestore:"totalPages"`
	SlotsPerPage int    `firestore:"slotsPerPage"`
}

func encodeBatch(batch domain.DocumentBatch) batchDocument {
	doc := batchDocument{
		OwnerUID:  strings.TrimSpace(batch.OwnerID),
		Status:    string(batch.Status),
		Items:     make([]batchItemDocument, 0, len(batch.Items)),
		Paired:    make([]pairDocument, 0, len(batch.Paired)),
		Unpaired:  make([]candidateDocument, 0, len(batch.Unpaired)),
		Singles:   make([]documentDocument, 0, len(batch.Singles)),
		Selection: selectionDocument{FrontID: batch.Selection.FrontID, BackID: batch.Selection.BackID},
		CreatedAt: batch.CreatedAt.UTC(),
		UpdatedAt: batch.UpdatedAt.UTC(),
	}
	for _, item := range batch.Items {
		doc.Items = append(doc.Items, encodeBatchItem(item))
	}
	for _, pair := range batch.Paired {
		doc.Paired = append(doc.Paired, encodePair(pair))
	}
	for _, candidate := range batch.Unpaired {
		doc.Unpaired = append(doc.Unpaired, candidateDocument{
			Document: encodeDocument(candidate.Document),
			Reason:   string(candidate.Reason),
		})
	}
	for _, single := range batch.Singles {
		doc.Singles = append(doc.Singles, encodeDocument(single))
	}
	if batch.Layout != nil {
		doc.Layout = &layoutDocument{
			LayoutType:   string(batch.Layout.LayoutType),
			TotalPages:   batch.Layout.TotalPages,
			SlotsPerPage: batch.Layout.SlotsPerPage,
		}
	}
	return doc
}

func decodeBatch(id string, doc batchDocument) domain.DocumentBatch {
	batch := domain.DocumentBatch{
		ID:        id,
		OwnerID:   doc.OwnerUID,
		Status:    domain.BatchStatus(doc.Status),
		Items:     make([]domain.BatchItem, 0, len(doc.Items)),
		Paired:    make([]domain.Pair, 0, len(doc.Paired)),
		Unpaired:  make([]domain.PairCandidate, 0, len(doc.Unpaired)),
		Singles:   make([]domain.Document, 0, len(doc.Singles)),
		Selection: domain.PairingSelection{FrontID: doc.Selection.FrontID, BackID: doc.Selection.BackID},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		batch.Items = append(batch.Items, decodeBatchItem(item))
	}
	for _, pair := range doc.Paired {
		batch.Paired = append(batch.Paired, decodePair(pair))
	}
	for _, candidate := range doc.Unpaired {
		batch.Unpaired = append(batch.Unpaired, domain.PairCandidate{
			Document: decodeDocument(candidate.Document),
			Reason:   domain.UnpairedReason(candidate.Reason),
		})
	}
	for _, single := range doc.Singles {
		batch.Singles = append(batch.Singles, decodeDocument(single))
	}
	if doc.Layout != nil {
		batch.Layout = &domain.LayoutPlan{
			LayoutType:   domain.LayoutType(doc.Layout.LayoutType),
			TotalPages:   doc.Layout.TotalPages,
			SlotsPerPage: doc.Layout.SlotsPerPage,
		}
	}
	return batch
}

func encodeBatchItem(item domain.BatchItem) batchItemDocument {
	doc := batchItemDocument{
		ID:            item.ID,
		FileName:      item.FileName,
		ContentType:   item.ContentType,
		SizeBytes:     item.SizeBytes,
		Status:        string(item.Status),
		FailureReason: item.FailureReason,
		CreatedAt:     item.CreatedAt.UTC(),
		UpdatedAt:     item.UpdatedAt.UTC(),
	}
	if item.Document != nil {
		encoded := encodeDocument(*item.Document)
		doc.Document = &encoded
	}
	return doc
}

func decodeBatchItem(doc batchItemDocument) domain.BatchItem {
	item := domain.BatchItem{
		ID:            doc.ID,
		FileName:      doc.FileName,
		ContentType:   doc.ContentType,
		SizeBytes:     doc.SizeBytes,
		Status:        domain.BatchItemStatus(doc.Status),
		FailureReason: doc.FailureReason,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}
	if doc.Document != nil {
		decoded := decodeDocument(*doc.Document)
		item.Document = &decoded
	}
	return item
}

func encodeDocument(document domain.Document) documentDocument {
	return documentDocument{
		ID:           document.ID,
		Tag:          document.Type.Tag,
		BaseType:     document.Type.BaseType,
		Side:         string(document.Type.Side),
		Category:     string(document.Type.Category),
		QualityScore: document.QualityScore,
		Rotation:     int(document.Rotation),
		ImageRef:     document.ImageRef,
		CreatedAt:    document.CreatedAt.UTC(),
	}
}

func decodeDocument(doc documentDocument) domain.Document {
	return domain.Document{
		ID: doc.ID,
		Type: domain.DocumentType{
			Tag:      doc.Tag,
			BaseType: doc.BaseType,
			Side:     domain.Side(doc.Side),
			Category: domain.DocumentCategory(doc.Category),
		},
		QualityScore: doc.QualityScore,
		Rotation:     domain.Rotation(doc.Rotation),
		ImageRef:     doc.ImageRef,
		CreatedAt:    doc.CreatedAt,
	}
}

func encodePair(pair domain.Pair) pairDocument {
	return pairDocument{
		ID:         pair.ID,
		Front:      encodeDocument(pair.Front),
		Back:       encodeDocument(pair.Back),
		Confidence: pair.Confidence,
		Method:     string(pair.Method),
		CreatedAt:  pair.CreatedAt.UTC(),
	}
}

func decodePair(doc pairDocument) domain.Pair {
	return domain.Pair{
		ID:         doc.ID,
		Front:      decodeDocument(doc.Front),
		Back:       decodeDocument(doc.Back),
		Confidence: doc.Confidence,
		Method:     domain.PairMethod(doc.Method),
		CreatedAt:  doc.CreatedAt,
	}
}
