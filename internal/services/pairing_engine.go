package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/printlane/api/internal/domain"
)

var (
	// ErrPairingData indicates the external auto-pair result references ids absent
	// from the classified input. The seeding call fails as a whole.
	ErrPairingData = errors.New("pairing: malformed auto-pair data")
	// ErrIncompatiblePair indicates a manual pairing attempt violated the
	// pairability predicate. State is left unchanged and the user retries.
	ErrIncompatiblePair = errors.New("pairing: incompatible pair")
	// ErrPairingNotFound indicates a select/pair/unpair referenced a missing id.
	// Callers treat it as a no-op with a surfaced warning.
	ErrPairingNotFound = errors.New("pairing: not found")
)

// PendingPairsError blocks finalization while unpaired candidates remain. This
// is a hard precondition, not advisory: the wizard must not let the user proceed.
type PendingPairsError struct {
	Remaining int
}

// Error implements the error interface.
func (e *PendingPairsError) Error() string {
	return fmt.Sprintf("pairing: %d unpaired documents remain", e.Remaining)
}

// PairingEngineDeps wires the ambient dependencies for the pairing engine.
type PairingEngineDeps struct {
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

// PairingEngine owns the manual-resolution state machine for ID-card documents:
// the auto-paired list, the unpaired pool awaiting manual matches, and the
// two-click selection cursor. It never re-derives automatic matches; the
// external matcher's result is consumed as given. All operations are
// synchronous state transitions on the batch passed in.
type PairingEngine struct {
	clock  func() time.Time
	newID  func() string
	logger func(context.Context, string, map[string]any)
}

// NewPairingEngine constructs the engine, defaulting the clock, id generator, and logger.
func NewPairingEngine(deps PairingEngineDeps) *PairingEngine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = func() string { return ulid.Make().String() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	return &PairingEngine{
		clock:  func() time.Time { return clock().UTC() },
		newID:  newID,
		logger: logger,
	}
}

// SeedOutcome is the partitioned result of seeding a batch with classified documents.
type SeedOutcome struct {
	Paired   []Pair
	Unpaired []PairCandidate
	Singles  []Document
}

// Seed partitions classified documents by category and applies the external
// auto-pairing result. ID cards land in paired/unpaired exactly as the matcher
// decided; ID cards the matcher never mentioned stay unpaired with no-match
// reason. A result referencing an unknown or non-ID document id fails the whole
// call with ErrPairingData.
func (e *PairingEngine) Seed(ctx context.Context, classified []ClassifiedDocument, auto AutoPairResult) (SeedOutcome, error) {
	now := e.clock()

	byID := make(map[string]Document, len(classified))
	order := make([]string, 0, len(classified))
	var singles []Document

	for _, rec := range classified {
		id := strings.TrimSpace(rec.ID)
		if id == "" {
			return SeedOutcome{}, fmt.Errorf("%w: classified document with empty id", ErrPairingData)
		}
		if _, dup := byID[id]; dup {
			return SeedOutcome{}, fmt.Errorf("%w: duplicate document id %q", ErrPairingData, id)
		}

		rotation := rec.Rotation
		if !rotation.Valid() {
			rotation = domain.Rotation0
		}
		doc := Document{
			ID:           id,
			Type:         domain.ResolveDocumentType(rec.DetectedType),
			QualityScore: clampScore(rec.QualityScore),
			Rotation:     rotation,
			ImageRef:     strings.TrimSpace(rec.ImageRef),
			CreatedAt:    now,
		}

		if doc.Type.Category == domain.CategoryIDCard {
			byID[id] = doc
			order = append(order, id)
		} else {
			singles = append(singles, doc)
		}
	}

	consumed := make(map[string]bool, len(byID))
	takeCard := func(id string) (Document, error) {
		id = strings.TrimSpace(id)
		doc, ok := byID[id]
		if !ok {
			return Document{}, fmt.Errorf("%w: unknown document id %q", ErrPairingData, id)
		}
		if consumed[id] {
			return Document{}, fmt.Errorf("%w: document %q referenced twice", ErrPairingData, id)
		}
		consumed[id] = true
		return doc, nil
	}

	var paired []Pair
	for _, ap := range auto.Paired {
		front, err := takeCard(ap.FrontID)
		if err != nil {
			return SeedOutcome{}, err
		}
		back, err := takeCard(ap.BackID)
		if err != nil {
			return SeedOutcome{}, err
		}
		if err := e.CanPair(front, back); err != nil {
			return SeedOutcome{}, fmt.Errorf("%w: auto pair %s/%s violates pairability", ErrPairingData, front.ID, back.ID)
		}
		paired = append(paired, Pair{
			ID:         e.newID(),
			Front:      front,
			Back:       back,
			Confidence: clampScore(ap.Confidence),
			Method:     domain.PairMethodAuto,
			CreatedAt:  now,
		})
	}

	var unpaired []PairCandidate
	for _, au := range auto.Unpaired {
		doc, err := takeCard(au.DocumentID)
		if err != nil {
			return SeedOutcome{}, err
		}
		reason := au.Reason
		if reason == "" {
			reason = domain.ReasonNoMatch
		}
		unpaired = append(unpaired, PairCandidate{Document: doc, Reason: reason})
	}

	// ID cards the matcher never mentioned stay in the pool rather than vanish;
	// they remain permanently unpaired until the user resolves or removes them.
	for _, id := range order {
		if !consumed[id] {
			unpaired = append(unpaired, PairCandidate{Document: byID[id], Reason: domain.ReasonNoMatch})
		}
	}

	e.logger(ctx, "pairing.seeded", map[string]any{
		"paired":   len(paired),
		"unpaired": len(unpaired),
		"singles":  len(singles),
	})

	return SeedOutcome{Paired: paired, Unpaired: unpaired, Singles: singles}, nil
}

// CanPair checks the pairability predicate: both documents are ID cards, the
// first shows the front and the second the back (swapped arguments fail rather
// than auto-correct), and the base types match.
func (e *PairingEngine) CanPair(front, back Document) error {
	if front.Type.Category != domain.CategoryIDCard || back.Type.Category != domain.CategoryIDCard {
		return fmt.Errorf("%w: both documents must be ID cards", ErrIncompatiblePair)
	}
	if front.Type.Side != domain.SideFront {
		return fmt.Errorf("%w: %s is not a front side", ErrIncompatiblePair, front.ID)
	}
	if back.Type.Side != domain.SideBack {
		return fmt.Errorf("%w: %s is not a back side", ErrIncompatiblePair, back.ID)
	}
	if front.Type.BaseType != back.Type.BaseType {
		return fmt.Errorf("%w: %s and %s are different card types", ErrIncompatiblePair, front.ID, back.ID)
	}
	return nil
}

// Select records a review-stage click on an unpaired candidate. The click lands
// on the selection slot matching the candidate's side, overwriting any earlier
// click on the same side. Once both sides are selected the engine synchronously
// attempts the pair and clears the selection regardless of outcome; a failed
// attempt surfaces ErrIncompatiblePair and leaves the pools untouched.
func (e *PairingEngine) Select(ctx context.Context, batch *DocumentBatch, documentID string) (*Pair, error) {
	candidate, idx := findCandidate(batch.Unpaired, documentID)
	if idx < 0 {
		e.logger(ctx, "pairing.select_missing", map[string]any{
			"batchId":    batch.ID,
			"documentId": documentID,
		})
		return nil, fmt.Errorf("%w: document %q is not awaiting a match", ErrPairingNotFound, documentID)
	}

	switch candidate.Document.Type.Side {
	case domain.SideFront:
		batch.Selection.FrontID = candidate.Document.ID
	case domain.SideBack:
		batch.Selection.BackID = candidate.Document.ID
	default:
		return nil, fmt.Errorf("%w: document %q has no pairable side", ErrIncompatiblePair, documentID)
	}

	if batch.Selection.FrontID == "" || batch.Selection.BackID == "" {
		return nil, nil
	}

	frontID, backID := batch.Selection.FrontID, batch.Selection.BackID
	batch.Selection = domain.PairingSelection{}

	pair, err := e.Pair(ctx, batch, frontID, backID)
	if err != nil {
		return nil, err
	}
	return &pair, nil
}

// Pair joins two unpaired candidates into a manual pair after validating the
// pairability predicate. Manual pairing is fully trusted: confidence 100.
func (e *PairingEngine) Pair(ctx context.Context, batch *DocumentBatch, frontID, backID string) (Pair, error) {
	front, frontIdx := findCandidate(batch.Unpaired, frontID)
	if frontIdx < 0 {
		return Pair{}, fmt.Errorf("%w: document %q is not awaiting a match", ErrPairingNotFound, frontID)
	}
	back, backIdx := findCandidate(batch.Unpaired, backID)
	if backIdx < 0 {
		return Pair{}, fmt.Errorf("%w: document %q is not awaiting a match", ErrPairingNotFound, backID)
	}

	if err := e.CanPair(front.Document, back.Document); err != nil {
		return Pair{}, err
	}

	pair := Pair{
		ID:         e.newID(),
		Front:      front.Document,
		Back:       back.Document,
		Confidence: 100,
		Method:     domain.PairMethodManual,
		CreatedAt:  e.clock(),
	}

	batch.Unpaired = removeCandidates(batch.Unpaired, frontIdx, backIdx)
	batch.Paired = append(batch.Paired, pair)

	e.logger(ctx, "pairing.paired", map[string]any{
		"batchId": batch.ID,
		"pairId":  pair.ID,
		"front":   pair.Front.ID,
		"back":    pair.Back.ID,
	})

	return pair, nil
}

// UnpairOutcome returns both dissolved sides in front-then-back order.
type UnpairOutcome struct {
	Front PairCandidate
	Back  PairCandidate
}

// Unpair dissolves a pair and returns both sides to the unpaired pool with a
// no-match reason, front first.
func (e *PairingEngine) Unpair(ctx context.Context, batch *DocumentBatch, pairID string) (UnpairOutcome, error) {
	idx := -1
	for i, pair := range batch.Paired {
		if pair.ID == strings.TrimSpace(pairID) {
			idx = i
			break
		}
	}
	if idx < 0 {
		e.logger(ctx, "pairing.unpair_missing", map[string]any{
			"batchId": batch.ID,
			"pairId":  pairID,
		})
		return UnpairOutcome{}, fmt.Errorf("%w: pair %q does not exist", ErrPairingNotFound, pairID)
	}

	pair := batch.Paired[idx]
	batch.Paired = append(batch.Paired[:idx], batch.Paired[idx+1:]...)

	front := PairCandidate{Document: pair.Front, Reason: domain.ReasonNoMatch}
	back := PairCandidate{Document: pair.Back, Reason: domain.ReasonNoMatch}
	batch.Unpaired = append(batch.Unpaired, front, back)

	e.logger(ctx, "pairing.unpaired", map[string]any{
		"batchId": batch.ID,
		"pairId":  pair.ID,
	})

	return UnpairOutcome{Front: front, Back: back}, nil
}

// Finalize snapshots the batch for the print-setup stage. It succeeds exactly
// when the unpaired pool is empty; otherwise it reports how many remain.
func (e *PairingEngine) Finalize(ctx context.Context, batch *DocumentBatch) (FinalizedBatch, error) {
	if remaining := len(batch.Unpaired); remaining > 0 {
		return FinalizedBatch{}, &PendingPairsError{Remaining: remaining}
	}

	paired := make([]Pair, len(batch.Paired))
	copy(paired, batch.Paired)
	singles := make([]Document, len(batch.Singles))
	copy(singles, batch.Singles)

	return FinalizedBatch{BatchID: batch.ID, Paired: paired, Singles: singles}, nil
}

func findCandidate(pool []PairCandidate, documentID string) (PairCandidate, int) {
	target := strings.TrimSpace(documentID)
	if target == "" {
		return PairCandidate{}, -1
	}
	for i, candidate := range pool {
		if candidate.Document.ID == target {
			return candidate, i
		}
	}
	return PairCandidate{}, -1
}

func removeCandidates(pool []PairCandidate, first, second int) []PairCandidate {
	if first > second {
		first, second = second, first
	}
	out := make([]PairCandidate, 0, len(pool)-2)
	for i, candidate := range pool {
		if i == first || i == second {
			continue
		}
		out = append(out, candidate)
	}
	return out
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
