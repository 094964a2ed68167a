package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	domain "github.com/printlane/api/internal/domain"
)

func newTestEngine() *PairingEngine {
	seq := 0
	return NewPairingEngine(PairingEngineDeps{
		Clock: func() time.Time { return time.Date(2026, time.February, 10, 9, 30, 0, 0, time.UTC) },
		IDGenerator: func() string {
			seq++
			return fmt.Sprintf("pair-%03d", seq)
		},
	})
}

func classifiedCard(id, tag string) ClassifiedDocument {
	return ClassifiedDocument{ID: id, DetectedType: tag, QualityScore: 80, ImageRef: "uploads/" + id}
}

func cardDocument(id, tag string) Document {
	return Document{ID: id, Type: domain.ResolveDocumentType(tag)}
}

func TestSeedPartitionsAndAppliesAutoResult(t *testing.T) {
	engine := newTestEngine()

	classified := []ClassifiedDocument{
		classifiedCard("a1f", "aadhaar_front"),
		classifiedCard("a1b", "aadhaar_back"),
		classifiedCard("a2f", "aadhaar_front"),
		classifiedCard("a2b", "aadhaar_back"),
		classifiedCard("pan1", "pan_card"),
		classifiedCard("passport1", "passport"),
	}
	auto := AutoPairResult{
		Paired: []domain.AutoPair{{FrontID: "a1f", BackID: "a1b", Confidence: 92}},
		Unpaired: []domain.AutoUnpaired{
			{DocumentID: "a2f", Reason: domain.ReasonLowConfidence},
		},
	}

	outcome, err := engine.Seed(context.Background(), classified, auto)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	if len(outcome.Paired) != 1 {
		t.Fatalf("expected 1 auto pair, got %d", len(outcome.Paired))
	}
	pair := outcome.Paired[0]
	if pair.Front.ID != "a1f" || pair.Back.ID != "a1b" {
		t.Fatalf("unexpected pair members %s/%s", pair.Front.ID, pair.Back.ID)
	}
	if pair.Method != domain.PairMethodAuto || pair.Confidence != 92 {
		t.Fatalf("unexpected pair metadata %+v", pair)
	}

	// a2b was never mentioned by the matcher and must not vanish.
	if len(outcome.Unpaired) != 2 {
		t.Fatalf("expected 2 unpaired candidates, got %d", len(outcome.Unpaired))
	}
	if outcome.Unpaired[0].Document.ID != "a2f" || outcome.Unpaired[0].Reason != domain.ReasonLowConfidence {
		t.Fatalf("unexpected first candidate %+v", outcome.Unpaired[0])
	}
	if outcome.Unpaired[1].Document.ID != "a2b" || outcome.Unpaired[1].Reason != domain.ReasonNoMatch {
		t.Fatalf("unmentioned card must default to no_match, got %+v", outcome.Unpaired[1])
	}

	// Single-document categories bypass pairing entirely.
	if len(outcome.Singles) != 2 {
		t.Fatalf("expected 2 singles, got %d", len(outcome.Singles))
	}
}

func TestSeedRejectsMalformedAutoData(t *testing.T) {
	engine := newTestEngine()
	classified := []ClassifiedDocument{
		classifiedCard("a1f", "aadhaar_front"),
		classifiedCard("a1b", "aadhaar_back"),
	}

	cases := []struct {
		name string
		auto AutoPairResult
	}{
		{"unknown id", AutoPairResult{Paired: []domain.AutoPair{{FrontID: "ghost", BackID: "a1b"}}}},
		{"single referenced", AutoPairResult{Unpaired: []domain.AutoUnpaired{{DocumentID: "missing"}}}},
		{"id referenced twice", AutoPairResult{
			Paired:   []domain.AutoPair{{FrontID: "a1f", BackID: "a1b"}},
			Unpaired: []domain.AutoUnpaired{{DocumentID: "a1f"}},
		}},
		{"incompatible auto pair", AutoPairResult{Paired: []domain.AutoPair{{FrontID: "a1b", BackID: "a1f"}}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := engine.Seed(context.Background(), classified, tc.auto); !errors.Is(err, ErrPairingData) {
				t.Fatalf("expected ErrPairingData, got %v", err)
			}
		})
	}
}

func TestCanPairIsOrderSensitive(t *testing.T) {
	engine := newTestEngine()

	front := cardDocument("f", "aadhaar_front")
	back := cardDocument("b", "aadhaar_back")

	if err := engine.CanPair(front, back); err != nil {
		t.Fatalf("front/back of the same card type must pair: %v", err)
	}
	if err := engine.CanPair(back, front); !errors.Is(err, ErrIncompatiblePair) {
		t.Fatalf("swapped sides must fail, got %v", err)
	}
	if err := engine.CanPair(front, cardDocument("v", "voter_id_back")); !errors.Is(err, ErrIncompatiblePair) {
		t.Fatalf("different card types must fail, got %v", err)
	}
	if err := engine.CanPair(front, cardDocument("p", "pan_card")); !errors.Is(err, ErrIncompatiblePair) {
		t.Fatalf("single-document back must fail, got %v", err)
	}
	if err := engine.CanPair(front, cardDocument("f2", "aadhaar_front")); !errors.Is(err, ErrIncompatiblePair) {
		t.Fatalf("two fronts must fail, got %v", err)
	}
}

func reviewingBatch(candidates ...PairCandidate) DocumentBatch {
	return DocumentBatch{
		ID:       "batch-1",
		OwnerID:  "user-1",
		Status:   domain.BatchReviewing,
		Unpaired: candidates,
	}
}

func TestSelectTwoClicksFormPair(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch(
		PairCandidate{Document: cardDocument("f1", "aadhaar_front"), Reason: domain.ReasonNoMatch},
		PairCandidate{Document: cardDocument("b1", "aadhaar_back"), Reason: domain.ReasonNoMatch},
	)

	pair, err := engine.Select(context.Background(), &batch, "f1")
	if err != nil {
		t.Fatalf("first click: %v", err)
	}
	if pair != nil {
		t.Fatalf("first click must not complete a pair")
	}
	if batch.Selection.FrontID != "f1" {
		t.Fatalf("front selection not recorded: %+v", batch.Selection)
	}

	pair, err = engine.Select(context.Background(), &batch, "b1")
	if err != nil {
		t.Fatalf("second click: %v", err)
	}
	if pair == nil {
		t.Fatalf("second click must complete the pair")
	}
	if pair.Method != domain.PairMethodManual || pair.Confidence != 100 {
		t.Fatalf("manual pair must be fully trusted, got %+v", pair)
	}
	if !batch.Selection.Empty() {
		t.Fatalf("selection must be cleared after pairing")
	}
	if len(batch.Unpaired) != 0 || len(batch.Paired) != 1 {
		t.Fatalf("pools not updated: unpaired=%d paired=%d", len(batch.Unpaired), len(batch.Paired))
	}
}

func TestSelectSameSideLastClickWins(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch(
		PairCandidate{Document: cardDocument("f1", "aadhaar_front"), Reason: domain.ReasonNoMatch},
		PairCandidate{Document: cardDocument("f2", "aadhaar_front"), Reason: domain.ReasonNoMatch},
	)

	if _, err := engine.Select(context.Background(), &batch, "f1"); err != nil {
		t.Fatalf("first click: %v", err)
	}
	if _, err := engine.Select(context.Background(), &batch, "f2"); err != nil {
		t.Fatalf("second click: %v", err)
	}
	if batch.Selection.FrontID != "f2" {
		t.Fatalf("last click must win, got %q", batch.Selection.FrontID)
	}
	if batch.Selection.BackID != "" {
		t.Fatalf("back slot must stay empty")
	}
}

func TestSelectIncompatibleClearsSelectionAndKeepsPools(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch(
		PairCandidate{Document: cardDocument("f1", "aadhaar_front"), Reason: domain.ReasonNoMatch},
		PairCandidate{Document: cardDocument("b1", "voter_id_back"), Reason: domain.ReasonNoMatch},
	)

	if _, err := engine.Select(context.Background(), &batch, "f1"); err != nil {
		t.Fatalf("first click: %v", err)
	}
	_, err := engine.Select(context.Background(), &batch, "b1")
	if !errors.Is(err, ErrIncompatiblePair) {
		t.Fatalf("expected ErrIncompatiblePair, got %v", err)
	}
	if !batch.Selection.Empty() {
		t.Fatalf("selection must be cleared even on failure")
	}
	if len(batch.Unpaired) != 2 || len(batch.Paired) != 0 {
		t.Fatalf("failed attempt must leave pools untouched")
	}
}

func TestSelectUnknownDocumentIsNoOp(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch(
		PairCandidate{Document: cardDocument("f1", "aadhaar_front"), Reason: domain.ReasonNoMatch},
	)

	_, err := engine.Select(context.Background(), &batch, "ghost")
	if !errors.Is(err, ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
	if !batch.Selection.Empty() {
		t.Fatalf("unknown click must not change selection")
	}
}

func TestUnpairRestoresBothSides(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch(
		PairCandidate{Document: cardDocument("f1", "aadhaar_front"), Reason: domain.ReasonNoMatch},
		PairCandidate{Document: cardDocument("b1", "aadhaar_back"), Reason: domain.ReasonNoMatch},
	)

	pair, err := engine.Pair(context.Background(), &batch, "f1", "b1")
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}

	outcome, err := engine.Unpair(context.Background(), &batch, pair.ID)
	if err != nil {
		t.Fatalf("Unpair: %v", err)
	}
	if outcome.Front.Document.ID != "f1" || outcome.Back.Document.ID != "b1" {
		t.Fatalf("unexpected dissolved sides %+v", outcome)
	}
	if outcome.Front.Reason != domain.ReasonNoMatch || outcome.Back.Reason != domain.ReasonNoMatch {
		t.Fatalf("dissolved sides must carry no_match reason")
	}
	if len(batch.Paired) != 0 || len(batch.Unpaired) != 2 {
		t.Fatalf("pools not restored: paired=%d unpaired=%d", len(batch.Paired), len(batch.Unpaired))
	}

	// The restored candidates are immediately pairable again.
	if _, err := engine.Pair(context.Background(), &batch, "f1", "b1"); err != nil {
		t.Fatalf("re-pair after unpair: %v", err)
	}
}

func TestUnpairUnknownPairIsNoOp(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch()

	if _, err := engine.Unpair(context.Background(), &batch, "ghost"); !errors.Is(err, ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
}

func TestFinalizeBlocksWhileUnpairedRemain(t *testing.T) {
	engine := newTestEngine()
	batch := reviewingBatch(
		PairCandidate{Document: cardDocument("f1", "aadhaar_front"), Reason: domain.ReasonNoMatch},
		PairCandidate{Document: cardDocument("b1", "aadhaar_back"), Reason: domain.ReasonNoMatch},
	)

	_, err := engine.Finalize(context.Background(), &batch)
	var pending *PendingPairsError
	if !errors.As(err, &pending) {
		t.Fatalf("expected PendingPairsError, got %v", err)
	}
	if pending.Remaining != 2 {
		t.Fatalf("expected 2 remaining, got %d", pending.Remaining)
	}

	if _, err := engine.Pair(context.Background(), &batch, "f1", "b1"); err != nil {
		t.Fatalf("Pair: %v", err)
	}

	snapshot, err := engine.Finalize(context.Background(), &batch)
	if err != nil {
		t.Fatalf("Finalize after pairing: %v", err)
	}
	if len(snapshot.Paired) != 1 {
		t.Fatalf("expected 1 pair in snapshot, got %d", len(snapshot.Paired))
	}
}

// Three Aadhaar cards and one PAN card: the matcher resolves two pairs, the
// user resolves the third, and the batch finalizes as 3 pairs + 1 single.
func TestMixedBatchEndToEnd(t *testing.T) {
	engine := newTestEngine()

	classified := []ClassifiedDocument{
		classifiedCard("a1f", "aadhaar_front"), classifiedCard("a1b", "aadhaar_back"),
		classifiedCard("a2f", "aadhaar_front"), classifiedCard("a2b", "aadhaar_back"),
		classifiedCard("a3f", "aadhaar_front"), classifiedCard("a3b", "aadhaar_back"),
		classifiedCard("pan1", "pan_card"),
	}
	auto := AutoPairResult{
		Paired: []domain.AutoPair{
			{FrontID: "a1f", BackID: "a1b", Confidence: 95},
			{FrontID: "a2f", BackID: "a2b", Confidence: 88},
		},
		Unpaired: []domain.AutoUnpaired{
			{DocumentID: "a3f", Reason: domain.ReasonLowConfidence},
			{DocumentID: "a3b", Reason: domain.ReasonLowConfidence},
		},
	}

	outcome, err := engine.Seed(context.Background(), classified, auto)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}

	batch := DocumentBatch{
		ID:       "batch-1",
		Status:   domain.BatchReviewing,
		Paired:   outcome.Paired,
		Unpaired: outcome.Unpaired,
		Singles:  outcome.Singles,
	}

	if _, err := engine.Select(context.Background(), &batch, "a3f"); err != nil {
		t.Fatalf("select front: %v", err)
	}
	pair, err := engine.Select(context.Background(), &batch, "a3b")
	if err != nil {
		t.Fatalf("select back: %v", err)
	}
	if pair == nil {
		t.Fatalf("second click must complete the third pair")
	}

	snapshot, err := engine.Finalize(context.Background(), &batch)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(snapshot.Paired) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(snapshot.Paired))
	}
	if len(snapshot.Singles) != 1 || snapshot.Singles[0].ID != "pan1" {
		t.Fatalf("expected the PAN card as the single, got %+v", snapshot.Singles)
	}

	plan, err := PlanLayout(len(snapshot.Paired), len(snapshot.Singles), domain.LayoutID)
	if err != nil {
		t.Fatalf("PlanLayout: %v", err)
	}
	if plan.TotalPages != 2 {
		t.Fatalf("3 pairs + 1 single on the id layout should need 2 pages, got %d", plan.TotalPages)
	}
}
