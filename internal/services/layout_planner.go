package services

import (
	"errors"
	"fmt"

	domain "github.com/printlane/api/internal/domain"
)

const (
	idSlotsPerPage       = 2
	documentSlotsPerPage = 1
)

// ErrLayoutInvalidInput indicates negative counts or an unknown layout type.
var ErrLayoutInvalidInput = errors.New("layout: invalid input")

// PlanLayout derives the page count and per-page arrangement from the document
// counts and the chosen layout policy.
//
// Under the ID layout a paired front+back counts as one printable unit sharing
// one slot, matching how physical cards are duplicated at actual size, two per
// sheet. The document layout gives every unit a full page. Zero total pages is
// a valid plan for an empty batch; blocking progression on it is the caller's
// decision.
func PlanLayout(pairedCount, singleCount int, layout LayoutType) (LayoutPlan, error) {
	if pairedCount < 0 || singleCount < 0 {
		return LayoutPlan{}, fmt.Errorf("%w: counts must be non-negative", ErrLayoutInvalidInput)
	}

	units := pairedCount + singleCount

	switch layout {
	case domain.LayoutID:
		return LayoutPlan{
			LayoutType:   domain.LayoutID,
			TotalPages:   (units + idSlotsPerPage - 1) / idSlotsPerPage,
			SlotsPerPage: idSlotsPerPage,
		}, nil
	case domain.LayoutDocument:
		return LayoutPlan{
			LayoutType:   domain.LayoutDocument,
			TotalPages:   units,
			SlotsPerPage: documentSlotsPerPage,
		}, nil
	default:
		return LayoutPlan{}, fmt.Errorf("%w: unknown layout type %q", ErrLayoutInvalidInput, layout)
	}
}

// DefaultLayoutType picks the layout used when the user has not chosen one:
// the ID layout when the batch is purely paired cards, the document layout
// otherwise. It is a heuristic only; the user override always wins and must
// re-trigger plan computation.
func DefaultLayoutType(pairedCount, singleCount int) LayoutType {
	if pairedCount > 0 && singleCount == 0 {
		return domain.LayoutID
	}
	return domain.LayoutDocument
}
