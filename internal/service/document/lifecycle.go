package document

import (
	"github.com/intisalud/hospital-api/internal/model"
)

// Lifecycle describes one document type: its number prefix, initial status,
// the allowed status transitions and the line constraints. All three types
// run through the same engine; only these tables differ.
type Lifecycle struct {
	Prefix      string
	Initial     model.DocumentStatus
	Transitions map[model.DocumentStatus][]model.DocumentStatus
	MinLines    int
	MaxLines    int
	// AutoSign signs the document at creation when it has at most the
	// configured number of lines (prescriptions only).
	AutoSign bool
	// SignOnFinalize signs when the document reaches FINALIZED (notes).
	SignOnFinalize bool
	// ExpiresAfterDays sets expires_at at creation when positive.
	ExpiresAfterDays int
}

var lifecycles = map[model.DocumentType]Lifecycle{
	model.DocumentTypePrescription: {
		Prefix:  "RX",
		Initial: model.DocumentStatusActive,
		Transitions: map[model.DocumentStatus][]model.DocumentStatus{
			model.DocumentStatusActive:    {model.DocumentStatusDispensed, model.DocumentStatusExpired, model.DocumentStatusVoid},
			model.DocumentStatusDispensed: {model.DocumentStatusVoid},
			model.DocumentStatusExpired:   {model.DocumentStatusVoid},
		},
		MinLines:         1,
		MaxLines:         10,
		AutoSign:         true,
		ExpiresAfterDays: 30,
	},
	model.DocumentTypeOrder: {
		Prefix:  "ORD",
		Initial: model.DocumentStatusPending,
		Transitions: map[model.DocumentStatus][]model.DocumentStatus{
			model.DocumentStatusPending:    {model.DocumentStatusScheduled, model.DocumentStatusInProgress, model.DocumentStatusCancelled},
			model.DocumentStatusScheduled:  {model.DocumentStatusInProgress, model.DocumentStatusCancelled},
			model.DocumentStatusInProgress: {model.DocumentStatusCompleted, model.DocumentStatusCancelled},
		},
		MinLines: 1,
		MaxLines: 20,
	},
	model.DocumentTypeNote: {
		Prefix:  "NT",
		Initial: model.DocumentStatusDraft,
		Transitions: map[model.DocumentStatus][]model.DocumentStatus{
			model.DocumentStatusDraft: {model.DocumentStatusFinalized},
		},
		MinLines:       1,
		MaxLines:       1,
		SignOnFinalize: true,
	},
}

// orderPrefixes maps the first line's category to the order number prefix.
var orderPrefixes = map[model.LineCategory]string{
	model.CategoryLaboratory: "LAB",
	model.CategoryImaging:    "IMG",
	model.CategoryProcedure:  "PRO",
	model.CategoryConsult:    "INT",
	model.CategoryTherapy:    "TER",
}

func lifecycleFor(t model.DocumentType) (Lifecycle, bool) {
	lc, ok := lifecycles[t]
	return lc, ok
}

// CanTransition reports whether from→to is an edge of the type's graph.
func (l Lifecycle) CanTransition(from, to model.DocumentStatus) bool {
	for _, next := range l.Transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether status has no outgoing edges.
func (l Lifecycle) Terminal(status model.DocumentStatus) bool {
	return len(l.Transitions[status]) == 0
}

// numberPrefix picks the document number prefix; orders derive theirs from
// the first line's category.
func (l Lifecycle) numberPrefix(docType model.DocumentType, lines []model.DocumentLineRequest) string {
	if docType == model.DocumentTypeOrder && len(lines) > 0 {
		if p, ok := orderPrefixes[lines[0].Category]; ok {
			return p
		}
	}
	return l.Prefix
}
