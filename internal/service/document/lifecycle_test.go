package document

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intisalud/hospital-api/internal/model"
	apperrors "github.com/intisalud/hospital-api/pkg/errors"
)

type statusPair struct {
	from, to model.DocumentStatus
}

// The expected graphs are spelled out literally so a change to the shipped
// tables fails here instead of slipping through.
var (
	prescriptionStatuses = []model.DocumentStatus{
		model.DocumentStatusActive, model.DocumentStatusDispensed,
		model.DocumentStatusExpired, model.DocumentStatusVoid,
	}
	prescriptionEdges = map[statusPair]bool{
		{model.DocumentStatusActive, model.DocumentStatusDispensed}: true,
		{model.DocumentStatusActive, model.DocumentStatusExpired}:   true,
		{model.DocumentStatusActive, model.DocumentStatusVoid}:      true,
		{model.DocumentStatusDispensed, model.DocumentStatusVoid}:   true,
		{model.DocumentStatusExpired, model.DocumentStatusVoid}:     true,
	}

	orderStatuses = []model.DocumentStatus{
		model.DocumentStatusPending, model.DocumentStatusScheduled,
		model.DocumentStatusInProgress, model.DocumentStatusCompleted,
		model.DocumentStatusCancelled,
	}
	orderEdges = map[statusPair]bool{
		{model.DocumentStatusPending, model.DocumentStatusScheduled}:    true,
		{model.DocumentStatusPending, model.DocumentStatusInProgress}:   true,
		{model.DocumentStatusPending, model.DocumentStatusCancelled}:    true,
		{model.DocumentStatusScheduled, model.DocumentStatusInProgress}: true,
		{model.DocumentStatusScheduled, model.DocumentStatusCancelled}:  true,
		{model.DocumentStatusInProgress, model.DocumentStatusCompleted}: true,
		{model.DocumentStatusInProgress, model.DocumentStatusCancelled}: true,
	}

	noteStatuses = []model.DocumentStatus{
		model.DocumentStatusDraft, model.DocumentStatusFinalized,
	}
	noteEdges = map[statusPair]bool{
		{model.DocumentStatusDraft, model.DocumentStatusFinalized}: true,
	}
)

// seedDoc plants a document directly in the repo at an arbitrary status so
// transition tests do not have to walk the graph to reach their start state.
func seedDoc(f *docFixture, docType model.DocumentType, status model.DocumentStatus, number string) *model.ClinicalDocument {
	doc := &model.ClinicalDocument{
		Number:      number,
		DocType:     docType,
		OriginType:  model.OriginHospitalization,
		OriginID:    9100,
		PatientID:   777,
		PatientName: "Ana Torres",
		AuthorID:    f.physician.ID,
		AuthorName:  f.physician.Name,
		Status:      status,
	}
	switch docType {
	case model.DocumentTypePrescription:
		now := f.clk.Now()
		doc.Signed = true
		doc.SignedAt = &now
		doc.SignatureHash = "aabbcc"
		doc.Lines = []model.DocumentLine{{Code: "PARACETAMOL500", Name: "Paracetamol 500mg tablet", Quantity: 10, LineNo: 1}}
	case model.DocumentTypeOrder:
		doc.Priority = model.PriorityRoutine
		doc.Lines = []model.DocumentLine{{Code: "HEMOGRAMA", Name: "Complete blood count", Category: model.CategoryLaboratory, LineNo: 1, Status: string(model.DocumentStatusPending)}}
	case model.DocumentTypeNote:
		doc.Lines = []model.DocumentLine{{Body: "Patient stable.", LineNo: 1}}
	}
	return f.docs.seed(doc)
}

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		docType  model.DocumentType
		statuses []model.DocumentStatus
		edges    map[statusPair]bool
	}{
		{model.DocumentTypePrescription, prescriptionStatuses, prescriptionEdges},
		{model.DocumentTypeOrder, orderStatuses, orderEdges},
		{model.DocumentTypeNote, noteStatuses, noteEdges},
	}

	for _, tc := range cases {
		for _, from := range tc.statuses {
			for _, to := range tc.statuses {
				name := fmt.Sprintf("%s/%s->%s", tc.docType, from, to)
				t.Run(name, func(t *testing.T) {
					f := newDocFixture(t, Options{})
					doc := seedDoc(f, tc.docType, from, "X202603100001")

					got, err := f.svc.Transition(context.Background(), doc.ID, &model.TransitionRequest{Status: to}, f.physician.ID)
					if tc.edges[statusPair{from, to}] {
						require.NoError(t, err)
						assert.Equal(t, to, got.Status)
					} else {
						require.Error(t, err)
						assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidTransition), "got %v", err)

						stored, gerr := f.docs.Get(context.Background(), doc.ID)
						require.NoError(t, gerr)
						assert.Equal(t, from, stored.Status, "rejected transition must not move the document")
					}
				})
			}
		}
	}
}

func TestVoidClearsPrescriptionSignature(t *testing.T) {
	f := newDocFixture(t, Options{})
	doc := seedDoc(f, model.DocumentTypePrescription, model.DocumentStatusActive, "RX202603100001")

	got, err := f.svc.Transition(context.Background(), doc.ID, &model.TransitionRequest{Status: model.DocumentStatusVoid, Reason: "prescribing error"}, f.physician.ID)
	require.NoError(t, err)

	assert.Equal(t, model.DocumentStatusVoid, got.Status)
	assert.False(t, got.Signed)
	assert.Nil(t, got.SignedAt)
	assert.Empty(t, got.SignatureHash)
}

func TestCompleteOrderCascadesToLines(t *testing.T) {
	f := newDocFixture(t, Options{})
	doc := seedDoc(f, model.DocumentTypeOrder, model.DocumentStatusInProgress, "LAB202603100001")

	got, err := f.svc.Transition(context.Background(), doc.ID, &model.TransitionRequest{Status: model.DocumentStatusCompleted}, f.physician.ID)
	require.NoError(t, err)

	assert.Equal(t, model.DocumentStatusCompleted, got.Status)
	require.NotEmpty(t, got.Lines)
	for _, line := range got.Lines {
		assert.Equal(t, string(model.DocumentStatusCompleted), line.Status)
	}
}

func TestFinalizeNoteSigns(t *testing.T) {
	f := newDocFixture(t, Options{})
	doc := seedDoc(f, model.DocumentTypeNote, model.DocumentStatusDraft, "NT202603100001")

	got, err := f.svc.Transition(context.Background(), doc.ID, &model.TransitionRequest{Status: model.DocumentStatusFinalized}, f.physician.ID)
	require.NoError(t, err)

	assert.Equal(t, model.DocumentStatusFinalized, got.Status)
	assert.True(t, got.Signed)
	require.NotNil(t, got.SignedAt)
	require.NotNil(t, got.FinalizedAt)
	assert.Equal(t, *got.SignedAt, *got.FinalizedAt)
	assert.NotEmpty(t, got.SignatureHash)
}

func TestTransitionRecordsEventAndAudit(t *testing.T) {
	f := newDocFixture(t, Options{})
	doc := seedDoc(f, model.DocumentTypeOrder, model.DocumentStatusPending, "LAB202603100001")

	_, err := f.svc.Transition(context.Background(), doc.ID, &model.TransitionRequest{Status: model.DocumentStatusScheduled}, f.physician.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{model.EventDocumentTransition}, f.outbox.eventTypes())
	assert.Equal(t, []string{model.AuditActionTransition}, f.audits.actions())
}

func TestTransitionUnknownDocument(t *testing.T) {
	f := newDocFixture(t, Options{})

	_, err := f.svc.Transition(context.Background(), uuid.New(), &model.TransitionRequest{Status: model.DocumentStatusVoid}, f.physician.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestExpireOverduePrescriptions(t *testing.T) {
	f := newDocFixture(t, Options{})
	ctx := context.Background()

	overdue := f.clk.Now().Add(-time.Hour)
	future := f.clk.Now().Add(48 * time.Hour)

	due := seedDoc(f, model.DocumentTypePrescription, model.DocumentStatusActive, "RX202602080001")
	due.ExpiresAt = &overdue
	fresh := seedDoc(f, model.DocumentTypePrescription, model.DocumentStatusActive, "RX202603100001")
	fresh.ExpiresAt = &future
	dispensed := seedDoc(f, model.DocumentTypePrescription, model.DocumentStatusDispensed, "RX202602080002")
	dispensed.ExpiresAt = &overdue

	expired, err := f.svc.ExpireOverduePrescriptions(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	got, err := f.svc.Get(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusExpired, got.Status)

	got, err = f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusActive, got.Status)

	got, err = f.svc.Get(ctx, dispensed.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusDispensed, got.Status)

	assert.Contains(t, f.outbox.eventTypes(), model.EventDocumentTransition)
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	f := newDocFixture(t, Options{})
	ctx := context.Background()

	overdue := f.clk.Now().Add(-time.Hour)
	doc := seedDoc(f, model.DocumentTypePrescription, model.DocumentStatusActive, "RX202602080001")
	doc.ExpiresAt = &overdue

	expired, err := f.svc.ExpireOverduePrescriptions(ctx, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	expired, err = f.svc.ExpireOverduePrescriptions(ctx, 50)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestCleanupStaleDrafts(t *testing.T) {
	f := newDocFixture(t, Options{})
	ctx := context.Background()

	stale := seedDoc(f, model.DocumentTypeNote, model.DocumentStatusDraft, "NT202602010001")
	stale.UpdatedAt = f.clk.Now().Add(-40 * 24 * time.Hour)
	recent := seedDoc(f, model.DocumentTypeNote, model.DocumentStatusDraft, "NT202603100001")
	recent.UpdatedAt = f.clk.Now().Add(-time.Hour)

	removed, err := f.svc.CleanupStaleDrafts(ctx, 30*24*time.Hour, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = f.svc.Get(ctx, stale.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound), "soft-deleted draft stays hidden")

	got, err := f.svc.Get(ctx, recent.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentStatusDraft, got.Status)

	assert.Contains(t, f.audits.actions(), model.AuditActionDeactivate)
}

func TestConfiguredExpiryAndAutoSignLimits(t *testing.T) {
	f := newDocFixture(t, Options{AutoSignMaxLines: 1, PrescriptionExpiryDays: 7})
	ctx := context.Background()

	doc, err := f.svc.Create(ctx, prescriptionReq(101, 9001, rxLine("PARACETAMOL500", 10)), f.physician.ID)
	require.NoError(t, err)
	assert.True(t, doc.Signed)
	require.NotNil(t, doc.ExpiresAt)
	assert.Equal(t, f.clk.Now().AddDate(0, 0, 7), *doc.ExpiresAt)

	two, err := f.svc.Create(ctx, prescriptionReq(102, 9002, rxLine("PARACETAMOL500", 10), rxLine("OMEPRAZOL20", 14)), f.physician.ID)
	require.NoError(t, err)
	assert.False(t, two.Signed, "two lines exceed the configured auto-sign limit")
}
