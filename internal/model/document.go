package model

import (
	"time"

	"github.com/google/uuid"
)

type DocumentType string

const (
	DocumentTypePrescription DocumentType = "PRESCRIPTION"
	DocumentTypeOrder        DocumentType = "ORDER"
	DocumentTypeNote         DocumentType = "NOTE"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePrescription, DocumentTypeOrder, DocumentTypeNote:
		return true
	}
	return false
}

type DocumentStatus string

// Prescription lifecycle.
const (
	DocumentStatusActive    DocumentStatus = "ACTIVE"
	DocumentStatusDispensed DocumentStatus = "DISPENSED"
	DocumentStatusExpired   DocumentStatus = "EXPIRED"
	DocumentStatusVoid      DocumentStatus = "VOID"
)

// Order lifecycle.
const (
	DocumentStatusPending    DocumentStatus = "PENDING"
	DocumentStatusScheduled  DocumentStatus = "SCHEDULED"
	DocumentStatusInProgress DocumentStatus = "IN_PROGRESS"
	DocumentStatusCompleted  DocumentStatus = "COMPLETED"
	DocumentStatusCancelled  DocumentStatus = "CANCELLED"
)

// Note lifecycle.
const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusFinalized DocumentStatus = "FINALIZED"
)

// OriginType identifies the clinical encounter a document was written from.
type OriginType string

const (
	OriginHospitalization OriginType = "HOSPITALIZATION"
	OriginConsultation    OriginType = "CONSULTATION"
	OriginEmergency       OriginType = "EMERGENCY"
)

func (o OriginType) Valid() bool {
	switch o {
	case OriginHospitalization, OriginConsultation, OriginEmergency:
		return true
	}
	return false
}

type OrderPriority string

const (
	PriorityRoutine OrderPriority = "ROUTINE"
	PriorityUrgent  OrderPriority = "URGENT"
)

// LineCategory classifies order lines; the first line's category picks the
// document number prefix.
type LineCategory string

const (
	CategoryLaboratory LineCategory = "LABORATORY"
	CategoryImaging    LineCategory = "IMAGING"
	CategoryProcedure  LineCategory = "PROCEDURE"
	CategoryConsult    LineCategory = "CONSULT"
	CategoryTherapy    LineCategory = "THERAPY"
)

func (l LineCategory) Valid() bool {
	switch l {
	case CategoryLaboratory, CategoryImaging, CategoryProcedure, CategoryConsult, CategoryTherapy:
		return true
	}
	return false
}

// ClinicalDocument is a prescription, order or clinical note. Author fields
// are snapshots taken at creation and never updated afterwards, so documents
// stay readable after staff records change.
type ClinicalDocument struct {
	Base
	Number          string         `db:"number" json:"number"`
	DocType         DocumentType   `db:"doc_type" json:"doc_type"`
	OriginType      OriginType     `db:"origin_type" json:"origin_type"`
	OriginID        int64          `db:"origin_id" json:"origin_id"`
	PatientID       int64          `db:"patient_id" json:"patient_id"`
	PatientName     string         `db:"patient_name" json:"patient_name"`
	PatientDocument string         `db:"patient_document" json:"patient_document,omitempty"`
	AuthorID        uuid.UUID      `db:"author_id" json:"author_id"`
	AuthorName      string         `db:"author_name" json:"author_name"`
	AuthorSpecialty string         `db:"author_specialty" json:"author_specialty,omitempty"`
	AuthorLicense   string         `db:"author_license" json:"author_license,omitempty"`
	Status          DocumentStatus `db:"status" json:"status"`
	Signed          bool           `db:"signed" json:"signed"`
	SignedAt        *time.Time     `db:"signed_at" json:"signed_at,omitempty"`
	SignatureHash   string         `db:"signature_hash" json:"signature_hash,omitempty"`
	Diagnosis       string         `db:"diagnosis" json:"diagnosis,omitempty"`
	Instructions    string         `db:"instructions" json:"instructions,omitempty"`
	Priority        OrderPriority  `db:"priority" json:"priority,omitempty"`
	ExpiresAt       *time.Time     `db:"expires_at" json:"expires_at,omitempty"`
	FinalizedAt     *time.Time     `db:"finalized_at" json:"finalized_at,omitempty"`
	Lines           []DocumentLine `db:"-" json:"lines,omitempty"`
}

// DocumentLine is one medication, exam or note body row.
type DocumentLine struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	DocumentID    uuid.UUID    `db:"document_id" json:"document_id"`
	LineNo        int          `db:"line_no" json:"line_no"`
	Code          string       `db:"code" json:"code,omitempty"`
	Name          string       `db:"name" json:"name,omitempty"`
	Quantity      int          `db:"quantity" json:"quantity,omitempty"`
	Unit          string       `db:"unit" json:"unit,omitempty"`
	Instructions  string       `db:"instructions" json:"instructions,omitempty"`
	Duration      string       `db:"duration" json:"duration,omitempty"`
	Category      LineCategory `db:"category" json:"category,omitempty"`
	Urgent        bool         `db:"urgent" json:"urgent,omitempty"`
	Substitutable bool         `db:"substitutable" json:"substitutable,omitempty"`
	Body          string       `db:"body" json:"body,omitempty"`
	Status        string       `db:"status" json:"status,omitempty"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
}

type DocumentLineRequest struct {
	Code          string       `json:"code" binding:"max=30"`
	Name          string       `json:"name" binding:"max=300"`
	Quantity      int          `json:"quantity"`
	Unit          string       `json:"unit" binding:"max=30"`
	Instructions  string       `json:"instructions" binding:"max=500"`
	Duration      string       `json:"duration" binding:"max=100"`
	Category      LineCategory `json:"category" binding:"omitempty,oneof=LABORATORY IMAGING PROCEDURE CONSULT THERAPY"`
	Urgent        bool         `json:"urgent"`
	Substitutable bool         `json:"substitutable"`
	Body          string       `json:"body"`
}

type CreateDocumentRequest struct {
	DocType         DocumentType          `json:"doc_type" binding:"required,oneof=PRESCRIPTION ORDER NOTE"`
	OriginType      OriginType            `json:"origin_type" binding:"required,oneof=HOSPITALIZATION CONSULTATION EMERGENCY"`
	OriginID        int64                 `json:"origin_id" binding:"required,gt=0"`
	PatientID       int64                 `json:"patient_id" binding:"required,gt=0"`
	PatientName     string                `json:"patient_name" binding:"required,max=200"`
	PatientDocument string                `json:"patient_document" binding:"max=20"`
	Diagnosis       string                `json:"diagnosis" binding:"max=500"`
	Instructions    string                `json:"instructions" binding:"max=1000"`
	Priority        OrderPriority         `json:"priority" binding:"omitempty,oneof=ROUTINE URGENT"`
	Lines           []DocumentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// UpdateDocumentRequest replaces mutable content. Only documents still in
// their initial status and unsigned accept updates.
type UpdateDocumentRequest struct {
	Diagnosis    *string               `json:"diagnosis"`
	Instructions *string               `json:"instructions"`
	Priority     *OrderPriority        `json:"priority"`
	Lines        []DocumentLineRequest `json:"lines" binding:"omitempty,min=1,dive"`
}

type TransitionRequest struct {
	Status DocumentStatus `json:"status" binding:"required"`
	Reason string         `json:"reason" binding:"max=500"`
}

type DocumentFilters struct {
	DocType    DocumentType   `form:"doc_type"`
	Status     DocumentStatus `form:"status"`
	PatientID  int64          `form:"patient_id"`
	AuthorID   uuid.UUID
	OriginID   int64          `form:"origin_id"`
	OriginType OriginType     `form:"origin_type"`
	From       time.Time
	To         time.Time
	Pagination
}

// AuthorDocumentStats summarizes an author's production by type and status.
type AuthorDocumentStats struct {
	AuthorID uuid.UUID                               `json:"author_id"`
	Total    int                                     `json:"total"`
	ByType   map[DocumentType]int                    `json:"by_type"`
	ByStatus map[DocumentType]map[DocumentStatus]int `json:"by_status"`
}

// RankedItem is one row of a top-N catalog usage report.
type RankedItem struct {
	Code  string `db:"code" json:"code"`
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}
