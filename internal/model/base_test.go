package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPaginationNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       Pagination
		page     int
		pageSize int
	}{
		{"zero values", Pagination{}, 1, 20},
		{"negative page", Pagination{Page: -3, PageSize: 10}, 1, 10},
		{"oversized page size", Pagination{Page: 2, PageSize: 900}, 2, 200},
		{"already sane", Pagination{Page: 4, PageSize: 50}, 4, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.page, tt.in.Page)
			assert.Equal(t, tt.pageSize, tt.in.PageSize)
		})
	}
}

func TestPaginationOffset(t *testing.T) {
	assert.Equal(t, 0, Pagination{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, Pagination{Page: 3, PageSize: 20}.Offset())
}

func TestDocumentTypeValid(t *testing.T) {
	assert.True(t, DocumentTypePrescription.Valid())
	assert.True(t, DocumentTypeOrder.Valid())
	assert.True(t, DocumentTypeNote.Valid())
	assert.False(t, DocumentType("REFERRAL").Valid())
}

func TestOriginTypeValid(t *testing.T) {
	assert.True(t, OriginHospitalization.Valid())
	assert.False(t, OriginType("TELEHEALTH").Valid())
}

func TestLineCategoryValid(t *testing.T) {
	for _, c := range []LineCategory{CategoryLaboratory, CategoryImaging, CategoryProcedure, CategoryConsult, CategoryTherapy} {
		assert.True(t, c.Valid(), string(c))
	}
	assert.False(t, LineCategory("GENETICS").Valid())
}

func TestOccupancyEntryOpen(t *testing.T) {
	entry := OccupancyEntry{}
	assert.True(t, entry.Open())

	discharged := entry.AdmittedAt.Add(48 * time.Hour)
	entry.DischargedAt = &discharged
	assert.False(t, entry.Open())
}
