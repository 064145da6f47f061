package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/intisalud/hospital-api/internal/repository"
)

type bedRepository struct {
	BaseRepository
}

type occupancyRepository struct {
	BaseRepository
}

type documentRepository struct {
	BaseRepository
}

type sequenceRepository struct {
	BaseRepository
}

type staffRepository struct {
	BaseRepository
}

type catalogRepository struct {
	BaseRepository
}

func NewBedRepository(db *sqlx.DB) repository.BedRepository {
	return &bedRepository{NewBaseRepository(db)}
}

func NewOccupancyRepository(db *sqlx.DB) repository.OccupancyRepository {
	return &occupancyRepository{NewBaseRepository(db)}
}

func NewDocumentRepository(db *sqlx.DB) repository.DocumentRepository {
	return &documentRepository{NewBaseRepository(db)}
}

func NewSequenceRepository(db *sqlx.DB) repository.SequenceRepository {
	return &sequenceRepository{NewBaseRepository(db)}
}

func NewStaffRepository(db *sqlx.DB) repository.StaffRepository {
	return &staffRepository{NewBaseRepository(db)}
}

func NewCatalogRepository(db *sqlx.DB) repository.CatalogRepository {
	return &catalogRepository{NewBaseRepository(db)}
}
