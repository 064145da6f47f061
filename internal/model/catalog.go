package model

// Medication is a formulary entry; document lines reference it by code.
type Medication struct {
	Base
	Code          string `db:"code" json:"code"`
	Name          string `db:"name" json:"name"`
	GenericName   string `db:"generic_name" json:"generic_name,omitempty"`
	Form          string `db:"form" json:"form,omitempty"`
	Concentration string `db:"concentration" json:"concentration,omitempty"`
	Active        bool   `db:"active" json:"active"`
}

// ExamType is a catalog entry for laboratory and imaging order lines.
type ExamType struct {
	Base
	Code          string       `db:"code" json:"code"`
	Name          string       `db:"name" json:"name"`
	Category      LineCategory `db:"category" json:"category"`
	NeedsFasting  bool         `db:"needs_fasting" json:"needs_fasting"`
	FastingHours  int          `db:"fasting_hours" json:"fasting_hours,omitempty"`
	Active        bool         `db:"active" json:"active"`
}

type CatalogSearchFilters struct {
	Query    string       `form:"q"`
	Category LineCategory `form:"category"`
	Limit    int          `form:"limit"`
}
