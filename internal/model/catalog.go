package model

// CatalogKind identifies one external reference catalog.
type CatalogKind string

const (
	CatalogMedicines CatalogKind = "medicines"
	CatalogLabTests  CatalogKind = "lab_tests"
	CatalogRayTests  CatalogKind = "ray_tests"
)

func (k CatalogKind) Valid() bool {
	switch k {
	case CatalogMedicines, CatalogLabTests, CatalogRayTests:
		return true
	}
	return false
}

// CatalogEntry is one searchable reference row: a medicine, a lab test or a
// radiology test.
type CatalogEntry struct {
	ID    string `db:"id" json:"id"`
	Label string `db:"label" json:"label"`
	Code  string `db:"code" json:"code,omitempty"`
}

type CatalogQuery struct {
	Filter   string `json:"filter" form:"filter"`
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"page_size" form:"page_size"`
}

func (q CatalogQuery) Normalized() CatalogQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	return q
}

type CatalogPage struct {
	Entries  []CatalogEntry `json:"entries"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Total    int            `json:"total"`
}
