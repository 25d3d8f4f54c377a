package domain

import "strings"

// MedicineRecord is one row of the medicine table.
type MedicineRecord struct {
	ID         int64  `db:"id" json:"id" csv:"id"`
	Name       string `db:"name" json:"name" csv:"name"`
	Location   string `db:"location" json:"location" csv:"location"`
	Category   string `db:"category" json:"category" csv:"category"`
	ExpiryDate string `db:"expiry_date" json:"expiry_date" csv:"expiry_date"`
}

// Complete reports whether all four user-supplied fields are populated.
func (m MedicineRecord) Complete() bool {
	return strings.TrimSpace(m.Name) != "" &&
		strings.TrimSpace(m.Location) != "" &&
		strings.TrimSpace(m.Category) != "" &&
		strings.TrimSpace(m.ExpiryDate) != ""
}

var (
	DefaultLocations  = []string{"A1", "B2", "C3"}
	DefaultCategories = []string{"Traditional Chinese Medicine", "Western Medicine", "Health Products"}
)

// ExpiryLayout is the canonical text form of expiry_date.
const ExpiryLayout = "2006-01-02"
