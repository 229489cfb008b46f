package models

import "time"

// Reading is one classified sensor sample. Rows are append-only; ID is the
// insertion sequence and is never serialized.
type Reading struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"-"`
	PH          float64   `gorm:"column:ph;not null" json:"ph"`
	Turbidity   float64   `gorm:"column:turbidity;not null" json:"turbidity"`
	Temperature float64   `gorm:"column:temperature;not null" json:"temperature"`
	MLLabel     *Label    `gorm:"column:ml_label;type:varchar(16)" json:"ml_label"`
	FinalStatus Label     `gorm:"column:final_status;type:varchar(16);not null" json:"final_status"`
	RecordedAt  time.Time `gorm:"column:recorded_at;not null" json:"recorded_at"`
}

func (Reading) TableName() string { return "readings" }

// Overridden reports whether the rule verdict disagrees with a recorded
// classifier label.
func (r Reading) Overridden() bool {
	return r.MLLabel != nil && *r.MLLabel != r.FinalStatus
}
