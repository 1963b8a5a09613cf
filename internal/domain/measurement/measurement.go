// Package measurement models self-recorded vital signs: blood pressure,
// heart and respiratory rate, oxygen saturation, blood glucose, body
// temperature, pain score, and cholesterol.
package measurement

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies the type of a vital-sign measurement and which value
// columns it uses.
type Kind string

const (
	KindBloodPressure   Kind = "BP"
	KindHeartRate       Kind = "HR"
	KindRespiratoryRate Kind = "RR"
	KindOxygenSat       Kind = "SpO2"
	KindGlucose         Kind = "HGT"
	KindTemperature     Kind = "TMP"
	KindPain            Kind = "PAIN"
	KindCholesterol     Kind = "CHL"
)

// Kinds lists every supported measurement kind.
var Kinds = []Kind{
	KindBloodPressure,
	KindHeartRate,
	KindRespiratoryRate,
	KindOxygenSat,
	KindGlucose,
	KindTemperature,
	KindPain,
	KindCholesterol,
}

// Valid reports whether k is a supported kind.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Measurement is a single recorded vital sign. Only the value fields
// belonging to Kind are set; the rest stay nil.
type Measurement struct {
	ID      int64
	UserID  int64
	TakenAt time.Time
	Kind    Kind
	Note    *string

	Systolic     *int
	Diastolic    *int
	BPM          *int
	Respirations *int
	NRS          *int
	SpO2         *decimal.Decimal
	HGT          *decimal.Decimal
	Degrees      *decimal.Decimal
	CHLLevel     *decimal.Decimal
}

// Filter narrows a measurement listing.
type Filter struct {
	Kind  *Kind
	After *time.Time
	Limit int
}

// Repository defines persistence for measurements. Lookups are scoped by
// owner: a measurement id paired with the wrong user behaves as missing.
type Repository interface {
	Create(ctx context.Context, m *Measurement) (int64, error)
	GetByID(ctx context.Context, userID, id int64) (*Measurement, error)
	List(ctx context.Context, userID int64, f Filter) ([]Measurement, error)
	Update(ctx context.Context, m *Measurement) error
	Delete(ctx context.Context, userID, id int64) error
}
