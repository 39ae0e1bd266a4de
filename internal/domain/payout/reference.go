package payout

import (
	"fmt"
	"strings"
	"time"
)

// DefaultReferencePrefix is used when no prefix is configured
const DefaultReferencePrefix = "PAY"

// ReferenceDayLayout is the date part of a payout reference
const ReferenceDayLayout = "20060102"

// ReferenceSequence holds the last issued daily sequence for a prefix
type ReferenceSequence struct {
	Prefix    string `gorm:"type:varchar(20);primaryKey"`
	Day       string `gorm:"type:varchar(8);primaryKey"`
	LastValue int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (ReferenceSequence) TableName() string {
	return "payout_reference_sequences"
}

// FormatReference renders PREFIX-YYYYMMDD-NNNN
func FormatReference(prefix string, day time.Time, seq int) string {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultReferencePrefix
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format(ReferenceDayLayout), seq)
}
