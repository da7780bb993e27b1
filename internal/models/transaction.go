package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a settled M-Pesa payment as reported by the STK callback.
// Rows are written once and never updated; CheckoutID is unique so a
// replayed callback cannot record the same payment twice.
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CheckoutID  string          `gorm:"size:128;not null;uniqueIndex" json:"checkout_id"`
	MpesaCode   string          `gorm:"size:64;not null;index" json:"mpesa_code"`
	PhoneNumber string          `gorm:"size:20;not null" json:"phone_number"`
	Status      string          `gorm:"size:20;not null" json:"status"` // Success, Failed
	CreatedAt   time.Time       `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
