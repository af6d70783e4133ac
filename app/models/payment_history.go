package models

import "time"

const (
	PaymentStatusPaid   = "paid"
	PaymentStatusFailed = "failed"
)

// PaymentHistory is an append-only ledger of invoice outcomes. The unique
// (provider, invoice id) pair makes webhook replays no-ops.
type PaymentHistory struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"not null;index" json:"user_id"`
	Provider          string    `gorm:"type:varchar(20);not null;index:ux_payment_history_provider_invoice,unique,priority:1" json:"provider"`
	ProviderInvoiceID string    `gorm:"type:varchar(191);not null;index:ux_payment_history_provider_invoice,unique,priority:2" json:"provider_invoice_id"`
	AmountCents       int64     `gorm:"not null;default:0" json:"amount_cents"`
	Currency          string    `gorm:"type:varchar(8);not null;default:'usd'" json:"currency"`
	Status            string    `gorm:"type:varchar(20);not null" json:"status"`
	OccurredAt        time.Time `gorm:"type:timestamp;not null" json:"occurred_at"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}
