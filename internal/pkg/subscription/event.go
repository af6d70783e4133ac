package subscription

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Webhook event types the dispatcher understands.
const (
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaid          = "invoice.paid"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Event is the typed envelope parsed from a provider webhook body. Data
// stays raw until the type-specific handler decodes it.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Timestamp returns the event creation time, or the zero time if absent.
func (e *Event) Timestamp() time.Time {
	if e.Created <= 0 {
		return time.Time{}
	}
	return time.Unix(e.Created, 0).UTC()
}

// SubscriptionPayload is the subset of a provider subscription object the
// synchronizer consumes.
type SubscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	CanceledAt         int64             `json:"canceled_at"`
	StartDate          int64             `json:"start_date"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []struct {
			Price struct {
				ID       string            `json:"id"`
				Product  string            `json:"product"`
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	// Some payload variants carry subscription fields at the top level of a
	// nested "subscription" object instead.
	Subscription *SubscriptionPayload `json:"subscription,omitempty"`
}

// PriceID returns the first item's price id, if any.
func (p *SubscriptionPayload) PriceID() string {
	if len(p.Items.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(p.Items.Data[0].Price.ID)
}

// ProductTierMetadata returns the first item's product-level tier metadata.
func (p *SubscriptionPayload) ProductTierMetadata() string {
	if len(p.Items.Data) == 0 {
		return ""
	}
	return strings.TrimSpace(p.Items.Data[0].Price.Metadata["tier"])
}

// InvoicePayload is the subset of a provider invoice object the payment
// history handlers consume.
type InvoicePayload struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AmountPaid   int64             `json:"amount_paid"`
	AmountDue    int64             `json:"amount_due"`
	Currency     string            `json:"currency"`
	Created      int64             `json:"created"`
	Metadata     map[string]string `json:"metadata"`
}

// ParseEvent decodes the raw webhook body into the typed envelope.
func ParseEvent(body []byte) (*Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty webhook body")
	}
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ev.Type) == "" {
		return nil, errors.New("webhook event missing type")
	}
	return &ev, nil
}

func (e *Event) subscriptionPayload() (*SubscriptionPayload, error) {
	var p SubscriptionPayload
	if err := json.Unmarshal(e.Data.Object, &p); err != nil {
		return nil, err
	}
	// Unwrap the nested variant delivered by some senders.
	if p.ID == "" && p.Subscription != nil {
		return p.Subscription, nil
	}
	return &p, nil
}

func (e *Event) invoicePayload() (*InvoicePayload, error) {
	var p InvoicePayload
	if err := json.Unmarshal(e.Data.Object, &p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, errors.New("invoice payload missing id")
	}
	return &p, nil
}
