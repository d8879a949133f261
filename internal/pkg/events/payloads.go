package events

import (
	"encoding/json"
	"time"
)

// ObjectID normalizes processor relationship fields that arrive either as a
// bare id string or as an expanded object containing an "id". Downstream code
// only ever sees the resolved id.
type ObjectID string

func (o *ObjectID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = ObjectID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*o = ObjectID(obj.ID)
	return nil
}

func (o ObjectID) String() string { return string(o) }

// Envelope is the raw inbound notification shape: id, type, origination time
// and a typed payload under data.object.
type Envelope struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// CreatedAt returns the event's self-reported origination time.
func (e *Envelope) CreatedAt() time.Time {
	return time.Unix(e.Created, 0).UTC()
}

// CheckoutSessionPayload is the subset of a checkout session we consume.
type CheckoutSessionPayload struct {
	ID            string            `json:"id"`
	PaymentIntent ObjectID          `json:"payment_intent"`
	Customer      ObjectID          `json:"customer"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

// PaymentIntentPayload is the subset of a payment intent we consume.
type PaymentIntentPayload struct {
	ID               string   `json:"id"`
	Amount           int64    `json:"amount"`
	Currency         string   `json:"currency"`
	LatestCharge     ObjectID `json:"latest_charge"`
	LastPaymentError *struct {
		Code string `json:"code"`
	} `json:"last_payment_error"`
}

// AccountPayload is the subset of a connected account we consume.
type AccountPayload struct {
	ID               string `json:"id"`
	ChargesEnabled   bool   `json:"charges_enabled"`
	PayoutsEnabled   bool   `json:"payouts_enabled"`
	DetailsSubmitted bool   `json:"details_submitted"`
	Requirements     *struct {
		DisabledReason string   `json:"disabled_reason"`
		CurrentlyDue   []string `json:"currently_due"`
	} `json:"requirements"`
}

// SubscriptionPayload is the subset of a subscription we consume.
type SubscriptionPayload struct {
	ID                 string   `json:"id"`
	Customer           ObjectID `json:"customer"`
	Status             string   `json:"status"`
	CancelAtPeriodEnd  bool     `json:"cancel_at_period_end"`
	CurrentPeriodStart int64    `json:"current_period_start"`
	CurrentPeriodEnd   int64    `json:"current_period_end"`
	CanceledAt         int64    `json:"canceled_at"`
	TrialStart         int64    `json:"trial_start"`
	TrialEnd           int64    `json:"trial_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// PriceID returns the first item's price id, the plan-resolution key.
func (s *SubscriptionPayload) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

// InvoicePayload is the subset of an invoice we consume.
type InvoicePayload struct {
	ID           string   `json:"id"`
	Customer     ObjectID `json:"customer"`
	Subscription ObjectID `json:"subscription"`
	AmountPaid   int64    `json:"amount_paid"`
	AmountDue    int64    `json:"amount_due"`
	Currency     string   `json:"currency"`
}

// UnixTime converts a processor epoch-seconds field to a nullable timestamp.
func UnixTime(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}
