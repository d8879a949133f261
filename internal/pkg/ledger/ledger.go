package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
)

// Entry is one immutable ledger row. Refunds must reference the original
// transaction and carry negative gross/net amounts; originals are never
// edited.
type Entry struct {
	Type                  string
	TenantID              uint
	BookingID             *uint
	SubscriptionID        *uint
	OriginalTransactionID *uint
	GrossCents            int64
	ProcessorFeeCents     int64
	PlatformFeeCents      int64
	FeeBpsAtTime          int64
	NetCents              int64
	ExternalReference     string
	At                    time.Time
}

// Writer appends entries to the audit trail.
type Writer interface {
	Record(ctx context.Context, entry Entry) (*models.LedgerTransaction, error)
	// HasTransaction reports whether a row of the given type already carries
	// the external reference. Handlers that may be re-invoked for the same
	// processor object use it to keep the trail append-once.
	HasTransaction(ctx context.Context, txType, externalReference string) (bool, error)
	// BookingPaymentTransaction returns the booking's original payment row so
	// refund entries can back-reference it.
	BookingPaymentTransaction(ctx context.Context, bookingID uint) (*models.LedgerTransaction, error)
	// BookingNetCents sums a booking's rows; it reconciles to the booking's
	// net settled amount once all movement has been recorded.
	BookingNetCents(ctx context.Context, bookingID uint) (int64, error)
}

type gormWriter struct {
	db *gorm.DB
}

// NewWriter creates a ledger writer backed by GORM.
func NewWriter(db *gorm.DB) Writer {
	return &gormWriter{db: db}
}

func (w *gormWriter) Record(ctx context.Context, entry Entry) (*models.LedgerTransaction, error) {
	if entry.TenantID == 0 {
		return nil, fmt.Errorf("ledger entry requires a tenant")
	}
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	row := &models.LedgerTransaction{
		Type:                  entry.Type,
		TenantID:              entry.TenantID,
		BookingID:             entry.BookingID,
		SubscriptionID:        entry.SubscriptionID,
		OriginalTransactionID: entry.OriginalTransactionID,
		GrossCents:            entry.GrossCents,
		ProcessorFeeCents:     entry.ProcessorFeeCents,
		PlatformFeeCents:      entry.PlatformFeeCents,
		FeeBpsAtTime:          entry.FeeBpsAtTime,
		NetCents:              entry.NetCents,
		Status:                models.LedgerStatusCompleted,
		Period:                at.Format("2006-01"),
		Year:                  at.Year(),
		ExternalReference:     entry.ExternalReference,
	}
	if err := w.db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (w *gormWriter) HasTransaction(ctx context.Context, txType, externalReference string) (bool, error) {
	if externalReference == "" {
		return false, nil
	}
	var count int64
	err := w.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("type = ? AND external_reference = ?", txType, externalReference).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (w *gormWriter) BookingPaymentTransaction(ctx context.Context, bookingID uint) (*models.LedgerTransaction, error) {
	var row models.LedgerTransaction
	err := w.db.WithContext(ctx).
		Where("booking_id = ? AND type = ?", bookingID, models.LedgerTypeBookingPayment).
		Order("id ASC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (w *gormWriter) BookingNetCents(ctx context.Context, bookingID uint) (int64, error) {
	var total int64
	err := w.db.WithContext(ctx).
		Model(&models.LedgerTransaction{}).
		Where("booking_id = ?", bookingID).
		Select("COALESCE(SUM(net_cents), 0)").
		Scan(&total).Error
	return total, err
}
