package events

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rentbase/rentbase/app/models"
)

// Repository provides the local-state operations inbound handlers need.
type Repository interface {
	// InsertProcessedEvent records the replay-guard row. It reports false when
	// the event id already exists; any other failure is a hard error and the
	// caller must reject the notification.
	InsertProcessedEvent(eventID, eventType string, eventCreatedAt time.Time) (bool, error)

	GetPaymentBySessionID(sessionID string) (*models.Payment, error)
	GetPaymentByIntentID(intentID string) (*models.Payment, error)
	CreatePayment(payment *models.Payment) error
	UpdatePaymentFields(paymentID uint, fields map[string]interface{}) error

	GetBooking(bookingID uint) (*models.Booking, error)
	MarkBookingPaid(bookingID uint, paidAt time.Time) error

	GetProfileByAccountID(accountID string) (*models.TenantBillingProfile, error)
	SaveProfile(profile *models.TenantBillingProfile) error

	CreateNotification(tenantID uint, notificationType, content string, referenceID uint) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an event repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) InsertProcessedEvent(eventID, eventType string, eventCreatedAt time.Time) (bool, error) {
	row := &models.ProcessedEvent{
		EventID:        eventID,
		EventType:      eventType,
		EventCreatedAt: eventCreatedAt,
	}
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(row)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) GetPaymentBySessionID(sessionID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("session_id = ?", sessionID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPaymentByIntentID(intentID string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.Where("payment_intent_id = ?", intentID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) UpdatePaymentFields(paymentID uint, fields map[string]interface{}) error {
	return r.db.Model(&models.Payment{}).Where("id = ?", paymentID).Updates(fields).Error
}

func (r *gormRepository) GetBooking(bookingID uint) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.First(&b, bookingID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) MarkBookingPaid(bookingID uint, paidAt time.Time) error {
	return r.db.Model(&models.Booking{}).Where("id = ?", bookingID).Updates(map[string]interface{}{
		"payment_status": models.BookingPaymentPaid,
		"paid_at":        &paidAt,
	}).Error
}

func (r *gormRepository) GetProfileByAccountID(accountID string) (*models.TenantBillingProfile, error) {
	var p models.TenantBillingProfile
	if err := r.db.Where("connect_account_id = ?", accountID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) SaveProfile(profile *models.TenantBillingProfile) error {
	return r.db.Save(profile).Error
}

func (r *gormRepository) CreateNotification(tenantID uint, notificationType, content string, referenceID uint) error {
	return models.CreateNotification(r.db, tenantID, notificationType, content, referenceID)
}
