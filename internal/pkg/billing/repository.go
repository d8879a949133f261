package billing

import (
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
)

// Repository provides the DB operations the orchestrator needs.
type Repository interface {
	GetBooking(bookingID uint) (*models.Booking, error)
	MarkBookingPaid(bookingID uint) error

	GetProfileByTenantID(tenantID uint) (*models.TenantBillingProfile, error)

	GetPayment(paymentID uint) (*models.Payment, error)
	CreatePayment(payment *models.Payment) error
	SavePayment(payment *models.Payment) error

	CreateNotification(tenantID uint, notificationType, content string, referenceID uint) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetBooking(bookingID uint) (*models.Booking, error) {
	var b models.Booking
	if err := r.db.First(&b, bookingID).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *gormRepository) MarkBookingPaid(bookingID uint) error {
	return r.db.Model(&models.Booking{}).Where("id = ?", bookingID).Updates(map[string]interface{}{
		"payment_status": models.BookingPaymentPaid,
		"paid_at":        gorm.Expr("NOW()"),
	}).Error
}

func (r *gormRepository) GetProfileByTenantID(tenantID uint) (*models.TenantBillingProfile, error) {
	var p models.TenantBillingProfile
	if err := r.db.Where("tenant_id = ?", tenantID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) GetPayment(paymentID uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.First(&p, paymentID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) CreatePayment(payment *models.Payment) error {
	return r.db.Create(payment).Error
}

func (r *gormRepository) SavePayment(payment *models.Payment) error {
	return r.db.Save(payment).Error
}

func (r *gormRepository) CreateNotification(tenantID uint, notificationType, content string, referenceID uint) error {
	return models.CreateNotification(r.db, tenantID, notificationType, content, referenceID)
}
