package webhooks

import (
	"time"

	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
)

// Repository provides the DB operations used by the delivery engine.
type Repository interface {
	CreateEndpoint(endpoint *models.WebhookEndpoint) error
	GetEndpoint(id, tenantID uint) (*models.WebhookEndpoint, error)
	GetEndpointByID(id uint) (*models.WebhookEndpoint, error)
	ListEndpoints(tenantID uint) ([]models.WebhookEndpoint, error)
	ActiveEndpointsForTenant(tenantID uint) ([]models.WebhookEndpoint, error)
	DeleteEndpoint(id, tenantID uint) error
	UpdateEndpointFields(id uint, fields map[string]interface{}) error

	CreateDelivery(delivery *models.WebhookDelivery) error
	GetDelivery(id, tenantID uint) (*models.WebhookDelivery, error)
	ListDeliveries(tenantID uint, limit int) ([]models.WebhookDelivery, error)
	DueDeliveries(now time.Time, limit int) ([]models.WebhookDelivery, error)
	// ClaimDelivery advances the attempt counter iff the delivery is still in
	// a due status with the expected attempt count. It reports false when a
	// concurrent attempt won the claim; the caller must then back off.
	ClaimDelivery(id uint, expectedAttempts int) (bool, error)
	UpdateDeliveryFields(id uint, fields map[string]interface{}) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a delivery-engine repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateEndpoint(endpoint *models.WebhookEndpoint) error {
	return r.db.Create(endpoint).Error
}

func (r *gormRepository) GetEndpoint(id, tenantID uint) (*models.WebhookEndpoint, error) {
	var e models.WebhookEndpoint
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) GetEndpointByID(id uint) (*models.WebhookEndpoint, error) {
	var e models.WebhookEndpoint
	if err := r.db.First(&e, id).Error; err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) ListEndpoints(tenantID uint) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("tenant_id = ?", tenantID).Order("id").Find(&endpoints).Error
	return endpoints, err
}

func (r *gormRepository) ActiveEndpointsForTenant(tenantID uint) ([]models.WebhookEndpoint, error) {
	var endpoints []models.WebhookEndpoint
	err := r.db.Where("tenant_id = ? AND is_active = ?", tenantID, true).Find(&endpoints).Error
	return endpoints, err
}

func (r *gormRepository) DeleteEndpoint(id, tenantID uint) error {
	return r.db.Where("id = ? AND tenant_id = ?", id, tenantID).Delete(&models.WebhookEndpoint{}).Error
}

func (r *gormRepository) UpdateEndpointFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.WebhookEndpoint{}).Where("id = ?", id).Updates(fields).Error
}

func (r *gormRepository) CreateDelivery(delivery *models.WebhookDelivery) error {
	return r.db.Create(delivery).Error
}

func (r *gormRepository) GetDelivery(id, tenantID uint) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	if err := r.db.Where("id = ? AND tenant_id = ?", id, tenantID).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *gormRepository) ListDeliveries(tenantID uint, limit int) ([]models.WebhookDelivery, error) {
	var deliveries []models.WebhookDelivery
	err := r.db.Where("tenant_id = ?", tenantID).Order("id DESC").Limit(limit).Find(&deliveries).Error
	return deliveries, err
}

func (r *gormRepository) DueDeliveries(now time.Time, limit int) ([]models.WebhookDelivery, error) {
	var deliveries []models.WebhookDelivery
	err := r.db.
		Where("status IN ?", []string{models.DeliveryStatusPending, models.DeliveryStatusRetrying}).
		Where("attempts < max_attempts").
		Where("next_retry_at IS NULL OR next_retry_at <= ?", now).
		Order("id").
		Limit(limit).
		Find(&deliveries).Error
	return deliveries, err
}

func (r *gormRepository) ClaimDelivery(id uint, expectedAttempts int) (bool, error) {
	tx := r.db.Model(&models.WebhookDelivery{}).
		Where("id = ? AND attempts = ? AND status IN ?",
			id, expectedAttempts, []string{models.DeliveryStatusPending, models.DeliveryStatusRetrying}).
		Update("attempts", expectedAttempts+1)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) UpdateDeliveryFields(id uint, fields map[string]interface{}) error {
	return r.db.Model(&models.WebhookDelivery{}).Where("id = ?", id).Updates(fields).Error
}
