package subsync

import (
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
)

// Repository provides the DB operations used by the synchronizer.
type Repository interface {
	GetByExternalID(externalSubscriptionID string) (*models.Subscription, error)
	GetLatestByTenant(tenantID uint) (*models.Subscription, error)
	Create(sub *models.Subscription) error
	Save(sub *models.Subscription) error
	GetPlanByPriceID(externalPriceID string) (*models.Plan, error)
	// TenantIDForCustomer resolves the processor customer id through existing
	// subscription rows.
	TenantIDForCustomer(externalCustomerID string) (uint, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByExternalID(externalSubscriptionID string) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.Where("external_subscription_id = ?", externalSubscriptionID).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) GetLatestByTenant(tenantID uint) (*models.Subscription, error) {
	var s models.Subscription
	if err := r.db.Where("tenant_id = ?", tenantID).Order("id DESC").First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *gormRepository) Create(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) Save(sub *models.Subscription) error {
	return r.db.Save(sub).Error
}

func (r *gormRepository) GetPlanByPriceID(externalPriceID string) (*models.Plan, error) {
	var p models.Plan
	if err := r.db.Where("external_price_id = ? AND is_active = ?", externalPriceID, true).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *gormRepository) TenantIDForCustomer(externalCustomerID string) (uint, error) {
	var s models.Subscription
	if err := r.db.Where("external_customer_id = ?", externalCustomerID).Order("id DESC").First(&s).Error; err != nil {
		return 0, err
	}
	return s.TenantID, nil
}
