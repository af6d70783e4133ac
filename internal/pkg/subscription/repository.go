package subscription

import (
	"time"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the subscription service, the
// webhook ingestor and the integrity auditor.
type Repository interface {
	GetSubscriberByUserID(userID uint) (*models.Subscriber, error)
	GetSubscriberByProviderSubscriptionID(provider, subscriptionID string) (*models.Subscriber, error)
	GetSubscriberByProviderCustomerID(provider, customerID string) (*models.Subscriber, error)
	ListSubscribersByStatus(statuses []string) ([]models.Subscriber, error)

	// ApplySubscriptionUpdate runs mutate against the (possibly new)
	// subscriber row for userID, refreshes the user projection and appends
	// the audit entry, all inside one transaction. Nothing is observable
	// half-applied.
	ApplySubscriptionUpdate(userID uint, mutate func(sub *models.Subscriber), entry *models.AuditLog) error

	FindActivePlanMapping(provider, priceID string) (*models.PlanMapping, error)
	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	CreatePaymentIfNotExists(p *models.PaymentHistory) (bool, error)
	CreateNotification(n *models.Notification) error
	AppendAuditLog(entry *models.AuditLog) error
	GetUserByID(id uint) (*models.User, error)
	CreateIntegrityCheckRun(run *models.IntegrityCheckRun) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetSubscriberByUserID(userID uint) (*models.Subscriber, error) {
	var sub models.Subscriber
	if err := r.db.Where("user_id = ?", userID).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriberByProviderSubscriptionID(provider, subscriptionID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("provider_subscription_id = ?", subscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetSubscriberByProviderCustomerID(provider, customerID string) (*models.Subscriber, error) {
	var sub models.Subscriber
	err := r.db.Where("provider_customer_id = ?", customerID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) ListSubscribersByStatus(statuses []string) ([]models.Subscriber, error) {
	var subs []models.Subscriber
	err := r.db.Where("status IN ?", statuses).Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ApplySubscriptionUpdate(userID uint, mutate func(sub *models.Subscriber), entry *models.AuditLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Subscriber
		err := tx.Where("user_id = ?", userID).First(&sub).Error
		switch {
		case err == nil:
		case err == gorm.ErrRecordNotFound:
			sub = models.Subscriber{UserID: userID, Status: models.SubscriptionStatusInactive}
		default:
			return err
		}

		mutate(&sub)
		if err := tx.Save(&sub).Error; err != nil {
			return err
		}

		projection := map[string]interface{}{
			"has_active_subscription": models.HasActiveSubscription(sub.Status),
			"subscription_status":     sub.Status,
			"subscription_tier":       sub.Tier,
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(projection).Error; err != nil {
			return err
		}

		return tx.Create(entry).Error
	})
}

func (r *gormRepository) FindActivePlanMapping(provider, priceID string) (*models.PlanMapping, error) {
	var m models.PlanMapping
	err := r.db.
		Where("provider = ? AND price_id = ? AND is_active = ?", provider, priceID, true).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) CreatePaymentIfNotExists(p *models.PaymentHistory) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_invoice_id"},
		},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) CreateNotification(n *models.Notification) error {
	return r.db.Create(n).Error
}

func (r *gormRepository) AppendAuditLog(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	var u models.User
	if err := r.db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *gormRepository) CreateIntegrityCheckRun(run *models.IntegrityCheckRun) error {
	return r.db.Create(run).Error
}
