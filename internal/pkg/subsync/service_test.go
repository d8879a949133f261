package subsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/events"
	"github.com/rentbase/rentbase/internal/pkg/ledger"
	"github.com/rentbase/rentbase/internal/pkg/processor"
)

type memoryRepo struct {
	subs   map[string]*models.Subscription
	plans  map[string]*models.Plan
	nextID uint
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		subs:   make(map[string]*models.Subscription),
		plans:  make(map[string]*models.Plan),
		nextID: 1,
	}
}

func (m *memoryRepo) GetByExternalID(id string) (*models.Subscription, error) {
	if s, ok := m.subs[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) GetLatestByTenant(tenantID uint) (*models.Subscription, error) {
	var latest *models.Subscription
	for _, s := range m.subs {
		if s.TenantID != tenantID {
			continue
		}
		if latest == nil || s.ID > latest.ID {
			latest = s
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memoryRepo) Create(sub *models.Subscription) error {
	sub.ID = m.nextID
	m.nextID++
	cp := *sub
	m.subs[sub.ExternalSubscriptionID] = &cp
	return nil
}

func (m *memoryRepo) Save(sub *models.Subscription) error {
	cp := *sub
	m.subs[sub.ExternalSubscriptionID] = &cp
	return nil
}

func (m *memoryRepo) GetPlanByPriceID(priceID string) (*models.Plan, error) {
	if p, ok := m.plans[priceID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) TenantIDForCustomer(customerID string) (uint, error) {
	for _, s := range m.subs {
		if s.ExternalCustomerID == customerID {
			return s.TenantID, nil
		}
	}
	return 0, gorm.ErrRecordNotFound
}

type memoryLedger struct {
	entries []ledger.Entry
}

func (m *memoryLedger) Record(_ context.Context, entry ledger.Entry) (*models.LedgerTransaction, error) {
	m.entries = append(m.entries, entry)
	return &models.LedgerTransaction{ID: uint(len(m.entries))}, nil
}

func (m *memoryLedger) HasTransaction(_ context.Context, txType, externalReference string) (bool, error) {
	for _, e := range m.entries {
		if e.Type == txType && e.ExternalReference == externalReference {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryLedger) BookingPaymentTransaction(context.Context, uint) (*models.LedgerTransaction, error) {
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryLedger) BookingNetCents(context.Context, uint) (int64, error) { return 0, nil }

type memoryPublisher struct {
	events []string
}

func (m *memoryPublisher) Publish(_ context.Context, _ uint, event string, _ interface{}) error {
	m.events = append(m.events, event)
	return nil
}

type fakeProcessor struct {
	processor.Client
	cancelAtPeriodEndKeys []string
	cancelNowKeys         []string
}

func (f *fakeProcessor) CancelSubscriptionAtPeriodEnd(_ context.Context, id, key string) (*processor.SubscriptionState, error) {
	f.cancelAtPeriodEndKeys = append(f.cancelAtPeriodEndKeys, key)
	return &processor.SubscriptionState{ID: id, Status: models.SubscriptionStatusActive, CancelAtPeriodEnd: true}, nil
}

func (f *fakeProcessor) CancelSubscriptionNow(_ context.Context, id, key string) (*processor.SubscriptionState, error) {
	f.cancelNowKeys = append(f.cancelNowKeys, key)
	at := time.Now().UTC()
	return &processor.SubscriptionState{ID: id, Status: models.SubscriptionStatusCanceled, CanceledAt: &at}, nil
}

func subscriptionPayload(id, status string) *events.SubscriptionPayload {
	p := &events.SubscriptionPayload{
		ID:                 id,
		Customer:           "cus_100",
		Status:             status,
		CurrentPeriodStart: time.Now().Add(-time.Hour).Unix(),
		CurrentPeriodEnd:   time.Now().Add(30 * 24 * time.Hour).Unix(),
		Metadata:           map[string]string{"tenant_id": "7"},
	}
	p.Items.Data = []struct {
		Price struct {
			ID string `json:"id"`
		} `json:"price"`
	}{{}}
	p.Items.Data[0].Price.ID = "price_basic"
	return p
}

func newTestService() (*Service, *memoryRepo, *memoryLedger, *memoryPublisher, *fakeProcessor) {
	repo := newMemoryRepo()
	repo.plans["price_basic"] = &models.Plan{ID: 3, ExternalPriceID: "price_basic", IsActive: true}
	led := &memoryLedger{}
	pub := &memoryPublisher{}
	client := &fakeProcessor{}
	return NewService(repo, client, led, pub), repo, led, pub, client
}

func TestSubscriptionCreated(t *testing.T) {
	svc, repo, _, pub, _ := newTestService()

	err := svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive))
	require.NoError(t, err)

	stored := repo.subs["sub_1"]
	require.NotNil(t, stored)
	assert.Equal(t, uint(7), stored.TenantID)
	assert.Equal(t, uint(3), stored.PlanID)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	assert.Equal(t, "price_basic", stored.ExternalPriceID)
	assert.Equal(t, []string{"subscription.updated"}, pub.events)
}

func TestSubscriptionCreatedRejectsUnknownStatus(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	err := svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", "paused_weirdly"))
	assert.ErrorIs(t, err, ErrUnknownStatus)
	assert.Empty(t, repo.subs)
}

func TestSubscriptionCreatedRejectsUnknownPlan(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	delete(repo.plans, "price_basic")

	err := svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive))
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestSubscriptionCreatedIsIdempotent(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	payload := subscriptionPayload("sub_1", models.SubscriptionStatusActive)

	require.NoError(t, svc.SubscriptionCreated(context.Background(), payload))
	firstID := repo.subs["sub_1"].ID

	require.NoError(t, svc.SubscriptionCreated(context.Background(), payload))
	assert.Equal(t, firstID, repo.subs["sub_1"].ID)
	assert.Len(t, repo.subs, 1)
}

func TestSubscriptionUpdatedSelfHeals(t *testing.T) {
	svc, repo, _, _, _ := newTestService()

	err := svc.SubscriptionUpdated(context.Background(), subscriptionPayload("sub_missing", models.SubscriptionStatusActive))
	require.NoError(t, err)
	assert.NotNil(t, repo.subs["sub_missing"])
}

func TestSubscriptionUpdatedResolvesTenantFromCustomer(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	repo.subs["sub_old"] = &models.Subscription{
		ID: 1, TenantID: 42, ExternalSubscriptionID: "sub_old", ExternalCustomerID: "cus_100",
		Status: models.SubscriptionStatusCanceled,
	}
	repo.nextID = 2

	payload := subscriptionPayload("sub_new", models.SubscriptionStatusActive)
	payload.Metadata = nil

	require.NoError(t, svc.SubscriptionCreated(context.Background(), payload))
	assert.Equal(t, uint(42), repo.subs["sub_new"].TenantID)
}

func TestSubscriptionDeleted(t *testing.T) {
	svc, repo, _, pub, _ := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive)))
	pub.events = nil

	payload := subscriptionPayload("sub_1", models.SubscriptionStatusCanceled)
	payload.CanceledAt = time.Now().Unix()
	require.NoError(t, svc.SubscriptionDeleted(context.Background(), payload))

	stored := repo.subs["sub_1"]
	assert.Equal(t, models.SubscriptionStatusCanceled, stored.Status)
	assert.NotNil(t, stored.CanceledAt)
	assert.Equal(t, []string{"subscription.canceled"}, pub.events)
}

func TestSubscriptionDeletedUnknownIsNoop(t *testing.T) {
	svc, _, _, pub, _ := newTestService()
	err := svc.SubscriptionDeleted(context.Background(), subscriptionPayload("sub_ghost", models.SubscriptionStatusCanceled))
	assert.NoError(t, err)
	assert.Empty(t, pub.events)
}

func TestInvoicePaidRecoversPastDue(t *testing.T) {
	svc, repo, led, pub, _ := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusPastDue)))
	pub.events = nil

	err := svc.InvoicePaid(context.Background(), &events.InvoicePayload{
		ID:           "in_1",
		Subscription: "sub_1",
		AmountPaid:   2900,
	})
	require.NoError(t, err)

	assert.Equal(t, models.SubscriptionStatusActive, repo.subs["sub_1"].Status)
	require.Len(t, led.entries, 1)
	assert.Equal(t, models.LedgerTypeSubscriptionPayment, led.entries[0].Type)
	assert.Equal(t, int64(2900), led.entries[0].GrossCents)
	assert.Equal(t, "in_1", led.entries[0].ExternalReference)
	assert.Equal(t, []string{"subscription.updated"}, pub.events)
}

func TestInvoicePaidOnActiveOnlyLedgers(t *testing.T) {
	svc, repo, led, pub, _ := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive)))
	pub.events = nil

	require.NoError(t, svc.InvoicePaid(context.Background(), &events.InvoicePayload{
		ID: "in_2", Subscription: "sub_1", AmountPaid: 2900,
	}))

	assert.Equal(t, models.SubscriptionStatusActive, repo.subs["sub_1"].Status)
	assert.Len(t, led.entries, 1)
	assert.Empty(t, pub.events)
}

func TestInvoicePaidIsIdempotent(t *testing.T) {
	svc, repo, led, _, _ := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusPastDue)))

	payload := &events.InvoicePayload{ID: "in_1", Subscription: "sub_1", AmountPaid: 2900}
	require.NoError(t, svc.InvoicePaid(context.Background(), payload))
	require.NoError(t, svc.InvoicePaid(context.Background(), payload))

	assert.Len(t, led.entries, 1, "re-delivered invoice must not book a second ledger row")
	assert.Equal(t, models.SubscriptionStatusActive, repo.subs["sub_1"].Status)

	// A different invoice for the same subscription still books.
	require.NoError(t, svc.InvoicePaid(context.Background(), &events.InvoicePayload{
		ID: "in_2", Subscription: "sub_1", AmountPaid: 2900,
	}))
	assert.Len(t, led.entries, 2)
}

func TestInvoicePaymentFailed(t *testing.T) {
	svc, repo, _, _, _ := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive)))

	require.NoError(t, svc.InvoicePaymentFailed(context.Background(), &events.InvoicePayload{
		ID: "in_3", Subscription: "sub_1",
	}))
	assert.Equal(t, models.SubscriptionStatusPastDue, repo.subs["sub_1"].Status)
}

func TestCancelAtPeriodEnd(t *testing.T) {
	svc, repo, _, _, client := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive)))

	sub, err := svc.Cancel(context.Background(), 7, true)
	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	assert.Equal(t, models.SubscriptionStatusActive, repo.subs["sub_1"].Status)
	assert.Equal(t, []string{"subscription_sub_1_cancel_pe_v1"}, client.cancelAtPeriodEndKeys)
}

func TestCancelNow(t *testing.T) {
	svc, repo, _, pub, client := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusActive)))
	pub.events = nil

	sub, err := svc.Cancel(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
	assert.NotNil(t, repo.subs["sub_1"].CanceledAt)
	assert.Equal(t, []string{"subscription_sub_1_cancel_now_v1"}, client.cancelNowKeys)
	assert.Equal(t, []string{"subscription.canceled"}, pub.events)
}

func TestCancelAlreadyCanceledSkipsProcessor(t *testing.T) {
	svc, _, _, _, client := newTestService()
	require.NoError(t, svc.SubscriptionCreated(context.Background(), subscriptionPayload("sub_1", models.SubscriptionStatusCanceled)))

	sub, err := svc.Cancel(context.Background(), 7, false)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
	assert.Empty(t, client.cancelNowKeys)
}

func TestCancelWithoutSubscription(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	_, err := svc.Cancel(context.Background(), 99, false)
	assert.ErrorIs(t, err, ErrNoSubscription)
}
