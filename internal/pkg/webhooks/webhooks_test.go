package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rentbase/rentbase/app/models"
	"github.com/rentbase/rentbase/internal/pkg/signing"
)

type memoryRepo struct {
	mu         sync.Mutex
	endpoints  map[uint]*models.WebhookEndpoint
	deliveries map[uint]*models.WebhookDelivery
	nextID     uint
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		endpoints:  make(map[uint]*models.WebhookEndpoint),
		deliveries: make(map[uint]*models.WebhookDelivery),
		nextID:     1,
	}
}

func (m *memoryRepo) CreateEndpoint(e *models.WebhookEndpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = m.nextID
	m.nextID++
	m.endpoints[e.ID] = e
	return nil
}

func (m *memoryRepo) GetEndpoint(id, tenantID uint) (*models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.endpoints[id]; ok && e.TenantID == tenantID {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) GetEndpointByID(id uint) (*models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.endpoints[id]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) ListEndpoints(tenantID uint) ([]models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WebhookEndpoint
	for _, e := range m.endpoints {
		if e.TenantID == tenantID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memoryRepo) ActiveEndpointsForTenant(tenantID uint) ([]models.WebhookEndpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WebhookEndpoint
	for _, e := range m.endpoints {
		if e.TenantID == tenantID && e.IsActive {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memoryRepo) DeleteEndpoint(id, tenantID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.endpoints, id)
	return nil
}

func (m *memoryRepo) UpdateEndpointFields(id uint, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.endpoints[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["failure_count"].(int); ok {
		e.FailureCount = v
	}
	if v, ok := fields["is_active"].(bool); ok {
		e.IsActive = v
	}
	if v, ok := fields["last_delivery_status"].(string); ok {
		e.LastDeliveryStatus = v
	}
	return nil
}

func (m *memoryRepo) CreateDelivery(d *models.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d.ID = m.nextID
	m.nextID++
	stored := *d
	m.deliveries[d.ID] = &stored
	return nil
}

func (m *memoryRepo) GetDelivery(id, tenantID uint) (*models.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[id]; ok && d.TenantID == tenantID {
		return d, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memoryRepo) ListDeliveries(tenantID uint, limit int) ([]models.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WebhookDelivery
	for _, d := range m.deliveries {
		if d.TenantID == tenantID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryRepo) DueDeliveries(now time.Time, limit int) ([]models.WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.WebhookDelivery
	for _, d := range m.deliveries {
		if d.IsDue(now) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memoryRepo) ClaimDelivery(id uint, expectedAttempts int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if d.Attempts != expectedAttempts {
		return false, nil
	}
	if d.Status != models.DeliveryStatusPending && d.Status != models.DeliveryStatusRetrying {
		return false, nil
	}
	d.Attempts++
	return true, nil
}

func (m *memoryRepo) UpdateDeliveryFields(id uint, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := fields["status"].(string); ok {
		d.Status = v
	}
	if v, ok := fields["response_status"].(int); ok {
		d.ResponseStatus = v
	}
	if v, ok := fields["response_body"].(string); ok {
		d.ResponseBody = v
	}
	if v, ok := fields["last_error"].(string); ok {
		d.LastError = v
	}
	switch v := fields["next_retry_at"].(type) {
	case *time.Time:
		d.NextRetryAt = v
	case nil:
		if _, present := fields["next_retry_at"]; present {
			d.NextRetryAt = nil
		}
	}
	if v, ok := fields["delivered_at"].(*time.Time); ok {
		d.DeliveredAt = v
	}
	if v, ok := fields["max_attempts"].(int); ok {
		d.MaxAttempts = v
	}
	return nil
}

type recordingAlerter struct {
	mu       sync.Mutex
	disabled []uint
}

func (a *recordingAlerter) EndpointDisabled(_ context.Context, endpoint *models.WebhookEndpoint) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.disabled = append(a.disabled, endpoint.ID)
}

func newEndpoint(t *testing.T, repo *memoryRepo, url string, events ...string) *models.WebhookEndpoint {
	t.Helper()
	e := &models.WebhookEndpoint{
		TenantID: 4,
		URL:      url,
		Secret:   "rbsec_test",
		IsActive: true,
	}
	if len(events) == 0 {
		events = []string{"*"}
	}
	require.NoError(t, e.SetEvents(events))
	require.NoError(t, repo.CreateEndpoint(e))
	return e
}

func pendingDelivery(t *testing.T, repo *memoryRepo, endpoint *models.WebhookEndpoint) *models.WebhookDelivery {
	t.Helper()
	d := &models.WebhookDelivery{
		DeliveryID:  "whd_test1",
		EndpointID:  endpoint.ID,
		TenantID:    endpoint.TenantID,
		Event:       EventPaymentSucceeded,
		Payload:     `{"id":"whd_test1","event":"payment.succeeded","data":{}}`,
		Status:      models.DeliveryStatusPending,
		MaxAttempts: models.DefaultDeliveryMaxAttempts,
	}
	require.NoError(t, repo.CreateDelivery(d))
	return d
}

func TestNextRetryDelayLadder(t *testing.T) {
	expected := []time.Duration{
		time.Minute, 5 * time.Minute, 15 * time.Minute, time.Hour, 4 * time.Hour,
	}
	for attempt, want := range expected {
		assert.Equal(t, want, NextRetryDelay(attempt), "attempt %d", attempt)
	}
	// Clamped beyond the ladder, and on garbage input.
	assert.Equal(t, 4*time.Hour, NextRetryDelay(10))
	assert.Equal(t, time.Minute, NextRetryDelay(-1))
}

func TestSenderDeliversAndSigns(t *testing.T) {
	var gotSignature, gotEvent, gotDelivery string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSignature = r.Header.Get(HeaderSignature)
		gotEvent = r.Header.Get(HeaderEvent)
		gotDelivery = r.Header.Get(HeaderDelivery)
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	delivery := pendingDelivery(t, repo, endpoint)
	sender := NewSender(repo, nil)

	require.NoError(t, sender.Attempt(context.Background(), delivery))

	assert.Equal(t, models.DeliveryStatusDelivered, repo.deliveries[delivery.ID].Status)
	assert.Equal(t, EventPaymentSucceeded, gotEvent)
	assert.Equal(t, "whd_test1", gotDelivery)
	assert.NoError(t, signing.Verify(gotBody, gotSignature, endpoint.Secret, time.Minute, time.Now()))
	assert.Equal(t, 0, repo.endpoints[endpoint.ID].FailureCount)
}

func TestSenderSchedulesRetryOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	delivery := pendingDelivery(t, repo, endpoint)
	sender := NewSender(repo, nil)
	now := time.Now().UTC()
	sender.now = func() time.Time { return now }

	require.NoError(t, sender.Attempt(context.Background(), delivery))

	stored := repo.deliveries[delivery.ID]
	assert.Equal(t, models.DeliveryStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	require.NotNil(t, stored.NextRetryAt)
	assert.Equal(t, now.Add(time.Minute), *stored.NextRetryAt)
	assert.Equal(t, 1, repo.endpoints[endpoint.ID].FailureCount)
}

func TestSenderMarksFailedAtMaxAttempts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	delivery := pendingDelivery(t, repo, endpoint)
	delivery.Attempts = models.DefaultDeliveryMaxAttempts - 1
	repo.deliveries[delivery.ID].Attempts = delivery.Attempts
	repo.deliveries[delivery.ID].Status = models.DeliveryStatusRetrying
	delivery.Status = models.DeliveryStatusRetrying
	sender := NewSender(repo, nil)

	require.NoError(t, sender.Attempt(context.Background(), delivery))

	stored := repo.deliveries[delivery.ID]
	assert.Equal(t, models.DeliveryStatusFailed, stored.Status)
	assert.Equal(t, models.DefaultDeliveryMaxAttempts, stored.Attempts)
	assert.Nil(t, stored.NextRetryAt)
}

func TestSenderTruncatesResponseBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(strings.Repeat("x", 10000)))
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	delivery := pendingDelivery(t, repo, endpoint)
	sender := NewSender(repo, nil)

	require.NoError(t, sender.Attempt(context.Background(), delivery))
	assert.Len(t, repo.deliveries[delivery.ID].ResponseBody, responseBodyMaxBytes)
}

func TestSenderClaimLosesRace(t *testing.T) {
	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, "http://127.0.0.1:1")
	delivery := pendingDelivery(t, repo, endpoint)
	// Another worker already advanced the stored attempt counter.
	repo.deliveries[delivery.ID].Attempts = 1
	sender := NewSender(repo, nil)

	require.NoError(t, sender.Attempt(context.Background(), delivery))
	// The stale caller did not record anything.
	assert.Equal(t, models.DeliveryStatusPending, repo.deliveries[delivery.ID].Status)
	assert.Equal(t, 1, repo.deliveries[delivery.ID].Attempts)
}

func TestSenderDisablesEndpointAfterThreshold(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	repo.endpoints[endpoint.ID].FailureCount = disableFailureThreshold - 1
	delivery := pendingDelivery(t, repo, endpoint)
	alerter := &recordingAlerter{}
	sender := NewSender(repo, alerter)

	require.NoError(t, sender.Attempt(context.Background(), delivery))

	assert.False(t, repo.endpoints[endpoint.ID].IsActive)
	assert.Equal(t, []uint{endpoint.ID}, alerter.disabled)
}

func TestDispatcherFansOutToSubscribers(t *testing.T) {
	var mu sync.Mutex
	received := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		received++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	newEndpoint(t, repo, server.URL, EventPaymentSucceeded)
	newEndpoint(t, repo, server.URL, "*")
	newEndpoint(t, repo, server.URL, EventPaymentRefunded) // not subscribed
	inactive := newEndpoint(t, repo, server.URL, "*")
	repo.endpoints[inactive.ID].IsActive = false

	dispatcher := NewDispatcher(repo, NewSender(repo, nil))
	require.NoError(t, dispatcher.Publish(context.Background(), 4, EventPaymentSucceeded,
		map[string]interface{}{"payment_id": 1}))

	// Two delivery rows: the matching subscriber and the wildcard.
	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		delivered := 0
		for _, d := range repo.deliveries {
			if d.Status == models.DeliveryStatusDelivered {
				delivered++
			}
		}
		return delivered == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestDispatcherPayloadShape(t *testing.T) {
	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, "http://127.0.0.1:1")
	dispatcher := NewDispatcher(repo, NewSender(repo, nil))

	delivery, err := dispatcher.enqueue(endpoint, EventPaymentSucceeded,
		map[string]interface{}{"payment_id": 1}, models.DefaultDeliveryMaxAttempts)
	require.NoError(t, err)

	var body deliveryBody
	require.NoError(t, json.Unmarshal([]byte(delivery.Payload), &body))
	assert.Equal(t, delivery.DeliveryID, body.ID)
	assert.True(t, strings.HasPrefix(body.ID, "whd_"))
	assert.Equal(t, EventPaymentSucceeded, body.Event)
	assert.NotZero(t, body.Created)
}

func TestRetryNowRaisesExhaustedCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	delivery := pendingDelivery(t, repo, endpoint)
	delivery.Status = models.DeliveryStatusFailed
	delivery.Attempts = models.DefaultDeliveryMaxAttempts
	stored := repo.deliveries[delivery.ID]
	stored.Status = delivery.Status
	stored.Attempts = delivery.Attempts

	dispatcher := NewDispatcher(repo, NewSender(repo, nil))
	require.NoError(t, dispatcher.RetryNow(context.Background(), delivery))

	assert.Equal(t, models.DeliveryStatusDelivered, repo.deliveries[delivery.ID].Status)
	assert.Equal(t, models.DefaultDeliveryMaxAttempts+1, repo.deliveries[delivery.ID].MaxAttempts)
}

func TestRetryNowRejectsDelivered(t *testing.T) {
	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, "http://127.0.0.1:1")
	delivery := pendingDelivery(t, repo, endpoint)
	delivery.Status = models.DeliveryStatusDelivered

	dispatcher := NewDispatcher(repo, NewSender(repo, nil))
	assert.Error(t, dispatcher.RetryNow(context.Background(), delivery))
}

func TestRunSweepAttemptsDueDeliveries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	repo := newMemoryRepo()
	endpoint := newEndpoint(t, repo, server.URL)
	due := pendingDelivery(t, repo, endpoint)

	notYet := &models.WebhookDelivery{
		DeliveryID: "whd_future", EndpointID: endpoint.ID, TenantID: endpoint.TenantID,
		Event: EventPaymentSucceeded, Payload: "{}",
		Status: models.DeliveryStatusRetrying, MaxAttempts: models.DefaultDeliveryMaxAttempts,
	}
	future := time.Now().Add(time.Hour)
	notYet.NextRetryAt = &future
	require.NoError(t, repo.CreateDelivery(notYet))

	manager := NewManager(repo, NewSender(repo, nil), time.Minute)
	require.NoError(t, manager.RunSweep(context.Background()))

	assert.Equal(t, models.DeliveryStatusDelivered, repo.deliveries[due.ID].Status)
	assert.Equal(t, models.DeliveryStatusRetrying, repo.deliveries[notYet.ID].Status)
	assert.Equal(t, 0, repo.deliveries[notYet.ID].Attempts)
}

func TestGenerateSecretPrefix(t *testing.T) {
	secret, err := GenerateSecret()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(secret, "rbsec_"))
	other, err := GenerateSecret()
	require.NoError(t, err)
	assert.NotEqual(t, secret, other)
}
