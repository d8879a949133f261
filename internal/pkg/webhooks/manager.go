package webhooks

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	defaultSweepInterval = 60 * time.Second
	sweepBatchSize       = 100
)

// Manager runs the periodic retry sweep for due deliveries.
type Manager struct {
	repo        Repository
	sender      *Sender
	interval    time.Duration
	sweepTicker *time.Ticker
	stopCh      chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	running     bool
}

// NewManager creates a sweep manager. A zero interval selects the default.
func NewManager(repo Repository, sender *Sender, interval time.Duration) *Manager {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Manager{
		repo:     repo,
		sender:   sender,
		interval: interval,
	}
}

// Start launches the background sweep worker.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.stopCh = make(chan struct{})
	m.running = true
	m.sweepTicker = time.NewTicker(m.interval)
	m.wg.Add(1)
	go m.sweepWorker()

	log.Infof("[Webhooks] Started delivery sweep (interval: %s)", m.interval)
}

// Stop stops the sweep worker and waits for it to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	m.sweepTicker.Stop()
	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	log.Info("[Webhooks] Delivery sweep stopped")
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[Webhooks] Sweep worker stopping")
			return
		case <-m.sweepTicker.C:
			if err := m.RunSweep(context.Background()); err != nil {
				log.Errorf("[Webhooks] Sweep failed: %v", err)
			}
		}
	}
}

// RunSweep attempts every due delivery once. It is safe to run concurrently
// with itself and with the immediate dispatch path: the per-delivery attempt
// claim makes overlapping sweeps no-op on each other's work.
func (m *Manager) RunSweep(ctx context.Context) error {
	due, err := m.repo.DueDeliveries(time.Now().UTC(), sweepBatchSize)
	if err != nil {
		return err
	}
	for i := range due {
		if err := m.sender.Attempt(ctx, &due[i]); err != nil {
			log.Warnf("[Webhooks] Sweep attempt for %s: %v", due[i].DeliveryID, err)
		}
	}
	return nil
}
