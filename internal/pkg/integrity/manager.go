package integrity

import (
	"context"
	"sync"
	"time"

	"github.com/benzaid32/the-assist-app-sub002/app/models"
	"github.com/gofiber/fiber/v2/log"
)

// Manager runs the integrity auditor on a fixed schedule in the background.
type Manager struct {
	auditor  *Auditor
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewManager creates a scheduler for the auditor.
func NewManager(auditor *Auditor, interval time.Duration) *Manager {
	return &Manager{
		auditor:  auditor,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the scheduled runs. Safe to call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so the manager can be
	// restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Infof("[Integrity Manager] Starting scheduled audits every %s", m.interval)

	m.wg.Add(1)
	go m.worker()
}

// Stop halts scheduled runs and waits for an in-flight one to finish.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	close(m.stopCh)
	m.wg.Wait()
	m.running = false
	log.Info("[Integrity Manager] Stopped")
}

func (m *Manager) worker() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := m.auditor.Run(context.Background(), models.IntegrityTriggerScheduled, true); err != nil {
				log.Errorf("[Integrity Manager] scheduled run failed: %v", err)
			}
		case <-m.stopCh:
			return
		}
	}
}
