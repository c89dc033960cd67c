package services

import "sync"

// UploadMetrics tracks the outcome of an upload run
type UploadMetrics struct {
	Succeeded int
	Failed    int
	mu        sync.Mutex
}

// AddSuccess increments the succeeded count
func (m *UploadMetrics) AddSuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Succeeded++
}

// AddFailure increments the failed count
func (m *UploadMetrics) AddFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Failed++
}

// Total returns the number of records attempted
func (m *UploadMetrics) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Succeeded + m.Failed
}

// Snapshot returns the succeeded and failed counts
func (m *UploadMetrics) Snapshot() (succeeded, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Succeeded, m.Failed
}
