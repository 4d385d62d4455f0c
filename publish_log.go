package auction

import "sync"

// PublishLog is the event sink of an auctioneer.
//
// IMPORTANT: Implementations must either:
//  1. Process logs synchronously before returning, OR
//  2. Clone the AuctionLog data before returning
//
// The auctioneer recycles AuctionLog objects to a sync.Pool after Publish
// returns, so any asynchronous processing must work with cloned data.
type PublishLog interface {
	Publish(...*AuctionLog)
}

// MemoryPublishLog stores logs in memory, useful for testing and replay.
type MemoryPublishLog struct {
	mu   sync.RWMutex
	logs []*AuctionLog
}

// NewMemoryPublishLog creates a new MemoryPublishLog.
func NewMemoryPublishLog() *MemoryPublishLog {
	return &MemoryPublishLog{
		logs: make([]*AuctionLog, 0),
	}
}

// Publish appends copies of logs to the in-memory slice.
func (m *MemoryPublishLog) Publish(logs ...*AuctionLog) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, log := range logs {
		cpy := new(AuctionLog)
		*cpy = *log
		m.logs = append(m.logs, cpy)
	}
}

// Count returns the number of logs stored.
func (m *MemoryPublishLog) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.logs)
}

// Get returns the log at the specified index.
func (m *MemoryPublishLog) Get(index int) *AuctionLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.logs[index]
}

// Logs returns a copy of all logs stored.
func (m *MemoryPublishLog) Logs() []*AuctionLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	logs := make([]*AuctionLog, len(m.logs))
	copy(logs, m.logs)
	return logs
}

// Filter returns the stored logs of the given type.
func (m *MemoryPublishLog) Filter(typ LogType) []*AuctionLog {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var logs []*AuctionLog
	for _, log := range m.logs {
		if log.Type == typ {
			logs = append(logs, log)
		}
	}
	return logs
}

// Reset drops every stored log.
func (m *MemoryPublishLog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = m.logs[:0]
}

// DiscardPublishLog discards all logs, useful for benchmarking.
type DiscardPublishLog struct {
}

// NewDiscardPublishLog creates a new DiscardPublishLog.
func NewDiscardPublishLog() *DiscardPublishLog {
	return &DiscardPublishLog{}
}

// Publish does nothing.
func (p *DiscardPublishLog) Publish(logs ...*AuctionLog) {

}
