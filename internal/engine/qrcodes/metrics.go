package qrcodes

import "sync/atomic"

// Metrics counts workflow outcomes since process start. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	generated         atomic.Int64
	cached            atomic.Int64
	failed            atomic.Int64
	rejected          atomic.Int64
	purges            atomic.Int64
	filesPurged       atomic.Int64
	purgeFileFailures atomic.Int64
}

type MetricsSnapshot struct {
	Generated         int64
	Cached            int64
	Failed            int64
	Rejected          int64
	Purges            int64
	FilesPurged       int64
	PurgeFileFailures int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		Generated:         m.generated.Load(),
		Cached:            m.cached.Load(),
		Failed:            m.failed.Load(),
		Rejected:          m.rejected.Load(),
		Purges:            m.purges.Load(),
		FilesPurged:       m.filesPurged.Load(),
		PurgeFileFailures: m.purgeFileFailures.Load(),
	}
}

func (m *Metrics) incGenerated() {
	if m != nil {
		m.generated.Add(1)
	}
}

func (m *Metrics) incCached() {
	if m != nil {
		m.cached.Add(1)
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.failed.Add(1)
	}
}

func (m *Metrics) incRejected() {
	if m != nil {
		m.rejected.Add(1)
	}
}

func (m *Metrics) recordPurge(removed, failed int) {
	if m == nil {
		return
	}
	m.purges.Add(1)
	m.filesPurged.Add(int64(removed))
	m.purgeFileFailures.Add(int64(failed))
}
