package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats aggregates the live metrics exposed on /stats.
type Stats struct {
	// --- SESSION METRICS ---
	ActiveSessions     int    `json:"active_sessions"`
	ActiveParticipants int    `json:"active_participants"`
	Joins              uint64 `json:"joins"`
	Leaves             uint64 `json:"leaves"`

	// --- RELAY METRICS ---
	ChangesRelayed uint64 `json:"changes_relayed"`
	CursorsRelayed uint64 `json:"cursors_relayed"`
	EventsDropped  uint64 `json:"events_dropped"`

	// --- PERSISTENCE METRICS ---
	SavesOK     uint64 `json:"saves_ok"`
	SavesFailed uint64 `json:"saves_failed"`

	// --- SYSTEM METRICS ---
	AllocMemMb uint64  `json:"alloc_mem_mb"`
	RssMemMb   uint64  `json:"rss_mem_mb"`
	CPUPercent float64 `json:"cpu_percent"`
	NumGC      uint32  `json:"num_gc"`
	Uptime     string  `json:"uptime"`
}

// Monitor collects realtime counters from the hub and the save path.
// All counters are atomic; Snapshot is safe from any goroutine.
type Monitor struct {
	log     *slog.Logger
	started time.Time
	proc    *process.Process

	joins          uint64
	leaves         uint64
	changesRelayed uint64
	cursorsRelayed uint64
	eventsDropped  uint64
	savesOK        uint64
	savesFailed    uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	// Process handle is optional: metrics degrade gracefully when the
	// platform refuses process introspection.
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process metrics unavailable", "error", err)
		proc = nil
	}
	return &Monitor{log: log, started: time.Now(), proc: proc}
}

func (m *Monitor) IncrJoins()       { atomic.AddUint64(&m.joins, 1) }
func (m *Monitor) IncrLeaves()      { atomic.AddUint64(&m.leaves, 1) }
func (m *Monitor) IncrChanges()     { atomic.AddUint64(&m.changesRelayed, 1) }
func (m *Monitor) IncrCursors()     { atomic.AddUint64(&m.cursorsRelayed, 1) }
func (m *Monitor) IncrDropped()     { atomic.AddUint64(&m.eventsDropped, 1) }
func (m *Monitor) IncrSavesOK()     { atomic.AddUint64(&m.savesOK, 1) }
func (m *Monitor) IncrSavesFailed() { atomic.AddUint64(&m.savesFailed, 1) }

// Snapshot merges the counters with registry occupancy and system metrics.
func (m *Monitor) Snapshot(sessions, participants int) Stats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	stats := Stats{
		ActiveSessions:     sessions,
		ActiveParticipants: participants,
		Joins:              atomic.LoadUint64(&m.joins),
		Leaves:             atomic.LoadUint64(&m.leaves),
		ChangesRelayed:     atomic.LoadUint64(&m.changesRelayed),
		CursorsRelayed:     atomic.LoadUint64(&m.cursorsRelayed),
		EventsDropped:      atomic.LoadUint64(&m.eventsDropped),
		SavesOK:            atomic.LoadUint64(&m.savesOK),
		SavesFailed:        atomic.LoadUint64(&m.savesFailed),
		AllocMemMb:         memStats.Alloc / 1024 / 1024,
		NumGC:              memStats.NumGC,
		Uptime:             time.Since(m.started).Round(time.Second).String(),
	}

	if m.proc != nil {
		if memInfo, err := m.proc.MemoryInfo(); err == nil {
			stats.RssMemMb = memInfo.RSS / 1024 / 1024
		}
		if cpu, err := m.proc.CPUPercent(); err == nil {
			stats.CPUPercent = cpu
		}
	}
	return stats
}
