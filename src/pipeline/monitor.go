package pipeline

import (
	"log"
	"time"

	"github.com/cheggaaa/pb/v3"
)

const (
	firstReport = time.Second
	maxReport   = time.Minute
	barRefresh  = 500 * time.Millisecond
)

// Progress is anything that counts processed items
type Progress interface {
	Processed() int64
}

// Monitor logs the progress of a load, reporting less often as it goes on (1s doubling up to 60s)
type Monitor struct {
	progress Progress
	total    int64
	bar      *pb.ProgressBar
	showBar  bool
	started  time.Time
	stop     chan struct{}
	done     chan struct{}
}

// NewMonitor returns a Monitor for p, total is the expected count or 0 if unknown
func NewMonitor(p Progress, total int64, showBar bool) *Monitor {
	return &Monitor{
		progress: p,
		total:    total,
		showBar:  showBar && total > 0,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the monitor in its own goroutine
func (m *Monitor) Start() {
	m.started = time.Now()
	if m.showBar {
		m.bar = pb.Full.Start64(m.total)
	}
	go m.loop()
}

// Stop ends the monitor and waits for it to exit
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
	if m.bar != nil {
		m.bar.SetCurrent(m.progress.Processed())
		m.bar.Finish()
	}
}

func (m *Monitor) loop() {
	defer close(m.done)
	interval := firstReport
	report := time.NewTimer(interval)
	defer report.Stop()
	var refresh <-chan time.Time
	if m.bar != nil {
		ticker := time.NewTicker(barRefresh)
		defer ticker.Stop()
		refresh = ticker.C
	}
	for {
		select {
		case <-m.stop:
			return
		case <-refresh:
			m.bar.SetCurrent(m.progress.Processed())
		case <-report.C:
			m.report()
			interval *= 2
			if interval > maxReport {
				interval = maxReport
			}
			report.Reset(interval)
		}
	}
}

// report logs the rate and, when the total is known, the ETA
func (m *Monitor) report() {
	processed := m.progress.Processed()
	elapsed := time.Since(m.started)
	rate := float64(processed) / elapsed.Seconds()
	if m.total <= 0 || rate == 0 {
		log.Printf("\tprocessed %d sequences in %v (%.0f/s)", processed, elapsed.Round(time.Second), rate)
		return
	}
	remaining := time.Duration(float64(m.total-processed) / rate * float64(time.Second))
	if remaining < 0 {
		remaining = 0
	}
	log.Printf("\tprocessed %d/%d sequences (%.1f%%) in %v, ETA %v", processed, m.total, 100*float64(processed)/float64(m.total), elapsed.Round(time.Second), remaining.Round(time.Second))
}
