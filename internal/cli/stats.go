package cli

import (
	"errors"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/kbukum/httpdispatch/dispatcher"
)

const (
	outcomeOK = "ok"

	// Latencies are recorded in microseconds between 1µs and one minute.
	maxLatencyMicros = 60_000_000
)

// latencyStats aggregates bench outcomes. It is safe for concurrent use.
type latencyStats struct {
	mu       sync.Mutex
	hist     *hdrhistogram.Histogram
	outcomes map[string]int
	started  time.Time
	elapsed  time.Duration
}

func newLatencyStats() *latencyStats {
	return &latencyStats{
		hist:     hdrhistogram.New(1, maxLatencyMicros, 3),
		outcomes: make(map[string]int),
	}
}

func (s *latencyStats) start() {
	s.started = time.Now()
}

func (s *latencyStats) stop() {
	s.elapsed = time.Since(s.started)
}

// record adds one dispatch. Failures are counted by error kind.
func (s *latencyStats) record(d time.Duration, err error) {
	us := min(max(d.Microseconds(), 1), maxLatencyMicros)

	outcome := outcomeOK
	if err != nil {
		outcome = kindName(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.hist.RecordValue(us)
	s.outcomes[outcome]++
}

func kindName(err error) string {
	var de *dispatcher.Error
	if errors.As(err, &de) {
		return de.Kind.String()
	}
	return "error"
}

// benchReport summarizes a bench run.
type benchReport struct {
	Requests  int            `json:"requests" yaml:"requests"`
	Succeeded int            `json:"succeeded" yaml:"succeeded"`
	Failed    int            `json:"failed" yaml:"failed"`
	Outcomes  map[string]int `json:"outcomes" yaml:"outcomes"`
	RPS       float64        `json:"rps" yaml:"rps"`
	MeanMS    float64        `json:"mean_ms" yaml:"mean_ms"`
	P50MS     float64        `json:"p50_ms" yaml:"p50_ms"`
	P90MS     float64        `json:"p90_ms" yaml:"p90_ms"`
	P99MS     float64        `json:"p99_ms" yaml:"p99_ms"`
	MaxMS     float64        `json:"max_ms" yaml:"max_ms"`
}

func (s *latencyStats) report() benchReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := benchReport{Outcomes: make(map[string]int, len(s.outcomes))}
	for name, n := range s.outcomes {
		r.Outcomes[name] = n
		r.Requests += n
	}
	r.Succeeded = s.outcomes[outcomeOK]
	r.Failed = r.Requests - r.Succeeded

	if s.elapsed > 0 {
		r.RPS = float64(r.Requests) / s.elapsed.Seconds()
	}
	if r.Requests > 0 {
		r.MeanMS = s.hist.Mean() / 1000
		r.P50MS = microsToMillis(s.hist.ValueAtQuantile(50))
		r.P90MS = microsToMillis(s.hist.ValueAtQuantile(90))
		r.P99MS = microsToMillis(s.hist.ValueAtQuantile(99))
		r.MaxMS = microsToMillis(s.hist.Max())
	}
	return r
}

func microsToMillis(us int64) float64 {
	return float64(us) / 1000
}
