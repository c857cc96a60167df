package generator

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Stage names recorded by Generate.
const (
	StagePlan     = "plan"
	StageTree     = "tree"
	StageRender   = "render"
	StageSchema   = "schema"
	StageRules    = "rules"
	StageReadback = "readback"
	StageWrite    = "write"
	StageTotal    = "total"
)

// TimingEvent is one JSONL line of the timing log.
type TimingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	Width      int     `json:"width,omitempty"`
	Status     string  `json:"status,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

// Timing appends stage events to a JSONL file. A nil or disabled Timing
// records nothing. It is shared by every width of a batch.
type Timing struct {
	enabled bool
	start   time.Time
	mu      sync.Mutex
	events  []TimingEvent
	file    *os.File
	enc     *json.Encoder
	err     error
}

// NewTiming opens path for appending, creating it if missing. An empty path
// gives a disabled recorder. Open errors are kept and reported by Err.
func NewTiming(start time.Time, path string) *Timing {
	tr := &Timing{start: start}
	if path == "" {
		return tr
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *Timing) Enabled() bool {
	return tr != nil && tr.enabled
}

func (tr *Timing) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

// Events returns a copy of the recorded events.
func (tr *Timing) Events() []TimingEvent {
	if tr == nil {
		return nil
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]TimingEvent(nil), tr.events...)
}

func (tr *Timing) Close() error {
	if tr == nil || tr.file == nil {
		return nil
	}
	return tr.file.Close()
}

// RecordStage logs one stage of the generation for width n.
func (tr *Timing) RecordStage(phase string, n int, start time.Time, duration time.Duration, status string) {
	if tr == nil || !tr.enabled {
		return
	}
	startMS := durationToMS(start.Sub(tr.start))
	durationMS := durationToMS(duration)
	event := TimingEvent{
		Phase:      phase,
		Kind:       "stage",
		Width:      n,
		Status:     status,
		StartMS:    startMS,
		DurationMS: durationMS,
		EndMS:      startMS + durationMS,
	}
	tr.mu.Lock()
	tr.events = append(tr.events, event)
	if tr.enc != nil {
		_ = tr.enc.Encode(event)
	}
	tr.mu.Unlock()
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}
