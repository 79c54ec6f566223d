package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"xscraper/pkg/models"
	"xscraper/pkg/storage"
)

// RunMetadata describes one scrape run. It is written next to the CSV.
type RunMetadata struct {
	RunID string `json:"run_id"`

	Search models.SearchSpec `json:"search"`
	URL    string            `json:"url"`
	Target int               `json:"target"`

	// Counts
	Collected  int `json:"collected"`
	Written    int `json:"written"`
	Dropped    int `json:"dropped"`
	OutOfRange int `json:"out_of_range"`
	Passes     int `json:"passes"`
	Stalls     int `json:"stalls"`
	LongPauses int `json:"long_pauses"`

	// Outcome
	EngineState string `json:"engine_state"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
	Account     string `json:"account,omitempty"`
	Proxy       string `json:"proxy,omitempty"`
	Resumed     bool   `json:"resumed,omitempty"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	OutputFile string        `json:"output_file,omitempty"`
}

// NewRun starts metadata for a run with a fresh identifier.
func NewRun(spec models.SearchSpec, target int) *RunMetadata {
	return &RunMetadata{
		RunID:     uuid.NewString(),
		Search:    spec,
		Target:    target,
		StartedAt: time.Now(),
	}
}

// Finish stamps the end time and duration.
func (m *RunMetadata) Finish(outcome string, err error) {
	m.FinishedAt = time.Now()
	m.Duration = m.FinishedAt.Sub(m.StartedAt)
	m.Outcome = outcome
	if err != nil {
		m.Error = err.Error()
	}
}

// Path returns the sidecar file for a CSV.
func Path(csvPath string) string {
	return csvPath + ".json"
}

// Save writes the metadata beside csvPath.
func (m *RunMetadata) Save(csvPath string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := storage.WriteFileAtomic(Path(csvPath), data, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}
	return nil
}

// Load reads the metadata written for csvPath.
func Load(csvPath string) (*RunMetadata, error) {
	data, err := os.ReadFile(Path(csvPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	return &meta, nil
}

// Exists checks if metadata was written for csvPath.
func Exists(csvPath string) bool {
	_, err := os.Stat(Path(csvPath))
	return err == nil
}

// Summary is a one-line description for terminal output.
func (m *RunMetadata) Summary() string {
	return fmt.Sprintf("%s: %d/%d collected, %d written, %d dropped in %s (%s)",
		m.Outcome, m.Collected, m.Target, m.Written, m.Dropped+m.OutOfRange,
		m.Duration.Round(time.Second), m.RunID[:8])
}
