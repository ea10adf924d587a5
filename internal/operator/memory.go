package operator

import (
	"encoding/json"
	"log/slog"
	"os"
)

const maxRecords = 50

// CycleRecord captures what happened in a single operator cycle.
type CycleRecord struct {
	RunID     string  `json:"run_id"`
	Frame     uint64  `json:"frame"`
	Action    string  `json:"action"`
	Level     string  `json:"level"`
	MaxHeat   float64 `json:"max_heat"`
	PowerMW   float64 `json:"power_mw"`
	RodLevel  float64 `json:"rod_level"`
	Rationale string  `json:"rationale,omitempty"`
}

// CycleMemory manages a ring of recent operator cycle records. An empty
// Path keeps it in memory only.
type CycleMemory struct {
	Path    string        `json:"-"`
	Records []CycleRecord `json:"records"`
}

// LoadMemory reads the memory file from disk. Returns empty memory if not found.
func LoadMemory(path string) *CycleMemory {
	mem := &CycleMemory{Path: path}
	if path == "" {
		return mem
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return mem
	}
	if err := json.Unmarshal(data, mem); err != nil {
		slog.Warn("operator memory corrupted, starting fresh", "error", err)
		return &CycleMemory{Path: path}
	}
	return mem
}

// Save writes the memory to disk.
func (m *CycleMemory) Save() {
	if m.Path == "" {
		return
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		slog.Error("failed to marshal operator memory", "error", err)
		return
	}
	if err := os.WriteFile(m.Path, data, 0644); err != nil {
		slog.Error("failed to write operator memory", "error", err)
	}
}

// Record adds a cycle record, trimming to maxRecords.
func (m *CycleMemory) Record(r CycleRecord) {
	m.Records = append(m.Records, r)
	if len(m.Records) > maxRecords {
		m.Records = m.Records[len(m.Records)-maxRecords:]
	}
}

// Last returns the most recent record, or nil.
func (m *CycleMemory) Last() *CycleRecord {
	if len(m.Records) == 0 {
		return nil
	}
	return &m.Records[len(m.Records)-1]
}

// Actions counts non-idle actions taken during run.
func (m *CycleMemory) Actions(runID string) int {
	n := 0
	for _, r := range m.Records {
		if r.RunID == runID && r.Action != ActionNone {
			n++
		}
	}
	return n
}
