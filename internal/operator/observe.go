// Package operator implements an automated reactor operator.
// It observes the reactor through the read API, triages heat and power,
// decides on a rod or scram command, and acts through the command endpoint.
package operator

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tadjelllol/RBMK-Simulator/internal/engine"
	"github.com/tadjelllol/RBMK-Simulator/internal/reactor"
)

// Snapshot holds all data collected during an observation cycle.
type Snapshot struct {
	Status ReactorStatus  `json:"status"`
	Stats  reactor.Totals `json:"stats"`
	Alarms []engine.Event `json:"alarms"`
}

// ReactorStatus mirrors GET /api/v1/status.
type ReactorStatus struct {
	RunID    string  `json:"run_id"`
	State    string  `json:"state"`
	Frames   uint64  `json:"frames"`
	Exploded bool    `json:"exploded"`
	AZ5      bool    `json:"az5"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Columns  int     `json:"columns"`
	PowerMW  float64 `json:"power_mw"`
	MaxHeat  float64 `json:"max_heat"`
	Tick     uint64  `json:"tick"`
	Speed    float64 `json:"speed"`
}

// Observer fetches reactor state from the API.
type Observer struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewObserver creates an Observer targeting the given API base URL.
func NewObserver(baseURL string) *Observer {
	return &Observer{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Observe fetches status, stats and recent alarms.
func (o *Observer) Observe() (*Snapshot, error) {
	snap := &Snapshot{}

	if err := o.fetchJSON("/api/v1/status", &snap.Status); err != nil {
		return nil, fmt.Errorf("fetch status: %w", err)
	}
	if err := o.fetchJSON("/api/v1/stats", &snap.Stats); err != nil {
		return nil, fmt.Errorf("fetch stats: %w", err)
	}
	if err := o.fetchJSON("/api/v1/events?category="+engine.CategoryAlarm+"&limit=5", &snap.Alarms); err != nil {
		return nil, fmt.Errorf("fetch alarms: %w", err)
	}

	return snap, nil
}

// fetchJSON GETs a path and decodes the JSON response into target.
func (o *Observer) fetchJSON(path string, target any) error {
	resp, err := o.HTTPClient.Get(o.BaseURL + path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("GET %s returned %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
