package vehicle

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-rover/internal/httpc"
)

// HTTPDrivetrain talks to a drivetrain daemon over its HTTP API, for
// chassis setups where the motor controller runs as its own process.
type HTTPDrivetrain struct {
	BaseURL string
	client  *http.Client
	limits  Limits

	mu   sync.Mutex
	last DriveState
}

// NewHTTPDrivetrain creates an HTTP drivetrain client. Commands use a
// short timeout so a wedged daemon cannot stall the control loop.
func NewHTTPDrivetrain(baseURL string, limits Limits) (*HTTPDrivetrain, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &HTTPDrivetrain{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(2 * time.Second),
		limits:  limits,
	}, nil
}

// Apply posts the clamped command to the daemon.
func (h *HTTPDrivetrain) Apply(linearMS, angularRadS float64) error {
	linearMS, angularRadS = h.limits.Clamp(linearMS, angularRadS)

	payload := map[string]float64{
		"linear":  linearMS,
		"angular": angularRadS,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal drive payload: %w", err)
	}

	resp, err := h.client.Post(h.BaseURL+"/api/drive", "application/json", strings.NewReader(string(data)))
	if err != nil {
		return fmt.Errorf("drive request failed: %w", err)
	}
	resp.Body.Close()

	h.mu.Lock()
	h.last = DriveState{LinearMS: linearMS, AngularRadS: angularRadS}
	h.mu.Unlock()
	return nil
}

// Stop posts an explicit stop, which the daemon applies ahead of any
// queued drive command.
func (h *HTTPDrivetrain) Stop() error {
	resp, err := h.client.Post(h.BaseURL+"/api/stop", "application/json", strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("stop request failed: %w", err)
	}
	resp.Body.Close()

	h.mu.Lock()
	h.last = DriveState{}
	h.mu.Unlock()
	return nil
}

// State returns the last applied command.
func (h *HTTPDrivetrain) State() DriveState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last
}

// DaemonStatus returns the drivetrain daemon status string.
func (h *HTTPDrivetrain) DaemonStatus() (string, error) {
	resp, err := h.client.Get(h.BaseURL + "/api/status")
	if err != nil {
		return "", fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	var status struct {
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return "", fmt.Errorf("failed to decode daemon status: %w", err)
	}
	return status.State, nil
}

// Close stops the drivetrain.
func (h *HTTPDrivetrain) Close() error {
	return h.Stop()
}
