package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// PlottingService handles communication with the sidecar plotting application
// and the on-disk JSON export of plot payloads.
type PlottingService struct {
	baseURL    string
	httpClient *http.Client
	enabled    bool
}

// PlottingServiceConfig contains configuration for the plotting service.
type PlottingServiceConfig struct {
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}

// PlottingResponse represents the response from the plotting service.
type PlottingResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PlotURL   string `json:"plot_url,omitempty"`
	ViewURL   string `json:"view_url,omitempty"`
	PlotID    string `json:"plot_id,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// DefaultPlottingServiceConfig returns default configuration for the plotting
// service.
func DefaultPlottingServiceConfig() PlottingServiceConfig {
	return PlottingServiceConfig{
		BaseURL: "http://localhost:8080",
		Timeout: 30 * time.Second,
	}
}

// NewPlottingService creates a new plotting service client. The client starts
// disabled; callers opt in with Enable after checking health.
func NewPlottingService(config PlottingServiceConfig) *PlottingService {
	return &PlottingService{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Enable enables sending plots to the sidecar.
func (ps *PlottingService) Enable() {
	ps.enabled = true
}

// Disable disables sending plots to the sidecar.
func (ps *PlottingService) Disable() {
	ps.enabled = false
}

// IsEnabled returns whether the plotting service is enabled.
func (ps *PlottingService) IsEnabled() bool {
	return ps.enabled
}

// CheckHealth probes the sidecar's health endpoint.
func (ps *PlottingService) CheckHealth() error {
	resp, err := ps.httpClient.Get(ps.baseURL + "/health")
	if err != nil {
		return fmt.Errorf("plotting service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plotting service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

// SendPlotData posts a plot payload to the sidecar. When the service is
// disabled the call is a no-op reporting failure in the response.
func (ps *PlottingService) SendPlotData(plotData PlotData) (*PlottingResponse, error) {
	if !ps.enabled {
		return &PlottingResponse{
			Success: false,
			Message: "Plotting service is disabled",
		}, nil
	}

	jsonData, err := json.Marshal(plotData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal plot data: %w", err)
	}

	resp, err := ps.httpClient.Post(ps.baseURL+"/api/plot", "application/json", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send plot data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read plotting response: %w", err)
	}

	var plotResp PlottingResponse
	if err := json.Unmarshal(body, &plotResp); err != nil {
		return nil, fmt.Errorf("failed to decode plotting response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &plotResp, fmt.Errorf("plotting service returned status %d: %s", resp.StatusCode, plotResp.Message)
	}

	return &plotResp, nil
}

// WritePlotFile writes a plot payload to dir as indented JSON named after its
// plot type, creating dir if needed. This is the offline path used when no
// sidecar is running.
func WritePlotFile(dir string, plotData PlotData) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create plot directory: %w", err)
	}

	data, err := plotData.ToJSON()
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.json", plotData.PlotType))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write plot file: %w", err)
	}

	return path, nil
}
