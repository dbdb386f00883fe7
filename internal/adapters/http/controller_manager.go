package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"

	"github.com/bft-labs/modeswitch/internal/domain"
	"github.com/bft-labs/modeswitch/internal/ports"
)

const switchEndpoint = "/v1/controllers/switch"

// maxErrorBody caps how much of a failed response is quoted in the error.
const maxErrorBody = 4 << 10

// ControllerManager implements ports.ControllerManager against a remote
// controller manager speaking JSON over HTTP.
type ControllerManager struct {
	client  ports.HTTPClient
	baseURL string
	logger  ports.Logger
}

// NewControllerManager creates a new HTTP controller manager client.
func NewControllerManager(client ports.HTTPClient, baseURL string, logger ports.Logger) *ControllerManager {
	return &ControllerManager{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// SwitchControllers posts req to the manager and decodes its report.
// A 409 response means the manager refused the whole request and is
// reported as domain.ErrManagerRejected.
func (m *ControllerManager) SwitchControllers(ctx context.Context, req domain.SwitchRequest) (domain.SwitchReport, error) {
	if req.Empty() {
		return domain.SwitchReport{}, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return domain.SwitchReport{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+switchEndpoint, bytes.NewReader(body))
	if err != nil {
		return domain.SwitchReport{}, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-Id", req.ID)
	httpReq.Header.Set("X-Modeswitch-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := m.client.Do(httpReq)
	if err != nil {
		return domain.SwitchReport{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.SwitchReport{}, fmt.Errorf("%w: %s", domain.ErrManagerRejected, strings.TrimSpace(string(respBody)))
	}
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return domain.SwitchReport{}, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}

	var report domain.SwitchReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return domain.SwitchReport{}, fmt.Errorf("decode report: %w", err)
	}

	m.logger.Debug("controller manager replied",
		ports.String("request_id", req.ID),
		ports.Strings("activated", report.Activated),
		ports.Strings("deactivated", report.Deactivated),
		ports.Int("failed", len(report.Failed)),
	)

	return report, nil
}
