package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"evote/internal/domain/voting"
	"evote/internal/errs"
	"evote/internal/ports"
)

const (
	comparePath       = "/v1/compare"
	defaultTimeout    = 10 * time.Second
	maxErrorBodyBytes = 4096

	errorCodeNoFace        = "NO_FACE"
	errorCodeMultipleFaces = "MULTIPLE_FACES"
	errorCodeBusy          = "BUSY"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPOracle calls a face-comparison service over JSON.
//
// Request:  POST {base}/v1/compare {"reference_token": "...", "live_photo": "..."}
// Response: 200 {"confidence": 0..100} or an error body {"error": "NO_FACE"}.
// 429 and 503 are treated as a busy service.
type HTTPOracle struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ ports.BiometricOracle = (*HTTPOracle)(nil)

func NewHTTPOracle(cfg Config) (*HTTPOracle, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("biometric base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPOracle{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		client:  &http.Client{Timeout: timeout},
	}, nil
}

type compareRequest struct {
	ReferenceToken string `json:"reference_token"`
	LivePhoto      string `json:"live_photo"`
}

type compareResponse struct {
	Confidence *float64 `json:"confidence"`
	Error      string   `json:"error"`
}

func (o *HTTPOracle) Compare(ctx context.Context, referenceToken string, livePhotoRef string) (float64, error) {
	body, err := json.Marshal(compareRequest{ReferenceToken: referenceToken, LivePhoto: livePhotoRef})
	if err != nil {
		return 0, errs.Wrap(err, "encode compare request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+comparePath, bytes.NewReader(body))
	if err != nil {
		return 0, errs.Wrap(err, "build compare request")
	}
	req.Header.Set("Content-Type", "application/json")
	if o.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.apiKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", voting.ErrBiometricUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("%w: read response: %w", voting.ErrBiometricUnavailable, err)
	}

	var decoded compareResponse
	decodeErr := json.Unmarshal(raw, &decoded)

	if sentinel := errorFromCode(decoded.Error); sentinel != nil {
		return 0, sentinel
	}
	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return 0, voting.ErrServiceBusy
	default:
		return 0, fmt.Errorf("%w: status %d: %s", voting.ErrBiometricUnavailable, resp.StatusCode, truncate(raw))
	}

	if decodeErr != nil {
		return 0, fmt.Errorf("%w: decode response: %w", voting.ErrBiometricUnavailable, decodeErr)
	}
	if decoded.Confidence == nil {
		return 0, fmt.Errorf("%w: response has no confidence", voting.ErrBiometricUnavailable)
	}
	return *decoded.Confidence, nil
}

func errorFromCode(code string) error {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "":
		return nil
	case errorCodeNoFace:
		return voting.ErrNoFaceDetected
	case errorCodeMultipleFaces:
		return voting.ErrMultipleFacesDetected
	case errorCodeBusy:
		return voting.ErrServiceBusy
	default:
		return fmt.Errorf("%w: %s", voting.ErrBiometricUnavailable, code)
	}
}

func truncate(raw []byte) string {
	if len(raw) > maxErrorBodyBytes {
		raw = raw[:maxErrorBodyBytes]
	}
	return strings.TrimSpace(string(raw))
}
