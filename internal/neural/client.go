package neural

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/source"
)

// HTTPClient talks to an interpolation sidecar over HTTP. The wire
// format is JSON with base64 PNG payloads:
//
//	GET  /v1/capabilities            -> {"arbitrary_t": bool, "model": "..."}
//	POST /v1/interpolate             <- {"frame1": b64, "frame2": b64, "t": 0.5}
//	                                 -> {"frame": b64}
type HTTPClient struct {
	endpoint     string
	client       *http.Client
	midpointOnly bool
	log          *slog.Logger
}

// NewHTTPClient builds a sidecar client from config. An empty endpoint
// is a configuration error; callers that want no neural path should not
// construct a client at all.
func NewHTTPClient(cfg config.NeuralConfig, log *slog.Logger) (*HTTPClient, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("neural endpoint not configured")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &HTTPClient{
		endpoint:     cfg.Endpoint,
		midpointOnly: cfg.MidpointOnly,
		log:          log,
		client: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
	}, nil
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Capabilities queries the sidecar for its supported t granularity.
// Older sidecars without the endpoint are treated as midpoint-only
// rather than guessed at; an explicit config override forces the same.
func (c *HTTPClient) Capabilities(ctx context.Context) (Capabilities, error) {
	if c.midpointOnly {
		return Capabilities{ArbitraryT: false}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/capabilities", nil)
	if err != nil {
		return Capabilities{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Capabilities{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.log.Info("sidecar has no capabilities endpoint, assuming midpoint-only")
		return Capabilities{ArbitraryT: false}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return Capabilities{}, fmt.Errorf("%w: capabilities returned %s", ErrUnavailable, resp.Status)
	}

	var caps Capabilities
	if err := json.NewDecoder(resp.Body).Decode(&caps); err != nil {
		return Capabilities{}, fmt.Errorf("decode capabilities: %w", err)
	}
	return caps, nil
}

type interpolateRequest struct {
	Frame1 string  `json:"frame1"`
	Frame2 string  `json:"frame2"`
	T      float64 `json:"t"`
}

type interpolateResponse struct {
	Frame string `json:"frame"`
	Error string `json:"error,omitempty"`
}

// Interpolate requests one synthesized frame at fraction t. The result
// is normalized to the first input's canvas.
func (c *HTTPClient) Interpolate(ctx context.Context, a, b *image.RGBA, t float64) (*image.RGBA, error) {
	pngA, err := source.EncodePNG(a)
	if err != nil {
		return nil, fmt.Errorf("encode first frame: %w", err)
	}
	pngB, err := source.EncodePNG(b)
	if err != nil {
		return nil, fmt.Errorf("encode second frame: %w", err)
	}

	body, err := json.Marshal(interpolateRequest{
		Frame1: base64.StdEncoding.EncodeToString(pngA),
		Frame2: base64.StdEncoding.EncodeToString(pngB),
		T:      t,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/interpolate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var out interpolateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode interpolation response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if out.Error != "" {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, out.Error)
		}
		return nil, fmt.Errorf("%w: interpolate returned %s", ErrUnavailable, resp.Status)
	}

	raw, err := base64.StdEncoding.DecodeString(out.Frame)
	if err != nil {
		return nil, fmt.Errorf("decode frame payload: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode frame image: %w", err)
	}

	rgba := source.ToRGBA(img)
	if rgba.Bounds() != a.Bounds() {
		rgba = source.Resize(rgba, a.Bounds())
	}
	return rgba, nil
}
