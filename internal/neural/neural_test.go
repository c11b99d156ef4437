package neural

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ivlev/inbetween/internal/config"
	"github.com/ivlev/inbetween/internal/source"
)

func uniform(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
	}
	return img
}

// averagingInterpolator returns the exact per-channel mean and counts
// how many midpoints were requested.
type averagingInterpolator struct {
	calls int
	fail  bool
}

func (f *averagingInterpolator) Capabilities(context.Context) (Capabilities, error) {
	return Capabilities{ArbitraryT: false}, nil
}

func (f *averagingInterpolator) Interpolate(_ context.Context, a, b *image.RGBA, _ float64) (*image.RGBA, error) {
	f.calls++
	if f.fail {
		return nil, ErrUnavailable
	}
	out := image.NewRGBA(a.Bounds())
	for i := range out.Pix {
		out.Pix[i] = uint8((int(a.Pix[i]) + int(b.Pix[i])) / 2)
	}
	return out, nil
}

func TestSequenceSubdivision(t *testing.T) {
	a, b := uniform(0), uniform(200)
	itp := &averagingInterpolator{}

	frames, err := Sequence(context.Background(), itp, a, b, 2)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if len(frames) != 5 {
		t.Fatalf("got %d frames, want 5", len(frames))
	}
	if frames[0] != a || frames[4] != b {
		t.Error("endpoints should be the input images")
	}
	if itp.calls != 3 {
		t.Errorf("interpolator called %d times, want 3", itp.calls)
	}

	for i, want := range []uint8{0, 50, 100, 150, 200} {
		if got := frames[i].Pix[0]; got != want {
			t.Errorf("frame %d value = %d, want %d", i, got, want)
		}
	}
}

func TestSequenceClampsDepth(t *testing.T) {
	a, b := uniform(10), uniform(30)
	frames, err := Sequence(context.Background(), &averagingInterpolator{}, a, b, 0)
	if err != nil {
		t.Fatalf("Sequence: %v", err)
	}
	if len(frames) != 3 {
		t.Errorf("depth 0 should clamp to one subdivision, got %d frames", len(frames))
	}
}

func TestSequencePropagatesFailure(t *testing.T) {
	itp := &averagingInterpolator{fail: true}
	_, err := Sequence(context.Background(), itp, uniform(0), uniform(255), 2)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}
}

func TestMidpointBlender(t *testing.T) {
	if _, err := NewMidpointBlender([]*image.RGBA{uniform(0)}); err == nil {
		t.Error("single anchor should be rejected")
	}

	anchors := []*image.RGBA{uniform(0), uniform(100), uniform(200)}
	blender, err := NewMidpointBlender(anchors)
	if err != nil {
		t.Fatalf("NewMidpointBlender: %v", err)
	}

	if blender.FrameAt(0) != anchors[0] {
		t.Error("t=0 should return the first anchor unchanged")
	}
	if blender.FrameAt(1) != anchors[2] {
		t.Error("t=1 should return the last anchor unchanged")
	}
	if blender.FrameAt(0.5) != anchors[1] {
		t.Error("t on an anchor should return it directly")
	}

	// t=0.25 lands halfway between the first two anchors.
	got := blender.FrameAt(0.25).Pix[0]
	if got != 50 {
		t.Errorf("cross-fade value = %d, want 50", got)
	}
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPClientCapabilities(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantArbT    bool
		wantErr     bool
		wantUnavail bool
	}{
		{"arbitrary t", http.StatusOK, `{"arbitrary_t":true,"model":"film"}`, true, false, false},
		{"legacy sidecar", http.StatusNotFound, "", false, false, false},
		{"server error", http.StatusInternalServerError, "", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/v1/capabilities" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			client, err := NewHTTPClient(config.NeuralConfig{Endpoint: srv.URL}, quietLog())
			if err != nil {
				t.Fatalf("NewHTTPClient: %v", err)
			}

			caps, err := client.Capabilities(context.Background())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				if tt.wantUnavail && !errors.Is(err, ErrUnavailable) {
					t.Errorf("got %v, want ErrUnavailable", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Capabilities: %v", err)
			}
			if caps.ArbitraryT != tt.wantArbT {
				t.Errorf("ArbitraryT = %v, want %v", caps.ArbitraryT, tt.wantArbT)
			}
		})
	}
}

func TestHTTPClientMidpointOnlyOverride(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("override should not hit the sidecar")
	}))
	defer srv.Close()

	client, err := NewHTTPClient(config.NeuralConfig{Endpoint: srv.URL, MidpointOnly: true}, quietLog())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	caps, err := client.Capabilities(context.Background())
	if err != nil {
		t.Fatalf("Capabilities: %v", err)
	}
	if caps.ArbitraryT {
		t.Error("midpoint-only override should report ArbitraryT=false")
	}
}

func TestHTTPClientInterpolate(t *testing.T) {
	mid := uniform(120)
	pngMid, err := source.EncodePNG(mid)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}

	var gotT float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/interpolate" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req interpolateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		gotT = req.T
		if _, err := base64.StdEncoding.DecodeString(req.Frame1); err != nil {
			t.Errorf("frame1 is not base64: %v", err)
		}
		json.NewEncoder(w).Encode(interpolateResponse{
			Frame: base64.StdEncoding.EncodeToString(pngMid),
		})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(config.NeuralConfig{Endpoint: srv.URL}, quietLog())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	frame, err := client.Interpolate(context.Background(), uniform(0), uniform(240), 0.5)
	if err != nil {
		t.Fatalf("Interpolate: %v", err)
	}
	if gotT != 0.5 {
		t.Errorf("request t = %v, want 0.5", gotT)
	}
	if frame.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Errorf("frame bounds = %v", frame.Bounds())
	}
	if frame.Pix[0] != 120 {
		t.Errorf("frame value = %d, want 120", frame.Pix[0])
	}
}

func TestHTTPClientInterpolateSidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(interpolateResponse{Error: "model loading"})
	}))
	defer srv.Close()

	client, err := NewHTTPClient(config.NeuralConfig{Endpoint: srv.URL}, quietLog())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}

	_, err = client.Interpolate(context.Background(), uniform(0), uniform(255), 0.5)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("got %v, want ErrUnavailable", err)
	}
}

func TestHTTPClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client, err := NewHTTPClient(config.NeuralConfig{Endpoint: endpoint}, quietLog())
	if err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
	if _, err := client.Capabilities(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("got %v, want ErrUnavailable", err)
	}

	if _, err := NewHTTPClient(config.NeuralConfig{}, quietLog()); err == nil {
		t.Error("empty endpoint should be rejected")
	}
}
