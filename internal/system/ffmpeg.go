package system

import (
	"os/exec"
	"strings"
	"sync"
)

var (
	encoderOnce sync.Once
	bestEncoder string
)

// FFmpegAvailable reports whether an ffmpeg binary is on PATH. Video
// export is optional, so callers degrade gracefully when it is absent.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// BestH264Encoder picks an H.264 encoder for this host, preferring
// hardware encoders when ffmpeg lists them. The probe result is cached
// for the process lifetime.
func BestH264Encoder() string {
	encoderOnce.Do(func() {
		bestEncoder = probeEncoder()
	})
	return bestEncoder
}

func probeEncoder() string {
	out, err := exec.Command("ffmpeg", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(string(out), name) {
			return name
		}
	}
	return "libx264"
}
