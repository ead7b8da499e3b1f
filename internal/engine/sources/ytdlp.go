package sources

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/anatolykoptev/go_youtube/internal/engine"
)

// YTDLP resolves audio locations by running a youtube-dl compatible program.
type YTDLP struct {
	pkg   string
	proxy string
	run   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewYTDLP uses cfg.YoutubeDLPackage ("yt-dlp" by default) found on PATH.
func NewYTDLP(cfg engine.Config) *YTDLP {
	pkg := cfg.YoutubeDLPackage
	if pkg == "" {
		pkg = engine.DefaultYoutubeDLPackage
	}
	return &YTDLP{pkg: pkg, proxy: cfg.ProxyURL, run: runCommand}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > 256 {
			msg = msg[:256]
		}
		return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
	}
	return out, nil
}

// Resolve returns a direct URL for the best audio-only format of videoID.
func (y *YTDLP) Resolve(ctx context.Context, videoID string) (string, error) {
	args := []string{"--no-playlist", "--no-warnings", "-f", "bestaudio/best", "-g"}
	if y.proxy != "" {
		args = append(args, "--proxy", y.proxy)
	}
	args = append(args, "https://www.youtube.com/watch?v="+videoID)
	out, err := y.run(ctx, y.pkg, args...)
	if err != nil {
		return "", fmt.Errorf("resolve audio %s: %w", videoID, err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "http") {
			return line, nil
		}
	}
	return "", fmt.Errorf("resolve audio %s: %w", videoID, engine.ErrNotFound)
}
