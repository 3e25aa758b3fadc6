package feedback

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/andresmejia3/posturewatch/internal/utils"
	"github.com/google/uuid"
)

var errPanic = errors.New("speaker panicked")

// CommandSpeaker speaks through a local TTS program; the text is the last argument.
type CommandSpeaker struct {
	Name string
	Args []string
}

// DefaultCommandSpeaker uses the platform's built-in synthesizer.
func DefaultCommandSpeaker() CommandSpeaker {
	if runtime.GOOS == "darwin" {
		return CommandSpeaker{Name: "say"}
	}
	return CommandSpeaker{Name: "espeak-ng"}
}

func (c CommandSpeaker) Speak(ctx context.Context, text string) error {
	args := append(append([]string(nil), c.Args...), text)
	cmd := utils.NewSafeCommandContext(ctx, c.Name, args...)
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(cmd.Stderr.String()); msg != "" {
			return fmt.Errorf("%s failed: %w: %s", c.Name, err, msg)
		}
		return fmt.Errorf("%s failed: %w", c.Name, err)
	}
	return nil
}

// HTTPSpeaker synthesizes speech with a remote TTS endpoint and plays the
// returned audio with a local player.
type HTTPSpeaker struct {
	URL     string // receives POST {"text": ...}, answers with audio bytes
	APIKey  string // sent as "Authorization: Token <key>" when set
	Client  *http.Client
	Player  []string // audio file path is appended
	TempDir string
}

// DefaultPlayer plays an audio file without opening a window.
var DefaultPlayer = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "error"}

func (h HTTPSpeaker) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("empty text")
	}

	audio, err := h.synthesize(ctx, text)
	if err != nil {
		return err
	}

	dir := h.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	// Unique per alert so overlapping playbacks never share a file.
	filename := filepath.Join(dir, fmt.Sprintf("alert_%s.mp3", uuid.NewString()))
	if err := os.WriteFile(filename, audio, 0o600); err != nil {
		return fmt.Errorf("failed to write audio: %w", err)
	}
	defer os.Remove(filename)

	player := h.Player
	if len(player) == 0 {
		player = DefaultPlayer
	}
	args := append(append([]string(nil), player[1:]...), filename)
	cmd := utils.NewSafeCommandContext(ctx, player[0], args...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("audio playback failed: %w: %s", err, strings.TrimSpace(cmd.Stderr.String()))
	}
	return nil
}

func (h HTTPSpeaker) synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Token "+h.APIKey)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tts error: %s - %s", resp.Status, string(body))
	}
	return io.ReadAll(resp.Body)
}
