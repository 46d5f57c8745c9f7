package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Segment is one recognised utterance.
type Segment struct {
	Speaker string
	Text    string
	Path    string
}

// UnknownSpeaker labels segments whose file name carries no speaker prefix.
const UnknownSpeaker = "Unknown"

var speakerPrefix = regexp.MustCompile(`(?i)^speaker(\d+)_`)

// Capture watches a directory for audio segments dropped by the meeting
// audio bridge. Producers must write elsewhere and rename into the directory
// so a segment is complete when it appears. Audio files are transcribed;
// .txt files are taken as already transcribed text.
type Capture struct {
	dir         string
	transcriber Transcriber
	logger      *zap.Logger
}

func NewCapture(dir string, transcriber Transcriber, logger *zap.Logger) *Capture {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Capture{dir: dir, transcriber: transcriber, logger: logger.Named("capture")}
}

// Run blocks until ctx is done, calling onSegment for every recognised
// segment in arrival order.
func (c *Capture) Run(ctx context.Context, onSegment func(context.Context, Segment)) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("capture: create dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("capture: watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("capture: watch %s: %w", c.dir, err)
	}
	c.logger.Info("listening", zap.String("dir", c.dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			seg, ok := c.recognize(ctx, event.Name)
			if ok {
				onSegment(ctx, seg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (c *Capture) recognize(ctx context.Context, path string) (Segment, bool) {
	base := filepath.Base(path)
	seg := Segment{Speaker: SpeakerFromName(base), Path: path}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".txt":
		raw, err := os.ReadFile(path)
		if err != nil {
			c.logger.Warn("read segment", zap.String("file", base), zap.Error(err))
			return Segment{}, false
		}
		seg.Text = strings.TrimSpace(string(raw))
	case ".wav", ".mp3", ".m4a":
		if c.transcriber == nil {
			c.logger.Warn("no transcriber, dropping audio segment", zap.String("file", base))
			return Segment{}, false
		}
		text, err := c.transcriber.Transcribe(ctx, path)
		if err != nil {
			c.logger.Warn("transcribe segment", zap.String("file", base), zap.Error(err))
			return Segment{}, false
		}
		seg.Text = text
	default:
		return Segment{}, false
	}
	if seg.Text == "" {
		return Segment{}, false
	}
	c.logger.Info("recognized", zap.String("speaker", seg.Speaker), zap.String("text", seg.Text))
	return seg, true
}

// SpeakerFromName reads a "speakerN_" file name prefix as "Speaker N".
func SpeakerFromName(name string) string {
	m := speakerPrefix.FindStringSubmatch(name)
	if m == nil {
		return UnknownSpeaker
	}
	return "Speaker " + m[1]
}
