package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DefaultPath is where records go when nothing else is configured.
const DefaultPath = "research_output.txt"

// FileSink appends records to a text file, creating it on first use.
type FileSink struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

func NewFileSink(path string) *FileSink {
	if path == "" {
		path = DefaultPath
	}
	return &FileSink{path: path, now: time.Now}
}

func (f *FileSink) Save(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create archive dir: %w", err)
		}
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", f.path, err)
	}
	if _, err := file.WriteString(FormatRecord(f.now(), text)); err != nil {
		_ = file.Close()
		return fmt.Errorf("write archive %s: %w", f.path, err)
	}
	return file.Close()
}

func (f *FileSink) Target() string { return f.path }

func (f *FileSink) Close() error { return nil }
