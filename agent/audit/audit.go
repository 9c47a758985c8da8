// Package audit keeps a per-sender transcript of channel traffic.
package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

var header = []string{"Date", "Time", "Sender", "Message", "User Details", "Lead Captured"}

const (
	SenderUser = "User"
	SenderBot  = "Bot"
)

// Entry is one audit row of a thread's transcript. Details is serialized as
// JSON when non-nil.
type Entry struct {
	Thread       string
	Sender       string
	Message      string
	Details      any
	LeadCaptured bool
	At           time.Time
}

// Logger appends entries to DIR/<thread>.csv. Writes to the same file are
// serialized; different threads write in parallel.
type Logger struct {
	dir   string
	files *xsync.MapOf[string, *fileLock]
	now   func() time.Time
}

type fileLock struct {
	slot chan struct{}
}

func NewLogger(dir string) (*Logger, error) {
	if dir == "" {
		return nil, errors.New("audit dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	return &Logger{
		dir:   dir,
		files: xsync.NewMapOf[string, *fileLock](),
		now:   time.Now,
	}, nil
}

// FileName maps a thread id (the sender address on messaging channels) to
// its transcript file name.
func FileName(thread string) string {
	name := strings.NewReplacer(":", "", "+", "", "/", "_", "\\", "_").Replace(thread)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		name = "unknown"
	}
	return name + ".csv"
}

func (l *Logger) Path(thread string) string {
	return filepath.Join(l.dir, FileName(thread))
}

func (l *Logger) Record(ctx context.Context, e Entry) error {
	at := e.At
	if at.IsZero() {
		at = l.now()
	}
	details := ""
	if e.Details != nil {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("encode details: %w", err)
		}
		details = string(raw)
	}
	row := []string{
		at.Format("2006-01-02"),
		at.Format("15:04:05"),
		e.Sender,
		e.Message,
		details,
		fmt.Sprintf("%t", e.LeadCaptured),
	}

	path := l.Path(e.Thread)
	lock, _ := l.files.LoadOrCompute(path, func() *fileLock {
		return &fileLock{slot: make(chan struct{}, 1)}
	})
	select {
	case lock.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-lock.slot }()

	return appendRow(path, row)
}

func appendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat audit file: %w", err)
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			return err
		}
	}
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// LeadDetails is the user-details payload for bot rows; nil when nothing
// has been collected yet.
func LeadDetails(lead statex.LeadData) any {
	if lead.Empty() {
		return nil
	}
	return lead.Map()
}
