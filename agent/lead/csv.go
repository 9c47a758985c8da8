package lead

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

const timestampLayout = "2006-01-02 15:04:05"

// CSVSink appends captured leads to a spreadsheet file. The header is
// written when the file is empty; metadata keys named in Columns get their
// own column, anything else is dropped.
type CSVSink struct {
	path    string
	columns []string

	mu sync.Mutex
}

func NewCSVSink(path string, metadataColumns ...string) (*CSVSink, error) {
	if path == "" {
		return nil, errors.New("csv path is required")
	}
	cols := append([]string(nil), metadataColumns...)
	sort.Strings(cols)
	return &CSVSink{path: path, columns: cols}, nil
}

func (s *CSVSink) Header() []string {
	header := append([]string{}, statex.LeadFields...)
	header = append(header, "thread_id")
	header = append(header, s.columns...)
	return append(header, "timestamp")
}

func (s *CSVSink) Capture(ctx context.Context, rec contractx.LeadRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create lead dir: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open lead sheet: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat lead sheet: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(s.Header()); err != nil {
			return fmt.Errorf("write lead header: %w", err)
		}
	}
	if err := w.Write(s.row(rec)); err != nil {
		return fmt.Errorf("write lead row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *CSVSink) row(rec contractx.LeadRecord) []string {
	row := make([]string, 0, len(statex.LeadFields)+len(s.columns)+2)
	for _, name := range statex.LeadFields {
		v, _ := rec.Lead.Get(name)
		row = append(row, v)
	}
	row = append(row, rec.ThreadID)
	for _, col := range s.columns {
		row = append(row, rec.Metadata[col])
	}
	at := rec.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	return append(row, at.Format(timestampLayout))
}
