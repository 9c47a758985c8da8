package lead

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return rows
}

func TestCSVSinkAppendsWithSingleHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "leads", "leads.csv")
	sink, err := NewCSVSink(path, "sender_number", "profile_name")
	if err != nil {
		t.Fatalf("NewCSVSink: %v", err)
	}

	at := time.Date(2026, 3, 4, 10, 11, 12, 0, time.UTC)
	first := contractx.LeadRecord{
		ThreadID:   "whatsapp:+15550001",
		Lead:       statex.NewLeadData("Jane Doe", "jane@example.com", "YouTube"),
		Metadata:   map[string]string{"sender_number": "whatsapp:+15550001", "profile_name": "Jane", "ignored": "x"},
		CapturedAt: at,
	}
	second := contractx.LeadRecord{
		ThreadID:   "t-2",
		Lead:       statex.NewLeadData("Bob", "+1 555 0100", "Instagram"),
		CapturedAt: at.Add(time.Minute),
	}
	for _, rec := range []contractx.LeadRecord{first, second} {
		if err := sink.Capture(context.Background(), rec); err != nil {
			t.Fatalf("Capture: %v", err)
		}
	}

	rows := readRows(t, path)
	want := [][]string{
		{"name", "contact", "platform", "thread_id", "profile_name", "sender_number", "timestamp"},
		{"Jane Doe", "jane@example.com", "YouTube", "whatsapp:+15550001", "Jane", "whatsapp:+15550001", "2026-03-04 10:11:12"},
		{"Bob", "+1 555 0100", "Instagram", "t-2", "", "", "2026-03-04 10:12:12"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows = %q, want %q", rows, want)
	}
}

func TestCSVSinkRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := NewCSVSink(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}

type recordingSink struct {
	got []contractx.LeadRecord
	err error
}

func (s *recordingSink) Capture(_ context.Context, rec contractx.LeadRecord) error {
	s.got = append(s.got, rec)
	return s.err
}

func TestMultiSinkFansOutAndJoinsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	a := &recordingSink{}
	b := &recordingSink{err: boom}
	c := &recordingSink{}
	sink := MultiSink{a, nil, b, c}

	rec := contractx.LeadRecord{ThreadID: "t", Lead: statex.NewLeadData("n", "c", "p")}
	err := sink.Capture(context.Background(), rec)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	for i, s := range []*recordingSink{a, b, c} {
		if len(s.got) != 1 || s.got[0].ThreadID != "t" {
			t.Fatalf("sink %d got %+v", i, s.got)
		}
	}
}
