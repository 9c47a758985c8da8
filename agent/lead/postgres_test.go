package lead

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
	"github.com/tanpawarit/Chative-Lead-Qualification-Agent/pkg/pgdb"
)

func TestPostgresSinkCapture(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := pgdb.Open(ctx, pgdb.Config{URL: dsn})
	if err != nil {
		t.Fatalf("pgdb.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	sink, err := NewPostgresSink(db)
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}
	if err := sink.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	threadID := fmt.Sprintf("lead-test-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		_, _ = db.NewDelete().Model((*leadRow)(nil)).Where("thread_id = ?", threadID).Exec(context.Background())
	})

	rec := contractx.LeadRecord{
		ThreadID:   threadID,
		Lead:       statex.NewLeadData("Jane", "jane@example.com", "YouTube"),
		Metadata:   map[string]string{"channel": "chat"},
		CapturedAt: time.Now(),
	}
	if err := sink.Capture(ctx, rec); err != nil {
		t.Fatalf("Capture: %v", err)
	}

	var rows []leadRow
	if err := db.NewSelect().Model(&rows).Where("thread_id = ?", threadID).Scan(ctx); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Jane" || rows[0].Metadata["channel"] != "chat" {
		t.Fatalf("rows = %+v", rows)
	}

	partial := rec
	partial.Lead = statex.NewLeadData("Jane", "", "")
	if err := sink.Capture(ctx, partial); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("partial Capture error = %v, want ErrValidation", err)
	}
}
