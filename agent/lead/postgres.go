package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/contract"
	statex "github.com/tanpawarit/Chative-Lead-Qualification-Agent/agent/state"
)

type leadRow struct {
	bun.BaseModel `bun:"table:leads,alias:l"`

	ID         int64             `bun:"id,pk,autoincrement"`
	ThreadID   string            `bun:"thread_id,notnull"`
	Name       string            `bun:"name,notnull"`
	Contact    string            `bun:"contact,notnull"`
	Platform   string            `bun:"platform,notnull"`
	Metadata   map[string]string `bun:"metadata,type:jsonb"`
	CapturedAt time.Time         `bun:"captured_at,notnull"`
}

// PostgresSink stores captured leads in the leads table.
type PostgresSink struct {
	db bun.IDB
}

func NewPostgresSink(db bun.IDB) (*PostgresSink, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Migrate(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*leadRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create leads: %w", err)
	}
	_, err := s.db.NewCreateIndex().
		Model((*leadRow)(nil)).
		Index("leads_thread_id_idx").
		Column("thread_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create leads index: %w", err)
	}
	return nil
}

func (s *PostgresSink) Capture(ctx context.Context, rec contractx.LeadRecord) error {
	if !rec.Lead.Complete() {
		return fmt.Errorf("%w: lead is incomplete", contractx.ErrValidation)
	}
	name, _ := rec.Lead.Get(statex.FieldName)
	contact, _ := rec.Lead.Get(statex.FieldContact)
	platform, _ := rec.Lead.Get(statex.FieldPlatform)
	at := rec.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}

	row := &leadRow{
		ThreadID:   rec.ThreadID,
		Name:       name,
		Contact:    contact,
		Platform:   platform,
		Metadata:   rec.Metadata,
		CapturedAt: at.UTC(),
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}
