package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type conversationRow struct {
	bun.BaseModel `bun:"table:conversation_states,alias:cs"`

	ThreadID  string             `bun:"thread_id,pk"`
	Version   int64              `bun:"version,notnull"`
	State     *ConversationState `bun:"state,type:jsonb,notnull"`
	UpdatedAt time.Time          `bun:"updated_at,notnull"`
}

// PostgresStore persists ConversationState as jsonb rows through bun.
type PostgresStore struct {
	db    bun.IDB
	clock func() time.Time
}

func NewPostgresStore(db bun.IDB) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	return &PostgresStore{db: db, clock: time.Now}, nil
}

// Migrate creates the state table when it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*conversationRow)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("create conversation_states: %w", err)
	}
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, threadID string) (*ConversationState, error) {
	if threadID == "" {
		return nil, ErrInvalidThread
	}
	row := new(conversationRow)
	err := s.db.NewSelect().
		Model(row).
		Where("thread_id = ?", threadID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation state: %w", err)
	}
	if row.State == nil {
		return nil, ErrStateNotFound
	}
	if err := row.State.Validate(); err != nil {
		return nil, fmt.Errorf("invalid conversation state loaded from store: %w", err)
	}
	return row.State, nil
}

func (s *PostgresStore) Save(ctx context.Context, st *ConversationState) error {
	next, err := nextVersion(st, s.clock())
	if err != nil {
		return err
	}
	row := &conversationRow{
		ThreadID:  next.ThreadID,
		Version:   next.Version,
		State:     next,
		UpdatedAt: next.UpdatedAt,
	}

	var res sql.Result
	if st.Version == 0 {
		res, err = s.db.NewInsert().
			Model(row).
			On("CONFLICT (thread_id) DO NOTHING").
			Exec(ctx)
	} else {
		res, err = s.db.NewUpdate().
			Model(row).
			Column("version", "state", "updated_at").
			WherePK().
			Where("version = ?", st.Version).
			Exec(ctx)
	}
	if err != nil {
		return fmt.Errorf("write conversation state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return ErrVersionConflict
	}
	commit(st, next)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, threadID string) error {
	if threadID == "" {
		return ErrInvalidThread
	}
	_, err := s.db.NewDelete().
		Model((*conversationRow)(nil)).
		Where("thread_id = ?", threadID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete conversation state: %w", err)
	}
	return nil
}
