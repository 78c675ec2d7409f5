package persist

import (
	"context"
	"fmt"
)

// JournalEntry is one recorded simulation event.
type JournalEntry struct {
	LevelID   string
	Step      uint64
	Kind      string // "region_enter", "region_exit", "script_fault"
	EntityID  string
	SubjectID string // region id, or the fault stage
	Detail    string
}

type JournalRepo struct {
	db *DB
}

func NewJournalRepo(db *DB) *JournalRepo {
	return &JournalRepo{db: db}
}

// WriteJournal writes a batch of entries in a single transaction.
func (r *JournalRepo) WriteJournal(ctx context.Context, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_journal (level_id, step, kind, entity_id, subject_id, detail)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			e.LevelID, int64(e.Step), e.Kind, e.EntityID, e.SubjectID, e.Detail,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Recent returns up to limit entries for a level, newest first.
func (r *JournalRepo) Recent(ctx context.Context, levelID string, limit int) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT level_id, step, kind, entity_id, subject_id, detail
		 FROM event_journal WHERE level_id = $1
		 ORDER BY id DESC LIMIT $2`, levelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var e JournalEntry
		var step int64
		if err := rows.Scan(&e.LevelID, &step, &e.Kind, &e.EntityID, &e.SubjectID, &e.Detail); err != nil {
			return nil, err
		}
		e.Step = uint64(step)
		out = append(out, e)
	}
	return out, rows.Err()
}
