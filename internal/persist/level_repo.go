package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// LevelRow is a stored level without its document body.
type LevelRow struct {
	ID          string
	Name        string
	SpecVersion string
	Seed        int64
	UpdatedAt   time.Time
}

type LevelRepo struct {
	db *DB
}

func NewLevelRepo(db *DB) *LevelRepo {
	return &LevelRepo{db: db}
}

// Save upserts doc as a JSONB document keyed by its id.
func (r *LevelRepo) Save(ctx context.Context, doc *LevelDocument) error {
	if doc.ID == "" {
		return errors.New("save level: empty id")
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode level %q: %w", doc.ID, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO levels (id, name, spec_version, seed, document, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     spec_version = EXCLUDED.spec_version,
		     seed = EXCLUDED.seed,
		     document = EXCLUDED.document,
		     updated_at = now()`,
		doc.ID, doc.Name, doc.SpecVersion, doc.Seed, body,
	)
	if err != nil {
		return fmt.Errorf("save level %q: %w", doc.ID, err)
	}
	return nil
}

// Load returns nil, nil when no level has the given id.
func (r *LevelRepo) Load(ctx context.Context, id string) (*LevelDocument, error) {
	var body []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT document FROM levels WHERE id = $1`, id,
	).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load level %q: %w", id, err)
	}
	doc := &LevelDocument{}
	if err := json.Unmarshal(body, doc); err != nil {
		return nil, fmt.Errorf("decode level %q: %w", id, err)
	}
	return doc, nil
}

func (r *LevelRepo) List(ctx context.Context) ([]LevelRow, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, name, spec_version, seed, updated_at FROM levels ORDER BY id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LevelRow
	for rows.Next() {
		var row LevelRow
		if err := rows.Scan(&row.ID, &row.Name, &row.SpecVersion, &row.Seed, &row.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *LevelRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Pool.Exec(ctx, `DELETE FROM levels WHERE id = $1`, id)
	return err
}
