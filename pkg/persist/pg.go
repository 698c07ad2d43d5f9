package persist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dd0wney/cluso-semnet/pkg/knowledge"
)

// PGStore keeps one snapshot in PostgreSQL: nodes and relations each in their
// own table with an explicit position column preserving store order.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore connects to databaseURL and creates the tables if needed.
func NewPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return s, nil
}

func (s *PGStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS semnet_nodes (
		position INTEGER NOT NULL,
		name TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		attributes JSONB NOT NULL DEFAULT '{}'
	);

	CREATE TABLE IF NOT EXISTS semnet_relations (
		position INTEGER PRIMARY KEY,
		source TEXT NOT NULL,
		label TEXT NOT NULL,
		target TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_semnet_nodes_position ON semnet_nodes(position);
	CREATE INDEX IF NOT EXISTS idx_semnet_relations_source ON semnet_relations(source);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

func (s *PGStore) Backend() string { return "postgres" }

// Save replaces the stored snapshot inside one transaction and returns the
// number of rows written.
func (s *PGStore) Save(ctx context.Context, store *knowledge.Store) (int, error) {
	doc := store.Export()

	nodeRows := make([][]any, len(doc.Nodes))
	for i, n := range doc.Nodes {
		fields := n.Fields()
		delete(fields, "type")
		attrs, err := json.Marshal(fields)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal attributes of %q: %w", n.Name, err)
		}
		nodeRows[i] = []any{i, n.Name, string(n.Type), attrs}
	}
	relRows := make([][]any, len(doc.Relations))
	for i, r := range doc.Relations {
		relRows[i] = []any{i, r.Source, r.Label, r.Target}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM semnet_relations`); err != nil {
		return 0, fmt.Errorf("failed to clear relations: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM semnet_nodes`); err != nil {
		return 0, fmt.Errorf("failed to clear nodes: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"semnet_nodes"},
		[]string{"position", "name", "type", "attributes"},
		pgx.CopyFromRows(nodeRows),
	); err != nil {
		return 0, fmt.Errorf("failed to copy nodes: %w", err)
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"semnet_relations"},
		[]string{"position", "source", "label", "target"},
		pgx.CopyFromRows(relRows),
	); err != nil {
		return 0, fmt.Errorf("failed to copy relations: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return len(nodeRows) + len(relRows), nil
}

// Load rebuilds the store from the tables, in stored order.
func (s *PGStore) Load(ctx context.Context) (*knowledge.Store, error) {
	var doc knowledge.Document

	rows, err := s.pool.Query(ctx, `SELECT name, type, attributes FROM semnet_nodes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %w", err)
	}
	for rows.Next() {
		var (
			name, typ string
			raw       []byte
		)
		if err := rows.Scan(&name, &typ, &raw); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan node: %w", err)
		}
		fields := map[string]any{}
		if len(raw) > 0 {
			if fields, err = knowledge.DecodeFields(raw); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to unmarshal attributes of %q: %w", name, err)
			}
			if fields == nil {
				fields = map[string]any{}
			}
		}
		fields["type"] = typ
		doc.Nodes = append(doc.Nodes, knowledge.NodeFromFields(name, fields))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}
	if len(doc.Nodes) == 0 {
		return nil, ErrNoSnapshot
	}

	relations, err := s.pool.Query(ctx, `SELECT source, label, target FROM semnet_relations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query relations: %w", err)
	}
	doc.Relations, err = pgx.CollectRows(relations, func(row pgx.CollectableRow) (knowledge.Relation, error) {
		var r knowledge.Relation
		err := row.Scan(&r.Source, &r.Label, &r.Target)
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read relations: %w", err)
	}

	return restore(doc)
}

// Ping checks database connectivity
func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the database connection pool
func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
