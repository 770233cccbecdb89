package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the subset of *pgxpool.Pool the collection needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresCollection stores documents in a table shaped as
// (id TEXT PRIMARY KEY, doc JSONB, created_at, updated_at).
type PostgresCollection struct {
	pool  Pool
	name  string
	table string
}

func NewPostgresCollection(pool Pool, name string) *PostgresCollection {
	return &PostgresCollection{
		pool:  pool,
		name:  name,
		table: pgx.Identifier{name}.Sanitize(),
	}
}

func (c *PostgresCollection) Name() string { return c.name }

func (c *PostgresCollection) InsertOne(ctx context.Context, rec Record) (Record, error) {
	q := `INSERT INTO ` + c.table + ` (id, doc) VALUES ($1, $2::jsonb) RETURNING id, doc`

	var out Record
	err := c.pool.QueryRow(ctx, q, rec.ID, string(rec.Doc)).Scan(&out.ID, &out.Doc)
	if err != nil {
		return Record{}, classify("insert "+c.name, err)
	}
	return out, nil
}

func (c *PostgresCollection) FindOne(ctx context.Context, filter Filter) (Record, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return Record{}, err
	}
	q := `SELECT id, doc FROM ` + c.table + ` WHERE ` + where + ` ORDER BY created_at, id LIMIT 1`

	var out Record
	if err := c.pool.QueryRow(ctx, q, args...).Scan(&out.ID, &out.Doc); err != nil {
		return Record{}, classify("find one "+c.name, err)
	}
	return out, nil
}

func (c *PostgresCollection) Find(ctx context.Context, filter Filter) ([]Record, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, doc FROM ` + c.table + ` WHERE ` + where + ` ORDER BY created_at, id`

	rows, err := c.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, classify("find "+c.name, err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Doc); err != nil {
			return nil, classify("find "+c.name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("find "+c.name, err)
	}
	return out, nil
}

func (c *PostgresCollection) FindOneAndUpdate(ctx context.Context, filter Filter, patch Patch) (Record, error) {
	body, err := json.Marshal(patch)
	if err != nil {
		return Record{}, fmt.Errorf("encode patch: %w", err)
	}
	where, args, err := buildWhere(filter, 2)
	if err != nil {
		return Record{}, err
	}
	q := `UPDATE ` + c.table + ` SET doc = doc || $1::jsonb, updated_at = now()
		WHERE id = (SELECT id FROM ` + c.table + ` WHERE ` + where + ` ORDER BY created_at, id LIMIT 1 FOR UPDATE)
		RETURNING id, doc`

	var out Record
	err = c.pool.QueryRow(ctx, q, append([]any{string(body)}, args...)...).Scan(&out.ID, &out.Doc)
	if err != nil {
		return Record{}, classify("update "+c.name, err)
	}
	return out, nil
}

func (c *PostgresCollection) FindOneAndDelete(ctx context.Context, filter Filter) (Record, error) {
	where, args, err := buildWhere(filter, 1)
	if err != nil {
		return Record{}, err
	}
	q := `DELETE FROM ` + c.table + `
		WHERE id = (SELECT id FROM ` + c.table + ` WHERE ` + where + ` ORDER BY created_at, id LIMIT 1 FOR UPDATE)
		RETURNING id, doc`

	var out Record
	if err := c.pool.QueryRow(ctx, q, args...).Scan(&out.ID, &out.Doc); err != nil {
		return Record{}, classify("delete "+c.name, err)
	}
	return out, nil
}

// buildWhere turns a filter into a predicate whose placeholders start at
// $first. The identifier is matched on its column; every other field is
// matched with JSONB containment, which is equality for scalar values.
func buildWhere(filter Filter, first int) (string, []any, error) {
	var (
		clauses []string
		args    []any
		fields  = make(map[string]any, len(filter))
	)
	for k, v := range filter {
		if k == IDField {
			id, ok := v.(string)
			if !ok {
				return "", nil, fmt.Errorf("filter %s must be a string, got %T", IDField, v)
			}
			args = append(args, id)
			clauses = append(clauses, fmt.Sprintf("id = $%d", first+len(args)-1))
			continue
		}
		fields[k] = v
	}
	if len(fields) > 0 {
		body, err := json.Marshal(fields)
		if err != nil {
			return "", nil, fmt.Errorf("encode filter: %w", err)
		}
		args = append(args, string(body))
		clauses = append(clauses, fmt.Sprintf("doc @> $%d::jsonb", first+len(args)-1))
	}
	if len(clauses) == 0 {
		return "TRUE", nil, nil
	}
	return strings.Join(clauses, " AND "), args, nil
}

// classify maps driver errors onto the package sentinels, keeping the
// original error in the chain.
func classify(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNoDocuments)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgerrcode.IsIntegrityConstraintViolation(pgErr.Code):
			return fmt.Errorf("%s: %w: %w", op, ErrConstraint, err)
		case pgerrcode.IsConnectionException(pgErr.Code),
			pgerrcode.IsInsufficientResources(pgErr.Code),
			pgerrcode.IsOperatorIntervention(pgErr.Code):
			return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	var (
		connectErr *pgconn.ConnectError
		netErr     net.Error
	)
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) ||
		errors.As(err, &connectErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
