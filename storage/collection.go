package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no document has the requested id or key.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when an id or unique key is already taken.
	ErrConflict = errors.New("storage: conflict")
)

// Collection is a typed repository over one named set of JSON documents.
// Documents keep their insertion order.
type Collection[T any] struct {
	db     *DB
	name   string
	id     func(*T) string
	unique func(*T) string
}

// NewCollection binds a collection name to a document type. idOf must return a
// non-empty id; uniqueOf may be nil when the collection has no secondary key.
func NewCollection[T any](db *DB, name string, idOf, uniqueOf func(*T) string) *Collection[T] {
	return &Collection[T]{db: db, name: name, id: idOf, unique: uniqueOf}
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (c *Collection[T]) keys(item *T) (string, any, error) {
	id := c.id(item)
	if id == "" {
		return "", nil, fmt.Errorf("storage: %s: document without id", c.name)
	}
	var unique any
	if c.unique != nil {
		if k := c.unique(item); k != "" {
			unique = k
		}
	}
	return id, unique, nil
}

func decode[T any](body []byte) (*T, error) {
	var item T
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("storage: decode: %w", err)
	}
	return &item, nil
}

// Get returns the document with the given id.
func (c *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	return c.getOne(ctx, c.db.sql, "id", id, "")
}

// FindByUnique returns the document whose unique key equals key.
func (c *Collection[T]) FindByUnique(ctx context.Context, key string) (*T, error) {
	return c.getOne(ctx, c.db.sql, "unique_key", key, "")
}

func (c *Collection[T]) getOne(ctx context.Context, q querier, column, value, suffix string) (*T, error) {
	query := c.db.rebind(fmt.Sprintf(
		"SELECT body FROM documents WHERE collection = ? AND %s = ?%s", column, suffix))

	var body []byte
	err := q.QueryRowContext(ctx, query, c.name, value).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get %s: %w", c.name, err)
	}
	return decode[T](body)
}

// List returns every document in insertion order.
func (c *Collection[T]) List(ctx context.Context) ([]*T, error) {
	return c.Find(ctx, nil)
}

// Find returns the documents matching pred, in insertion order. A nil pred
// matches everything.
func (c *Collection[T]) Find(ctx context.Context, pred func(*T) bool) ([]*T, error) {
	rows, err := c.db.sql.QueryContext(ctx,
		c.db.rebind("SELECT body FROM documents WHERE collection = ? ORDER BY seq"), c.name)
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", c.name, err)
	}
	defer rows.Close()

	out := make([]*T, 0)
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("storage: scan %s: %w", c.name, err)
		}
		item, err := decode[T](body)
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(item) {
			out = append(out, item)
		}
	}
	return out, rows.Err()
}

// FindOne returns the first document matching pred.
func (c *Collection[T]) FindOne(ctx context.Context, pred func(*T) bool) (*T, error) {
	items, err := c.Find(ctx, pred)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

// Insert stores a new document. It fails with ErrConflict when the id or the
// unique key is already present.
func (c *Collection[T]) Insert(ctx context.Context, item *T) error {
	return c.insert(ctx, c.db.sql, item)
}

func (c *Collection[T]) insert(ctx context.Context, q querier, item *T) error {
	id, unique, err := c.keys(item)
	if err != nil {
		return err
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", c.name, err)
	}

	_, err = q.ExecContext(ctx, c.db.rebind(
		"INSERT INTO documents (collection, id, unique_key, body) VALUES (?, ?, ?, ?)"),
		c.name, id, unique, string(body))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", ErrConflict, c.name, id)
		}
		return fmt.Errorf("storage: insert %s: %w", c.name, err)
	}
	return nil
}

// Put inserts or replaces the document with the item's id. Taking another
// document's unique key still fails with ErrConflict.
func (c *Collection[T]) Put(ctx context.Context, item *T) error {
	return c.put(ctx, c.db.sql, item)
}

func (c *Collection[T]) put(ctx context.Context, q querier, item *T) error {
	id, unique, err := c.keys(item)
	if err != nil {
		return err
	}
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", c.name, err)
	}

	_, err = q.ExecContext(ctx, c.db.rebind(`
		INSERT INTO documents (collection, id, unique_key, body) VALUES (?, ?, ?, ?)
		ON CONFLICT (collection, id) DO UPDATE SET
			unique_key = excluded.unique_key,
			body       = excluded.body,
			updated_at = CURRENT_TIMESTAMP`),
		c.name, id, unique, string(body))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s %s", ErrConflict, c.name, id)
		}
		return fmt.Errorf("storage: put %s: %w", c.name, err)
	}
	return nil
}

// Append inserts all items in one transaction; either all are stored or none.
func (c *Collection[T]) Append(ctx context.Context, items ...*T) error {
	if len(items) == 0 {
		return nil
	}
	return c.db.withTx(ctx, func(tx *sql.Tx) error {
		for _, item := range items {
			if err := c.insert(ctx, tx, item); err != nil {
				return err
			}
		}
		return nil
	})
}

// Update loads the document with id, applies fn and writes the result back
// inside one transaction. An error from fn aborts the write.
func (c *Collection[T]) Update(ctx context.Context, id string, fn func(*T) error) (*T, error) {
	var updated *T
	err := c.db.withTx(ctx, func(tx *sql.Tx) error {
		item, err := c.getOne(ctx, tx, "id", id, c.db.dialect.lockForEdit)
		if err != nil {
			return err
		}
		if err := fn(item); err != nil {
			return err
		}
		if newID := c.id(item); newID != id {
			return fmt.Errorf("storage: %s: update changed id %q to %q", c.name, id, newID)
		}
		if err := c.put(ctx, tx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the document with id. Missing documents yield ErrNotFound.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	res, err := c.db.sql.ExecContext(ctx,
		c.db.rebind("DELETE FROM documents WHERE collection = ? AND id = ?"), c.name, id)
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", c.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("storage: delete %s: %w", c.name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the number of documents in the collection.
func (c *Collection[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := c.db.sql.QueryRowContext(ctx,
		c.db.rebind("SELECT COUNT(*) FROM documents WHERE collection = ?"), c.name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("storage: count %s: %w", c.name, err)
	}
	return n, nil
}

// Clear removes every document and returns how many were deleted.
func (c *Collection[T]) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.sql.ExecContext(ctx,
		c.db.rebind("DELETE FROM documents WHERE collection = ?"), c.name)
	if err != nil {
		return 0, fmt.Errorf("storage: clear %s: %w", c.name, err)
	}
	return res.RowsAffected()
}
