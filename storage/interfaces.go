package storage

import "context"

// Repository is the persistence contract services depend on. Collection
// satisfies it for every document type.
type Repository[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	FindByUnique(ctx context.Context, key string) (*T, error)
	List(ctx context.Context) ([]*T, error)
	Find(ctx context.Context, pred func(*T) bool) ([]*T, error)
	FindOne(ctx context.Context, pred func(*T) bool) (*T, error)
	Insert(ctx context.Context, item *T) error
	Put(ctx context.Context, item *T) error
	Append(ctx context.Context, items ...*T) error
	Update(ctx context.Context, id string, fn func(*T) error) (*T, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) (int64, error)
}

// RecordWriter streams tabular records to an export sink.
type RecordWriter interface {
	WriteHeader(columns []string) error
	WriteRecords(rows [][]string) error
	Close() error
}
