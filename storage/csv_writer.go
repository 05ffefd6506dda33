package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"
)

// CSVWriter writes rows to any io.Writer. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	closer io.Closer
	writer *csv.Writer
}

// NewCSVWriter wraps w. If w is also an io.Closer it is closed by Close.
func NewCSVWriter(w io.Writer) *CSVWriter {
	c := &CSVWriter{writer: csv.NewWriter(w)}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// WriteHeader writes the column row.
func (c *CSVWriter) WriteHeader(columns []string) error {
	return c.WriteRecords([][]string{columns})
}

// WriteRecords writes rows and flushes them.
func (c *CSVWriter) WriteRecords(rows [][]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying writer when it is closable.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.writer.Flush()
	if err := c.writer.Error(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
