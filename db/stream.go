package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Stream is one in-flight streaming execution. It owns the lease it was
// opened with and guarantees exactly one release across every exit path:
// exhaustion, database error, serialization error, transport error, and
// consumer cancellation.
type Stream struct {
	lease   Lease
	rows    Rows
	release sync.Once
}

// OpenStream starts a row stream for the statement over the given lease.
// Ownership of the lease transfers to the stream; if the open fails the
// lease is released before returning.
func OpenStream(ctx context.Context, lease Lease, query string, params []any) (*Stream, error) {
	rows, err := lease.Query(ctx, query, params...)
	if err != nil {
		lease.Release()
		return nil, fmt.Errorf("execute query: %w", err)
	}
	return &Stream{lease: lease, rows: rows}, nil
}

// Close tears down the cursor and releases the lease. Safe to call more
// than once and concurrently with Run's own teardown.
func (s *Stream) Close() {
	s.release.Do(func() {
		s.rows.Close()
		s.lease.Release()
	})
}

// Run drains the stream into w, one JSON document per row, newline
// terminated. Rows are pulled one at a time and written synchronously, so
// a slow consumer paces the cursor; nothing is buffered ahead of the
// writer beyond the row being encoded. flushEvery sets how many rows are
// written between explicit flushes (values below one flush every row).
//
// Run always closes the stream before returning. A context cancellation
// surfaces as the context's error so callers can tell teardown-by-consumer
// apart from a database fault.
func (s *Stream) Run(ctx context.Context, w io.Writer, flushEvery int) (int64, error) {
	defer s.Close()

	flusher, _ := w.(http.Flusher)
	if flushEvery < 1 {
		flushEvery = 1
	}

	var written int64
	sinceFlush := 0
	for s.rows.Next() {
		values, err := s.rows.Values()
		if err != nil {
			return written, fmt.Errorf("read row: %w", err)
		}
		row := NewRow(columnNames(s.rows.FieldDescriptions()), values)
		line, err := json.Marshal(row)
		if err != nil {
			// A single unserializable row fails the stream; skipping
			// it would silently misreport the result set.
			return written, fmt.Errorf("encode row: %w", err)
		}
		line = append(line, '\n')
		if _, err := w.Write(line); err != nil {
			// A consumer abort can surface as a transport write error
			// before the cursor observes the context.
			if ctxErr := ctx.Err(); ctxErr != nil {
				return written, ctxErr
			}
			return written, fmt.Errorf("write row: %w", err)
		}
		written++
		sinceFlush++
		if flusher != nil && sinceFlush >= flushEvery {
			flusher.Flush()
			sinceFlush = 0
		}
	}

	if err := s.rows.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return written, ctxErr
		}
		return written, fmt.Errorf("row stream: %w", err)
	}
	if flusher != nil && sinceFlush > 0 {
		flusher.Flush()
	}
	return written, nil
}

// IsCancellation reports whether err is the consumer abandoning the
// stream rather than a fault worth logging.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
