// ABOUTME: Single serialized write path for the local store.
// ABOUTME: One goroutine runs every mutation in its own transaction, then publishes the change.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

type writeOp struct {
	ctx   context.Context
	colls []Collection
	fn    func(tx *sql.Tx) error
	done  chan error
}

type writer struct {
	db   *sql.DB
	feed *Changefeed
	ops  chan writeOp
	quit chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func newWriter(db *sql.DB, feed *Changefeed) *writer {
	w := &writer{
		db:   db,
		feed: feed,
		ops:  make(chan writeOp),
		quit: make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *writer) run() {
	defer w.wg.Done()
	for {
		select {
		case op := <-w.ops:
			op.done <- w.apply(op)
		case <-w.quit:
			return
		}
	}
}

func (w *writer) apply(op writeOp) error {
	if err := op.ctx.Err(); err != nil {
		return err
	}

	tx, err := w.db.BeginTx(op.ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write: %w", err)
	}

	if err := op.fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit write: %w", err)
	}

	w.feed.Publish(op.colls...)
	return nil
}

// submit queues fn and waits for its result or for ctx to end.
func (w *writer) submit(ctx context.Context, colls []Collection, fn func(tx *sql.Tx) error) error {
	op := writeOp{ctx: ctx, colls: colls, fn: fn, done: make(chan error, 1)}

	select {
	case w.ops <- op:
	case <-ctx.Done():
		return ctx.Err()
	case <-w.quit:
		return ErrClosed
	}

	select {
	case err := <-op.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) close() {
	w.once.Do(func() {
		close(w.quit)
		w.wg.Wait()
	})
}
