// File: internal/platform/database/tx.go
package database

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type txKey struct{}

// txState is what a transaction context carries: the open transaction and
// the work to run once it commits.
type txState struct {
	db          *gorm.DB
	afterCommit []func(ctx context.Context)
}

func current(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// Transactor runs a function inside a database transaction that repositories
// pick up from the context through Conn.
type Transactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor bound to db.
func NewTransactor(db *gorm.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction executes fn in a transaction. Nested calls join the
// outer transaction. Returning an error from fn rolls everything back.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if current(ctx) != nil {
		return fn(ctx)
	}
	st := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st.db = tx
		return fn(context.WithValue(ctx, txKey{}, st))
	})
	if err != nil {
		return err
	}
	for _, hook := range st.afterCommit {
		hook(ctx)
	}
	return nil
}

// AfterCommit runs fn once the transaction in ctx commits, and drops it on
// rollback. Without a transaction fn runs right away. fn always gets a
// context outside any transaction.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if st := current(ctx); st != nil {
		st.afterCommit = append(st.afterCommit, fn)
		return
	}
	fn(ctx)
}

// Conn returns the transaction stored in ctx, or db bound to ctx when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if st := current(ctx); st != nil {
		return st.db
	}
	return db.WithContext(ctx)
}

// ForUpdate adds a row lock to the query. SQLite has no row locks and
// serialises writers, so the clause is skipped there.
func ForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "sqlite" {
		return db
	}
	return db.Clauses(clause.Locking{Strength: "UPDATE"})
}
