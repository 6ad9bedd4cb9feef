package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/stellar/go/support/db"
	"github.com/stellar/go/support/errors"
)

//go:embed migrations/*.sql
var migrations embed.FS

type ReadWriter interface {
	ReportReader
	NewTx(ctx context.Context) (WriteTx, error)
}

// WriteTx groups report writes. Steps and the case result they belong to
// are committed together.
type WriteTx interface {
	InsertRun(run Run) error
	FinishRun(run Run) error
	InsertCaseResult(result CaseResult) error
	InsertStep(step Step) error
	Commit() error
	Rollback() error
}

func OpenSQLiteDB(dbFilePath string) (*db.Session, error) {
	// 1. Use Write-Ahead Logging (WAL).
	// 2. Disable WAL auto-checkpointing (we will do the checkpointing ourselves with wal_checkpoint pragmas
	//    after every write transaction).
	// 3. Use synchronous=NORMAL, which is faster and still safe in WAL mode.
	// 4. Take the write lock when the transaction begins, so that concurrent case writers queue
	//    on the busy timeout instead of failing on lock upgrades.
	session, err := db.Open("sqlite3", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_wal_autocheckpoint=0&_synchronous=NORMAL&_txlock=immediate&_foreign_keys=on",
		dbFilePath,
	))
	if err != nil {
		return nil, errors.Wrap(err, "open failed")
	}

	if err = runMigrations(session.DB.DB, "sqlite3"); err != nil {
		_ = session.Close()
		return nil, errors.Wrap(err, "could not run migrations")
	}

	return session, nil
}

type readWriter struct {
	reportReader
	db db.SessionInterface
}

func NewReadWriter(db db.SessionInterface) ReadWriter {
	return &readWriter{
		reportReader: reportReader{db: db},
		db:           db,
	}
}

func (rw *readWriter) NewTx(ctx context.Context) (WriteTx, error) {
	txSession := rw.db.Clone()
	if err := txSession.Begin(ctx); err != nil {
		return nil, err
	}
	session := rw.db
	return writeTx{
		postCommit: func() error {
			_, err := session.ExecRaw(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
			return err
		},
		tx:        txSession,
		stmtCache: sq.NewStmtCache(txSession.GetTx()),
	}, nil
}

type writeTx struct {
	postCommit func() error
	tx         db.SessionInterface
	stmtCache  *sq.StmtCache
}

func (w writeTx) Commit() error {
	if err := w.tx.Commit(); err != nil {
		return err
	}
	return w.postCommit()
}

func (w writeTx) Rollback() error {
	// errors.New("not in transaction") is returned when rolling back a transaction which has
	// already been committed or rolled back. We can ignore those errors
	// because we allow rolling back after commits in defer statements.
	if err := w.tx.Rollback(); err == nil || err.Error() == "not in transaction" {
		return nil
	} else {
		return err
	}
}

func runMigrations(db *sql.DB, dialect string) error {
	m := &migrate.AssetMigrationSource{
		Asset: migrations.ReadFile,
		AssetDir: func() func(string) ([]string, error) {
			return func(path string) ([]string, error) {
				dirEntry, err := migrations.ReadDir(path)
				if err != nil {
					return nil, err
				}
				entries := make([]string, 0)
				for _, e := range dirEntry {
					entries = append(entries, e.Name())
				}

				return entries, nil
			}
		}(),
		Dir: "migrations",
	}
	_, err := migrate.ExecMax(db, dialect, m, migrate.Up, 0)
	return err
}
