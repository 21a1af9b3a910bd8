package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLExecutor покрывает и *sql.DB, и *sql.Tx: методы репозиториев, которые
// должны уметь работать внутри транзакции, принимают его явно.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// TxRunner выполняет fn внутри одной транзакции.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type sqlTxRunner struct {
	db *sql.DB
}

func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

// WithinTx оборачивает fn в транзакцию: rollback при ошибке или панике,
// commit при успехе. Частичное применение многошаговой операции недопустимо.
func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", err, rbErr)
			}
		} else {
			if cErr := tx.Commit(); cErr != nil {
				err = fmt.Errorf("failed to commit transaction: %w", cErr)
			}
		}
	}()

	err = fn(tx)
	return err
}

func checkAffectedRows(result sql.Result, notFoundError error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rowsAffected == 0 {
		return notFoundError
	}
	return nil
}
