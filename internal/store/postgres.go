package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// pgLockNotAvailable は lock_timeout 超過時のSQLSTATE。
const pgLockNotAvailable = "55P03"

// PostgresDialect はPostgreSQL用のダイアレクト。
// 文書ごとにトランザクションスコープのアドバイザリロックを正規順で取得する。
var PostgresDialect = Dialect{
	Name:      "postgres",
	ReadQuery: `SELECT body::text FROM documents WHERE name = $1`,
	WriteQuery: `INSERT INTO documents (name, body, updated_at) VALUES ($1, $2::jsonb, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
	Lock:          lockPostgres,
	IsLockTimeout: isPostgresLockTimeout,
}

func lockPostgres(ctx context.Context, tx *sql.Tx, docs []Document, wait time.Duration) error {
	// SETはプレースホルダを受け付けない
	stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds())
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	for _, doc := range docs {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(doc)); err != nil {
			return err
		}
	}
	return nil
}

func isPostgresLockTimeout(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pgLockNotAvailable
	}
	return false
}
