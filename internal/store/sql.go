package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Dialect はSQLバックエンドのデータベース固有部分を表す。
type Dialect struct {
	// Name はログ等に使うダイアレクト名。
	Name string
	// ReadQuery は文書名を受け取りbodyを1列返すクエリ。
	ReadQuery string
	// WriteQuery は文書名とbodyを受け取り文書をupsertするクエリ。
	WriteQuery string
	// Lock はトランザクション開始直後に文書ロックを取得する。nilの場合は何もしない。
	Lock func(ctx context.Context, tx *sql.Tx, docs []Document, wait time.Duration) error
	// IsLockTimeout はエラーがロック待ちの時間切れかどうかを判定する。
	IsLockTimeout func(err error) bool
}

// SQLBackend は documents テーブルの1行を1文書として扱うバックエンド。
type SQLBackend struct {
	db      *sql.DB
	dialect Dialect
}

var _ Backend = (*SQLBackend)(nil)

// NewSQLBackend はマイグレーション済みのDBを使うSQLBackendを生成する。
func NewSQLBackend(db *sql.DB, dialect Dialect) *SQLBackend {
	return &SQLBackend{db: db, dialect: dialect}
}

// Begin はDBトランザクションを開始し、ダイアレクトのロックを取得する。
func (b *SQLBackend) Begin(ctx context.Context, docs []Document, wait time.Duration) (Txn, error) {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, b.classify(err)
	}
	if b.dialect.Lock != nil {
		if err := b.dialect.Lock(ctx, tx, docs, wait); err != nil {
			_ = tx.Rollback()
			return nil, b.classify(err)
		}
	}

	scope := make(map[Document]bool, len(docs))
	for _, d := range docs {
		scope[d] = true
	}
	return &sqlTxn{tx: tx, dialect: b.dialect, scope: scope}, nil
}

func (b *SQLBackend) classify(err error) error {
	if b.dialect.IsLockTimeout != nil && b.dialect.IsLockTimeout(err) {
		return fmt.Errorf("%w: %v", ErrLockTimeout, err)
	}
	return fmt.Errorf("failed to begin %s transaction: %w", b.dialect.Name, err)
}

// Ping はDBの疎通を確認する。
func (b *SQLBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}

// Close はDB接続を閉じる。
func (b *SQLBackend) Close() error {
	return b.db.Close()
}

type sqlTxn struct {
	tx      *sql.Tx
	dialect Dialect
	scope   map[Document]bool
	done    bool
}

func (t *sqlTxn) Read(ctx context.Context, doc Document) ([]byte, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if !t.scope[doc] {
		return nil, fmt.Errorf("%w: %s", ErrNotInScope, doc)
	}
	var body string
	err := t.tx.QueryRowContext(ctx, t.dialect.ReadQuery, string(doc)).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(body), nil
}

func (t *sqlTxn) Write(ctx context.Context, doc Document, data []byte) error {
	if t.done {
		return ErrTxDone
	}
	if !t.scope[doc] {
		return fmt.Errorf("%w: %s", ErrNotInScope, doc)
	}
	_, err := t.tx.ExecContext(ctx, t.dialect.WriteQuery, string(doc), string(data))
	return err
}

func (t *sqlTxn) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	t.done = true
	return t.tx.Commit()
}

func (t *sqlTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
