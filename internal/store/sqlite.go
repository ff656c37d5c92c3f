package store

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

// SQLiteDialect はSQLite用のダイアレクト。
//
// SQLiteのロックはデータベース全体に対するもので、文書単位のロックは持たない。
// 接続は "_txlock=immediate" で開き、BEGIN IMMEDIATE によって読み込み時点で
// 書き込みロックを取得する。ロック待ちの上限は "_busy_timeout" で与える。
var SQLiteDialect = Dialect{
	Name:      "sqlite",
	ReadQuery: `SELECT body FROM documents WHERE name = ?`,
	WriteQuery: `INSERT INTO documents (name, body, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
	IsLockTimeout: isSQLiteBusy,
}

func isSQLiteBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
