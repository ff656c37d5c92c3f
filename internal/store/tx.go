package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/planner/internal/model"
)

// Tx はUpdate/Viewのコールバックに渡されるトランザクションハンドル。
// コールバックの外で使用してはならない。
type Tx struct {
	ctx      context.Context
	txn      Txn
	writable bool
	scope    map[Document]bool
	done     bool
}

// Users はユーザー文書を読み込む。
func (tx *Tx) Users() ([]model.User, error) { return decode[model.User](tx, Users) }

// PutUsers はユーザー文書を置き換える。
func (tx *Tx) PutUsers(v []model.User) error { return encode(tx, Users, v) }

// Teams はチーム文書を読み込む。
func (tx *Tx) Teams() ([]model.Team, error) { return decode[model.Team](tx, Teams) }

// PutTeams はチーム文書を置き換える。
func (tx *Tx) PutTeams(v []model.Team) error { return encode(tx, Teams, v) }

// Boards はボード文書を読み込む。
func (tx *Tx) Boards() ([]model.Board, error) { return decode[model.Board](tx, Boards) }

// PutBoards はボード文書を置き換える。
func (tx *Tx) PutBoards(v []model.Board) error { return encode(tx, Boards, v) }

// Tasks はタスク文書を読み込む。
func (tx *Tx) Tasks() ([]model.Task, error) { return decode[model.Task](tx, Tasks) }

// PutTasks はタスク文書を置き換える。
func (tx *Tx) PutTasks(v []model.Task) error { return encode(tx, Tasks, v) }

// Tokens はトークン文書を読み込む。
func (tx *Tx) Tokens() ([]model.Token, error) { return decode[model.Token](tx, Tokens) }

// PutTokens はトークン文書を置き換える。
func (tx *Tx) PutTokens(v []model.Token) error { return encode(tx, Tokens, v) }

func (tx *Tx) check(doc Document) error {
	if tx.done {
		return ErrTxDone
	}
	if !tx.scope[doc] {
		return fmt.Errorf("%w: %s", ErrNotInScope, doc)
	}
	return nil
}

// decode は文書をレコード列として読み込む。
// 存在しない文書と空の文書は空のスライスになる。
func decode[T any](tx *Tx, doc Document) ([]T, error) {
	if err := tx.check(doc); err != nil {
		return nil, err
	}
	data, err := tx.txn.Read(tx.ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", doc, err)
	}

	records := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, doc, err)
	}
	if records == nil {
		// JSONのnullは空の文書として扱う
		records = []T{}
	}
	return records, nil
}

// encode はレコード列で文書全体を置き換える。
func encode[T any](tx *Tx, doc Document, records []T) error {
	if err := tx.check(doc); err != nil {
		return err
	}
	if !tx.writable {
		return ErrReadOnly
	}
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", doc, err)
	}
	if err := tx.txn.Write(tx.ctx, doc, data); err != nil {
		return fmt.Errorf("failed to write %s: %w", doc, err)
	}
	return nil
}
