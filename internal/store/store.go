// Package store はコレクション単位のJSON文書を排他制御付きで読み書きする。
//
// 各コレクション（users, teams, boards, tasks, tokens）は1つの文書として
// 丸ごと読み込み・丸ごと書き戻す。Update/View は指定された全文書のロックを
// 正規順で取得し、読み込みから書き戻しまでを1つのロック区間で実行する。
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Document は永続化される文書（コレクション）の識別子。
type Document string

const (
	Users  Document = "users"
	Teams  Document = "teams"
	Boards Document = "boards"
	Tasks  Document = "tasks"
	Tokens Document = "tokens"
)

// AllDocuments は既知の全文書を正規順（ロック取得順）で並べたもの。
var AllDocuments = []Document{Boards, Tasks, Teams, Tokens, Users}

// DefaultLockTimeout はロック待ちの既定上限。
const DefaultLockTimeout = 5 * time.Second

var (
	// ErrLockTimeout はロック待ちが上限時間を超えた場合に返る。
	ErrLockTimeout = errors.New("store: lock wait timed out")
	// ErrDecode は文書がJSONとして解析できない場合に返る。
	ErrDecode = errors.New("store: document could not be decoded")
	// ErrUnknownDocument は未知の文書名が指定された場合に返る。
	ErrUnknownDocument = errors.New("store: unknown document")
	// ErrNotInScope はトランザクション開始時に指定していない文書へアクセスした場合に返る。
	ErrNotInScope = errors.New("store: document is not part of the transaction")
	// ErrReadOnly は読み取り専用トランザクションで書き込みを行った場合に返る。
	ErrReadOnly = errors.New("store: transaction is read-only")
	// ErrTxDone は終了済みトランザクションを操作した場合に返る。
	ErrTxDone = errors.New("store: transaction already finished")
)

// Backend は文書の生バイト列を扱う永続化バックエンド。
type Backend interface {
	// Begin は指定文書のロックを取得してトランザクションを開始する。
	// docsは正規順・重複なしで渡される。waitはロック待ちの上限で、
	// 超過した場合はErrLockTimeoutを返す。
	Begin(ctx context.Context, docs []Document, wait time.Duration) (Txn, error)
	// Ping はバックエンドが利用可能かを確認する。
	Ping(ctx context.Context) error
	// Close はバックエンドが保持するリソースを解放する。
	Close() error
}

// Txn はバックエンド上の1トランザクション。
type Txn interface {
	// Read は文書の内容を返す。文書が存在しない場合はnilを返す。
	// 同一トランザクション内でWriteした内容はReadに反映される。
	Read(ctx context.Context, doc Document) ([]byte, error)
	// Write は文書全体を置き換える。
	Write(ctx context.Context, doc Document, data []byte) error
	// Commit は書き込みを確定してロックを解放する。
	Commit(ctx context.Context) error
	// Rollback は書き込みを破棄してロックを解放する。Commit後の呼び出しは何もしない。
	Rollback() error
}

// Observer はトランザクションの計測値を受け取る。
type Observer interface {
	ObserveLockWait(mode string, d time.Duration, timedOut bool)
	ObserveTransaction(mode string, d time.Duration, err error)
}

// Transactor はドメインサービスが利用するトランザクション境界。
type Transactor interface {
	Update(ctx context.Context, fn func(tx *Tx) error, docs ...Document) error
	View(ctx context.Context, fn func(tx *Tx) error, docs ...Document) error
}

var _ Transactor = (*Store)(nil)

// Store は文書の読み書きとトランザクション境界を提供する。
type Store struct {
	backend     Backend
	lockTimeout time.Duration
	observer    Observer
}

// Option はStoreの設定を変更する。
type Option func(*Store)

// WithLockTimeout はロック待ちの上限を設定する。
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithObserver は計測値の送り先を設定する。
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// New は指定バックエンドを使うStoreを生成する。
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:     backend,
		lockTimeout: DefaultLockTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping はバックエンドの疎通を確認する。
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// Close はバックエンドを閉じる。
func (s *Store) Close() error {
	return s.backend.Close()
}

// View は指定文書を読み取り専用で開き、fnを実行する。
func (s *Store) View(ctx context.Context, fn func(tx *Tx) error, docs ...Document) error {
	return s.run(ctx, "view", false, fn, docs)
}

// Update は指定文書を書き込み可能で開き、fnを実行する。
// fnがエラーを返した場合は何も永続化しない。
// fnが変更した文書だけがコミット時に書き戻される。
//
// コミット自体が失敗した場合の扱いはバックエンドによる。SQLBackendでは
// 全文書がロールバックされる。FileBackendでは文書ごとにrenameで置き換えるため、
// 正規順で先に書き込まれた文書は残り、エラーが返っても部分的に永続化されていることがある。
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error, docs ...Document) error {
	return s.run(ctx, "update", true, fn, docs)
}

func (s *Store) run(ctx context.Context, mode string, writable bool, fn func(tx *Tx) error, docs []Document) (err error) {
	ordered, err := normalize(docs)
	if err != nil {
		return err
	}

	start := time.Now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveTransaction(mode, time.Since(start), err)
		}
	}()

	txn, err := s.begin(ctx, mode, ordered)
	if err != nil {
		return err
	}

	tx := &Tx{
		ctx:      ctx,
		txn:      txn,
		writable: writable,
		scope:    make(map[Document]bool, len(ordered)),
	}
	for _, d := range ordered {
		tx.scope[d] = true
	}

	committed := false
	defer func() {
		tx.done = true
		if !committed {
			if rbErr := txn.Rollback(); rbErr != nil {
				slog.Error("failed to roll back store transaction",
					slog.String("error", rbErr.Error()),
				)
			}
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := txn.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit %v: %w", ordered, err)
	}
	committed = true
	return nil
}

func (s *Store) begin(ctx context.Context, mode string, docs []Document) (Txn, error) {
	waitStart := time.Now()
	txn, err := s.backend.Begin(ctx, docs, s.lockTimeout)
	timedOut := errors.Is(err, ErrLockTimeout)
	if s.observer != nil {
		s.observer.ObserveLockWait(mode, time.Since(waitStart), timedOut)
	}
	if err != nil {
		if timedOut {
			slog.Warn("store lock wait timed out",
				slog.Any("documents", docs),
				slog.Duration("timeout", s.lockTimeout),
			)
			return nil, err
		}
		return nil, fmt.Errorf("failed to lock %v: %w", docs, err)
	}
	return txn, nil
}

// normalize は文書名を検証し、正規順に並べて重複を除く。
func normalize(docs []Document) ([]Document, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no document specified", ErrUnknownDocument)
	}
	seen := make(map[Document]bool, len(docs))
	out := make([]Document, 0, len(docs))
	for _, d := range docs {
		if !d.known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, string(d))
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (d Document) known() bool {
	for _, k := range AllDocuments {
		if d == k {
			return true
		}
	}
	return false
}

// Load は文書を読み込み、レコード列として返す。
// 文書が存在しない場合は空のスライスを返す。
func Load[T any](ctx context.Context, s *Store, doc Document) ([]T, error) {
	var records []T
	err := s.View(ctx, func(tx *Tx) error {
		var err error
		records, err = decode[T](tx, doc)
		return err
	}, doc)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Save は文書全体をレコード列で置き換える。
func Save[T any](ctx context.Context, s *Store, doc Document, records []T) error {
	return s.Update(ctx, func(tx *Tx) error {
		return encode(tx, doc, records)
	}, doc)
}
