package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// lockRetryDelay はファイルロック取得を再試行する間隔。
const lockRetryDelay = 10 * time.Millisecond

// FileBackend は文書ごとに1つのJSONファイルを使うバックエンド。
//
// 同一プロセス内の排他は文書ごとのセマフォで、プロセス間の排他は
// "<path>.lock" に対するflockで行う。書き込みは一時ファイルへ書いてから
// renameで置き換えるため、読み手が途中状態を観測することはない。
type FileBackend struct {
	paths map[Document]string
	sems  map[Document]chan struct{}
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend はdir配下に文書ファイルを置くFileBackendを生成する。
// pathsで文書ごとのファイルパスを上書きできる。相対パスはdirからの相対とする。
func NewFileBackend(dir string, paths map[Document]string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	b := &FileBackend{
		paths: make(map[Document]string, len(AllDocuments)),
		sems:  make(map[Document]chan struct{}, len(AllDocuments)),
	}
	used := make(map[string]Document, len(AllDocuments))
	for _, doc := range AllDocuments {
		p := filepath.Join(dir, string(doc)+".json")
		if override, ok := paths[doc]; ok && override != "" {
			p = override
			if !filepath.IsAbs(p) {
				p = filepath.Join(dir, p)
			}
		}
		p = filepath.Clean(p)
		if other, ok := used[p]; ok {
			return nil, fmt.Errorf("documents %s and %s share the same file: %s", other, doc, p)
		}
		used[p] = doc
		b.paths[doc] = p
		b.sems[doc] = make(chan struct{}, 1)
	}
	return b, nil
}

// Path は文書のファイルパスを返す。
func (b *FileBackend) Path(doc Document) string {
	return b.paths[doc]
}

// Begin は文書ごとにセマフォとflockを順に取得する。
// いずれかの取得に失敗した場合は取得済みのロックをすべて解放する。
func (b *FileBackend) Begin(ctx context.Context, docs []Document, wait time.Duration) (Txn, error) {
	lockCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	txn := &fileTxn{
		backend: b,
		scope:   make(map[Document]bool, len(docs)),
		staged:  make(map[Document][]byte),
	}
	for _, doc := range docs {
		h, err := b.acquire(lockCtx, doc)
		if err != nil {
			txn.release()
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, doc)
			}
			return nil, err
		}
		txn.held = append(txn.held, h)
		txn.scope[doc] = true
	}
	return txn, nil
}

func (b *FileBackend) acquire(ctx context.Context, doc Document) (*heldLock, error) {
	sem, ok := b.sems[doc]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDocument, string(doc))
	}

	select {
	case sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	path := b.paths[doc]
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		<-sem
		return nil, fmt.Errorf("failed to create directory for %s: %w", doc, err)
	}

	fl := flock.New(path + ".lock")
	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		<-sem
		return nil, err
	}
	if !locked {
		<-sem
		return nil, context.DeadlineExceeded
	}
	return &heldLock{doc: doc, sem: sem, file: fl}, nil
}

// Ping はすべての文書ディレクトリにアクセスできるかを確認する。
func (b *FileBackend) Ping(ctx context.Context) error {
	for _, doc := range AllDocuments {
		if _, err := os.Stat(filepath.Dir(b.paths[doc])); err != nil {
			return fmt.Errorf("data directory for %s is not accessible: %w", doc, err)
		}
	}
	return nil
}

// Close は何もしない。
func (b *FileBackend) Close() error {
	return nil
}

type heldLock struct {
	doc  Document
	sem  chan struct{}
	file *flock.Flock
}

type fileTxn struct {
	backend *FileBackend
	held    []*heldLock
	scope   map[Document]bool
	staged  map[Document][]byte
	done    bool
}

func (t *fileTxn) Read(ctx context.Context, doc Document) ([]byte, error) {
	if t.done {
		return nil, ErrTxDone
	}
	if !t.scope[doc] {
		return nil, fmt.Errorf("%w: %s", ErrNotInScope, doc)
	}
	if data, ok := t.staged[doc]; ok {
		return data, nil
	}
	data, err := os.ReadFile(t.backend.paths[doc])
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (t *fileTxn) Write(ctx context.Context, doc Document, data []byte) error {
	if t.done {
		return ErrTxDone
	}
	if !t.scope[doc] {
		return fmt.Errorf("%w: %s", ErrNotInScope, doc)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	t.staged[doc] = buf
	return nil
}

// Commit は書き込まれた文書を正規順にファイルへ反映してからロックを解放する。
// 途中の文書で失敗した場合、それより前に置き換えた文書は元に戻さない。
func (t *fileTxn) Commit(ctx context.Context) error {
	if t.done {
		return ErrTxDone
	}
	defer t.release()

	for _, h := range t.held {
		data, ok := t.staged[h.doc]
		if !ok {
			continue
		}
		if err := WriteFileAtomic(t.backend.paths[h.doc], data); err != nil {
			return fmt.Errorf("failed to write %s: %w", h.doc, err)
		}
	}
	return nil
}

func (t *fileTxn) Rollback() error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

// release は取得順の逆順でロックを解放する。
func (t *fileTxn) release() {
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		h := t.held[i]
		_ = h.file.Unlock()
		<-h.sem
	}
	t.held = nil
}

// WriteFileAtomic は同じディレクトリの一時ファイルに書き込み、
// fsyncしてからrenameで置き換える。
func WriteFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
