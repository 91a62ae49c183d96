package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/joestump/memedex/internal/catalog"
)

// ErrInjected is the error returned by a FaultStore when a fault fires.
var ErrInjected = errors.New("injected store failure")

// FaultStore wraps a catalog.Store and fails the named transaction
// operation (for example "IncrementTagCount") the next time it runs.
type FaultStore struct {
	catalog.Store

	mu     sync.Mutex
	failOn map[string]int
	calls  map[string]int
}

// NewFaultStore wraps s with no faults armed.
func NewFaultStore(s catalog.Store) *FaultStore {
	return &FaultStore{Store: s, failOn: map[string]int{}, calls: map[string]int{}}
}

// FailOn arms a fault: the nth call (1-based, counted from now) to op fails.
func (f *FaultStore) FailOn(op string, nth int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOn[op] = f.calls[op] + nth
}

// Calls returns how many times op has been invoked.
func (f *FaultStore) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultStore) hit(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if n, ok := f.failOn[op]; ok && n == f.calls[op] {
		delete(f.failOn, op)
		return ErrInjected
	}
	return nil
}

func (f *FaultStore) WithTx(ctx context.Context, fn func(catalog.StoreTx) error) error {
	if err := f.hit("WithTx"); err != nil {
		return err
	}
	return f.Store.WithTx(ctx, func(tx catalog.StoreTx) error {
		return fn(&faultTx{StoreTx: tx, f: f})
	})
}

type faultTx struct {
	catalog.StoreTx
	f *FaultStore
}

func (t *faultTx) InsertItem(ctx context.Context, item catalog.Item) (int64, error) {
	if err := t.f.hit("InsertItem"); err != nil {
		return 0, err
	}
	return t.StoreTx.InsertItem(ctx, item)
}

func (t *faultTx) RenameItem(ctx context.Context, oldTitle, newTitle string) error {
	if err := t.f.hit("RenameItem"); err != nil {
		return err
	}
	return t.StoreTx.RenameItem(ctx, oldTitle, newTitle)
}

func (t *faultTx) UpdateLikes(ctx context.Context, title string, likes int) error {
	if err := t.f.hit("UpdateLikes"); err != nil {
		return err
	}
	return t.StoreTx.UpdateLikes(ctx, title, likes)
}

func (t *faultTx) DeleteItem(ctx context.Context, title string) error {
	if err := t.f.hit("DeleteItem"); err != nil {
		return err
	}
	return t.StoreTx.DeleteItem(ctx, title)
}

func (t *faultTx) RegisterTag(ctx context.Context, title string) error {
	if err := t.f.hit("RegisterTag"); err != nil {
		return err
	}
	return t.StoreTx.RegisterTag(ctx, title)
}

func (t *faultTx) DeleteTag(ctx context.Context, title string) error {
	if err := t.f.hit("DeleteTag"); err != nil {
		return err
	}
	return t.StoreTx.DeleteTag(ctx, title)
}

func (t *faultTx) UpsertTagLink(ctx context.Context, tagTitle, itemTitle string) error {
	if err := t.f.hit("UpsertTagLink"); err != nil {
		return err
	}
	return t.StoreTx.UpsertTagLink(ctx, tagTitle, itemTitle)
}

func (t *faultTx) RemoveTagLink(ctx context.Context, tagTitle, itemTitle string) error {
	if err := t.f.hit("RemoveTagLink"); err != nil {
		return err
	}
	return t.StoreTx.RemoveTagLink(ctx, tagTitle, itemTitle)
}

func (t *faultTx) IncrementTagCount(ctx context.Context, tagTitle string) error {
	if err := t.f.hit("IncrementTagCount"); err != nil {
		return err
	}
	return t.StoreTx.IncrementTagCount(ctx, tagTitle)
}

func (t *faultTx) DecrementTagCount(ctx context.Context, tagTitle string) error {
	if err := t.f.hit("DecrementTagCount"); err != nil {
		return err
	}
	return t.StoreTx.DecrementTagCount(ctx, tagTitle)
}
