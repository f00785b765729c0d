package badgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/dgraph-io/badger/v4"
)

// bucket stores one named kind: a value per ID plus a unique name index.
type bucket[T any] struct {
	store  *Store
	kind   string
	prefix byte
	id     func(item *T) int64
	setID  func(item *T, id int64)
	name   func(item *T) string
	check  func(item *T) error
}

func (b *bucket[T]) get(txn *badger.Txn, id int64) (*T, error) {
	item, err := getJSON[T](txn, key(b.prefix, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, entities.NewNotFoundByID(b.kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", b.kind, err)
	}
	return item, nil
}

func (b *bucket[T]) getByName(txn *badger.Txn, name string) (*T, error) {
	item, err := txn.Get(nameKey(b.prefix, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, entities.NewNotFoundByName(b.kind, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s by name: %w", b.kind, err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s name index: %w", b.kind, err)
	}
	return b.get(txn, lastID(raw))
}

// insert writes a new row and claims its name
func (b *bucket[T]) insert(txn *badger.Txn, item *T) error {
	nk := nameKey(b.prefix, b.name(item))
	taken, err := exists(txn, nk)
	if err != nil {
		return err
	}
	if taken {
		return entities.NewConflict(b.kind, b.name(item))
	}
	if err := setJSON(txn, key(b.prefix, b.id(item)), item); err != nil {
		return err
	}
	return txn.Set(nk, encodeID(b.id(item)))
}

// replace overwrites old with item, moving the name index if the name changed
func (b *bucket[T]) replace(txn *badger.Txn, old, item *T) error {
	if oldName, newName := b.name(old), b.name(item); oldName != newName {
		nk := nameKey(b.prefix, newName)
		taken, err := exists(txn, nk)
		if err != nil {
			return err
		}
		if taken {
			return entities.NewConflict(b.kind, newName)
		}
		if err := txn.Delete(nameKey(b.prefix, oldName)); err != nil {
			return err
		}
		if err := txn.Set(nk, encodeID(b.id(item))); err != nil {
			return err
		}
	}
	return setJSON(txn, key(b.prefix, b.id(item)), item)
}

func (b *bucket[T]) remove(txn *badger.Txn, item *T) error {
	if err := txn.Delete(key(b.prefix, b.id(item))); err != nil {
		return err
	}
	return txn.Delete(nameKey(b.prefix, b.name(item)))
}

func (b *bucket[T]) validate(item *T) error {
	if b.check == nil {
		return nil
	}
	if err := b.check(item); err != nil {
		return fmt.Errorf("invalid %s: %w", b.kind, err)
	}
	return nil
}

// GetByID retrieves a row by its ID
func (b *bucket[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	var item *T
	err := b.store.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = b.get(txn, id)
		return err
	})
	return item, err
}

// GetByName retrieves a row by its unique name
func (b *bucket[T]) GetByName(ctx context.Context, name string) (*T, error) {
	var item *T
	err := b.store.db.View(func(txn *badger.Txn) error {
		var err error
		item, err = b.getByName(txn, name)
		return err
	})
	return item, err
}

// Create inserts a row and returns it with its ID assigned
func (b *bucket[T]) Create(ctx context.Context, item *T) (*T, error) {
	if err := b.validate(item); err != nil {
		return nil, err
	}
	id, err := b.store.nextID(b.prefix)
	if err != nil {
		return nil, err
	}

	created := *item
	b.setID(&created, id)
	if err := b.store.update(func(txn *badger.Txn) error {
		return b.insert(txn, &created)
	}); err != nil {
		return nil, err
	}
	return &created, nil
}

// Update overwrites an existing row
func (b *bucket[T]) Update(ctx context.Context, item *T) (*T, error) {
	if err := b.validate(item); err != nil {
		return nil, err
	}

	updated := *item
	if err := b.store.update(func(txn *badger.Txn) error {
		old, err := b.get(txn, b.id(item))
		if err != nil {
			return err
		}
		return b.replace(txn, old, &updated)
	}); err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a row and returns what was removed
func (b *bucket[T]) Delete(ctx context.Context, id int64) (*T, error) {
	var old *T
	err := b.store.update(func(txn *badger.Txn) error {
		var err error
		if old, err = b.get(txn, id); err != nil {
			return err
		}
		return b.remove(txn, old)
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}

// List returns all rows ordered by ID
func (b *bucket[T]) List(ctx context.Context) ([]*T, error) {
	var items []*T
	err := b.store.db.View(func(txn *badger.Txn) error {
		var err error
		items, err = scanJSON[T](txn, []byte{b.prefix})
		return err
	})
	return items, err
}
