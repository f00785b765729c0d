package badgerstore

import (
	"context"
	"fmt"
	"slices"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/dgraph-io/badger/v4"
)

func newEntryBucket(s *Store) *bucket[entities.Entry] {
	return &bucket[entities.Entry]{
		store:  s,
		kind:   entities.KindEntry,
		prefix: prefixEntry,
		id:     func(e *entities.Entry) int64 { return e.ID },
		setID:  func(e *entities.Entry, id int64) { e.ID = id },
		name:   func(e *entities.Entry) string { return e.Name },
		check:  (*entities.Entry).Validate,
	}
}

// EntryRepository implements repositories.EntryRepository on BadgerDB.
// Tag IDs are stored inside the entry value and mirrored in a tag index.
type EntryRepository struct {
	*bucket[entities.Entry]
	tags *bucket[entities.Tag]
}

// Create inserts an entry together with its tags
func (r *EntryRepository) Create(ctx context.Context, entry *entities.Entry) (*entities.Entry, error) {
	if err := r.validate(entry); err != nil {
		return nil, err
	}
	id, err := r.store.nextID(prefixEntry)
	if err != nil {
		return nil, err
	}

	created := *entry
	created.ID = id
	created.TagIDs = sortedIDs(entry.TagIDs)

	err = r.store.update(func(txn *badger.Txn) error {
		for _, tagID := range created.TagIDs {
			if _, err := r.tags.get(txn, tagID); err != nil {
				return err
			}
			if err := txn.Set(key(prefixTagIndex, tagID, id), []byte{}); err != nil {
				return err
			}
		}
		return r.insert(txn, &created)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update overwrites name and description. Tags are left untouched.
func (r *EntryRepository) Update(ctx context.Context, entry *entities.Entry) (*entities.Entry, error) {
	if err := r.validate(entry); err != nil {
		return nil, err
	}

	updated := *entry
	err := r.store.update(func(txn *badger.Txn) error {
		old, err := r.get(txn, entry.ID)
		if err != nil {
			return err
		}
		updated.TagIDs = old.TagIDs
		return r.replace(txn, old, &updated)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes an entry and its tag index. Relations are left in place.
func (r *EntryRepository) Delete(ctx context.Context, id int64) (*entities.Entry, error) {
	var old *entities.Entry
	err := r.store.update(func(txn *badger.Txn) error {
		var err error
		if old, err = r.get(txn, id); err != nil {
			return err
		}
		if hasPrefix(txn, key(prefixTeamTokens, id)) || hasPrefix(txn, key(prefixLeagueIndex, id)) {
			return entities.NewInUse(entities.KindEntry, id)
		}
		for _, tagID := range old.TagIDs {
			if err := txn.Delete(key(prefixTagIndex, tagID, id)); err != nil {
				return err
			}
		}
		return r.remove(txn, old)
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}

// AddTag attaches a tag to an entry. Attaching twice is a no-op.
func (r *EntryRepository) AddTag(ctx context.Context, entryID, tagID int64) error {
	return r.store.update(func(txn *badger.Txn) error {
		entry, err := r.get(txn, entryID)
		if err != nil {
			return err
		}
		if _, err := r.tags.get(txn, tagID); err != nil {
			return err
		}
		if entry.HasTag(tagID) {
			return nil
		}
		entry.TagIDs = sortedIDs(append(entry.TagIDs, tagID))
		if err := txn.Set(key(prefixTagIndex, tagID, entryID), []byte{}); err != nil {
			return err
		}
		return setJSON(txn, key(prefixEntry, entryID), entry)
	})
}

// RemoveTag detaches a tag from an entry
func (r *EntryRepository) RemoveTag(ctx context.Context, entryID, tagID int64) error {
	return r.store.update(func(txn *badger.Txn) error {
		entry, err := r.get(txn, entryID)
		if err != nil {
			return err
		}
		if !entry.HasTag(tagID) {
			return &entities.NotFoundError{
				Kind: entities.KindTag,
				Key:  fmt.Sprintf("ID: %d on entry %d", tagID, entryID),
			}
		}
		entry.TagIDs = slices.DeleteFunc(entry.TagIDs, func(id int64) bool { return id == tagID })
		if err := txn.Delete(key(prefixTagIndex, tagID, entryID)); err != nil {
			return err
		}
		return setJSON(txn, key(prefixEntry, entryID), entry)
	})
}

// ListTags returns the tags attached to an entry
func (r *EntryRepository) ListTags(ctx context.Context, entryID int64) ([]*entities.Tag, error) {
	var tags []*entities.Tag
	err := r.store.db.View(func(txn *badger.Txn) error {
		entry, err := r.get(txn, entryID)
		if err != nil {
			return err
		}
		for _, tagID := range entry.TagIDs {
			tag, err := r.tags.get(txn, tagID)
			if err != nil {
				return err
			}
			tags = append(tags, tag)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func sortedIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
