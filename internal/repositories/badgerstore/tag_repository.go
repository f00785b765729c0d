package badgerstore

import (
	"context"
	"slices"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/dgraph-io/badger/v4"
)

func newTagBucket(s *Store) *bucket[entities.Tag] {
	return &bucket[entities.Tag]{
		store:  s,
		kind:   entities.KindTag,
		prefix: prefixTag,
		id:     func(t *entities.Tag) int64 { return t.ID },
		setID:  func(t *entities.Tag, id int64) { t.ID = id },
		name:   func(t *entities.Tag) string { return t.Name },
		check:  (*entities.Tag).Validate,
	}
}

func newRelationTypeBucket(s *Store) *bucket[entities.RelationType] {
	return &bucket[entities.RelationType]{
		store:  s,
		kind:   entities.KindRelationType,
		prefix: prefixRelationType,
		id:     func(rt *entities.RelationType) int64 { return rt.ID },
		setID:  func(rt *entities.RelationType, id int64) { rt.ID = id },
		name:   func(rt *entities.RelationType) string { return rt.Name },
		check:  (*entities.RelationType).Validate,
	}
}

// TagRepository implements repositories.TagRepository on BadgerDB
type TagRepository struct {
	*bucket[entities.Tag]
	entries *bucket[entities.Entry]
}

// Delete removes a tag and detaches it from every entry carrying it
func (r *TagRepository) Delete(ctx context.Context, id int64) (*entities.Tag, error) {
	var old *entities.Tag
	err := r.store.update(func(txn *badger.Txn) error {
		var err error
		if old, err = r.get(txn, id); err != nil {
			return err
		}
		for _, entryID := range scanIDs(txn, key(prefixTagIndex, id)) {
			entry, err := r.entries.get(txn, entryID)
			if err != nil {
				return err
			}
			entry.TagIDs = slices.DeleteFunc(entry.TagIDs, func(tagID int64) bool { return tagID == id })
			if err := setJSON(txn, key(prefixEntry, entryID), entry); err != nil {
				return err
			}
			if err := txn.Delete(key(prefixTagIndex, id, entryID)); err != nil {
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

// RelationTypeRepository implements repositories.RelationTypeRepository on BadgerDB
type RelationTypeRepository struct {
	*bucket[entities.RelationType]
}

// Delete removes a relation type that no relation uses any more
func (r *RelationTypeRepository) Delete(ctx context.Context, id int64) (*entities.RelationType, error) {
	var old *entities.RelationType
	err := r.store.update(func(txn *badger.Txn) error {
		var err error
		if old, err = r.get(txn, id); err != nil {
			return err
		}
		if hasPrefix(txn, key(prefixTypeIndex, id)) {
			return entities.NewInUse(entities.KindRelationType, id)
		}
		return r.remove(txn, old)
	})
	if err != nil {
		return nil, err
	}
	return old, nil
}
