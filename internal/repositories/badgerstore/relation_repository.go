package badgerstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/dgraph-io/badger/v4"
)

// RelationRepository implements repositories.RelationRepository on BadgerDB.
// Every relation is indexed by source, by target and by type.
type RelationRepository struct {
	store         *Store
	entries       *bucket[entities.Entry]
	relationTypes *bucket[entities.RelationType]
}

func relationIndexKeys(r *entities.Relation) [][]byte {
	return [][]byte{
		key(prefixOutgoingIndex, r.FromID, r.RelationTypeID, r.ID),
		key(prefixIncomingIndex, r.ToID, r.RelationTypeID, r.ID),
		key(prefixTypeIndex, r.RelationTypeID, r.ID),
	}
}

// Create inserts a relation after checking that both endpoints and the type exist
func (r *RelationRepository) Create(ctx context.Context, relation *entities.Relation) (*entities.Relation, error) {
	if err := relation.Validate(); err != nil {
		return nil, fmt.Errorf("invalid relation: %w", err)
	}
	id, err := r.store.nextID(prefixRelation)
	if err != nil {
		return nil, err
	}

	created := *relation
	created.ID = id
	created.CreatedAt = time.Now().UTC()

	err = r.store.update(func(txn *badger.Txn) error {
		if _, err := r.relationTypes.get(txn, created.RelationTypeID); err != nil {
			return err
		}
		if _, err := r.entries.get(txn, created.FromID); err != nil {
			return err
		}
		if _, err := r.entries.get(txn, created.ToID); err != nil {
			return err
		}
		if err := setJSON(txn, key(prefixRelation, id), &created); err != nil {
			return err
		}
		for _, k := range relationIndexKeys(&created) {
			if err := txn.Set(k, []byte{}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *RelationRepository) get(txn *badger.Txn, id int64) (*entities.Relation, error) {
	relation, err := getJSON[entities.Relation](txn, key(prefixRelation, id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, entities.NewNotFoundByID(entities.KindRelation, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get relation: %w", err)
	}
	return relation, nil
}

func (r *RelationRepository) remove(txn *badger.Txn, relation *entities.Relation) error {
	for _, k := range relationIndexKeys(relation) {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return txn.Delete(key(prefixRelation, relation.ID))
}

// GetByID retrieves a relation by its ID
func (r *RelationRepository) GetByID(ctx context.Context, id int64) (*entities.Relation, error) {
	var relation *entities.Relation
	err := r.store.db.View(func(txn *badger.Txn) error {
		var err error
		relation, err = r.get(txn, id)
		return err
	})
	return relation, err
}

// Delete removes every relation of the given type between from and to
func (r *RelationRepository) Delete(ctx context.Context, relationTypeID, fromID, toID int64) error {
	return r.store.update(func(txn *badger.Txn) error {
		removed := 0
		for _, id := range scanIDs(txn, key(prefixOutgoingIndex, fromID, relationTypeID)) {
			relation, err := r.get(txn, id)
			if err != nil {
				return err
			}
			if relation.ToID != toID {
				continue
			}
			if err := r.remove(txn, relation); err != nil {
				return err
			}
			removed++
		}
		if removed == 0 {
			return &entities.NotFoundError{
				Kind: entities.KindRelation,
				Key:  fmt.Sprintf("type %d from %d to %d", relationTypeID, fromID, toID),
			}
		}
		return nil
	})
}

// DeleteByID removes a single relation
func (r *RelationRepository) DeleteByID(ctx context.Context, id int64) error {
	return r.store.update(func(txn *badger.Txn) error {
		relation, err := r.get(txn, id)
		if err != nil {
			return err
		}
		return r.remove(txn, relation)
	})
}

// DeleteByEntry removes every relation starting or ending at the entry
func (r *RelationRepository) DeleteByEntry(ctx context.Context, entryID int64) (int, error) {
	removed := 0
	err := r.store.update(func(txn *badger.Txn) error {
		removed = 0
		ids := scanIDs(txn, key(prefixOutgoingIndex, entryID))
		ids = append(ids, scanIDs(txn, key(prefixIncomingIndex, entryID))...)

		seen := make(map[int64]struct{}, len(ids))
		for _, id := range ids {
			// self loops show up in both indexes
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}

			relation, err := r.get(txn, id)
			if err != nil {
				return err
			}
			if err := r.remove(txn, relation); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// FindBySourceAndType returns the edges of the given type leaving fromID
func (r *RelationRepository) FindBySourceAndType(ctx context.Context, fromID, relationTypeID int64) ([]*entities.Relation, error) {
	return r.scan(key(prefixOutgoingIndex, fromID, relationTypeID))
}

// FindByTargetAndType returns the edges of the given type entering toID
func (r *RelationRepository) FindByTargetAndType(ctx context.Context, toID, relationTypeID int64) ([]*entities.Relation, error) {
	return r.scan(key(prefixIncomingIndex, toID, relationTypeID))
}

// ListByType returns every relation of a type
func (r *RelationRepository) ListByType(ctx context.Context, relationTypeID int64) ([]*entities.Relation, error) {
	return r.scan(key(prefixTypeIndex, relationTypeID))
}

// ListIncoming returns every relation entering toID
func (r *RelationRepository) ListIncoming(ctx context.Context, toID int64) ([]*entities.Relation, error) {
	return r.scan(key(prefixIncomingIndex, toID))
}

// ListOutgoing returns every relation leaving fromID
func (r *RelationRepository) ListOutgoing(ctx context.Context, fromID int64) ([]*entities.Relation, error) {
	return r.scan(key(prefixOutgoingIndex, fromID))
}

// scan loads the relations behind an index prefix. Within one (entry, type)
// prefix they come back in ID order.
func (r *RelationRepository) scan(prefix []byte) ([]*entities.Relation, error) {
	var relations []*entities.Relation
	err := r.store.db.View(func(txn *badger.Txn) error {
		for _, id := range scanIDs(txn, prefix) {
			relation, err := r.get(txn, id)
			if err != nil {
				return err
			}
			relations = append(relations, relation)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return relations, nil
}
