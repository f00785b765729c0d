package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/asakaida/eurocore/internal/entities"
	"github.com/asakaida/eurocore/internal/repositories"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// PostgresEntryRepository implements EntryRepository using PostgreSQL.
// Tag associations live in entry_tags and are loaded with every entry.
type PostgresEntryRepository struct {
	db    *sqlx.DB
	table *namedTable[entities.Entry]
	tags  *namedTable[entities.Tag]
}

// NewPostgresEntryRepository creates a new PostgreSQL entry repository
func NewPostgresEntryRepository(db *sqlx.DB) repositories.EntryRepository {
	return &PostgresEntryRepository{
		db:    db,
		table: newEntryTable(db),
		tags:  newTagTable(db),
	}
}

func newEntryTable(db *sqlx.DB) *namedTable[entities.Entry] {
	return newNamedTable(db, tableDef[entities.Entry]{
		kind:    entities.KindEntry,
		table:   "entries",
		columns: []string{"name", "description"},
		values: func(e *entities.Entry) []interface{} {
			return []interface{}{e.Name, e.Description}
		},
		id:    func(e *entities.Entry) int64 { return e.ID },
		setID: func(e *entities.Entry, id int64) { e.ID = id },
		name:  func(e *entities.Entry) string { return e.Name },
		check: (*entities.Entry).Validate,
	})
}

// GetByID retrieves an entry and its tags by ID
func (r *PostgresEntryRepository) GetByID(ctx context.Context, id int64) (*entities.Entry, error) {
	entry, err := r.table.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.withTags(ctx, entry)
}

// GetByName retrieves an entry and its tags by name
func (r *PostgresEntryRepository) GetByName(ctx context.Context, name string) (*entities.Entry, error) {
	entry, err := r.table.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.withTags(ctx, entry)
}

// Create inserts an entry together with its tag associations
func (r *PostgresEntryRepository) Create(ctx context.Context, entry *entities.Entry) (*entities.Entry, error) {
	if err := r.table.validate(entry); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	created, err := r.table.insert(ctx, tx, entry)
	if err != nil {
		return nil, err
	}

	for _, tagID := range entry.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entry_tags (entry_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			created.ID, tagID,
		); err != nil {
			if isForeignKeyViolation(err) {
				return nil, entities.NewNotFoundByID(entities.KindTag, tagID)
			}
			return nil, fmt.Errorf("failed to tag entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	created.TagIDs = sortedIDs(entry.TagIDs)
	return created, nil
}

// Update overwrites name and description. Tags are left untouched.
func (r *PostgresEntryRepository) Update(ctx context.Context, entry *entities.Entry) (*entities.Entry, error) {
	updated, err := r.table.Update(ctx, entry)
	if err != nil {
		return nil, err
	}
	return r.withTags(ctx, updated)
}

// Delete removes an entry. Its tag associations go with it, its relations do not.
func (r *PostgresEntryRepository) Delete(ctx context.Context, id int64) (*entities.Entry, error) {
	entry, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.table.Delete(ctx, id); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all entries ordered by ID
func (r *PostgresEntryRepository) List(ctx context.Context) ([]*entities.Entry, error) {
	entries, err := r.table.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}

	ids := make([]int64, len(entries))
	byID := make(map[int64]*entities.Entry, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
		byID[e.ID] = e
	}

	var rows []struct {
		EntryID int64 `db:"entry_id"`
		TagID   int64 `db:"tag_id"`
	}
	query := `SELECT entry_id, tag_id FROM entry_tags WHERE entry_id = ANY($1) ORDER BY entry_id, tag_id`
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to list entry tags: %w", err)
	}
	for _, row := range rows {
		e := byID[row.EntryID]
		e.TagIDs = append(e.TagIDs, row.TagID)
	}

	return entries, nil
}

// AddTag attaches a tag to an entry. Attaching twice is a no-op.
func (r *PostgresEntryRepository) AddTag(ctx context.Context, entryID, tagID int64) error {
	if _, err := r.table.GetByID(ctx, entryID); err != nil {
		return err
	}
	if _, err := r.tags.GetByID(ctx, tagID); err != nil {
		return err
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("entry_tags")
	ib.Cols("entry_id", "tag_id")
	ib.Values(entryID, tagID)
	ib.SQL("ON CONFLICT DO NOTHING")

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to add tag: %w", err)
	}
	return nil
}

// RemoveTag detaches a tag from an entry
func (r *PostgresEntryRepository) RemoveTag(ctx context.Context, entryID, tagID int64) error {
	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom("entry_tags")
	db.Where(db.Equal("entry_id", entryID), db.Equal("tag_id", tagID))

	query, args := db.Build()
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to remove tag: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return &entities.NotFoundError{
			Kind: entities.KindTag,
			Key:  fmt.Sprintf("ID: %d on entry %d", tagID, entryID),
		}
	}
	return nil
}

// ListTags returns the tags attached to an entry
func (r *PostgresEntryRepository) ListTags(ctx context.Context, entryID int64) ([]*entities.Tag, error) {
	if _, err := r.table.GetByID(ctx, entryID); err != nil {
		return nil, err
	}

	var tags []*entities.Tag
	query := `
		SELECT t.id, t.name
		FROM tags t
		JOIN entry_tags et ON et.tag_id = t.id
		WHERE et.entry_id = $1
		ORDER BY t.id
	`
	if err := r.db.SelectContext(ctx, &tags, query, entryID); err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

func (r *PostgresEntryRepository) withTags(ctx context.Context, entry *entities.Entry) (*entities.Entry, error) {
	var tagIDs []int64
	query := `SELECT tag_id FROM entry_tags WHERE entry_id = $1 ORDER BY tag_id`
	if err := r.db.SelectContext(ctx, &tagIDs, query, entry.ID); err != nil {
		return nil, fmt.Errorf("failed to load entry tags: %w", err)
	}
	entry.TagIDs = tagIDs
	return entry, nil
}

func sortedIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
