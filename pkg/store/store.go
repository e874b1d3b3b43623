// Package store holds the key-indexed entity table: the single mutable
// structure shared across the recognizer's components. It is backed by an
// in-memory hashicorp/go-memdb database, the same engine the teacher
// reconciler uses to hold its own entity collections, giving O(1) lookups
// by id or key and a consistent snapshot for GetAll via a read transaction.
package store

import (
	"errors"
	"fmt"
	"sync/atomic"

	memdb "github.com/hashicorp/go-memdb"

	"github.com/textsense/recognizer/pkg/types"
)

const tableName = "entities"

// ErrNotFound is returned when a lookup by id or key misses.
var ErrNotFound = errors.New("entity not found")

var schema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		tableName: {
			Name: tableName,
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "ID"},
				},
				"key": {
					Name:    "key",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Key"},
				},
			},
		},
	},
}

// Store is the key->id->entity table described by spec.md §4.2.
type Store struct {
	db      *memdb.MemDB
	nextID  atomic.Uint64
}

// New constructs an empty Store.
func New() (*Store, error) {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, fmt.Errorf("creating entity store: %w", err)
	}
	return &Store{db: db}, nil
}

// Diff is the result of a reconciliation-shaped mutation.
type Diff struct {
	Added   []types.Entity
	Updated []types.Entity
	Removed []types.Entity
}

func (s *Store) mintID() string {
	n := s.nextID.Add(1)
	return fmt.Sprintf("ent_%d", n)
}

func getByIndex(txn *memdb.Txn, index, value string) (*types.Entity, error) {
	raw, err := txn.First(tableName, index, value)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	e, ok := raw.(*types.Entity)
	if !ok {
		panic("store: unexpected type in entities table")
	}
	return e, nil
}

// Upsert inserts or updates each candidate, preserving the id of any
// existing entity with the same key. An entity is only reported in Updated
// when one of span, confidence, status, or value actually changed.
func (s *Store) Upsert(candidates []types.Candidate) (Diff, error) {
	var diff Diff

	txn := s.db.Txn(true)
	defer txn.Abort()

	for _, c := range candidates {
		existing, err := getByIndex(txn, "key", c.Key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Diff{}, err
		}

		if existing == nil {
			e := types.FromCandidate(s.mintID(), c)
			if err := txn.Insert(tableName, &e); err != nil {
				return Diff{}, err
			}
			diff.Added = append(diff.Added, e)
			continue
		}

		updated := types.FromCandidate(existing.ID, c)
		if entityChanged(*existing, updated) {
			if err := txn.Insert(tableName, &updated); err != nil {
				return Diff{}, err
			}
			diff.Updated = append(diff.Updated, updated)
		}
	}

	txn.Commit()
	return diff, nil
}

// RemoveByKeys deletes any entity whose key is present in keys, silently
// ignoring keys with no matching entity.
func (s *Store) RemoveByKeys(keys []string) ([]types.Entity, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	removed, err := removeByKeysTxn(txn, keys)
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return removed, nil
}

func removeByKeysTxn(txn *memdb.Txn, keys []string) ([]types.Entity, error) {
	var removed []types.Entity
	for _, key := range keys {
		existing, err := getByIndex(txn, "key", key)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		if err := txn.Delete(tableName, existing); err != nil {
			return nil, err
		}
		removed = append(removed, *existing)
	}
	return removed, nil
}

// Reconcile makes the store agree with candidates: every key present in the
// store but absent from candidates is removed, then candidates are upserted.
// Removals are derived solely from the candidate key set; any
// PluginResult.Remove list is not consulted here (spec.md §9's open
// question, resolved in DESIGN.md).
func (s *Store) Reconcile(candidates []types.Candidate) (Diff, error) {
	keep := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		keep[c.Key] = struct{}{}
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableName, "id")
	if err != nil {
		return Diff{}, err
	}
	var staleKeys []string
	for raw := it.Next(); raw != nil; raw = it.Next() {
		e := raw.(*types.Entity)
		if _, ok := keep[e.Key]; !ok {
			staleKeys = append(staleKeys, e.Key)
		}
	}

	removed, err := removeByKeysTxn(txn, staleKeys)
	if err != nil {
		return Diff{}, err
	}

	var diff Diff
	diff.Removed = removed

	for _, c := range candidates {
		existing, err := getByIndex(txn, "key", c.Key)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Diff{}, err
		}

		if existing == nil {
			e := types.FromCandidate(s.mintID(), c)
			if err := txn.Insert(tableName, &e); err != nil {
				return Diff{}, err
			}
			diff.Added = append(diff.Added, e)
			continue
		}

		updated := types.FromCandidate(existing.ID, c)
		if entityChanged(*existing, updated) {
			if err := txn.Insert(tableName, &updated); err != nil {
				return Diff{}, err
			}
			diff.Updated = append(diff.Updated, updated)
		}
	}

	txn.Commit()
	return diff, nil
}

// ConfirmAll promotes every provisional entity to confirmed, returning the
// promoted entities with their updated status.
func (s *Store) ConfirmAll() ([]types.Entity, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get(tableName, "id")
	if err != nil {
		return nil, err
	}

	var promoted []types.Entity
	var toInsert []*types.Entity
	for raw := it.Next(); raw != nil; raw = it.Next() {
		e := raw.(*types.Entity)
		if e.Status != types.StatusProvisional {
			continue
		}
		next := *e
		next.Status = types.StatusConfirmed
		toInsert = append(toInsert, &next)
	}

	for _, e := range toInsert {
		if err := txn.Insert(tableName, e); err != nil {
			return nil, err
		}
		promoted = append(promoted, *e)
	}

	txn.Commit()
	return promoted, nil
}

// Clear empties the store.
func (s *Store) Clear() error {
	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// Get returns the entity with the given id.
func (s *Store) Get(id string) (*types.Entity, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	e, err := getByIndex(txn, "id", id)
	if err != nil {
		return nil, err
	}
	clone := *e
	return &clone, nil
}

// GetByKey returns the entity with the given key.
func (s *Store) GetByKey(key string) (*types.Entity, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	e, err := getByIndex(txn, "key", key)
	if err != nil {
		return nil, err
	}
	clone := *e
	return &clone, nil
}

// GetAll returns a snapshot of every entity currently in the store.
func (s *Store) GetAll() ([]types.Entity, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableName, "id")
	if err != nil {
		return nil, err
	}
	var all []types.Entity
	for raw := it.Next(); raw != nil; raw = it.Next() {
		all = append(all, *raw.(*types.Entity))
	}
	return all, nil
}

// Size returns the number of entities currently in the store.
func (s *Store) Size() (int, error) {
	all, err := s.GetAll()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}
