// Package boltstore persists the game database in bbolt. The in-memory
// gamedb.Database stays authoritative; changed objects are written
// through, either immediately or batched per scheduler tick.
package boltstore

import (
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
	bbolt "go.etcd.io/bbolt"
)

// Store wraps a bbolt database and the in-memory cache it backs.
type Store struct {
	bolt  *bbolt.DB
	cache *gamedb.Database

	mu    sync.Mutex
	dirty map[gamedb.DBRef]struct{}
}

// Open opens or creates a bbolt database file and ensures all buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketObjects, bucketAttrDefs} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("boltstore: create buckets: %w", err)
	}

	return &Store{
		bolt:  db,
		cache: gamedb.NewDatabase(),
		dirty: make(map[gamedb.DBRef]struct{}),
	}, nil
}

func (s *Store) Close() error {
	if s.bolt != nil {
		return s.bolt.Close()
	}
	return nil
}

// DB returns the in-memory database cache.
func (s *Store) DB() *gamedb.Database {
	return s.cache
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	if s.bolt != nil {
		return s.bolt.Path()
	}
	return ""
}

// MarkDirty records that ref changed in memory. Flush writes it.
func (s *Store) MarkDirty(ref gamedb.DBRef) {
	s.mu.Lock()
	s.dirty[ref] = struct{}{}
	s.mu.Unlock()
}

// Dirty reports how many objects are waiting to be flushed.
func (s *Store) Dirty() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.dirty)
}

// Flush writes every dirty object in one transaction. Objects that no
// longer exist in memory are deleted. It returns the number written.
func (s *Store) Flush() (int, error) {
	s.mu.Lock()
	refs := make([]gamedb.DBRef, 0, len(s.dirty))
	for ref := range s.dirty {
		refs = append(refs, ref)
	}
	clear(s.dirty)
	s.mu.Unlock()
	if len(refs) == 0 {
		return 0, nil
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })

	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketObjects)
		for _, ref := range refs {
			obj := s.cache.Get(ref)
			if obj == nil {
				if err := b.Delete(refToKey(ref)); err != nil {
					return err
				}
				continue
			}
			data, err := encodeObject(obj)
			if err != nil {
				return fmt.Errorf("encode object #%d: %w", ref, err)
			}
			if err := b.Put(refToKey(ref), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.mu.Lock()
		for _, ref := range refs {
			s.dirty[ref] = struct{}{}
		}
		s.mu.Unlock()
		return 0, fmt.Errorf("boltstore: flush: %w", err)
	}
	return len(refs), nil
}

func (s *Store) PutAttrDef(def *gamedb.AttrDef) error {
	data, err := encodeAttrDef(def)
	if err != nil {
		return fmt.Errorf("boltstore: encode attrdef %d: %w", def.Number, err)
	}
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAttrDefs).Put(intToKey(def.Number), data)
	})
}

// PutMeta persists the database version and next attribute number.
func (s *Store) PutMeta() error {
	return s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if err := b.Put(keyVersion, intToKey(s.cache.Version)); err != nil {
			return err
		}
		return b.Put(keyNextAttr, intToKey(s.cache.NextAttr))
	})
}

// ImportFromDatabase makes db the cache and writes all of it to bbolt,
// 1000 objects per transaction.
func (s *Store) ImportFromDatabase(db *gamedb.Database) error {
	s.cache = db

	if err := s.PutMeta(); err != nil {
		return fmt.Errorf("boltstore: import meta: %w", err)
	}

	err := s.bolt.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAttrDefs)
		for _, def := range db.AttrNames {
			data, err := encodeAttrDef(def)
			if err != nil {
				return err
			}
			if err := b.Put(intToKey(def.Number), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: import attrdefs: %w", err)
	}

	batch := make([]*gamedb.Object, 0, 1000)
	count := 0
	for _, obj := range db.Objects {
		batch = append(batch, obj)
		if len(batch) >= 1000 {
			if err := s.PutObjects(batch...); err != nil {
				return fmt.Errorf("boltstore: import objects: %w", err)
			}
			count += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.PutObjects(batch...); err != nil {
			return fmt.Errorf("boltstore: import objects: %w", err)
		}
		count += len(batch)
	}

	log.Printf("boltstore: imported %d objects, %d attr defs", count, len(db.AttrNames))
	return nil
}

// LoadAll reads the whole bbolt database into the in-memory cache.
func (s *Store) LoadAll() error {
	err := s.bolt.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketMeta)
		if v := b.Get(keyVersion); v != nil {
			s.cache.Version = keyToInt(v)
		}
		if v := b.Get(keyNextAttr); v != nil {
			s.cache.NextAttr = keyToInt(v)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: load meta: %w", err)
	}

	err = s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAttrDefs).ForEach(func(k, v []byte) error {
			def, err := decodeAttrDef(v)
			if err != nil {
				return fmt.Errorf("decode attrdef %d: %w", keyToInt(k), err)
			}
			s.cache.AttrNames[def.Number] = def
			s.cache.AttrByName[def.Name] = def
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load attrdefs: %w", err)
	}

	count := 0
	err = s.bolt.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketObjects).ForEach(func(k, v []byte) error {
			obj, err := decodeObject(v)
			if err != nil {
				return fmt.Errorf("decode object #%d: %w", keyToRef(k), err)
			}
			if ref := keyToRef(k); ref != obj.DBRef {
				return fmt.Errorf("object stored under #%d claims to be #%d", ref, obj.DBRef)
			}
			s.cache.Objects[obj.DBRef] = obj
			count++
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("boltstore: load objects: %w", err)
	}

	log.Printf("boltstore: loaded %d objects, %d attr defs from bolt", count, len(s.cache.AttrNames))
	return nil
}

// Backup writes a hot snapshot of the bbolt file to path.
func (s *Store) Backup(path string) error {
	return s.bolt.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("boltstore: create backup %s: %w", path, err)
		}
		defer f.Close()
		if _, err := tx.WriteTo(f); err != nil {
			return fmt.Errorf("boltstore: write backup: %w", err)
		}
		log.Printf("boltstore: backup of %s written to %s", s.Path(), path)
		return nil
	})
}

// HasData reports whether any objects are stored.
func (s *Store) HasData() bool {
	hasData := false
	s.bolt.View(func(tx *bbolt.Tx) error {
		hasData = tx.Bucket(bucketObjects).Stats().KeyN > 0
		return nil
	})
	return hasData
}
