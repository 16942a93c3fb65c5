package boltstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crystal-mush/mushcore/pkg/gamedb"
)

func seedDB() *gamedb.Database {
	db := gamedb.NewDatabase()
	db.Version = 3
	db.Objects[0] = &gamedb.Object{DBRef: 0, Name: "Limbo", Owner: 1, Location: gamedb.Nothing, Parent: gamedb.Nothing}
	db.Objects[1] = &gamedb.Object{
		DBRef: 1, Name: "Wizard", Owner: 1, Location: 0, Parent: gamedb.Nothing,
		Pennies: 150, Flags: [3]int{int(gamedb.TypePlayer) | gamedb.FlagWizard},
		CreateTime: time.Unix(1600000000, 0).UTC(),
	}
	num, _ := db.MakeAttr("COUNTER")
	db.SetAttr(1, num, "7")
	return db
}

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game.bolt")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestImportAndReload(t *testing.T) {
	s, path := openTemp(t)
	assert.False(t, s.HasData())
	require.NoError(t, s.ImportFromDatabase(seedDB()))
	assert.True(t, s.HasData())
	assert.Equal(t, path, s.Path())
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.LoadAll())

	db := s2.DB()
	assert.Equal(t, 3, db.Version)
	require.Len(t, db.Objects, 2)
	wiz := db.Get(1)
	require.NotNil(t, wiz)
	assert.Equal(t, "Wizard", wiz.Name)
	assert.Equal(t, 150, wiz.Pennies)
	assert.True(t, wiz.HasFlag(gamedb.FlagWizard))
	assert.True(t, wiz.CreateTime.Equal(time.Unix(1600000000, 0)))

	num, ok := db.LookupAttr("COUNTER")
	require.True(t, ok)
	assert.Equal(t, 7, db.AttrInt(1, num))
	assert.Equal(t, num+1, db.NextAttr)
}

func TestFlushWritesDirtyObjects(t *testing.T) {
	s, path := openTemp(t)
	require.NoError(t, s.ImportFromDatabase(seedDB()))

	db := s.DB()
	db.AddToAttr(1, gamedb.AttrSemaphore, 2)
	s.MarkDirty(1)
	delete(db.Objects, 0)
	s.MarkDirty(0)
	assert.Equal(t, 2, s.Dirty())

	n, err := s.Flush()
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, s.Dirty())

	n, err = s.Flush()
	require.NoError(t, err)
	assert.Zero(t, n)
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	require.NoError(t, s2.LoadAll())
	assert.Nil(t, s2.DB().Get(0))
	assert.Equal(t, 2, s2.DB().AttrInt(1, gamedb.AttrSemaphore))
}

func TestFlushWritesAndDeletes(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()

	s.DB().Objects[9] = &gamedb.Object{DBRef: 9, Name: "Widget", Owner: 1, Parent: gamedb.Nothing}
	s.MarkDirty(9)
	require.NoError(t, s.PutAttrDef(&gamedb.AttrDef{Number: 300, Name: "LOCKQ"}))
	n, err := s.Flush()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.LoadAll())
	assert.Equal(t, "Widget", s.DB().Get(9).Name)
	assert.Equal(t, "LOCKQ", s.DB().GetAttrName(300))

	delete(s.DB().Objects, 9)
	s.MarkDirty(9)
	_, err = s.Flush()
	require.NoError(t, err)
	assert.False(t, s.HasData())
}

func TestBackup(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	require.NoError(t, s.ImportFromDatabase(seedDB()))

	dst := filepath.Join(t.TempDir(), "backup.bolt")
	require.NoError(t, s.Backup(dst))

	b, err := Open(dst)
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.LoadAll())
	assert.Len(t, b.DB().Objects, 2)
}

func TestRefKeysSortNegativeFirst(t *testing.T) {
	for _, ref := range []gamedb.DBRef{gamedb.Nothing, 0, 1, 4096} {
		assert.Equal(t, ref, keyToRef(refToKey(ref)))
	}
	assert.Less(t, string(refToKey(gamedb.Nothing)), string(refToKey(0)))
	assert.Equal(t, 300, keyToInt(intToKey(300)))
}
