package eval

import "github.com/crystal-mush/mushcore/pkg/gamedb"

func newTestDB() *gamedb.Database {
	db := gamedb.NewDatabase()
	db.Objects[0] = &gamedb.Object{DBRef: 0, Name: "Limbo", Location: gamedb.Nothing, Owner: 1, Parent: gamedb.Nothing,
		Flags: [3]int{int(gamedb.TypeRoom), 0, 0}}
	db.Objects[1] = &gamedb.Object{DBRef: 1, Name: "Wizard", Location: 0, Owner: 1, Parent: gamedb.Nothing,
		Flags: [3]int{int(gamedb.TypePlayer) | gamedb.FlagWizard, 0, 0}}
	return db
}
