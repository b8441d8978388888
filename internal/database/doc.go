// Package database opens the SQLite conversion history and runs migrations.
//
// Domain queries live in sub-packages, each exposing a Repository built on
// the shared *gorm.DB:
//
//	db, err := database.NewDatabase("./kindle-enex.db")
//	repo := conversions.NewRepository(db.DB)
//	recent, total, err := repo.List(20, 0)
package database
