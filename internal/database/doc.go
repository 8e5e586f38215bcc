// Package database provides the data access layer for the catalog.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (SQLite or Postgres), migrations, permission seeding
//	├── catalog/         # Genres, languages, authors, books and book instances
//	├── users/           # Users and their permissions
//	└── audit/           # Audit event log
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	db, err := database.NewDatabase("./locallibrary.db")
//
//	catalogRepo := catalog.NewRepository(db.DB)
//	usersRepo := users.NewRepository(db.DB)
//
//	book, err := catalogRepo.GetBook(123)
//	err = usersRepo.GrantPermission(userID, entities.PermissionCanMarkReturned)
//
// # Referential Behaviour
//
// Every reference between catalog records is nullable. Deleting an author,
// language or book clears the reference on dependent rows instead of deleting
// them. SQLite connections are opened with foreign keys enforced so the
// ON DELETE SET NULL constraints hold even for writes outside the repositories.
package database
