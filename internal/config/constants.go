package config

// DefaultDatabasePath is the default path for the catalog SQLite database.
const DefaultDatabasePath = "./locallibrary.db"
