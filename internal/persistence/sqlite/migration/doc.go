// Package migration applies versioned SQL schema changes to SQLite.
//
// Migration files are named {version}_{description}.sql and are read from an
// fs.FS, usually an embed.FS compiled into the binary. Applied versions are
// tracked in the schema_migrations table together with the file checksum, and
// each file runs inside its own transaction.
//
//	scanner := migration.NewFileScanner(schemaFS, "schema")
//	manager := migration.NewMigrationManager(scanner, migration.NewSQLiteExecutor(db), logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
