// Package migration applies versioned SQL schema changes to a SQLite database.
//
// Migration files follow the naming convention {version}_{description}.sql
// (e.g. "001_initial_schema.sql") and are read from an fs.FS, normally the
// embedded migrations directory. Each file runs in its own transaction together
// with its row in schema_migrations, so a failed file leaves no trace.
//
//	db, err := migration.OpenDB(ctx, migration.DefaultSQLiteConfig("data/erp.db"))
//	manager := migration.NewManager(
//		migration.NewFSScanner(migrations.FS, "."),
//		migration.NewSQLiteExecutor(db),
//		logger,
//	)
//	applied, err := manager.RunMigrations(ctx)
package migration
