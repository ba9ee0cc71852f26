package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

//go:embed sql/*.sql
var embedded embed.FS

type migration struct {
	Name    string
	Version string
}

// Source returns the schema files compiled into the binary.
func Source() fs.FS {
	sub, err := fs.Sub(embedded, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Apply runs every V<n>__name.sql file of source that is not yet recorded
// in schema_migrations, in version order. It returns the names applied.
func Apply(db *sqlx.DB, source fs.FS) ([]string, error) {
	if err := ensureTable(db); err != nil {
		return nil, err
	}
	migs, err := listMigrations(source)
	if err != nil {
		return nil, err
	}
	applied, err := appliedVersions(db)
	if err != nil {
		return nil, err
	}
	done := []string{}
	for _, mig := range migs {
		if applied[mig.Version] {
			continue
		}
		if err := applyMigration(db, source, mig); err != nil {
			return done, err
		}
		done = append(done, mig.Name)
	}
	return done, nil
}

func ensureTable(db *sqlx.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  id SERIAL PRIMARY KEY,
  version TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`)
	return err
}

func listMigrations(source fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(source, ".")
	if err != nil {
		return nil, err
	}
	migs := make([]migration, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version := parseVersion(name)
		if version == "" {
			return nil, fmt.Errorf("migration %s: name must look like V1__description.sql", name)
		}
		migs = append(migs, migration{Name: name, Version: version})
	}
	sort.Slice(migs, func(i, j int) bool {
		iVersion, iOk := parseVersionNumber(migs[i].Version)
		jVersion, jOk := parseVersionNumber(migs[j].Version)
		switch {
		case iOk && jOk && iVersion != jVersion:
			return iVersion < jVersion
		case iOk != jOk:
			return iOk
		default:
			return migs[i].Name < migs[j].Name
		}
	})
	return migs, nil
}

func appliedVersions(db *sqlx.DB) (map[string]bool, error) {
	rows := []string{}
	if err := db.Select(&rows, `SELECT version FROM schema_migrations`); err != nil {
		return nil, err
	}
	versions := make(map[string]bool, len(rows))
	for _, version := range rows {
		versions[version] = true
	}
	return versions, nil
}

// applyMigration runs the file and records it in one transaction.
func applyMigration(db *sqlx.DB, source fs.FS, mig migration) error {
	content, err := fs.ReadFile(source, mig.Name)
	if err != nil {
		return err
	}
	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("apply %s: %w", mig.Name, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit()
}

func parseVersion(name string) string {
	if !strings.HasPrefix(name, "V") {
		return ""
	}
	parts := strings.SplitN(name[1:], "__", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[0])
}

func parseVersionNumber(raw string) (int, bool) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return value, true
}
