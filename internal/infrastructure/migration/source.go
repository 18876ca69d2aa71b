package migration

import (
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

// List returns the base names of the up migrations in fsys, in apply order
func List(fsys fs.FS) ([]string, error) {
	ups, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	names := make([]string, 0, len(ups))
	for _, name := range ups {
		names = append(names, strings.TrimSuffix(name, ".up.sql"))
	}
	sort.Strings(names)
	return names, nil
}

// Verify checks that every up migration has a matching down migration
func Verify(fsys fs.FS) error {
	names, err := List(fsys)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no migrations found")
	}
	for _, name := range names {
		if _, err := fs.Stat(fsys, name+".down.sql"); err != nil {
			return fmt.Errorf("migration %s has no down file", name)
		}
	}
	return nil
}
