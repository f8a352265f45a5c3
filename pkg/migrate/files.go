package migrate

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var (
	migrationFile = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	nonSlugRunes  = regexp.MustCompile(`[^a-z0-9]+`)
)

const migrationTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- revert %[1]s
-- +goose StatementEnd
`

// CreateSQLMigration writes an empty <YYYYMMDDHHMMSS>_<slug>.sql file into
// dir and returns its path.
func CreateSQLMigration(dir, name string) (string, error) {
	slug := strings.Trim(nonSlugRunes.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if dir == "" || slug == "" {
		return "", fmt.Errorf("migrate: dir and a name with letters or digits are required (got %q)", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	file := filepath.Join(dir, time.Now().UTC().Format("20060102150405")+"_"+slug+".sql")
	f, err := os.OpenFile(file, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("migrate: %w", err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, migrationTemplate, slug); err != nil {
		return "", err
	}
	return file, nil
}

// Validate checks every .sql file in fsys for a well-formed name, a unique
// version and both goose section markers. All problems are reported together.
func Validate(fsys fs.FS) error {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return err
	}
	var problems []error
	versions := map[string]string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || path.Ext(name) != ".sql" {
			continue
		}
		match := migrationFile.FindStringSubmatch(name)
		if match == nil {
			problems = append(problems, fmt.Errorf("%s: name must look like YYYYMMDDHHMMSS_slug.sql", name))
			continue
		}
		if other, dup := versions[match[1]]; dup {
			problems = append(problems, fmt.Errorf("%s: version already used by %s", name, other))
		}
		versions[match[1]] = name

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			problems = append(problems, err)
			continue
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(body), marker) {
				problems = append(problems, fmt.Errorf("%s: missing %q", name, marker))
			}
		}
	}
	return errors.Join(problems...)
}
