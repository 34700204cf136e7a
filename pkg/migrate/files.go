package migrate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

const (
	versionLayout  = "20060102150405"
	upAnnotation   = "-- +goose Up"
	downAnnotation = "-- +goose Down"
)

var (
	fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)
	unsafeRe   = regexp.MustCompile(`[^a-z0-9]+`)
)

// File is one goose SQL migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ListDir returns the SQL migrations in dir ordered by version. Files that do
// not follow the <version>_<name>.sql layout are reported as errors.
func ListDir(dir string) ([]File, error) {
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".sql" {
			continue
		}
		match := fileNameRe.FindStringSubmatch(entry.Name())
		if match == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", entry.Name())
		}
		version, err := ParseVersion(match[1])
		if err != nil {
			return nil, err
		}
		files = append(files, File{
			Version: version,
			Name:    match[2],
			Path:    filepath.Join(dir, entry.Name()),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir checks that every migration has a unique version and carries
// an Up section followed by a Down section.
func ValidateDir(dir string) error {
	files, err := ListDir(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}

	for i, file := range files {
		if i > 0 && files[i-1].Version == file.Version {
			return fmt.Errorf("duplicate migration version %d in %q and %q", file.Version, filepath.Base(files[i-1].Path), filepath.Base(file.Path))
		}
		body, err := os.ReadFile(file.Path)
		if err != nil {
			return fmt.Errorf("read file %q: %w", file.Path, err)
		}
		if err := checkAnnotations(string(body)); err != nil {
			return fmt.Errorf("migration %q: %w", filepath.Base(file.Path), err)
		}
	}
	return nil
}

func checkAnnotations(body string) error {
	up := strings.Index(body, upAnnotation)
	down := strings.Index(body, downAnnotation)
	switch {
	case up < 0:
		return fmt.Errorf("missing %q", upAnnotation)
	case down < 0:
		return fmt.Errorf("missing %q", downAnnotation)
	case down < up:
		return fmt.Errorf("%q must come after %q", downAnnotation, upAnnotation)
	}
	return nil
}

// CreateSQLMigration writes an empty goose migration named after name. The
// new version is always later than every migration already in dir.
func CreateSQLMigration(dir, name string) (string, error) {
	slug := strings.Trim(unsafeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return "", fmt.Errorf("name %q has no usable characters", name)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", dir, err)
	}
	existing, err := ListDir(dir)
	if err != nil {
		return "", err
	}

	stamp := time.Now().UTC()
	if n := len(existing); n > 0 {
		latest, _ := time.Parse(versionLayout, fmt.Sprintf("%d", existing[n-1].Version))
		if !stamp.After(latest) {
			stamp = latest.Add(time.Second)
		}
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.sql", stamp.Format(versionLayout), slug))
	body := fmt.Sprintf("%s\n-- +goose StatementBegin\n-- %s\n-- +goose StatementEnd\n\n%s\n-- +goose StatementBegin\n-- revert %s\n-- +goose StatementEnd\n",
		upAnnotation, slug, downAnnotation, slug)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write migration %q: %w", path, err)
	}
	return path, nil
}
