package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/printforge/printforge-backend/pkg/migrate"
)

func TestImportMigrationsContainConstraints(t *testing.T) {
	cases := []struct {
		pattern string
		checks  []string
	}{
		{
			pattern: "*_create_import_jobs_table.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS import_jobs",
				"CHECK (status IN ('pending', 'processing', 'completed', 'failed', 'rolled_back'))",
				"FOREIGN KEY (csv_media_id) REFERENCES media(id) ON DELETE RESTRICT",
				"DROP TABLE IF EXISTS import_jobs",
			},
		},
		{
			pattern: "*_create_import_job_items_table.sql",
			checks: []string{
				"CREATE TABLE IF NOT EXISTS import_job_items",
				"FOREIGN KEY (job_id) REFERENCES import_jobs(id) ON DELETE CASCADE",
				"CREATE UNIQUE INDEX IF NOT EXISTS ux_import_job_items_job_row",
				"DROP TABLE IF EXISTS import_job_items",
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.pattern, func(t *testing.T) {
			matches, err := filepath.Glob(filepath.Join("migrations", tc.pattern))
			if err != nil {
				t.Fatalf("glob migrations: %v", err)
			}
			if len(matches) == 0 {
				t.Fatalf("no migration matching %s", tc.pattern)
			}

			data, err := os.ReadFile(matches[0])
			if err != nil {
				t.Fatalf("read migration file: %v", err)
			}
			content := string(data)

			for _, sub := range tc.checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("ValidateDir: %v", err)
	}
}
