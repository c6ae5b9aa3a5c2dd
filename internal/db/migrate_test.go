package db

import (
	"strings"
	"testing"
)

func TestMigrationFilesAreOrdered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles() error = %v", err)
	}
	if len(files) == 0 {
		t.Fatal("migrationFiles() returned no migrations")
	}
	if files[0] != "0001_init.sql" {
		t.Errorf("first migration = %s, want 0001_init.sql", files[0])
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Errorf("migrations out of order: %s before %s", files[i-1], files[i])
		}
	}
}

func TestInitMigrationCreatesTables(t *testing.T) {
	body, err := migrationsFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	tables := []string{
		"centers", "users", "parents", "children", "family_links", "leads",
		"lead_activities", "intro_visits", "follow_ups", "batches", "class_types",
		"curricula", "skills", "activity_categories", "progression_levels",
		"batch_mappings", "enrollments", "class_sessions", "attendance",
		"discounts", "payments", "skill_progress", "level_attainments", "report_cards",
	}
	for _, table := range tables {
		if !strings.Contains(string(body), "CREATE TABLE "+table+" (") {
			t.Errorf("0001_init.sql does not create %s", table)
		}
	}
}
