package database

import (
	"testing"
	"testing/fstest"
)

func TestUpFilesAndApplied(t *testing.T) {
	fsys := fstest.MapFS{
		"000002_votes.up.sql":   {Data: []byte("SELECT 1;")},
		"000001_init.up.sql":    {Data: []byte("SELECT 1;")},
		"000001_init.down.sql":  {Data: []byte("SELECT 1;")},
		"000003_answers.up.sql": {Data: []byte("SELECT 1;")},
		"README.md":             {Data: []byte("notes")},
	}
	files := upFiles(fsys)
	if len(files) != 3 || files[0] != "000001_init.up.sql" || files[2] != "000003_answers.up.sql" {
		t.Fatalf("upFiles = %v", files)
	}

	got := appliedBetween(files, 1, 3)
	if len(got) != 2 || got[0] != "000002_votes.up.sql" {
		t.Fatalf("appliedBetween = %v", got)
	}
	if appliedBetween(files, 3, 3) != nil {
		t.Fatal("no files expected when version did not move")
	}
	if v := fileVersion("000012_x.up.sql"); v != 12 {
		t.Fatalf("fileVersion = %d", v)
	}
}

func TestMigrateRejectsNilSource(t *testing.T) {
	if err := Migrate("postgres://localhost/none", nil); err == nil {
		t.Fatal("nil fs accepted")
	}
}
