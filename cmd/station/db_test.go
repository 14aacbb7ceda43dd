package main

import (
	"strings"
	"testing"

	"github.com/AntonKrinichnyi/trainstation/internal/models"
)

func TestDBInitCmd_Help(t *testing.T) {
	out, err := runCmd(t, "", "db", "init", "--help")
	if err != nil {
		t.Fatalf("db init --help failed: %v", err)
	}
	if !strings.Contains(out, "--config") || !strings.Contains(out, "station.yaml") {
		t.Errorf("expected default config path in help, got: %s", out)
	}
}

func TestDBInitCmd_MissingConfig(t *testing.T) {
	_, err := runCmd(t, "", "db", "init", "--config", "/nonexistent/station.yaml")
	if err == nil || !strings.Contains(err.Error(), "load config") {
		t.Errorf("error = %v, want load config", err)
	}
}

func TestDBInitCmd_SQLite(t *testing.T) {
	path := writeConfig(t, "")

	out, err := runCmd(t, "", "db", "init", "--config", path)
	if err != nil {
		t.Fatalf("db init: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Seeded 2 of 2 train types") {
		t.Errorf("output = %s", out)
	}

	// Seeding is idempotent.
	out, err = runCmd(t, "", "db", "init", "--config", path)
	if err != nil {
		t.Fatalf("second db init: %v", err)
	}
	if !strings.Contains(out, "Seeded 0 of 2 train types") {
		t.Errorf("second output = %s", out)
	}

	_, gormDB, err := connectFromConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var n int64
	gormDB.Model(&models.TrainType{}).Count(&n)
	if n != 2 {
		t.Errorf("train types = %d, want 2", n)
	}
}

func TestDBResetCmd(t *testing.T) {
	path := writeConfig(t, "")
	if _, err := runCmd(t, "", "db", "init", "--config", path); err != nil {
		t.Fatal(err)
	}
	if _, err := runCmd(t, "", "user", "create", "--config", path, "--email", "a@example.com", "--password", "password1"); err != nil {
		t.Fatal(err)
	}

	out, err := runCmd(t, "no\n", "db", "reset", "--config", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Aborted.") {
		t.Errorf("output = %s, want Aborted.", out)
	}

	out, err = runCmd(t, "", "db", "reset", "--config", path, "--yes")
	if err != nil {
		t.Fatalf("db reset: %v\n%s", err, out)
	}

	_, gormDB, err := connectFromConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	var users, types int64
	gormDB.Model(&models.User{}).Count(&users)
	gormDB.Model(&models.TrainType{}).Count(&types)
	if users != 0 || types != 2 {
		t.Errorf("after reset users=%d types=%d, want 0/2", users, types)
	}
}
