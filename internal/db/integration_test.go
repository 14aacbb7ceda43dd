//go:build integration

package db

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/config"
	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// mysqlTestConfig reads the server to test against from the environment.
// STATION_TEST_MYSQL_HOST must point at a MySQL server the root user can
// create databases on.
func mysqlTestConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	host := os.Getenv("STATION_TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("STATION_TEST_MYSQL_HOST not set")
	}
	port := 3306
	if p := os.Getenv("STATION_TEST_MYSQL_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("STATION_TEST_MYSQL_PORT: %v", err)
		}
		port = n
	}
	user := os.Getenv("STATION_TEST_MYSQL_USER")
	if user == "" {
		user = "root"
	}
	return config.DatabaseConfig{
		Driver:   config.DriverMySQL,
		Host:     host,
		Port:     port,
		User:     user,
		Password: os.Getenv("STATION_TEST_MYSQL_PASSWORD"),
		Name:     fmt.Sprintf("station_it_%d", time.Now().UnixNano()),
	}
}

// freshMySQL creates a throwaway database, migrates it and drops it when
// the test finishes.
func freshMySQL(t *testing.T) *gorm.DB {
	t.Helper()
	cfg := mysqlTestConfig(t)

	admin, err := ConnectAdmin(cfg)
	if err != nil {
		t.Fatalf("ConnectAdmin: %v", err)
	}
	if err := CreateDatabase(admin, cfg.Name); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	t.Cleanup(func() {
		if err := DropDatabase(admin, cfg.Name); err != nil {
			t.Logf("drop %s: %v", cfg.Name, err)
		}
	})

	gdb, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gdb
}

func TestIntegration_AutoMigrate(t *testing.T) {
	gdb := freshMySQL(t)
	for _, m := range AllModels() {
		if !gdb.Migrator().HasTable(m) {
			t.Errorf("table for %T missing", m)
		}
	}
}

func TestIntegration_SeedTrainTypes_Idempotent(t *testing.T) {
	gdb := freshMySQL(t)
	if _, err := SeedTrainTypes(gdb, []string{"Intercity", "Regional"}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := SeedTrainTypes(gdb, []string{"Intercity", "Regional"}); err != nil {
		t.Fatalf("re-seed: %v", err)
	}
	var count int64
	gdb.Model(&models.TrainType{}).Count(&count)
	if count != 2 {
		t.Errorf("train types = %d, want 2", count)
	}
}

func TestIntegration_AtomicRollback(t *testing.T) {
	gdb := freshMySQL(t)

	err := Atomic(context.Background(), gdb,
		Op{Name: "a", Apply: func(tx *gorm.DB) error { return tx.Create(&models.Station{Name: "A"}).Error }},
		Op{Name: "dup", Apply: func(tx *gorm.DB) error { return tx.Create(&models.Station{Name: "A"}).Error }},
	)
	if err == nil {
		t.Fatal("expected duplicate error")
	}
	var count int64
	gdb.Model(&models.Station{}).Count(&count)
	if count != 0 {
		t.Errorf("stations after rollback = %d, want 0", count)
	}
}
