package media

import (
	"fmt"
	"log"
	"time"

	"github.com/AntonKrinichnyi/trainstation/internal/models"
	"gorm.io/gorm"
)

// SweepGrace is how old an unreferenced file must be before Sweep removes
// it. An upload is saved before the train row points at it.
const SweepGrace = 10 * time.Minute

// Sweep removes train images no train references any more. It returns the
// number of files removed. Files that fail to delete are logged and skipped.
func Sweep(gdb *gorm.DB, store *LocalStore) (int, error) {
	cutoff := time.Now().Add(-SweepGrace)

	var used []string
	if err := gdb.Model(&models.Train{}).Where("image <> ''").Pluck("image", &used).Error; err != nil {
		return 0, fmt.Errorf("media: load referenced images: %w", err)
	}
	keep := make(map[string]bool, len(used))
	for _, p := range used {
		keep[p] = true
	}

	files, err := store.List(TrainDir)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		if keep[f] {
			continue
		}
		mod, err := store.ModTime(f)
		if err != nil {
			log.Printf("media: sweep: %v", err)
			continue
		}
		if mod.After(cutoff) {
			continue
		}
		if err := store.Remove(f); err != nil {
			log.Printf("media: sweep: %v", err)
			continue
		}
		removed++
	}
	return removed, nil
}
