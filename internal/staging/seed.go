package staging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/b1411/finka/internal/core"
)

// LoadSeed reads a JSON snapshot file. Missing files yield an empty snapshot.
func LoadSeed(path string) (core.Snapshot, error) {
	var snap core.Snapshot
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return snap, nil
	}
	if err != nil {
		return snap, fmt.Errorf("read seed %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return snap, nil
}

// Seed saves every record of snap through w and returns how many were stored.
func Seed(ctx context.Context, w RecordWriter, snap core.Snapshot) (int, error) {
	n := 0
	for _, rec := range snap.Records() {
		if _, err := w.Save(ctx, rec); err != nil {
			return n, fmt.Errorf("seed %s %s: %w", rec.Domain(), rec.Base().ID, err)
		}
		n++
	}
	return n, nil
}
