package services

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sales-dashboard/internal/models"
)

const snapshotVersion = "v3"

// snapshot is the on-disk form of a parsed dataset. It is only trusted while
// the source file still has the recorded modification time and size.
type snapshot struct {
	Version    string
	Policy     RowPolicy
	Source     string
	ModTime    time.Time
	Size       int64
	Skipped    int
	HasOrderID bool
	Orders     []models.Order
}

func snapshotFilename(cacheDir, csvPath string) string {
	name := strings.ReplaceAll(filepath.Clean(csvPath), string(filepath.Separator), "_")
	return filepath.Join(cacheDir, fmt.Sprintf("%s_%s.gob", name, snapshotVersion))
}

func saveSnapshot(cacheDir string, ds *models.Dataset, policy RowPolicy) error {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return err
	}

	file, err := os.CreateTemp(cacheDir, "snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmp := file.Name()

	snap := snapshot{
		Version:    snapshotVersion,
		Policy:     policy,
		Source:     ds.Source,
		ModTime:    ds.ModTime,
		Size:       ds.Size,
		Skipped:    ds.Skipped,
		HasOrderID: ds.HasOrderID,
		Orders:     ds.Orders,
	}
	if err := gob.NewEncoder(file).Encode(snap); err != nil {
		file.Close()
		os.Remove(tmp)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	return os.Rename(tmp, snapshotFilename(cacheDir, ds.Source))
}

func loadSnapshot(cacheDir, csvPath string, info os.FileInfo, policy RowPolicy) (*models.Dataset, error) {
	file, err := os.Open(snapshotFilename(cacheDir, csvPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap snapshot
	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return nil, err
	}

	switch {
	case snap.Version != snapshotVersion:
		return nil, fmt.Errorf("snapshot version %q, want %q", snap.Version, snapshotVersion)
	case snap.Policy != policy:
		return nil, fmt.Errorf("snapshot row policy %q, want %q", snap.Policy, policy)
	case !snap.ModTime.Equal(info.ModTime()) || snap.Size != info.Size():
		return nil, fmt.Errorf("snapshot is stale")
	}

	ds := models.NewDataset(snap.Orders)
	ds.Source = csvPath
	ds.ModTime = info.ModTime()
	ds.Size = info.Size()
	ds.Skipped = snap.Skipped
	ds.HasOrderID = ds.HasOrderID || snap.HasOrderID
	return ds, nil
}
