package segment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/0xRadioAc7iv/go-kvs/internal/utils"
)

func segmentPath(dir string, id int) string {
	return filepath.Join(dir, strconv.Itoa(id)+Ext)
}

func ensureDirectory(dir string, log *zap.Logger) error {
	if utils.PathExists(dir) {
		return nil
	}

	log.Info("segment directory does not exist, creating it")

	// 0 (special bit - ignored), 7 (rwx - owner), 5 (r-x - user group), 5 (r-x - others)
	return os.MkdirAll(dir, 0755)
}

// scanSegments looks for "<id>.kv" files inside dir and returns their ids in
// ascending numeric order. Files with the extension but a non-numeric stem
// are skipped.
func scanSegments(dir string, log *zap.Logger) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	ids := []int{}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSuffix(entry.Name(), Ext))
		if err != nil || id < 0 {
			log.Warn("skipping file with segment extension but no segment id", zap.String("file", entry.Name()))
			continue
		}

		ids = append(ids, id)
	}

	sort.Ints(ids)
	return ids, nil
}

// copySegment copies a single segment file from src to dst and syncs dst.
func copySegment(src, dst string) error {
	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destination, source); err != nil {
		destination.Close()
		return err
	}

	if err := destination.Sync(); err != nil {
		destination.Close()
		return err
	}

	return destination.Close()
}

// copySegments copies every segment of src into dst.
func copySegments(src, dst string, log *zap.Logger) error {
	ids, err := scanSegments(src, log)
	if err != nil {
		return fmt.Errorf("scan %s: %w", src, err)
	}

	for _, id := range ids {
		if err := copySegment(segmentPath(src, id), segmentPath(dst, id)); err != nil {
			return fmt.Errorf("copy segment %d: %w", id, err)
		}
	}

	return nil
}

func removeSegments(dir string, log *zap.Logger) error {
	ids, err := scanSegments(dir, log)
	if err != nil {
		return fmt.Errorf("scan %s: %w", dir, err)
	}

	for _, id := range ids {
		if err := os.Remove(segmentPath(dir, id)); err != nil {
			return fmt.Errorf("remove segment %d: %w", id, err)
		}
	}

	return nil
}
