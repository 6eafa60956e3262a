package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const rotationStamp = "20060102-150405"

// LogRotation rotates a log file on open once it is too large or too old,
// and keeps at most maxBackups rotated copies beside it.
type LogRotation struct {
	maxSize    int64
	maxAge     time.Duration
	maxBackups int
	now        func() time.Time
}

func NewLogRotation(maxSize int64, maxAge time.Duration, maxBackups int) *LogRotation {
	return &LogRotation{
		maxSize:    maxSize,
		maxAge:     maxAge,
		maxBackups: maxBackups,
		now:        time.Now,
	}
}

func (lr *LogRotation) ShouldRotate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}

	if info.Size() >= lr.maxSize {
		return true
	}
	return lr.now().Sub(info.ModTime()) >= lr.maxAge
}

// Rotate renames path to <base>-<stamp><ext> and prunes old backups.
func (lr *LogRotation) Rotate(path string) (string, error) {
	base, ext := splitExt(path)
	newPath := fmt.Sprintf("%s-%s%s", base, lr.now().Format(rotationStamp), ext)

	if err := os.Rename(path, newPath); err != nil {
		return "", err
	}
	return newPath, lr.prune(path)
}

func (lr *LogRotation) prune(path string) error {
	if lr.maxBackups <= 0 {
		return nil
	}
	backups, err := lr.Backups(path)
	if err != nil {
		return err
	}
	for len(backups) > lr.maxBackups {
		if err := os.Remove(backups[0]); err != nil && !os.IsNotExist(err) {
			return err
		}
		backups = backups[1:]
	}
	return nil
}

// Backups lists rotated copies of path, oldest first.
func (lr *LogRotation) Backups(path string) ([]string, error) {
	base, ext := splitExt(path)
	matches, err := filepath.Glob(base + "-*" + ext)
	if err != nil {
		return nil, err
	}

	backups := matches[:0]
	for _, m := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(m, base+"-"), ext)
		if _, err := time.Parse(rotationStamp, stamp); err == nil {
			backups = append(backups, m)
		}
	}
	// the stamp layout sorts lexically in time order
	sort.Strings(backups)
	return backups, nil
}

func splitExt(path string) (string, string) {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)], ext
}
