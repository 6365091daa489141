package inventory

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNoSnapshot = errors.New("no snapshot file found")

// sqlite side files that sit next to a snapshot but are not snapshots
var sideFileSuffixes = []string{"-wal", "-shm", "-journal"}

type Resolver interface {
	Resolve() (string, error)
}

// Source locates the current snapshot file. With FixedPath set it always
// returns that path; otherwise it picks the newest regular file in Dir.
type Source struct {
	Dir       string
	FixedPath string
}

// Resolve returns the newest snapshot by creation time. When two files share
// the newest timestamp the one listed last wins, and listing order is not
// guaranteed stable across calls.
func (s Source) Resolve() (string, error) {
	if s.FixedPath != "" {
		return s.FixedPath, nil
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return "", fmt.Errorf("read snapshot dir %s: %w", s.Dir, err)
	}

	var (
		newest     string
		newestTime int64
	)
	for _, e := range entries {
		if !e.Type().IsRegular() || skipSnapshot(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between listing and stat
			continue
		}
		ct := creationTime(info).UnixNano()
		if newest == "" || ct >= newestTime {
			newest = filepath.Join(s.Dir, e.Name())
			newestTime = ct
		}
	}

	if newest == "" {
		return "", fmt.Errorf("%w in %s", ErrNoSnapshot, s.Dir)
	}
	return newest, nil
}

func skipSnapshot(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, suf := range sideFileSuffixes {
		if strings.HasSuffix(name, suf) {
			return true
		}
	}
	return false
}
