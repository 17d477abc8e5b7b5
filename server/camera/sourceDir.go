package camera

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cyclopcam/logs"
)

// How often we scan the directory for new files
const dirPollInterval = 50 * time.Millisecond

// DirSource watches a directory into which another process drops JPEG files.
// This is the crudest IPC there is, and also the easiest thing to debug: you
// can ls the directory and open the frames in an image viewer.
// Files are consumed in name order and deleted after reading, so the directory
// doubles as the queue.
type DirSource struct {
	Log logs.Log
	Dir string

	// If false, we leave the files in place and remember which ones we've seen.
	// Useful when another consumer also reads the directory.
	DeleteAfterRead bool

	closed atomic.Bool
	done   chan struct{}
	seen   map[string]bool
}

func NewDirSource(logger logs.Log, dir string, deleteAfterRead bool) *DirSource {
	return &DirSource{
		Log:             logger,
		Dir:             dir,
		DeleteAfterRead: deleteAfterRead,
		done:            make(chan struct{}),
		seen:            map[string]bool{},
	}
}

func (s *DirSource) Ident() string {
	return fmt.Sprintf("dir %v", s.Dir)
}

func (s *DirSource) Start(onFrame func(jpeg []byte)) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("Failed to create frame directory %v: %w", s.Dir, err)
	}
	go s.pollLoop(onFrame)
	return nil
}

func (s *DirSource) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	<-s.done
}

func (s *DirSource) pollLoop(onFrame func(jpeg []byte)) {
	defer close(s.done)
	for !s.closed.Load() {
		if n := s.scanOnce(onFrame); n == 0 {
			time.Sleep(dirPollInterval)
		}
	}
}

func (s *DirSource) scanOnce(onFrame func(jpeg []byte)) int {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		s.Log.Errorf("Failed to read frame directory %v: %v", s.Dir, err)
		time.Sleep(time.Second)
		return 0
	}
	names := []string{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !isJPEGName(name) {
			continue
		}
		if !s.DeleteAfterRead && s.seen[name] {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	nSent := 0
	for _, name := range names {
		fullPath := filepath.Join(s.Dir, name)
		jpeg, err := os.ReadFile(fullPath)
		if err != nil {
			// The producer may still be writing it. We'll get it on the next scan.
			continue
		}
		if len(jpeg) < 4 || jpeg[0] != 0xff || jpeg[1] != 0xd8 ||
			jpeg[len(jpeg)-2] != 0xff || jpeg[len(jpeg)-1] != 0xd9 {
			// The producer may still be writing it
			continue
		}
		if s.DeleteAfterRead {
			os.Remove(fullPath)
		} else {
			s.seen[name] = true
		}
		onFrame(jpeg)
		nSent++
	}
	return nSent
}

func isJPEGName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".jpeg")
}
