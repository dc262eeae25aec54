// Package store handles durable CSV session logs. Each capture run gets a
// session_<n>.csv file in the session directory, with the format:
//
//	# Delay:<poll interval ms>
//	Type,Label,Temp
//	<class>,<label>,<celsius>
//	...
//	#Total: <elapsed seconds>
//	CPU,Exit,<celsius>
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultDir is the session directory relative to the working directory.
	DefaultDir = "session"
	// FlushThreshold is the number of buffered records that triggers a write.
	FlushThreshold = 50

	headerLine = "Type,Label,Temp"
)

var (
	ErrNoSessions = errors.New("no session files found")
	ErrFinalized  = errors.New("session already finalized")
)

var sessionNameRe = regexp.MustCompile(`^session_(\d+)\.csv$`)

// OpenFileFunc opens a session file for writing. It must honour
// os.O_EXCL and report an existing file with os.ErrExist.
type OpenFileFunc func(name string, flag int, perm os.FileMode) (io.WriteCloser, error)

func openFile(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(name, flag, perm)
}

// Store allocates session files inside one directory.
type Store struct {
	dir       string
	threshold int
	open      OpenFileFunc
	log       *logrus.Entry
}

// New returns a store for dir. The directory is created lazily by Create.
func New(dir string) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	return &Store{
		dir:       dir,
		threshold: FlushThreshold,
		open:      openFile,
		log:       logrus.WithField("dir", dir),
	}
}

// WithThreshold returns a copy of the store using a different flush threshold.
func (s *Store) WithThreshold(n int) *Store {
	c := *s
	if n > 0 {
		c.threshold = n
	}
	return &c
}

// WithOpenFile returns a copy of the store that opens session files with fn.
func (s *Store) WithOpenFile(fn OpenFileFunc) *Store {
	c := *s
	if fn != nil {
		c.open = fn
	}
	return &c
}

// Dir returns the session directory.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file path of session id.
func (s *Store) Path(id int) string {
	return filepath.Join(s.dir, fileName(id))
}

func fileName(id int) string {
	return fmt.Sprintf("session_%d.csv", id)
}

// IDs returns the ids of all session files, ascending. A missing directory
// yields no ids.
func (s *Store) IDs() ([]int, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}

	var ids []int
	for _, e := range entries {
		m := sessionNameRe.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		id, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Latest returns the highest-numbered session id.
func (s *Store) Latest() (int, error) {
	ids, err := s.IDs()
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%s: %w", s.dir, ErrNoSessions)
	}
	return ids[len(ids)-1], nil
}

// nextFreeID returns the smallest non-negative id not in ids (ascending).
func nextFreeID(ids []int, from int) int {
	used := make(map[int]bool, len(ids))
	for _, id := range ids {
		used[id] = true
	}
	n := from
	for used[n] {
		n++
	}
	return n
}
