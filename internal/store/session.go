package store

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/luki/twatch/internal/sensor"
)

// Record is one persisted data line of a session log.
type Record struct {
	Class sensor.DeviceClass
	Label string
	Temp  int
}

// RecordOf converts a live reading into a session record.
func RecordOf(r sensor.Reading) Record {
	return Record{Class: r.Class, Label: r.Label, Temp: r.Temp}
}

func (r Record) fields() []string {
	return []string{r.Class.String(), r.Label, strconv.Itoa(r.Temp)}
}

// Trailer is the summary appended when a session is finalized.
type Trailer struct {
	Elapsed time.Duration
	// Exit is the reading the run ended on; nil when the run was aborted.
	Exit *Record
	// Notes are written as additional comment lines.
	Notes []string
}

// Session is one open session log. It is owned by a single capture run
// and is not safe for concurrent use.
type Session struct {
	ID   int
	Path string

	file      io.WriteCloser
	w         *csv.Writer
	buffer    []Record
	threshold int
	finalized bool
	log       *logrus.Entry
}

// Create allocates the smallest unused session id, creates the session
// directory if needed and writes the metadata and header lines.
func (s *Store) Create(delay time.Duration) (*Session, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	ids, err := s.IDs()
	if err != nil {
		return nil, err
	}

	from := 0
	for {
		id := nextFreeID(ids, from)
		path := s.Path(id)
		f, err := s.open(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if errors.Is(err, os.ErrExist) {
			// Lost a race with another writer; try the next id.
			from = id + 1
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create session file: %w", err)
		}

		sess := &Session{
			ID:        id,
			Path:      path,
			file:      f,
			w:         csv.NewWriter(f),
			buffer:    make([]Record, 0, s.threshold),
			threshold: s.threshold,
			log:       s.log.WithField("session", id),
		}
		sess.comment(fmt.Sprintf("# Delay:%d", delay.Milliseconds()))
		sess.w.Write(strings.Split(headerLine, ","))
		sess.w.Flush()
		if err := sess.w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("write session header: %w", err)
		}
		sess.log.WithField("path", path).Info("session created")
		return sess, nil
	}
}

// comment writes a metadata line. A single field without separators or
// quotes passes through the CSV writer verbatim.
func (s *Session) comment(line string) {
	if !strings.HasPrefix(line, "#") {
		line = "# " + line
	}
	line = strings.NewReplacer(",", ";", "\"", "'", "\n", " ").Replace(line)
	s.w.Write([]string{line})
}

// Append buffers a record and writes the whole buffer once it reaches the
// flush threshold.
func (s *Session) Append(r Record) error {
	if s.finalized {
		return ErrFinalized
	}
	s.buffer = append(s.buffer, r)
	if len(s.buffer) >= s.threshold {
		return s.flush()
	}
	return nil
}

// Buffered reports the number of records not yet written.
func (s *Session) Buffered() int {
	return len(s.buffer)
}

func (s *Session) flush() error {
	n := len(s.buffer)
	for _, r := range s.buffer {
		s.w.Write(r.fields())
	}
	s.buffer = s.buffer[:0]
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		return fmt.Errorf("flush session %d: %w", s.ID, err)
	}
	s.log.WithField("records", n).Debug("buffer flushed")
	return nil
}

// Finalize drains the buffer, writes the trailer and closes the file. It
// may only be called once.
func (s *Session) Finalize(t Trailer) error {
	if s.finalized {
		return ErrFinalized
	}
	s.finalized = true

	err := s.flush()
	s.comment(fmt.Sprintf("#Total: %.3f", t.Elapsed.Seconds()))
	for _, note := range t.Notes {
		s.comment(note)
	}
	if t.Exit != nil {
		exit := *t.Exit
		exit.Label = "Exit"
		s.w.Write(exit.fields())
	}
	s.w.Flush()
	if werr := s.w.Error(); werr != nil {
		err = errors.Join(err, fmt.Errorf("write trailer: %w", werr))
	}
	if cerr := s.file.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close session: %w", cerr))
	}

	s.log.WithField("elapsed", t.Elapsed).Info("session finalized")
	return err
}

// Finalized reports whether Finalize has been called.
func (s *Session) Finalized() bool {
	return s.finalized
}

// Open opens session id for reading.
func (s *Store) Open(id int) (io.ReadCloser, error) {
	f, err := os.Open(s.Path(id))
	if err != nil {
		return nil, fmt.Errorf("open session %d: %w", id, err)
	}
	return f, nil
}
