package store

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luki/twatch/internal/sensor"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(b), "\n"), "\n")
}

func TestCreateWritesHeader(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	st := New(dir)

	sess, err := st.Create(250 * time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.ID)
	assert.Equal(t, filepath.Join(dir, "session_0.csv"), sess.Path)
	require.NoError(t, sess.Finalize(Trailer{}))

	lines := readLines(t, sess.Path)
	assert.Equal(t, "# Delay:250", lines[0])
	assert.Equal(t, "Type,Label,Temp", lines[1])
}

func TestCreateSequentialIDs(t *testing.T) {
	st := New(t.TempDir())

	a, err := st.Create(time.Second)
	require.NoError(t, err)
	b, err := st.Create(time.Second)
	require.NoError(t, err)

	assert.Equal(t, 1, b.ID-a.ID)
	require.NoError(t, a.Finalize(Trailer{}))
	require.NoError(t, b.Finalize(Trailer{}))
}

func TestCreateFillsGaps(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"session_0.csv", "session_2.csv", "notes.txt", "session_x.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	st := New(dir)

	sess, err := st.Create(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, sess.ID)
	require.NoError(t, sess.Finalize(Trailer{}))

	next, err := st.Create(time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, next.ID)
	require.NoError(t, next.Finalize(Trailer{}))

	ids, err := st.IDs()
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, ids)

	latest, err := st.Latest()
	require.NoError(t, err)
	assert.Equal(t, 3, latest)
}

func TestLatestNumericOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"session_2.csv", "session_10.csv", "session_9.csv"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	latest, err := New(dir).Latest()
	require.NoError(t, err)
	assert.Equal(t, 10, latest)
}

func TestLatestEmpty(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing")).Latest()
	assert.ErrorIs(t, err, ErrNoSessions)
}

func TestCreateFailsWhenDirIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := New(path).Create(time.Second)
	assert.Error(t, err)
}

func TestAppendFlushThreshold(t *testing.T) {
	st := New(t.TempDir()).WithThreshold(3)
	sess, err := st.Create(time.Second)
	require.NoError(t, err)

	rec := Record{Class: sensor.CPU, Label: "Core 0", Temp: 40}
	for i := 1; i <= 7; i++ {
		require.NoError(t, sess.Append(rec))
		assert.Less(t, sess.Buffered(), 3+1)
		if i%3 == 0 {
			assert.Equal(t, 0, sess.Buffered(), "buffer drained after flush %d", i)
			assert.Len(t, readLines(t, sess.Path), 2+i)
		}
	}
	assert.Equal(t, 1, sess.Buffered())
	assert.Len(t, readLines(t, sess.Path), 2+6)

	require.NoError(t, sess.Finalize(Trailer{}))
	assert.Equal(t, 0, sess.Buffered())
	assert.Len(t, readLines(t, sess.Path), 2+7+1)
}

// failAfter passes the first n writes through and fails the rest.
type failAfter struct {
	io.WriteCloser
	n      int
	closes int
}

var errWrite = errors.New("write failed")

func (f *failAfter) Write(p []byte) (int, error) {
	if f.n <= 0 {
		return 0, errWrite
	}
	f.n--
	return f.WriteCloser.Write(p)
}

func (f *failAfter) Close() error {
	f.closes++
	return f.WriteCloser.Close()
}

func TestWriteErrorsSurface(t *testing.T) {
	var file *failAfter
	st := New(t.TempDir()).WithThreshold(1).WithOpenFile(func(name string, flag int, perm os.FileMode) (io.WriteCloser, error) {
		f, err := os.OpenFile(name, flag, perm)
		if err != nil {
			return nil, err
		}
		file = &failAfter{WriteCloser: f, n: 1}
		return file, nil
	})
	sess, err := st.Create(time.Second)
	require.NoError(t, err)

	err = sess.Append(Record{Class: sensor.CPU, Label: "Core 0", Temp: 40})
	assert.ErrorIs(t, err, errWrite)

	err = sess.Finalize(Trailer{Exit: &Record{Class: sensor.CPU, Temp: 41}})
	assert.ErrorIs(t, err, errWrite)
	assert.True(t, sess.Finalized())
	assert.ErrorIs(t, sess.Finalize(Trailer{}), ErrFinalized)
	assert.Equal(t, 1, file.closes)
}

func TestFinalizeWritesTrailer(t *testing.T) {
	sess, err := New(t.TempDir()).Create(100 * time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, sess.Append(Record{Class: sensor.CPU, Label: "Core 0", Temp: 41}))
	require.NoError(t, sess.Append(Record{Class: sensor.NVMe, Label: "Composite", Temp: 35}))
	require.NoError(t, sess.Append(Record{Class: sensor.GPU, Label: "edge, junction", Temp: 50}))

	err = sess.Finalize(Trailer{
		Elapsed: 1500 * time.Millisecond,
		Exit:    &Record{Class: sensor.CPU, Label: "Core 0", Temp: 71},
		Notes:   []string{"Reason: trigger"},
	})
	require.NoError(t, err)
	assert.True(t, sess.Finalized())

	assert.Equal(t, []string{
		"# Delay:100",
		"Type,Label,Temp",
		"CPU,Core 0,41",
		"NVMe,Composite,35",
		`GPU,"edge, junction",50`,
		"#Total: 1.500",
		"# Reason: trigger",
		"CPU,Exit,71",
	}, readLines(t, sess.Path))

	assert.ErrorIs(t, sess.Finalize(Trailer{}), ErrFinalized)
	assert.ErrorIs(t, sess.Append(Record{}), ErrFinalized)
}

func TestOpen(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Open(4)
	assert.ErrorIs(t, err, os.ErrNotExist)

	sess, err := st.Create(time.Second)
	require.NoError(t, err)
	require.NoError(t, sess.Finalize(Trailer{}))

	rc, err := st.Open(sess.ID)
	require.NoError(t, err)
	assert.NoError(t, rc.Close())
}
