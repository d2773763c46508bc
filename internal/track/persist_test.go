package track

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	data []byte
	err  error
}

func (f *fakeSource) EncodeState() ([]byte, error) {
	return f.data, f.err
}

func TestWriterDebounce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	w := NewWriter(path, time.Second, testLogger())

	clock := time.Unix(1000, 0)
	w.now = func() time.Time { return clock }

	src := &fakeSource{data: []byte(`{}`)}

	// Clean writer does nothing.
	require.NoError(t, w.MaybeFlush(src))
	assert.NoFileExists(t, path)

	w.MarkDirty()

	// Inside the window: still nothing.
	clock = clock.Add(500 * time.Millisecond)
	require.NoError(t, w.MaybeFlush(src))
	assert.NoFileExists(t, path)
	assert.True(t, w.Dirty())

	// Re-dirtying does not push the deadline out.
	w.MarkDirty()
	clock = clock.Add(500 * time.Millisecond)
	require.NoError(t, w.MaybeFlush(src))
	assert.FileExists(t, path)
	assert.False(t, w.Dirty())
}

func TestWriterFlushImmediate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	w := NewWriter(path, time.Second, testLogger())
	w.MarkDirty()

	require.NoError(t, w.Flush(&fakeSource{data: []byte(`{"a":1}`)}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
	assert.False(t, w.Dirty())
}

func TestWriterEncodeErrorKeepsDirty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	w := NewWriter(path, time.Second, testLogger())

	clock := time.Unix(1000, 0)
	w.now = func() time.Time { return clock }

	w.MarkDirty()
	clock = clock.Add(2 * time.Second)

	err := w.MaybeFlush(&fakeSource{err: errors.New("boom")})
	require.Error(t, err)
	assert.True(t, w.Dirty(), "failed write should retry on a later tick")
}

func TestWriterDefaultDelay(t *testing.T) {
	w := NewWriter("x", 0, testLogger())
	assert.Equal(t, DefaultSaveDelay, w.delay)
}
