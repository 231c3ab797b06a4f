package archive

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfleet/clipfleet/segment"
)

func TestWriteThenReadSegment(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	content := []byte("mpeg-ts bytes go here")
	s := segment.Segment{
		Channel: "chan", Quality: "source",
		Start: start, Duration: 2 * time.Second,
	}.Finalize(segment.Full, content)

	require.NoError(t, Write(a, s, content))

	got, err := ReadSegment(a, s)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	// No stray temp files left behind.
	entries, err := os.ReadDir(a.HourDir("chan", "source", s.Hour()))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".temp")
	}
}

func TestConcurrentWriteSameContentIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	content := []byte("identical bytes")
	s := segment.Segment{
		Channel: "chan", Quality: "source",
		Start: start, Duration: 2 * time.Second,
	}.Finalize(segment.Full, content)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = Write(a, s, content)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}

	got, err := ReadSegment(a, s)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	entries, err := os.ReadDir(a.HourDir("chan", "source", s.Hour()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "exactly one file should remain, no leftover temps")
}

func TestTempWriterFinalizeAsPartial(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	start := time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC)
	tmp := segment.NewTemp("chan", "720p60", start, 4*time.Second)

	w, err := NewTempWriter(a, tmp)
	require.NoError(t, err)

	_, err = w.Write([]byte("partial-bytes"))
	require.NoError(t, err)

	final, err := w.Finalize(a, tmp, segment.Partial)
	require.NoError(t, err)
	assert.Equal(t, segment.Partial, final.Kind)

	abs, err := a.AbsPath(final)
	require.NoError(t, err)
	_, err = os.Stat(abs)
	assert.NoError(t, err)
}

func TestListHoursAndSegments(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	start := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	full := segment.Segment{
		Channel: "chan", Quality: "source", Start: start, Duration: 2 * time.Second,
	}.Finalize(segment.Full, []byte("abc"))
	require.NoError(t, Write(a, full, []byte("abc")))

	// A stray temp file must never surface in listings.
	strayAbs := filepath.Join(a.HourDir("chan", "source", full.Hour()), "09:31:00.000-2-temp-deadbeef.ts.somerand.temp")
	require.NoError(t, os.WriteFile(strayAbs, []byte("x"), 0o644))

	hours, err := ListHours(a, "chan", "source")
	require.NoError(t, err)
	assert.Equal(t, []string{full.Hour()}, hours)

	segs, err := ListSegments(a, "chan", "source", full.Hour())
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, full.Hash, segs[0].Hash)
	assert.EqualValues(t, 3, segs[0].Size)
}

func TestListHoursOnMissingDirReturnsEmpty(t *testing.T) {
	a := New(t.TempDir())
	hours, err := ListHours(a, "nope", "nope")
	require.NoError(t, err)
	assert.Empty(t, hours)
}
