package segment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRoundTrip(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 2, 0, time.UTC)
	full := Segment{
		Channel:  "channel-one",
		Quality:  "source",
		Start:    start,
		Duration: 2 * time.Second,
		Kind:     Full,
		Hash:     HashForBytes([]byte("hello world")),
	}

	path, err := Format(full)
	require.NoError(t, err)
	assert.Equal(t, "channel-one/source/2024-01-01T00/00:00:02.000-2-full-"+
		hashB64(full.Hash)+".ts", path)

	got, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, full.Channel, got.Channel)
	assert.Equal(t, full.Quality, got.Quality)
	assert.True(t, full.Start.Equal(got.Start))
	assert.Equal(t, full.Duration, got.Duration)
	assert.Equal(t, full.Kind, got.Kind)
	assert.Equal(t, full.Hash, got.Hash)
}

func TestParseBareFilename(t *testing.T) {
	s := NewTemp("c", "q", time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), time.Second)
	fname := s.filename()

	got, err := Parse(fname)
	require.NoError(t, err)
	assert.Empty(t, got.Channel)
	assert.Empty(t, got.Quality)
	assert.Equal(t, Temp, got.Kind)
	assert.Equal(t, s.UUID, got.UUID)
}

func TestParseRejectsGarbage(t *testing.T) {
	cases := []string{
		"",
		"not-a-segment.ts",
		"00:00:00.000-2-bogus-abcd.ts",
		"00:00:00.000-2-full-abcd.ts", // hash too short
		"a/b/c.ts",                    // wrong component count, not 1 or 4
		"c/q/2024-01-01T00/00:00:00.000-2-full-" + hashB64(HashForBytes(nil)) + ".mp4",
	}
	for _, c := range cases {
		_, err := Parse(c)
		assert.ErrorIs(t, err, ErrBadFormat, "input %q", c)
	}
}

func TestParseRejectsHourMismatch(t *testing.T) {
	s := Segment{
		Channel: "c", Quality: "q",
		Start:    time.Date(2024, 1, 1, 23, 59, 59, 0, time.UTC),
		Duration: time.Second,
		Kind:     Full,
		Hash:     HashForBytes([]byte("x")),
	}
	path, err := Format(s)
	require.NoError(t, err)

	// Corrupt the hour directory so it no longer agrees with the
	// encoded time-of-day.
	bad := path[:len("c/q/")] + "2024-01-02T00" + path[len("c/q/2024-01-01T23"):]
	_, err = Parse(bad)
	assert.ErrorIs(t, err, ErrBadFormat)
}

func TestFinalize(t *testing.T) {
	tmp := NewTemp("c", "q", time.Now().UTC(), 2*time.Second)
	assert.Equal(t, Temp, tmp.Kind)
	assert.Nil(t, tmp.Hash)

	full := tmp.Finalize(Full, []byte("segment bytes"))
	assert.Equal(t, Full, full.Kind)
	assert.Equal(t, HashForBytes([]byte("segment bytes")), full.Hash)
	assert.Empty(t, full.UUID)
}

func hashB64(h []byte) string {
	s, _ := Format(Segment{Channel: "x", Quality: "y", Kind: Full, Hash: h})
	// Pull the hash-containing tail back out of the formatted path.
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '-' {
			return s[i+1 : len(s)-len(".ts")]
		}
	}
	return ""
}
