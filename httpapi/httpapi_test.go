/*
DESCRIPTION
  httpapi_test.go exercises the node's HTTP façade against a populated
  archive: listing, segment-bytes, and both playlist endpoints.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/segment"
)

func putSegment(t *testing.T, a *archive.Archive, start time.Time, dur time.Duration, content []byte) segment.Segment {
	t.Helper()
	s := segment.Segment{Channel: "chan", Quality: "source", Start: start, Duration: dur}.Finalize(segment.Full, content)
	require.NoError(t, archive.Write(a, s, content))
	return s
}

func TestListHoursAndSegments(t *testing.T) {
	a := archive.New(t.TempDir())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := putSegment(t, a, start, 2*time.Second, []byte("aa"))

	app := New(a, []string{"source"}, (*logging.TestLogger)(t))

	req := httptest.NewRequest(http.MethodGet, "/files/chan/source", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var hours []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&hours))
	assert.Equal(t, []string{s.Hour()}, hours)

	req = httptest.NewRequest(http.MethodGet, "/files/chan/source/"+s.Hour(), nil)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	require.Len(t, names, 1)
}

func TestListSegmentsExcludesInProgressTemp(t *testing.T) {
	a := archive.New(t.TempDir())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	full := putSegment(t, a, start, 2*time.Second, []byte("aa"))

	tmp := segment.NewTemp("chan", "source", start.Add(time.Minute), 2*time.Second)
	w, err := archive.NewTempWriter(a, tmp)
	require.NoError(t, err)
	_, err = w.Write([]byte("still downloading"))
	require.NoError(t, err)

	app := New(a, []string{"source"}, (*logging.TestLogger)(t))

	req := httptest.NewRequest(http.MethodGet, "/files/chan/source/"+full.Hour(), nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var names []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&names))
	assert.Equal(t, []string{segmentFilename(full)}, names, "an in-progress temp segment must never be advertised to a backfilling peer")
}

func TestGetSegmentServesBytes(t *testing.T) {
	a := archive.New(t.TempDir())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := putSegment(t, a, start, 2*time.Second, []byte("hello"))

	app := New(a, []string{"source"}, (*logging.TestLogger)(t))

	name := segmentFilename(s)
	req := httptest.NewRequest(http.MethodGet, "/segments/chan/source/"+s.Hour()+"/"+name, nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "video/mp2t", resp.Header.Get("Content-Type"))
}

func TestGetSegmentRejectsHiddenPathSegment(t *testing.T) {
	a := archive.New(t.TempDir())
	app := New(a, []string{"source"}, (*logging.TestLogger)(t))

	req := httptest.NewRequest(http.MethodGet, "/segments/chan/source/.hidden/x.ts", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMasterPlaylistListsOnlyArchivedQualities(t *testing.T) {
	a := archive.New(t.TempDir())
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	putSegment(t, a, start, 2*time.Second, []byte("aa"))

	app := New(a, []string{"source", "low"}, (*logging.TestLogger)(t))

	req := httptest.NewRequest(http.MethodGet, "/playlist/chan.m3u8", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := make([]byte, 4096)
	n, _ := resp.Body.Read(body)
	out := string(body[:n])
	assert.Contains(t, out, "/playlist/chan/source.m3u8")
	assert.NotContains(t, out, "/playlist/chan/low.m3u8")
}

func TestMasterPlaylistNotFoundForUnknownChannel(t *testing.T) {
	a := archive.New(t.TempDir())
	app := New(a, []string{"source"}, (*logging.TestLogger)(t))

	req := httptest.NewRequest(http.MethodGet, "/playlist/nope.m3u8", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
