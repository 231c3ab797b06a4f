package downloader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ausocean/utils/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipfleet/clipfleet/archive"
	"github.com/clipfleet/clipfleet/hls"
)

type fakeProvider struct {
	url    string
	maxAge time.Duration
}

func (p *fakeProvider) Resolve(ctx context.Context, quality string) (hls.Resolution, error) {
	return hls.Resolution{MediaPlaylistURL: p.url, MaxWorkerAge: p.maxAge}, nil
}

func TestWorkerDownloadsAndFinalizesFullSegment(t *testing.T) {
	const segBody = "fake mpeg-ts bytes"

	mux := http.NewServeMux()
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n" +
			"#EXT-X-VERSION:3\n" +
			"#EXT-X-TARGETDURATION:2\n" +
			"#EXT-X-PROGRAM-DATE-TIME:2024-01-01T00:00:00.000Z\n" +
			"#EXTINF:2.000,\nseg0.ts\n"))
	})
	mux.HandleFunc("/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(segBody))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := archive.New(t.TempDir())
	w := NewWorker("chan", "source", &fakeProvider{url: srv.URL + "/media.m3u8", maxAge: time.Hour}, a, (*logging.TestLogger)(t))
	w.Client = srv.Client()
	w.PollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	segs, err := archive.ListSegments(a, "chan", "source", "2024-01-01T00")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.False(t, segs[0].IsPartial())

	got, err := archive.ReadSegment(a, segs[0].Segment)
	require.NoError(t, err)
	assert.Equal(t, segBody, string(got))
}

func TestWorkerFinalizesPartialOnMidDownloadError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/media.m3u8", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("#EXTM3U\n" +
			"#EXT-X-PROGRAM-DATE-TIME:2024-01-01T00:00:00.000Z\n" +
			"#EXTINF:2.000,\nseg0.ts\n"))
	})
	mux.HandleFunc("/seg0.ts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100")
		w.Write([]byte("short")) // less than announced length, triggers a read error client-side.
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := archive.New(t.TempDir())
	wk := NewWorker("chan", "source", &fakeProvider{url: srv.URL + "/media.m3u8", maxAge: time.Hour}, a, (*logging.TestLogger)(t))
	wk.Client = srv.Client()
	wk.PollInterval = 20 * time.Millisecond

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()
	_ = wk.Run(ctx)

	segs, err := archive.ListSegments(a, "chan", "source", "2024-01-01T00")
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.True(t, segs[0].IsPartial())
}
