package hls

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grafov/m3u8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeMasterForTest(body string) (*m3u8.MasterPlaylist, m3u8.ListType, error) {
	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(body), true)
	if err != nil {
		return nil, 0, err
	}
	master, _ := playlist.(*m3u8.MasterPlaylist)
	return master, listType, nil
}

const mediaPlaylist = `#EXTM3U
#EXT-X-VERSION:3
#EXT-X-TARGETDURATION:2
#EXT-X-MEDIA-SEQUENCE:0
#EXT-X-PROGRAM-DATE-TIME:2024-01-01T00:00:00.000Z
#EXTINF:2.000,
seg0.ts
#EXT-X-PROGRAM-DATE-TIME:2024-01-01T00:00:02.000Z
#EXTINF:2.000,
seg1.ts
#EXT-X-ENDLIST
`

func TestFetchMediaPlaylist(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mediaPlaylist))
	}))
	defer srv.Close()

	entries, err := FetchMediaPlaylist(t.Context(), srv.Client(), srv.URL)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, srv.URL+"/seg0.ts", entries[0].URI)
	assert.Equal(t, 2*time.Second, entries[0].Duration)
	assert.False(t, entries[0].ProgramDateTime.IsZero())
	assert.True(t, entries[1].ProgramDateTime.After(entries[0].ProgramDateTime))
}

func TestFetchMediaPlaylistRejectsRemoteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := FetchMediaPlaylist(t.Context(), srv.Client(), srv.URL)
	assert.ErrorIs(t, err, ErrRemote)
}

func masterPlaylistWith(renditions ...string) string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n")
	for i, name := range renditions {
		group := "vid" + string(rune('0'+i))
		sb.WriteString("#EXT-X-MEDIA:TYPE=VIDEO,GROUP-ID=\"" + group + "\",NAME=\"" + name + "\",AUTOSELECT=YES,DEFAULT=YES\n")
		sb.WriteString("#EXT-X-STREAM-INF:BANDWIDTH=1000000,VIDEO=\"" + group + "\"\n")
		sb.WriteString(name + "/index.m3u8\n")
	}
	return sb.String()
}

func TestGenericProviderUsesFirstVariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(masterPlaylistWith("1080p60 (source)", "720p60")))
	}))
	defer srv.Close()

	p := NewGenericProvider(srv.URL)
	p.Client = srv.Client()

	res, err := p.Resolve(t.Context(), "source")
	require.NoError(t, err)
	assert.Contains(t, res.MediaPlaylistURL, "1080p60 (source)")
	assert.Greater(t, res.MaxWorkerAge, 24*time.Hour)
}

func TestGenericProviderRejectsNonSourceQuality(t *testing.T) {
	p := NewGenericProvider("http://example.invalid/master.m3u8")
	_, err := p.Resolve(t.Context(), "720p60")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestSelectVariantPrefersSourceRendition(t *testing.T) {
	body := masterPlaylistWith("720p60", "1080p60 (source)", "audio_only")
	playlist, listType, err := decodeMasterForTest(body)
	require.NoError(t, err)
	require.Equal(t, m3u8.MASTER, listType)

	v, err := selectVariant(playlist, "source")
	require.NoError(t, err)
	assert.Contains(t, v.URI, "1080p60 (source)")
}

func TestSelectVariantExcludesAudioOnlyUnlessNamed(t *testing.T) {
	body := masterPlaylistWith("audio_only")
	playlist, _, err := decodeMasterForTest(body)
	require.NoError(t, err)

	_, err = selectVariant(playlist, "source")
	assert.ErrorIs(t, err, ErrUnsupported)

	v, err := selectVariant(playlist, "audio_only")
	require.NoError(t, err)
	assert.Contains(t, v.URI, "audio_only")
}
