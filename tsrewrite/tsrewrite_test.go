package tsrewrite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPacket constructs a single 188-byte TS packet carrying a PCR (in
// the adaptation field) and/or a PTS (in a PES header), for exercising
// the rewriter without a real capture.
func buildPacket(t *testing.T, pcrUnits int64, pts int64, withDTS bool) []byte {
	t.Helper()
	pkt := make([]byte, PacketSize)
	pkt[0] = syncByte
	pkt[1] = 0x40 // PUSI set, no TEI.
	pkt[2] = 0x00

	afLen := byte(7) // flags byte + 6-byte PCR.
	pkt[3] = 0x30     // AFC = both AF and payload present.
	pkt[4] = afLen
	pkt[5] = 0x10 // PCR present.
	base := uint64(pcrUnits / pcrExtMax)
	ext := uint16(pcrUnits % pcrExtMax)
	encodePCR(pkt[6:12], base, ext)

	payloadOff := 5 + int(afLen)
	// A genuine elementary-stream PES payload has no separate
	// payload-unit pointer byte ahead of its start code; the rewriter
	// treats the start code's own leading 0x00 as that pointer (value
	// 0), so the 3-byte start_code_prefix sits directly at payloadOff.
	pes := pkt[payloadOff:]
	pes[0], pes[1], pes[2] = 0x00, 0x00, 0x01
	pes[3] = 0xE0 // stream id (video).
	// pes[4:6] is PES_packet_length, left zero (unused by the rewriter).
	pes[6] = 0x80 // '10' marker bits, no scrambling/priority/alignment/copyright flags.
	if withDTS {
		pes[7] = 0xC0 // PTS_DTS_flags = 11.
	} else {
		pes[7] = 0x80 // PTS_DTS_flags = 10 (PTS only).
	}
	pes[8] = 5 // PES header data length.
	ptsBytes := pes[9:14]
	if !withDTS {
		encodePTS(ptsBytes, uint64(pts))
	} else {
		ptsBytes[0] = 0x30 // well-formed-looking marker, content irrelevant: rejected before use.
	}

	return pkt
}

func TestFeedEstablishesOffsetsOnFirstPacketAndShiftsSecond(t *testing.T) {
	start := 10 * time.Second
	r := New(start)

	firstPCRUnits := durationToPCR(5 * time.Second)
	firstPTS := durationToPTS(5 * time.Second)
	p1 := buildPacket(t, firstPCRUnits, firstPTS, false)

	out1, err := r.Feed(p1)
	require.NoError(t, err)
	gotBase, gotExt := decodePCR(out1[6:12])
	gotPCRUnits := int64(gotBase)*pcrExtMax + int64(gotExt)
	assert.InDelta(t, durationToPCR(start), gotPCRUnits, 1)

	secondPCRUnits := durationToPCR(6 * time.Second) // one second later in source timeline.
	secondPTS := durationToPTS(6 * time.Second)
	p2 := buildPacket(t, secondPCRUnits, secondPTS, false)

	out2, err := r.Feed(p2)
	require.NoError(t, err)
	gotBase2, gotExt2 := decodePCR(out2[6:12])
	gotPCRUnits2 := int64(gotBase2)*pcrExtMax + int64(gotExt2)
	assert.InDelta(t, durationToPCR(start+time.Second), gotPCRUnits2, 1)
}

func TestFeedClampsToStartTime(t *testing.T) {
	start := 10 * time.Second
	r := New(start)

	// First packet establishes the offset at exactly start.
	p1 := buildPacket(t, durationToPCR(5*time.Second), durationToPTS(5*time.Second), false)
	_, err := r.Feed(p1)
	require.NoError(t, err)

	// A packet that (due to source jitter) would land before its
	// predecessor once shifted must clamp to start, never precede it.
	p2 := buildPacket(t, durationToPCR(4*time.Second), durationToPTS(4*time.Second), false)
	out2, err := r.Feed(p2)
	require.NoError(t, err)
	gotBase, gotExt := decodePCR(out2[6:12])
	gotUnits := int64(gotBase)*pcrExtMax + int64(gotExt)
	assert.Equal(t, durationToPCR(start), gotUnits)
}

func TestFeedRejectsDTS(t *testing.T) {
	r := New(0)
	p := buildPacket(t, durationToPCR(time.Second), durationToPTS(time.Second), true)
	_, err := r.Feed(p)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestEndFailsOnTruncatedPacket(t *testing.T) {
	r := New(0)
	_, err := r.Feed(make([]byte, PacketSize/2))
	require.NoError(t, err)
	_, err = r.End()
	assert.ErrorIs(t, err, ErrTruncatedPacket)
}

func TestEndReportsAdvancingEndTime(t *testing.T) {
	r := New(0)
	p1 := buildPacket(t, durationToPCR(time.Second), durationToPTS(time.Second), false)
	_, err := r.Feed(p1)
	require.NoError(t, err)
	end, err := r.End()
	require.NoError(t, err)
	assert.Greater(t, end, time.Duration(0))
}
