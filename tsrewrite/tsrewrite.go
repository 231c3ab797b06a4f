/*
DESCRIPTION
  tsrewrite.go implements a streaming MPEG-TS timestamp rewriter: it
  consumes a byte stream of 188-byte packets and rewrites PCR and PTS
  fields so a concatenation of independently-timestamped segments reads
  as one continuous timeline starting at a configured origin. Only the
  packet size constant comes from github.com/Comcast/gots/v2/packet;
  the packet header field reads and the bit-level PCR/PTS decode,
  clamp, and re-encode are hand-written against the wire format in
  spec §4.9.

AUTHORS
  Saxon A. Nelson-Milton <saxon@ausocean.org>

LICENSE
  Copyright (C) 2026 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package tsrewrite rewrites MPEG-TS PCR/PTS timestamps so concatenated
// segments present a single continuous timeline.
package tsrewrite

import (
	"errors"
	"fmt"
	"time"

	"github.com/Comcast/gots/v2/packet"
)

// PacketSize is the fixed MPEG-TS packet length.
const PacketSize = packet.PacketSize

// nominalFrameInterval is the fixed per-packet duration estimate used to
// advance end_time, per spec §4.9.
const nominalFrameInterval = 33 * time.Millisecond

// ErrTruncatedPacket is returned by End when a partial packet remains
// buffered.
var ErrTruncatedPacket = errors.New("tsrewrite: truncated packet at end of stream")

// ErrUnsupported covers packet shapes the rewriter cannot safely handle:
// a scrambled payload, or a PES header carrying DTS (rewriting DTS
// without also tracking its relationship to PTS could violate the
// "never precedes start_time" guarantee, so such packets are rejected
// rather than silently mishandled).
var ErrUnsupported = errors.New("tsrewrite: unsupported packet")

const (
	syncByte = 0x47

	// 33-bit PCR/PTS bases wrap at this value (90kHz clock).
	pcrBaseMax = 1 << 33
	pcrExtMax  = 300 // PCR extension (27MHz) cycles this many times per base tick.

	ptsFrequency = 90000 // Hz
)

// Rewriter holds the per-kind offsets established on first sight and the
// partial-packet buffer spanning Feed calls.
type Rewriter struct {
	startTime time.Duration

	havePCROffset bool
	pcrOffset     int64 // in 27MHz PCR units (base*300+ext), may be negative.

	havePTSOffset bool
	ptsOffset     int64 // in 90kHz PTS units, may be negative.

	endTime time.Duration

	buf []byte
}

// New returns a Rewriter whose output timeline begins at startTime.
func New(startTime time.Duration) *Rewriter {
	return &Rewriter{startTime: startTime}
}

// Feed consumes p (of any length; it is split into whole 188-byte
// packets, buffering any trailing partial packet for the next call) and
// returns the equally-sized rewritten output for the whole packets
// consumed.
func (r *Rewriter) Feed(p []byte) ([]byte, error) {
	r.buf = append(r.buf, p...)

	n := len(r.buf) / PacketSize
	out := make([]byte, 0, n*PacketSize)

	for i := 0; i < n; i++ {
		pkt := r.buf[i*PacketSize : (i+1)*PacketSize]
		rewritten := make([]byte, PacketSize)
		copy(rewritten, pkt)
		if err := r.rewritePacket(rewritten); err != nil {
			return nil, err
		}
		out = append(out, rewritten...)
	}

	r.buf = r.buf[n*PacketSize:]
	return out, nil
}

// End finalizes the stream, returning the furthest end_time observed.
// It fails with ErrTruncatedPacket if a partial packet remains buffered.
func (r *Rewriter) End() (time.Duration, error) {
	if len(r.buf) != 0 {
		return 0, ErrTruncatedPacket
	}
	return r.endTime, nil
}

func (r *Rewriter) rewritePacket(pkt []byte) error {
	if pkt[0] != syncByte {
		return fmt.Errorf("tsrewrite: bad sync byte 0x%02x: %w", pkt[0], ErrUnsupported)
	}
	// Transport Error Indicator (bit 7 of byte 1) and Transport
	// Scrambling Control (bits 7-6 of byte 3) must both be zero.
	if pkt[1]&0x80 != 0 {
		return fmt.Errorf("tsrewrite: transport error indicator set: %w", ErrUnsupported)
	}
	if pkt[3]&0xC0 != 0 {
		return fmt.Errorf("tsrewrite: scrambled packet: %w", ErrUnsupported)
	}

	pusi := pkt[1]&0x40 != 0
	afc := (pkt[3] >> 4) & 0x3
	hasAF := afc == 0x2 || afc == 0x3
	hasPayload := afc == 0x1 || afc == 0x3

	payloadOff := 4
	if hasAF {
		afLen := int(pkt[4])
		if afLen > 0 {
			if err := r.rewriteAdaptationField(pkt[5 : 5+afLen]); err != nil {
				return err
			}
		}
		payloadOff = 5 + afLen
	}

	if pusi && hasPayload && payloadOff < PacketSize {
		if err := r.rewritePESHeader(pkt, payloadOff); err != nil {
			return err
		}
	}

	return nil
}

// rewriteAdaptationField rewrites the PCR in af if the PCR-present flag
// is set, per spec §4.9.
func (r *Rewriter) rewriteAdaptationField(af []byte) error {
	const pcrFlag = 0x10
	if len(af) < 1 || af[0]&pcrFlag == 0 {
		return nil
	}
	if len(af) < 7 {
		return fmt.Errorf("tsrewrite: adaptation field too short for PCR: %w", ErrUnsupported)
	}

	base, ext := decodePCR(af[1:7])
	units := int64(base)*pcrExtMax + int64(ext)

	if !r.havePCROffset {
		target := durationToPCR(r.startTime)
		r.pcrOffset = target - units
		r.havePCROffset = true
	}
	rewritten := units + r.pcrOffset

	startUnits := durationToPCR(r.startTime)
	if rewritten < startUnits {
		rewritten = startUnits
	}

	newBase := uint64(rewritten/pcrExtMax) % pcrBaseMax
	newExt := uint64(rewritten%pcrExtMax)
	encodePCR(af[1:7], newBase, uint16(newExt))

	r.trackEndTime(pcrToDuration(rewritten))
	return nil
}

// rewritePESHeader rewrites the PTS in a PES header starting at
// pkt[payloadOff], if present, per spec §4.9. It rejects any packet
// whose PES header carries a DTS.
//
// pkt[payloadOff] is the payload-unit-start pointer field; for an
// elementary stream's PES payload it is always a single byte of value
// 0, so it is simply skipped (not read as a variable-length skip
// count). What remains of the 00 00 01 start code prefix after that
// byte is consumed is the two bytes 00 01, matched at body[0:2].
func (r *Rewriter) rewritePESHeader(pkt []byte, payloadOff int) error {
	p := pkt[payloadOff:]
	if len(p) < 1 {
		return nil
	}
	body := p[1:]

	if len(body) < 7 || body[0] != 0x00 || body[1] != 0x01 {
		return nil // not a PES header.
	}

	flags := body[6]
	ptsDTSFlags := (flags >> 6) & 0x3
	if ptsDTSFlags == 0 {
		return nil // no PTS/DTS present.
	}
	if ptsDTSFlags == 0x3 {
		return fmt.Errorf("tsrewrite: PES header carries DTS: %w", ErrUnsupported)
	}
	if ptsDTSFlags != 0x2 {
		return fmt.Errorf("tsrewrite: unexpected PTS_DTS_flags value %x: %w", ptsDTSFlags, ErrUnsupported)
	}
	if len(body) < 13 {
		return fmt.Errorf("tsrewrite: PES header too short for PTS: %w", ErrUnsupported)
	}

	ptsBytes := body[8:13]
	if ptsBytes[0]&0xF0 != 0x20 {
		return fmt.Errorf("tsrewrite: bad PTS marker tag: %w", ErrUnsupported)
	}

	pts := decodePTS(ptsBytes)

	if !r.havePTSOffset {
		target := durationToPTS(r.startTime)
		r.ptsOffset = target - int64(pts)
		r.havePTSOffset = true
	}
	rewritten := int64(pts) + r.ptsOffset

	startPTS := durationToPTS(r.startTime)
	if rewritten < startPTS {
		rewritten = startPTS
	}

	encodePTS(ptsBytes, uint64(rewritten)%(1<<33))

	r.trackEndTime(ptsToDuration(rewritten))
	return nil
}

func (r *Rewriter) trackEndTime(converted time.Duration) {
	candidate := converted + nominalFrameInterval
	if candidate > r.endTime {
		r.endTime = candidate
	}
}

// decodePCR decodes the 48-bit PCR field (33-bit base, 6 reserved bits,
// 9-bit extension) from a 6-byte slice.
func decodePCR(b []byte) (base uint64, ext uint16) {
	raw := uint64(b[0])<<40 | uint64(b[1])<<32 | uint64(b[2])<<24 | uint64(b[3])<<16 | uint64(b[4])<<8 | uint64(b[5])
	base = raw >> 15
	ext = uint16(raw & 0x1FF)
	return base, ext
}

// encodePCR re-encodes base/ext into the 6-byte PCR field, preserving
// the 6 reserved bits as all-ones per convention.
func encodePCR(b []byte, base uint64, ext uint16) {
	raw := (base&0x1FFFFFFFF)<<15 | 0x3F<<9 | uint64(ext&0x1FF)
	b[0] = byte(raw >> 40)
	b[1] = byte(raw >> 32)
	b[2] = byte(raw >> 24)
	b[3] = byte(raw >> 16)
	b[4] = byte(raw >> 8)
	b[5] = byte(raw)
}

// decodePTS decodes a 5-byte PTS/DTS field (marker bits interleaved per
// the PES spec) into its 33-bit value.
func decodePTS(b []byte) uint64 {
	return uint64(b[0]&0x0E)<<29 |
		uint64(b[1])<<22 |
		uint64(b[2]&0xFE)<<14 |
		uint64(b[3])<<7 |
		uint64(b[4]&0xFE)>>1
}

// encodePTS re-encodes a 33-bit value into a 5-byte PTS field with the
// tag nibble (0010) and marker bits.
func encodePTS(b []byte, v uint64) {
	v &= (1 << 33) - 1
	b[0] = 0x20 | byte(v>>29)&0x0E | 0x01
	b[1] = byte(v >> 22)
	b[2] = byte(v>>14)&0xFE | 0x01
	b[3] = byte(v >> 7)
	b[4] = byte(v<<1)&0xFE | 0x01
}

func durationToPCR(d time.Duration) int64 {
	return int64(d.Seconds() * ptsFrequency * pcrExtMax)
}

func pcrToDuration(units int64) time.Duration {
	return time.Duration(float64(units) / pcrExtMax / ptsFrequency * float64(time.Second))
}

func durationToPTS(d time.Duration) int64 {
	return int64(d.Seconds() * ptsFrequency)
}

func ptsToDuration(pts int64) time.Duration {
	return time.Duration(float64(pts) / ptsFrequency * float64(time.Second))
}
