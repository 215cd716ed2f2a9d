package player

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"sync/atomic"
)

// opusSilence is the canonical 3-byte Opus silence frame, sent while the
// pipeline is paused so the RTP clock keeps running.
var opusSilence = []byte{0xF8, 0xFF, 0xFE}

// oggProvider implements voice.OpusFrameProvider by parsing Opus packets
// out of the Ogg container ffmpeg writes to its stdout. Metadata packets
// (OpusHead/OpusTags) are dropped; everything else is handed to the voice
// connection one packet per 20ms tick.
type oggProvider struct {
	reader    *bufio.Reader
	header    []byte
	segBuf    []byte
	packetBuf bytes.Buffer
	pending   [][]byte

	paused *atomic.Bool
	frames atomic.Int64

	onFinish func()
	once     sync.Once
}

func newOggProvider(r io.Reader, paused *atomic.Bool, onFinish func()) *oggProvider {
	return &oggProvider{
		reader:   bufio.NewReaderSize(r, 16384),
		header:   make([]byte, 27),
		segBuf:   make([]byte, 255),
		paused:   paused,
		onFinish: onFinish,
	}
}

func (p *oggProvider) Close() {}

// Frames reports how many 20ms audio frames have been delivered.
func (p *oggProvider) Frames() int64 {
	return p.frames.Load()
}

func (p *oggProvider) finish() {
	p.once.Do(func() {
		if p.onFinish != nil {
			p.onFinish()
		}
	})
}

// ProvideOpusFrame returns the next Opus packet, or silence while paused.
func (p *oggProvider) ProvideOpusFrame() ([]byte, error) {
	if p.paused != nil && p.paused.Load() {
		return opusSilence, nil
	}

	if frame := p.popPending(); frame != nil {
		p.frames.Add(1)
		return frame, nil
	}

	for {
		sig, err := p.reader.Peek(4)
		if err != nil {
			p.finish()
			return nil, err
		}
		if string(sig) != "OggS" {
			_, _ = p.reader.Discard(1)
			continue
		}

		if _, err := io.ReadFull(p.reader, p.header); err != nil {
			p.finish()
			return nil, err
		}

		numSegs := int(p.header[26])
		segTable := p.segBuf[:numSegs]
		if _, err := io.ReadFull(p.reader, segTable); err != nil {
			p.finish()
			return nil, err
		}

		for _, segLen := range segTable {
			n := int(segLen)
			if _, err := io.CopyN(&p.packetBuf, p.reader, int64(n)); err != nil {
				p.finish()
				return nil, err
			}

			// A lacing value below 255 terminates the packet.
			if n < 255 {
				payload := p.packetBuf.Bytes()
				frame := make([]byte, len(payload))
				copy(frame, payload)
				p.packetBuf.Reset()

				if len(frame) > 8 && (string(frame[:8]) == "OpusHead" || string(frame[:8]) == "OpusTags") {
					continue
				}
				p.pending = append(p.pending, frame)
			}
		}

		if frame := p.popPending(); frame != nil {
			p.frames.Add(1)
			return frame, nil
		}
	}
}

func (p *oggProvider) popPending() []byte {
	if len(p.pending) == 0 {
		return nil
	}
	frame := p.pending[0]
	p.pending = p.pending[1:]
	return frame
}
