package player

import (
	"bytes"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oggPage builds a minimal Ogg page wrapping the given packets, one lacing
// run per packet.
func oggPage(t *testing.T, packets ...[]byte) []byte {
	t.Helper()

	var segTable []byte
	var payload bytes.Buffer
	for _, pkt := range packets {
		rest := len(pkt)
		for rest >= 255 {
			segTable = append(segTable, 255)
			rest -= 255
		}
		segTable = append(segTable, byte(rest))
		payload.Write(pkt)
	}
	require.LessOrEqual(t, len(segTable), 255)

	header := make([]byte, 27)
	copy(header, "OggS")
	header[26] = byte(len(segTable))

	var page bytes.Buffer
	page.Write(header)
	page.Write(segTable)
	page.Write(payload.Bytes())
	return page.Bytes()
}

func opusHeadPacket() []byte {
	pkt := make([]byte, 19)
	copy(pkt, "OpusHead")
	return pkt
}

func TestOggProviderParsesPackets(t *testing.T) {
	data := []byte{0x01, 0x02, 0x03}
	var stream bytes.Buffer
	stream.Write(oggPage(t, opusHeadPacket()))
	stream.Write(oggPage(t, data, []byte{0x04, 0x05}))

	finished := false
	p := newOggProvider(&stream, nil, func() { finished = true })

	frame, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, data, frame, "metadata packets are skipped")

	frame, err = p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 0x05}, frame)
	assert.Equal(t, int64(2), p.Frames())

	_, err = p.ProvideOpusFrame()
	assert.Error(t, err, "stream drained")
	assert.True(t, finished)
}

func TestOggProviderLargePacket(t *testing.T) {
	pkt := bytes.Repeat([]byte{0xAB}, 300)
	var stream bytes.Buffer
	stream.Write(oggPage(t, pkt))

	p := newOggProvider(&stream, nil, nil)

	frame, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, pkt, frame, "lacing runs of 255 continue the packet")
}

func TestOggProviderSkipsGarbageBeforePage(t *testing.T) {
	data := []byte{0x09}
	var stream bytes.Buffer
	stream.Write([]byte("junk bytes"))
	stream.Write(oggPage(t, data))

	p := newOggProvider(&stream, nil, nil)

	frame, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, data, frame)
}

func TestOggProviderPausedReturnsSilence(t *testing.T) {
	var paused atomic.Bool
	paused.Store(true)

	p := newOggProvider(bytes.NewReader(nil), &paused, nil)

	frame, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, opusSilence, frame)
	assert.Equal(t, int64(0), p.Frames(), "silence does not advance position")
}
