package player

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"
	"github.com/lrstanley/go-ytdlp"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

const frameDuration = 20 * time.Millisecond

// Engine streams one guild's audio through a yt-dlp + ffmpeg pipeline and
// feeds the resulting Opus packets into the voice connection. It implements
// audio.Engine: Start returns immediately, outcomes arrive via the listener.
type Engine struct {
	guildID   snowflake.ID
	transport *Transport

	mu      sync.Mutex
	current *pipeline

	paused   atomic.Bool
	volume   atomic.Int32
	listener atomic.Pointer[func(audio.Event)]
}

// pipeline is one playback attempt. Its end reason is set at most once:
// either by the transition that tears it down, or by the run loop itself
// when the stream ends on its own.
type pipeline struct {
	track    audio.Track
	cancel   context.CancelFunc
	reason   atomic.Int32 // audio.EndReason + 1; 0 means unset
	provider atomic.Pointer[oggProvider]
}

func (p *pipeline) setReason(r audio.EndReason) {
	p.reason.CompareAndSwap(0, int32(r)+1)
}

func (p *pipeline) endReason(fallback audio.EndReason) audio.EndReason {
	p.setReason(fallback)
	return audio.EndReason(p.reason.Load() - 1)
}

func NewEngine(guildID snowflake.ID, transport *Transport) *Engine {
	e := &Engine{guildID: guildID, transport: transport}
	e.volume.Store(100)
	return e
}

func (e *Engine) SetListener(fn func(audio.Event)) {
	e.listener.Store(&fn)
}

func (e *Engine) emit(ev audio.Event) {
	if fn := e.listener.Load(); fn != nil {
		(*fn)(ev)
	}
}

// Start begins playback of a track. Any pipeline still running is torn down
// first and reports EndReplaced.
func (e *Engine) Start(t audio.Track) {
	ctx, cancel := context.WithCancel(context.Background())
	pl := &pipeline{track: t, cancel: cancel}

	e.mu.Lock()
	if old := e.current; old != nil {
		old.setReason(audio.EndReplaced)
		old.cancel()
	}
	e.current = pl
	e.mu.Unlock()

	e.paused.Store(false)
	go e.run(ctx, pl)
}

// Stop tears down the current pipeline, reporting EndStopped.
func (e *Engine) Stop() {
	e.mu.Lock()
	pl := e.current
	e.current = nil
	e.mu.Unlock()

	if pl != nil {
		pl.setReason(audio.EndStopped)
		pl.cancel()
	}
}

// SetPaused freezes frame delivery. The pipeline keeps running; silence is
// sent in place of audio so position is retained.
func (e *Engine) SetPaused(paused bool) {
	e.paused.Store(paused)
}

// SetVolume stores a percentage in [0, 200]. It is baked into the ffmpeg
// filter graph, so it takes effect from the next pipeline start.
func (e *Engine) SetVolume(volume int) {
	e.volume.Store(int32(volume))
}

// Position reports how far into the current track playback is.
func (e *Engine) Position() time.Duration {
	e.mu.Lock()
	pl := e.current
	e.mu.Unlock()
	if pl == nil {
		return 0
	}
	if p := pl.provider.Load(); p != nil {
		return time.Duration(p.Frames()) * frameDuration
	}
	return 0
}

func (e *Engine) run(ctx context.Context, pl *pipeline) {
	err := e.stream(ctx, pl)

	e.mu.Lock()
	if e.current == pl {
		e.current = nil
	}
	e.mu.Unlock()

	fallback := audio.EndFinished
	if err != nil {
		fallback = audio.EndLoadFailed
		if !errors.Is(err, context.Canceled) {
			sys.LogPlayer(MsgPipelineFailed, e.guildID, pl.track.Title, err)
		}
	}
	e.emit(audio.Event{Kind: audio.EventEnded, Track: pl.track, Reason: pl.endReason(fallback)})
}

// stream runs the full pipeline: wait for voice, resolve the media URL,
// transcode with ffmpeg, feed frames until the stream drains or ctx ends.
func (e *Engine) stream(ctx context.Context, pl *pipeline) error {
	conn, err := e.waitForVoice(ctx)
	if err != nil {
		return err
	}

	streamURL, err := resolveStreamURL(ctx, pl.track.URL)
	if err != nil {
		return fmt.Errorf("resolve stream url: %w", err)
	}

	args := []string{
		"-reconnect", "1",
		"-reconnect_streamed", "1",
		"-reconnect_delay_max", "2",
		"-user_agent", "Mozilla/5.0",
		"-analyzeduration", "0",
		"-probesize", "32",
		"-i", streamURL,
		"-map", "0:a",
		"-acodec", "libopus",
		"-b:a", "128k",
		"-vbr", "on",
		"-compression_level", "10",
		"-filter:a", fmt.Sprintf("volume=%.2f", float64(e.volume.Load())/100),
		"-f", "opus",
		"pipe:1",
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, _ := cmd.StderrPipe()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start: %w", err)
	}
	defer func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		_ = cmd.Wait()
	}()

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			sys.LogDebug("ffmpeg[%s]: %s", e.guildID, scanner.Text())
		}
	}()

	done := make(chan struct{})
	provider := newOggProvider(stdout, &e.paused, func() { close(done) })
	pl.provider.Store(provider)

	conn.SetOpusFrameProvider(provider)
	conn.SetSpeaking(ctx, voice.SpeakingFlagMicrophone)
	defer func() {
		conn.SetOpusFrameProvider(nil)
		detachCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		conn.SetSpeaking(detachCtx, 0)
		cancel()
	}()

	e.emit(audio.Event{Kind: audio.EventStarted, Track: pl.track})
	sys.LogPlayer(MsgPipelineStarted, e.guildID, pl.track.Title)

	select {
	case <-done:
		// Let the send loop drain the tail of the stream.
		time.Sleep(100 * time.Millisecond)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitForVoice blocks until the transport is connected, up to 15 seconds.
// The transport is connected by the command handler in parallel with
// resolution, so this usually returns on the first check.
func (e *Engine) waitForVoice(ctx context.Context) (voice.Conn, error) {
	deadline := time.Now().Add(15 * time.Second)
	for {
		if conn := e.transport.Conn(); conn != nil {
			return conn, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.New("voice connection not established")
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// resolveStreamURL asks yt-dlp for a direct audio URL for the track.
func resolveStreamURL(ctx context.Context, rawURL string) (string, error) {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()
	if proxy := os.Getenv("YOUTUBE_PROXY"); proxy != "" {
		cmd.Proxy(proxy)
	}

	res, err := cmd.
		Format("bestaudio[ext=webm]/bestaudio[ext=m4a]/bestaudio/best").
		Print("%(url)s").
		NoPlaylist().
		NoCheckCertificates().
		IgnoreConfig().
		Run(ctx, rawURL)
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line, nil
		}
	}
	return "", errors.New("yt-dlp returned no stream url")
}

// @player
const (
	MsgPipelineStarted = "Guild %s: streaming %q"
	MsgPipelineFailed  = "Guild %s: pipeline for %q failed: %v"
)
