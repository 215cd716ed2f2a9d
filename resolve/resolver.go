package resolve

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
	"golang.org/x/time/rate"

	"github.com/leeineian/otowa/audio"
	"github.com/leeineian/otowa/sys"
)

const (
	searchBudget  = 4 * time.Second
	cacheTTL      = 10 * time.Minute
	maxSuggestion = 20
)

var videoIDRegex = regexp.MustCompile(`(?:v=|/v/|embed/)([A-Za-z0-9_-]{11})`)

// SearchResult is one autocomplete suggestion.
type SearchResult struct {
	URL   string
	Title string
}

// Service resolves user queries (URLs or free text) into playable tracks.
// It implements audio.Resolver. Outbound extractor calls are rate limited
// and text searches are cached with a TTL.
type Service struct {
	limiter       *rate.Limiter
	playlistLimit int

	cacheMu sync.RWMutex
	cache   map[string]cachedItem
}

type cachedItem struct {
	results   []SearchResult
	expiresAt time.Time
}

func NewService(ctx context.Context, playlistLimit int) *Service {
	s := &Service{
		limiter:       rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		playlistLimit: playlistLimit,
		cache:         make(map[string]cachedItem),
	}
	go s.cacheGC(ctx)
	return s
}

func (s *Service) cacheGC(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.cacheMu.Lock()
		now := time.Now()
		for q, item := range s.cache {
			if now.After(item.expiresAt) {
				delete(s.cache, q)
			}
		}
		s.cacheMu.Unlock()
	}
}

// Resolve classifies and resolves a query. It never returns an error; every
// failure mode is encoded in the result so the caller has a single path.
func (s *Service) Resolve(ctx context.Context, query string) audio.ResolveResult {
	if err := s.limiter.Wait(ctx); err != nil {
		return failed(err)
	}

	query = strings.TrimSpace(query)
	switch {
	case isPlaylistURL(query):
		return s.resolvePlaylist(ctx, query)
	case isURL(query):
		track, err := probeTrack(ctx, query)
		if err != nil {
			return failed(err)
		}
		return audio.ResolveResult{Kind: audio.ResolvedTrack, Track: track}
	default:
		return s.resolveSearch(ctx, query)
	}
}

func (s *Service) resolveSearch(ctx context.Context, query string) audio.ResolveResult {
	results := s.Search(ctx, query)
	if len(results) == 0 {
		return audio.ResolveResult{Kind: audio.ResolvedNoMatches}
	}

	track, err := probeTrack(ctx, results[0].URL)
	if err != nil {
		// The probe is only there for duration and artwork; fall back to
		// what the search already told us.
		sys.LogResolver(MsgProbeFallback, results[0].URL, err)
		track = audio.Track{URL: results[0].URL, Title: results[0].Title}
		if track.Title == "" {
			if id := extractVideoID(track.URL); id != "" {
				track.Title = "YouTube Track (" + id + ")"
			}
		}
	}
	return audio.ResolveResult{Kind: audio.ResolvedTrack, Track: track}
}

func (s *Service) resolvePlaylist(ctx context.Context, playlistURL string) audio.ResolveResult {
	cmd := newYtdlp()
	res, err := cmd.
		FlatPlaylist().
		Print("%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(playlist_title)s").
		PlaylistItems(fmt.Sprintf("1-%d", s.playlistLimit)).
		IgnoreConfig().
		Run(ctx, append(baseArgs(), "--yes-playlist", playlistURL)...)
	if err != nil {
		return failed(err)
	}

	var pl audio.Playlist
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 5 || ps[0] == "" || ps[1] == "" || ps[1] == "NA" {
			continue
		}
		d, _ := time.ParseDuration(ps[3] + "s")
		pl.Tracks = append(pl.Tracks, audio.Track{
			URL:      ps[0],
			Title:    ps[1],
			Author:   nonNA(ps[2]),
			Duration: d,
		})
		if pl.Name == "" {
			pl.Name = nonNA(ps[4])
		}
	}

	if len(pl.Tracks) == 0 {
		return audio.ResolveResult{Kind: audio.ResolvedNoMatches}
	}
	if pl.Name == "" {
		pl.Name = "playlist"
	}
	sys.LogResolver(MsgPlaylistResolved, len(pl.Tracks), pl.Name)
	return audio.ResolveResult{Kind: audio.ResolvedPlaylist, Playlist: pl}
}

// Search runs YouTube Music and YouTube searches in parallel, merged with
// Music results first. Results are cached per query.
func (s *Service) Search(ctx context.Context, query string) []SearchResult {
	s.cacheMu.RLock()
	if item, ok := s.cache[query]; ok && time.Now().Before(item.expiresAt) {
		s.cacheMu.RUnlock()
		return item.results
	}
	s.cacheMu.RUnlock()

	var (
		resMu sync.Mutex
		seen  = map[string]bool{}
		music []SearchResult
		yt    []SearchResult
		wg    sync.WaitGroup
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		r, err := ytmusic.TrackSearch(query).Next()
		if err != nil {
			return
		}
		for _, v := range r.Tracks {
			if v.VideoID == "" {
				continue
			}
			title := v.Title
			if len(v.Artists) > 0 {
				title += " - " + v.Artists[0].Name
			}
			resMu.Lock()
			if !seen[v.VideoID] {
				seen[v.VideoID] = true
				music = append(music, SearchResult{URL: watchURL(v.VideoID), Title: title})
			}
			resMu.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		r, err := ytsearch.NewClient(sys.HttpClient).Search(ctx, query)
		if err != nil {
			return
		}
		for _, v := range r.Results {
			if v.VideoID == "" {
				continue
			}
			resMu.Lock()
			if !seen[v.VideoID] {
				seen[v.VideoID] = true
				yt = append(yt, SearchResult{URL: watchURL(v.VideoID), Title: v.Title})
			}
			resMu.Unlock()
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(searchBudget):
	case <-ctx.Done():
	}

	resMu.Lock()
	results := append(append([]SearchResult{}, music...), yt...)
	resMu.Unlock()
	if len(results) > maxSuggestion {
		results = results[:maxSuggestion]
	}

	if len(results) > 0 {
		s.cacheMu.Lock()
		s.cache[query] = cachedItem{results: results, expiresAt: time.Now().Add(cacheTTL)}
		s.cacheMu.Unlock()
	}
	return results
}

// probeTrack asks yt-dlp for metadata of a single media URL.
func probeTrack(ctx context.Context, rawURL string) (audio.Track, error) {
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	cmd := newYtdlp()
	res, err := cmd.
		Print("%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(thumbnail)s\t%(is_live)s").
		IgnoreConfig().
		Run(probeCtx, append(baseArgs(), "--skip-download", "--no-playlist", rawURL)...)
	if err != nil {
		if strings.Contains(strings.ToLower(res.Stderr), "drm") {
			return audio.Track{}, fmt.Errorf("DRM protected content")
		}
		return audio.Track{}, err
	}

	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 6 || ps[1] == "" || ps[1] == "NA" {
			continue
		}
		d, _ := time.ParseDuration(ps[3] + "s")
		return audio.Track{
			URL:        firstNonNA(ps[0], rawURL),
			Title:      ps[1],
			Author:     nonNA(ps[2]),
			Duration:   d,
			ArtworkURL: nonNA(ps[4]),
			Stream:     ps[5] == "True",
		}, nil
	}
	return audio.Track{}, fmt.Errorf("no metadata returned")
}

// --- yt-dlp plumbing ---

func newYtdlp() *ytdlp.Command {
	cmd := ytdlp.New().
		Quiet().
		NoWarnings()
	if proxy := os.Getenv("YOUTUBE_PROXY"); proxy != "" {
		cmd.Proxy(proxy)
	}
	return cmd
}

func baseArgs() []string {
	return []string{
		"--no-check-certificates",
		"--no-warnings",
		"--extractor-args", "youtube:player_client=android,web",
		"--socket-timeout", "30",
		"--retries", "3",
	}
}

// --- Query classification ---

func isURL(q string) bool {
	return strings.HasPrefix(q, "http://") || strings.HasPrefix(q, "https://")
}

func isPlaylistURL(q string) bool {
	if !isURL(q) {
		return false
	}
	// A watch URL with a list parameter is treated as a playlist; a bare
	// video keeps its single-track semantics.
	return strings.Contains(q, "list=") || strings.Contains(q, "/playlist")
}

func extractVideoID(u string) string {
	if m := videoIDRegex.FindStringSubmatch(u); len(m) > 1 {
		return m[1]
	}
	for _, marker := range []string{"youtu.be/", "shorts/"} {
		if idx := strings.Index(u, marker); idx >= 0 {
			rest := u[idx+len(marker):]
			if cut := strings.IndexAny(rest, "?&/"); cut >= 0 {
				rest = rest[:cut]
			}
			if rest != "" {
				return rest
			}
		}
	}
	return ""
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

func nonNA(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

func firstNonNA(s, fallback string) string {
	if s == "" || s == "NA" {
		return fallback
	}
	return s
}

func failed(err error) audio.ResolveResult {
	return audio.ResolveResult{Kind: audio.ResolveFailed, Reason: err.Error()}
}

// @resolver
const (
	MsgProbeFallback    = "Metadata probe for %s failed, using search result: %v"
	MsgPlaylistResolved = "Resolved %d tracks from playlist %q"
)
