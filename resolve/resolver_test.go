package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryClassification(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		url      bool
		playlist bool
	}{
		{"free text", "never gonna give you up", false, false},
		{"watch url", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", true, false},
		{"short url", "https://youtu.be/dQw4w9WgXcQ", true, false},
		{"watch url with list", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL123", true, true},
		{"playlist url", "https://www.youtube.com/playlist?list=PL123", true, true},
		{"non-youtube url", "https://soundcloud.com/artist/track", true, false},
		{"text mentioning http", "what does http mean", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.url, isURL(tt.query))
			assert.Equal(t, tt.playlist, isPlaylistURL(tt.query))
		})
	}
}

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/shorts/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://example.com/media.mp3", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractVideoID(tt.url), tt.url)
	}
}

func TestNonNA(t *testing.T) {
	assert.Equal(t, "", nonNA("NA"))
	assert.Equal(t, "artist", nonNA("artist"))
	assert.Equal(t, "fallback", firstNonNA("NA", "fallback"))
	assert.Equal(t, "value", firstNonNA("value", "fallback"))
}
