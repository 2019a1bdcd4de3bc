package metadata

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Ext is the extension of every generated filename.
const Ext = ".wav"

// TrackFilename names one track of an album.
//
// Format: Artist-Album-NN-Title.wav
// Multi-disc: Artist-Album-CDN-NN-Title.wav
// Compilations put the track artist after the number instead:
// Album-NN-TrackArtist-Title.wav
func TrackFilename(a *Album, n int) string {
	t := a.Tracks[n-1]
	num := t.Num
	if num == 0 {
		num = n
	}

	var parts []string
	if a.Artist == "Various Artists" {
		parts = append(parts, sanitize(a.AlbumTitle))
	} else {
		parts = append(parts, sanitize(a.Artist), sanitize(a.AlbumTitle))
	}
	if a.Disc > 0 && a.TotalDiscs > 1 {
		parts = append(parts, fmt.Sprintf("CD%d", a.Disc))
	}
	parts = append(parts, fmt.Sprintf("%02d", num))
	if a.Artist == "Various Artists" {
		parts = append(parts, sanitize(t.Artist))
	}
	parts = append(parts, sanitize(t.Title))

	return joinParts(parts)
}

// RecordingFilename names a single recording from its artist and title.
// Empty parts are left out; with neither, fallback is used.
func RecordingFilename(artist, title, fallback string) string {
	var parts []string
	for _, s := range []string{artist, title} {
		if s = sanitize(s); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, sanitize(fallback))
	}
	return joinParts(parts)
}

func joinParts(parts []string) string {
	return strings.Join(parts, "-") + Ext
}

// sanitize prepares a string for use in a filename.
//
// Character handling:
// - Non-ASCII → normalized to ASCII equivalents (ō→o, é→e)
// - Spaces, / and \ and shell metacharacters → underscores
// - Quotes (' " `) → removed
// - Runs of underscores → one underscore, trimmed at both ends
func sanitize(s string) string {
	s = normalizeToASCII(s)

	var b strings.Builder
	b.Grow(len(s))

	lastWasUnderscore := false
	for _, r := range s {
		switch r {
		case '\'', '"', '`':
			// removed entirely

		case ' ', '/', '\\', '$', '!', '*', '?', '[', ']', '(', ')', '{', '}', '<', '>', '|', '&', ';':
			if !lastWasUnderscore {
				b.WriteByte('_')
				lastWasUnderscore = true
			}

		default:
			b.WriteRune(r)
			lastWasUnderscore = r == '_'
		}
	}

	return strings.Trim(b.String(), "_")
}

// normalizeToASCII decomposes with NFKD, drops combining marks and then
// anything still outside ASCII.
func normalizeToASCII(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	result, _, _ := transform.String(t, s)

	var b strings.Builder
	for _, r := range result {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
