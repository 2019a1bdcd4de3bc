// Package metadata reads tag mappings and album descriptions from JSON files.
// Album files are used when MusicBrainz lookup fails or returns ambiguous
// results.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/binaryphile/wavtag/internal/musicbrainz"
	"github.com/binaryphile/wavtag/internal/tags"
)

// Album represents album metadata from a JSON file.
type Album struct {
	MBID        string  `json:"mbid,omitempty"`
	Artist      string  `json:"artist"`
	AlbumTitle  string  `json:"album"`
	Year        string  `json:"year"`
	Genre       string  `json:"genre"`
	Disc        int     `json:"disc"`
	TotalDiscs  int     `json:"totalDiscs"`
	TotalTracks int     `json:"totalTracks"`
	Tracks      []Track `json:"tracks"`
}

// Track represents a single track in the album.
type Track struct {
	Num    int    `json:"num"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// ParseJSON reads and parses an album JSON file.
func ParseJSON(path string) (*Album, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	var album Album
	if err := json.Unmarshal(data, &album); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	return &album, nil
}

// ToRelease converts Album to musicbrainz.Release so both sources share
// one tag mapping.
func (a *Album) ToRelease() *musicbrainz.Release {
	year, _ := strconv.Atoi(a.Year) // ignore error, default 0

	tracks := make([]musicbrainz.Track, 0, len(a.Tracks))
	for _, t := range a.Tracks {
		artist := t.Artist
		if artist == "" {
			artist = a.Artist
		}
		tracks = append(tracks, musicbrainz.Track{
			Num:    t.Num,
			Title:  t.Title,
			Artist: artist,
		})
	}

	trackCount := a.TotalTracks
	if trackCount == 0 {
		trackCount = len(a.Tracks)
	}

	return &musicbrainz.Release{
		MBID:        a.MBID,
		Title:       a.AlbumTitle,
		Artist:      a.Artist,
		Year:        year,
		TrackCount:  trackCount,
		DiscCount:   a.TotalDiscs,
		Tracks:      tracks,
		Compilation: a.Artist == "Various Artists",
	}
}

// FromRelease builds an Album from a MusicBrainz release so looked-up and
// hand-written albums are named and tagged the same way.
func FromRelease(r *musicbrainz.Release) *Album {
	a := &Album{
		MBID:        r.MBID,
		Artist:      r.Artist,
		AlbumTitle:  r.Title,
		TotalDiscs:  r.DiscCount,
		TotalTracks: r.TrackCount,
	}
	if r.Year > 0 {
		a.Year = strconv.Itoa(r.Year)
	}
	for _, t := range r.Tracks {
		a.Tracks = append(a.Tracks, Track{Num: t.Num, Title: t.Title, Artist: t.Artist})
	}
	return a
}

// TrackMapping returns the tags for the n-th track, counting from 1.
func (a *Album) TrackMapping(n int) (tags.Mapping, error) {
	m, err := a.ToRelease().TrackMapping(n)
	if err != nil {
		return nil, err
	}
	if a.Genre != "" {
		m["genre"] = tags.Text(a.Genre)
	}
	return m, nil
}

// Validate checks required fields and returns any validation errors.
// All issues are returned as warnings - caller decides whether to proceed.
func (a *Album) Validate(wavCount int) []error {
	var errs []error

	// Required field checks
	if a.Artist == "" {
		errs = append(errs, errors.New("missing required field: artist"))
	}
	if a.AlbumTitle == "" {
		errs = append(errs, errors.New("missing required field: album"))
	}
	if len(a.Tracks) == 0 {
		errs = append(errs, errors.New("missing required field: tracks"))
	}
	if len(a.Tracks) != wavCount {
		errs = append(errs, fmt.Errorf("track count mismatch: JSON has %d, found %d input files",
			len(a.Tracks), wavCount))
	}

	// Compilation track artist check
	if a.Artist == "Various Artists" {
		for i, t := range a.Tracks {
			if t.Artist == "" {
				errs = append(errs, fmt.Errorf("track %d missing artist (required for compilations)", i+1))
			}
		}
	}

	return errs
}
