package musicbrainz

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/binaryphile/wavtag/internal/tags"
)

var ErrTrackNotFound = errors.New("track not found")

// AlbumIDDescription labels the TXXX frame that carries the release MBID,
// matching what Picard writes.
const AlbumIDDescription = "MusicBrainz Album Id"

// TrackMapping returns the tags for the n-th track of the release, counting
// from 1 across all discs.
func (r *Release) TrackMapping(n int) (tags.Mapping, error) {
	if n < 1 || n > len(r.Tracks) {
		return nil, fmt.Errorf("%w: %d of %d", ErrTrackNotFound, n, len(r.Tracks))
	}
	t := r.Tracks[n-1]

	m := tags.Mapping{
		"album":  tags.Text(r.Title),
		"artist": tags.Text(t.Artist),
		"title":  tags.ID3Only(tags.ID3Data{Value: t.Title}),
		"name":   tags.RIFFOnly(t.Title),
	}

	// Track number goes as "N/Total" so players can show position
	total := r.TrackCount
	if total == 0 {
		total = len(r.Tracks)
	}
	m["trackNumber"] = tags.ID3Only(tags.ID3Data{Value: fmt.Sprintf("%d/%d", t.Num, total)})

	if r.Year > 0 {
		m["date"] = tags.Text(strconv.Itoa(r.Year))
	}
	if r.Compilation || t.Artist != r.Artist {
		m["band"] = tags.ID3Only(tags.ID3Data{Value: r.Artist})
	}
	if r.MBID != "" {
		m["userDefinedTextInformationFrame"] = tags.ID3Only(tags.ID3Data{
			Description: AlbumIDDescription,
			Value:       r.MBID,
		})
	}
	return m, nil
}
