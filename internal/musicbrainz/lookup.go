// Package musicbrainz prefills tag mappings from MusicBrainz releases.
package musicbrainz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uploadedlobster.com/mbtypes"
	"go.uploadedlobster.com/musicbrainzws2"
)

// variousArtists is the credit MusicBrainz uses for compilations.
const variousArtists = "Various Artists"

// Release is the part of a MusicBrainz release that ends up in tags.
type Release struct {
	MBID        string
	Title       string
	Artist      string // album credit, variousArtists on compilations
	Year        int
	Country     string
	TrackCount  int // across all media
	DiscCount   int
	Tracks      []Track
	Compilation bool
}

// Track is one track of a Release, numbered within its medium.
type Track struct {
	Num    int
	Title  string
	Artist string
}

// Client is a rate-limited MusicBrainz web service client.
type Client struct {
	client   *musicbrainzws2.Client
	interval time.Duration
}

// NewClient identifies the caller to MusicBrainz as appName/version with a
// contact URL or address, as the service requires.
func NewClient(appName, version, contact string) *Client {
	return &Client{
		client: musicbrainzws2.NewClient(musicbrainzws2.AppInfo{
			Name:    appName,
			Version: version,
			URL:     contact,
		}),
		interval: time.Second,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// pause waits out the interval between requests, or until ctx is done.
func (c *Client) pause(ctx context.Context) error {
	t := time.NewTimer(c.interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetReleaseTracks looks up one release with its recordings and artist
// credits, flattening every medium into a single track list.
func (c *Client) GetReleaseTracks(ctx context.Context, mbid string) (*Release, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	ws, err := c.client.LookupRelease(ctx, mbtypes.MBID(mbid), musicbrainzws2.IncludesFilter{
		Includes: []string{"recordings", "artists", "artist-credits"},
	})
	if err != nil {
		return nil, fmt.Errorf("release lookup %s: %w", mbid, err)
	}

	rel := summarize(ws)
	for _, medium := range ws.Media {
		for _, tr := range medium.Tracks {
			rel.Tracks = append(rel.Tracks, Track{
				Num:    tr.Position,
				Title:  tr.Title,
				Artist: trackArtist(tr, ws.ArtistCredit),
			})
		}
	}
	return &rel, nil
}

// Search runs a release search; results carry no track lists.
func (c *Client) Search(ctx context.Context, query string) ([]Release, error) {
	if err := c.pause(ctx); err != nil {
		return nil, err
	}

	res, err := c.client.SearchReleases(ctx,
		musicbrainzws2.SearchFilter{Query: query},
		musicbrainzws2.DefaultPaginator())
	if err != nil {
		return nil, fmt.Errorf("release search %q: %w", query, err)
	}

	releases := make([]Release, 0, len(res.Releases))
	for _, ws := range res.Releases {
		releases = append(releases, summarize(ws))
	}
	return releases, nil
}

func summarize(ws musicbrainzws2.Release) Release {
	return Release{
		MBID:        string(ws.ID),
		Title:       ws.Title,
		Artist:      creditName(ws.ArtistCredit),
		Year:        ws.Date.Year,
		Country:     string(ws.CountryCode),
		TrackCount:  trackTotal(ws.Media),
		DiscCount:   len(ws.Media),
		Compilation: len(ws.ArtistCredit) > 0 && creditName(ws.ArtistCredit) == variousArtists,
	}
}

// SortReleasesByTrackMatch orders releases with exactly trackCount tracks
// first, newest first within each group. The input is not modified.
func SortReleasesByTrackMatch(releases []Release, trackCount int) []Release {
	sorted := append([]Release(nil), releases...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if mi, mj := sorted[i].TrackCount == trackCount, sorted[j].TrackCount == trackCount; mi != mj {
			return mi
		}
		return sorted[i].Year > sorted[j].Year
	})
	return sorted
}

func creditName(credit musicbrainzws2.ArtistCredit) string {
	if len(credit) == 0 {
		return "Unknown Artist"
	}
	return credit.String()
}

// trackArtist prefers the track credit, then the recording credit, then
// the album credit.
func trackArtist(tr musicbrainzws2.Track, album musicbrainzws2.ArtistCredit) string {
	switch {
	case len(tr.ArtistCredit) > 0:
		return tr.ArtistCredit.String()
	case len(tr.Recording.ArtistCredit) > 0:
		return tr.Recording.ArtistCredit.String()
	default:
		return creditName(album)
	}
}

func trackTotal(media []musicbrainzws2.Medium) int {
	n := 0
	for _, m := range media {
		n += m.TrackCount
	}
	return n
}
