package musicbrainz

import (
	"errors"
	"testing"
)

func testRelease() *Release {
	return &Release{
		MBID:       "12345678-1234-1234-1234-123456789012",
		Title:      "Test Album",
		Artist:     "Test Artist",
		Year:       2024,
		TrackCount: 2,
		Tracks: []Track{
			{Num: 1, Title: "Track One", Artist: "Test Artist"},
			{Num: 2, Title: "Track Two", Artist: "Guest"},
		},
	}
}

func TestTrackMapping_Fields(t *testing.T) {
	m, err := testRelease().TrackMapping(1)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"album id3", m["album"].ID3.Value, "Test Album"},
		{"album riff", *m["album"].RIFF, "Test Album"},
		{"artist", m["artist"].ID3.Value, "Test Artist"},
		{"title", m["title"].ID3.Value, "Track One"},
		{"name", *m["name"].RIFF, "Track One"},
		{"trackNumber", m["trackNumber"].ID3.Value, "1/2"},
		{"date", *m["date"].RIFF, "2024"},
		{"mbid", m["userDefinedTextInformationFrame"].ID3.Value, "12345678-1234-1234-1234-123456789012"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if m["title"].RIFF != nil {
		t.Error("title has a RIFF payload, want ID3 only")
	}
	if _, ok := m["band"]; ok {
		t.Error("band set for a single-artist track")
	}
}

func TestTrackMapping_GuestArtistSetsBand(t *testing.T) {
	m, err := testRelease().TrackMapping(2)
	if err != nil {
		t.Fatal(err)
	}
	if m["band"].ID3 == nil || m["band"].ID3.Value != "Test Artist" {
		t.Errorf("band = %+v, want Test Artist", m["band"])
	}
	if m["artist"].ID3.Value != "Guest" {
		t.Errorf("artist = %q, want Guest", m["artist"].ID3.Value)
	}
}

func TestTrackMapping_OutOfRange(t *testing.T) {
	for _, n := range []int{0, 3, -1} {
		if _, err := testRelease().TrackMapping(n); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("TrackMapping(%d) error = %v, want ErrTrackNotFound", n, err)
		}
	}
}

func TestTrackMapping_NoYearNoMBID(t *testing.T) {
	r := testRelease()
	r.Year, r.MBID = 0, ""

	m, err := r.TrackMapping(1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := m["date"]; ok {
		t.Error("date set without a year")
	}
	if _, ok := m["userDefinedTextInformationFrame"]; ok {
		t.Error("TXXX set without an MBID")
	}
}
