package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/binaryphile/wavtag/internal/config"
	"github.com/binaryphile/wavtag/internal/metadata"
	"github.com/binaryphile/wavtag/internal/musicbrainz"
	"github.com/binaryphile/wavtag/internal/tags"
)

// inputExts are the extensions batch picks up.
var inputExts = map[string]bool{".wav": true, ".f32": true, ".raw": true}

func newBatchCmd() *cobra.Command {
	var (
		albumFile string
		search    string
		releaseN  int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "batch DIR",
		Short: "Encode every input file in DIR as the tracks of one album",
		Long: `Batch encodes the .wav, .f32 and .raw files in DIR, sorted by name, as
consecutive tracks. Album tags come from --album, or from a MusicBrainz
--search, where releases with a matching track count are preferred.
Without either, each file gets the default tags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := activeCfg
			dir := args[0]

			if albumFile != "" && search != "" {
				return fmt.Errorf("--album and --search are mutually exclusive")
			}

			files, err := findInputFiles(dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no input files found in %s", dir)
			}
			slog.Info("batch", "dir", dir, "files", len(files))

			var album *metadata.Album
			switch {
			case albumFile != "":
				if album, err = metadata.ParseJSON(albumFile); err != nil {
					return err
				}
			case search != "":
				if album, err = searchAlbum(cmd.Context(), cfg, search, releaseN, len(files)); err != nil {
					return err
				}
			}
			if album != nil {
				for _, err := range album.Validate(len(files)) {
					slog.Warn("album", "error", err)
				}
			}

			jobs, err := planBatch(files, album, cfg.Output.Dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				for _, j := range jobs {
					_, _ = fmt.Fprintf(out, "%s -> %s\n", filepath.Base(j.input), j.output)
				}
				return nil
			}

			sizes, err := runBatch(cmd.Context(), cfg, jobs)
			if err != nil {
				return err
			}
			for i, j := range jobs {
				_, _ = fmt.Fprintf(out, "%s (%d bytes)\n", j.output, sizes[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&albumFile, "album", "", "Album JSON file")
	cmd.Flags().StringVar(&search, "search", "", "MusicBrainz release search query")
	cmd.Flags().IntVar(&releaseN, "release", 1, "Which search result to use, counting from 1")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done")

	return cmd
}

type batchJob struct {
	input   string
	output  string
	mapping tags.Mapping
}

var errOutputCollision = errors.New("output path collision")

// planBatch pairs each file with its output path and tags. Files beyond
// the album's track list keep the default tags. Two jobs writing the same
// path, or a job writing over any input, is an error.
func planBatch(files []string, album *metadata.Album, outDir string) ([]batchJob, error) {
	jobs := make([]batchJob, len(files))
	for i, f := range files {
		j := batchJob{input: f}
		n := i + 1
		if album != nil && n <= len(album.Tracks) {
			j.output = filepath.Join(outDir, metadata.TrackFilename(album, n))
			// n is within Tracks, so TrackMapping cannot fail
			j.mapping, _ = album.TrackMapping(n)
		} else {
			j.output = filepath.Join(outDir, outputName(nil, f))
		}
		jobs[i] = j
	}

	if err := checkCollisions(jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func checkCollisions(jobs []batchJob) error {
	inputs := make(map[string]string, len(jobs))
	for _, j := range jobs {
		abs, err := filepath.Abs(j.input)
		if err != nil {
			return err
		}
		inputs[abs] = j.input
	}

	outputs := make(map[string]string, len(jobs))
	for _, j := range jobs {
		abs, err := filepath.Abs(j.output)
		if err != nil {
			return err
		}
		if _, ok := inputs[abs]; ok {
			return fmt.Errorf("%w: %s would overwrite an input; set --output-dir", errOutputCollision, j.output)
		}
		if prev, ok := outputs[abs]; ok {
			return fmt.Errorf("%w: %s and %s both write %s", errOutputCollision, prev, j.input, j.output)
		}
		outputs[abs] = j.input
	}
	return nil
}

// runBatch encodes jobs concurrently, at most cfg.Batch.Concurrency at a
// time, and returns the byte size of each output in job order. The first
// failure cancels the jobs that have not started.
func runBatch(ctx context.Context, cfg config.Config, jobs []batchJob) ([]int, error) {
	enc, err := newEncoder(cfg)
	if err != nil {
		return nil, err
	}

	sizes := make([]int, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Batch.Concurrency)

	for i, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := encodeFile(enc, cfg, j.input, j.output, j.mapping)
			if err != nil {
				return err
			}
			sizes[i] = n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sizes, nil
}

// searchAlbum searches MusicBrainz and returns the full track list of the
// pick-th release, after ordering releases by how well their track count
// matches trackCount.
func searchAlbum(ctx context.Context, cfg config.Config, query string, pick, trackCount int) (*metadata.Album, error) {
	client := newMusicBrainz(cfg)
	defer client.Close()

	slog.Info("searching MusicBrainz", "query", query)
	releases, err := client.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, fmt.Errorf("no releases found for %q", query)
	}

	releases = musicbrainz.SortReleasesByTrackMatch(releases, trackCount)
	for i, r := range releases {
		slog.Info("candidate", "n", i+1, "artist", r.Artist, "title", r.Title,
			"year", r.Year, "country", r.Country, "tracks", r.TrackCount)
	}
	if pick < 1 || pick > len(releases) {
		return nil, fmt.Errorf("--release %d out of range (1-%d)", pick, len(releases))
	}

	full, err := client.GetReleaseTracks(ctx, releases[pick-1].MBID)
	if err != nil {
		return nil, err
	}
	if len(full.Tracks) != trackCount {
		slog.Warn("track count mismatch", "files", trackCount, "tracks", len(full.Tracks))
	}
	return metadata.FromRelease(full), nil
}

func findInputFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if inputExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	// Sort by filename (track01.wav, track02.wav, etc.)
	sort.Strings(files)
	return files, nil
}
