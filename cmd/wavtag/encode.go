package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/binaryphile/wavtag/internal/config"
	"github.com/binaryphile/wavtag/internal/metadata"
	"github.com/binaryphile/wavtag/internal/source"
	"github.com/binaryphile/wavtag/internal/tags"
	"github.com/binaryphile/wavtag/internal/wave"
)

var errSameFile = errors.New("output would overwrite input")

func newEncodeCmd() *cobra.Command {
	var (
		out         string
		mappingFile string
		albumFile   string
		mbid        string
		track       int
		tagArgs     []string
	)

	cmd := &cobra.Command{
		Use:   "encode INPUT",
		Short: "Encode a WAV or raw float32 file into a tagged WAV",
		Long: `Encode reads INPUT (WAV, or raw little-endian float32 stereo with a
.f32/.raw extension) and writes a 16-bit stereo WAV carrying a LIST/INFO
chunk and an ID3v2.3 tag.

Tags are layered: an album track (--album or --mbid with --track), then the
--metadata mapping file, then --tag name=value pairs. With none of these the
default placeholder tags are written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := activeCfg
			input := args[0]

			if (albumFile != "" || mbid != "") && track < 1 {
				return fmt.Errorf("--track is required with --album or --mbid")
			}
			if albumFile != "" && mbid != "" {
				return fmt.Errorf("--album and --mbid are mutually exclusive")
			}

			var m tags.Mapping
			switch {
			case albumFile != "":
				album, err := metadata.ParseJSON(albumFile)
				if err != nil {
					return err
				}
				if m, err = album.TrackMapping(track); err != nil {
					return err
				}
			case mbid != "":
				release, err := lookupRelease(cmd.Context(), cfg, mbid)
				if err != nil {
					return err
				}
				if m, err = release.TrackMapping(track); err != nil {
					return err
				}
			}

			if mappingFile != "" {
				fileMapping, err := metadata.ParseMapping(mappingFile)
				if err != nil {
					return err
				}
				m = overlay(m, fileMapping)
			}

			tagMapping, err := parseTagArgs(tagArgs)
			if err != nil {
				return err
			}
			m = overlay(m, tagMapping)

			enc, err := newEncoder(cfg)
			if err != nil {
				return err
			}
			if m != nil {
				for _, err := range metadata.ValidateMapping(m, enc.Table) {
					slog.Warn("mapping", "error", err)
				}
			}

			path := out
			if path == "" {
				path = filepath.Join(cfg.Output.Dir, outputName(m, input))
			}

			n, err := encodeFile(enc, cfg, input, path, m)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s (%d bytes)\n", path, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (default: named from artist and title in output-dir)")
	cmd.Flags().StringVar(&mappingFile, "metadata", "", "Tag mapping JSON file")
	cmd.Flags().StringVar(&albumFile, "album", "", "Album JSON file (use with --track)")
	cmd.Flags().StringVar(&mbid, "mbid", "", "MusicBrainz release ID (use with --track)")
	cmd.Flags().IntVar(&track, "track", 0, "Track number within the album, counting from 1")
	cmd.Flags().StringArrayVar(&tagArgs, "tag", nil, "name=value tag written to both formats (repeatable)")

	return cmd
}

// encodeFile loads input, encodes it with m and writes the document to
// path. It returns the number of bytes written.
func encodeFile(enc *wave.Encoder, cfg config.Config, input, path string, m tags.Mapping) (int, error) {
	if err := checkDistinct(input, path); err != nil {
		return 0, err
	}

	buf, err := source.Load(input, cfg.Input.SampleRate)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", input, err)
	}

	res, err := enc.EncodeBytes(buf.Data, source.SampleRate(buf), m)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", input, err)
	}
	for _, w := range res.Warnings {
		slog.Warn("tag skipped", "file", input, "stage", w.Stage, "tag", w.Tag, "reason", w.Message)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, err
		}
	}
	if err := os.WriteFile(path, res.Data, 0644); err != nil {
		return 0, err
	}
	slog.Debug("wrote file", "input", input, "output", path, "bytes", len(res.Data))
	return len(res.Data), nil
}

func checkDistinct(input, output string) error {
	in, err := filepath.Abs(input)
	if err != nil {
		return err
	}
	o, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	if in == o {
		return fmt.Errorf("%w: %s", errSameFile, output)
	}
	return nil
}

// overlay returns base with top's entries applied on top. Either may be
// nil; the result is nil only when both are.
func overlay(base, top tags.Mapping) tags.Mapping {
	if top == nil {
		return base
	}
	if base == nil {
		return top
	}
	out := base.Clone()
	for k, v := range top {
		out[k] = v
	}
	return out
}

func parseTagArgs(args []string) (tags.Mapping, error) {
	if len(args) == 0 {
		return nil, nil
	}
	m := make(tags.Mapping, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("--tag %q: want name=value", arg)
		}
		m[name] = tags.Text(value)
	}
	return m, nil
}

// outputName names the output after the artist and title tags, falling
// back to the input's base name.
func outputName(m tags.Mapping, input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return metadata.RecordingFilename(textOf(m, "artist"), textOf(m, "title", "name"), base)
}

// textOf returns the first non-empty payload among names, preferring ID3.
func textOf(m tags.Mapping, names ...string) string {
	for _, name := range names {
		v, ok := m[name]
		if !ok {
			continue
		}
		if v.ID3 != nil && v.ID3.Value != "" {
			return v.ID3.Value
		}
		if v.RIFF != nil && *v.RIFF != "" {
			return *v.RIFF
		}
	}
	return ""
}
