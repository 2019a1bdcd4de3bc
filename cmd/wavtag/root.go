package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/binaryphile/wavtag/internal/config"
	"github.com/binaryphile/wavtag/internal/musicbrainz"
	"github.com/binaryphile/wavtag/internal/wave"
)

const version = "1.0"

var (
	cfgFile   string
	activeCfg config.Config
)

func NewRootCmd() *cobra.Command {
	defaults := config.DefaultConfig()
	defaults.Defaults.Software = config.DefaultSoftware + " " + version

	cmd := &cobra.Command{
		Use:           "wavtag",
		Short:         "Write WAV files carrying RIFF INFO and ID3v2.3 tags",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := config.Load(config.LoadOptions{
				Cmd:        cmd,
				ConfigFile: cfgFile,
				Defaults:   defaults,
			})
			if err != nil {
				return err
			}
			if err := loaded.Validate(); err != nil {
				return err
			}
			activeCfg = loaded
			setupLogger(loaded.LogLevel)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Optional config file (yaml|toml|json)")
	config.RegisterFlags(cmd.PersistentFlags(), defaults)

	cmd.AddCommand(newEncodeCmd())
	cmd.AddCommand(newBatchCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newTagsCmd())

	return cmd
}

// setupLogger configures the process-wide slog default logger.
func setupLogger(levelStr string) {
	lvl, err := config.ParseLogLevel(levelStr)
	if err != nil {
		lvl = slog.LevelInfo
	}
	h := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
}

// newEncoder builds the document encoder from cfg. cfg has already been
// validated, so the errors here only guard against direct callers.
func newEncoder(cfg config.Config) (*wave.Encoder, error) {
	policy, err := cfg.RiffPolicy()
	if err != nil {
		return nil, err
	}
	table, err := cfg.Table()
	if err != nil {
		return nil, err
	}
	return wave.NewEncoder(
		wave.WithTable(table),
		wave.WithRiffEncoding(policy),
		wave.WithFlattener(cfg.Flattener()),
		wave.WithSoftware(cfg.Defaults.Software),
		wave.WithLogger(slog.Default()),
	), nil
}

func newMusicBrainz(cfg config.Config) *musicbrainz.Client {
	return musicbrainz.NewClient(cfg.MusicBrainz.AppName, version, cfg.MusicBrainz.Contact)
}

// lookupRelease fetches the full track list of a release.
func lookupRelease(ctx context.Context, cfg config.Config, mbid string) (*musicbrainz.Release, error) {
	client := newMusicBrainz(cfg)
	defer client.Close()

	slog.Info("looking up release", "mbid", mbid)
	return client.GetReleaseTracks(ctx, mbid)
}
