// Package config loads wavtag settings from defaults, flags, WAVTAG_*
// environment variables and an optional config file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/binaryphile/wavtag/internal/bytebuild"
	"github.com/binaryphile/wavtag/internal/tags"
	"github.com/binaryphile/wavtag/internal/textenc"
)

var ErrInvalidConfig = errors.New("invalid config")

// DefaultSoftware is the software tag written when neither the metadata nor
// the configuration names one. An empty defaults.software turns it off.
const DefaultSoftware = "wavtag"

type Config struct {
	Encoding    EncodingConfig    `mapstructure:"encoding"`
	Defaults    DefaultsConfig    `mapstructure:"defaults"`
	Input       InputConfig       `mapstructure:"input"`
	Output      OutputConfig      `mapstructure:"output"`
	Batch       BatchConfig       `mapstructure:"batch"`
	MusicBrainz MusicBrainzConfig `mapstructure:"musicbrainz"`
	Tags        TagsConfig        `mapstructure:"tags"`
	Flatten     string            `mapstructure:"flatten"`
	LogLevel    string            `mapstructure:"log_level"`
}

type EncodingConfig struct {
	// RiffInfo is the character set label for INFO strings.
	RiffInfo string `mapstructure:"riff_info"`
}

type DefaultsConfig struct {
	Software string `mapstructure:"software"`
}

type InputConfig struct {
	// SampleRate applies to raw float32 input only.
	SampleRate uint32 `mapstructure:"sample_rate"`
}

type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

type MusicBrainzConfig struct {
	AppName string `mapstructure:"app_name"`
	Contact string `mapstructure:"contact"`
}

type TagsConfig struct {
	// Extra descriptors are added to the built-in table, replacing
	// entries with the same name.
	Extra []tags.Descriptor `mapstructure:"extra"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Encoding: EncodingConfig{RiffInfo: "utf-8"},
		Defaults: DefaultsConfig{Software: DefaultSoftware},
		Input:    InputConfig{SampleRate: 44100},
		Output:   OutputConfig{Dir: "."},
		Batch:    BatchConfig{Concurrency: 4},
		MusicBrainz: MusicBrainzConfig{
			AppName: "wavtag",
			Contact: "https://github.com/binaryphile/wavtag",
		},
		Flatten:  "immediate",
		LogLevel: "info",
	}
}

// flagKeys maps flag names to config keys.
var flagKeys = map[string]string{
	"riff-info":   "encoding.riff_info",
	"software":    "defaults.software",
	"sample-rate": "input.sample_rate",
	"output-dir":  "output.dir",
	"concurrency": "batch.concurrency",
	"mb-app-name": "musicbrainz.app_name",
	"mb-contact":  "musicbrainz.contact",
	"flatten":     "flatten",
	"log-level":   "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("riff-info", defaults.Encoding.RiffInfo, "Character set for RIFF INFO strings (utf-8, ascii or a legacy label such as windows-1252)")
	fs.String("software", defaults.Defaults.Software, "Software tag written when the metadata has none (empty to omit)")
	fs.Uint32("sample-rate", defaults.Input.SampleRate, "Sample rate of raw float32 input")
	fs.String("output-dir", defaults.Output.Dir, "Directory for encoded files")
	fs.Int("concurrency", defaults.Batch.Concurrency, "Concurrent encodes in batch mode")
	fs.String("mb-app-name", defaults.MusicBrainz.AppName, "Application name sent to MusicBrainz")
	fs.String("mb-contact", defaults.MusicBrainz.Contact, "Contact URL or email sent to MusicBrainz")
	fs.String("flatten", defaults.Flatten, "Chunk flattening mode (immediate|deferred)")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("WAVTAG")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("wavtag")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

// bindFlags binds every registered config flag to its nested key. Flags
// missing from fs are skipped.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("encoding.riff_info", c.Encoding.RiffInfo)
	v.SetDefault("defaults.software", c.Defaults.Software)
	v.SetDefault("input.sample_rate", c.Input.SampleRate)
	v.SetDefault("output.dir", c.Output.Dir)
	v.SetDefault("batch.concurrency", c.Batch.Concurrency)
	v.SetDefault("musicbrainz.app_name", c.MusicBrainz.AppName)
	v.SetDefault("musicbrainz.contact", c.MusicBrainz.Contact)
	v.SetDefault("tags.extra", c.Tags.Extra)
	v.SetDefault("flatten", c.Flatten)
	v.SetDefault("log_level", c.LogLevel)
}

// Validate reports every problem with c at once.
func (c Config) Validate() error {
	var errs []error

	if _, err := c.RiffPolicy(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Table(); err != nil {
		errs = append(errs, err)
	}
	switch c.Flatten {
	case "immediate", "deferred":
	default:
		errs = append(errs, fmt.Errorf("flatten %q (want immediate|deferred)", c.Flatten))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch concurrency %d (want at least 1)", c.Batch.Concurrency))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// RiffPolicy returns the INFO string encoding.
func (c Config) RiffPolicy() (textenc.Policy, error) {
	return textenc.ParsePolicy(c.Encoding.RiffInfo)
}

// Table returns the built-in descriptor table with the extra descriptors
// applied.
func (c Config) Table() (*tags.Table, error) {
	if len(c.Tags.Extra) == 0 {
		return tags.DefaultTable(), nil
	}
	return tags.DefaultTable().Extend(c.Tags.Extra...)
}

// Flattener returns the configured flattening mode.
func (c Config) Flattener() bytebuild.Flattener {
	return bytebuild.FlattenerByName(c.Flatten)
}

func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}
