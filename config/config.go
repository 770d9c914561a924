// Package config gathers the run settings out of defaults, an optional
// YAML file, SPOTISEEK_ prefixed environment variables and command flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/streambinder/spotiseek/downloader"
	"github.com/streambinder/spotiseek/library"
	"github.com/streambinder/spotiseek/provider"
	"github.com/streambinder/spotiseek/util"
)

const (
	envPrefix = "SPOTISEEK"
	fileName  = "spotiseek"
)

type Config struct {
	Output           string        `validate:"required"`
	Library          []string      `validate:"dive,required"`
	Cache            string        `validate:"required"`
	Concurrency      int           `validate:"min=1"`
	PollInterval     time.Duration `validate:"gt=0"`
	Thresholds       Thresholds
	Timeouts         Timeouts
	Formats          Formats
	MinMp3Bitrate    int    `validate:"min=0"`
	MaxKbsPerSecond  int    `validate:"min=0"`
	PlaylistEncoding string `validate:"oneof=pls m3u"`
	PlaylistName     string `validate:"required"`
	Progress         string `validate:"oneof=lines bars"`
	Slskd            Slskd
	Spotify          Spotify
}

type Thresholds struct {
	Library int `validate:"min=0,max=100"`
	Partial int `validate:"min=0,max=100"`
	Track   int `validate:"min=0,max=100"`
	Album   int `validate:"min=0,max=100"`
}

type Timeouts struct {
	Initiation  time.Duration `validate:"gt=0"`
	Duration    time.Duration `validate:"gt=0"`
	PerMegabyte time.Duration `validate:"min=0"`
}

type Formats struct {
	Prefer []string
	Avoid  []string
}

type Slskd struct {
	URL       string `validate:"omitempty,url"`
	APIKey    string
	Downloads string
}

type Spotify struct {
	ID     string
	Secret string
}

func defaults(v *viper.Viper) {
	v.SetDefault("output", "output")
	v.SetDefault("library", []string{})
	v.SetDefault("concurrency", 3)
	v.SetDefault("poll-interval", 100*time.Millisecond)
	v.SetDefault("threshold.library", 85)
	v.SetDefault("threshold.partial", 95)
	v.SetDefault("threshold.track", 80)
	v.SetDefault("threshold.album", 90)
	v.SetDefault("timeout.initiation", 10*time.Second)
	v.SetDefault("timeout.duration", 120*time.Second)
	v.SetDefault("timeout.per-megabyte", 10*time.Second)
	v.SetDefault("formats.prefer", []string{})
	v.SetDefault("formats.avoid", []string{})
	v.SetDefault("min-mp3-bitrate", 200)
	v.SetDefault("max-kbs-per-second", 600)
	v.SetDefault("playlist-encoding", "pls")
	v.SetDefault("playlist-name", "playlist")
	v.SetDefault("progress", "lines")
	v.SetDefault("slskd.url", "http://localhost:5030")
	v.SetDefault("slskd.api-key", "")
	v.SetDefault("slskd.downloads", filepath.Join(xdg.Home, "slskd", "downloads"))
	v.SetDefault("spotify.id", "")
	v.SetDefault("spotify.secret", "")
}

// Load reads the configuration. When path is empty, spotiseek.yaml is looked
// for in the working directory first, then in the user configuration
// directory; a missing file is not an error. Flags override every other
// source when set and are matched to keys by name.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetConfigType("yaml")
	if len(path) > 0 {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(fileName)
		v.AddConfigPath(".")
		v.AddConfigPath(util.ConfigDir())
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cache := v.GetString("cache")
	if len(cache) == 0 {
		cache = util.ErrWrap(filepath.Join(xdg.CacheHome, "spotiseek", "library.json"))(util.CacheFile("library.json"))
	}

	config := &Config{
		Output:       v.GetString("output"),
		Library:      v.GetStringSlice("library"),
		Cache:        cache,
		Concurrency:  v.GetInt("concurrency"),
		PollInterval: v.GetDuration("poll-interval"),
		Thresholds: Thresholds{
			Library: v.GetInt("threshold.library"),
			Partial: v.GetInt("threshold.partial"),
			Track:   v.GetInt("threshold.track"),
			Album:   v.GetInt("threshold.album"),
		},
		Timeouts: Timeouts{
			Initiation:  v.GetDuration("timeout.initiation"),
			Duration:    v.GetDuration("timeout.duration"),
			PerMegabyte: v.GetDuration("timeout.per-megabyte"),
		},
		Formats: Formats{
			Prefer: v.GetStringSlice("formats.prefer"),
			Avoid:  v.GetStringSlice("formats.avoid"),
		},
		MinMp3Bitrate:    v.GetInt("min-mp3-bitrate"),
		MaxKbsPerSecond:  v.GetInt("max-kbs-per-second"),
		PlaylistEncoding: strings.ToLower(v.GetString("playlist-encoding")),
		PlaylistName:     v.GetString("playlist-name"),
		Progress:         strings.ToLower(v.GetString("progress")),
		Slskd: Slskd{
			URL:       v.GetString("slskd.url"),
			APIKey:    v.GetString("slskd.api-key"),
			Downloads: v.GetString("slskd.downloads"),
		},
		Spotify: Spotify{
			ID:     v.GetString("spotify.id"),
			Secret: v.GetString("spotify.secret"),
		},
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LibraryRoots are the directories to index: the configured ones, then the
// output directory and the user music directory
func (config *Config) LibraryRoots() []string {
	roots := append([]string{}, config.Library...)
	return append(roots, config.Output, xdg.UserDirs.Music)
}

func (config *Config) LibraryThresholds() library.Thresholds {
	return library.Thresholds{Full: config.Thresholds.Library, Partial: config.Thresholds.Partial}
}

func (config *Config) Ranking() provider.Options {
	return provider.Options{
		Thresholds:      provider.Thresholds{Track: config.Thresholds.Track, Album: config.Thresholds.Album},
		MinMp3Bitrate:   config.MinMp3Bitrate,
		MaxKbsPerSecond: config.MaxKbsPerSecond,
		Prefer:          config.Formats.Prefer,
		Avoid:           config.Formats.Avoid,
	}
}

func (config *Config) DownloadTimeouts() downloader.Timeouts {
	return downloader.Timeouts{
		Initiation:  config.Timeouts.Initiation,
		Duration:    config.Timeouts.Duration,
		PerMegabyte: config.Timeouts.PerMegabyte,
	}
}
