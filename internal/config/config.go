// ABOUTME: Application configuration loaded from YAML, environment and flags
// ABOUTME: Maps validated settings onto engine and DSP configuration
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cuedeck/cuedeck/internal/preload"
	"github.com/cuedeck/cuedeck/pkg/audio/dsp"
	"github.com/cuedeck/cuedeck/pkg/audio/output"
	"github.com/cuedeck/cuedeck/pkg/engine"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to environment overrides, e.g. CUEDECK_OUTPUT_DEVICE
const EnvPrefix = "CUEDECK"

// Config is the complete application configuration
type Config struct {
	Output     OutputConfig     `mapstructure:"output"`
	Transition TransitionConfig `mapstructure:"transition"`
	Preload    PreloadConfig    `mapstructure:"preload"`
	DSP        DSPConfig        `mapstructure:"dsp"`
	Log        LogConfig        `mapstructure:"log"`
}

type OutputConfig struct {
	Backend       string `mapstructure:"backend"`
	Device        string `mapstructure:"device"`
	SampleRate    int    `mapstructure:"samplerate"`
	Channels      int    `mapstructure:"channels"`
	BlockFrames   int    `mapstructure:"blockframes"`
	MasterLimiter bool   `mapstructure:"masterlimiter"`
}

type TransitionConfig struct {
	Mode      string        `mapstructure:"mode"`
	FadeIn    time.Duration `mapstructure:"fadein"`
	FadeOut   time.Duration `mapstructure:"fadeout"`
	CrossFade time.Duration `mapstructure:"crossfade"`
}

type PreloadConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	LimitMB       int  `mapstructure:"limitmb"`
	PressureAware bool `mapstructure:"pressureaware"`
	Workers       int  `mapstructure:"workers"`
}

// DSPConfig holds the processing applied to every cue
type DSPConfig struct {
	EQEnabled bool    `mapstructure:"eqenabled"`
	EQBands   []int   `mapstructure:"eqbands"`
	Reverb    float64 `mapstructure:"reverb"`
	Tempo     float64 `mapstructure:"tempo"`
	Pitch     float64 `mapstructure:"pitch"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.backend", output.BackendAuto)
	v.SetDefault("output.device", "")
	v.SetDefault("output.samplerate", 44100)
	v.SetDefault("output.channels", 2)
	v.SetDefault("output.blockframes", 1024)
	v.SetDefault("output.masterlimiter", false)

	v.SetDefault("transition.mode", engine.FadeNone.String())
	v.SetDefault("transition.fadein", time.Second)
	v.SetDefault("transition.fadeout", time.Second)
	v.SetDefault("transition.crossfade", 2*time.Second)

	v.SetDefault("preload.enabled", false)
	v.SetDefault("preload.limitmb", preload.DefaultLimitMB)
	v.SetDefault("preload.pressureaware", true)
	v.SetDefault("preload.workers", preload.DefaultWorkers)

	v.SetDefault("dsp.eqenabled", true)
	v.SetDefault("dsp.eqbands", []int{})
	v.SetDefault("dsp.reverb", 0.0)
	v.SetDefault("dsp.tempo", 0.0)
	v.SetDefault("dsp.pitch", 0.0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// New returns a viper instance with defaults and environment overrides
// configured
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v. An empty path searches for
// cuedeck.yaml in the working directory and the user config directory;
// finding none is not an error.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cuedeck")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "cuedeck"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch strings.ToLower(c.Output.Backend) {
	case output.BackendAuto, output.BackendMalgo, output.BackendOto, output.BackendPortAudio, output.BackendNull:
	default:
		errs = append(errs, fmt.Errorf("output.backend: unknown backend %q", c.Output.Backend))
	}
	check(c.Output.SampleRate >= 8000 && c.Output.SampleRate <= 192000,
		"output.samplerate: %d outside 8000..192000", c.Output.SampleRate)
	check(c.Output.Channels >= 1 && c.Output.Channels <= 8,
		"output.channels: %d outside 1..8", c.Output.Channels)
	check(c.Output.BlockFrames >= 64 && c.Output.BlockFrames <= 16384,
		"output.blockframes: %d outside 64..16384", c.Output.BlockFrames)

	if _, err := engine.ParseFadeMode(c.Transition.Mode); err != nil {
		errs = append(errs, fmt.Errorf("transition.mode: %w", err))
	}
	check(c.Transition.FadeIn >= 0, "transition.fadein: negative duration")
	check(c.Transition.FadeOut >= 0, "transition.fadeout: negative duration")
	check(c.Transition.CrossFade >= 0, "transition.crossfade: negative duration")

	check(c.Preload.LimitMB >= preload.MinLimitMB && c.Preload.LimitMB <= preload.MaxLimitMB,
		"preload.limitmb: %d outside %d..%d", c.Preload.LimitMB, preload.MinLimitMB, preload.MaxLimitMB)
	check(c.Preload.Workers >= 1, "preload.workers: must be at least 1")

	check(len(c.DSP.EQBands) == 0 || len(c.DSP.EQBands) == dsp.NumBands,
		"dsp.eqbands: want %d gains, got %d", dsp.NumBands, len(c.DSP.EQBands))
	for i, g := range c.DSP.EQBands {
		check(g >= dsp.MinBandGain && g <= dsp.MaxBandGain,
			"dsp.eqbands[%d]: %d dB outside %d..%d", i, g, dsp.MinBandGain, dsp.MaxBandGain)
	}
	check(c.DSP.Reverb >= 0 && c.DSP.Reverb <= dsp.MaxReverbSec,
		"dsp.reverb: %.2f outside 0..%g", c.DSP.Reverb, dsp.MaxReverbSec)
	check(c.DSP.Tempo >= dsp.MinTempoPct && c.DSP.Tempo <= dsp.MaxTempoPct,
		"dsp.tempo: %.1f outside %g..%g", c.DSP.Tempo, dsp.MinTempoPct, dsp.MaxTempoPct)
	check(c.DSP.Pitch >= dsp.MinPitchPct && c.DSP.Pitch <= dsp.MaxPitchPct,
		"dsp.pitch: %.1f outside %g..%g", c.DSP.Pitch, dsp.MinPitchPct, dsp.MaxPitchPct)

	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	return errors.Join(errs...)
}

// EngineConfig maps the output and preload settings onto an engine config
func (c *Config) EngineConfig(logger *log.Logger) engine.Config {
	return engine.Config{
		SampleRate:    c.Output.SampleRate,
		Channels:      c.Output.Channels,
		BlockFrames:   c.Output.BlockFrames,
		Backend:       strings.ToLower(c.Output.Backend),
		Device:        c.Output.Device,
		MasterLimiter: c.Output.MasterLimiter,
		Preload: &preload.Policy{
			Enabled:       c.Preload.Enabled,
			LimitBytes:    int64(c.Preload.LimitMB) * 1024 * 1024,
			PressureAware: c.Preload.PressureAware,
		},
		PreloadWorkers: c.Preload.Workers,
		Logger:         logger,
	}
}

// DSPSettings returns the processing configuration for new cues
func (c *Config) DSPSettings() dsp.Config {
	return dsp.Config{
		EQEnabled: c.DSP.EQEnabled,
		EQBands:   dsp.BandsFromSlice(c.DSP.EQBands),
		ReverbSec: c.DSP.Reverb,
		TempoPct:  c.DSP.Tempo,
		PitchPct:  c.DSP.Pitch,
	}.Normalize()
}

// TriggerRequest builds the request that starts path with the configured
// transition and processing
func (c *Config) TriggerRequest(path string) engine.TriggerRequest {
	mode, _ := engine.ParseFadeMode(c.Transition.Mode)
	settings := c.DSPSettings()
	return engine.TriggerRequest{
		Path:      path,
		DSP:       &settings,
		Mode:      mode,
		FadeIn:    c.Transition.FadeIn,
		FadeOut:   c.Transition.FadeOut,
		CrossFade: c.Transition.CrossFade,
	}
}

// LogLevel is the parsed log level, info when invalid
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}
