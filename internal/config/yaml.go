// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"lipsync/pkg/bitint"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug     bool            `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel  string          `yaml:"log_level"`  // Logging level (e.g., "debug", "info", "warn", "error").
	Audio     AudioConfig     `yaml:"audio"`     // Audio capture settings.
	LipSync   LipSyncConfig   `yaml:"lipsync"`   // Feature extraction and classification settings.
	Recording RecordingConfig `yaml:"recording"` // Input recording settings.
	Transport TransportConfig `yaml:"transport"` // Shape publishing settings.
}

// AudioConfig holds settings related to audio input and block delivery.
type AudioConfig struct {
	InputDevice int     `yaml:"input_device"` // PortAudio device index for audio input (-1 for default).
	SampleRate  float64 `yaml:"sample_rate"`  // Sample rate in Hz (e.g., 44100, 48000).
	BlockSize   int     `yaml:"block_size"`   // Samples per analysis block (affects latency and FFT resolution).
	Channels    int     `yaml:"channels"`     // Number of input channels to capture (1 for mono).
	LowLatency  bool    `yaml:"low_latency"`  // Request low latency settings from the PortAudio device.
}

// LipSyncConfig holds settings for feature extraction, classification and smoothing.
type LipSyncConfig struct {
	MFCCCoefficients   int     `yaml:"mfcc_coefficients"`    // Number of MFCC coefficients to keep.
	MelFilterBanks     int     `yaml:"mel_filter_banks"`     // Number of mel filters in the filter bank.
	FFTWindow          string  `yaml:"fft_window"`           // Window function name (e.g., "Hann", "Hamming").
	EnergyThreshold    float64 `yaml:"energy_threshold"`     // Minimum RMS energy counted as speech.
	HighCoeffThreshold float64 `yaml:"high_coeff_threshold"` // mfcc[2] above this selects the open "A" shape.
	LowBackThreshold   float64 `yaml:"low_back_threshold"`   // mfcc[1] below this selects the rounded "O" shape.
	LowFrontThreshold  float64 `yaml:"low_front_threshold"`  // mfcc[1] above this selects the wide "E" shape.
	SmoothingWindow    int     `yaml:"smoothing_window"`     // Shapes in the majority-vote window.
	Strategy           string  `yaml:"strategy"`             // Active classifier: "energy" or "spectral".
	FrameRate          int     `yaml:"frame_rate"`           // Render ticks per second for the shape publisher.
}

// RecordingConfig holds settings for recording the captured input to disk.
// Recordings are handy for tuning the MFCC thresholds offline.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record captured audio to a WAV file.
	OutputFile string `yaml:"output_file"` // Output path; empty for a timestamped name.
}

// TransportConfig holds settings for publishing stabilized shapes to a renderer.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"` // Serve shape frames over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`    // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Send shape frames over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets.
	PublishInterval  time.Duration `yaml:"publish_interval"`  // Interval between frames; 0 derives from frame_rate.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, it searches default locations ("config.yaml"). If no file is found the
// built-in defaults are used. After loading, environment variable overrides are
// applied and the final configuration is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		candidates := []string{
			"config.yaml",
		}
		found := false
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				found = true
				break
			}
		}
		if !found {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides AFTER loading from file.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Defaults returns a Config populated with the built-in default values.
func Defaults() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice: DefaultDeviceID,
			SampleRate:  DefaultSampleRate,
			BlockSize:   DefaultBlockSize,
			Channels:    DefaultChannels,
			LowLatency:  DefaultLowLatency,
		},
		LipSync: LipSyncConfig{
			MFCCCoefficients:   DefaultMFCCCoefficients,
			MelFilterBanks:     DefaultMelFilterBanks,
			FFTWindow:          DefaultFFTWindow,
			EnergyThreshold:    DefaultEnergyThreshold,
			HighCoeffThreshold: DefaultHighCoeffThreshold,
			LowBackThreshold:   DefaultLowBackThreshold,
			LowFrontThreshold:  DefaultLowFrontThreshold,
			SmoothingWindow:    DefaultSmoothingWindow,
			Strategy:           DefaultStrategy,
			FrameRate:          DefaultFrameRate,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			PublishInterval:  0, // Derived from frame_rate unless set explicitly.
		},
	}
}

// Validate checks the configuration for values the pipeline cannot be
// constructed with. A non-nil error here is fatal: the engine must never be
// built on top of non-finite thresholds or degenerate buffer sizes.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside supported range [%d, %d]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.BlockSize < MinBlockSize || c.Audio.BlockSize > MaxBlockSize {
		return fmt.Errorf("audio.block_size must be in [%d, %d], got %d", MinBlockSize, MaxBlockSize, c.Audio.BlockSize)
	}
	if !bitint.IsPowerOfTwo(c.Audio.BlockSize) {
		return fmt.Errorf("audio.block_size must be a power of 2, got %d", c.Audio.BlockSize)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be at least 1, got %d", c.Audio.Channels)
	}
	if c.LipSync.MFCCCoefficients < 1 {
		return fmt.Errorf("lipsync.mfcc_coefficients must be at least 1, got %d", c.LipSync.MFCCCoefficients)
	}
	if c.LipSync.MelFilterBanks < c.LipSync.MFCCCoefficients {
		return fmt.Errorf("lipsync.mel_filter_banks (%d) must be >= lipsync.mfcc_coefficients (%d)",
			c.LipSync.MelFilterBanks, c.LipSync.MFCCCoefficients)
	}
	if c.LipSync.SmoothingWindow < 1 {
		return fmt.Errorf("lipsync.smoothing_window must be at least 1, got %d", c.LipSync.SmoothingWindow)
	}
	if c.LipSync.FrameRate < 1 {
		return fmt.Errorf("lipsync.frame_rate must be at least 1, got %d", c.LipSync.FrameRate)
	}
	for _, th := range []struct {
		name  string
		value float64
	}{
		{"lipsync.energy_threshold", c.LipSync.EnergyThreshold},
		{"lipsync.high_coeff_threshold", c.LipSync.HighCoeffThreshold},
		{"lipsync.low_back_threshold", c.LipSync.LowBackThreshold},
		{"lipsync.low_front_threshold", c.LipSync.LowFrontThreshold},
	} {
		if math.IsNaN(th.value) || math.IsInf(th.value, 0) {
			return fmt.Errorf("%s must be finite, got %f", th.name, th.value)
		}
	}
	if c.LipSync.EnergyThreshold < 0 {
		return fmt.Errorf("lipsync.energy_threshold must be non-negative, got %f", c.LipSync.EnergyThreshold)
	}
	switch c.LipSync.Strategy {
	case "energy", "spectral":
	default:
		return fmt.Errorf("lipsync.strategy must be \"energy\" or \"spectral\", got %q", c.LipSync.Strategy)
	}
	return nil
}

// PublishInterval returns the interval between published frames, deriving it
// from the configured frame rate when no explicit override is set.
func (c *Config) PublishInterval() time.Duration {
	if c.Transport.PublishInterval > 0 {
		return c.Transport.PublishInterval
	}
	return time.Second / time.Duration(c.LipSync.FrameRate)
}

func (cfg *Config) applyEnvOverrides() {
	// LIPSYNC_{...}
	// General overrides, applied after any config file.

	// LIPSYNC_DEBUG
	if val, ok := os.LookupEnv("LIPSYNC_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	// LIPSYNC_LOG_LEVEL
	if val, ok := os.LookupEnv("LIPSYNC_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	// LIPSYNC_STRATEGY
	if val, ok := os.LookupEnv("LIPSYNC_STRATEGY"); ok {
		cfg.LipSync.Strategy = val
	}

	// LIPSYNC_WS_{...}
	// Transport-specific overrides.

	// LIPSYNC_WS_ENABLED
	if val, ok := os.LookupEnv("LIPSYNC_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WebSocketEnabled = bVal
		}
	}
	// LIPSYNC_WS_ADDR
	if val, ok := os.LookupEnv("LIPSYNC_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
	}
	// LIPSYNC_UDP_TARGET_ADDRESS
	if val, ok := os.LookupEnv("LIPSYNC_UDP_TARGET_ADDRESS"); ok {
		cfg.Transport.UDPTargetAddress = val
	}
}
