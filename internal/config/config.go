// SPDX-License-Identifier: MIT
package config

// Core configuration constants that define the boundaries and defaults
// for the lip-sync pipeline.
const (
	// Default values for audio capture
	DefaultChannels   = 1           // Mono audio
	DefaultDeviceID   = MinDeviceID // Default to system default device
	DefaultSampleRate = 44100       // CD-quality audio
	DefaultBlockSize  = 1024        // Samples per analysis block
	DefaultLowLatency = false       // Standard latency mode

	// Default values for feature extraction and classification
	DefaultMFCCCoefficients = 13      // Coefficients kept after the DCT
	DefaultMelFilterBanks   = 26      // Triangular filters on the mel scale
	DefaultEnergyThreshold  = 0.015   // Minimum RMS energy counted as speech
	DefaultFFTWindow        = "Hann"  // Window function for the short-time spectrum
	DefaultStrategy         = "spectral"

	// Default MFCC rule thresholds. Heuristic starting points, meant to be
	// tuned per microphone and speaker via the config file.
	DefaultHighCoeffThreshold = 10.0
	DefaultLowBackThreshold   = -15.0
	DefaultLowFrontThreshold  = 15.0

	// Default values for smoothing and output cadence
	DefaultSmoothingWindow = 3  // Shapes in the majority-vote window
	DefaultFrameRate       = 30 // Render ticks per second

	// Hardware and processing limits
	MinDeviceID   = -1     // -1 represents system default device
	MinSampleRate = 8000   // Minimum usable sample rate (Hz)
	MaxSampleRate = 192000 // Maximum supported sample rate (Hz)
	MinBlockSize  = 2      // Minimum samples per block (a 1-sample spectrum is degenerate)
	MaxBlockSize  = 8192   // Maximum samples per block (power of 2)
)
