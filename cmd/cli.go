package cmd

import (
	"os"
	"time"

	"lipsync/internal/config"
	"lipsync/pkg/build"

	"github.com/spf13/cobra"
)

// Options is the fully resolved invocation: the validated configuration plus
// the requested mode of operation.
type Options struct {
	Config  *config.Config
	Command string // One-off command ("list"), or empty for the live pipeline.
	TUIMode bool
}

func ParseArgs() (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	var (
		configPath      string
		deviceID        int
		channels        int
		sampleRate      float64
		blockSize       int
		lowLatency      bool
		strategy        string
		smoothingWindow int
		frameRate       int
		record          bool
		outputFile      string
		verbose         bool
		headless        bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.TUIMode = !headless
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
			options.TUIMode = false
		},
	}
	rootCmd.AddCommand(listCmd)

	// Configuration file
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML configuration file. Defaults to config.yaml if present.")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", config.DefaultDeviceID,
		"Specify input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().IntVarP(&channels, "channels", "c", config.DefaultChannels,
		"Number of input channels to capture (1=mono, 2=stereo)")
	rootCmd.PersistentFlags().Float64VarP(&sampleRate, "sample-rate", "s", config.DefaultSampleRate,
		"Sample rate, measured in Hertz (Hz)")
	rootCmd.PersistentFlags().IntVarP(&blockSize, "block-size", "b", config.DefaultBlockSize,
		"Samples per analysis block (power of two, affects latency)")
	rootCmd.PersistentFlags().BoolVarP(&lowLatency, "low-latency", "l", config.DefaultLowLatency,
		"Use low latency mode for real-time processing")

	// Classification Configuration
	rootCmd.PersistentFlags().StringVar(&strategy, "strategy", config.DefaultStrategy,
		"Mouth shape classifier: 'energy' or 'spectral'")
	rootCmd.PersistentFlags().IntVarP(&smoothingWindow, "smoothing-window", "w", config.DefaultSmoothingWindow,
		"Number of shapes in the majority-vote smoothing window")
	rootCmd.PersistentFlags().IntVar(&frameRate, "fps", config.DefaultFrameRate,
		"Render ticks per second for the shape publisher")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record captured audio to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Output file name. Default is recording-MM-DD-YYYY-HHMMSS.wav")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false,
		"Run without the terminal UI (log output only)")

	// Execute the CLI
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	// Command-line flags override both the file and the environment, but only
	// when explicitly set.
	flags := rootCmd.PersistentFlags()
	if flags.Changed("device") {
		cfg.Audio.InputDevice = deviceID
	}
	if flags.Changed("channels") {
		cfg.Audio.Channels = channels
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate = sampleRate
	}
	if flags.Changed("block-size") {
		cfg.Audio.BlockSize = blockSize
	}
	if flags.Changed("low-latency") {
		cfg.Audio.LowLatency = lowLatency
	}
	if flags.Changed("strategy") {
		cfg.LipSync.Strategy = strategy
	}
	if flags.Changed("smoothing-window") {
		cfg.LipSync.SmoothingWindow = smoothingWindow
	}
	if flags.Changed("fps") {
		cfg.LipSync.FrameRate = frameRate
	}
	if flags.Changed("record") {
		cfg.Recording.Enabled = record
	}
	if flags.Changed("output") {
		cfg.Recording.OutputFile = outputFile
	}
	if verbose {
		cfg.Debug = true
		cfg.LogLevel = "debug"
	}

	if cfg.Recording.Enabled && cfg.Recording.OutputFile == "" {
		cfg.Recording.OutputFile = "recording-" +
			time.Now().UTC().Format("02-01-2006-150405") + ".wav"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options.Config = cfg
	return options, nil
}
