package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"lipsync/cmd"
	"lipsync/internal/audio"
	"lipsync/internal/config"
	"lipsync/internal/lipsync"
	applog "lipsync/internal/log"
	"lipsync/internal/transport"
	"lipsync/internal/transport/udp"
	"lipsync/internal/tui"
	"lipsync/pkg/build"
)

// main is the entry point for the lip-sync pipeline.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Wire audio capture into the lip-sync engine
//   - Start the engine and begin block processing
//   - Start recording and shape publishing if enabled
//   - Run the terminal UI or wait headless
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop publishing, recording, and capture
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	// Limit OS threads to favor the real-time audio callback:
	// one thread for capture, one for UI and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("failed to initialize audio subsystem: %v", err)
	}
	defer audio.Terminate()

	options, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}

	// One-off commands do not need the engine running.
	if options.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	cfg := options.Config
	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	// The capture and the engine reference each other: capture delivers
	// blocks to the engine, and the engine owns the capture's lifecycle.
	// The closures here break the construction cycle; the engine exists
	// before Start triggers the first callback.
	var engine *lipsync.Engine
	capture, err := audio.NewCapture(cfg,
		func(samples []float32, seq uint64) { engine.HandleBlock(samples, seq) },
		func(err error) { engine.HandleSourceError(err) },
	)
	if err != nil {
		applog.Fatalf("failed to create audio capture: %v", err)
	}

	engine, err = lipsync.NewEngine(cfg, capture)
	if err != nil {
		applog.Fatalf("failed to create lip-sync engine: %v", err)
	}

	// CRITICAL: Start of real-time processing. Starting the engine starts
	// the capture stream, and PortAudio begins invoking the block callback.
	if err := engine.Start(); err != nil {
		applog.Fatalf("failed to start engine: %v", err)
	}

	if cfg.Recording.Enabled {
		if err := capture.StartRecording(cfg.Recording.OutputFile); err != nil {
			applog.Fatalf("failed to start recording: %v", err)
		}
		applog.Infof("recording to %s", cfg.Recording.OutputFile)
	}

	publisher, transports := startPublishing(cfg, engine)

	if options.TUIMode {
		if err := tui.StartLiveUI(engine); err != nil {
			applog.Errorf("terminal UI error: %v", err)
		}
	} else {
		fmt.Printf("Running headless. '%s --help' for usage information.\n",
			build.GetBuildFlags().Name)
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if publisher != nil {
		publisher.Stop()
	}
	for _, tr := range transports {
		if err := tr.Close(); err != nil {
			applog.Errorf("error closing transport: %v", err)
		}
	}

	if cfg.Recording.Enabled {
		if err := capture.StopRecording(); err != nil {
			applog.Errorf("error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	if err := engine.Stop(); err != nil {
		applog.Errorf("error stopping engine: %v", err)
	}
	if err := capture.Close(); err != nil {
		applog.Errorf("error closing audio capture: %v", err)
	}
}

// startPublishing builds the enabled transports and starts a publisher
// polling the engine at the configured frame rate. Returns nils when no
// transport is enabled.
func startPublishing(cfg *config.Config, engine *lipsync.Engine) (*transport.Publisher, []transport.Transport) {
	var transports []transport.Transport

	if cfg.Transport.WebSocketEnabled {
		transports = append(transports, transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr))
		applog.Infof("websocket transport listening on %s", cfg.Transport.WebSocketAddr)
	}
	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Errorf("failed to create UDP sender: %v", err)
		} else {
			transports = append(transports, sender)
			applog.Infof("udp transport targeting %s", cfg.Transport.UDPTargetAddress)
		}
	}
	if len(transports) == 0 {
		return nil, nil
	}

	publisher, err := transport.NewPublisher(cfg.PublishInterval(), engine, transports...)
	if err != nil {
		applog.Errorf("failed to create publisher: %v", err)
		return nil, transports
	}
	if err := publisher.Start(); err != nil {
		applog.Errorf("failed to start publisher: %v", err)
		return nil, transports
	}
	return publisher, transports
}
