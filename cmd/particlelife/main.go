package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/gekko3d/particlelife"
	"github.com/gekko3d/particlelife/rt/backend/native"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "particlelife:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "YAML config overlaid on the built-in defaults")
	debug := flag.Bool("debug", false, "Enable debug logging and periodic frame stats")
	writeConfig := flag.String("write-config", "", "Write the effective config to this path and exit")
	flag.Parse()

	cfg, err := particlelife.Load(*configPath)
	if err != nil {
		return err
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if *writeConfig != "" {
		return cfg.WriteYAML(*writeConfig)
	}

	log := particlelife.NewDefaultLogger("particlelife", cfg.Log.Debug)
	defer log.Sync()

	win, err := particlelife.OpenWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer win.Destroy()

	gpuCtx, err := native.Open(win.SurfaceDescriptor())
	if err != nil {
		return err
	}
	defer gpuCtx.Close()

	application, err := particlelife.NewAppBuilder().
		UseConfig(cfg).
		UseLogger(log).
		UseWindow(win).
		UseClock(particlelife.GlfwClock{}).
		UseBackend(gpuCtx.Device, gpuCtx.Surface).
		Build()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return application.Run(ctx)
}
