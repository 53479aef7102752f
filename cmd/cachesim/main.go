package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	"github.com/behrlich/cachesim"
	"github.com/behrlich/cachesim/internal/logging"
	"github.com/behrlich/cachesim/internal/proto"
	"github.com/behrlich/cachesim/report"
	"github.com/behrlich/cachesim/trace"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("cachesim", flag.ContinueOnError)
	var (
		protocolFlag = fs.String("protocol", "MESI", "coherence protocol: MESI or Dragon")
		inputFlag    = fs.String("input", "", "trace input prefix (directory or filename stem)")
		cacheSize    = fs.Int("cache-size", 4096, "per-processor cache size in bytes")
		assoc        = fs.Int("assoc", 2, "cache set associativity")
		block        = fs.Int("block", 32, "cache block size in bytes")
		verbose      = fs.Bool("v", false, "verbose (debug) logging")
		jsonOut      = fs.Bool("json", false, "emit the report as JSON")
		cpuprofile   = fs.String("cpuprofile", "", "write a CPU profile to this file")
	)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	protocolArg := *protocolFlag
	inputArg := *inputFlag
	rest := fs.Args()
	switch len(rest) {
	case 0:
	case 2:
		protocolArg, inputArg = rest[0], rest[1]
	default:
		fmt.Fprintln(os.Stderr, "usage: cachesim [flags] <protocol> <input-prefix>")
		return 2
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			logger.Error("could not create cpu profile", "error", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			logger.Error("could not start cpu profile", "error", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	protocol, err := proto.ParseProtocol(protocolArg)
	if err != nil {
		logger.Error("invalid protocol", "error", err)
		return 1
	}

	cfg := cachesim.DefaultConfig()
	cfg.Protocol = protocol
	cfg.InputPrefix = inputArg
	cfg.CacheSizeBytes = *cacheSize
	cfg.Associativity = *assoc
	cfg.BlockSizeBytes = *block

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	sources, err := trace.OpenDirSources(cfg.InputPrefix, cfg.NumProcessors)
	if err != nil {
		logger.Error("failed to open trace sources", "error", err)
		return 1
	}
	defer func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}()

	traceSources := make([]cachesim.TraceSource, len(sources))
	for i, s := range sources {
		traceSources[i] = s
	}

	sim, err := cachesim.New(cfg, traceSources)
	if err != nil {
		logger.Error("failed to construct simulator", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	logger.Info("starting simulation",
		"protocol", cfg.Protocol.String(), "input", cfg.InputPrefix,
		"cache_size", cfg.CacheSizeBytes, "assoc", cfg.Associativity, "block", cfg.BlockSizeBytes)

	cycles, err := sim.Run(ctx)
	if err != nil {
		logger.Error("simulation aborted", "error", err, "cycles", cycles)
		return 1
	}
	logger.Info("simulation complete", "cycles", cycles)

	snap := sim.Stats().Snapshot()
	if *jsonOut {
		if err := report.WriteJSON(os.Stdout, snap); err != nil {
			logger.Error("failed to write report", "error", err)
			return 1
		}
		return 0
	}
	if err := report.WriteText(os.Stdout, snap); err != nil {
		logger.Error("failed to write report", "error", err)
		return 1
	}
	return 0
}
