package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"plantfinder/config"
	"plantfinder/database"
	"plantfinder/imageprocessor"
	"plantfinder/logging"
	"plantfinder/matcher"
	"plantfinder/scanner"
	"plantfinder/server"
	"plantfinder/signalhandler"
	"plantfinder/utils"
)

func main() {
	// Set the optimal number of CPUs to use
	runtime.GOMAXPROCS(signalhandler.GetOptimalProcs())

	// Parse command line arguments into a map
	args := utils.ParseArguments()

	command, hasCommand := args["command"]

	// Check if required arguments are missing
	showUsage := !hasCommand
	if hasCommand && command == "match" && args["image"] == "" {
		showUsage = true
	}
	if hasCommand && command == "seed" && args["manifest"] == "" {
		showUsage = true
	}
	if showUsage {
		utils.PrintUsage()
		os.Exit(1)
	}

	_, debugMode := args["debug"]
	logger, err := logging.SetupLogger(logging.Options{Debug: debugMode, LogFile: args["logfile"]})
	if err != nil {
		fmt.Printf("Error: failed to setup logging: %v\n", err)
		os.Exit(1)
	}
	defer logging.CloseLogger()

	configPath := config.DefaultPath
	if custom, ok := args["config"]; ok && custom != "" {
		configPath = custom
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.String("path", configPath), zap.Error(err))
	}
	if debugMode {
		cfg.Server.Debug = true
	}

	switch command {
	case "serve":
		err = handleServeCommand(cfg, logger)
	case "match":
		err = handleMatchCommand(args, cfg, logger)
	case "seed":
		err = handleSeedCommand(args, cfg, logger, debugMode)
	case "migrate":
		err = handleMigrateCommand(cfg, logger)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		utils.PrintUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		logging.CloseLogger()
		os.Exit(1)
	}
}

// openStore connects to the configured database, migrating it first when enabled
func openStore(cfg *config.Config, logger *zap.Logger, migrate bool) (*database.Store, error) {
	store, err := database.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if migrate {
		if err := store.Migrate(); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

func newMatcher(store *database.Store, cfg *config.Config, logger *zap.Logger) (*matcher.Matcher, error) {
	hasher, err := imageprocessor.NewHasher(cfg.Matcher.Hasher)
	if err != nil {
		return nil, err
	}
	return matcher.New(store, hasher, cfg.Matcher.Threshold, logger), nil
}

func handleServeCommand(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signalhandler.Context(context.Background())
	defer stop()

	store, err := openStore(cfg, logger, cfg.Database.Migrate)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := newMatcher(store, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(cfg.Server, m, store, logger)
	if err != nil {
		return err
	}

	logger.Info("Plant finder ready",
		zap.String("addr", cfg.Server.Addr),
		zap.String("upload_dir", cfg.Server.UploadDir),
		zap.Int("threshold", m.Threshold()),
		zap.String("hasher", cfg.Matcher.Hasher))

	return srv.Run(ctx)
}

func handleMatchCommand(args map[string]string, cfg *config.Config, logger *zap.Logger) error {
	signalhandler.SetupHandler()

	// Set custom threshold if provided
	if thresholdStr, ok := args["threshold"]; ok {
		threshold, err := utils.ParseThreshold(thresholdStr)
		if err != nil {
			return err
		}
		cfg.Matcher.Threshold = threshold
	}

	queryPath := args["image"]
	data, err := os.ReadFile(queryPath)
	if err != nil {
		return fmt.Errorf("cannot read query image: %w", err)
	}

	store, err := openStore(cfg, logger, false)
	if err != nil {
		return err
	}
	defer store.Close()

	m, err := newMatcher(store, cfg, logger)
	if err != nil {
		return err
	}

	startTime := time.Now()
	fmt.Println("Searching for a matching plant...")

	result, err := m.FindBestMatch(context.Background(), data)
	if err != nil {
		return err
	}

	if result.Outcome != matcher.Matched {
		fmt.Printf("\n%s\n", result.Reason)
	} else {
		p := result.Plant
		fmt.Printf("\nMatch: %s (id %d)\n", p.Name, p.ID)
		if p.ScientificName != nil {
			fmt.Printf("   Scientific name: %s\n", *p.ScientificName)
		}
		if len(p.CommonNames) > 0 {
			fmt.Printf("   Common names: %s\n", strings.Join(p.CommonNames, ", "))
		}
		fmt.Printf("   Hamming distance: %d (threshold %d)\n", p.Confidence, m.Threshold())
	}

	fmt.Printf("\nCompared %d candidates (%d skipped) in %v\n",
		result.Scanned, result.Skipped, time.Since(startTime).Round(time.Millisecond))
	return nil
}

func handleSeedCommand(args map[string]string, cfg *config.Config, logger *zap.Logger, debugMode bool) error {
	ctx, stop := signalhandler.Context(context.Background())
	defer stop()

	workers := signalhandler.GetOptimalProcs()
	if raw, ok := args["workers"]; ok {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid workers value '%s'", raw)
		}
		workers = n
	}

	hasher, err := imageprocessor.NewHasher(cfg.Matcher.Hasher)
	if err != nil {
		return err
	}

	// Seeding always needs the schema
	store, err := openStore(cfg, logger, true)
	if err != nil {
		return err
	}
	defer store.Close()

	_, forceRewrite := args["force"]
	report, err := scanner.SeedFromManifest(ctx, store, scanner.SeedOptions{
		ManifestPath: args["manifest"],
		ForceRewrite: forceRewrite,
		DebugMode:    debugMode,
		MaxWorkers:   workers,
		Hasher:       hasher,
	})
	if err != nil {
		return err
	}

	// Print summary statistics if available
	stats, err := store.GetPlantStats(ctx)
	if err == nil && stats != nil {
		fmt.Printf("\nSummary:\n")
		fmt.Printf("- Total plants: %d\n", stats.TotalPlants)
		fmt.Printf("- Plants with a reference image: %d\n", stats.PlantsWithImage)
	}

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d plants could not be seeded", report.Failed, report.Total)
	}
	return nil
}

func handleMigrateCommand(cfg *config.Config, logger *zap.Logger) error {
	signalhandler.SetupHandler()

	store, err := openStore(cfg, logger, true)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("Database schema is up to date.")
	return nil
}
