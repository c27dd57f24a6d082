package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"tftrivals/internal/config"
	"tftrivals/internal/discord"
	"tftrivals/internal/export"
	"tftrivals/internal/flatten"
	"tftrivals/internal/riot"
	"tftrivals/internal/walker"
)

const (
	defaultRiotID = "LunaLush#Heyyy"
	defaultLayers = 20

	exportTimeout = 2 * time.Minute
)

type options struct {
	riotID       string
	puuid        string
	layers       int
	count        int
	out          string
	sqlitePath   string
	archiveDir   string
	compress     bool
	skipKeyCheck bool
	seed         int64
}

func main() {
	var opts options
	flag.StringVar(&opts.riotID, "riot-id", defaultRiotID, "Starting Riot ID (e.g., 'Player#NA1')")
	flag.StringVar(&opts.puuid, "puuid", "", "Starting PUUID (skips the Riot ID lookup)")
	flag.IntVar(&opts.layers, "layers", defaultLayers, "Number of players to hop through")
	flag.IntVar(&opts.count, "count", walker.DefaultMatchesPerLayer, "Number of recent matches to fetch per player")
	flag.StringVar(&opts.out, "out", export.DefaultCSVPath, "CSV output path")
	flag.StringVar(&opts.sqlitePath, "sqlite", "", "Also append rows to this SQLite database")
	flag.StringVar(&opts.archiveDir, "archive-dir", "", "Archive raw match JSON under this directory")
	flag.BoolVar(&opts.compress, "archive-compress", false, "Gzip archived files into cold/ when done")
	flag.BoolVar(&opts.skipKeyCheck, "skip-key-check", false, "Do not validate the API key before starting")
	flag.Int64Var(&opts.seed, "seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	if opts.layers <= 0 {
		fmt.Fprintln(os.Stderr, "Invalid input. --layers must be a positive integer.")
		os.Exit(2)
	}

	config.LoadDotEnv(config.DefaultEnvPaths)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Using API key: %s", riot.KeyHint(cfg.APIKey))

	ctx, cancel := setupSignalHandler()
	defer cancel()

	if err := run(ctx, cfg, opts); err != nil {
		log.Fatalf("%v", err)
	}
}

// run resolves the starting player, walks, and exports. A cancelled walk
// still exports whatever it collected.
func run(ctx context.Context, cfg config.Config, opts options) error {
	client, err := riot.NewClient(cfg.APIKey,
		riot.WithBaseURL(cfg.BaseURL),
		riot.WithRetryPolicy(cfg.RetryPolicy()),
	)
	if err != nil {
		return fmt.Errorf("failed to create Riot client: %w", err)
	}

	if !opts.skipKeyCheck {
		status, err := riot.NewKeyChecker().Check(ctx, cfg.APIKey)
		switch {
		case riot.IsAPIKeyError(err):
			return fmt.Errorf("API key %s was rejected, generate a new one: %w", riot.KeyHint(cfg.APIKey), err)
		case err != nil:
			log.Printf("[Config] Could not validate API key (continuing): %v", err)
		default:
			log.Printf("[Config] API key accepted (%s)", status.Name)
		}
	}

	startPUUID := opts.puuid
	startPlayer := startPUUID
	if startPUUID == "" {
		gameName, tagLine, err := parseRiotID(opts.riotID)
		if err != nil {
			return err
		}
		startPlayer = gameName + "#" + tagLine

		log.Printf("Looking up Riot ID: %s...", startPlayer)
		account, err := client.GetAccountByRiotID(ctx, gameName, tagLine)
		if err != nil {
			return fmt.Errorf("failed to lookup %s: %w", startPlayer, err)
		}
		startPUUID = account.PUUID
		log.Printf("PUUID: %s", startPUUID)
	}

	sinks, err := openSinks(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				log.Printf("[Export] Error closing %s: %v", s.Name(), err)
			}
		}
	}()

	var archive *export.Archive
	var observer walker.MatchObserver
	if opts.archiveDir != "" {
		archive, err = export.NewArchive(opts.archiveDir, export.DefaultMatchesPerFile)
		if err != nil {
			return fmt.Errorf("failed to create archive: %w", err)
		}
		observer = archive
	}

	var rng *rand.Rand
	if opts.seed != 0 {
		rng = rand.New(rand.NewSource(opts.seed))
	}

	w := walker.New(client, walker.Config{
		MatchesPerLayer: opts.count,
		Rand:            rng,
		Observer:        observer,
	})

	result, walkErr := w.Run(ctx, startPUUID, opts.layers)
	if walkErr != nil && !errors.Is(walkErr, context.Canceled) {
		return fmt.Errorf("walk failed: %w", walkErr)
	}
	if walkErr != nil {
		log.Printf("[Walker] Walk interrupted after %d layers", result.Stats.LayersRun)
	}

	if archive != nil {
		if err := archive.Close(); err != nil {
			log.Printf("[Archive] Error closing: %v", err)
		}
		if opts.compress {
			if _, err := archive.CompressWarm(); err != nil {
				log.Printf("[Archive] Error compressing: %v", err)
			}
		}
	}

	rows := flatten.Flatten(result.Matches)

	// The walk context may already be cancelled; exporting gets its own deadline
	exportCtx, cancel := context.WithTimeout(context.Background(), exportTimeout)
	defer cancel()
	exportErr := export.WriteAll(exportCtx, rows, sinks...)

	result.Stats.PrintSummary(len(rows))
	notify(exportCtx, cfg, startPlayer, opts.out, result, len(rows), walkErr, exportErr)

	if exportErr != nil {
		return fmt.Errorf("export failed: %w", exportErr)
	}
	return nil
}

// openSinks opens every configured export target; the CSV file is always first
func openSinks(ctx context.Context, cfg config.Config, opts options) ([]export.Sink, error) {
	sinks := []export.Sink{export.NewCSVSink(opts.out)}

	closeAll := func() {
		for _, s := range sinks {
			s.Close()
		}
	}

	if opts.sqlitePath != "" {
		s, err := export.NewSQLiteSink(opts.sqlitePath)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.TursoURL != "" {
		s, err := export.NewTursoSink(cfg.TursoURL, cfg.TursoAuthToken)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.DatabaseURL != "" {
		s, err := export.NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

// notify reports the outcome to Discord. walkErr is nil or context.Canceled here;
// any other walk error returns before export.
func notify(ctx context.Context, cfg config.Config, startPlayer, out string, result *walker.Result, rows int, walkErr, exportErr error) {
	if cfg.DiscordWebhookURL == "" {
		return
	}

	hook := discord.NewWebhookClient(cfg.DiscordWebhookURL)
	var err error
	if exportErr != nil {
		err = hook.SendWalkFailed(ctx, startPlayer, exportErr, len(result.Matches))
	} else {
		err = hook.SendWalkComplete(ctx, discord.WalkSummary{
			StartPlayer:  startPlayer,
			LayersRun:    result.Stats.LayersRun,
			WastedLayers: result.Stats.WastedLayers,
			Matches:      len(result.Matches),
			Rows:         rows,
			Runtime:      result.Stats.Duration,
			StoppedEarly: result.Stats.StoppedEarly,
			Interrupted:  errors.Is(walkErr, context.Canceled),
			Output:       out,
		})
	}
	if err != nil {
		log.Printf("[Discord] Failed to send notification: %v", err)
	}
}
