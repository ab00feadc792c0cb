package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/fixora/leadflow/internal/config"
	"github.com/fixora/leadflow/internal/infra/logger"
)

// Version and build information
var (
	Version   = "development"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit code
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("leadflow", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { printUsage(stderr) }

	var (
		version     = flags.Bool("version", false, "Show version information")
		migrateOnly = flags.Bool("migrate", false, "Run database migrations and exit")
	)
	if err := flags.Parse(args); err != nil {
		return 2
	}

	if *version {
		fmt.Fprintf(stdout, "Leadflow lead status workflow\n")
		fmt.Fprintf(stdout, "Version: %s\n", Version)
		fmt.Fprintf(stdout, "Build Time: %s\n", BuildTime)
		fmt.Fprintf(stdout, "Git Commit: %s\n", GitCommit)
		return 0
	}

	rest := flags.Args()
	var cmd command
	if !*migrateOnly {
		if len(rest) == 0 {
			printUsage(stderr)
			return 2
		}
		var ok bool
		if cmd, ok = commands[rest[0]]; !ok {
			fmt.Fprintf(stderr, "unknown command: %s\n", rest[0])
			printUsage(stderr)
			return 2
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	log := newLogger(cfg, stdout, stderr)
	ctx = logger.WithCorrelationID(ctx, correlationID())

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		log.Error(ctx, "Failed to initialize", err, nil)
		return 1
	}
	defer a.Close()

	if *migrateOnly {
		applied, err := a.migrate(ctx)
		if err != nil {
			log.Error(ctx, "Failed to run migrations", err, nil)
			return 1
		}
		log.Info(ctx, "Migrations completed successfully", map[string]interface{}{"applied": applied})
		return 0
	}

	if err := cmd.run(ctx, a, rest[1:], stdout); err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(stderr, "%s: %v\n", rest[0], err)
			return 2
		}
		writeError(stderr, err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: leadflow [-version] [-migrate] <command> [flags]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-10s %s\n", name, commands[name].summary)
	}
}

// correlationID reuses LEADFLOW_CORRELATION_ID so a caller can tie an
// invocation to its own trace
func correlationID() string {
	if id := os.Getenv("LEADFLOW_CORRELATION_ID"); id != "" {
		return id
	}
	return uuid.NewString()
}
