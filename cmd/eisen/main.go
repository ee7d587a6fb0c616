package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nick-dorsch/eisen/internal/db"
	"github.com/nick-dorsch/eisen/internal/escalation"
	"github.com/nick-dorsch/eisen/internal/mcp"
	"github.com/nick-dorsch/eisen/internal/ui"
)

// runMenu is replaced in tests.
var runMenu = ui.RunMenu

type cli struct {
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	logger *slog.Logger

	dbPath       string
	snapshotPath string
	verbose      bool
}

func main() {
	err := execute(os.Args[1:], os.Stdout, os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func execute(args []string, stdout, stderr io.Writer) error {
	c := &cli{stdout: stdout, stderr: stderr, getenv: os.Getenv}

	fs := flag.NewFlagSet("eisen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&c.dbPath, "db-path", defaultDBPath, "Path to SQLite database file")
	fs.StringVar(&c.snapshotPath, "snapshot-path", defaultSnapshotPath, "Path to snapshot file (empty disables snapshots)")
	fs.BoolVar(&c.verbose, "verbose", false, "Enable debug logging")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: eisen [flags] <command> [arguments]")
		fmt.Fprintln(stderr, "\nCommands:")
		fmt.Fprintln(stderr, "  init [dir]    Create .eisen/ with a database and config")
		fmt.Fprintln(stderr, "  serve         Run the HTTP API and the escalation scheduler")
		fmt.Fprintln(stderr, "  scan          Run one escalation scan and exit")
		fmt.Fprintln(stderr, "  matrix        Show open tasks by quadrant")
		fmt.Fprintln(stderr, "  list-tasks    List tasks ordered by deadline")
		fmt.Fprintln(stderr, "  add-task      Create a task")
		fmt.Fprintln(stderr, "  complete <id> Mark a task completed")
		fmt.Fprintln(stderr, "  delete <id>   Delete a task")
		fmt.Fprintln(stderr, "  watch         Live matrix with scheduled scans")
		fmt.Fprintln(stderr, "  mcp           Serve MCP tools on stdio")
		fmt.Fprintln(stderr, "\nRunning `eisen` with no command opens the menu.")
		fmt.Fprintln(stderr, "\nFlags:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.logger = newLogger(stderr, c.verbose)
	slog.SetDefault(c.logger)

	var command string
	var rest []string
	if fs.NArg() == 0 {
		selected, err := runMenu()
		if err != nil {
			return fmt.Errorf("failed to run menu: %w", err)
		}
		if selected == "" {
			return nil
		}
		command = selected
	} else {
		command = fs.Arg(0)
		rest = fs.Args()[1:]
	}

	run, ok := commands[command]
	if !ok {
		return fmt.Errorf("unknown command: %s", command)
	}
	return run(c, rest)
}

var commands = map[string]func(*cli, []string) error{
	"init":       (*cli).runInit,
	"serve":      (*cli).runServe,
	"scan":       (*cli).runScan,
	"matrix":     (*cli).runMatrix,
	"list-tasks": (*cli).runListTasks,
	"add-task":   (*cli).runAddTask,
	"complete":   (*cli).runComplete,
	"delete":     (*cli).runDelete,
	"watch":      (*cli).runWatch,
	"mcp":        (*cli).runMCP,
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadValidConfig loads the configuration and applies command flag
// overrides before validating it.
func (c *cli) loadValidConfig(overrides ...func(*config)) (config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return cfg, err
	}
	for _, apply := range overrides {
		apply(&cfg)
	}
	if err := cfg.Escalation.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *cli) runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	eisenDir := filepath.Join(targetDir, ".eisen")
	if err := os.MkdirAll(eisenDir, 0755); err != nil {
		return fmt.Errorf("failed to create .eisen directory: %w", err)
	}
	fmt.Fprintln(c.stdout, "✓ Created .eisen/ directory")

	gitignorePath := filepath.Join(eisenDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("eisen.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintln(c.stdout, "✓ Created .eisen/.gitignore")

	// Default paths are relative to the target directory unless overridden.
	if c.dbPath == defaultDBPath {
		c.dbPath = filepath.Join(eisenDir, "eisen.db")
	}
	if c.snapshotPath == defaultSnapshotPath {
		c.snapshotPath = filepath.Join(eisenDir, "snapshot.jsonl")
	}

	created, err := writeDefaultConfig(c.configPath())
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(c.stdout, "✓ Wrote default config to %s\n", c.configPath())
	}

	database, err := db.Open(c.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(c.stdout, "✓ Initialized database at %s\n", c.dbPath)

	if c.snapshotPath != "" {
		if _, err := os.Stat(c.snapshotPath); err == nil {
			if err := database.ImportSnapshot(ctx, c.snapshotPath); err != nil {
				return fmt.Errorf("failed to import snapshot: %w", err)
			}
			fmt.Fprintf(c.stdout, "✓ Imported snapshot from %s\n", c.snapshotPath)
		}
	}

	fmt.Fprintln(c.stdout, "✓ Eisen initialized successfully")
	return nil
}

func (c *cli) runMCP(args []string) error {
	mcpFlags := flag.NewFlagSet("mcp", flag.ContinueOnError)
	mcpFlags.SetOutput(c.stderr)
	applyEscalation := escalationFlags(mcpFlags)
	if err := mcpFlags.Parse(args); err != nil {
		return err
	}

	cfg, err := c.loadValidConfig(applyEscalation)
	if err != nil {
		return err
	}

	store, closeStore, err := c.openStore(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// On demand only; the stdio server owns the process lifetime.
	scheduler := escalation.NewScheduler(store, cfg.Escalation, escalation.WithLogger(c.logger))
	return mcp.Serve(mcp.NewServer(store, scheduler))
}
