package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"surface-tracker/internal/cachelist"
	"surface-tracker/internal/database"
	"surface-tracker/internal/markers"
	"surface-tracker/internal/persistence"
)

// defaultTimeout bounds database operations.
const defaultTimeout = 30 * time.Second

type options struct {
	recDir       string
	minPerimeter float64
	yes          bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	os.Exit(run(ctx, os.Args[1:], os.Stdin, interactive, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, interactive bool, out, errOut io.Writer) int {
	if len(args) < 1 {
		printUsage(out)
		return 1
	}
	command := args[0]

	opts, err := parseFlags(args[1:])
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}

	switch command {
	case "status":
		return showStatus(ctx, opts, out, errOut)
	case "ranges":
		return showRanges(opts, out, errOut)
	case "reset":
		return resetCache(opts, stdin, interactive, out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "Unknown command: %s\n", sanitizeCommand(command))
		printUsage(out)
		return 1
	}
}

func parseFlags(args []string) (options, error) {
	flagSet := flag.NewFlagSet("cache-inspect", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)

	defaultDir := os.Getenv("RECORDING_DIR")
	if defaultDir == "" {
		defaultDir = "."
	}

	var opts options
	flagSet.StringVarP(&opts.recDir, "recording", "r", defaultDir, "Recording directory")
	flagSet.Float64Var(&opts.minPerimeter, "min-perimeter", markers.CacheMinPerimeter, "Marker perimeter filter for ranges")
	flagSet.BoolVarP(&opts.yes, "yes", "y", false, "Do not ask for confirmation")

	if err := flagSet.Parse(args); err != nil {
		return options{}, err
	}
	if flagSet.NArg() > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %s", strings.Join(flagSet.Args(), " "))
	}
	return opts, nil
}

// sanitizeCommand returns a safe representation of a command string for display.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Surface Tracker Marker Cache Inspector")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Usage: cache-inspect <command> [flags]")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  status  - Show marker cache progress and surface definitions")
	fmt.Fprintln(out, "  ranges  - List frame ranges with markers")
	fmt.Fprintln(out, "  reset   - Delete the marker cache so it is rebuilt on next start")
	fmt.Fprintln(out, "")
	fmt.Fprintln(out, "Flags:")
	fmt.Fprintln(out, "  -r, --recording DIR      Recording directory (default: $RECORDING_DIR or .)")
	fmt.Fprintf(out, "      --min-perimeter N    Perimeter filter for ranges (default: %d)\n", markers.CacheMinPerimeter)
	fmt.Fprintln(out, "  -y, --yes                Reset without confirmation")
}

func showStatus(ctx context.Context, opts options, out, errOut io.Writer) int {
	doc, err := persistence.Load(opts.recDir)
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		fmt.Fprintln(out, "Marker cache: none (detection starts from scratch)")
	case errors.Is(err, persistence.ErrVersionMismatch):
		fmt.Fprintf(out, "Marker cache: outdated (%v), will be rebuilt\n", err)
	case err != nil:
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	default:
		cache := markers.CacheFromSlots(doc.MarkerCacheUnfiltered)
		all := cachelist.Range{Start: 0, End: cache.Len()}
		fmt.Fprintf(out, "Marker cache: version %d, %s markers\n", doc.Version, polarity(doc.InvertedMarkers))
		fmt.Fprintf(out, "  Frames:           %d\n", cache.Len())
		fmt.Fprintf(out, "  Detected:         %d\n", cache.Len()-cache.Remaining())
		fmt.Fprintf(out, "  With markers:     %d\n", cache.PositiveCount(all))
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	db, err := database.New(ctx, database.Path(opts.recDir))
	if err != nil {
		fmt.Fprintf(errOut, "Error: Failed to open surface definitions: %v\n", err)
		return 1
	}
	defer func() {
		if err := db.Close(); err != nil {
			fmt.Fprintf(errOut, "Warning: failed to close database: %v\n", err)
		}
	}()

	defs, err := db.ListSurfaces(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	last, err := db.LastReplaced(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	if last.IsZero() {
		fmt.Fprintf(out, "Surfaces: %d (never saved)\n", len(defs))
	} else {
		fmt.Fprintf(out, "Surfaces: %d (saved %s)\n", len(defs), last.Local().Format(time.DateTime))
	}
	for _, def := range defs {
		fmt.Fprintf(out, "  %-20s %d markers\n", def.Name, len(def.RegisteredMarkers))
	}
	return 0
}

func polarity(inverted bool) string {
	if inverted {
		return "inverted"
	}
	return "normal"
}

func showRanges(opts options, out, errOut io.Writer) int {
	doc, err := persistence.Load(opts.recDir)
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}

	slots := doc.MarkerCacheUnfiltered
	for i, s := range slots {
		slots[i] = markers.FilterSlot(s, opts.minPerimeter, 0)
	}
	cache := markers.CacheFromSlots(slots)

	for _, r := range cache.PositiveRanges() {
		fmt.Fprintf(out, "%d-%d\n", r.Start, r.End-1)
	}
	return 0
}

func resetCache(opts options, stdin io.Reader, interactive bool, out, errOut io.Writer) int {
	path := persistence.Path(opts.recDir)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, "No marker cache to reset.")
		return 0
	}

	if !opts.yes {
		if !interactive {
			fmt.Fprintln(errOut, "Error: refusing to reset without a terminal, pass --yes")
			return 1
		}
		fmt.Fprintf(out, "Delete %s? [y/N] ", path)
		answer, _ := bufio.NewReader(stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(out, "Aborted.")
			return 1
		}
	}

	if err := os.Remove(path); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return 1
	}
	fmt.Fprintln(out, "Marker cache deleted. Markers are detected again on next start.")
	return 0
}
