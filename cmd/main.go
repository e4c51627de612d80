package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"

	// note: if cmd/gen does not exist, you need to run 'go generate ./cmd'
	"github.com/MobRulesGames/mapasset/base"
	"github.com/MobRulesGames/mapasset/cmd/gen"
	"github.com/MobRulesGames/mapasset/logging"
	"github.com/MobRulesGames/mapasset/registry"
	"github.com/MobRulesGames/mapasset/texture"
	"github.com/MobRulesGames/memory"
)

//go:generate go run github.com/MobRulesGames/mapasset/tools/genversion/cmd ../.git/HEAD ./gen/version.go

// Returned by commands that have already told the user what went wrong.
var errReported = errors.New("failed")

type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}

func usagef(format string, args ...interface{}) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

// Everything a command gets to work with.
type environment struct {
	cfg    Config
	out    printer
	stderr io.Writer
}

func (e *environment) fetcher() texture.Fetcher {
	if e.cfg.BaseURL != "" {
		return texture.HTTPFetcher{BaseURL: e.cfg.BaseURL}
	}
	return texture.FileFetcher{Root: e.cfg.Datadir}
}

func (e *environment) open() (*registry.Set, error) {
	return registry.Open(e.cfg.configFile(), e.fetcher(), texture.WithWorkers(e.cfg.Workers))
}

func (e *environment) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	return fs
}

type command struct {
	name  string
	usage string
	run   func(ctx context.Context, e *environment, args []string) error
}

var commands []command

func init() {
	commands = []command{
		{"check", "validate the asset config", runCheck},
		{"resolve", "resolve a tile (resolve tile <layer> <token>) or character (resolve character <id> <facing>)", runResolve},
		{"load", "load every declared image and report the result", runLoad},
		{"list", "list images, layers with their tokens, and characters with their facings", runList},
		{"watch", "reload the asset config whenever it changes", runWatch},
		{"script", "run a lua script against the assets (script <file.lua>)", runScript},
		{"version", "print the version", runVersion},
	}
}

func commandNames() string {
	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = c.name
	}
	return strings.Join(names, "|")
}

func onPanic(recoveredValue interface{}) {
	stack := debug.Stack()
	logging.Error("PANIC", "val", recoveredValue, "stack", string(stack))
	fmt.Fprintf(os.Stderr, "PANIC: %v\n", recoveredValue)
	fmt.Fprintf(os.Stderr, "PANIC: %s\n", string(stack))
}

func Main(argv []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, argv, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// Runs the command line in argv, argv[0] being the program name, and
// returns the process exit code.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) (code int) {
	defer func() {
		if r := recover(); r != nil {
			onPanic(r)
			code = 3
		}
	}()

	if len(argv) > 0 {
		argv = argv[1:]
	}
	cfg, rest, err := parseConfig(argv, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if len(rest) == 0 {
		printUsage(stderr)
		return 2
	}

	undoRedirect := logging.Redirect(stderr)
	defer undoRedirect()
	prevDatadir := base.SetDatadir(cfg.Datadir)
	defer base.SetDatadir(prevDatadir)
	prevDevel := base.IsDevel()
	base.SetDevel(cfg.Devel)
	defer base.SetDevel(prevDevel)

	e := &environment{
		cfg:    cfg,
		out:    newPrinter(stdout),
		stderr: stderr,
	}
	logging.Bracket(logging.ParseLevel(cfg.LogLevel), func() {
		logging.Debug("version", "version", gen.Version())
		logging.Debug("setting datadir", "datadir", cfg.Datadir)
		code = dispatch(ctx, e, rest)
	})
	return code
}

func dispatch(ctx context.Context, e *environment, rest []string) int {
	stderr := e.stderr
	for _, c := range commands {
		if c.name != rest[0] {
			continue
		}
		err := c.run(ctx, e, rest[1:])
		logging.Trace("memory", "allocations", memory.TotalAllocations())
		var usage *usageError
		switch {
		case err == nil:
			return 0
		case errors.Is(err, flag.ErrHelp):
			return 0
		case errors.As(err, &usage):
			fmt.Fprintf(stderr, "%s: %v\n", c.name, err)
			return 2
		case errors.Is(err, errReported):
			return 1
		default:
			fmt.Fprintf(stderr, "%s: %v\n", c.name, err)
			return 1
		}
	}
	fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
	printUsage(stderr)
	return 2
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "usage: mapasset [flags] <command> [args]\n\ncommands:\n")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-8s %s\n", c.name, c.usage)
	}
}
