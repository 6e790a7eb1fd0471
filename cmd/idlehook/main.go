package main

import (
	"context"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/Veraticus/idlehook/pkg/config"
	"github.com/Veraticus/idlehook/pkg/idle"
	"github.com/Veraticus/idlehook/pkg/logging"
	"github.com/Veraticus/idlehook/pkg/x11"
)

// options holds the parsed command line.
type options struct {
	configPath        string
	socket            string
	once              bool
	notWhenFullscreen bool
	notWhenAudio      bool
	detectSleep       bool
	idleSource        string
	pty               bool
	print             bool
	verbose           bool
	jsonLog           bool
	debugLog          string
	help              bool

	timers []config.Timer
	flags  *flag.FlagSet
}

// parseArgs separates the --timer triples from the rest of the flags and
// parses both.
func parseArgs(args []string) (*options, error) {
	timers, rest, err := config.SplitTimers(args)
	if err != nil {
		return nil, err
	}

	o := &options{timers: timers}
	fs := flag.NewFlagSet("idlehook", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.configPath, "config", "", "Path to config file")
	fs.StringVar(&o.socket, "socket", "", "Path of the control socket")
	fs.BoolVar(&o.once, "once", false, "Exit after the whole chain of timers has run once")
	fs.BoolVar(&o.notWhenFullscreen, "not-when-fullscreen", false, "Don't run timers while the active window is fullscreen")
	fs.BoolVar(&o.notWhenAudio, "not-when-audio", false, "Don't run timers while media is playing")
	fs.BoolVar(&o.detectSleep, "detect-sleep", false, "Restart the timers after the computer was suspended")
	fs.StringVar(&o.idleSource, "idle-source", "", "Idle source: auto, x11, xprintidle, tmux or ioreg")
	fs.BoolVar(&o.pty, "pty", false, "Run timer commands on a pseudo-terminal and log their output")
	fs.BoolVar(&o.print, "print", false, "Print the idle time in milliseconds and exit")
	fs.BoolVar(&o.verbose, "verbose", false, "Log debug output to stderr")
	fs.BoolVar(&o.jsonLog, "json-log", false, "Log JSON to stderr")
	fs.StringVar(&o.debugLog, "debug-log", "", "Append every log record as JSON to this file")
	fs.BoolVarP(&o.help, "help", "h", false, "Show help message")

	if err := fs.Parse(rest); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	if o.print && len(o.timers) > 0 {
		return nil, fmt.Errorf("--print cannot be combined with --timer")
	}

	o.flags = fs
	return o, nil
}

// apply overrides cfg with the flags given on the command line. Timers
// from the command line follow the ones from the config file.
func (o *options) apply(cfg *config.Config) {
	if o.flags.Changed("socket") {
		cfg.Socket = o.socket
	}
	if o.flags.Changed("once") {
		cfg.Once = o.once
	}
	if o.flags.Changed("not-when-fullscreen") {
		cfg.NotWhenFullscreen = o.notWhenFullscreen
	}
	if o.flags.Changed("not-when-audio") {
		cfg.NotWhenAudio = o.notWhenAudio
	}
	if o.flags.Changed("detect-sleep") {
		cfg.DetectSleep = o.detectSleep
	}
	if o.flags.Changed("idle-source") {
		cfg.IdleSource = o.idleSource
	}
	if o.flags.Changed("pty") {
		cfg.PTY = o.pty
	}
	cfg.Timers = append(cfg.Timers, o.timers...)
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	opts, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		printUsage(os.Stderr)
		return 2
	}
	if opts.help {
		printUsage(os.Stdout)
		return 0
	}

	logger, closeLog, err := logging.Init(logging.Options{
		Verbose:   opts.verbose,
		JSON:      opts.jsonLog,
		DebugFile: opts.debugLog,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up logging: %v\n", err)
		return 1
	}
	defer closeLog()

	// Load configuration
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}
	opts.apply(cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	if opts.print {
		kind, _ := idle.ParseKind(cfg.IdleSource)
		src, err := idle.New(kind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		if conn, ok := src.(*x11.Conn); ok {
			defer conn.Close()
		}
		if err := printIdle(os.Stdout, src); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}

	// Create dependencies
	deps, err := NewDependencies(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating dependencies: %v\n", err)
		return 1
	}
	defer deps.Close()

	app := NewApplication(deps)
	if err := app.Run(context.Background()); err != nil {
		logger.Error("idlehook stopped", "error", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	opts, _ := parseArgs(nil)
	fmt.Fprintln(w, "idlehook - run commands after the user has been idle for a while")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: idlehook [OPTIONS] --timer DURATION COMMAND CANCELLER [--timer ...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "DURATION is a number of seconds or a duration such as 5m. COMMAND runs")
	fmt.Fprintln(w, "through /bin/sh -c when the user has been idle that long, CANCELLER runs")
	fmt.Fprintln(w, "when the user comes back before the next timer. Pass \"\" for none.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	opts.flags.SetOutput(w)
	opts.flags.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment Variables:")
	fmt.Fprintln(w, "  IDLEHOOK_CONFIG               Path to config file")
	fmt.Fprintln(w, "  IDLEHOOK_SOCKET               Path of the control socket")
	fmt.Fprintln(w, "  IDLEHOOK_ONCE                 Exit after one pass (true/false)")
	fmt.Fprintln(w, "  IDLEHOOK_NOT_WHEN_FULLSCREEN  Skip timers for fullscreen windows (true/false)")
	fmt.Fprintln(w, "  IDLEHOOK_NOT_WHEN_AUDIO       Skip timers while media plays (true/false)")
	fmt.Fprintln(w, "  IDLEHOOK_DETECT_SLEEP         Restart timers after suspend (true/false)")
	fmt.Fprintln(w, "  IDLEHOOK_IDLE_SOURCE          auto, x11, xprintidle, tmux or ioreg")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Configuration file: ~/.config/idlehook/config.yaml")
}
