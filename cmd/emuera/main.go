package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"sync"
	"syscall"

	"github.com/danswartzendruber/liner"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	emuera "github.com/IceThunder/emuera-mac-sub001"
)

//
// Process-wide state of the command
//

type globals struct {
	replLiner  *liner.State
	inputLiner *liner.State
	interp     *emuera.Interpreter
	cfg        *emuera.Config
	printStats bool
	exiting    bool

	mu     sync.Mutex
	cancel context.CancelFunc
}

var g globals

var (
	configPath = flag.String("config", "", "config file (default: emuera.toml found upwards from the script directory)")
	scriptDir  = flag.String("dir", "", "directory of .erb files to load")
	entry      = flag.String("entry", "", "function to run instead of booting at the title phase")
	repl       = flag.Bool("repl", false, "read statements interactively")
	traceExec  = flag.Bool("trace-exec", false, "trace every executed statement")
	traceVars  = flag.Bool("trace-vars", false, "trace variable changes")
	traceDump  = flag.Bool("trace-dump", false, "dump statement trees while tracing")
	traceStack = flag.Bool("trace-stack", false, "dump the call stack on frame changes and panics")
	stats      = flag.Bool("stats", false, "print statistics after each run")
	verbosity  = flag.Int("v", 0, "log verbosity (-4 to 2)")
	logPath    = flag.String("log", "", "log file (default: stderr)")
	version    = flag.Bool("version", false, "print the version and exit")
)

func main() {

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: emuera [flags] [file.erb ...]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		printVersionInfo()
		return
	}

	//
	// We need to close the Liner instances in reverse order, to make
	// sure we end up back in normal (cooked) terminal mode
	//

	defer cleanupLiners()

	cfg, err := loadConfig()
	if err != nil {
		crash(err.Error())
	}
	g.cfg = cfg
	g.printStats = *stats

	commonlog.Initialize(cfg.Log.Verbosity, cfg.Log.Path)

	interactive := checkTerminal()
	if interactive {
		setupLiners()
	}

	if cfg.DrawLineWidth == 0 {
		cfg.DrawLineWidth = max(terminalWidth(), 1)
	}

	console := newLineConsole(g.inputLiner)
	g.interp = emuera.New(cfg,
		emuera.WithConsole(console),
		emuera.WithOutputHook(printOutput),
	)

	if err := loadScripts(cfg, flag.Args()); err != nil {
		crash(err.Error())
	}

	//
	// Run the signal handling code in a goroutine
	//

	go sigHdlr()

	if *repl {
		if !interactive {
			crash("Standard input must be a terminal")
		}
		printVersionInfo()
		runRepl()
		return
	}

	if err := runGame(*entry); err != nil {
		cleanupLiners()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// Flags override the file; the file overrides the defaults.
func loadConfig() (*emuera.Config, error) {

	var cfg *emuera.Config
	var err error

	switch {
	case *configPath != "":
		cfg, err = emuera.LoadConfig(*configPath)
	case *scriptDir != "":
		cfg, err = emuera.FindConfig(*scriptDir)
	default:
		cfg, err = emuera.FindConfig(".")
	}
	if err != nil {
		return nil, err
	}

	if *scriptDir != "" {
		cfg.ScriptDir = *scriptDir
	}
	if *entry != "" {
		cfg.Entry = strings.ToUpper(*entry)
	}
	cfg.Trace.Exec = cfg.Trace.Exec || *traceExec
	cfg.Trace.Vars = cfg.Trace.Vars || *traceVars
	cfg.Trace.Dump = cfg.Trace.Dump || *traceDump
	cfg.Trace.Stack = cfg.Trace.Stack || *traceStack
	if *verbosity != 0 {
		cfg.Log.Verbosity = *verbosity
	}
	if *logPath != "" {
		cfg.Log.Path = *logPath
	}
	return cfg, cfg.Validate()
}

//
// Files named on the command line are loaded instead of the script
// directory. A missing default directory is not an error in the REPL
//

func loadScripts(cfg *emuera.Config, files []string) error {

	if len(files) == 0 {
		if _, err := os.Stat(cfg.ScriptDir); err != nil {
			if *repl && *scriptDir == "" {
				return nil
			}
			return fmt.Errorf("cannot load scripts: %w", err)
		}
		return g.interp.LoadDir(cfg.ScriptDir)
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return err
		}
		if err := g.interp.LoadSource(filepath.Base(f), string(data)); err != nil {
			return err
		}
	}
	return nil
}

//
// runGame boots at the title phase, or calls name as the root when
// one was given
//

func runGame(name string) error {

	ctx := startRun()
	defer endRun()

	initClock(g.interp.Process().LineCount())

	var err error
	if name != "" {
		_, err = g.interp.Run(ctx, strings.ToUpper(name))
	} else {
		_, err = g.interp.Boot(ctx)
	}

	printStatistics(g.interp.Process().LineCount())
	return err
}

// startRun makes the context ^C cancels.
func startRun() context.Context {

	ctx, cancel := context.WithCancel(context.Background())

	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
	return ctx
}

func endRun() {

	g.mu.Lock()
	if g.cancel != nil {
		g.cancel()
		g.cancel = nil
	}
	g.mu.Unlock()
}

func exitCode(err error) int {

	if code := emuera.ErrorCode(err); code > 0 {
		return code
	}
	return 1
}

func printVersionInfo() {
	fmt.Printf("emuera execution core version %s\n", emuera.VERSION)
}

func writeGoroutineStacks() {

	name := "goroutines-stacks"
	mode := (os.O_CREATE | os.O_WRONLY | os.O_TRUNC)

	dumpFile, err := os.OpenFile(name, mode, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open %s (%s)\n", name, err)
		return
	}

	_ = pprof.Lookup("goroutine").WriteTo(dumpFile, 2)
	dumpFile.Close()

	crash(fmt.Sprintf("Dumping goroutine stacks to %v and exiting", name))
}

//
// ^C cancels the run in progress; outside a run the REPL liner sees it
// as an aborted prompt. ^\ dumps every goroutine and exits
//

func sigHdlr() {

	ch := make(chan os.Signal, 1)

	signal.Ignore(syscall.SIGTSTP)

	signal.Notify(ch, syscall.SIGQUIT)
	signal.Notify(ch, syscall.SIGINT)

	for {
		sig := <-ch

		switch sig {

		default:
			crash(fmt.Sprintf("Unexpected signal %d", sig))

		case syscall.SIGQUIT:
			writeGoroutineStacks() // does not return

		case syscall.SIGINT:
			g.mu.Lock()
			if g.cancel != nil {
				g.cancel()
			}
			g.mu.Unlock()
		}
	}
}
