package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goforj/godump"

	emuera "github.com/IceThunder/emuera-mac-sub001"
)

//
// Immediate mode. Each line runs as soon as it forms a complete
// statement; a line that opens a block keeps reading until the block
// closes. Context variables persist from one line to the next
//

func runRepl() {

	var pending []string

	g.cfg.Persist = true
	g.interp.Process().SetState(emuera.StateNormal)

	for !g.exiting {
		prompt := "> "
		if len(pending) > 0 {
			prompt = ". "
		}

		line, eof, err := readLine(g.replLiner, prompt, true)
		if eof {
			return
		}
		if err != nil {
			if errors.Is(err, emuera.ErrInterrupted) {
				pending = nil
				fmt.Println("^C")
				continue
			}
			fmt.Println(err)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(pending) == 0 && replCommand(line) {
			continue
		}

		pending = append(pending, line)
		stmts, err := emuera.ParseScript("", strings.Join(pending, "\n"))
		if emuera.IsIncomplete(err) {
			continue
		}
		pending = nil
		if err != nil {
			fmt.Println(err)
			continue
		}
		executeImmediate(stmts)
	}
}

func executeImmediate(stmts []emuera.Stmt) {

	ctx := startRun()
	defer endRun()

	initClock(g.interp.Process().LineCount())

	_, err := g.interp.Execute(ctx, stmts)
	flushLine()
	if err != nil {
		fmt.Println(err)
	}

	printStatistics(g.interp.Process().LineCount())
}

// flushLine ends a partial output line so the prompt starts fresh.
func flushLine() {

	ec := g.interp.Session()
	if ec == nil {
		return
	}

	out := ec.Output()
	for i := len(out) - 1; i >= 0; i-- {
		switch out[i] {
		case emuera.MarkWait, emuera.MarkInput, "":
			continue
		}
		if !strings.HasSuffix(out[i], "\n") {
			fmt.Println()
		}
		return
	}
}

type replFunc func(args []string)

var replCommands map[string]replFunc

func init() {

	replCommands = map[string]replFunc{
		"bye":   func([]string) { g.exiting = true },
		"help":  executeHelp,
		"funcs": executeFuncs,
		"load":  executeLoad,
		"run":   executeRun,
		"boot":  func([]string) { reportRun(runGame("")) },
		"stack": executeStack,
		"stats": executeStats,
		"trace": executeTrace,
		"vars":  executeVars,
	}
}

// replCommand runs line when it names an immediate command.
func replCommand(line string) bool {

	words := strings.Fields(line)
	fn, ok := replCommands[strings.ToLower(words[0])]
	if !ok || strings.ContainsAny(words[0], "=:(") {
		return false
	}
	fn(words[1:])
	return true
}

func reportRun(err error) {

	flushLine()
	if err != nil {
		fmt.Println(err)
	}
}

func executeRun(args []string) {

	name := g.cfg.Entry
	if len(args) > 0 {
		name = args[0]
	}
	reportRun(runGame(name))
	g.interp.Process().SetState(emuera.StateNormal)
}

func executeFuncs([]string) {

	for _, name := range g.interp.Labels().Names() {
		_, event := g.interp.Labels().Lookup(name)
		if event {
			fmt.Printf("@%s (event)\n", name)
		} else {
			fmt.Printf("@%s\n", name)
		}
	}
}

func executeLoad(args []string) {

	if len(args) != 1 {
		fmt.Println("Usage: load <dir>")
		return
	}
	if err := g.interp.LoadDir(args[0]); err != nil {
		fmt.Println(err)
	}
}

func executeStack([]string) {

	frames := g.interp.Process().Frames()
	if len(frames) == 0 {
		fmt.Println("Call stack is empty")
		return
	}
	for i := len(frames) - 1; i >= 0; i-- {
		fmt.Printf("#%d @%s\n", i, frames[i].Name)
	}
}

func executeStats([]string) {

	g.printStats = !g.printStats
	fmt.Printf("Statistics %s\n", switchSetting(g.printStats))
}

//
// trace [exec|vars|dump|stack] toggles one trace, or shows them all
//

func executeTrace(args []string) {

	t := &g.cfg.Trace

	if len(args) == 0 {
		fmt.Printf("exec %s, vars %s, dump %s, stack %s\n",
			switchSetting(t.Exec), switchSetting(t.Vars),
			switchSetting(t.Dump), switchSetting(t.Stack))
		return
	}

	switch strings.ToLower(args[0]) {
	case "exec":
		t.Exec = !t.Exec
	case "vars":
		t.Vars = !t.Vars
		if t.Vars {
			fmt.Println("Variable tracing applies to stores created with it; restart with -trace-vars")
		}
	case "dump":
		t.Dump = !t.Dump
	case "stack":
		t.Stack = !t.Stack
	default:
		fmt.Println("Usage: trace [exec|vars|dump|stack]")
		return
	}
	executeTrace(nil)
}

func executeVars([]string) {

	if ec := g.interp.Session(); ec != nil {
		godump.Dump(ec.Vars())
	}
	if m, ok := g.interp.Store().(*emuera.MemoryStore); ok {
		ints, strs := m.Names()
		fmt.Printf("store: %d integer, %d string\n", len(ints), len(strs))
		if len(ints)+len(strs) > 0 {
			godump.Dump(m.Snapshot())
		}
	}
}

func switchSetting(b bool) string {

	if b {
		return "ON"
	}
	return "OFF"
}
