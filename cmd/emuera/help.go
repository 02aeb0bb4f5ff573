package main

import (
	"fmt"
	"strings"
)

func executeHelp(args []string) {

	if len(args) == 0 {
		fmt.Println("boot")
		fmt.Println("bye")
		fmt.Println("commands")
		fmt.Println("funcs")
		fmt.Println("help")
		fmt.Println("load")
		fmt.Println("run")
		fmt.Println("stack")
		fmt.Println("stats")
		fmt.Println("trace")
		fmt.Println("vars")
		return
	}

	switch strings.ToLower(args[0]) {
	case "boot":
		fmt.Println("Start the loaded game at the title phase")

	case "bye":
		fmt.Println("Exit from the interpreter")

	case "commands":
		fmt.Println(strings.Join(g.interp.Commands(), " "))

	case "funcs":
		fmt.Println("List every loaded function, marking event functions")

	case "help":
		fmt.Println("Print the immediate commands, or help for one of them")

	case "load":
		fmt.Println("Load the script files under a directory")

	case "run":
		fmt.Println("Call a function as the root of the call stack," +
			" defaulting to the configured entry")

	case "stack":
		fmt.Println("Print the call stack, innermost frame first")

	case "stats":
		fmt.Println("Toggle printing execution statistics after each run")

	case "trace":
		fmt.Println("Toggle statement, variable, tree dump or call" +
			" stack tracing")

	case "vars":
		fmt.Println("Dump the context variables and the variable store")

	default:
		fmt.Printf("No help for %s\n", args[0])
	}
}
