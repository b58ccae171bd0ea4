package logging

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color codes.
const (
	reset = "\033[0m"
	bold  = "\033[1m"
	cyan  = "\033[36m"
	dim   = "\033[2m"
)

var logoLines = [5]string{
	` _             ____           `,
	`| |_ __      _|___ \ _ __ ___ `,
	`| | '_ \ /\ / / __) | '_ ` + "`" + ` _ \`,
	`| | | | V  V / / __/| | | | | |`,
	`|_|_| |_|\_/\_/_____|_| |_| |_|`,
}

// PrintBanner prints the client's ASCII logo followed by its version
// and endpoint name. Colors are used only when stderr is a TTY.
func PrintBanner(ver, endpointName string) {
	color := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())

	for _, line := range logoLines {
		if color {
			fmt.Fprintf(os.Stderr, "%s%s%s\n", bold+cyan, line, reset)
		} else {
			fmt.Fprintln(os.Stderr, line)
		}
	}

	if color {
		fmt.Fprintf(os.Stderr, "\n  %sversion%s %s   %sendpoint%s %s\n\n", dim, reset, ver, dim, reset, endpointName)
	} else {
		fmt.Fprintf(os.Stderr, "\n  version %s   endpoint %s\n\n", ver, endpointName)
	}
}
