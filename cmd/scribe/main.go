package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fmueller/scribe/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cmd := cli.NewRootCmd()
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if shouldPrintUsageHint(err) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", helpHintTarget(cmd, os.Args[1:]))
		}
		os.Exit(1)
	}
}

func shouldPrintUsageHint(err error) bool {
	if err == nil {
		return false
	}

	message := strings.ToLower(strings.TrimSpace(err.Error()))
	for _, pattern := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"accepts ",
		"requires at least",
		"requires at most",
		"invalid argument",
		"missing required",
	} {
		if strings.Contains(message, pattern) {
			return true
		}
	}

	return false
}

// helpHintTarget names the subcommand whose help is most useful. The root
// command accepts positional audio paths, so only registered subcommand names
// redirect the hint.
func helpHintTarget(root *cobra.Command, args []string) string {
	if root == nil {
		return "scribe"
	}

	target := root.CommandPath()
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return target
	}

	for _, sub := range root.Commands() {
		if sub.Name() == args[0] || sub.HasAlias(args[0]) {
			return sub.CommandPath()
		}
	}

	return target
}
