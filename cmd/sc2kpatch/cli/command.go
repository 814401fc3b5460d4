// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"
)

// Command is one node of the command tree. A node either runs
// something (Run) or groups children (Subcommands); a node with both
// runs when no child name matches.
type Command struct {
	Name string

	// Aliases are alternate names accepted in place of Name.
	Aliases []string

	// Summary is the one-line text in the parent's command list.
	Summary string

	// Description is the help text body. Summary is used when empty.
	Description string

	// Usage overrides the synthesized "<path> [flags]" usage line.
	Usage string

	Examples []Example

	// Flags builds a fresh flag set. It is called once per parse and
	// once per help rendering, so it must not carry state between
	// calls other than the bound destination variables.
	Flags func() *pflag.FlagSet

	Subcommands []*Command

	// Run receives the positional arguments left after flag parsing.
	Run func(ctx context.Context, args []string) error

	// HelpOutput receives help text. Children inherit it from the
	// nearest ancestor that sets it; with none set, help is dropped.
	HelpOutput io.Writer

	parent *Command
}

// Example is a usage example shown in help output.
type Example struct {
	Description string
	Command     string
}

// Execute dispatches args through the tree and runs the selected
// command.
func (c *Command) Execute(ctx context.Context, args []string) error {
	if len(args) > 0 && isHelpFlag(args[0]) {
		c.PrintHelp(c.helpOutput())
		return nil
	}

	if len(c.Subcommands) > 0 && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		if child := c.lookup(args[0]); child != nil {
			child.parent = c
			return child.Execute(ctx, args[1:])
		}
		return c.unknownCommand(args[0])
	}

	if c.Run == nil {
		c.PrintHelp(c.helpOutput())
		switch {
		case len(c.Subcommands) == 0:
			return fmt.Errorf("no action defined for %q", c.fullName())
		case len(args) == 0:
			return Validation("subcommand required")
		default:
			return Validation("subcommand required (got flag %q)", args[0])
		}
	}

	positional, err := c.parseFlags(args)
	if errors.Is(err, pflag.ErrHelp) {
		c.PrintHelp(c.helpOutput())
		return nil
	}
	if err != nil {
		return err
	}
	return c.Run(ctx, positional)
}

// lookup finds the child named or aliased name.
func (c *Command) lookup(name string) *Command {
	for _, child := range c.Subcommands {
		if child.Name == name || slices.Contains(child.Aliases, name) {
			return child
		}
	}
	return nil
}

func (c *Command) unknownCommand(name string) error {
	if suggestion := suggestCommand(name, c.Subcommands); suggestion != "" {
		return Validation("unknown command %q (did you mean %q?)\n\nRun '%s --help' for usage.",
			name, suggestion, c.fullName())
	}
	return Validation("unknown command %q\n\nRun '%s --help' for usage.", name, c.fullName())
}

// parseFlags parses args against the command's flag set and returns
// the positional arguments.
func (c *Command) parseFlags(args []string) ([]string, error) {
	if c.Flags == nil {
		return args, nil
	}
	flagSet := c.Flags()
	flagSet.SetOutput(io.Discard)
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, err
		}
		message := err.Error()
		if strings.Contains(message, "unknown") {
			// The failed parse left the set half-populated; suggest
			// against a fresh one.
			if suggestion := suggestFlag(args, c.Flags()); suggestion != "" {
				message += fmt.Sprintf(" (did you mean %s?)", suggestion)
			}
		}
		return nil, Validation("%s\n\nRun '%s --help' for usage.", message, c.fullName())
	}
	return flagSet.Args(), nil
}

// PrintHelp writes the command's help text to w.
func (c *Command) PrintHelp(w io.Writer) {
	body := c.Description
	if body == "" {
		body = c.Summary
	}
	if body != "" {
		fmt.Fprintf(w, "%s\n\n", body)
	}

	usage := c.Usage
	switch {
	case usage != "":
	case len(c.Subcommands) > 0:
		usage = c.fullName() + " <command> [flags]"
	default:
		usage = c.fullName() + " [flags]"
	}
	fmt.Fprintf(w, "Usage:\n  %s\n", usage)

	if len(c.Aliases) > 0 {
		fmt.Fprintf(w, "\nAliases:\n  %s\n", strings.Join(c.Aliases, ", "))
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nCommands:\n")
		table := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
		for _, child := range c.Subcommands {
			fmt.Fprintf(table, "  %s\t%s\n", child.Name, child.Summary)
		}
		table.Flush()
	}

	if c.Flags != nil {
		if flags := c.Flags().FlagUsages(); flags != "" {
			fmt.Fprintf(w, "\nFlags:\n%s", flags)
		}
	}

	if len(c.Examples) > 0 {
		fmt.Fprintf(w, "\nExamples:\n")
		for _, example := range c.Examples {
			if example.Description == "" {
				fmt.Fprintf(w, "  %s\n", example.Command)
				continue
			}
			fmt.Fprintf(w, "  # %s\n  %s\n\n", example.Description, example.Command)
		}
	}

	if len(c.Subcommands) > 0 {
		fmt.Fprintf(w, "\nRun '%s <command> --help' for more information on a command.\n", c.fullName())
	}
}

func (c *Command) helpOutput() io.Writer {
	for command := c; command != nil; command = command.parent {
		if command.HelpOutput != nil {
			return command.HelpOutput
		}
	}
	return io.Discard
}

// fullName is the space-separated path from the root, e.g.
// "sc2kpatch apply".
func (c *Command) fullName() string {
	if c.parent == nil {
		return c.Name
	}
	return c.parent.fullName() + " " + c.Name
}

func isHelpFlag(arg string) bool {
	return arg == "-h" || arg == "--help" || arg == "help"
}
