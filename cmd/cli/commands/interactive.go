package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

// InteractiveCmd creates the interactive command
func InteractiveCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Start an interactive session (connect once, run multiple commands)",
		Long: `Start an interactive session where you can run multiple commands against the same
store, locks and roster without reconnecting. With the in-memory store this is the
only way to keep races between commands.
The session will keep running until you type 'exit' or 'quit'.

Type 'help' to see available commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
				stop := serveMetrics(app, addr)
				defer stop()
			}

			s := newSession(cmd.Parent(), cmd.OutOrStdout())
			fmt.Fprintln(s.out, "\n🚀 Starting interactive session...")
			fmt.Fprintln(s.out, "Type 'help' for available commands, 'exit' or 'quit' to leave")
			return s.loop(cmd.InOrStdin())
		},
	}

	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address while the session runs (e.g. :9090)")

	return cmd
}

// session dispatches typed lines to the root's subcommands
type session struct {
	out      io.Writer
	commands map[string]*cobra.Command
}

var sessionExcluded = []string{"interactive", "completion", "help"}

func newSession(root *cobra.Command, out io.Writer) *session {
	s := &session{out: out, commands: make(map[string]*cobra.Command)}
	for _, sub := range root.Commands() {
		if !slices.Contains(sessionExcluded, sub.Name()) {
			s.commands[sub.Name()] = sub
		}
	}
	return s
}

func (s *session) loop(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		if s.runLine(scanner.Text()) {
			fmt.Fprintln(s.out, "👋 Goodbye!")
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}
	return nil
}

// runLine executes one input line and reports whether the session should end
func (s *session) runLine(line string) bool {
	parts, err := parseCommandLine(strings.TrimSpace(line))
	if err != nil {
		s.fail("Error parsing command", err)
		return false
	}
	if len(parts) == 0 {
		return false
	}

	name, args := parts[0], parts[1:]
	switch name {
	case "exit", "quit":
		return true
	case "help":
		s.printHelp()
		return false
	}

	target, ok := s.commands[name]
	if !ok {
		fmt.Fprintf(s.out, "❌ Unknown command: %s (type 'help' for available commands)\n\n", name)
		return false
	}
	if err := s.execute(target, args); err != nil {
		s.fail("Error", err)
	}
	return false
}

// execute parses flags and calls the command's run function directly, so the root's
// PersistentPreRunE does not set the app up a second time
func (s *session) execute(target *cobra.Command, args []string) error {
	// local flag values persist on the command between lines
	target.LocalFlags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})

	// global flags were consumed when the session started
	inherited := target.InheritedFlags()
	startup := make(map[string]string)
	inherited.VisitAll(func(f *pflag.Flag) {
		startup[f.Name] = f.Value.String()
		f.Changed = false
	})

	if err := target.ParseFlags(args); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	var global []string
	inherited.VisitAll(func(f *pflag.Flag) {
		if f.Changed {
			global = append(global, "--"+f.Name)
			f.Value.Set(startup[f.Name])
			f.Changed = false
		}
	})
	if len(global) > 0 {
		return fmt.Errorf("%s cannot be changed inside a session; use 'actor <member_id>' to switch member", strings.Join(global, ", "))
	}

	positional := target.Flags().Args()

	if target.Args != nil {
		if err := target.Args(target, positional); err != nil {
			return err
		}
	}

	switch {
	case target.RunE != nil:
		return target.RunE(target, positional)
	case target.Run != nil:
		target.Run(target, positional)
	}
	return nil
}

func (s *session) fail(prefix string, err error) {
	fmt.Fprintf(s.out, "❌ %s: %v\n\n", prefix, err)
}

func (s *session) printHelp() {
	names := slices.Sorted(maps.Keys(s.commands))

	fmt.Fprintln(s.out, "\nAvailable commands:")
	for _, name := range names {
		c := s.commands[name]
		fmt.Fprintf(s.out, "  %-60s %s\n", c.Use, c.Short)
	}
	fmt.Fprintf(s.out, "\n  %-60s %s\n", "help", "Show this help message")
	fmt.Fprintf(s.out, "  %-60s %s\n", "exit, quit", "Exit the interactive session")
}

// serveMetrics exposes /metrics in the background and returns a function that shuts it down
func serveMetrics(app *AppContext, addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", app.Metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Metrics server failed", zap.Error(err))
		}
	}()
	app.Logger.Info("Serving metrics", zap.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			app.Logger.Warn("Failed to stop metrics server", zap.Error(err))
		}
	}
}

// parseCommandLine splits a command line into arguments, respecting quoted strings
// Supports both single and double quotes
func parseCommandLine(line string) ([]string, error) {
	var args []string
	var current strings.Builder
	var inQuote rune // 0 if not in quote, '"' or '\'' if in quote
	quoted := false  // an empty quoted string still counts as an argument

	for _, r := range line {
		switch {
		case inQuote != 0:
			if r == inQuote {
				inQuote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			inQuote = r
			quoted = true
		case unicode.IsSpace(r):
			if current.Len() > 0 || quoted {
				args = append(args, current.String())
				current.Reset()
				quoted = false
			}
		default:
			current.WriteRune(r)
		}
	}

	if inQuote != 0 {
		return nil, fmt.Errorf("unclosed quote: %c", inQuote)
	}

	if current.Len() > 0 || quoted {
		args = append(args, current.String())
	}

	return args, nil
}
