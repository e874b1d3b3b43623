// Command recognizer-demo is a terminal harness for the recognizer engine:
// it feeds stdin to a Recognizer line by line (as if a user were typing
// line-by-line) and prints the resulting entity/remove/diagnostic stream.
// Grounded on the pack's cobra-based CLI entry points (e.g. a root command
// with persistent flags and a single long-lived subcommand body).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/textsense/recognizer/pkg/config"
	"github.com/textsense/recognizer/pkg/cprint"
	"github.com/textsense/recognizer/pkg/recognizer"
	"github.com/textsense/recognizer/pkg/runner"
	"github.com/textsense/recognizer/pkg/scheduler"
	"github.com/textsense/recognizer/pkg/types"
	"github.com/textsense/recognizer/plugins/registry"
)

var (
	configPath  string
	pluginNames []string
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "recognizer-demo",
		Short: "Feed stdin through the incremental semantic recognizer",
		Long: `recognizer-demo reads lines from stdin, appending each one to a
growing text buffer and feeding the whole buffer to a Recognizer, and
prints the entity/remove/diagnostic event stream as it is produced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDemo,
	}

	root.Flags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.Flags().StringSliceVar(&pluginNames, "plugins", []string{"quantity", "datetime", "email", "url", "phone"},
		"builtin plugins to enable (ignored if --config is set)")

	return root
}

func runDemo(cmd *cobra.Command, _ []string) error {
	opts, err := loadOptions()
	if err != nil {
		return fmt.Errorf("loading options: %w", err)
	}

	rec, err := recognizer.New(opts)
	if err != nil {
		return fmt.Errorf("starting recognizer: %w", err)
	}
	defer rec.Destroy()

	sessionID := uuid.NewString()
	rec.On(types.ChannelDiagnostic, func(event any) {
		cprint.PrintDiagnostic(event.(types.Diagnostic))
	})
	rec.On(types.ChannelEntity, func(event any) {
		e := event.(types.EntityEvent)
		verb := "added"
		if e.IsUpdate {
			verb = "updated"
		}
		cprint.InfoPrintf("[%s] entity %s: %s %q (%s, %.2f)\n",
			sessionID[:8], verb, e.Entity.Kind, e.Entity.Text, e.Entity.Status, e.Entity.Confidence)
	})
	rec.On(types.ChannelRemove, func(event any) {
		e := event.(types.RemoveEvent)
		cprint.InfoPrintf("[%s] entity removed: %s\n", sessionID[:8], e.Key)
	})

	scanner := bufio.NewScanner(cmd.InOrStdin())
	var text strings.Builder
	for scanner.Scan() {
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(scanner.Text())
		rec.Feed(recognizer.FeedInput{Text: text.String()})
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}

	rec.Commit(recognizer.CommitManual)
	return nil
}

func loadOptions() (recognizer.Options, error) {
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return recognizer.Options{}, err
		}
		return config.Load(data)
	}

	plugins, err := registry.Resolve(pluginNames)
	if err != nil {
		return recognizer.Options{}, err
	}
	return recognizer.Options{
		Plugins:    plugins,
		Schedule:   scheduler.DefaultConfig(),
		Thresholds: runner.DefaultThresholds(),
	}, nil
}
