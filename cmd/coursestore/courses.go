package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/jpalmerr/coursestore"
	"github.com/jpalmerr/coursestore/config"
	"github.com/jpalmerr/coursestore/courses"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the remote course collection",
	Long: `Load the course collection from the configured API and print it.

With --category only courses of that category are printed, ordered by
sequence number.

Example:
  coursestore list -c config.yaml
  coursestore list -c config.yaml --category BEGINNER --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var saveCmd = &cobra.Command{
	Use:   "save ID key=value...",
	Short: "Update one course",
	Long: `Send a partial update for one course to the configured API.

Values are parsed as JSON when possible and sent as strings otherwise, so
seqNo=3 sends a number and description="Intro" sends a string.

Example:
  coursestore save -c config.yaml 12 seqNo=3 description="Angular Basics"`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(listCmd, saveCmd)

	for _, c := range []*cobra.Command{listCmd, saveCmd} {
		c.Flags().StringP("config", "c", "", "path to config file (required)")
		_ = c.MarkFlagRequired("config")
	}
	listCmd.Flags().String("category", "", "only print courses of this category")
	listCmd.Flags().Bool("json", false, "print JSON instead of a table")
}

// openApp builds an App from the config file named by the --config flag and
// waits for the initial load.
func openApp(cmd *cobra.Command) (*coursestore.App, []courses.Course, error) {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log)
	opts := append(config.BuildOptions(cfg), coursestore.WithLogger(logger))
	app, err := coursestore.New(opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create coursestore: %w", err)
	}

	loaded, err := app.Store().Loaded(cmd.Context())
	if err != nil {
		app.Close()
		return nil, nil, err
	}
	return app, loaded, nil
}

func runList(cmd *cobra.Command, args []string) error {
	app, loaded, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	if category, _ := cmd.Flags().GetString("category"); category != "" {
		loaded = courses.InCategory(loaded, category)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(loaded)
	}
	return writeTable(cmd.OutOrStdout(), loaded)
}

func runSave(cmd *cobra.Command, args []string) error {
	id := args[0]
	changes, err := parseChanges(args[1:])
	if err != nil {
		return err
	}

	app, _, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	course, ok, err := app.Store().Save(cmd.Context(), id, changes)
	if !ok {
		return fmt.Errorf("course %s not found", id)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(course)
}

// parseChanges turns key=value arguments into a change set.
func parseChanges(args []string) (courses.Changes, error) {
	changes := make(courses.Changes, len(args))
	for _, arg := range args {
		key, raw, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid change %q: expected key=value", arg)
		}
		changes[key] = parseValue(raw)
	}
	if err := changes.Validate(); err != nil {
		return nil, err
	}
	return changes, nil
}

// parseValue decodes raw as a single JSON value, falling back to the raw
// string.
func parseValue(raw string) any {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return raw
	}
	// trailing data means raw was not one JSON value
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return raw
	}
	return v
}

func writeTable(w io.Writer, list []courses.Course) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tSEQ\tDESCRIPTION")
	for _, c := range list {
		desc, _ := c.Fields["description"].(string)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", c.ID, c.Category, c.SeqNo, desc)
	}
	return tw.Flush()
}
