package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sunbk201/appbundle/internal/config"
	"github.com/sunbk201/appbundle/internal/intercept"
	"github.com/sunbk201/appbundle/internal/route"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve URL...",
	Short: "Resolve URLs against the bundle rule and the configured aliases",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runResolve,
}

var resolveNavigation bool

func init() {
	resolveCmd.Flags().BoolVarP(&resolveNavigation, "navigation", "n", false, "Resolve as a top-level navigation (honors the rewrite marker)")
}

type resolveResult struct {
	URL      string `json:"url"`
	Matched  bool   `json:"matched"`
	Target   string `json:"target,omitempty"`
	Rule     string `json:"rule,omitempty"`
	Redirect bool   `json:"redirect,omitempty"`
}

type navigationResult struct {
	URL string `json:"url"`
	intercept.Navigation
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := config.BuildConfigFromViper()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	opts := sessionOptions(cfg)
	table, err := route.NewTable(opts.Layout, route.WithMatchTimeout(opts.MatchTimeout))
	if err != nil {
		return err
	}
	for _, p := range opts.Presets {
		if err := intercept.Execute(table, p); err != nil {
			return fmt.Errorf("alias %s: %w", p.Match, err)
		}
	}

	if resolveNavigation {
		return writeNavigations(cmd.OutOrStdout(), table, args)
	}
	return writeResolutions(cmd.OutOrStdout(), table, args)
}

func writeResolutions(w io.Writer, table *route.Table, urls []string) error {
	enc := json.NewEncoder(w)
	for _, u := range urls {
		result := resolveResult{URL: u}
		if res, ok := table.Resolve(u); ok {
			result.Matched = true
			result.Target = res.URL
			result.Rule = res.Rule.Match()
			result.Redirect = res.Rule.Redirect()
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}

// writeNavigations replays each URL as a navigation start, the way a host
// frame would see it.
func writeNavigations(w io.Writer, table *route.Table, urls []string) error {
	nav := &intercept.NavigationRecorder{}
	interceptor := intercept.New(table, nav, nil, nil)

	enc := json.NewEncoder(w)
	for _, u := range urls {
		interceptor.OnNavigationStart(u)
		if err := enc.Encode(navigationResult{URL: u, Navigation: nav.Take()}); err != nil {
			return err
		}
	}
	return nil
}
