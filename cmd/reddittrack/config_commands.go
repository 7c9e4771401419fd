package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"reddittrack/internal/classify"
	"reddittrack/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the configuration file",
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		targetPath string
		overwrite  bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if err := refuseExisting(target, overwrite); err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("create config directory: %w", err)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n"+
				"Next: set reddit.client_id and reddit.client_secret (or REDDIT_CLIENT_ID / REDDIT_CLIENT_SECRET),\n"+
				"then run `reddittrack check`.\n", target)
			return nil
		},
	}
	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Where to write the file (default: the standard config location)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return "", fmt.Errorf("determine default config path: %w", err)
		}
		return path, nil
	}
	path, err := config.ExpandPath(flag)
	if err != nil {
		return "", fmt.Errorf("resolve config path: %w", err)
	}
	return path, nil
}

func refuseExisting(path string, overwrite bool) error {
	if overwrite {
		return nil
	}
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return fmt.Errorf("%s already exists; pass --overwrite to replace it", path)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return fmt.Errorf("check config path: %w", err)
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load the configuration and report what a run would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			source := ctx.configPath
			if _, err := os.Stat(source); errors.Is(err, fs.ErrNotExist) {
				source += " (missing, defaults used)"
			}
			lines := []struct {
				label string
				value string
			}{
				{"File", source},
				{"Subreddits", strings.Join(cfg.Collection.Subreddits, ", ")},
				{"Keywords", fmt.Sprintf("%d configured", len(cfg.Collection.Keywords))},
				{"Transport", cfg.Reddit.Transport},
				{"Ledger", cfg.Ledger.Backend},
				{"Scorer", cfg.Classification.Scorer},
				{"Categories", strings.Join(classify.NewTaxonomy(cfg.Classification.Categories).Names(), ", ")},
			}
			for _, l := range lines {
				fmt.Fprintln(out, renderStatusLine(l.label, statusInfo, l.value, colorize))
			}
			if err := cfg.RequireCredentials(); err != nil {
				fmt.Fprintln(out, renderStatusLine("Credentials", statusWarn, err.Error(), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Result", statusOK, "configuration valid", colorize))
			return nil
		},
	}
}
