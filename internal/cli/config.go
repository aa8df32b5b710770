// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration loading and the 'config' command.

package cli

import (
	"fmt"
	"os"

	"github.com/jeranaias/scholar-tui/internal/config"
)

// LoadConfig loads the configuration named by --config, or the default
// file, and applies --api.
func LoadConfig(args Args) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if args.ConfigPath != "" {
		cfg, err = config.LoadFromPath(args.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}

	if args.APIURL != "" {
		cfg.API.BaseURL = args.APIURL
		if err := cfg.SetDefaults(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --api: %w", err)
		}
	}
	return cfg, nil
}

// configPath returns the file LoadConfig reads.
func configPath(args Args) (string, error) {
	if args.ConfigPath != "" {
		return args.ConfigPath, nil
	}
	return config.ConfigPath()
}

// HandleConfig handles "config show" and "config path".
func HandleConfig(env *Env) error {
	path, err := configPath(env.Args)
	if err != nil {
		return err
	}

	if env.Args.Subcommand == "path" {
		if env.Args.JSON {
			_, statErr := os.Stat(path)
			return NewJSONResponse("config path", map[string]any{
				"path":   path,
				"exists": statErr == nil,
			}).Write(env.Out)
		}
		fmt.Fprintln(env.Out, path)
		return nil
	}

	cfg, err := LoadConfig(env.Args)
	if err != nil {
		return err
	}
	if env.Args.JSON {
		return NewJSONResponse("config show", cfg).Write(env.Out)
	}

	if !env.Args.Quiet {
		if _, err := os.Stat(path); err != nil {
			fmt.Fprintln(env.Out, DimStyle.Render("# "+path+" not found, showing defaults"))
		} else {
			fmt.Fprintln(env.Out, DimStyle.Render("# "+path))
		}
	}
	fmt.Fprint(env.Out, cfg.String())
	return nil
}
