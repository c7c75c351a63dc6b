package main

import (
	"fmt"

	"github.com/alnah/go-scorerender/internal/config"
	"github.com/alnah/go-scorerender/internal/yamlutil"
)

// runConfigCmd prints the effective configuration as YAML, after the config
// file, environment and flags are applied.
func runConfigCmd(args []string, env *Environment) error {
	fs := newFlagSet("config", env.Stderr, printConfigUsage)
	var (
		common  commonFlags
		engine  engineFlags
		request requestFlags
		paths   bool
	)
	addCommonFlags(fs, &common)
	addEngineFlags(fs, &engine)
	addRequestFlags(fs, &request, false)
	fs.BoolVar(&paths, "paths", false, "list the files searched for a config name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if paths {
		name := common.config
		if name == "" {
			name = config.AppName
		}
		for _, p := range config.SearchPaths(name) {
			fmt.Fprintln(env.Stdout, p)
		}
		return nil
	}

	cfg, err := loadSettings(&common, &engine, &request, env)
	if err != nil {
		return err
	}
	if cfg.Cache.Dir == "" {
		if dir, err := cfg.CacheDir(); err == nil {
			cfg.Cache.Dir = dir
		}
	}

	out, err := yamlutil.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = env.Stdout.Write(out)
	return err
}
