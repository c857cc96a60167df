package main

import (
	"github.com/spf13/cobra"
)

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	paths, err := resolvePaths(cmd, cfg)
	if err != nil {
		return err
	}

	r := &runner{cfg: cfg, paths: paths, log: log, stdout: toStdout}
	_, err = r.run(cmd.Context())
	return err
}
