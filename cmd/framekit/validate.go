package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate a configuration file without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(args[0])
			if err != nil {
				return err
			}

			timers := 0
			for _, wl := range cfg.Workloads {
				timers += len(wl.Spec.Timers)
			}
			pterm.Success.Println(fmt.Sprintf("%s is valid: runtime %q at %g fps, %d workloads, %d timers",
				args[0], cfg.Runtime.Metadata.Name, cfg.Runtime.Spec.FrameRate, len(cfg.Workloads), timers))
			return nil
		},
	}
}
