package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/katalvlaran/lvplan/domain"
	"github.com/katalvlaran/lvplan/solver"
)

// checkReport summarizes a domain without searching it.
type checkReport struct {
	Nodes       int      `yaml:"nodes"`
	Rules       int      `yaml:"rules"`
	Start       []string `yaml:"start"`
	Facts       []string `yaml:"facts"`
	Unreachable []string `yaml:"unreachable,omitempty"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check DOMAIN.hcl...",
		Short: "Parse a domain and report its shape",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Unreachable nodes are part of the report, not warnings.
			quiet := slog.New(slog.DiscardHandler)
			d, err := domain.NewLoader(domain.WithLogger(quiet)).Load(args...)
			if err != nil {
				return err
			}

			report := checkReport{
				Start:       d.StartIDs(),
				Facts:       d.FactNames(),
				Unreachable: d.Unreachable,
			}
			for n, err := range d.Graph.Nodes() {
				if err != nil {
					return err
				}
				report.Nodes++
				for _, field := range []string{solver.FieldTest, solver.FieldAction} {
					if v, ok := n.Field(field); ok && v != nil {
						report.Rules++
					}
				}
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()

			return enc.Encode(report)
		},
	}
}
