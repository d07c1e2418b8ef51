package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"stage-tracker/internal/app"
)

func (c *cli) stagesCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List or change the configured stages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := c.app.Stages()
			return writeOutput(cmd.OutOrStdout(), output, app.NewStageViews(stages), func() string {
				return app.RenderStages(stages)
			})
		},
	}
	cmd.PersistentFlags().StringVarP(&output, "output", "o", "text", "output format: text, json or yaml")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stages in order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages := c.app.Stages()
			return writeOutput(cmd.OutOrStdout(), output, app.NewStageViews(stages), func() string {
				return app.RenderStages(stages)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rename KEY NAME CODE",
		Short: "Set the name and code of a stage",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.app.RenameStage(cmd.Context(), args[0], args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s (%s)\n", s.Key, s.Name, s.Code)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "resize COUNT",
		Short: "Set the number of stages (1-20)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("COUNT must be a number: %w", err)
			}
			stages, err := c.app.ResizeStages(cmd.Context(), n)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, app.NewStageViews(stages), func() string {
				return app.RenderStages(stages)
			})
		},
	})
	return cmd
}
