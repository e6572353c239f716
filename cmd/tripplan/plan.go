package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alex-user-go/tripplan/internal/obs"
	"github.com/alex-user-go/tripplan/internal/planner"
	"github.com/alex-user-go/tripplan/internal/planner/types"
	"github.com/alex-user-go/tripplan/internal/render"
)

type planOptions struct {
	criteria types.Criteria
	budget   float64
	asJSON   bool
}

func newPlanCmd(root *rootOptions) *cobra.Command {
	opts := &planOptions{}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Assemble a trip plan and print it",
		Example: `  tripplan plan --origin NYC --destination Paris --departure 2025-06-01 --return 2025-06-06
  tripplan plan -o NYC -d Tokyo --budget 2500 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("budget") {
				opts.criteria.Budget = &opts.budget
			}
			return runPlan(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.criteria.Origin, "origin", "o", "", "origin city or airport code")
	f.StringVarP(&opts.criteria.Destination, "destination", "d", "", "destination city or airport code")
	f.StringVar(&opts.criteria.DepartureDate, "departure", "", "departure date (YYYY-MM-DD)")
	f.StringVar(&opts.criteria.ReturnDate, "return", "", "return date (YYYY-MM-DD)")
	f.IntVarP(&opts.criteria.PartySize, "party", "p", 1, "number of travellers")
	f.IntVar(&opts.criteria.Rooms, "rooms", 1, "number of rooms")
	f.Float64Var(&opts.budget, "budget", 0, "total trip budget")
	f.BoolVar(&opts.asJSON, "json", false, "print the plan as JSON")
	_ = cmd.MarkFlagRequired("origin")
	_ = cmd.MarkFlagRequired("destination")

	return cmd
}

func runPlan(cmd *cobra.Command, root *rootOptions, opts *planOptions) error {
	cfg, err := root.load()
	if err != nil {
		return err
	}

	level := "warn"
	if root.verbose {
		level = cfg.Log.Level
	}
	logger := obs.NewLogger(cmd.ErrOrStderr(), level, "text")

	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	orchestrator := planner.New(sources, cfg.PlannerOptions(), obs.NewMetrics(logger), logger)

	plan, err := orchestrator.Plan(cmd.Context(), opts.criteria)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}

	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(plan)
	}
	return render.Plan(cmd.OutOrStdout(), plan)
}
