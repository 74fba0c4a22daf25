package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/anneal-sim/anneal-sim/sim/checkpoint"
	"github.com/anneal-sim/anneal-sim/sim/experiment"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// renderSummary formats per-τ statistics as a table.
func renderSummary(title string, rows []experiment.TauSummary, hasGround bool) string {
	headers := []string{"tau", "mean min E/N"}
	if hasGround {
		headers = append(headers, "mean residual", "median residual", "P(success)")
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, r := range rows {
		cells := []string{strconv.Itoa(r.Tau), formatEnergy(r.MeanMinEnergy)}
		if hasGround {
			cells = append(cells, formatEnergy(r.MeanResidual), formatEnergy(r.MedianResidual),
				strconv.FormatFloat(r.SuccessProbability, 'f', 3, 64))
		}
		t.Row(cells...)
	}
	return title + "\n" + t.String()
}

func formatEnergy(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// newSummaryCmd builds the summary command, which reads a checkpoint and
// prints its per-τ statistics without running anything.
func newSummaryCmd() *cobra.Command {
	var (
		dir, name, backend string
		ground             float64
		taus               []int
	)
	cmd := &cobra.Command{
		Use:          "summary",
		Short:        "Summarize a checkpointed experiment",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return fmt.Errorf("--name is required")
			}
			if !checkpoint.IsValidBackend(backend) {
				return fmt.Errorf("unsupported checkpoint backend: %s", backend)
			}
			store, err := checkpoint.Open(cmd.Context(), backend, dir, name)
			if err != nil {
				return err
			}
			defer store.Close()
			cp, found, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("no checkpoint named %s in %s", name, dir)
			}
			results, err := experiment.FromCheckpoint(cp)
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("tau-schedule") {
				taus = cp.Provenance.Taus
			}
			if len(taus) == 0 {
				taus = make([]int, results.Taus())
				for i := range taus {
					taus[i] = i + 1
				}
			}
			hasGround := cmd.Flags().Changed("ground-energy")
			if !hasGround {
				ground, hasGround = cp.Provenance.Params[groundEnergyParam]
			}

			summary, err := experiment.Summarize(results, taus, ground, hasGround)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("%s (%d runs)", name, results.Runs())
			fmt.Fprintln(cmd.OutOrStdout(), renderSummary(title, summary, hasGround))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory holding the checkpoint, e.g. results/EA/PIQMC")
	cmd.Flags().StringVar(&name, "name", "", "Checkpoint name, e.g. EA_40x40_P20_PIQMC_realization1_Energies")
	cmd.Flags().StringVar(&backend, "checkpoint-backend", checkpoint.BackendFile, "Checkpoint store: file, sqlite or badger")
	cmd.Flags().Float64Var(&ground, "ground-energy", 0, "Ground energy per spin (default from the checkpoint provenance)")
	cmd.Flags().IntSliceVar(&taus, "tau-schedule", nil, "Annealing lengths of the columns (default from the checkpoint provenance)")
	return cmd
}
