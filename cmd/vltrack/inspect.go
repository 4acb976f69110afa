package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the pipeline and print dataset, sampler and loader sizes",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cfg, splitKinds(kindsFlag), logger, nil)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tDATASET\tEXAMPLES\tSHARD\tBATCH\tBATCHES\tWORKERS\tSHUFFLE\tDROP_LAST")
		for i, l := range p.loaders {
			shard := "-"
			if p.samplers != nil {
				shard = fmt.Sprintf("%d/%d", p.samplers[i].Len(), p.samplers[i].TotalSize())
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%d\t%d\t%d\t%v\t%v\n",
				p.kinds[i], l.Name(), p.datasets[i].Len(), shard,
				l.BatchSize(), l.Len(), l.NumWorkers(), l.Shuffle(), l.DropLast())
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
