package main

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/carrygg/metagraph/graph/model"
)

// gen-data emits a synthetic co-occurrence snapshot, used to stress the
// layout server without the real search backend.
func newGenDataCommand() *cobra.Command {
	var units, items, centers int
	var seed int64
	cmd := &cobra.Command{
		Use:   "gen-data",
		Short: "Generate a synthetic GraphData JSON snapshot on stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			rnd := rand.New(rand.NewSource(seed))
			g := model.Graph{}
			for i := 0; i < units; i++ {
				g.Nodes = append(g.Nodes, &model.Node{
					ID:       fmt.Sprintf("%sUnit%d", model.IDPrefixUnit, i),
					Type:     model.NodeTypeUnit,
					Label:    fmt.Sprintf("Unit %d", i),
					IsCenter: i < centers,
				})
			}
			for i := 0; i < items; i++ {
				g.Nodes = append(g.Nodes, &model.Node{
					ID:    fmt.Sprintf("%sItem%d", model.IDPrefixItem, i),
					Type:  model.NodeTypeItem,
					Label: fmt.Sprintf("Item %d", i),
				})
			}
			for i := 0; i < items; i++ {
				unit := rnd.Intn(units)
				delta := (rnd.Float64() - 0.5) * 1.2
				nWith := 50 + rnd.Intn(5000)
				g.Edges = append(g.Edges, &model.Edge{
					From:    fmt.Sprintf("%sUnit%d", model.IDPrefixUnit, unit),
					To:      fmt.Sprintf("%sItem%d", model.IDPrefixItem, i),
					Type:    model.EdgeTypeEquipped,
					Token:   fmt.Sprintf("E:Unit%d|Item%d", unit, i),
					Label:   fmt.Sprintf("Unit %d + Item %d", unit, i),
					Delta:   &delta,
					AvgWith: 4.5 + delta,
					AvgBase: 4.5,
					NWith:   nWith,
					NBase:   nWith * 4,
				})
			}
			return errors.Wrap(json.NewEncoder(os.Stdout).Encode(&g), "failed to encode graph")
		},
	}
	cmd.Flags().IntVar(&units, "units", 20, "number of unit nodes")
	cmd.Flags().IntVar(&items, "items", 40, "number of item nodes")
	cmd.Flags().IntVar(&centers, "centers", 2, "number of center (filtered) units")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}
