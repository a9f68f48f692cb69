package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/carrygg/metagraph/graph/model"
	"github.com/carrygg/metagraph/layout"
)

type positionedNode struct {
	ID string  `json:"id"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// layout runs a force simulation on the graph received on stdin in json
// format and writes settled node positions to stdout.
func newLayoutCommand() *cobra.Command {
	var pngFile string
	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Compute a settled layout for a GraphData JSON snapshot from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			g := model.Graph{}
			if err := json.NewDecoder(os.Stdin).Decode(&g); err != nil {
				return errors.Wrap(err, "failed to decode graph from stdin")
			}
			fs := layout.NewForceSimulation(layout.Config{})
			ws, stats := fs.ComputeLayout(context.Background(), &g, model.AllTypes(), layout.NewPositionCache())
			log.Info().Msgf("layout computation finished: stats{iterations: %d, time: %d ms}",
				stats.Iterations, stats.TotalTime.Milliseconds())
			if pngFile != "" {
				if err := layout.DrawWorkingSet(ws, pngFile); err != nil {
					return err
				}
			}
			out := make([]positionedNode, 0, len(ws.Nodes))
			for i := range ws.Nodes {
				out = append(out, positionedNode{
					ID: ws.Nodes[i].ID,
					X:  ws.Nodes[i].Pos.X(),
					Y:  ws.Nodes[i].Pos.Y(),
				})
			}
			return errors.Wrap(json.NewEncoder(os.Stdout).Encode(out), "failed to encode positions")
		},
	}
	cmd.Flags().StringVar(&pngFile, "png", "", "also write a debug PNG of the settled layout")
	return cmd
}
