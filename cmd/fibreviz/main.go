// Command fibreviz renders the visualization export (spec.md §6) for a
// small demonstration tree, as plain text or HTML. Its CLI surface is
// grounded on the teacher's cmd/codegen/main.go, which configures itself
// entirely through urfave/cli/v3 flags rather than environment
// variables or config files.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/module/incremental/btree"
	"github.com/module/incremental/fibre"
	"github.com/module/incremental/viz"
)

const (
	formatKey       = "format"
	batteryLevelKey = "battery"
	positionKey     = "position"
)

func main() {
	cmd := &cli.Command{
		Name:  "fibreviz",
		Usage: "Render the fibre runtime's visualization export for a demonstration robot tree",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  formatKey,
				Usage: "Output format: table or html",
				Value: "table",
			},
			&cli.FloatFlag{
				Name:  batteryLevelKey,
				Usage: "Initial battery level (0-100)",
				Value: 75,
			},
			&cli.FloatFlag{
				Name:  positionKey,
				Usage: "Initial position (0-100)",
				Value: 50,
			},
		},
		Action: render,
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func render(ctx context.Context, cmd *cli.Command) error {
	state := btree.NewRobotState(cmd.Float(batteryLevelKey), cmd.Float(positionKey))
	tree := btree.SafeRobot{Task: btree.MoveTowards{Destination: 0}}

	robot, err := btree.NewRobot(state, tree)
	if err != nil {
		return err
	}
	if _, err := robot.Tick(); err != nil {
		return err
	}

	snap := viz.Snapshot(robotRuntime(robot))

	switch cmd.String(formatKey) {
	case "html":
		fmt.Println(viz.RenderHTML(snap))
	default:
		viz.RenderTable(os.Stdout, snap)
		viz.RenderSummary(os.Stdout, viz.Summarize(snap))
	}
	return nil
}

// robotRuntime reaches into Robot for its underlying *fibre.Runtime; the
// exported Runtime accessor lives in package btree so fibreviz never
// needs to touch btree's internals.
func robotRuntime(r *btree.Robot) *fibre.Runtime {
	return r.Runtime()
}
