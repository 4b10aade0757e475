// Command fibrebench times fibre.Runtime.RunTick across a range of
// synthetic tree shapes, grounded on the teacher's cmd/benchmark (the
// jamiealquiza/tachymeter + jedib0t/go-pretty/v6/table harness) and
// cmd/benchmark_reactively (dustin/go-humanize formatting) benchmark
// mains, adapted to drive the fibre runtime instead of a bare signal
// graph.
package main

import (
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/module/incremental/btree"
	"github.com/module/incremental/fibre"
)

type shapeConfig struct {
	name       string
	width      int
	depth      int
	iterations int
}

var shapes = []shapeConfig{
	{name: "shallow wide", width: 1000, depth: 1, iterations: 200},
	{name: "balanced", width: 10, depth: 5, iterations: 200},
	{name: "deep narrow", width: 1, depth: 200, iterations: 200},
	{name: "single toggle", width: 1, depth: 1, iterations: 2000},
}

func main() {
	log.Print("starting fibrebench, please wait...")
	defer log.Print("fibrebench finished")

	tbl := table.NewWriter()
	tbl.SetTitle("fibre runtime tick latency")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"shape", "fibres", "avg", "min", "p75", "p99", "max"})

	for _, shape := range shapes {
		benchmarkShape(tbl, shape)
	}
	tbl.Render()
}

// toggleLeaf is a Sequence leaf carrying one state slot, flipped every
// tick so the benchmark measures incremental re-evaluation cost rather
// than a full re-render.
type toggleLeaf struct{}

func (toggleLeaf) Eval(cc *fibre.CallContext) (btree.Result, error) {
	value, setter := fibre.UseState(cc, false)
	fibre.UseEffect(cc, nil, func() func() {
		setter(func(prev bool) bool { return !prev })
		return nil
	})
	return btree.ResultSuccess(value), nil
}

func buildLevel(width, depth int) btree.Node {
	if depth == 0 {
		return toggleLeaf{}
	}
	children := make([]btree.Node, width)
	for i := range children {
		children[i] = buildLevel(width, depth-1)
	}
	return btree.NewSequence(children...)
}

func benchmarkShape(tbl table.Writer, cfg shapeConfig) {
	tach := tachymeter.New(&tachymeter.Config{Size: cfg.iterations})

	rt, err := fibre.NewRuntime(btree.Wrap("root", buildLevel(cfg.width, cfg.depth)))
	if err != nil {
		log.Fatal(err)
	}

	for i := 0; i < cfg.iterations; i++ {
		start := time.Now()
		if _, err := rt.RunTick(); err != nil {
			log.Fatal(err)
		}
		tach.AddTime(time.Since(start))
	}

	metrics := tach.Calc()
	tbl.AppendRow(table.Row{
		cfg.name,
		humanize.Comma(int64(countFibres(rt))),
		metrics.Time.Avg,
		metrics.Time.Min,
		metrics.Time.P75,
		metrics.Time.P99,
		metrics.Time.Max,
	})
}

func countFibres(rt *fibre.Runtime) int {
	count := 0
	var walk func(f *fibre.Fibre)
	walk = func(f *fibre.Fibre) {
		count++
		for _, c := range f.Children() {
			walk(c)
		}
	}
	walk(rt.Root())
	return count
}
