package main

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/graphrewire/gnnrewire/gnn"
	"github.com/graphrewire/gnnrewire/rewiring"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)

	oddRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFF")).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999")).
			PaddingLeft(1).PaddingRight(1)

	titleStyle = lipgloss.NewStyle().Bold(true).Padding(1, 4, 1, 4)
)

func newPlainTable(withHeader bool) *lgtable.Table {
	return lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			if withHeader && row == 1 {
				s = headerRowStyle
				return
			}
			switch {
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			if col == 0 {
				s = s.Align(lipgloss.Right)
			} else {
				s = s.Align(lipgloss.Left)
			}
			return
		})
}

func reportConfig(ctx *context.Context, cfg *gnn.Config, mode rewiring.Mode) {
	fmt.Println(titleStyle.Render("Model"))
	table := newPlainTable(false)
	table.Row("layers", fmt.Sprintf("%d x %s", cfg.NumLayers, cfg.LayerType))
	table.Row("node encoder", cfg.NodeEncoder.String())
	table.Row("input dim", humanize.Comma(int64(cfg.LayerInputDim(0))))
	table.Row("hidden dim", humanize.Comma(int64(cfg.HiddenDim)))
	if cfg.LayerType == gnn.LayerGIN {
		table.Row("GIN embed dim", humanize.Comma(int64(cfg.GINEmbedDim())))
	}
	table.Row("dropout", fmt.Sprintf("%g", cfg.Dropout))
	table.Row("transform", mode.String())
	var rewiredLayers []string
	for layer := range cfg.NumLayers {
		if gnn.UseRewiredEdges(cfg.Transform, layer, cfg.NumLayers) {
			rewiredLayers = append(rewiredLayers, fmt.Sprintf("%d", layer))
		}
	}
	if len(rewiredLayers) > 0 {
		table.Row("rewired layers", strings.Join(rewiredLayers, ", "))
	}
	fmt.Println(table.Render())

	fmt.Println(titleStyle.Render("Hyperparameters"))
	table = newPlainTable(true)
	table.Row("Scope", "Name", "Type", "Value")
	ctx.EnumerateParams(func(scope, key string, value any) {
		table.Row(scope, key, fmt.Sprintf("%T", value), fmt.Sprintf("%v", value))
	})
	fmt.Println(table.Render())
}

func reportBatch(stats batchStats) {
	fmt.Println(titleStyle.Render("Batch"))
	table := newPlainTable(false)
	table.Row("# graphs", humanize.Comma(int64(stats.NumGraphs)))
	table.Row("# nodes", humanize.Comma(int64(stats.NumNodes)))
	if stats.NumVirtualNodes > 0 {
		table.Row("# virtual nodes", humanize.Comma(int64(stats.NumVirtualNodes)))
	}
	table.Row("# edges", humanize.Comma(int64(stats.NumEdges)))
	if stats.Mode != rewiring.ModeNone {
		table.Row("# rewired edges", humanize.Comma(int64(stats.NumRewiringEdges)))
	}
	table.Row("features per node", humanize.Comma(int64(stats.FeatureDim)))
	fmt.Println(table.Render())
}

// reportEmbeddings prints, per graph, the number of (non-virtual) nodes and the mean L2 norm of their
// embeddings.
func reportEmbeddings(embeddings, assignment *tensors.Tensor, numGraphs int) {
	fmt.Println(titleStyle.Render("Embeddings"))
	fmt.Printf("  shape: %s\n", embeddings.Shape())
	dims := embeddings.Shape().Dimensions
	values := tensors.CopyFlatData[float32](embeddings)
	graphOf := tensors.CopyFlatData[int32](assignment)
	counts := make([]int, numGraphs)
	norms := make([]float64, numGraphs)
	for node := range dims[0] {
		var sum2 float64
		for _, v := range values[node*dims[1] : (node+1)*dims[1]] {
			sum2 += float64(v) * float64(v)
		}
		g := graphOf[node]
		counts[g]++
		norms[g] += math.Sqrt(sum2)
	}
	table := newPlainTable(true)
	table.Row("Graph", "# Nodes", "Mean L2 Norm")
	for g := range numGraphs {
		mean := 0.0
		if counts[g] > 0 {
			mean = norms[g] / float64(counts[g])
		}
		table.Row(fmt.Sprintf("#%d", g), humanize.Comma(int64(counts[g])), fmt.Sprintf("%.4f", mean))
	}
	fmt.Println(table.Render())
}

func reportVariables(ctx *context.Context) {
	fmt.Println(titleStyle.Render("Variables"))
	table := newPlainTable(true)
	table.Row("Scope", "Name", "Shape", "Size", "Bytes")
	var rows [][]string
	var totalSize int
	var totalMemory uintptr
	ctx.EnumerateVariablesInScope(func(v *context.Variable) {
		shape := v.Shape()
		totalSize += shape.Size()
		totalMemory += shape.Memory()
		rows = append(rows, []string{
			v.Scope(), v.Name(), shape.String(),
			humanize.Comma(int64(shape.Size())),
			humanize.Bytes(uint64(shape.Memory())),
		})
	})
	slices.SortFunc(rows, func(a, b []string) int {
		cmp := strings.Compare(a[0], b[0])
		if cmp != 0 {
			return cmp
		}
		return strings.Compare(a[1], b[1])
	})
	for _, row := range rows {
		table.Row(row...)
	}
	table.Row("", "total", "", humanize.Comma(int64(totalSize)), humanize.Bytes(uint64(totalMemory)))
	fmt.Println(table.Render())
}
