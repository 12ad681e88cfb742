// gnnembed builds a synthetic batch of graphs, applies the configured graph rewiring and runs the
// node embedding GNN on it, printing a report of the configuration, the batch and the embeddings.
//
// The model is configured with context hyperparameters, from an HCL file (-config) and/or from the
// -set flag, which takes precedence. Example:
//
//	gnnembed -config=experiment.hcl -set="gnn_num_layers=4;transform_name=CGP" -graphs=8 -vars
package main

import (
	"flag"
	"math/rand/v2"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/ml/context/initializers"
	"github.com/gomlx/gomlx/ui/commandline"
	"github.com/graphrewire/gnnrewire/gnn"
	"github.com/graphrewire/gnnrewire/graphdata"
	"github.com/graphrewire/gnnrewire/internal/hclconfig"
	"github.com/graphrewire/gnnrewire/rewiring"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/gomlx/backends/default"
)

var (
	flagConfig   = flag.String("config", "", "HCL file with the experiment configuration. Settings in -set take precedence.")
	flagGraphs   = flag.Int("graphs", 4, "Number of synthetic graphs in the batch.")
	flagMinNodes = flag.Int("min_nodes", 5, "Minimum number of nodes of each synthetic graph.")
	flagMaxNodes = flag.Int("max_nodes", 20, "Maximum number of nodes of each synthetic graph.")
	flagSeed     = flag.Int64("seed", 42, "Random seed for the synthetic graphs and the variables initialization.")
	flagTrain    = flag.Bool("train", false, "Run the model in training mode, with dropout enabled.")
	flagVars     = flag.Bool("vars", false, "Lists the model variables.")
)

// createDefaultContext sets the default hyperparameters, so they can be overwritten with -set.
func createDefaultContext() *context.Context {
	ctx := context.New()
	gnn.DefaultConfig().SetInContext(ctx)
	return ctx
}

func main() {
	ctx := createDefaultContext()
	settings := commandline.CreateContextSettingsFlag(ctx, "")
	klog.InitFlags(nil)
	flag.Parse()

	if *flagConfig != "" {
		configFile := must.M1(hclconfig.Load(*flagConfig))
		must.M(configFile.Apply(ctx))
	}
	paramsSet := must.M1(commandline.ParseContextSettings(ctx, *settings))
	klog.V(1).Infof("Hyperparameters set: %s", commandline.SprintModifiedContextSettings(ctx, paramsSet))

	var err error
	exceptionErr := exceptions.TryCatch[error](func() { err = run(ctx) })
	if exceptionErr != nil {
		err = exceptionErr
	}
	if err != nil {
		klog.Fatalf("Failed with error: %+v", err)
	}
}

func run(ctx *context.Context) error {
	if *flagGraphs <= 0 || *flagMinNodes <= 0 || *flagMaxNodes < *flagMinNodes {
		return errors.Errorf("invalid synthetic batch: -graphs=%d -min_nodes=%d -max_nodes=%d",
			*flagGraphs, *flagMinNodes, *flagMaxNodes)
	}
	cfg, err := gnn.ConfigFromContext(ctx)
	if err != nil {
		return err
	}
	model, err := gnn.New(cfg)
	if err != nil {
		return err
	}
	mode := cfg.Transform

	ctx.SetParam(initializers.ParamInitialSeed, *flagSeed)
	ctx.RngStateFromSeed(*flagSeed)
	rng := rand.New(rand.NewPCG(uint64(*flagSeed), uint64(*flagSeed)))
	sizes := make([]int, *flagGraphs)
	for ii := range sizes {
		sizes[ii] = *flagMinNodes + rng.IntN(*flagMaxNodes-*flagMinNodes+1)
	}

	var (
		batch gnn.Batcher
		stats batchStats
	)
	if cfg.NodeEncoder == gnn.EncoderAtom {
		batch, stats, err = prepareBatch(mode, syntheticGraphs(rng, sizes, len(gnn.AtomFeatureDims), func(col int) int32 {
			return int32(rng.IntN(gnn.AtomFeatureDims[col]))
		}))
	} else {
		batch, stats, err = prepareBatch(mode, syntheticGraphs(rng, sizes, cfg.InputDim, func(int) float32 {
			return float32(rng.NormFloat64())
		}))
	}
	if err != nil {
		return err
	}

	backend := backends.MustNew()
	klog.V(1).Infof("Backend: %s", backend.Description())
	embedder := gnn.NewEmbedder(backend, ctx.In("model"), model).Training(*flagTrain)
	embeddings, assignment, err := embedder.Embed(batch)
	if err != nil {
		return err
	}

	reportConfig(ctx, cfg, mode)
	reportBatch(stats)
	reportEmbeddings(embeddings, assignment, stats.NumGraphs)
	if *flagVars {
		reportVariables(ctx.In("model"))
	}
	return nil
}

// syntheticGraphs creates cycle graphs with the given sizes, each with a random chord, and node features
// sampled with sample(column).
func syntheticGraphs[T graphdata.Feature](rng *rand.Rand, sizes []int, featureDim int, sample func(col int) T) []*graphdata.Graph[T] {
	graphs := make([]*graphdata.Graph[T], 0, len(sizes))
	for _, numNodes := range sizes {
		features := make([]T, numNodes*featureDim)
		for ii := range features {
			features[ii] = sample(ii % featureDim)
		}
		edges := make([]graphdata.Edge, 0, 2*numNodes+2)
		for node := range numNodes {
			next := int32((node + 1) % numNodes)
			if numNodes > 1 {
				edges = append(edges, graphdata.Edge{int32(node), next}, graphdata.Edge{next, int32(node)})
			}
		}
		if numNodes > 3 {
			from, to := int32(rng.IntN(numNodes)), int32(rng.IntN(numNodes))
			if from != to {
				edges = append(edges, graphdata.Edge{from, to}, graphdata.Edge{to, from})
			}
		}
		graphs = append(graphs, must.M1(graphdata.NewGraph(numNodes, featureDim, features, edges)))
	}
	return graphs
}

// batchStats summarizes a batch for the report.
type batchStats struct {
	NumGraphs, NumNodes, NumVirtualNodes, NumEdges, NumRewiringEdges int
	FeatureDim                                                      int
	Mode                                                            rewiring.Mode
}

// prepareBatch rewires and collates the graphs.
func prepareBatch[T graphdata.Feature](mode rewiring.Mode, graphs []*graphdata.Graph[T]) (*graphdata.Batch[T], batchStats, error) {
	rewired, err := rewiring.ApplyAll(mode, graphs)
	if err != nil {
		return nil, batchStats{}, err
	}
	batch, err := graphdata.Collate(rewired)
	if err != nil {
		return nil, batchStats{}, err
	}
	return batch, batchStats{
		NumGraphs:        batch.NumGraphs,
		NumNodes:         batch.NumNodes,
		NumVirtualNodes:  batch.NumVirtualNodes(),
		NumEdges:         batch.NumEdges(),
		NumRewiringEdges: len(batch.RewiringEdgeIndex),
		FeatureDim:       batch.FeatureDim,
		Mode:             mode,
	}, nil
}
