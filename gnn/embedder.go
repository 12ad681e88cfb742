package gnn

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/backends"
	. "github.com/gomlx/gomlx/graph"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/gomlx/gomlx/types/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Batcher is a batch of graphs that can be converted to the model inputs. It is implemented by graphdata.Batch.
//
// Tensors must return the inputs in the order described by InputLayout: `x`, `edge_index`, `batch`,
// optionally `rewiring_edge_index`, and optionally `virtual_node_mask` and `retained_nodes`.
// It should return an error if the requested optional inputs are not available.
type Batcher interface {
	Tensors(withRewiring, withVirtualNodes bool) ([]*tensors.Tensor, error)
}

// Embedder compiles and executes a Model on batches of graphs.
//
// The model is compiled for each new combination of input shapes (up to the default cache size of
// context.Exec). It is not safe for concurrent use.
type Embedder struct {
	// backend used to compile and execute the model.
	backend backends.Backend

	// ctx holds the model's variables and hyperparameters.
	ctx *context.Context

	model    *Model
	layout   InputLayout
	training bool

	// exec is created lazily, and reset when the training mode changes.
	exec *context.Exec
}

// NewEmbedder creates an Embedder for the model, with variables stored (and created if needed) in ctx.
//
// The embedder starts in inference mode, see Embedder.Training.
func NewEmbedder(backend backends.Backend, ctx *context.Context, model *Model) *Embedder {
	return &Embedder{
		backend: backend,
		ctx:     ctx,
		model:   model,
		layout:  model.Layout(),
	}
}

// Training sets whether the model is executed in training mode, which enables dropout and makes
// batch normalization use the batch statistics.
// It returns the Embedder itself, so calls can be cascaded.
func (e *Embedder) Training(training bool) *Embedder {
	if training != e.training {
		e.training = training
		e.exec = nil
	}
	return e
}

// Context returns the context holding the model's variables.
func (e *Embedder) Context() *context.Context { return e.ctx }

// Model returns the model being executed.
func (e *Embedder) Model() *Model { return e.model }

func (e *Embedder) createExec() {
	model := e.model
	layout := e.layout
	training := e.training
	// Variables are created on the first compilation and reused by the following ones.
	e.exec = context.NewExec(e.backend, e.ctx.Checked(false), func(ctx *context.Context, inputs []*Node) []*Node {
		g := inputs[0].Graph()
		ctx.SetTraining(g, training)
		h, batch := model.Graph(ctx, InputsFromNodes(layout, inputs))
		return []*Node{h, batch}
	})
}

// Embed runs the model on the batch and returns the node embeddings, shaped `[num_nodes, hidden_dim]`,
// and the graph index of each node, shaped `[num_nodes]`. Virtual nodes (CGP) are not included in either.
//
// It returns an error if the batch lacks the inputs required by the model configuration (e.g.: the
// rewired edges), or if the model fails to build or execute.
func (e *Embedder) Embed(batch Batcher) (embeddings, assignment *tensors.Tensor, err error) {
	inputs, err := batch.Tensors(e.layout.WithRewiring, e.layout.WithVirtualNodes)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "transform %s with %d layers", e.model.cfg.Transform, e.model.cfg.NumLayers)
	}
	if len(inputs) != e.layout.NumInputs() {
		return nil, nil, errors.Errorf("batch returned %d inputs, the model expects %d", len(inputs), e.layout.NumInputs())
	}
	if e.exec == nil {
		e.createExec()
	}
	args := make([]any, len(inputs))
	for ii, t := range inputs {
		args[ii] = t
	}
	var outputs []*tensors.Tensor
	err = exceptions.TryCatch[error](func() { outputs = e.exec.Call(args...) })
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to execute node embedding model")
	}
	if klog.V(1).Enabled() {
		klog.Infof("Embed(training=%v): x=%s -> embeddings=%s", e.training, inputs[0].Shape(), outputs[0].Shape())
	}
	return outputs[0], outputs[1], nil
}
