package gnn

import (
	"strings"

	"github.com/graphrewire/gnnrewire/rewiring"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// LayerType selects the graph convolution used by every layer of the stack.
type LayerType int

const (
	// LayerGIN is the Graph Isomorphism Network convolution: a feed-forward network applied to the
	// sum of the node state and its incoming neighbors.
	LayerGIN LayerType = iota

	// LayerGCN is the Graph Convolutional Network convolution: symmetric degree-normalized
	// aggregation with self-loops.
	LayerGCN
)

//go:generate enumer -type=LayerType -trimprefix=Layer -transform=snake -values -text -output=gen_layertype_enumer.go types.go

// ParseLayerType converts a case-insensitive layer name to its LayerType.
//
// Unknown names fall back to LayerGCN, so callers wanting strict validation should check the name
// with LayerTypeString first.
func ParseLayerType(name string) LayerType {
	layerType, err := LayerTypeString(strings.TrimSpace(name))
	if err != nil {
		klog.Warningf("unknown GNN layer type %q, using %q: options are %v", name, LayerGCN, LayerTypeStrings())
		return LayerGCN
	}
	return layerType
}

// TransformMode is the graph rewiring strategy the batch was prepared with. It decides which
// layers use the rewired edges, see UseRewiredEdges.
type TransformMode = rewiring.Mode

const (
	// TransformNone uses only the original edges.
	TransformNone = rewiring.ModeNone

	// TransformEGP is Expander Graph Propagation: odd layers use a Cayley expander graph truncated
	// to the nodes of each graph.
	TransformEGP = rewiring.ModeEGP

	// TransformCGP is Cayley Graph Propagation: odd layers use the complete Cayley graph, with
	// virtual nodes added to each graph and removed from the output.
	TransformCGP = rewiring.ModeCGP

	// TransformFA uses a fully-adjacent graph on the last layer.
	TransformFA = rewiring.ModeFA
)

// ParseTransformMode converts a case-insensitive transform name to its TransformMode.
// The empty string and "none" map to TransformNone.
func ParseTransformMode(name string) (TransformMode, error) {
	return rewiring.ParseMode(name)
}

// EncoderType selects how raw node features are turned into the layer-0 input.
type EncoderType int

const (
	// EncoderNone passes the node features through, converted to the model dtype.
	EncoderNone EncoderType = iota

	// EncoderAtom embeds the categorical atom features of molecular graphs and sums them.
	EncoderAtom

	// EncoderUniform uses one learned vector for every node, for graphs without node features.
	EncoderUniform
)

//go:generate enumer -type=EncoderType -trimprefix=Encoder -transform=snake -values -text -output=gen_encodertype_enumer.go types.go

// ParseEncoderType converts a case-insensitive encoder name to its EncoderType.
// The empty string and "none" map to EncoderNone; any other unknown name is an error.
func ParseEncoderType(name string) (EncoderType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return EncoderNone, nil
	}
	encoder, err := EncoderTypeString(name)
	if err != nil {
		return EncoderNone, errors.Errorf("node encoder %q does not exist: options are %v", name, EncoderTypeStrings())
	}
	return encoder, nil
}
