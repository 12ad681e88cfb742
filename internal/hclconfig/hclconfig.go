// Package hclconfig loads experiment configuration files written in HCL, and applies them as
// hyperparameters to a context.
//
// Example of a configuration file:
//
//	gnn {
//	  num_layers   = 4
//	  hidden_dim   = 64
//	  input_dim    = 16
//	  dropout      = 0.5
//	  node_encoder = "atom"
//	  layer_type   = "gin"
//	}
//
//	dataset {
//	  format = "OGB"
//	}
//
//	transform {
//	  name = "EGP"
//	}
//
//	params = {
//	  rng_seed = 42
//	}
//
// Every block and attribute is optional, and only the attributes present are set.
// The `params` object sets arbitrary context hyperparameters by name.
package hclconfig

import (
	"math/big"
	"sort"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/graphrewire/gnnrewire/gnn"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
	"k8s.io/klog/v2"
)

// File is the decoded configuration file.
type File struct {
	GNN       *GNNBlock       `hcl:"gnn,block"`
	Dataset   *DatasetBlock   `hcl:"dataset,block"`
	Transform *TransformBlock `hcl:"transform,block"`
	Params    cty.Value       `hcl:"params,optional"`

	// Path of the file it was loaded from.
	Path string
}

// GNNBlock configures the node embedding model.
type GNNBlock struct {
	NumLayers        *int     `hcl:"num_layers,optional"`
	HiddenDim        *int     `hcl:"hidden_dim,optional"`
	InputDim         *int     `hcl:"input_dim,optional"`
	Dropout          *float64 `hcl:"dropout,optional"`
	NodeEncoder      *string  `hcl:"node_encoder,optional"`
	LayerType        *string  `hcl:"layer_type,optional"`
	ZeroVirtualNodes *bool    `hcl:"zero_virtual_nodes,optional"`
}

// DatasetBlock describes the dataset.
type DatasetBlock struct {
	Format *string `hcl:"format,optional"`
}

// TransformBlock selects the graph rewiring transformation.
type TransformBlock struct {
	Name *string `hcl:"name,optional"`
}

// Load parses and decodes the HCL file in path.
func Load(path string) (*File, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to parse HCL file %q", path)
	}
	f := &File{}
	diags = gohcl.DecodeBody(hclFile.Body, nil, f)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, "failed to decode HCL file %q", path)
	}
	f.Path = path
	if _, err := f.params(); err != nil {
		return nil, errors.WithMessagef(err, "in HCL file %q", path)
	}
	return f, nil
}

// Apply sets the hyperparameters present in the file in the context.
func (f *File) Apply(ctx *context.Context) error {
	settings := make(map[string]any)
	if b := f.GNN; b != nil {
		setIfPresent(settings, gnn.ParamNumLayers, b.NumLayers)
		setIfPresent(settings, gnn.ParamHiddenDim, b.HiddenDim)
		setIfPresent(settings, gnn.ParamInputDim, b.InputDim)
		setIfPresent(settings, gnn.ParamDropout, b.Dropout)
		setIfPresent(settings, gnn.ParamNodeEncoder, b.NodeEncoder)
		setIfPresent(settings, gnn.ParamLayerType, b.LayerType)
		setIfPresent(settings, gnn.ParamZeroVirtualNodes, b.ZeroVirtualNodes)
	}
	if f.Dataset != nil {
		setIfPresent(settings, gnn.ParamDatasetFormat, f.Dataset.Format)
	}
	if f.Transform != nil {
		setIfPresent(settings, gnn.ParamTransformName, f.Transform.Name)
	}
	params, err := f.params()
	if err != nil {
		return err
	}
	for key, value := range params {
		settings[key] = value
	}
	ctx.SetParams(settings)
	if klog.V(1).Enabled() {
		keys := make([]string, 0, len(settings))
		for key := range settings {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			klog.Infof("%s: %s=%v", f.Path, key, settings[key])
		}
	}
	return nil
}

func setIfPresent[T any](settings map[string]any, key string, value *T) {
	if value != nil {
		settings[key] = *value
	}
}

// params converts the `params` object to hyperparameters.
func (f *File) params() (map[string]any, error) {
	if f.Params.IsNull() {
		return nil, nil
	}
	if !f.Params.Type().IsObjectType() && !f.Params.Type().IsMapType() {
		return nil, errors.Errorf("params must be an object, got %s", f.Params.Type().FriendlyName())
	}
	params := make(map[string]any)
	for it := f.Params.ElementIterator(); it.Next(); {
		k, v := it.Element()
		value, err := ctyToParam(v)
		if err != nil {
			return nil, errors.WithMessagef(err, "params.%s", k.AsString())
		}
		params[k.AsString()] = value
	}
	return params, nil
}

// ctyToParam converts a primitive value to the Go type used by context hyperparameters.
// Whole numbers become int, other numbers float64.
func ctyToParam(v cty.Value) (any, error) {
	if !v.IsKnown() || v.IsNull() {
		return nil, errors.New("value must be known and not null")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if i, accuracy := bf.Int64(); accuracy == big.Exact {
				return int(i), nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	default:
		return nil, errors.Errorf("unsupported type %s, only strings, numbers and bools can be used", v.Type().FriendlyName())
	}
}
