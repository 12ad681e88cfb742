package gnn

import (
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gomlx/ml/context"
	"github.com/pkg/errors"
)

const (
	// ParamNumLayers context hyperparameter defines the number of convolution/normalization pairs.
	// The default is 5.
	ParamNumLayers = "gnn_num_layers"

	// ParamDropout context hyperparameter defines the dropout rate applied after every layer.
	// It must be in the range `[0, 1)`, and it is only applied while training.
	// The default is 0.5.
	ParamDropout = "gnn_dropout"

	// ParamHiddenDim context hyperparameter defines the width of the node states produced by every layer.
	// The default is 300.
	ParamHiddenDim = "gnn_hidden_dim"

	// ParamInputDim context hyperparameter defines the width of the node features fed to the first layer,
	// when the atom encoder is not used.
	// The default is 300.
	ParamInputDim = "gnn_input_dim"

	// ParamNodeEncoder context hyperparameter selects the node encoder: `atom`, `uniform` or `none`
	// (or empty). It is case-insensitive.
	// The default is "", meaning no encoder.
	ParamNodeEncoder = "gnn_node_encoder"

	// ParamLayerType context hyperparameter selects the convolution: `gin` or `gcn`. It is case-insensitive
	// and unknown values fall back to `gcn`.
	// The default is `gin`.
	ParamLayerType = "gnn_layer_type"

	// ParamDatasetFormat context hyperparameter holds the dataset format. The value `OGB` doubles the
	// intermediate width of the GIN feed-forward network.
	// The default is "".
	ParamDatasetFormat = "dataset_format"

	// ParamTransformName context hyperparameter holds the rewiring transform the batches were prepared with:
	// `EGP`, `CGP`, `FA` or `none` (or empty). It decides which layers use the rewired edges.
	// The default is "".
	ParamTransformName = "transform_name"

	// ParamZeroVirtualNodes context hyperparameter, if set to true, zeroes the encoded features of virtual
	// nodes before the first layer in CGP mode. If false the virtual nodes keep their encoded features.
	// The default is false.
	ParamZeroVirtualNodes = "gnn_zero_virtual_nodes"
)

// DatasetFormatOGB is the dataset format that doubles the GIN intermediate width.
const DatasetFormatOGB = "OGB"

// Config holds the resolved configuration of the node embedding model.
//
// It is created once, usually with ConfigFromContext, and it is not changed afterward.
type Config struct {
	NumLayers        int
	Dropout          float64
	HiddenDim        int
	InputDim         int
	NodeEncoder      EncoderType
	LayerType        LayerType
	DatasetFormat    string
	Transform        TransformMode
	ZeroVirtualNodes bool
}

// DefaultConfig returns the configuration used when no hyperparameter is set.
func DefaultConfig() *Config {
	return &Config{
		NumLayers: 5,
		Dropout:   0.5,
		HiddenDim: 300,
		InputDim:  300,
		LayerType: LayerGIN,
	}
}

// ConfigFromContext resolves the configuration from the context hyperparameters `Param...`.
//
// It returns an error for an unknown node encoder or transform name, or for invalid dimensions.
// Unknown layer types fall back to LayerGCN.
func ConfigFromContext(ctx *context.Context) (cfg *Config, err error) {
	defaults := DefaultConfig()
	var encoderName, transformName string
	// GetParamOr panics if a hyperparameter has an unexpected type.
	err = exceptions.TryCatch[error](func() {
		cfg = &Config{
			NumLayers:        context.GetParamOr(ctx, ParamNumLayers, defaults.NumLayers),
			Dropout:          context.GetParamOr(ctx, ParamDropout, defaults.Dropout),
			HiddenDim:        context.GetParamOr(ctx, ParamHiddenDim, defaults.HiddenDim),
			InputDim:         context.GetParamOr(ctx, ParamInputDim, defaults.InputDim),
			LayerType:        ParseLayerType(context.GetParamOr(ctx, ParamLayerType, defaults.LayerType.String())),
			DatasetFormat:    context.GetParamOr(ctx, ParamDatasetFormat, ""),
			ZeroVirtualNodes: context.GetParamOr(ctx, ParamZeroVirtualNodes, false),
		}
		encoderName = context.GetParamOr(ctx, ParamNodeEncoder, "")
		transformName = context.GetParamOr(ctx, ParamTransformName, "")
	})
	if err != nil {
		return nil, errors.WithMessage(err, "invalid gnn hyperparameters")
	}
	cfg.NodeEncoder, err = ParseEncoderType(encoderName)
	if err != nil {
		return nil, errors.WithMessagef(err, "hyperparameter %q", ParamNodeEncoder)
	}
	cfg.Transform, err = ParseTransformMode(transformName)
	if err != nil {
		return nil, errors.WithMessagef(err, "hyperparameter %q", ParamTransformName)
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration describes a buildable model.
func (cfg *Config) Validate() error {
	if cfg.NumLayers <= 0 {
		return errors.Errorf("number of layers (%q) must be positive, got %d", ParamNumLayers, cfg.NumLayers)
	}
	if cfg.HiddenDim <= 0 {
		return errors.Errorf("hidden dimension (%q) must be positive, got %d", ParamHiddenDim, cfg.HiddenDim)
	}
	if cfg.InputDim <= 0 {
		return errors.Errorf("input dimension (%q) must be positive, got %d", ParamInputDim, cfg.InputDim)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return errors.Errorf("dropout (%q) must be in [0, 1), got %g", ParamDropout, cfg.Dropout)
	}
	if !cfg.NodeEncoder.IsAEncoderType() {
		return errors.Errorf("invalid node encoder %s", cfg.NodeEncoder)
	}
	if !cfg.LayerType.IsALayerType() {
		return errors.Errorf("invalid layer type %s", cfg.LayerType)
	}
	if !cfg.Transform.IsAMode() {
		return errors.Errorf("invalid transform %s", cfg.Transform)
	}
	if cfg.NodeEncoder == EncoderUniform && cfg.InputDim != cfg.HiddenDim {
		// The uniform encoder outputs hidden-width features, but the first layer expects InputDim.
		return errors.Errorf("the %q node encoder produces %d-wide features (%q) but the first layer expects %q=%d",
			EncoderUniform, cfg.HiddenDim, ParamHiddenDim, ParamInputDim, cfg.InputDim)
	}
	return nil
}

// LayerInputDim returns the width of the node states consumed by the given layer.
//
// Layer 0 consumes InputDim, unless the atom encoder is used, since it already projects to HiddenDim.
// All following layers consume HiddenDim.
func (cfg *Config) LayerInputDim(layer int) int {
	if layer == 0 && cfg.NodeEncoder != EncoderAtom {
		return cfg.InputDim
	}
	return cfg.HiddenDim
}

// GINEmbedDim returns the intermediate width of the GIN feed-forward network.
func (cfg *Config) GINEmbedDim() int {
	if cfg.DatasetFormat == DatasetFormatOGB {
		return 2 * cfg.HiddenDim
	}
	return cfg.HiddenDim
}

// SetInContext writes the configuration back to the context as hyperparameters.
func (cfg *Config) SetInContext(ctx *context.Context) {
	ctx.SetParams(map[string]any{
		ParamNumLayers:        cfg.NumLayers,
		ParamDropout:          cfg.Dropout,
		ParamHiddenDim:        cfg.HiddenDim,
		ParamInputDim:         cfg.InputDim,
		ParamNodeEncoder:      cfg.NodeEncoder.String(),
		ParamLayerType:        cfg.LayerType.String(),
		ParamDatasetFormat:    cfg.DatasetFormat,
		ParamTransformName:    cfg.Transform.String(),
		ParamZeroVirtualNodes: cfg.ZeroVirtualNodes,
	})
}
