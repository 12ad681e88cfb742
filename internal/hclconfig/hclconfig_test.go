package hclconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/gomlx/ml/context"
	"github.com/graphrewire/gnnrewire/gnn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, contents string) string {
	path := filepath.Join(t.TempDir(), "experiment.hcl")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoadAndApply(t *testing.T) {
	path := writeFile(t, `
gnn {
  num_layers   = 4
  hidden_dim   = 64
  dropout      = 0.25
  node_encoder = "atom"
  layer_type   = "gcn"
}

dataset {
  format = "OGB"
}

transform {
  name = "CGP"
}

params = {
  rng_seed   = 42
  learning_rate = 0.001
  comment    = "baseline"
}
`)
	f, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, f.GNN)
	assert.Nil(t, f.GNN.InputDim)

	ctx := context.New()
	ctx.SetParam(gnn.ParamInputDim, 11)
	require.NoError(t, f.Apply(ctx))

	cfg, err := gnn.ConfigFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NumLayers)
	assert.Equal(t, 64, cfg.HiddenDim)
	assert.Equal(t, 11, cfg.InputDim, "attributes not in the file are left unchanged")
	assert.Equal(t, 0.25, cfg.Dropout)
	assert.Equal(t, gnn.EncoderAtom, cfg.NodeEncoder)
	assert.Equal(t, gnn.LayerGCN, cfg.LayerType)
	assert.Equal(t, gnn.DatasetFormatOGB, cfg.DatasetFormat)
	assert.Equal(t, gnn.TransformCGP, cfg.Transform)
	assert.False(t, cfg.ZeroVirtualNodes)

	assert.Equal(t, 42, context.GetParamOr(ctx, "rng_seed", 0))
	assert.Equal(t, 0.001, context.GetParamOr(ctx, "learning_rate", 0.0))
	assert.Equal(t, "baseline", context.GetParamOr(ctx, "comment", ""))
}

func TestLoadEmpty(t *testing.T) {
	f, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	ctx := context.New()
	require.NoError(t, f.Apply(ctx))
	cfg, err := gnn.ConfigFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, gnn.DefaultConfig(), cfg)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)

	_, err = Load(writeFile(t, `gnn { num_layers = `))
	require.Error(t, err, "syntax error")

	_, err = Load(writeFile(t, `gnn { num_heads = 4 }`))
	require.Error(t, err, "unknown attribute")

	_, err = Load(writeFile(t, `gnn { hidden_dim = "wide" }`))
	require.Error(t, err, "wrong type")

	_, err = Load(writeFile(t, `params = { list = [1, 2] }`))
	require.Error(t, err, "unsupported params type")
}
