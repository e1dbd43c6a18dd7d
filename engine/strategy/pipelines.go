package strategy

import (
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// gBufferFormats are the G-buffer color targets in location order: albedo, world normal,
// world position, specular strength and normalized shininess.
var gBufferFormats = []wgpu.TextureFormat{
	wgpu.TextureFormatRGBA8Unorm,
	wgpu.TextureFormatRGBA16Float,
	wgpu.TextureFormatRGBA16Float,
	wgpu.TextureFormatRGBA8Unorm,
}

// pipelineSet is the set of pipelines one strategy registers. Unused stages are nil.
type pipelineSet struct {
	animate  pipeline.Pipeline
	cull     pipeline.Pipeline
	prepass  pipeline.Pipeline
	geometry pipeline.Pipeline
	shade    pipeline.Pipeline
}

func (ps pipelineSet) all() []pipeline.Pipeline {
	out := make([]pipeline.Pipeline, 0, 5)
	for _, p := range []pipeline.Pipeline{ps.animate, ps.cull, ps.prepass, ps.geometry, ps.shade} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (ps pipelineSet) keys() []string {
	all := ps.all()
	keys := make([]string, len(all))
	for i, p := range all {
		keys[i] = p.PipelineKey()
	}
	return keys
}

// buildPipelines builds, without registering, every pipeline the mode draws with.
//
// Parameters:
//   - mode: the render path
//   - shaders: the shader set keyed by the strategy instance
//   - animate: whether to include the light animation pass
//
// Returns:
//   - pipelineSet: the built pipelines
//   - error: an error if any shader fails to build
func buildPipelines(mode Mode, shaders *shaderSet, animate bool) (pipelineSet, error) {
	var ps pipelineSet

	if animate {
		move, err := shaders.load("move_lights", shader.ShaderTypeCompute)
		if err != nil {
			return ps, err
		}
		ps.animate = pipeline.NewPipeline(shaders.key("move_lights"), pipeline.PipelineTypeCompute,
			pipeline.WithComputeShader(move),
		)
	}

	sceneVS, err := shaders.load("scene_vs", shader.ShaderTypeVertex)
	if err != nil {
		return ps, err
	}

	if mode == ModeNaive {
		fs, err := shaders.load("naive", shader.ShaderTypeFragment)
		if err != nil {
			return ps, err
		}
		ps.shade = pipeline.NewPipeline(shaders.key("naive"), pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(sceneVS),
			pipeline.WithFragmentShader(fs),
		)
		return ps, nil
	}

	cull, err := shaders.load("cluster_cull", shader.ShaderTypeCompute)
	if err != nil {
		return ps, err
	}
	ps.cull = pipeline.NewPipeline(shaders.key("cluster_cull"), pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cull),
	)
	ps.prepass = pipeline.NewPipeline(shaders.key("depth_prepass"), pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(sceneVS),
		pipeline.WithColorFormats(),
	)

	switch mode {
	case ModeForwardPlus:
		fs, err := shaders.load("forward_plus", shader.ShaderTypeFragment)
		if err != nil {
			return ps, err
		}
		ps.shade = pipeline.NewPipeline(shaders.key("forward_plus"), pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(sceneVS),
			pipeline.WithFragmentShader(fs),
			pipeline.WithDepthCompare(wgpu.CompareFunctionEqual),
			pipeline.WithDepthWriteEnabled(false),
		)
	case ModeClusteredDeferred:
		gbuffer, err := shaders.load("gbuffer", shader.ShaderTypeFragment)
		if err != nil {
			return ps, err
		}
		ps.geometry = pipeline.NewPipeline(shaders.key("gbuffer"), pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(sceneVS),
			pipeline.WithFragmentShader(gbuffer),
			pipeline.WithColorFormats(gBufferFormats...),
			pipeline.WithDepthCompare(wgpu.CompareFunctionEqual),
			pipeline.WithDepthWriteEnabled(false),
		)

		fullscreen, err := shaders.load("fullscreen_vs", shader.ShaderTypeVertex)
		if err != nil {
			return ps, err
		}
		deferred, err := shaders.load("deferred", shader.ShaderTypeFragment)
		if err != nil {
			return ps, err
		}
		ps.shade = pipeline.NewPipeline(shaders.key("deferred"), pipeline.PipelineTypeRender,
			pipeline.WithVertexShader(fullscreen),
			pipeline.WithFragmentShader(deferred),
			pipeline.WithDepthTestEnabled(false),
			pipeline.WithDepthWriteEnabled(false),
			pipeline.WithCullMode(wgpu.CullModeNone),
		)
	}
	return ps, nil
}
