package strategy

import (
	"embed"
	"fmt"
	"maps"
	"strconv"
	"strings"

	"github.com/Carmen-Shannon/oxy-clustered/engine/camera"
	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/shader"
)

//go:embed assets/*.wgsl
var assets embed.FS

// SceneGroup is the bind group index of the per-pass scene resources: camera, lights and
// cluster data.
const SceneGroup = 0

// sharedIncludes lists the WGSL snippets pulled in by //@oxy:include. Strategy-local snippets
// are read from assets by name.
func sharedIncludes() (map[string]string, error) {
	includes := map[string]string{
		"camera":   camera.GPUCameraSource,
		"light":    light.GPULightSource,
		"cluster":  light.GPUClusterSource,
		"shading":  light.GPUShadingSource,
		"model":    model.GPUModelSource,
		"material": material.GPUMaterialSource,
	}
	for _, name := range []string{"cluster_shading", "fragment_input"} {
		src, err := assets.ReadFile("assets/" + name + ".wgsl")
		if err != nil {
			return nil, err
		}
		includes[name] = string(src)
	}
	return includes, nil
}

// shaderVars returns the ${name} substitutions shared by every strategy shader.
func shaderVars(cfg Config, lightRadius float32) map[string]string {
	vars := map[string]string{
		"sceneGroup":              strconv.Itoa(SceneGroup),
		"lightsPerCluster":        strconv.FormatUint(uint64(cfg.LightsPerCluster), 10),
		"cullWorkgroupSize":       strconv.FormatUint(uint64(cfg.CullWorkgroupSize), 10),
		"moveLightsWorkgroupSize": strconv.Itoa(light.MoveLightsWorkgroupSize),
		"lightRadius":             wgslFloat(lightRadius),
		"ambientR":                wgslFloat(cfg.Ambient[0]),
		"ambientG":                wgslFloat(cfg.Ambient[1]),
		"ambientB":                wgslFloat(cfg.Ambient[2]),
		"clearR":                  wgslFloat(float32(cfg.ClearColor.R)),
		"clearG":                  wgslFloat(float32(cfg.ClearColor.G)),
		"clearB":                  wgslFloat(float32(cfg.ClearColor.B)),
	}
	maps.Copy(vars, model.ShaderVars())
	maps.Copy(vars, material.ShaderVars())
	return vars
}

// wgslFloat formats v as a WGSL float literal. Integral values keep a trailing ".0" so they are
// never parsed as integers.
func wgslFloat(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// shaderSet builds strategy shaders from assets with one shared set of includes and vars.
type shaderSet struct {
	prefix   string
	includes map[string]string
	vars     map[string]string
	validate bool
}

func newShaderSet(prefix string, cfg Config, lightRadius float32) (*shaderSet, error) {
	includes, err := sharedIncludes()
	if err != nil {
		return nil, fmt.Errorf("load includes: %w", err)
	}
	return &shaderSet{
		prefix:   prefix,
		includes: includes,
		vars:     shaderVars(cfg, lightRadius),
		validate: cfg.ValidateShaders,
	}, nil
}

// load builds the shader in assets/<name>.wgsl under the key "<prefix>/<name>".
//
// Parameters:
//   - name: the asset name without extension
//   - shaderType: the stage the shader is compiled for
//
// Returns:
//   - shader.Shader: the built shader
//   - error: an error if the asset is missing or fails to pre-process or validate
func (s *shaderSet) load(name string, shaderType shader.ShaderType) (shader.Shader, error) {
	src, err := assets.ReadFile("assets/" + name + ".wgsl")
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", name, err)
	}
	return shader.NewShader(s.key(name), shaderType, string(src),
		shader.WithIncludes(s.includes),
		shader.WithVars(s.vars),
		shader.WithValidation(s.validate),
	)
}

func (s *shaderSet) key(name string) string {
	return s.prefix + "/" + name
}
