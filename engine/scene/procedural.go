package scene

import (
	"math"
	"math/rand/v2"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/model"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
)

type proceduralConfig struct {
	columns    int
	rows       int
	spacing    float32
	floorWidth float32
	floorDepth float32
	workers    int
	seed       uint64
}

// ProceduralSceneOption configures NewProceduralScene.
type ProceduralSceneOption func(c *proceduralConfig)

// WithGrid sets the number of pillar columns along X and rows along Z.
//
// Parameters:
//   - columns: pillars along X (minimum 1)
//   - rows: pillars along Z (minimum 1)
//
// Returns:
//   - ProceduralSceneOption: option function to apply
func WithGrid(columns, rows int) ProceduralSceneOption {
	return func(c *proceduralConfig) {
		c.columns = max(columns, 1)
		c.rows = max(rows, 1)
	}
}

// WithSpacing sets the distance between neighbouring pillar centres.
func WithSpacing(spacing float32) ProceduralSceneOption {
	return func(c *proceduralConfig) {
		c.spacing = spacing
	}
}

// WithFloor sets the floor plane extent.
//
// Parameters:
//   - width: the extent along X
//   - depth: the extent along Z
//
// Returns:
//   - ProceduralSceneOption: option function to apply
func WithFloor(width, depth float32) ProceduralSceneOption {
	return func(c *proceduralConfig) {
		c.floorWidth = width
		c.floorDepth = depth
	}
}

// WithWorkers sets how many goroutines generate meshes. Defaults to runtime.NumCPU()-1.
func WithWorkers(n int) ProceduralSceneOption {
	return func(c *proceduralConfig) {
		c.workers = max(n, 1)
	}
}

// WithSeed sets the seed of the pillar size and orientation variation.
func WithSeed(seed uint64) ProceduralSceneOption {
	return func(c *proceduralConfig) {
		c.seed = seed
	}
}

// pillar is the placement of one generated cube.
type pillar struct {
	size   float32
	height float32
	yaw    float32
	x, z   float32
	mat    int
}

// NewProceduralScene builds the stand-in scene the renderers are exercised with: a tiled floor
// plane and a grid of cube pillars of varied size, height and orientation spread over several
// materials. Pillar meshes are generated in parallel on a worker pool.
//
// Parameters:
//   - options: variadic list of ProceduralSceneOption functions
//
// Returns:
//   - Scene: the generated scene, not yet uploaded
func NewProceduralScene(options ...ProceduralSceneOption) Scene {
	cfg := proceduralConfig{
		columns:    8,
		rows:       4,
		spacing:    2.4,
		floorWidth: 24,
		floorDepth: 14,
		workers:    max(runtime.NumCPU()-1, 1),
		seed:       7,
	}
	for _, opt := range options {
		opt(&cfg)
	}

	materials := proceduralMaterials()
	rng := rand.New(rand.NewPCG(cfg.seed, cfg.seed^0x5851f42d4c957f2d))

	pillars := make([]pillar, 0, cfg.columns*cfg.rows)
	for r := range cfg.rows {
		for c := range cfg.columns {
			pillars = append(pillars, pillar{
				size:   0.6 + 0.8*rng.Float32(),
				height: 1 + 3*rng.Float32(),
				yaw:    rng.Float32() * math.Pi / 2,
				x:      (float32(c) - float32(cfg.columns-1)/2) * cfg.spacing,
				z:      (float32(r) - float32(cfg.rows-1)/2) * cfg.spacing,
				mat:    1 + (r*cfg.columns+c)%(len(materials)-1),
			})
		}
	}

	primitives := make([]model.Primitive, len(pillars))
	pool := worker.NewDynamicWorkerPool(cfg.workers, len(pillars)+1, 1*time.Second)
	var wg sync.WaitGroup
	for i, p := range pillars {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				primitives[i] = model.NewPrimitive(model.NewCube(p.size), model.WithName("pillar_"+strconv.Itoa(i)))
				return nil, nil
			},
		})
	}
	floor := model.NewPrimitive(model.NewPlane(cfg.floorWidth, cfg.floorDepth, 24, 2), model.WithName("floor"))
	wg.Wait()
	pool.Stop()

	s := NewScene("procedural", WithNodes(NewNode("floor", WithBatch(materials[0], floor))))
	for i, p := range pillars {
		s.AddNode(NewNode("pillar_"+strconv.Itoa(i),
			WithPosition(p.x, p.size*p.height/2, p.z),
			WithRotation(0, p.yaw, 0),
			WithScale(1, p.height, 1),
			WithBatch(materials[p.mat], primitives[i]),
		))
	}

	common.Logger().Debug("procedural scene generated",
		"pillars", len(pillars),
		"materials", len(materials),
		"workers", cfg.workers,
	)
	return s
}

// proceduralMaterials returns the floor material followed by the pillar materials.
func proceduralMaterials() []material.Material {
	return []material.Material{
		material.NewMaterial(
			material.WithName("floor"),
			material.WithAlbedo(common.CheckerTexture(64, 8, [4]uint8{200, 200, 200, 255}, [4]uint8{120, 120, 120, 255})),
			material.WithSpecular(0.2, 16),
		),
		material.NewMaterial(
			material.WithName("ivory"),
			material.WithBaseColor([4]float32{0.93, 0.9, 0.82, 1}),
			material.WithSpecular(0.6, 48),
		),
		material.NewMaterial(
			material.WithName("terracotta"),
			material.WithBaseColor([4]float32{0.8, 0.42, 0.3, 1}),
			material.WithSpecular(0.25, 12),
		),
		material.NewMaterial(
			material.WithName("slate"),
			material.WithBaseColor([4]float32{0.42, 0.5, 0.62, 1}),
			material.WithSpecular(0.8, 96),
		),
		material.NewMaterial(
			material.WithName("brick"),
			material.WithAlbedo(common.CheckerTexture(32, 4, [4]uint8{170, 80, 60, 255}, [4]uint8{140, 60, 45, 255})),
			material.WithSpecular(0.1, 8),
		),
	}
}
