package strategy

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
)

// naive shades every fragment against every light in one forward pass with its own depth target.
type naive struct {
	*base
	depth      renderTarget
	shadeGroup bind_group_provider.BindGroupProvider
}

var _ Strategy = &naive{}

func newNaive(b *base) (*naive, error) {
	if err := b.setup(); err != nil {
		return nil, err
	}
	s := &naive{base: b}
	b.cleanup = append(b.cleanup, s.depth.release)

	var err error
	s.shadeGroup, err = b.newGroup("naive", b.pipelines.shade, nil,
		bind_group_provider.WithSharedBuffer(bindingCamera, b.cameraBuffer()),
		bind_group_provider.WithSharedBuffer(bindingLights, b.lightBuffer()),
	)
	if err != nil {
		return nil, err
	}

	w, h := b.r.SurfaceSize()
	if err := s.Resize(w, h); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *naive) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	depth, err := s.newTarget("depth", width, height, renderer.DepthFormat)
	if err != nil {
		return err
	}
	s.depth.release()
	s.depth = depth
	return nil
}

func (s *naive) Draw() error {
	if !s.stopped && s.depth.view == nil {
		return fmt.Errorf("strategy %s: %w: %w", s.mode, renderer.ErrSurfaceUnavailable, ErrNoRenderTargets)
	}
	return s.frame(func() error {
		if err := s.animate(); err != nil {
			return err
		}
		return s.pass(renderer.RenderPassConfig{
			Label:      "naive shading",
			Colors:     []renderer.ColorAttachment{{Clear: true, ClearColor: s.cfg.ClearColor}},
			Depth:      s.depth.view,
			ClearDepth: true,
		}, func() error {
			return s.drawScene(s.pipelines.shade.PipelineKey(), s.shadeGroup, true)
		})
	})
}
