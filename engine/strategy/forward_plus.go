package strategy

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
)

// forwardPlus culls lights into exponentially sliced clusters, lays down depth and then shades
// forward with an Equal depth test so each visible fragment is shaded once.
type forwardPlus struct {
	*base
	clusters     *clusterResources
	depth        renderTarget
	prepassGroup bind_group_provider.BindGroupProvider
	shadeGroup   bind_group_provider.BindGroupProvider
}

var _ Strategy = &forwardPlus{}

func newForwardPlus(b *base) (*forwardPlus, error) {
	if err := b.setup(); err != nil {
		return nil, err
	}
	s := &forwardPlus{base: b}
	b.cleanup = append(b.cleanup, s.depth.release)

	var err error
	if s.clusters, err = b.newClusterResources(light.SlicingExponential); err != nil {
		return nil, err
	}
	if s.prepassGroup, err = b.cameraGroup("depth_prepass", b.pipelines.prepass); err != nil {
		return nil, err
	}
	if s.shadeGroup, err = b.newGroup("forward_plus", b.pipelines.shade, nil, s.clusters.shared()...); err != nil {
		return nil, err
	}

	w, h := b.r.SurfaceSize()
	if err := s.Resize(w, h); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *forwardPlus) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}
	depth, err := s.newTarget("depth", width, height, renderer.DepthFormat)
	if err != nil {
		return err
	}
	s.depth.release()
	s.depth = depth
	return s.clusters.resize(s.r, width, height)
}

func (s *forwardPlus) Draw() error {
	if !s.stopped && s.depth.view == nil {
		return fmt.Errorf("strategy %s: %w: %w", s.mode, renderer.ErrSurfaceUnavailable, ErrNoRenderTargets)
	}
	return s.frame(func() error {
		if err := s.animate(); err != nil {
			return err
		}
		if err := s.clusters.cull(s.r, s.pipelines.cull.PipelineKey()); err != nil {
			return err
		}
		if err := s.depthPrepass(s.depth.view, s.prepassGroup); err != nil {
			return err
		}
		return s.pass(renderer.RenderPassConfig{
			Label:  "forward+ shading",
			Colors: []renderer.ColorAttachment{{Clear: true, ClearColor: s.cfg.ClearColor}},
			Depth:  s.depth.view,
		}, func() error {
			return s.drawScene(s.pipelines.shade.PipelineKey(), s.shadeGroup, true)
		})
	})
}
