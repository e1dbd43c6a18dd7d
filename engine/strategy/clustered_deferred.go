package strategy

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-clustered/engine/light"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
)

// clusteredDeferred culls lights into linearly sliced clusters, writes surface attributes to a
// G-buffer and shades each pixel once in a full-screen pass.
type clusteredDeferred struct {
	*base
	clusters      *clusterResources
	gbuffer       *gBuffer
	prepassGroup  bind_group_provider.BindGroupProvider
	geometryGroup bind_group_provider.BindGroupProvider

	// shadeGroup binds the G-buffer views, so it is rebuilt with them on resize.
	shadeGroup bind_group_provider.BindGroupProvider
}

var _ Strategy = &clusteredDeferred{}

func newClusteredDeferred(b *base) (*clusteredDeferred, error) {
	if err := b.setup(); err != nil {
		return nil, err
	}
	s := &clusteredDeferred{base: b}
	b.cleanup = append(b.cleanup, s.releaseTargets)

	var err error
	if s.clusters, err = b.newClusterResources(light.SlicingLinear); err != nil {
		return nil, err
	}
	if s.prepassGroup, err = b.cameraGroup("depth_prepass", b.pipelines.prepass); err != nil {
		return nil, err
	}
	if s.geometryGroup, err = b.cameraGroup("gbuffer", b.pipelines.geometry); err != nil {
		return nil, err
	}

	w, h := b.r.SurfaceSize()
	if err := s.Resize(w, h); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *clusteredDeferred) releaseTargets() {
	if s.shadeGroup != nil {
		s.shadeGroup.Release()
		s.shadeGroup = nil
	}
	if s.gbuffer != nil {
		s.gbuffer.release()
		s.gbuffer = nil
	}
}

// Resize rebuilds the G-buffer and the shading bind group at the new size. The previous targets
// stay in use until both replacements exist.
func (s *clusteredDeferred) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return nil
	}

	g, err := s.newGBuffer(width, height)
	if err != nil {
		return err
	}
	opts := append(s.clusters.shared(), g.shared()...)
	group, err := s.initGroup("deferred", s.pipelines.shade, SceneGroup, nil, opts...)
	if err != nil {
		g.release()
		return err
	}

	s.releaseTargets()
	s.gbuffer, s.shadeGroup = g, group
	return s.clusters.resize(s.r, width, height)
}

func (s *clusteredDeferred) Draw() error {
	if !s.stopped && (s.gbuffer == nil || s.shadeGroup == nil) {
		return fmt.Errorf("strategy %s: %w: %w", s.mode, renderer.ErrSurfaceUnavailable, ErrNoRenderTargets)
	}
	return s.frame(func() error {
		if err := s.animate(); err != nil {
			return err
		}
		if err := s.clusters.cull(s.r, s.pipelines.cull.PipelineKey()); err != nil {
			return err
		}
		if err := s.depthPrepass(s.gbuffer.depth.view, s.prepassGroup); err != nil {
			return err
		}
		if err := s.pass(renderer.RenderPassConfig{
			Label:  "gbuffer",
			Colors: s.gbuffer.attachments(),
			Depth:  s.gbuffer.depth.view,
		}, func() error {
			return s.drawScene(s.pipelines.geometry.PipelineKey(), s.geometryGroup, true)
		}); err != nil {
			return err
		}
		return s.pass(renderer.RenderPassConfig{
			Label:  "deferred shading",
			Colors: []renderer.ColorAttachment{{Clear: true, ClearColor: s.cfg.ClearColor}},
		}, func() error {
			return s.r.DrawFullscreen(s.pipelines.shade.PipelineKey(),
				[]bind_group_provider.BindGroupProvider{s.shadeGroup},
			)
		})
	})
}
