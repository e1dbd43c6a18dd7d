package loader

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/material"
	"github.com/cogentcore/webgpu/wgpu"
	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Blinn-Phong exponent range that glTF roughness 1..0 maps onto.
const (
	minShininess float32 = 4
	maxShininess float32 = 256
)

// gltfMaterialExtractor converts glTF materials into engine materials. Base color textures are
// decoded once per image, in parallel.
type gltfMaterialExtractor interface {
	// ExtractMaterials returns one material per glTF material, in document order.
	//
	// Parameters:
	//   - maxTextureSize: longest allowed texture edge; larger images are downscaled (0 = no limit)
	//   - workers: number of concurrent image decoders
	//
	// Returns:
	//   - []material.Material: the converted materials
	//   - error: error if a material references a missing texture or image
	ExtractMaterials(maxTextureSize, workers int) ([]material.Material, error)
}

type gltfMaterialExtractorImpl struct {
	parser gltfParser
}

var _ gltfMaterialExtractor = &gltfMaterialExtractorImpl{}

func newGLTFMaterialExtractor(parser gltfParser) gltfMaterialExtractor {
	return &gltfMaterialExtractorImpl{parser: parser}
}

func (e *gltfMaterialExtractorImpl) ExtractMaterials(maxTextureSize, workers int) ([]material.Material, error) {
	doc := e.parser.Document()
	if doc == nil {
		return nil, fmt.Errorf("no document parsed")
	}

	// Collect the images referenced as base color so each is decoded once.
	images := make(map[int]struct{})
	for i := range doc.Materials {
		src, _, err := e.baseColorSource(i)
		if err != nil {
			return nil, err
		}
		if src >= 0 {
			images[src] = struct{}{}
		}
	}
	albedos := e.decodeImages(images, maxTextureSize, workers)

	out := make([]material.Material, len(doc.Materials))
	for i := range doc.Materials {
		gm := &doc.Materials[i]
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}

		opts := []material.MaterialBuilderOption{material.WithName(name)}
		roughness := float32(1)
		if pbr := gm.PbrMetallicRoughness; pbr != nil {
			if pbr.BaseColorFactor != nil {
				opts = append(opts, material.WithBaseColor(*pbr.BaseColorFactor))
			}
			if pbr.RoughnessFactor != nil {
				roughness = *pbr.RoughnessFactor
			}
		}
		opts = append(opts, material.WithSpecular(specularFromRoughness(roughness)))

		src, sampler, _ := e.baseColorSource(i)
		if tex, ok := albedos[src]; ok {
			opts = append(opts, material.WithAlbedo(tex))
		}
		if sampler != nil {
			opts = append(opts, material.WithSampler(gltfSamplerToStagingData(sampler)))
		}
		out[i] = material.NewMaterial(opts...)
	}
	return out, nil
}

// baseColorSource returns the image index (-1 for none) and sampler of a material's base color
// texture.
func (e *gltfMaterialExtractorImpl) baseColorSource(materialIndex int) (int, *gltfSampler, error) {
	doc := e.parser.Document()
	pbr := doc.Materials[materialIndex].PbrMetallicRoughness
	if pbr == nil || pbr.BaseColorTexture == nil {
		return -1, nil, nil
	}
	ti := pbr.BaseColorTexture.Index
	if ti < 0 || ti >= len(doc.Textures) {
		return -1, nil, fmt.Errorf("material %d texture %d: %w", materialIndex, ti, errOutOfRange)
	}
	tex := &doc.Textures[ti]
	var sampler *gltfSampler
	if tex.Sampler != nil {
		if *tex.Sampler < 0 || *tex.Sampler >= len(doc.Samplers) {
			return -1, nil, fmt.Errorf("texture %d sampler %d: %w", ti, *tex.Sampler, errOutOfRange)
		}
		sampler = &doc.Samplers[*tex.Sampler]
	}
	if tex.Source == nil {
		return -1, sampler, nil
	}
	if *tex.Source < 0 || *tex.Source >= len(doc.Images) {
		return -1, nil, fmt.Errorf("texture %d image %d: %w", ti, *tex.Source, errOutOfRange)
	}
	return *tex.Source, sampler, nil
}

// decodeImages decodes the given images on a worker pool. Images that fail to load are logged
// and left out, so their materials keep the default white albedo.
func (e *gltfMaterialExtractorImpl) decodeImages(images map[int]struct{}, maxTextureSize, workers int) map[int]common.TextureStagingData {
	out := make(map[int]common.TextureStagingData, len(images))
	if len(images) == 0 {
		return out
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	pool := worker.NewDynamicWorkerPool(workers, len(images), 1*time.Second)
	for index := range images {
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: index,
			Do: func() (any, error) {
				defer wg.Done()
				start := time.Now()
				tex, err := e.decodeImage(index, maxTextureSize)
				if err != nil {
					common.Logger().Warn("texture decode failed, using white", "image", index, "error", err)
					return nil, err
				}
				common.Logger().Debug("texture decoded",
					"image", index,
					"width", tex.Width,
					"height", tex.Height,
					"elapsed", time.Since(start),
				)
				mu.Lock()
				out[index] = tex
				mu.Unlock()
				return nil, nil
			},
		})
	}
	wg.Wait()
	pool.Stop()
	return out
}

func (e *gltfMaterialExtractorImpl) decodeImage(index, maxTextureSize int) (common.TextureStagingData, error) {
	data, err := e.parser.ImageBytes(index)
	if err != nil {
		return common.TextureStagingData{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return common.TextureStagingData{}, fmt.Errorf("decode image %d: %w", index, err)
	}
	rgba := toRGBA(img, maxTextureSize)
	common.Logger().Debug("image format", "image", index, "format", format)
	return common.TextureStagingData{
		Pixels: rgba.Pix,
		Width:  uint32(rgba.Rect.Dx()),
		Height: uint32(rgba.Rect.Dy()),
	}, nil
}

// toRGBA converts img to tightly packed RGBA, scaling it down with Catmull-Rom filtering so that
// neither edge exceeds maxSize.
func toRGBA(img image.Image, maxSize int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		scale := float64(maxSize) / float64(max(w, h))
		w = max(int(math.Round(float64(w)*scale)), 1)
		h = max(int(math.Round(float64(h)*scale)), 1)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
		return dst
	}
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// specularFromRoughness maps glTF roughness onto Blinn-Phong strength and exponent.
func specularFromRoughness(roughness float32) (strength, shininess float32) {
	r := min(max(roughness, 0), 1)
	smooth := 1 - r
	strength = 0.1 + 0.9*smooth*smooth
	shininess = minShininess + (maxShininess-minShininess)*smooth*smooth
	return strength, shininess
}

// gltfSamplerToStagingData converts a glTF sampler. Unset fields keep the glTF defaults of linear
// filtering and repeat wrapping.
// Reference: https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#reference-sampler
func gltfSamplerToStagingData(s *gltfSampler) common.SamplerStagingData {
	out := common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if s.MagFilter != nil && *s.MagFilter == gltfFilterNearest {
		out.MagFilter = wgpu.FilterModeNearest
	}
	if s.MinFilter != nil {
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterNearestMipmapNearest, gltfFilterNearestMipmapLinear:
			out.MinFilter = wgpu.FilterModeNearest
		}
		switch *s.MinFilter {
		case gltfFilterNearest, gltfFilterLinear, gltfFilterNearestMipmapNearest, gltfFilterLinearMipmapNearest:
			out.MipmapFilter = wgpu.MipmapFilterModeNearest
		}
	}
	if s.WrapS != nil {
		out.AddressModeU = wrapToAddressMode(*s.WrapS)
	}
	if s.WrapT != nil {
		out.AddressModeV = wrapToAddressMode(*s.WrapT)
	}
	return out
}

func wrapToAddressMode(wrap int) wgpu.AddressMode {
	switch wrap {
	case gltfWrapClampToEdge:
		return wgpu.AddressModeClampToEdge
	case gltfWrapMirroredRepeat:
		return wgpu.AddressModeMirrorRepeat
	default:
		return wgpu.AddressModeRepeat
	}
}
