// Package common holds plain data types and math helpers shared across the engine packages.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// TextureStagingData holds RGBA8 pixel data for a texture binding pending GPU upload.
type TextureStagingData struct {
	// Pixels is tightly packed RGBA, 4 bytes per pixel, row-major from the top-left texel.
	Pixels []byte
	Width  uint32
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
// Zero-valued fields fall back to repeat addressing and linear filtering.
type SamplerStagingData struct {
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	MagFilter, MinFilter                     wgpu.FilterMode
	MipmapFilter                             wgpu.MipmapFilterMode
	LodMinClamp, LodMaxClamp                 float32
	Compare                                  wgpu.CompareFunction
	MaxAnisotropy                            uint16
}

// SolidTexture builds a 1x1 texture of a single RGBA8 color.
//
// Parameters:
//   - r, g, b, a: the texel color
//
// Returns:
//   - TextureStagingData: the staged texture
func SolidTexture(r, g, b, a uint8) TextureStagingData {
	return TextureStagingData{
		Pixels: []byte{r, g, b, a},
		Width:  1,
		Height: 1,
	}
}

// CheckerTexture builds a size x size checkerboard alternating between two RGBA8 colors
// with cells of cell x cell texels.
//
// Parameters:
//   - size: the texture edge length in texels
//   - cell: the checker cell edge length in texels (values below 1 are treated as 1)
//   - a, b: the two alternating colors
//
// Returns:
//   - TextureStagingData: the staged texture
func CheckerTexture(size, cell uint32, a, b [4]uint8) TextureStagingData {
	cell = max(cell, 1)
	pixels := make([]byte, 0, size*size*4)
	for y := range size {
		for x := range size {
			c := a
			if ((x/cell)+(y/cell))%2 == 1 {
				c = b
			}
			pixels = append(pixels, c[0], c[1], c[2], c[3])
		}
	}
	return TextureStagingData{Pixels: pixels, Width: size, Height: size}
}
