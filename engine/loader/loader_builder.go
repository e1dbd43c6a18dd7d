package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithMaxTextureSize sets the longest texture edge kept after import. Larger images are
// downscaled preserving aspect ratio. 0 disables downscaling; negative values are ignored.
//
// Parameters:
//   - size: the maximum edge length in texels (default DefaultMaxTextureSize)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithMaxTextureSize(size int) LoaderBuilderOption {
	return func(l *loader) {
		if size >= 0 {
			l.maxTextureSize = size
		}
	}
}

// WithWorkers sets how many images are decoded concurrently. Values < 1 are ignored.
//
// Parameters:
//   - n: the decoder count (default one less than the CPU count)
//
// Returns:
//   - LoaderBuilderOption: a function that applies the option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		if n >= 1 {
			l.workers = n
		}
	}
}

// WithScale applies a uniform scale to the whole imported scene.
func WithScale(s float32) LoaderBuilderOption {
	return func(l *loader) {
		if s > 0 {
			l.scale = s
		}
	}
}
