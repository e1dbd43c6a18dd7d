package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-clustered/common"
	"github.com/Carmen-Shannon/oxy-clustered/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

// cameraCount is an atomic counter used to generate unique bind group provider names for each camera instance.
var cameraCount atomic.Uint64

type cameraImpl struct {
	mu *sync.Mutex

	up [3]float32

	fov    float32
	near   float32
	far    float32
	width  int
	height int

	viewMatrix              mgl32.Mat4
	projectionMatrix        mgl32.Mat4
	viewProjectionMatrix    mgl32.Mat4
	inverseProjectionMatrix mgl32.Mat4
	position                [3]float32

	controller        CameraController
	bindGroupProvider bind_group_provider.BindGroupProvider
}

// Camera defines the interface for the camera system.
// The camera holds perspective settings and the render target resolution, and computes
// view/projection matrices from an attached CameraController each frame via Update().
// The resulting GPUCameraUniform is shared by every pass of every render strategy.
type Camera interface {
	// Up returns the camera's up vector.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// Fov returns the vertical field of view in radians.
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	Aspect() float32

	// Near returns the near clipping plane distance.
	Near() float32

	// Far returns the far clipping plane distance.
	Far() float32

	// Resolution returns the render target size in pixels.
	//
	// Returns:
	//   - int: the width
	//   - int: the height
	Resolution() (int, int)

	// Position returns the world-space eye position used by the last Update.
	Position() [3]float32

	// View returns the view matrix.
	//
	// Returns:
	//   - mgl32.Mat4: the column-major view matrix
	View() mgl32.Mat4

	// Projection returns the projection matrix mapping view depth [near, far] to clip depth [0, 1].
	//
	// Returns:
	//   - mgl32.Mat4: the column-major projection matrix
	Projection() mgl32.Mat4

	// ViewProjection returns Projection() * View().
	ViewProjection() mgl32.Mat4

	// InverseProjection returns the inverse of Projection().
	InverseProjection() mgl32.Mat4

	// GPU returns the uniform block uploaded to the camera buffer.
	//
	// Returns:
	//   - GPUCameraUniform: the current camera uniform
	GPU() GPUCameraUniform

	// PendingWrites returns the write that uploads the current uniform to binding 0 of the
	// camera's BindGroupProvider, or nil when the provider holds no buffer.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the staged writes
	PendingWrites() []bind_group_provider.BufferWrite

	// Controller returns the attached camera controller.
	Controller() CameraController

	// BindGroupProvider returns the provider holding the camera uniform buffer.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Update recomputes all matrices from the controller's position and target.
	Update()

	SetUp(x, y, z float32)
	SetFov(fov float32)
	SetNear(near float32)
	SetFar(far float32)

	// SetResolution sets the render target size and derives the aspect ratio from it.
	//
	// Parameters:
	//   - width: the width in pixels
	//   - height: the height in pixels
	SetResolution(width, height int)

	SetController(ctrl CameraController)
	SetBindGroupProvider(provider bind_group_provider.BindGroupProvider)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with the given options.
// Defaults: 45 degree vertical field of view, near 0.1, far 100, 1280x720, up +Y.
//
// Parameters:
//   - options: a variadic list of CameraBuilderOption functions
//
// Returns:
//   - Camera: the created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		up:     [3]float32{0, 1, 0},
		fov:    45.0 * (math.Pi / 180.0), // radians
		near:   0.1,
		far:    100.0,
		width:  1280,
		height: 720,
		bindGroupProvider: bind_group_provider.NewBindGroupProvider(
			"camera_" + strconv.FormatUint(cameraCount.Load(), 10),
		),
	}
	c.viewMatrix = mgl32.Ident4()
	for _, option := range options {
		option(c)
	}
	c.updateMatrices()
	cameraCount.Add(1)
	return c
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect()
}

func (c *cameraImpl) aspect() float32 {
	if c.height <= 0 {
		return 1
	}
	return float32(c.width) / float32(c.height)
}

func (c *cameraImpl) Near() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.near
}

func (c *cameraImpl) Far() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.far
}

func (c *cameraImpl) Resolution() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) Position() [3]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *cameraImpl) View() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) Projection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) InverseProjection() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inverseProjectionMatrix
}

func (c *cameraImpl) GPU() GPUCameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gpu()
}

func (c *cameraImpl) gpu() GPUCameraUniform {
	return GPUCameraUniform{
		ViewProj:   c.viewProjectionMatrix,
		View:       c.viewMatrix,
		Proj:       c.projectionMatrix,
		InvProj:    c.inverseProjectionMatrix,
		Position:   c.position,
		Near:       c.near,
		Resolution: [2]float32{float32(c.width), float32(c.height)},
		Far:        c.far,
	}
}

func (c *cameraImpl) PendingWrites() []bind_group_provider.BufferWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bindGroupProvider == nil || c.bindGroupProvider.Buffer(0) == nil {
		return nil
	}
	u := c.gpu()
	return []bind_group_provider.BufferWrite{{
		Provider: c.bindGroupProvider,
		Binding:  0,
		Data:     u.Marshal(),
	}}
}

func (c *cameraImpl) SetUp(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.up = [3]float32{x, y, z}
	c.updateMatrices()
}

func (c *cameraImpl) SetFov(fov float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fov = fov
	c.updateMatrices()
}

func (c *cameraImpl) SetNear(near float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.near = near
	c.updateMatrices()
}

func (c *cameraImpl) SetFar(far float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.far = far
	c.updateMatrices()
}

func (c *cameraImpl) SetResolution(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	c.updateMatrices()
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetController(ctrl CameraController) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.controller = ctrl
	c.updateMatrices()
}

func (c *cameraImpl) BindGroupProvider() bind_group_provider.BindGroupProvider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bindGroupProvider
}

func (c *cameraImpl) SetBindGroupProvider(provider bind_group_provider.BindGroupProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindGroupProvider = provider
}

// updateMatrices recomputes the matrices. Without a controller the view stays as it is.
func (c *cameraImpl) updateMatrices() {
	if c.controller != nil {
		px, py, pz := c.controller.Position()
		tx, ty, tz := c.controller.Target()
		c.position = [3]float32{px, py, pz}

		c.viewMatrix = mgl32.LookAtV(
			mgl32.Vec3{px, py, pz},
			mgl32.Vec3{tx, ty, tz},
			mgl32.Vec3(c.up),
		)
	}

	c.projectionMatrix = common.Perspective(c.fov, c.aspect(), c.near, c.far)
	c.viewProjectionMatrix = c.projectionMatrix.Mul4(c.viewMatrix)
	c.inverseProjectionMatrix = c.projectionMatrix.Inv()
}
