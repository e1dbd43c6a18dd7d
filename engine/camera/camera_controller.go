package camera

// CameraController defines an orbit controller that places the camera on a sphere around a
// target point. The camera reads Position and Target on every Update.
type CameraController interface {
	// Position returns the current world-space eye position.
	//
	// Returns:
	//   - x, y, z: eye position components
	Position() (x, y, z float32)

	// Target returns the point the camera orbits and looks at.
	//
	// Returns:
	//   - x, y, z: target position components
	Target() (x, y, z float32)

	// SetTarget moves the orbit pivot, keeping radius and angles.
	//
	// Parameters:
	//   - x, y, z: the new target position
	SetTarget(x, y, z float32)

	// Radius returns the distance from the target to the eye.
	Radius() float32

	// SetRadius sets the orbit distance, clamped to the radius limits.
	//
	// Parameters:
	//   - radius: the new distance from the target
	SetRadius(radius float32)

	// Azimuth returns the horizontal angle around +Y in radians. Zero places the eye on +Z.
	Azimuth() float32

	// Elevation returns the vertical angle above the horizontal plane in radians.
	Elevation() float32

	// Orbit rotates the eye around the target. Elevation is clamped to the elevation limits.
	//
	// Parameters:
	//   - dAzimuth: the change in azimuth in radians
	//   - dElevation: the change in elevation in radians
	Orbit(dAzimuth, dElevation float32)

	// Zoom moves the eye towards the target by delta scaled by the zoom speed.
	//
	// Parameters:
	//   - delta: positive values move closer
	Zoom(delta float32)

	// Pan translates target and eye together in the camera's horizontal right and world up directions.
	//
	// Parameters:
	//   - right: the distance along the camera right vector, scaled by the pan speed
	//   - up: the distance along world +Y, scaled by the pan speed
	Pan(right, up float32)
}
