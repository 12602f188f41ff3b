// Package camera provides the orbit camera used to frame and pick models.
package camera

import (
	"github.com/chewxy/math32"

	"github.com/Faultbox/kamishibai/internal/engine/picking"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	// Center point to orbit around
	Center math.Vec3

	// Spherical coordinates
	Distance float32 // Distance from center
	Pitch    float32 // Vertical angle, radians
	Yaw      float32 // Horizontal angle, radians

	// Projection
	FovY          float32 // radians
	Width, Height float32 // viewport in pixels
	Near, Far     float32

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	// Sensitivity
	DragSensitivity float32
	ZoomSensitivity float32
}

// NewOrbitCamera creates an orbit camera for a width x height viewport.
func NewOrbitCamera(width, height float32) *OrbitCamera {
	return &OrbitCamera{
		Distance:        10,
		FovY:            math32.Pi / 4,
		Width:           width,
		Height:          height,
		Near:            0.1,
		Far:             1000,
		MinDistance:     0.1,
		MaxDistance:     5000,
		MinPitch:        -1.5,
		MaxPitch:        1.5,
		DragSensitivity: 0.005,
		ZoomSensitivity: 0.1,
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	cp := math32.Cos(c.Pitch)
	return c.Center.Add(math.Vec3{
		X: c.Distance * cp * math32.Sin(c.Yaw),
		Y: c.Distance * math32.Sin(c.Pitch),
		Z: c.Distance * cp * math32.Cos(c.Yaw),
	})
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{Y: 1})
}

// ProjectionMatrix returns the perspective projection for the viewport.
func (c *OrbitCamera) ProjectionMatrix() math.Mat4 {
	return math.Perspective(c.FovY, c.Width/c.Height, c.Near, c.Far)
}

// ScreenRay returns the view-space ray through pixel (x, y) together with the
// inverse view matrix that takes it to world space.
func (c *OrbitCamera) ScreenRay(x, y float32) (ray picking.Ray, invView math.Mat4) {
	return picking.ViewRay(x, y, c.Width, c.Height, c.ProjectionMatrix()), c.ViewMatrix().Inverse()
}

// HandleDrag updates rotation based on mouse drag delta.
func (c *OrbitCamera) HandleDrag(deltaX, deltaY float32) {
	c.Yaw -= deltaX * c.DragSensitivity
	c.Pitch = clamp(c.Pitch+deltaY*c.DragSensitivity, c.MinPitch, c.MaxPitch)
}

// HandleZoom updates distance based on scroll wheel delta.
func (c *OrbitCamera) HandleZoom(delta float32) {
	c.Distance = clamp(c.Distance-delta*c.Distance*c.ZoomSensitivity, c.MinDistance, c.MaxDistance)
}

// FitToBounds centers the camera on a bounding box, looking down -Z from three
// times its largest extent.
func (c *OrbitCamera) FitToBounds(b picking.BoundingBox) {
	c.Center = math.V3(b.Center)

	radius := math32.Max(b.Extents[0], math32.Max(b.Extents[1], b.Extents[2]))
	if radius <= 0 {
		radius = 1
	}
	c.Distance = radius * 3
	c.Far = max(c.Far, c.Distance*4)
	c.Pitch = 0
	c.Yaw = 0
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(v, hi))
}
