package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Faultbox/kamishibai/internal/engine/camera"
	"github.com/Faultbox/kamishibai/internal/engine/model"
	"github.com/Faultbox/kamishibai/pkg/math"
)

// pickResult is what a screen ray found on a model.
type pickResult struct {
	Hit    bool
	Points [][3]float32
}

// pick casts a ray through screen pixel (x, y) at a model placed at world.
func pick(m *model.Model, cam *camera.OrbitCamera, world math.Mat4, x, y float32) pickResult {
	ray, invView := cam.ScreenRay(x, y)

	res := pickResult{Hit: m.IntersectedBy(ray, world, invView)}
	if res.Hit {
		modelRay := ray.Transform(world.Inverse().Mul(invView))
		res.Points = m.Intersections(modelRay, nil)
	}
	return res
}

// pickView places the model in the world and the camera around it.
type pickView struct {
	Width, Height float32
	Yaw, Pitch    float32 // radians
	DragX, DragY  float32 // mouse drag in pixels, applied after Yaw and Pitch
	Zoom          float32 // wheel steps, positive moves closer
	Offset        math.Vec3
	Turn          float32 // model rotation around Y, radians
}

func (v pickView) world() math.Mat4 {
	return math.Translate(v.Offset.X, v.Offset.Y, v.Offset.Z).Mul(math.RotateY(v.Turn))
}

// camera frames the placed model, then applies the orbit controls.
func (v pickView) camera(m *model.Model, world math.Mat4) *camera.OrbitCamera {
	cam := camera.NewOrbitCamera(v.Width, v.Height)
	cam.FitToBounds(m.Bounds)
	cam.Center = math.V3(world.TransformPoint(m.Bounds.Center))
	cam.Yaw = v.Yaw
	cam.Pitch = v.Pitch
	if v.DragX != 0 || v.DragY != 0 {
		cam.HandleDrag(v.DragX, v.DragY)
	}
	if v.Zoom != 0 {
		cam.HandleZoom(v.Zoom)
	}
	return cam
}

func cmdPick(args []string) error {
	fs := flag.NewFlagSet("pick", flag.ExitOnError)
	x := fs.Float64("x", 400, "Screen X")
	y := fs.Float64("y", 300, "Screen Y")
	width := fs.Float64("w", 800, "Viewport width")
	height := fs.Float64("h", 600, "Viewport height")
	yaw := fs.Float64("yaw", 0, "Camera yaw around the model, radians")
	pitch := fs.Float64("pitch", 0, "Camera pitch, radians")
	dragX := fs.Float64("drag-x", 0, "Horizontal mouse drag in pixels")
	dragY := fs.Float64("drag-y", 0, "Vertical mouse drag in pixels")
	zoom := fs.Float64("zoom", 0, "Zoom steps, positive moves closer")
	tx := fs.Float64("tx", 0, "Model position X")
	ty := fs.Float64("ty", 0, "Model position Y")
	tz := fs.Float64("tz", 0, "Model position Z")
	turn := fs.Float64("turn", 0, "Model rotation around Y, radians")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ksmtool pick [-x X -y Y -w W -h H -yaw A -pitch A -drag-x DX -drag-y DY -zoom N -tx X -ty Y -tz Z -turn A] <file.ksm>")
		os.Exit(1)
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	m, err := model.Load(data, nil)
	if err != nil {
		return err
	}

	view := pickView{
		Width:  float32(*width),
		Height: float32(*height),
		Yaw:    float32(*yaw),
		Pitch:  float32(*pitch),
		DragX:  float32(*dragX),
		DragY:  float32(*dragY),
		Zoom:   float32(*zoom),
		Offset: math.Vec3{X: float32(*tx), Y: float32(*ty), Z: float32(*tz)},
		Turn:   float32(*turn),
	}
	world := view.world()
	cam := view.camera(m, world)

	res := pick(m, cam, world, float32(*x), float32(*y))

	fmt.Printf("Camera: eye %v looking at %v\n", cam.Position().Array(), cam.Center.Array())
	if !res.Hit {
		fmt.Println("No hit")
		return nil
	}
	fmt.Printf("Hit, %d triangles along the ray:\n", len(res.Points))
	for _, p := range res.Points {
		fmt.Printf("  (%.3f, %.3f, %.3f)\n", p[0], p[1], p[2])
	}
	return nil
}
