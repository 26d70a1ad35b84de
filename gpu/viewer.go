package gpu

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lumen"
)

// Viewer runs the interactive render loop: snapshot the registries, plan
// the frame, bake the frame inputs on the CPU and hand them to the
// renderer.
type Viewer struct {
	Lights  *lumen.LightRegistry
	Casters *lumen.CasterRegistry
	Shadow  lumen.ShadowConfig
	Tint    mgl32.Vec3

	window   *WindowState
	renderer *Renderer
	pipeline *lumen.Pipeline
	log      lumen.Logger
}

func NewViewer(width, height int, title string, assets *lumen.AssetServer) (*Viewer, error) {
	v := &Viewer{
		Lights:  lumen.NewLightRegistry(),
		Casters: lumen.NewCasterRegistry(),
		Shadow:  lumen.DefaultShadowConfig(),
		Tint:    mgl32.Vec3{1, 1, 1},
		window:  CreateWindow(width, height, title),
		log:     lumen.NewNopLogger(),
	}
	fbw, fbh := v.window.Window().GetFramebufferSize()
	v.pipeline = lumen.NewPipeline(fbw, fbh, assets)

	v.renderer = NewRenderer(v.window.Window())
	if err := v.renderer.Init(); err != nil {
		v.window.Destroy()
		return nil, err
	}
	return v, nil
}

func (v *Viewer) SetLogger(l lumen.Logger) {
	if l != nil {
		v.log = l
		v.pipeline.SetLogger(l)
		v.renderer.SetLogger(l)
	}
}

// LoadDocuments installs a decoded lights document and scene document
// into the registries.
func (v *Viewer) LoadDocuments(lights *lumen.LightsDocument, scene *lumen.SceneDocument) {
	if lights != nil {
		for _, l := range lights.Lights {
			v.Lights.Add(l)
		}
		v.Lights.SetAmbient(lights.Ambient)
		v.Shadow = lights.Shadow
		v.Tint = lights.Tint
	}
	if scene != nil {
		for _, c := range scene.Casters {
			v.Casters.Add(c)
		}
	}
}

// Run drives the loop until the window closes.
func (v *Viewer) Run() error {
	defer v.renderer.Release()
	defer v.window.Destroy()

	for !v.window.ShouldClose() {
		glfw.PollEvents()

		fbw, fbh := v.window.Window().GetFramebufferSize()
		if fbw == 0 || fbh == 0 {
			continue
		}
		pw, ph := v.pipeline.Size()
		if fbw != pw || fbh != ph {
			v.pipeline.Resize(fbw, fbh)
			v.renderer.Resize(fbw, fbh)
		}

		v.trackCursor()

		lights := v.Lights.Snapshot()
		casters := v.Casters.Snapshot()
		plan := v.pipeline.Plan(lights, v.Lights.Ambient(), casters, v.Shadow)
		plan.Tint = v.Tint
		frame := v.pipeline.PrepareGPUFrame(plan)

		if err := v.renderer.RenderFrame(plan, frame); err != nil {
			v.log.Errorf("render frame: %v", err)
		}
	}
	return nil
}

// trackCursor moves follow-mouse lights to the cursor, keeping their
// height above the plane.
func (v *Viewer) trackCursor() {
	mx, my := v.window.Window().GetCursorPos()
	for _, l := range v.Lights.Snapshot() {
		if !l.Common().FollowMouse {
			continue
		}
		var z float32
		switch t := l.(type) {
		case *lumen.PointLight:
			z = t.Position.Z()
		case *lumen.SpotLight:
			z = t.Position.Z()
		default:
			continue
		}
		v.Lights.SetPosition(l.Common().ID, mgl32.Vec3{float32(mx), float32(my), z})
	}
}
