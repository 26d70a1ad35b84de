package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/shaders"
)

// Renderer drives the GPU backend: one additive lighting render pass per
// planned pass into the accumulation target, then a composite blit to
// the surface.
type Renderer struct {
	Window   *glfw.Window
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	LightingPipeline  *wgpu.RenderPipeline
	CompositePipeline *wgpu.RenderPipeline

	Buffers *BufferManager

	passBindGroups    []*wgpu.BindGroup
	compositeBindGrp  *wgpu.BindGroup
	bindGroupsInvalid bool

	log lumen.Logger
}

func NewRenderer(window *glfw.Window) *Renderer {
	return &Renderer{Window: window, log: lumen.NewNopLogger()}
}

func (r *Renderer) SetLogger(l lumen.Logger) {
	if l != nil {
		r.log = l
	}
}

func (r *Renderer) Init() error {
	r.Instance = wgpu.CreateInstance(nil)

	r.Surface = r.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(r.Window))

	adapter, err := r.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return err
	}
	r.Adapter = adapter

	r.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return err
	}
	r.Queue = r.Device.GetQueue()

	width, height := r.Window.GetFramebufferSize()
	caps := r.Surface.GetCapabilities(adapter)
	format := caps.Formats[0]

	r.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	r.Surface.Configure(adapter, r.Device, r.Config)

	lightModule, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Lighting VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.LightingWGSL},
	})
	if err != nil {
		return err
	}
	compositeModule, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Composite VS/FS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FullscreenWGSL},
	})
	if err != nil {
		return err
	}

	// Passes accumulate additively into the offscreen target.
	r.LightingPipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Lighting Pipeline",
		Vertex: wgpu.VertexState{
			Module:     lightModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     lightModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: wgpu.TextureFormatRGBA16Float,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOne,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	r.CompositePipeline, err = r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "Composite Pipeline",
		Vertex: wgpu.VertexState{
			Module:     compositeModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     compositeModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    format,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return err
	}

	r.Buffers = NewBufferManager(r.Device)
	r.bindGroupsInvalid = true
	return nil
}

func (r *Renderer) Resize(w, h int) {
	if w > 0 && h > 0 {
		r.Config.Width = uint32(w)
		r.Config.Height = uint32(h)
		r.Surface.Configure(r.Adapter, r.Device, r.Config)
	}
}

// RenderFrame uploads the baked frame, encodes one lighting pass per
// planned pass plus the composite blit, and presents.
func (r *Renderer) RenderFrame(plan *lumen.FramePlan, frame *lumen.GPUFrameInputs) error {
	if r.Buffers.EnsureFrameTextures(frame.Width, frame.Height) {
		r.bindGroupsInvalid = true
	}
	if r.Buffers.EnsurePassResources(len(plan.Passes)) {
		r.bindGroupsInvalid = true
	}
	if r.bindGroupsInvalid {
		if err := r.rebuildBindGroups(); err != nil {
			return err
		}
		r.bindGroupsInvalid = false
	}

	r.Buffers.UploadFrame(frame)
	for i := range plan.Passes {
		r.Buffers.UploadPass(i, PackPassUniforms(plan, frame, i), &frame.Passes[i])
	}
	r.Buffers.UploadComposite(PackCompositeUniforms(plan.Ambient, plan.Tint))

	nextTexture, err := r.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	encoder, err := r.Device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	// First pass clears the accumulation target, later passes add onto it.
	// With zero passes a single clearing pass still runs so the composite
	// reads black.
	passes := len(plan.Passes)
	for i := 0; i < passes || i == 0; i++ {
		loadOp := wgpu.LoadOpLoad
		if i == 0 {
			loadOp = wgpu.LoadOpClear
		}
		rpass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			ColorAttachments: []wgpu.RenderPassColorAttachment{{
				View:       r.Buffers.AccumView,
				LoadOp:     loadOp,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{},
			}},
		})
		if i < passes {
			rpass.SetPipeline(r.LightingPipeline)
			rpass.SetBindGroup(0, r.passBindGroups[i], nil)
			rpass.Draw(3, 1, 0, 0)
		}
		if err := rpass.End(); err != nil {
			return err
		}
	}

	cpass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{A: 1},
		}},
	})
	cpass.SetPipeline(r.CompositePipeline)
	cpass.SetBindGroup(0, r.compositeBindGrp, nil)
	cpass.Draw(3, 1, 0, 0)
	if err := cpass.End(); err != nil {
		return err
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	r.Queue.Submit(cmd)
	r.Surface.Present()
	return nil
}

func (r *Renderer) rebuildBindGroups() error {
	r.passBindGroups = r.passBindGroups[:0]
	for i := range r.Buffers.PassBufs {
		bg, err := r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: r.LightingPipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: r.Buffers.PassBufs[i], Size: wgpu.WholeSize},
				{Binding: 1, TextureView: r.Buffers.AlbedoView},
				{Binding: 2, TextureView: r.Buffers.NormalView},
				{Binding: 3, TextureView: r.Buffers.OccluderView},
				{Binding: 4, TextureView: r.Buffers.MaskViews[i]},
			},
		})
		if err != nil {
			return err
		}
		r.passBindGroups = append(r.passBindGroups, bg)
	}

	bg, err := r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: r.CompositePipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: r.Buffers.CompositeBuf, Size: wgpu.WholeSize},
			{Binding: 1, TextureView: r.Buffers.AlbedoView},
			{Binding: 2, TextureView: r.Buffers.AccumView},
		},
	})
	if err != nil {
		return err
	}
	r.compositeBindGrp = bg
	return nil
}

func (r *Renderer) Release() {
	if r.Buffers != nil {
		r.Buffers.Release()
	}
	if r.Device != nil {
		r.Device.Release()
	}
	if r.Surface != nil {
		r.Surface.Release()
	}
	if r.Instance != nil {
		r.Instance.Release()
	}
}
