package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"

	"github.com/gekko3d/lumen"
)

// BufferManager owns the per-frame GPU resources: the baked frame
// textures, the accumulation target and the per-pass uniform buffers and
// mask arrays. Each pass gets its own uniform buffer and mask texture so
// a whole frame can be encoded and submitted once.
type BufferManager struct {
	Device *wgpu.Device

	AlbedoTex    *wgpu.Texture
	AlbedoView   *wgpu.TextureView
	NormalTex    *wgpu.Texture
	NormalView   *wgpu.TextureView
	OccluderTex  *wgpu.Texture
	OccluderView *wgpu.TextureView
	AccumTex     *wgpu.Texture
	AccumView    *wgpu.TextureView

	PassBufs  []*wgpu.Buffer
	MaskTexs  []*wgpu.Texture
	MaskViews []*wgpu.TextureView

	CompositeBuf *wgpu.Buffer

	width  int
	height int
}

func NewBufferManager(device *wgpu.Device) *BufferManager {
	return &BufferManager{Device: device}
}

// EnsureFrameTextures recreates the frame-sized textures when the
// resolution changes. Returns true when views were recreated and bind
// groups must be rebuilt.
func (m *BufferManager) EnsureFrameTextures(width, height int) bool {
	if width == m.width && height == m.height && m.AlbedoTex != nil {
		return false
	}
	m.releaseFrameTextures()
	m.width = width
	m.height = height

	m.AlbedoTex, m.AlbedoView = m.createTexture("Albedo Tex", width, height, 1, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	m.NormalTex, m.NormalView = m.createTexture("Normal Tex", width, height, 1, wgpu.TextureFormatRGBA8Unorm, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	m.OccluderTex, m.OccluderView = m.createTexture("Occluder Tex", width, height, 1, wgpu.TextureFormatR8Unorm, wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	m.AccumTex, m.AccumView = m.createTexture("Accum Tex", width, height, 1, wgpu.TextureFormatRGBA16Float, wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
	return true
}

// EnsurePassResources grows the per-pass uniform buffers and mask
// texture arrays to cover passCount passes. Returns true when new
// resources were created.
func (m *BufferManager) EnsurePassResources(passCount int) bool {
	grown := false
	for len(m.PassBufs) < passCount {
		buf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Pass Uniforms",
			Size:  PassUniformsSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		m.PassBufs = append(m.PassBufs, buf)

		tex, view := m.createTexture("Pass Masks", lumen.MaskLayerSize, lumen.MaskLayerSize,
			lumen.MaskSlotCount, wgpu.TextureFormatRGBA8Unorm,
			wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
		m.MaskTexs = append(m.MaskTexs, tex)
		m.MaskViews = append(m.MaskViews, view)
		grown = true
	}
	if m.CompositeBuf == nil {
		buf, err := m.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Composite Uniforms",
			Size:  CompositeUniformsSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		m.CompositeBuf = buf
		grown = true
	}
	return grown
}

// UploadFrame writes the baked frame textures for this frame.
func (m *BufferManager) UploadFrame(frame *lumen.GPUFrameInputs) {
	queue := m.Device.GetQueue()
	extent := wgpu.Extent3D{Width: uint32(frame.Width), Height: uint32(frame.Height), DepthOrArrayLayers: 1}

	err := queue.WriteTexture(m.AlbedoTex.AsImageCopy(), frame.Albedo, &wgpu.TextureDataLayout{
		BytesPerRow:  uint32(frame.Width) * 4,
		RowsPerImage: uint32(frame.Height),
	}, &extent)
	if err != nil {
		panic(err)
	}
	err = queue.WriteTexture(m.NormalTex.AsImageCopy(), frame.Normal, &wgpu.TextureDataLayout{
		BytesPerRow:  uint32(frame.Width) * 4,
		RowsPerImage: uint32(frame.Height),
	}, &extent)
	if err != nil {
		panic(err)
	}
	if frame.Occluder != nil {
		err = queue.WriteTexture(m.OccluderTex.AsImageCopy(), frame.Occluder, &wgpu.TextureDataLayout{
			BytesPerRow:  uint32(frame.Width),
			RowsPerImage: uint32(frame.Height),
		}, &extent)
		if err != nil {
			panic(err)
		}
	}
}

// UploadPass writes one pass's uniform block and mask layers.
func (m *BufferManager) UploadPass(i int, uniforms []byte, masks *lumen.GPUPassInputs) {
	queue := m.Device.GetQueue()
	queue.WriteBuffer(m.PassBufs[i], 0, uniforms)

	for slot := 0; slot < lumen.MaskSlotCount; slot++ {
		if masks.MaskLayers[slot] == nil {
			continue
		}
		err := queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  m.MaskTexs[i],
				MipLevel: 0,
				Origin:   wgpu.Origin3D{Z: uint32(slot)},
				Aspect:   wgpu.TextureAspectAll,
			},
			masks.MaskLayers[slot],
			&wgpu.TextureDataLayout{
				BytesPerRow:  lumen.MaskLayerSize * 4,
				RowsPerImage: lumen.MaskLayerSize,
			},
			&wgpu.Extent3D{Width: lumen.MaskLayerSize, Height: lumen.MaskLayerSize, DepthOrArrayLayers: 1},
		)
		if err != nil {
			panic(err)
		}
	}
}

// UploadComposite writes the composite uniform block.
func (m *BufferManager) UploadComposite(uniforms []byte) {
	m.Device.GetQueue().WriteBuffer(m.CompositeBuf, 0, uniforms)
}

func (m *BufferManager) createTexture(label string, width, height, layers int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*wgpu.Texture, *wgpu.TextureView) {
	tex, err := m.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: uint32(layers)},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		panic(err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		panic(err)
	}
	return tex, view
}

func (m *BufferManager) releaseFrameTextures() {
	for _, t := range []*wgpu.Texture{m.AlbedoTex, m.NormalTex, m.OccluderTex, m.AccumTex} {
		if t != nil {
			t.Release()
		}
	}
	m.AlbedoTex, m.NormalTex, m.OccluderTex, m.AccumTex = nil, nil, nil, nil
}

func (m *BufferManager) Release() {
	m.releaseFrameTextures()
	for _, b := range m.PassBufs {
		b.Release()
	}
	for _, t := range m.MaskTexs {
		t.Release()
	}
	m.PassBufs, m.MaskTexs, m.MaskViews = nil, nil, nil
	if m.CompositeBuf != nil {
		m.CompositeBuf.Release()
		m.CompositeBuf = nil
	}
}
