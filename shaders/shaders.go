package shaders

import (
	_ "embed"
)

//go:embed lighting.wgsl
var LightingWGSL string

//go:embed fullscreen.wgsl
var FullscreenWGSL string
