package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/gekko3d/lumen"
	"github.com/gekko3d/lumen/gpu"
)

func main() {
	lightsPath := flag.String("lights", "lights.json", "Lights document")
	scenePath := flag.String("scene", "scene.json", "Scene document")
	assetDir := flag.String("assets", ".", "Directory holding sprite and mask images")
	width := flag.Int("width", 1280, "Window width")
	height := flag.Int("height", 720, "Window height")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	log := lumen.NewDefaultLogger("lumen", *debug)

	lightsDoc, err := loadLights(*lightsPath)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}
	sceneDoc, err := loadScene(*scenePath)
	if err != nil {
		log.Errorf("%v", err)
		os.Exit(1)
	}

	assets := lumen.NewAssetServer()
	loadImages(assets, *assetDir, lightsDoc, sceneDoc, log)

	viewer, err := gpu.NewViewer(*width, *height, "lumen viewer", assets)
	if err != nil {
		log.Errorf("viewer init: %v", err)
		os.Exit(1)
	}
	viewer.SetLogger(log)
	viewer.LoadDocuments(lightsDoc, sceneDoc)

	log.Infof("loaded %d lights, %d casters", viewer.Lights.Len(), viewer.Casters.Len())
	if err := viewer.Run(); err != nil {
		log.Errorf("run: %v", err)
		os.Exit(1)
	}
}

func loadLights(path string) (*lumen.LightsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return lumen.DecodeLightsDocument(data)
}

func loadScene(path string) (*lumen.SceneDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return lumen.DecodeSceneDocument(data)
}

// loadImages registers every image the documents reference. A missing
// file is logged and skipped; the engine degrades to untextured surfaces
// and mask-less lights.
func loadImages(assets *lumen.AssetServer, dir string, lights *lumen.LightsDocument, scene *lumen.SceneDocument, log lumen.Logger) {
	names := map[string]bool{}
	for _, l := range lights.Lights {
		switch v := l.(type) {
		case *lumen.PointLight:
			if v.Mask != nil {
				names[v.Mask.Image] = true
			}
		case *lumen.SpotLight:
			if v.Mask != nil {
				names[v.Mask.Image] = true
			}
		}
	}
	for _, c := range scene.Casters {
		if c.Image != "" {
			names[c.Image] = true
		}
		if c.Normal != "" {
			names[c.Normal] = true
		}
	}
	for name := range names {
		if _, err := assets.LoadImage(name, filepath.Join(dir, name)); err != nil {
			log.Warnf("asset %s: %v", name, err)
		}
	}
}
