package client

import (
	"embed"
	"fmt"
	"image"
	_ "image/png"
	"log"
	"path/filepath"
	"strings"

	"github.com/ebiten/emoji"
	"github.com/hajimehoshi/ebiten/v2"
)

const (
	dir = "assets"
)

//go:embed assets/*
var assets embed.FS

//go:embed assets/version.txt
var Version string

// sprites are the emoji drawn for a name unless a png of that name ships
// in the assets directory.
var sprites = map[string]string{
	"player":   "🤠",
	"enemy":    "😈",
	"dead":     "💀",
	"obstacle": "🌵",
}

type Assets struct {
	images map[string]*ebiten.Image
}

func (a *Assets) Image(name string) *ebiten.Image {
	if image := a.images[name]; image != nil {
		return image
	}
	if e, ok := sprites[name]; ok {
		if image := emoji.Image(e); image != nil {
			a.images[name] = image
			return image
		}
	}
	log.Fatalf("invalid image name: %s", name)
	return nil
}

func LoadAssets() (*Assets, error) {
	a := &Assets{
		images: make(map[string]*ebiten.Image),
	}

	files, err := assets.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	for _, f := range files {
		if f.IsDir() {
			continue
		}

		name := strings.TrimSuffix(f.Name(), filepath.Ext(f.Name()))
		if filepath.Ext(strings.ToLower(f.Name())) != ".png" {
			continue
		}
		if _, ok := a.images[name]; ok {
			return nil, fmt.Errorf("duplicate filename: %s", name)
		}
		// Can't use filepath.Join due to Windows using backlash and assets expecting a forward slash.
		file, err := assets.Open(strings.Join([]string{dir, f.Name()}, "/"))
		if err != nil {
			return nil, err
		}
		decoded, _, err := image.Decode(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		a.images[name] = ebiten.NewImageFromImage(decoded)
	}
	return a, nil
}
