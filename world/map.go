package world

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type tileIndex int

const TileSize = 32

const (
	floorTile tileIndex = iota
	obstacleTile
	spawnTile
)

var tileIndices = []Tile{
	// floorTile
	{},
	// obstacleTile
	{Dense: true},
	// spawnTile
	{Spawn: true},
}

type Tile struct {
	Dense bool
	Spawn bool
}

// Map is a grid where dense tiles become obstacles and spawn tiles are
// where players appear.
type Map struct {
	Tiles  []tileIndex
	Width  int64
	Height int64
}

func (m *Map) At(x, y int64) (*Tile, error) {
	if x < 0 || x >= m.Width || y < 0 || y >= m.Height {
		return nil, errors.New("out of bounds")
	}
	return &tileIndices[m.Tiles[m.Width*y+x]], nil
}

func (m *Map) ForEach(callback func(x, y int64, tile Tile)) {
	for y := int64(0); y < m.Height; y++ {
		for x := int64(0); x < m.Width; x++ {
			callback(x, y, tileIndices[m.Tiles[m.Width*y+x]])
		}
	}
}

func tileCenter(x, y int64) Vector {
	return Vector{
		X: float64(x*TileSize) + TileSize/2,
		Y: float64(y*TileSize) + TileSize/2,
	}
}

// Obstacles returns the centre of every dense tile.
func (m *Map) Obstacles() []Vector {
	var out []Vector
	m.ForEach(func(x, y int64, tile Tile) {
		if tile.Dense {
			out = append(out, tileCenter(x, y))
		}
	})
	return out
}

// SpawnPoints returns the centre of every spawn tile.
func (m *Map) SpawnPoints() []Vector {
	var out []Vector
	m.ForEach(func(x, y int64, tile Tile) {
		if tile.Spawn {
			out = append(out, tileCenter(x, y))
		}
	})
	return out
}

// LoadMap parses the width, the height and then one row per line using
// '.' for floor, '#' for obstacles and 'S' for spawn points.
func LoadMap(contents string) (*Map, error) {
	scanner := bufio.NewScanner(strings.NewReader(contents))

	scanner.Scan()
	width, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("map width: %w", err)
	}

	scanner.Scan()
	height, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil {
		return nil, fmt.Errorf("map height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid map size %dx%d", width, height)
	}

	tiles := make([]tileIndex, 0, width*height)
	for scanner.Scan() {
		for _, item := range scanner.Text() {
			switch item {
			case '.':
				tiles = append(tiles, floorTile)
			case '#':
				tiles = append(tiles, obstacleTile)
			case 'S':
				tiles = append(tiles, spawnTile)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(tiles) != width*height {
		return nil, fmt.Errorf("map has %d tiles, want %d", len(tiles), width*height)
	}

	return &Map{
		Tiles:  tiles,
		Width:  int64(width),
		Height: int64(height),
	}, nil
}
