package client

import (
	"fmt"
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"westiny/game"
	"westiny/sim"
	"westiny/world"
)

var (
	background  = color.RGBA{222, 184, 135, 255}
	bulletColor = color.RGBA{40, 40, 40, 255}
	aimColor    = color.RGBA{255, 0, 0, 255}
)

type Renderer struct {
	*Assets
}

func NewRenderer(assets *Assets) *Renderer {
	return &Renderer{Assets: assets}
}

// spriteFor picks the image of an entity as seen by the local player.
func spriteFor(s world.EntityState, self world.ID) string {
	switch s.Archetype {
	case world.ArchetypeObstacle:
		return "obstacle"
	case world.ArchetypePlayer:
		if s.Dead {
			return "dead"
		}
		if s.ID == self {
			return "player"
		}
		return "enemy"
	}
	return ""
}

func (r *Renderer) Render(screen *ebiten.Image, replica *game.Replica) {
	screen.Fill(background)
	self, _ := replica.Self()
	replica.Each(func(s world.EntityState) {
		if s.Archetype == world.ArchetypeProjectile {
			d := 2 * s.Radius
			ebitenutil.DrawRect(screen, s.Position.X-s.Radius, s.Position.Y-s.Radius, d, d, bulletColor)
			return
		}
		r.renderSprite(screen, r.Image(spriteFor(s, self.ID)), s)
		if s.Archetype != world.ArchetypePlayer {
			return
		}
		if !s.Dead {
			tip := s.Position.Add(sim.Heading(s.Rotation).Scale(2 * s.Radius))
			ebitenutil.DrawLine(screen, s.Position.X, s.Position.Y, tip.X, tip.Y, aimColor)
		}
		label := fmt.Sprintf("%s\n%0.0f/%0.0f :: %d/%d", s.Name, s.Health, s.MaxHealth, s.Ammo, s.Magazine)
		if s.Reloading {
			label += " reloading"
		}
		ebitenutil.DebugPrintAt(screen, label, int(s.Position.X-s.Radius), int(s.Position.Y+s.Radius))
	})
}

// renderSprite scales image to the entity's diameter around its center.
func (r *Renderer) renderSprite(screen, image *ebiten.Image, s world.EntityState) {
	width, height := image.Size()
	opt := &ebiten.DrawImageOptions{}
	opt.GeoM.Translate(-float64(width)/2, -float64(height)/2)
	opt.GeoM.Scale(2*s.Radius/float64(width), 2*s.Radius/float64(height))
	opt.GeoM.Translate(s.Position.X, s.Position.Y)
	opt.Filter = ebiten.FilterLinear
	screen.DrawImage(image, opt)
}
