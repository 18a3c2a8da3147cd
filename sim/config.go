package sim

import (
	"fmt"

	"westiny/world"
)

// Config is the tuning injected into every system.
type Config struct {
	TickRate         float64
	MaxWalkSpeed     float64
	PlayerRadius     float64
	ProjectileRadius float64
	MaxHealth        float64
	RespawnTime      float64
	Weapon           world.WeaponDetails

	InboxSize   int
	OutboxSize  int
	MaxEntities int
}

// Dt is the fixed duration of one tick in seconds.
func (c Config) Dt() float64 {
	return 1 / c.TickRate
}

func (c Config) Validate() error {
	switch {
	case c.TickRate <= 0:
		return fmt.Errorf("tick rate must be positive, got %v", c.TickRate)
	case c.PlayerRadius <= 0 || c.ProjectileRadius <= 0:
		return fmt.Errorf("bounding radii must be positive")
	case c.MaxHealth <= 0:
		return fmt.Errorf("max health must be positive, got %v", c.MaxHealth)
	case c.Weapon.FireRate <= 0:
		return fmt.Errorf("fire rate must be positive, got %v", c.Weapon.FireRate)
	case c.Weapon.MagazineSize <= 0:
		return fmt.Errorf("magazine size must be positive, got %d", c.Weapon.MagazineSize)
	case c.Weapon.BulletSpeed <= 0:
		return fmt.Errorf("bullet speed must be positive, got %v", c.Weapon.BulletSpeed)
	case c.Weapon.Shot.Pellets < 1:
		return fmt.Errorf("shot pattern needs at least one pellet")
	case c.InboxSize <= 0 || c.OutboxSize <= 0:
		return fmt.Errorf("queue sizes must be positive")
	}
	return nil
}
