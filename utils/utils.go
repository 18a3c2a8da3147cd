package utils

import (
	"fmt"
	"math"
	"os"

	"github.com/pelletier/go-toml/v2"

	"westiny/sim"
	"westiny/world"
)

type ServerConfig struct {
	Address     string   `toml:"address"`
	TickRate    float64  `toml:"tick_rate"`
	MaxEntities int      `toml:"max_entities"`
	InboxSize   int      `toml:"inbox_size"`
	OutboxSize  int      `toml:"outbox_size"`
	Map         string   `toml:"map"`
	Origins     []string `toml:"origins"`
}

type PlayerConfig struct {
	Name         string  `toml:"name"`
	MaxWalkSpeed float64 `toml:"max_walk_speed"`
	MaxHealth    float64 `toml:"max_health"`
	Radius       float64 `toml:"radius"`
	RespawnTime  float64 `toml:"respawn_time"`
}

type WeaponConfig struct {
	Damage           float64 `toml:"damage"`
	Distance         float64 `toml:"distance"`
	FireRate         float64 `toml:"fire_rate"`
	MagazineSize     int     `toml:"magazine_size"`
	ReloadTime       float64 `toml:"reload_time"`
	Spread           float64 `toml:"spread"`
	ShotPattern      string  `toml:"shot_pattern"`
	BulletSpeed      float64 `toml:"bullet_speed"`
	ProjectileRadius float64 `toml:"projectile_radius"`
}

type ResolutionConfig struct {
	X, Y int
}

type UIConfig struct {
	Resolution ResolutionConfig
}

type MathConfig struct {
	Float64EqualityThreshold float64
}

type Config struct {
	Server ServerConfig
	Player PlayerConfig
	Weapon WeaponConfig
	UI     UIConfig
	Math   MathConfig
}

// DefaultConfig is the revolver-wielding baseline every file overrides.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:    "localhost:4242",
			TickRate:   60,
			InboxSize:  1024,
			OutboxSize: 4096,
		},
		Player: PlayerConfig{
			MaxWalkSpeed: 64,
			MaxHealth:    20,
			Radius:       8,
			RespawnTime:  3,
		},
		Weapon: WeaponConfig{
			Damage:           5,
			Distance:         120,
			FireRate:         7.2,
			MagazineSize:     6,
			ReloadTime:       1,
			Spread:           2,
			ShotPattern:      "single",
			BulletSpeed:      200,
			ProjectileRadius: 2,
		},
		UI: UIConfig{
			Resolution: ResolutionConfig{X: 640, Y: 480},
		},
		Math: MathConfig{
			Float64EqualityThreshold: 1e-9,
		},
	}
}

// ReadTOML loads fileName on top of the defaults.
func ReadTOML(fileName string) (*Config, error) {
	file, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(file, config); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", fileName, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	if _, err := world.ParseShotPattern(c.Weapon.ShotPattern); err != nil {
		return err
	}
	sc, err := c.Simulation()
	if err != nil {
		return err
	}
	return sc.Validate()
}

// Simulation converts the file layout into the tuning the systems take.
func (c *Config) Simulation() (sim.Config, error) {
	shot, err := world.ParseShotPattern(c.Weapon.ShotPattern)
	if err != nil {
		return sim.Config{}, err
	}
	return sim.Config{
		TickRate:         c.Server.TickRate,
		MaxWalkSpeed:     c.Player.MaxWalkSpeed,
		PlayerRadius:     c.Player.Radius,
		ProjectileRadius: c.Weapon.ProjectileRadius,
		MaxHealth:        c.Player.MaxHealth,
		RespawnTime:      c.Player.RespawnTime,
		Weapon: world.WeaponDetails{
			Damage:       c.Weapon.Damage,
			Distance:     c.Weapon.Distance,
			FireRate:     c.Weapon.FireRate,
			MagazineSize: c.Weapon.MagazineSize,
			ReloadTime:   c.Weapon.ReloadTime,
			Spread:       c.Weapon.Spread,
			Shot:         shot,
			BulletSpeed:  c.Weapon.BulletSpeed,
		},
		InboxSize:   c.Server.InboxSize,
		OutboxSize:  c.Server.OutboxSize,
		MaxEntities: c.Server.MaxEntities,
	}, nil
}

func AlmostEqual(a, b, threshold float64) bool {
	return math.Abs(a-b) <= threshold
}
