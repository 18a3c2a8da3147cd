package world

import (
	"fmt"
	"strconv"
	"strings"
)

// timerEpsilon absorbs float drift from summing fixed tick durations.
const timerEpsilon = 1e-9

// ShotPattern is how many projectiles a single trigger pull releases.
type ShotPattern struct {
	Pellets int
}

var SingleShot = ShotPattern{Pellets: 1}

func (s ShotPattern) String() string {
	if s.Pellets <= 1 {
		return "single"
	}
	return fmt.Sprintf("spread:%d", s.Pellets)
}

// ParseShotPattern accepts "single" or "spread:N".
func ParseShotPattern(raw string) (ShotPattern, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" || raw == "single" {
		return SingleShot, nil
	}
	name, count, ok := strings.Cut(raw, ":")
	if !ok || name != "spread" {
		return ShotPattern{}, fmt.Errorf("unknown shot pattern %q", raw)
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 1 {
		return ShotPattern{}, fmt.Errorf("invalid pellet count in %q", raw)
	}
	return ShotPattern{Pellets: n}, nil
}

// WeaponDetails is the immutable tuning of a weapon. Spread is in degrees,
// times in seconds, distances in world units.
type WeaponDetails struct {
	Damage       float64
	Distance     float64
	FireRate     float64
	MagazineSize int
	ReloadTime   float64
	Spread       float64
	Shot         ShotPattern
	BulletSpeed  float64
}

type WeaponState uint8

const (
	WeaponIdle WeaponState = iota
	WeaponFiring
	WeaponCooldown
	WeaponReloading
)

func (s WeaponState) String() string {
	switch s {
	case WeaponIdle:
		return "idle"
	case WeaponFiring:
		return "firing"
	case WeaponCooldown:
		return "cooldown"
	case WeaponReloading:
		return "reloading"
	}
	return fmt.Sprintf("weapon-state(%d)", uint8(s))
}

type Weapon struct {
	Details     WeaponDetails
	State       WeaponState
	Ammo        int
	Cooldown    float64
	ReloadTimer float64
}

func NewWeapon(details WeaponDetails) Weapon {
	return Weapon{
		Details: details,
		Ammo:    details.MagazineSize,
	}
}

// Reset restores a full magazine and clears every timer.
func (w *Weapon) Reset() {
	*w = NewWeapon(w.Details)
}

// Advance moves the timers forward by dt and reports whether anything
// visible to clients changed.
func (w *Weapon) Advance(dt float64) bool {
	switch w.State {
	case WeaponReloading:
		w.ReloadTimer -= dt
		if w.ReloadTimer <= timerEpsilon {
			w.ReloadTimer = 0
			w.Cooldown = 0
			w.Ammo = w.Details.MagazineSize
			w.State = WeaponIdle
			return true
		}
	case WeaponFiring, WeaponCooldown:
		w.Cooldown -= dt
		if w.Cooldown <= timerEpsilon {
			w.Cooldown = 0
			w.State = WeaponIdle
		} else {
			w.State = WeaponCooldown
		}
	}
	return false
}

func (w *Weapon) CanFire() bool {
	return w.State != WeaponReloading && w.Ammo > 0 && w.Cooldown <= timerEpsilon
}

// Fire consumes a round when the weapon is ready. Emptying the magazine
// starts a reload.
func (w *Weapon) Fire() bool {
	if !w.CanFire() {
		return false
	}
	w.Ammo--
	w.Cooldown = 1 / w.Details.FireRate
	w.State = WeaponFiring
	if w.Ammo == 0 {
		w.StartReload()
	}
	return true
}

// StartReload begins a reload unless one is running or the magazine is full.
func (w *Weapon) StartReload() bool {
	if w.State == WeaponReloading || w.Ammo >= w.Details.MagazineSize {
		return false
	}
	w.State = WeaponReloading
	w.ReloadTimer = w.Details.ReloadTime
	return true
}
