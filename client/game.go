package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"

	"westiny/event"
	"westiny/game"
)

// ErrQuit ends the ebiten loop once the state machine has stopped.
var ErrQuit = errors.New("quit")

// Game adapts the state machine to ebiten. Input is sampled into engine
// events, network events arrive on their own channel.
type Game struct {
	renderer *Renderer
	ctx      *game.Context
	machine  *game.Machine
	input    *Input
	engine   *event.Channel[event.EngineEvent]
}

func NewGame(assets *Assets, ctx *game.Context, app *event.Channel[event.AppEvent]) *Game {
	engine := event.NewChannel[event.EngineEvent]()
	return &Game{
		renderer: NewRenderer(assets),
		ctx:      ctx,
		machine:  game.NewMachine(ctx, event.NewWestinyReader(engine, app), game.NewConnectingState()),
		input:    NewInput(),
		engine:   engine,
	}
}

func (g *Game) Update() error {
	g.engine.Write(g.input.Diff(Sample())...)
	if !g.machine.Update(1 / float64(ebiten.MaxTPS())) {
		return ErrQuit
	}
	return nil
}

func debugString(replica *game.Replica) string {
	return strings.Join([]string{
		fmt.Sprintf("Version: %s, TPS: %0.02f, FPS: %0.02f", strings.TrimSpace(Version), ebiten.CurrentTPS(), ebiten.CurrentFPS()),
		fmt.Sprintf("Tick: %d, Entities: %d", replica.Tick(), replica.Len()),
	}, "\n")
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Render(screen, g.ctx.Replica)
	ebitenutil.DebugPrint(screen, debugString(g.ctx.Replica))
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (screenWidth, screenHeight int) {
	return outsideWidth, outsideHeight
}
