package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/segmentio/ksuid"

	"westiny/client"
	"westiny/event"
	"westiny/game"
	"westiny/server"
	"westiny/utils"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Llongfile)

	if len(os.Args) > 1 && os.Args[1] == "server" {
		if err := server.Run(os.Args[1:]); err != nil {
			log.Fatal(err)
		}
		return
	}

	assets, err := client.LoadAssets()
	if err != nil {
		log.Fatal(err)
	}

	cfg, err := utils.ReadTOML("config.toml")
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = utils.DefaultConfig(), nil
	}
	if err != nil {
		log.Fatal(err)
	}
	simCfg, err := cfg.Simulation()
	if err != nil {
		log.Fatal(err)
	}
	resolutionConfig := cfg.UI.Resolution
	log.Printf("%+v", resolutionConfig)

	ebiten.SetWindowSize(resolutionConfig.X, resolutionConfig.Y)
	ebiten.SetWindowTitle("Westiny")
	ebiten.SetWindowClosingHandled(true)

	addr := cfg.Server.Address
	if c, err := net.DialTimeout("tcp", addr, time.Second); err != nil {
		log.Printf("Encountered err: %v. Trying to spin up server manually\n", err)

		// Try to spin up the server if we fail to connect.
		go func() {
			if err := server.Run([]string{"server", addr}); err != nil {
				log.Fatal(err)
			}
			log.Fatal("server shutdown")
		}()
		time.Sleep(50 * time.Millisecond)
	} else {
		c.Close()
	}

	identity := ksuid.New().String()
	name := cfg.Player.Name
	if name == "" {
		name = identity
	}
	app := event.NewChannel[event.AppEvent]()
	network := game.NewNetwork(addr, app)
	ctx := &game.Context{
		Name:     name,
		Identity: identity,
		Config:   simCfg,
		Replica:  game.NewReplica(),
		Send:     network.Send,
	}
	g := client.NewGame(assets, ctx, app)

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := network.Run(runCtx); err != nil {
			log.Println(err)
		}
	}()

	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, client.ErrQuit) {
		log.Fatal(err)
	}
}
