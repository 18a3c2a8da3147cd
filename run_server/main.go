package main

import (
	"log"
	"os"

	"westiny/server"
)

func main() {
	if err := server.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
