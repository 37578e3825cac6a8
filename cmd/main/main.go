package main

import (
	"log"

	"github.com/miwidot/twitchmod/internal/pkg/app"
)

func main() {
	if err := app.New(); err != nil {
		log.Fatal(err)
	}

	select {}
}
