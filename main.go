package main

import (
	"log"

	"github.com/julik/signed-params/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
