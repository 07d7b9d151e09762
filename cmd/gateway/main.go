package main

import (
	"context"
	"log"

	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway"
	"github.com/Mohamed-Afzal-Nandolia/ProjectRuX/internal/gateway/config"
)

func main() {

	cfg := config.LoadConfig()
	app, err := gateway.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("%v", err)
	}

}
