package main

import (
	"context"
	"log"

	"github.com/mlevkov/camlink/internal/controller"
	"github.com/mlevkov/camlink/internal/controller/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := controller.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
