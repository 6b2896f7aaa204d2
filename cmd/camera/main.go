package main

import (
	"context"
	"log"

	"github.com/mlevkov/camlink/internal/camera"
	"github.com/mlevkov/camlink/internal/camera/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := camera.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
