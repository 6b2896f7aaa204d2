package main

import (
	"context"
	"log"

	"github.com/mlevkov/camlink/internal/ingest"
	"github.com/mlevkov/camlink/internal/ingest/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := ingest.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
