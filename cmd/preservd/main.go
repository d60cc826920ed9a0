package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/preservd/internal/server"
	"github.com/dmitrijs2005/preservd/internal/server/config"
)

func main() {
	ctx := context.Background()
	cfg := config.LoadConfig()

	mode, err := server.ParseMode(os.Args[1:])
	if err != nil {
		log.Printf("%v", err)
		os.Exit(2)
	}

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx, mode); err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}
