package main

import (
	"context"
	"fmt"
	"log"

	"github.com/common-nighthawk/go-figure"
	"github.com/dmitrijs2005/aiaccountant/internal/server"
	"github.com/dmitrijs2005/aiaccountant/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	displayAppname("AI accountant")

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)

}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
