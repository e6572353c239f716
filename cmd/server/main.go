package main

import (
	"log"
	"os"

	"github.com/spf13/pflag"

	"github.com/alex-user-go/tripplan/internal/app"
	"github.com/alex-user-go/tripplan/internal/config"
)

func main() {
	configPath := pflag.StringP("config", "c", "", "path to tripplan.yaml")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Println(err)
		os.Exit(1)
	}

	if err := app.Run(cfg); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
