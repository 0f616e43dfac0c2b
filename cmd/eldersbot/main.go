// Command eldersbot runs the Council of Elders question bot.
package main

import (
	"context"
	"log"

	corecmd "github.com/m3rciful/eldersbot/core/cmd"
	"github.com/m3rciful/eldersbot/council/app"
	"github.com/m3rciful/eldersbot/council/config"
)

func main() {
	err := corecmd.Run(corecmd.Options[*config.Config]{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        config.Load,
		Bootstrap: func(ctx context.Context, cfg *config.Config) (corecmd.TelegramApp, error) {
			return app.New(ctx, app.Options{Config: cfg})
		},
	})
	if err != nil {
		log.Fatal(err)
	}
}
