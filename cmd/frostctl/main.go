package main

import (
	"os"

	"github.com/danmuck/frostctl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()
	if err := newRootCmd(newApp(os.Stdout)).Execute(); err != nil {
		log.Error().Err(err).Msg("frostctl failed")
		os.Exit(1)
	}
}
