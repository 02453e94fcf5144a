package main

import (
	"os"

	"github.com/psds-microservice/cityfix/cmd"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Error().Err(err).Msg("cityfix")
		os.Exit(1)
	}
}
