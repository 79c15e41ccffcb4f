package cli

import (
	"io"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/sproc/internal/config"
)

// InitLog configures the standard logrus logger. The level and format are
// assumed valid; config.Validate checks both.
func InitLog(cfg config.LogConfig, out io.Writer) {
	log.SetOutput(out)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	default:
		log.SetFormatter(&log.TextFormatter{})
	}

	if lvl, err := log.ParseLevel(cfg.Level); err != nil {
		log.WithField("err", err).Warn("unrecognized log level")
	} else {
		log.SetLevel(lvl)
	}
}
