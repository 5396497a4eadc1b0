package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

var (
	logger = zerolog.New(os.Stdout)
	maxLvl int
)

// InitLoggers sets the verbosity. 1 logs errors only, 2 adds info, 3 debug and 4 spam.
func InitLoggers(logLvl int) {
	InitLoggersTo(os.Stdout, logLvl)
}

func InitLoggersTo(w io.Writer, logLvl int) {
	maxLvl = logLvl
	logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "2006/01/02 15:04:05"}).With().Timestamp().Logger()
}

func Enabled(msgLvl int) bool {
	return msgLvl <= maxLvl
}

func Log(msgLvl int, printF string, args ...interface{}) {
	if msgLvl > maxLvl {
		return
	}
	switch msgLvl {
	case 1:
		logger.Error().Msgf(printF, args...)
	case 2:
		logger.Info().Msgf(printF, args...)
	case 3:
		logger.Debug().Msgf(printF, args...)
	case 4:
		logger.Debug().Bool("spam", true).Msgf(printF, args...)
	}
}
