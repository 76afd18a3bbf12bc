package tgflow

import (
	stdlog "log"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ysy950803/tgflow/pkg/util"
)

var (
	Debug      bool
	LogFile    bool
	ConfigPath string
)

func initLog(cmd *cobra.Command, args []string) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if LogFile {
		initFileLog()
		return
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	stdlog.SetOutput(os.Stderr)
}

func initFileLog() {
	logpath := util.DefaultWorkDir("")
	util.PrepareDir(logpath)

	logFile, err := os.OpenFile(filepath.Join(logpath, "tgflow.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, os.ModePerm)
	if err != nil {
		panic(err)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logFile, NoColor: true, TimeFormat: time.RFC3339})
	logrus.SetOutput(logFile)
	stdlog.SetOutput(logFile)
}
