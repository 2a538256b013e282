package scanner

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"pumpscanner/src/database"
	"pumpscanner/src/executors"
)

type Scanner struct{}

func (s *Scanner) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to main database")
		return err
	}

	logrus.Info("Starting scan loop")

	if err := executors.StartLoop(ctx); err != nil {
		logrus.WithError(err).Error("Failed to run scan loop")
		return err
	}

	return nil
}
