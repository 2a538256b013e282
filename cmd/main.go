package main

import (
	"fmt"
	"os"

	"pumpscanner/cmd/backfill"
	"pumpscanner/cmd/keys"
	"pumpscanner/cmd/scanner"
	"pumpscanner/src/database"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on the environment")
	}

	app := cli.NewApp()
	app.Name = "Pumpscanner CMD"
	app.Usage = "The pumpscanner command line interface"

	app.Commands = []cli.Command{
		scannerCMD,
		backfillCMD,
		keysCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	scannerCMD = cli.Command{
		Name:        "scanner",
		Usage:       "run Scanner",
		Action:      scannerAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the boundary scan loop`,
	}
	backfillCMD = cli.Command{
		Name:        "backfill",
		Usage:       "run day candle backfill",
		Action:      backfillAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Backfill daily candles into the database`,
	}
	keysCMD = cli.Command{
		Name:        "keys",
		Usage:       "manage sealed exchange keys",
		Action:      keysAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Interactive CLI for storing sealed exchange keys`,
	}
)

func scannerAction(_ *cli.Context) error {

	logrus.Info("Starting scanner CMD")
	logrus.WithField("cmd", "scanner")

	s := &scanner.Scanner{}
	err := s.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}

// backfillAction pulls daily OHLCV candles into the database.
func backfillAction(_ *cli.Context) error {

	logrus.Info("Starting backfill CMD")
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	b := &backfill.Backfill{
		Log: logrus.WithField("cmd", "backfill"),
		DB:  database.MainDB,
	}

	err := b.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting backfill cmd")
		return err
	}

	return nil
}

func keysAction(_ *cli.Context) error {

	logrus.Info("Starting keys CMD")
	logrus.WithField("cmd", "keys")

	k := &keys.Keys{}
	err := k.Start()
	if err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}

	return nil
}
