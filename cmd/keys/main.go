// Small operator CLI for storing sealed exchange credentials in the
// settings table, so the scanner can run without keys in its environment.
package keys

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logger "github.com/sirupsen/logrus"

	"pumpscanner/src/database"
	"pumpscanner/src/model"
	"pumpscanner/src/repository"
	"pumpscanner/src/security"
)

func printUsage() {
	fmt.Println("Available commands:")
	fmt.Println("  help                             Show this help message")
	fmt.Println("  shutdown                         Exit the application")
	fmt.Println("  set_key <access> <secret>        Seal and store exchange keys")
	fmt.Println("  show                             Show whether keys are set")
	fmt.Println()
}

type Keys struct{}

func (k *Keys) Start() error {
	config := GetConfig()

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	if err := database.InitMainDB(); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}

	defer stop()
	settingsRep := repository.NewSettingsRepository()

	reader := bufio.NewScanner(os.Stdin)

	reader.Buffer(make([]byte, 0, 1024), 1024*1024)

	for {
		fmt.Print("cmd> ")

		if !reader.Scan() {
			return nil
		}

		line := strings.TrimSpace(reader.Text())
		if line == "" {
			continue
		}

		parts := strings.Split(line, " ")
		cmd := parts[0]

		switch cmd {

		case "shutdown":
			fmt.Println("Exiting CLI...")
			return nil

		case "help":
			printUsage()

		case "set_key":
			if len(parts) < 3 {
				printUsage()
				continue
			}
			access, secret := parts[1], parts[2]

			sealedAccess, err := security.SealString(access)
			if err != nil {
				logger.WithError(err).Error("Failed to seal access key")
				continue
			}

			sealedSecret, err := security.SealString(secret)
			if err != nil {
				logger.WithError(err).Error("Failed to seal secret key")
				continue
			}

			row, err := settingsRep.Find(ctx, config.SettingsName)
			if err != nil {
				logger.WithError(err).Error("Failed to load settings row")
				continue
			}
			if row == nil {
				row = &model.ScanSettings{Name: config.SettingsName}
			}

			row.SealedAccessKey = sealedAccess
			row.SealedSecretKey = sealedSecret
			row.UpdatedAt = time.Now()

			if err := settingsRep.Save(ctx, row); err != nil {
				logger.WithError(err).Error("Failed to persist sealed keys")
				continue
			}

			fmt.Println("Keys sealed and stored")

		case "show":
			row, err := settingsRep.Find(ctx, config.SettingsName)
			if err != nil {
				logger.WithError(err).Error("Failed to load settings row")
				continue
			}
			if row == nil || row.SealedAccessKey == "" || row.SealedSecretKey == "" {
				fmt.Println("No keys set")
				continue
			}
			fmt.Println("Keys are set")

		default:
			fmt.Println("Unknown command:", cmd)
			printUsage()
		}
	}
}
