package connectors

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	UpbitBaseURL      string `envconfig:"UPBIT_BASE_URL" default:"https://api.upbit.com"`
	UpbitAccessKey    string `envconfig:"UPBIT_ACCESS_KEY"`
	UpbitSecretKey    string `envconfig:"UPBIT_SECRET_KEY"`
	RequestTimeoutSec int    `envconfig:"UPBIT_REQUEST_TIMEOUT_SEC" default:"15"`
	QuoteCurrency     string `envconfig:"UPBIT_QUOTE_CURRENCY" default:"KRW"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
