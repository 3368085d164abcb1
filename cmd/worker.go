package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/approveflow/expense-service/internal/currency"
	"github.com/approveflow/expense-service/pkg/logger"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start and manage background workers such as the exchange-rate refresher.`,
}

// Currency refresh worker command
var currencyWorkerCmd = &cobra.Command{
	Use:   "currency",
	Short: "Start the exchange-rate refresh worker",
	Long:  `Keep the exchange-rate cache warm by periodically re-fetching rate pairs seen by the service.`,
	Run: func(cmd *cobra.Command, args []string) {
		startCurrencyWorker()
	},
}

func startCurrencyWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	client := currency.NewClient(currency.Config{
		APIURL:          config.Currency.APIURL,
		RequestTimeout:  config.Currency.RequestTimeout,
		CacheTTL:        config.Currency.CacheTTL,
		RefreshInterval: config.Currency.RefreshInterval,
	}, log)

	log.Info("currency refresh worker started",
		"api_url", config.Currency.APIURL,
		"refresh_interval", config.Currency.RefreshInterval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	log.Info("received signal, stopping worker", "signal", sig)
	client.Shutdown()
	log.Info("currency refresh worker stopped")
}

func init() {
	workerCmd.AddCommand(currencyWorkerCmd)
}
