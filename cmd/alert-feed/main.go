package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"ms-gatekeeper/internal/config"
	"ms-gatekeeper/internal/kafka"
	"ms-gatekeeper/internal/logger"
	"ms-gatekeeper/internal/models"
)

// alert-feed tails the alert topic, for ops terminals at the venue that want
// the duplicate/suspicious stream without polling the HTTP API.

func main() {
	log := logger.NewLogger()
	defer log.Close()

	_ = godotenv.Load()
	cfg := config.Load()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topics.AlertRaised, cfg.Kafka.GroupID+"-alert-feed")
	defer consumer.Close()

	log.Info("APP", fmt.Sprintf("Alert feed consuming %s from %v", cfg.Kafka.Topics.AlertRaised, cfg.Kafka.Brokers))

	go consumer.StartAlerts(func(alert models.RealtimeAlert) {
		log.LogAlert(alert.AlertType, fmt.Sprintf("[%s] event=%s pass=%s gate=%s: %s",
			alert.Severity, alert.EventID, alert.PassID, alert.GateID, alert.Message))
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("APP", "Alert feed shutting down")
}
