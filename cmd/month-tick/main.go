// Command month-tick publishes one month-tick message, typically from cron
// on the first of the month. The rollover worker consumes it; its own timer
// covers the case where this never runs.
package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"

	"pockets/internal/amqp"
	"pockets/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("configuration validation failed: %v", err)
	}
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is not set")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPEventsQueue, cfg.AMQPRolloverQueue)
	if err != nil {
		log.Fatalf("connect AMQP: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	if err := client.PublishMonthTick(ctx, int(now.Month()), now.Year()); err != nil {
		log.Fatalf("publish month tick: %v", err)
	}
}
