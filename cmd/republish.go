package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psds-microservice/cityfix/internal/database"
	"github.com/psds-microservice/cityfix/internal/handler"
	"github.com/psds-microservice/cityfix/internal/kafka"
	"github.com/psds-microservice/cityfix/internal/model"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var republishCmd = &cobra.Command{
	Use:   "republish-tickets",
	Short: "Publish a ticket.updated event for every stored ticket (rebuilds downstream consumers)",
	RunE:  runRepublish,
}

func init() {
	rootCmd.AddCommand(republishCmd)
}

const republishBatch = 100

func runRepublish(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("republish")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket)
	if !producer.Enabled() {
		return errors.New("republish: KAFKA_BROKERS and KAFKA_TOPIC_TICKET must be set")
	}
	defer producer.Close()

	conn, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var sent int
	var batch []model.Ticket
	res := conn.WithContext(ctx).Preload("Comments").
		FindInBatches(&batch, republishBatch, func(_ *gorm.DB, _ int) error {
			for i := range batch {
				producer.ProduceTicketEvent(ctx, "ticket.updated", handler.TicketEventPayload(&batch[i]))
			}
			sent += len(batch)
			log.Info().Int("sent", sent).Msg("republish: progress")
			return nil
		})
	if res.Error != nil {
		return fmt.Errorf("list tickets: %w", res.Error)
	}
	log.Info().Int("total", sent).Msg("republish: done")
	return nil
}
