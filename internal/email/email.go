package email

import (
	"context"

	"github.com/rs/zerolog/log"

	"shipbooking/internal/kafka"
)

type Sender struct{}

func NewSender() *Sender {
	return &Sender{}
}

func (s *Sender) Send(ctx context.Context, event kafka.BookingEvent) error {
	log.Info().
		Int64("user_id", event.UserID).
		Str("type", event.Type).
		Str("reference", event.Reference).
		Msg("send booking notification")
	return nil
}
