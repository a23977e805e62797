package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"shipbooking/internal/domain"
	"shipbooking/internal/kafka"
	"shipbooking/internal/repository"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, reference string) (*domain.Booking, error)
	GetBooking(ctx context.Context, reference string) (*BookingDetails, error)
	SettlePendingBookings(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error)
}

// TxRunner scopes one logical unit of work: capacity decrement, booking
// insert and ledger appends commit or roll back together.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q repository.Querier) error) error
}

type Cache interface {
	AcquireReferenceLock(ctx context.Context, reference string, ttl time.Duration) (bool, error)
	ReleaseReferenceLock(ctx context.Context, reference string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	bookings           repository.BookingRepository
	voyages            repository.VoyageRepository
	allocations        repository.AllocationRepository
	ledger             repository.LedgerRepository
	refs               repository.ReferenceGenerator
	tx                 TxRunner
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	referenceLockTTL   time.Duration
	logger             zerolog.Logger
}

type CreateBookingInput struct {
	UserID        int64
	VoyageID      int64
	ContainerType string
	Quantity      int
	Cargo         domain.CargoMeta
}

// BookingDetails is a booking snapshot together with its ledger entries.
type BookingDetails struct {
	Booking      domain.Booking
	Transactions []domain.TransactionRecord
	Contracts    []domain.ContractRecord
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func WithLogger(logger zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.logger = logger
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	voyages repository.VoyageRepository,
	allocations repository.AllocationRepository,
	ledger repository.LedgerRepository,
	refs repository.ReferenceGenerator,
	tx TxRunner,
	cache Cache,
	producer Producer,
	bookingTopic string,
	referenceLockTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:         bookings,
		voyages:          voyages,
		allocations:      allocations,
		ledger:           ledger,
		refs:             refs,
		tx:               tx,
		cache:            cache,
		producer:         producer,
		bookingTopic:     bookingTopic,
		referenceLockTTL: referenceLockTTL,
		logger:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.Quantity <= 0 {
		return nil, errors.Wrapf(domain.ErrInvalidQuantity, "got %d", input.Quantity)
	}
	containerType := domain.ContainerType(input.ContainerType)
	if !containerType.Valid() {
		return nil, errors.Wrapf(domain.ErrInvalidContainerType, "%q", input.ContainerType)
	}
	if input.Cargo.Description == "" {
		return nil, errors.Wrap(domain.ErrInvalidCargo, "description is required")
	}
	if input.Cargo.WeightKg < 0 {
		return nil, errors.Wrap(domain.ErrInvalidCargo, "weight must not be negative")
	}

	voyage, err := s.voyages.GetByID(ctx, input.VoyageID)
	if err != nil {
		return nil, err
	}
	if voyage.Status != domain.VoyageStatusAvailable {
		return nil, errors.Wrapf(domain.ErrVoyageUnavailable, "voyage %d is %s", voyage.ID, voyage.Status)
	}

	// The reference is drawn outside the unit of work: the day-sequence
	// upsert locks one shared row, and holding that lock until commit
	// would serialize unrelated creates. A burned sequence number on a
	// later rollback is fine.
	reference, err := s.refs.Next(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		Reference:     reference,
		UserID:        input.UserID,
		VoyageID:      input.VoyageID,
		ContainerType: containerType,
		Quantity:      input.Quantity,
		CargoMeta:     input.Cargo,
	}

	err = s.tx.WithinTx(ctx, func(q repository.Querier) error {
		unitPriceCents, err := s.allocations.Reserve(ctx, q, input.VoyageID, containerType, input.Quantity)
		if err != nil {
			return err
		}
		booking.UnitPriceCents = unitPriceCents
		booking.TotalPriceCents = unitPriceCents * int64(input.Quantity)

		if err := s.bookings.Create(ctx, q, booking); err != nil {
			return err
		}
		if _, err := s.ledger.AppendTransaction(ctx, q, booking); err != nil {
			return err
		}
		if _, err := s.ledger.AppendContract(ctx, q, booking); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_created", booking)
	return booking, nil
}

// ConfirmBooking settles a pending booking: the booking and its
// transaction record move PENDING -> CONFIRMED and the contract is
// executed, all in one transaction.
func (s *BookingService) ConfirmBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	unlock, err := s.lockReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var confirmed *domain.Booking
	err = s.tx.WithinTx(ctx, func(q repository.Querier) error {
		current, err := s.bookings.GetByReferenceForUpdate(ctx, q, reference)
		if err != nil {
			return err
		}
		if err := checkTransition(current.Status, domain.BookingStatusConfirmed); err != nil {
			return err
		}

		if err := s.bookings.UpdateStatus(ctx, q, current.ID, domain.BookingStatusConfirmed); err != nil {
			return err
		}
		if err := s.ledger.SettleTransaction(ctx, q, current.ID); err != nil {
			return err
		}

		contracts, err := s.ledger.ContractsByBooking(ctx, q, current.ID)
		if err != nil {
			return err
		}
		for _, c := range contracts {
			if c.Status != domain.ContractStatusDeployed {
				continue
			}
			if err := s.ledger.ExecuteContract(ctx, q, c.ID); err != nil {
				return err
			}
		}

		current.Status = domain.BookingStatusConfirmed
		confirmed = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_confirmed", confirmed)
	return confirmed, nil
}

// CancelBooking restores the booking's capacity exactly once. The
// capacity_released flag persisted with the status flip makes a retried
// cancel observationally identical to the first one, minus the error.
func (s *BookingService) CancelBooking(ctx context.Context, reference string) (*domain.Booking, error) {
	unlock, err := s.lockReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var cancelled *domain.Booking
	err = s.tx.WithinTx(ctx, func(q repository.Querier) error {
		current, err := s.bookings.GetByReferenceForUpdate(ctx, q, reference)
		if err != nil {
			return err
		}
		if err := checkTransition(current.Status, domain.BookingStatusCancelled); err != nil {
			return err
		}

		releasedNow, err := s.bookings.MarkCancelled(ctx, q, current.ID)
		if err != nil {
			return err
		}
		if releasedNow {
			if err := s.allocations.Release(ctx, q, current.VoyageID, current.ContainerType, current.Quantity); err != nil {
				return err
			}
		}

		current.Status = domain.BookingStatusCancelled
		current.CapacityReleased = true
		cancelled = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, "booking_cancelled", cancelled)
	return cancelled, nil
}

// GetBooking reads the booking and its ledger entries in one
// transaction, so the snapshot cannot straddle a concurrent settlement.
func (s *BookingService) GetBooking(ctx context.Context, reference string) (*BookingDetails, error) {
	var details *BookingDetails
	err := s.tx.WithinTx(ctx, func(q repository.Querier) error {
		booking, err := s.bookings.GetByReference(ctx, q, reference)
		if err != nil {
			return err
		}
		transactions, err := s.ledger.TransactionsByBooking(ctx, q, booking.ID)
		if err != nil {
			return err
		}
		contracts, err := s.ledger.ContractsByBooking(ctx, q, booking.ID)
		if err != nil {
			return err
		}
		details = &BookingDetails{
			Booking:      *booking,
			Transactions: transactions,
			Contracts:    contracts,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return details, nil
}

// SettlePendingBookings confirms bookings that stayed pending longer
// than olderThan, simulating settlement by an external payment process.
func (s *BookingService) SettlePendingBookings(ctx context.Context, olderThan time.Duration) ([]domain.Booking, error) {
	deadline := time.Now().Add(-olderThan)
	pending, err := s.bookings.ListPendingBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}

	var settled []domain.Booking
	for _, b := range pending {
		confirmed, err := s.ConfirmBooking(ctx, b.Reference)
		if err != nil {
			// A concurrent cancel may win the race; skip and move on.
			s.logger.Warn().Err(err).Str("reference", b.Reference).Msg("settle booking")
			continue
		}
		settled = append(settled, *confirmed)
	}
	return settled, nil
}

func checkTransition(from, to domain.BookingStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	switch from {
	case domain.BookingStatusCancelled:
		return domain.ErrAlreadyCancelled
	case domain.BookingStatusCompleted:
		return domain.ErrAlreadyCompleted
	default:
		return errors.Wrapf(domain.ErrNotPending, "booking is %s", from)
	}
}

func (s *BookingService) lockReference(ctx context.Context, reference string) (func(), error) {
	if s.cache == nil {
		return func() {}, nil
	}
	ok, err := s.cache.AcquireReferenceLock(ctx, reference, s.referenceLockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(domain.ErrReferenceLocked, "reference %s", reference)
	}
	return func() {
		_ = s.cache.ReleaseReferenceLock(ctx, reference)
	}, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:            eventType,
		Reference:       booking.Reference,
		UserID:          booking.UserID,
		VoyageID:        booking.VoyageID,
		ContainerType:   string(booking.ContainerType),
		Quantity:        booking.Quantity,
		TotalPriceCents: booking.TotalPriceCents,
		Status:          string(booking.Status),
		CreatedAt:       booking.CreatedAt,
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.Reference, event); err != nil {
		s.logger.Warn().Err(err).Str("reference", booking.Reference).Str("type", eventType).Msg("publish booking event")
		return
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.Reference, event); err != nil {
			s.logger.Warn().Err(err).Str("reference", booking.Reference).Str("type", eventType).Msg("publish notification event")
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
