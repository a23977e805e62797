package booking

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"shipbooking/internal/domain"
	"shipbooking/internal/repository"
)

// In-memory store with the same conditional-update semantics as the
// Postgres repositories, safe for concurrent use. Lets the scenario and
// concurrency tests observe the conservation invariant end to end.
type memStore struct {
	mu            sync.Mutex
	voyage        domain.Voyage
	containerType domain.ContainerType
	total         int
	available     int
	priceCents    int64
	nextID        int64
	nextRef       int64
	bookings      map[string]*domain.Booking
	transactions  []domain.TransactionRecord
	contracts     []domain.ContractRecord
}

func newMemStore(capacity int, priceCents int64) *memStore {
	return &memStore{
		voyage: domain.Voyage{
			ID:         1,
			VesselName: "MV Meridian",
			FromPort:   "CNSHA",
			ToPort:     "DEHAM",
			Status:     domain.VoyageStatusAvailable,
		},
		containerType: domain.ContainerType40GP,
		total:         capacity,
		available:     capacity,
		priceCents:    priceCents,
		bookings:      make(map[string]*domain.Booking),
	}
}

func (s *memStore) nonCancelledQuantity() int {
	n := 0
	for _, b := range s.bookings {
		if b.Status != domain.BookingStatusCancelled {
			n += b.Quantity
		}
	}
	return n
}

type memVoyages struct{ s *memStore }

func (r memVoyages) List(ctx context.Context) ([]domain.Voyage, error) {
	return []domain.Voyage{r.s.voyage}, nil
}

func (r memVoyages) GetByID(ctx context.Context, id int64) (*domain.Voyage, error) {
	if id != r.s.voyage.ID {
		return nil, errors.Wrapf(domain.ErrVoyageNotFound, "voyage %d", id)
	}
	v := r.s.voyage
	return &v, nil
}

type memAllocations struct{ s *memStore }

func (r memAllocations) Get(ctx context.Context, voyageID int64, containerType domain.ContainerType) (*domain.ContainerAllocation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return &domain.ContainerAllocation{
		VoyageID:          voyageID,
		ContainerType:     containerType,
		TotalQuantity:     r.s.total,
		AvailableQuantity: r.s.available,
		UnitPriceCents:    r.s.priceCents,
	}, nil
}

func (r memAllocations) ListByVoyage(ctx context.Context, voyageID int64) ([]domain.ContainerAllocation, error) {
	a, _ := r.Get(ctx, voyageID, r.s.containerType)
	return []domain.ContainerAllocation{*a}, nil
}

func (r memAllocations) Reserve(ctx context.Context, q repository.Querier, voyageID int64, containerType domain.ContainerType, qty int) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.available < qty {
		return 0, errors.Wrapf(domain.ErrInsufficientCapacity, "requested %d, only %d left", qty, r.s.available)
	}
	r.s.available -= qty
	return r.s.priceCents, nil
}

func (r memAllocations) Release(ctx context.Context, q repository.Querier, voyageID int64, containerType domain.ContainerType, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.available += qty
	return nil
}

type memBookings struct{ s *memStore }

func (r memBookings) Create(ctx context.Context, q repository.Querier, booking *domain.Booking) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	booking.ID = r.s.nextID
	booking.Status = domain.BookingStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	r.s.bookings[booking.Reference] = &copied
	return nil
}

func (r memBookings) get(reference string) (*domain.Booking, error) {
	b, ok := r.s.bookings[reference]
	if !ok {
		return nil, errors.Wrapf(domain.ErrBookingNotFound, "reference %s", reference)
	}
	copied := *b
	return &copied, nil
}

func (r memBookings) GetByReference(ctx context.Context, q repository.Querier, reference string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(reference)
}

func (r memBookings) GetByReferenceForUpdate(ctx context.Context, q repository.Querier, reference string) (*domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.get(reference)
}

func (r memBookings) UpdateStatus(ctx context.Context, q repository.Querier, id int64, status domain.BookingStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ID == id {
			b.Status = status
			return nil
		}
	}
	return errors.Wrapf(domain.ErrBookingNotFound, "id %d", id)
}

func (r memBookings) MarkCancelled(ctx context.Context, q repository.Querier, id int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, b := range r.s.bookings {
		if b.ID != id {
			continue
		}
		if b.Status.Terminal() || b.CapacityReleased {
			return false, nil
		}
		b.Status = domain.BookingStatusCancelled
		b.CapacityReleased = true
		return true, nil
	}
	return false, errors.Wrapf(domain.ErrBookingNotFound, "id %d", id)
}

func (r memBookings) ListPendingBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var pending []domain.Booking
	for _, b := range r.s.bookings {
		if b.Status == domain.BookingStatusPending && !b.CreatedAt.After(deadline) {
			pending = append(pending, *b)
		}
	}
	return pending, nil
}

type memLedger struct{ s *memStore }

func (r memLedger) AppendTransaction(ctx context.Context, q repository.Querier, booking *domain.Booking) (*domain.TransactionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := domain.TransactionRecord{
		ID:          uuid.New(),
		BookingID:   booking.ID,
		Type:        domain.TransactionTypeBookingPayment,
		PayerUserID: booking.UserID,
		Payee:       "CARRIER",
		AmountCents: booking.TotalPriceCents,
		Status:      domain.TransactionStatusPending,
		CreatedAt:   time.Now(),
	}
	r.s.transactions = append(r.s.transactions, rec)
	return &rec, nil
}

func (r memLedger) AppendContract(ctx context.Context, q repository.Querier, booking *domain.Booking) (*domain.ContractRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec := domain.ContractRecord{
		ID:         uuid.New(),
		BookingID:  booking.ID,
		Terms:      []byte(`{}`),
		Status:     domain.ContractStatusDeployed,
		DeployedAt: time.Now(),
	}
	r.s.contracts = append(r.s.contracts, rec)
	return &rec, nil
}

func (r memLedger) SettleTransaction(ctx context.Context, q repository.Querier, bookingID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.transactions {
		if r.s.transactions[i].BookingID == bookingID && r.s.transactions[i].Status == domain.TransactionStatusPending {
			r.s.transactions[i].Status = domain.TransactionStatusConfirmed
		}
	}
	return nil
}

func (r memLedger) ExecuteContract(ctx context.Context, q repository.Querier, contractID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.contracts {
		if r.s.contracts[i].ID != contractID {
			continue
		}
		if r.s.contracts[i].Status == domain.ContractStatusExecuted {
			return errors.Wrapf(domain.ErrContractExecuted, "contract %s", contractID)
		}
		now := time.Now()
		r.s.contracts[i].Status = domain.ContractStatusExecuted
		r.s.contracts[i].ExecutedAt = &now
		return nil
	}
	return errors.Wrapf(domain.ErrContractNotFound, "contract %s", contractID)
}

func (r memLedger) TransactionsByBooking(ctx context.Context, q repository.Querier, bookingID int64) ([]domain.TransactionRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.TransactionRecord
	for _, rec := range r.s.transactions {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r memLedger) ContractsByBooking(ctx context.Context, q repository.Querier, bookingID int64) ([]domain.ContractRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.ContractRecord
	for _, rec := range r.s.contracts {
		if rec.BookingID == bookingID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memRefs struct{ s *memStore }

func (r memRefs) Next(ctx context.Context, at time.Time) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextRef++
	return fmt.Sprintf("SHIP-%s-%04d", at.UTC().Format("20060102"), r.s.nextRef), nil
}

func newMemService(s *memStore) *BookingService {
	return NewBookingService(
		memBookings{s}, memVoyages{s}, memAllocations{s}, memLedger{s}, memRefs{s},
		passTx{}, nil, nil, "", time.Minute,
	)
}

func createInput(qty int) CreateBookingInput {
	return CreateBookingInput{
		UserID:        1,
		VoyageID:      1,
		ContainerType: "40GP",
		Quantity:      qty,
		Cargo:         domain.CargoMeta{Description: "electronics", WeightKg: 12000},
	}
}

// Five containers at 100.00; booking three leaves two and snapshots the
// total price. A second three-container request is rejected without
// touching state, cancel restores the pool once, and a repeated cancel
// is rejected without restoring again.
func TestBookingService_CapacityLifecycle(t *testing.T) {
	store := newMemStore(5, 10000)
	service := newMemService(store)
	ctx := context.Background()

	booked, err := service.CreateBooking(ctx, createInput(3))
	assert.NoError(t, err)
	assert.Equal(t, int64(30000), booked.TotalPriceCents)
	assert.Equal(t, 2, store.available)

	rejected, err := service.CreateBooking(ctx, createInput(3))
	assert.Nil(t, rejected)
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	assert.Equal(t, 2, store.available)

	cancelled, err := service.CancelBooking(ctx, booked.Reference)
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, store.available)

	again, err := service.CancelBooking(ctx, booked.Reference)
	assert.Nil(t, again)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
	assert.Equal(t, 5, store.available)

	invalid, err := service.CreateBooking(ctx, createInput(0))
	assert.Nil(t, invalid)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 5, store.available)
}

// Price changes after creation never touch an existing booking.
func TestBookingService_PriceSnapshot(t *testing.T) {
	store := newMemStore(5, 10000)
	service := newMemService(store)
	ctx := context.Background()

	booked, err := service.CreateBooking(ctx, createInput(2))
	assert.NoError(t, err)

	store.mu.Lock()
	store.priceCents = 99999
	store.mu.Unlock()

	details, err := service.GetBooking(ctx, booked.Reference)
	assert.NoError(t, err)
	assert.Equal(t, int64(10000), details.Booking.UnitPriceCents)
	assert.Equal(t, int64(20000), details.Booking.TotalPriceCents)
}

func TestBookingService_GetBooking_RoundTrip(t *testing.T) {
	store := newMemStore(5, 10000)
	service := newMemService(store)
	ctx := context.Background()

	booked, err := service.CreateBooking(ctx, createInput(3))
	assert.NoError(t, err)

	details, err := service.GetBooking(ctx, booked.Reference)
	assert.NoError(t, err)
	assert.Equal(t, booked.Reference, details.Booking.Reference)
	assert.Equal(t, 3, details.Booking.Quantity)
	assert.Equal(t, int64(30000), details.Booking.TotalPriceCents)

	assert.Len(t, details.Transactions, 1)
	assert.Equal(t, details.Booking.ID, details.Transactions[0].BookingID)
	assert.Equal(t, int64(30000), details.Transactions[0].AmountCents)
	assert.Equal(t, domain.TransactionStatusPending, details.Transactions[0].Status)

	assert.Len(t, details.Contracts, 1)
	assert.Equal(t, details.Booking.ID, details.Contracts[0].BookingID)
	assert.Equal(t, domain.ContractStatusDeployed, details.Contracts[0].Status)
}

func TestBookingService_ConfirmAndSettle(t *testing.T) {
	store := newMemStore(5, 10000)
	service := newMemService(store)
	ctx := context.Background()

	booked, err := service.CreateBooking(ctx, createInput(1))
	assert.NoError(t, err)

	settled, err := service.SettlePendingBookings(ctx, 0)
	assert.NoError(t, err)
	assert.Len(t, settled, 1)

	details, err := service.GetBooking(ctx, booked.Reference)
	assert.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, details.Booking.Status)
	assert.Equal(t, domain.TransactionStatusConfirmed, details.Transactions[0].Status)
	assert.Equal(t, domain.ContractStatusExecuted, details.Contracts[0].Status)
	assert.NotNil(t, details.Contracts[0].ExecutedAt)

	// Settling again finds nothing pending.
	settled, err = service.SettlePendingBookings(ctx, 0)
	assert.NoError(t, err)
	assert.Empty(t, settled)
}

// N concurrent single-container requests against capacity C succeed
// exactly min(N, C) times and the pool never goes negative.
func TestBookingService_ConcurrentCreates(t *testing.T) {
	const capacity = 5
	const requests = 20

	store := newMemStore(capacity, 10000)
	service := newMemService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.CreateBooking(ctx, createInput(1))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, capacityFailures := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, domain.ErrInsufficientCapacity):
			capacityFailures++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	assert.Equal(t, capacity, successes)
	assert.Equal(t, requests-capacity, capacityFailures)
	assert.Equal(t, 0, store.available)
	assert.Equal(t, capacity, store.nonCancelledQuantity())
}
