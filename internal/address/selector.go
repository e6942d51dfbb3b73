// Package address manages the user's address book and the selection state
// the checkout flow reads from. Loading the book is fallible, so the
// controller tracks an explicit lifecycle per user and budgets retries.
package address

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/delali3/era-store-sub002/internal/domain"
	"github.com/delali3/era-store-sub002/internal/repository"
	apperrors "github.com/delali3/era-store-sub002/pkg/errors"
	"github.com/delali3/era-store-sub002/pkg/validator"
)

// State is the lifecycle of a user's address book view.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateLoading       State = "loading"
	StateReady         State = "ready"
	StateError         State = "error"
)

// MaxLoadAttempts is the retry budget for loading the address book. Once
// spent, further loads fail fast without touching the store until a
// successful load resets the budget.
const MaxLoadAttempts = 3

// Snapshot is a read-only view of a user's selection state.
type Snapshot struct {
	State             State            `json:"state"`
	Addresses         []domain.Address `json:"addresses"`
	SelectedAddressID string           `json:"selected_address_id,omitempty"`
	AttemptsLeft      int              `json:"attempts_left"`
	LastError         string           `json:"last_error,omitempty"`
}

// Input holds the fields for creating or updating an address.
type Input struct {
	FirstName    string `json:"first_name" validate:"required"`
	LastName     string `json:"last_name" validate:"required"`
	AddressLine1 string `json:"address_line1" validate:"required"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city" validate:"required"`
	State        string `json:"state" validate:"required"`
	PostalCode   string `json:"postal_code" validate:"required"`
	Country      string `json:"country" validate:"required,len=2"`
	Phone        string `json:"phone" validate:"required"`
	Email        string `json:"email" validate:"omitempty,email"`
}

type userState struct {
	state      State
	addresses  []domain.Address
	selectedID string
	attempts   int
	lastError  string
}

// Selector is the per-user address selection controller.
type Selector struct {
	repo   repository.AddressRepository
	logger *slog.Logger

	mu    sync.Mutex
	users map[string]*userState
}

// NewSelector creates a new address selection controller.
func NewSelector(repo repository.AddressRepository, logger *slog.Logger) *Selector {
	return &Selector{
		repo:   repo,
		logger: logger,
		users:  make(map[string]*userState),
	}
}

func (s *Selector) stateFor(userID string) *userState {
	if st, ok := s.users[userID]; ok {
		return st
	}
	st := &userState{state: StateUninitialized}
	s.users[userID] = st
	return st
}

func (s *Selector) snapshotLocked(st *userState) Snapshot {
	addresses := make([]domain.Address, len(st.addresses))
	copy(addresses, st.addresses)

	left := MaxLoadAttempts - st.attempts
	if left < 0 {
		left = 0
	}

	return Snapshot{
		State:             st.state,
		Addresses:         addresses,
		SelectedAddressID: st.selectedID,
		AttemptsLeft:      left,
		LastError:         st.lastError,
	}
}

// Snapshot returns the current selection view for the user.
func (s *Selector) Snapshot(userID string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(s.stateFor(userID))
}

// Load fetches the user's address book and moves the view to ready. A book
// that is already ready and non-empty, or already loading, is left alone. A
// failed fetch moves it to error and burns one retry attempt; once the
// budget is spent Load fails fast without calling the store. A successful
// load resets the budget and auto-selects the default address, falling
// back to the first entry.
func (s *Selector) Load(ctx context.Context, userID string) (Snapshot, error) {
	return s.load(ctx, userID, false)
}

// reload fetches unconditionally. Mutations go through here so their
// effects are visible even when the book was already ready.
func (s *Selector) reload(ctx context.Context, userID string) (Snapshot, error) {
	return s.load(ctx, userID, true)
}

func (s *Selector) load(ctx context.Context, userID string, force bool) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, apperrors.InvalidInput("user id is required")
	}

	s.mu.Lock()
	st := s.stateFor(userID)
	if !force && (st.state == StateLoading || (st.state == StateReady && len(st.addresses) > 0)) {
		snap := s.snapshotLocked(st)
		s.mu.Unlock()
		return snap, nil
	}
	if st.attempts >= MaxLoadAttempts {
		st.state = StateError
		snap := s.snapshotLocked(st)
		s.mu.Unlock()
		return snap, apperrors.Conflict("address book load retries exhausted")
	}
	st.state = StateLoading
	s.mu.Unlock()

	addresses, err := s.repo.ListByUserID(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		st.attempts++
		st.state = StateError
		st.lastError = err.Error()
		s.logger.ErrorContext(ctx, "address book load failed",
			slog.String("user_id", userID),
			slog.Int("attempt", st.attempts),
			slog.String("error", err.Error()),
		)
		return s.snapshotLocked(st), fmt.Errorf("load addresses: %w", err)
	}

	st.attempts = 0
	st.state = StateReady
	st.lastError = ""
	st.addresses = addresses
	s.reselectLocked(st)

	return s.snapshotLocked(st), nil
}

// reselectLocked keeps the selection pointing at a live address: an already
// selected id that still exists is kept, otherwise the default wins, then
// the first entry, then nothing.
func (s *Selector) reselectLocked(st *userState) {
	if st.selectedID != "" {
		for _, a := range st.addresses {
			if a.ID == st.selectedID {
				return
			}
		}
		st.selectedID = ""
	}

	for _, a := range st.addresses {
		if a.IsDefault {
			st.selectedID = a.ID
			return
		}
	}

	if len(st.addresses) > 0 {
		st.selectedID = st.addresses[0].ID
	}
}

// Select marks the given address as the one checkout should ship to. The
// address must be in the loaded book.
func (s *Selector) Select(userID, addressID string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateFor(userID)
	if st.state != StateReady {
		return s.snapshotLocked(st), apperrors.Conflict("address book is not loaded")
	}

	for _, a := range st.addresses {
		if a.ID == addressID {
			st.selectedID = addressID
			return s.snapshotLocked(st), nil
		}
	}

	return s.snapshotLocked(st), apperrors.NotFound("address", addressID)
}

// Add validates and saves a new address. The user's first address is always
// stored as the default regardless of the input flag.
func (s *Selector) Add(ctx context.Context, userID string, input *Input, makeDefault bool) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, apperrors.InvalidInput("user id is required")
	}
	if err := validator.Validate(input); err != nil {
		return Snapshot{}, err
	}

	count, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count addresses: %w", err)
	}

	now := time.Now().UTC()
	addr := &domain.Address{
		ID:           uuid.New().String(),
		UserID:       userID,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		PostalCode:   input.PostalCode,
		Country:      input.Country,
		Phone:        input.Phone,
		Email:        input.Email,
		IsDefault:    makeDefault || count == 0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, addr); err != nil {
		return Snapshot{}, fmt.Errorf("create address: %w", err)
	}

	if addr.IsDefault && count > 0 {
		if err := s.repo.SetDefault(ctx, userID, addr.ID); err != nil {
			return Snapshot{}, fmt.Errorf("set default address: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "address added",
		slog.String("user_id", userID),
		slog.String("address_id", addr.ID),
		slog.Bool("is_default", addr.IsDefault),
	)

	return s.reload(ctx, userID)
}

// Update validates and applies changes to an existing address.
func (s *Selector) Update(ctx context.Context, userID, addressID string, input *Input) (Snapshot, error) {
	if err := validator.Validate(input); err != nil {
		return Snapshot{}, err
	}

	existing, err := s.repo.GetByID(ctx, addressID)
	if err != nil {
		return Snapshot{}, err
	}
	if existing.UserID != userID {
		return Snapshot{}, apperrors.Forbidden("address belongs to another user")
	}

	existing.FirstName = input.FirstName
	existing.LastName = input.LastName
	existing.AddressLine1 = input.AddressLine1
	existing.AddressLine2 = input.AddressLine2
	existing.City = input.City
	existing.State = input.State
	existing.PostalCode = input.PostalCode
	existing.Country = input.Country
	existing.Phone = input.Phone
	existing.Email = input.Email

	if err := s.repo.Update(ctx, existing); err != nil {
		return Snapshot{}, fmt.Errorf("update address: %w", err)
	}

	return s.reload(ctx, userID)
}

// Delete removes an address. If the deleted address was selected, the
// selection falls back to the default or first remaining address.
func (s *Selector) Delete(ctx context.Context, userID, addressID string) (Snapshot, error) {
	existing, err := s.repo.GetByID(ctx, addressID)
	if err != nil {
		return Snapshot{}, err
	}
	if existing.UserID != userID {
		return Snapshot{}, apperrors.Forbidden("address belongs to another user")
	}

	if err := s.repo.Delete(ctx, addressID); err != nil {
		return Snapshot{}, fmt.Errorf("delete address: %w", err)
	}

	s.logger.InfoContext(ctx, "address deleted",
		slog.String("user_id", userID),
		slog.String("address_id", addressID),
	)

	return s.reload(ctx, userID)
}

// SetDefault promotes the address to the user's default. The previous
// default is demoted in the same transaction.
func (s *Selector) SetDefault(ctx context.Context, userID, addressID string) (Snapshot, error) {
	if err := s.repo.SetDefault(ctx, userID, addressID); err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.stateFor(userID).selectedID = addressID
	s.mu.Unlock()

	return s.reload(ctx, userID)
}

// Selected returns the currently selected address, or nil when none.
func (s *Selector) Selected(userID string) *domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.stateFor(userID)
	for i := range st.addresses {
		if st.addresses[i].ID == st.selectedID {
			a := st.addresses[i]
			return &a
		}
	}
	return nil
}
