package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"busfare/internal/domain"
	"busfare/internal/lock"
	"busfare/internal/payrail"
	"busfare/internal/repository"
)

// WalletFunder is implemented by rails that can credit demo wallets.
type WalletFunder interface {
	Fund(ctx context.Context, credential string, amount domain.Money) error
}

// BalanceCache holds short-lived balance snapshots for display.
type BalanceCache interface {
	GetBalance(ctx context.Context, accountID string) (domain.Money, bool, error)
	SetBalance(ctx context.Context, accountID string, balance domain.Money) error
	InvalidateBalance(ctx context.Context, accountID string) error
}

// AccountService handles rider accounts and debt payments.
type AccountService struct {
	accounts repository.AccountRepository
	history  repository.HistoryRepository
	rail     payrail.Rail
	engine   *SettlementEngine
	locker   lock.Locker
	cache    BalanceCache
	funder   WalletFunder
	notifier *NotificationService
	logger   logrus.FieldLogger
}

// AccountServiceDeps contains all dependencies needed by AccountService.
type AccountServiceDeps struct {
	Accounts repository.AccountRepository
	History  repository.HistoryRepository
	Rail     payrail.Rail
	Engine   *SettlementEngine
	Locker   lock.Locker
	Cache    BalanceCache // optional
	Funder   WalletFunder // optional
	Notifier *NotificationService
	Logger   logrus.FieldLogger
}

// NewAccountService creates a new AccountService.
func NewAccountService(deps AccountServiceDeps) *AccountService {
	locker := deps.Locker
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}

	return &AccountService{
		accounts: deps.Accounts,
		history:  deps.History,
		rail:     deps.Rail,
		engine:   deps.Engine,
		locker:   locker,
		cache:    deps.Cache,
		funder:   deps.Funder,
		notifier: deps.Notifier,
		logger:   deps.Logger,
	}
}

// RegisterRequest contains the parameters for registering an account.
type RegisterRequest struct {
	Name       string
	Credential string
}

// Register creates a new account with no debt.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*domain.Account, error) {
	if req.Name == "" {
		return nil, ErrInvalidAccountName
	}
	if req.Credential == "" {
		return nil, ErrInvalidCredential
	}

	now := time.Now()
	account := &domain.Account{
		ID:         uuid.New().String(),
		Name:       req.Name,
		Credential: req.Credential,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	s.logger.WithField("account_id", account.ID).Info("account registered")
	return account, nil
}

// GetAccount retrieves an account by ID.
func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}
	return s.accounts.GetByID(ctx, accountID)
}

// AccountSummary is an account with its current wallet balance.
type AccountSummary struct {
	Account *domain.Account
	Balance domain.Money
}

// Summary returns the account together with a display balance, served from
// cache when fresh.
func (s *AccountService) Summary(ctx context.Context, accountID string) (*AccountSummary, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if balance, ok, err := s.cache.GetBalance(ctx, accountID); err == nil && ok {
			return &AccountSummary{Account: account, Balance: balance}, nil
		}
	}

	balance, err := s.rail.BalanceOf(ctx, account.Credential)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetBalance(ctx, accountID, balance); err != nil {
			s.logger.WithError(err).Debug("balance cache write failed")
		}
	}

	return &AccountSummary{Account: account, Balance: balance}, nil
}

// PayDebt pays down as much outstanding debt as the wallet allows.
func (s *AccountService) PayDebt(ctx context.Context, accountID string) (*domain.SettlementOutcome, error) {
	if accountID == "" {
		return nil, ErrInvalidAccountID
	}

	unlock, err := s.locker.Lock(ctx, accountID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.engine.PayDownDebt(ctx, account)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, accountID)
	if s.notifier != nil {
		s.notifier.NotifyDebtPaid(ctx, accountID, outcome)
	}

	return outcome, nil
}

// TopUp credits the account's wallet on rails that support it.
func (s *AccountService) TopUp(ctx context.Context, accountID string, amount domain.Money) (domain.Money, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	if s.funder == nil {
		return 0, ErrTopUpUnsupported
	}

	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}

	if err := s.funder.Fund(ctx, account.Credential, amount); err != nil {
		return 0, err
	}
	s.invalidate(ctx, accountID)

	s.logger.WithFields(logrus.Fields{
		"account_id": accountID,
		"amount":     amount.String(),
	}).Info("wallet topped up")

	return s.rail.BalanceOf(ctx, account.Credential)
}

// History returns the account's settlement records, newest first.
func (s *AccountService) History(ctx context.Context, accountID string, limit int) ([]*domain.SettlementRecord, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return s.history.ListByAccount(ctx, accountID, limit)
}

// InvalidateBalance drops any cached balance for the account.
func (s *AccountService) InvalidateBalance(ctx context.Context, accountID string) {
	s.invalidate(ctx, accountID)
}

func (s *AccountService) invalidate(ctx context.Context, accountID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBalance(ctx, accountID); err != nil {
		s.logger.WithError(err).Debug("balance cache invalidation failed")
	}
}
