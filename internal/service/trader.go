package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/store"
)

const passwordSpecialChars = "!@#$%^&*()-_=+[]{};:,.<>?"

// RegisterTraderRequest represents the input for trader registration.
type RegisterTraderRequest struct {
	FirstName       string
	LastName        string
	Tradername      string
	Password        string
	PasswordConfirm string
}

// TraderService handles registration, login and session lookup.
type TraderService struct {
	store      store.Store
	sessions   *store.SessionStore
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

// NewTraderService creates a new TraderService with the given dependencies.
func NewTraderService(st store.Store, sessions *store.SessionStore, logger *slog.Logger) *TraderService {
	return &TraderService{
		store:      st,
		sessions:   sessions,
		logger:     logger,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

// normalizeName trims a personal name and capitalizes its first letter,
// lowering the rest.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func validatePassword(password string) error {
	var msg string
	switch {
	case strings.TrimSpace(password) == "":
		msg = "Password is required."
	case strings.ContainsRune(password, ' '):
		msg = "Password must not contain spaces."
	case len(password) < 8:
		msg = "Password must be at least 8 characters long."
	case !strings.ContainsFunc(password, unicode.IsDigit):
		msg = "Password must include at least one number."
	case !strings.ContainsFunc(password, unicode.IsUpper):
		msg = "Password must include at least one uppercase letter."
	case !strings.ContainsFunc(password, unicode.IsLower):
		msg = "Password must include at least one lowercase letter."
	case !strings.ContainsAny(password, passwordSpecialChars):
		msg = "Password must include at least one special character."
	default:
		return nil
	}
	return &domain.ValidationError{Message: msg}
}

// Register validates the request and creates a trader with a bcrypt hash of
// the password.
func (s *TraderService) Register(ctx context.Context, req RegisterTraderRequest) (*domain.Trader, error) {
	first := normalizeName(req.FirstName)
	if first == "" {
		return nil, &domain.ValidationError{Message: "First name is required."}
	}
	last := normalizeName(req.LastName)
	if last == "" {
		return nil, &domain.ValidationError{Message: "Last name is required."}
	}
	tradername := strings.TrimSpace(req.Tradername)
	if tradername == "" {
		return nil, &domain.ValidationError{Message: "Tradername is required."}
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.PasswordConfirm) == "" {
		return nil, &domain.ValidationError{Message: "Password confirmation is required."}
	}
	if req.PasswordConfirm != req.Password {
		return nil, &domain.ValidationError{Message: "Passwords must match."}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	trader := &domain.Trader{
		FirstName:    first,
		LastName:     last,
		Tradername:   tradername,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		_, err := tx.InsertTrader(trader)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("trader registered",
		slog.Int64("trader_id", trader.TraderID),
		slog.String("tradername", trader.Tradername),
	)
	return trader, nil
}

// Login checks the credentials and opens a session, returning its token.
// Unknown names and wrong passwords are indistinguishable to the caller.
func (s *TraderService) Login(ctx context.Context, tradername, password string) (string, *domain.Trader, error) {
	var trader *domain.Trader
	err := s.store.View(ctx, func(r store.Reader) error {
		var err error
		trader, err = r.GetTraderByName(strings.TrimSpace(tradername))
		return err
	})
	if errors.Is(err, domain.ErrTraderNotFound) {
		return "", nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword(trader.PasswordHash, []byte(password)); err != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token := s.sessions.Create(trader.TraderID)
	s.logger.Info("trader logged in", slog.Int64("trader_id", trader.TraderID))
	return token, trader, nil
}

// Logout ends the session identified by token.
func (s *TraderService) Logout(token string) {
	s.sessions.Delete(token)
}

// Authenticate resolves a session token to its trader.
func (s *TraderService) Authenticate(ctx context.Context, token string) (*domain.Trader, error) {
	traderID, err := s.sessions.Lookup(token)
	if err != nil {
		return nil, err
	}
	var trader *domain.Trader
	err = s.store.View(ctx, func(r store.Reader) error {
		var err error
		trader, err = r.GetTrader(traderID)
		return err
	})
	if errors.Is(err, domain.ErrTraderNotFound) {
		s.sessions.Delete(token)
		return nil, domain.ErrUnauthenticated
	}
	return trader, err
}

// StartSessionSweeper launches a background goroutine that drops expired
// sessions at the given interval. It stops when ctx is cancelled.
func (s *TraderService) StartSessionSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := s.sessions.Sweep(); n > 0 {
					s.logger.Debug("expired sessions removed", slog.Int("count", n))
				}
			}
		}
	}()
}
