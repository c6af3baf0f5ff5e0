package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/store"
)

const goodPassword = "Secr3t!pass"

func newTestTraderService() *TraderService {
	svc := NewTraderService(store.NewMemoryStore(), store.NewSessionStore(time.Hour), discardLogger())
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func validRegistration() RegisterTraderRequest {
	return RegisterTraderRequest{
		FirstName:       "  aDA ",
		LastName:        "lovelace",
		Tradername:      " AdaL ",
		Password:        goodPassword,
		PasswordConfirm: goodPassword,
	}
}

func TestRegister_NormalizesAndHashes(t *testing.T) {
	svc := newTestTraderService()

	trader, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if trader.TraderID != 1 {
		t.Errorf("got trader id %d, want 1", trader.TraderID)
	}
	if trader.FirstName != "Ada" || trader.LastName != "Lovelace" {
		t.Errorf("got name %q, want %q", trader.DisplayName(), "Ada Lovelace")
	}
	if trader.Tradername != "AdaL" {
		t.Errorf("got tradername %q, want %q", trader.Tradername, "AdaL")
	}
	if err := bcrypt.CompareHashAndPassword(trader.PasswordHash, []byte(goodPassword)); err != nil {
		t.Errorf("expected bcrypt hash of the password: %v", err)
	}
}

func TestRegister_DuplicateTradernameIgnoresCase(t *testing.T) {
	svc := newTestTraderService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := validRegistration()
	req.Tradername = "adal"
	if _, err := svc.Register(context.Background(), req); !errors.Is(err, domain.ErrTraderAlreadyExists) {
		t.Fatalf("expected ErrTraderAlreadyExists, got %v", err)
	}
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *RegisterTraderRequest)
		wantMsg string
	}{
		{"missing first name", func(r *RegisterTraderRequest) { r.FirstName = "  " }, "First name is required."},
		{"missing last name", func(r *RegisterTraderRequest) { r.LastName = "" }, "Last name is required."},
		{"missing tradername", func(r *RegisterTraderRequest) { r.Tradername = " " }, "Tradername is required."},
		{"missing password", func(r *RegisterTraderRequest) { r.Password = "" }, "Password is required."},
		{"space", func(r *RegisterTraderRequest) { r.Password = "Secr3t! pass" }, "Password must not contain spaces."},
		{"short", func(r *RegisterTraderRequest) { r.Password = "S3t!a" }, "Password must be at least 8 characters long."},
		{"no digit", func(r *RegisterTraderRequest) { r.Password = "Secret!pass" }, "Password must include at least one number."},
		{"no upper", func(r *RegisterTraderRequest) { r.Password = "secr3t!pass" }, "Password must include at least one uppercase letter."},
		{"no lower", func(r *RegisterTraderRequest) { r.Password = "SECR3T!PASS" }, "Password must include at least one lowercase letter."},
		{"no special", func(r *RegisterTraderRequest) { r.Password = "Secr3tpass" }, "Password must include at least one special character."},
		{"missing confirmation", func(r *RegisterTraderRequest) { r.PasswordConfirm = "" }, "Password confirmation is required."},
		{"mismatch", func(r *RegisterTraderRequest) { r.PasswordConfirm = goodPassword + "x" }, "Passwords must match."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestTraderService()
			req := validRegistration()
			tt.mutate(&req)

			_, err := svc.Register(context.Background(), req)
			var ve *domain.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Message != tt.wantMsg {
				t.Errorf("got message %q, want %q", ve.Message, tt.wantMsg)
			}
		})
	}
}

func TestLogin_AuthenticateLogout(t *testing.T) {
	svc := newTestTraderService()
	registered, err := svc.Register(context.Background(), validRegistration())
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, trader, err := svc.Login(context.Background(), "AdaL", goodPassword)
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if trader.TraderID != registered.TraderID {
		t.Errorf("got trader %d, want %d", trader.TraderID, registered.TraderID)
	}

	authed, err := svc.Authenticate(context.Background(), token)
	if err != nil {
		t.Fatalf("unexpected authenticate error: %v", err)
	}
	if authed.TraderID != registered.TraderID {
		t.Errorf("got trader %d, want %d", authed.TraderID, registered.TraderID)
	}

	svc.Logout(token)
	if _, err := svc.Authenticate(context.Background(), token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated after logout, got %v", err)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := newTestTraderService()
	if _, err := svc.Register(context.Background(), validRegistration()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := svc.Login(context.Background(), "nobody", goodPassword); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("unknown name: expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "AdaL", "Wr0ng!pass"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("bad password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"":         "",
		"  ":       "",
		"ada":      "Ada",
		"  mARIE ": "Marie",
		"émile":    "Émile",
	}
	for in, want := range tests {
		if got := normalizeName(in); got != want {
			t.Errorf("normalizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
