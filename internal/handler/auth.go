package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/efreitasn/stockmarket/internal/domain"
	"github.com/efreitasn/stockmarket/internal/service"
)

type traderKey struct{}

// requireTrader resolves the bearer token of the request to a trader and
// stores it in the request context. Requests without a live session get
// 401.
func requireTrader(traderSvc *service.TraderService, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeServiceError(w, logger, domain.ErrUnauthenticated)
				return
			}
			trader, err := traderSvc.Authenticate(r.Context(), token)
			if err != nil {
				writeServiceError(w, logger, err)
				return
			}
			ctx := context.WithValue(r.Context(), traderKey{}, trader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(h[len(prefix):])
	return token, token != ""
}

// currentTrader returns the trader stored by requireTrader.
func currentTrader(r *http.Request) *domain.Trader {
	t, _ := r.Context().Value(traderKey{}).(*domain.Trader)
	return t
}
