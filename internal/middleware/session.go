package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/jsonresponse"
)

// SessionChecker reports whether the wallet has an active session.
type SessionChecker interface {
	Authenticated() bool
}

// RequireSession aborts requests with 401 while no session is active.
func RequireSession(checker SessionChecker) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		if !checker.Authenticated() {
			zerolog.Ctx(gctx.Request.Context()).Info().Err(domain.ErrNotAuthenticated).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, jsonresponse.Error(domain.ErrNotAuthenticated))

			return
		}

		gctx.Next()
	}
}
