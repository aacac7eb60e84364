// Package httpserver manages server creation and api routing.
package httpserver

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/agent"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/identityservice"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/ledgerclient"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/middleware"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/walletdelivery"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/walletservice"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/configpkg"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/tokenpkg"
)

// Server holds the wallet controller, handlers router and configuration.
type Server struct {
	Wallet *walletservice.Service
	Engine *gin.Engine
	Config configpkg.Config
}

// ServeHTTP implements the http.Handler interface for the Server type.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Engine.ServeHTTP(w, r)
}

// New creates Server type with instantiated domains and routes.
func New(logger zerolog.Logger, config configpkg.Config) (*Server, error) {
	client := &fasthttp.Client{
		ReadTimeout:  config.RequestTimeout,
		WriteTimeout: config.RequestTimeout,
	}

	canister, err := domain.PrincipalFromText(config.LedgerCanisterID)
	if err != nil {
		return nil, fmt.Errorf("cannot parse ledger canister id: %w", err)
	}

	provider, verifier, err := newProvider(logger, config, client)
	if err != nil {
		return nil, err
	}

	identityService := identityservice.New(provider, verifier, config.DelegationTTL)

	agentConfig := agent.Config{
		Host:          config.ReplicaHost,
		Timeout:       config.RequestTimeout,
		IngressExpiry: config.IngressExpiry,
		Client:        client,
	}

	newClient := func(sess *domain.Session) walletservice.LedgerClient {
		return ledgerclient.New(agent.New(agentConfig, sess.Identity), canister, sess)
	}

	wallet := walletservice.New(identityService, newClient, walletservice.Config{
		Decimals:      config.TokenDecimals,
		DefaultSymbol: config.DefaultSymbol,
		StatusTTL:     config.StatusTTL,
	})

	walletHandler := walletdelivery.NewHandler(wallet)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RequestLogger(logger))
	engine.Use(gin.Recovery())

	engine.POST("/session", walletHandler.Login)
	engine.DELETE("/session", walletHandler.Logout)
	engine.GET("/state", walletHandler.State)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authRoutes := engine.Group("/").Use(middleware.RequireSession(wallet))

	authRoutes.PUT("/view", walletHandler.SetView)
	authRoutes.PUT("/transfer/form", walletHandler.UpdateForm)
	authRoutes.POST("/transfers", walletHandler.SubmitTransfer)
	authRoutes.POST("/balance/refresh", walletHandler.RefreshBalance)
	authRoutes.POST("/token/refresh", walletHandler.RefreshTokenInfo)
	authRoutes.GET("/metadata", walletHandler.Metadata)
	authRoutes.GET("/minting-account", walletHandler.MintingAccount)

	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		err := v.RegisterValidation("view", walletdelivery.ValidView)
		if err != nil {
			return nil, errors.New("cannot register view validator")
		}

		err = v.RegisterValidation("memo", walletdelivery.ValidMemo)
		if err != nil {
			return nil, errors.New("cannot register memo validator")
		}
	}

	server := &Server{
		Wallet: wallet,
		Engine: engine,
		Config: config,
	}

	return server, nil
}

// newProvider returns the configured identity provider and the maker verifying its delegations.
func newProvider(logger zerolog.Logger, config configpkg.Config, client *fasthttp.Client) (identityservice.Provider, tokenpkg.Maker, error) {
	format := tokenpkg.Format(config.DelegationFormat)

	switch config.IdentityProvider {
	case configpkg.ProviderLocal:
		provider, err := identityservice.NewLocalProvider(config.IdentityDir, format)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create local identity provider: %w", err)
		}

		verifier, err := tokenpkg.NewMaker(format, provider.PublicKey(), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create delegation verifier: %w", err)
		}

		logger.Info().Str("principal", provider.Principal().String()).Msg("using local identity provider")

		return provider, verifier, nil

	case configpkg.ProviderHTTP:
		key, err := hex.DecodeString(config.IdentityProviderPublicKey)
		if err != nil || len(key) != ed25519.PublicKeySize {
			return nil, nil, errors.New("identity provider public key must be a hex encoded ed25519 key")
		}

		verifier, err := tokenpkg.NewMaker(format, ed25519.PublicKey(key), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create delegation verifier: %w", err)
		}

		return identityservice.NewHTTPProvider(config.IdentityProviderURL, client), verifier, nil

	default:
		return nil, nil, fmt.Errorf("unknown identity provider %q", config.IdentityProvider)
	}
}
