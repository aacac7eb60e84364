// Package walletdelivery manages delivery layer of the wallet controller.
package walletdelivery

import (
	"context"
	"errors"
	"math/big"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/walletservice"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/errorspkg"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/jsonresponse"
)

// Service provides the controller interface needed by wallet delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package walletdelivery
type Service interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	State() walletservice.Snapshot
	SetView(view domain.View) error
	UpdateForm(form walletservice.Form) error
	SubmitTransfer(ctx context.Context) (domain.TransferOutcome, error)
	RefreshBalance(ctx context.Context) (*big.Int, error)
	RefreshTokenInfo(ctx context.Context) (domain.TokenInfo, error)
	Metadata(ctx context.Context) ([]domain.MetadataEntry, error)
	MintingAccount(ctx context.Context) (*domain.Account, error)
	Authenticated() bool
}

// Handler facilitates wallet delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns wallet handler.
func NewHandler(ws Service) *Handler {
	return &Handler{
		service: ws,
	}
}

type stateResponse struct {
	Data walletservice.Snapshot `json:"data"`
}

type transferData struct {
	Outcome domain.TransferOutcome `json:"outcome"`
	State   walletservice.Snapshot `json:"state"`
}

type transferResponse struct {
	Data transferData `json:"data"`
}

type metadataResponse struct {
	Data []domain.MetadataEntry `json:"data"`
}

type mintingAccountData struct {
	Account *domain.Account `json:"account"`
	Text    string          `json:"text,omitempty"`
}

type mintingAccountResponse struct {
	Data mintingAccountData `json:"data"`
}

type viewRequest struct {
	View string `json:"view" binding:"required,view"`
}

type formRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
	Memo   string `json:"memo" binding:"memo"`
}

func (r formRequest) form() walletservice.Form {
	return walletservice.Form{Recipient: r.To, Amount: r.Amount, Memo: r.Memo}
}

// statusFor maps controller errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case
		errors.Is(err, domain.ErrEmptyField),
		errors.Is(err, domain.ErrInvalidRecipient),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrUnknownView):
		return http.StatusBadRequest
	case
		errors.Is(err, domain.ErrTransferPending),
		errors.Is(err, domain.ErrStaleResult):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRemoteCall):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(gctx *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		gctx.JSON(code, jsonresponse.Error(errorspkg.ErrInternal))
		return
	}

	gctx.JSON(code, jsonresponse.Error(err))
}

// Login handles http request to start a wallet session.
func (h *Handler) Login(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	if err := h.service.Login(ctx); err != nil {
		l.Error().Err(err).Send()
		gctx.JSON(http.StatusBadGateway, jsonresponse.Error(err))

		return
	}

	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// Logout handles http request to end the wallet session.
func (h *Handler) Logout(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	if err := h.service.Logout(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, jsonresponse.Error(errorspkg.ErrInternal))

		return
	}

	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// State handles http request to get the wallet state.
func (h *Handler) State(gctx *gin.Context) {
	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// SetView handles http request to switch the active view.
func (h *Handler) SetView(gctx *gin.Context) {
	l := zerolog.Ctx(gctx.Request.Context())

	var req viewRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	if err := h.service.SetView(domain.View(req.View)); err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// UpdateForm handles http request to replace the transfer form fields.
func (h *Handler) UpdateForm(gctx *gin.Context) {
	l := zerolog.Ctx(gctx.Request.Context())

	var req formRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	if err := h.service.UpdateForm(req.form()); err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// SubmitTransfer handles http request to send a transfer with the given form.
func (h *Handler) SubmitTransfer(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req formRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		l.Info().Err(err).Send()
		gctx.JSON(http.StatusBadRequest, jsonresponse.Error(err))

		return
	}

	if err := h.service.UpdateForm(req.form()); err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	outcome, err := h.service.SubmitTransfer(ctx)
	if err != nil {
		l.Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	res := transferResponse{
		Data: transferData{Outcome: outcome, State: h.service.State()},
	}

	if outcome.Kind() == domain.OutcomeRejected {
		gctx.JSON(http.StatusUnprocessableEntity, res)
		return
	}

	gctx.JSON(http.StatusOK, res)
}

// RefreshBalance handles http request to reload the balance.
func (h *Handler) RefreshBalance(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	if _, err := h.service.RefreshBalance(ctx); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// RefreshTokenInfo handles http request to reload the token description.
func (h *Handler) RefreshTokenInfo(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	if _, err := h.service.RefreshTokenInfo(ctx); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, stateResponse{Data: h.service.State()})
}

// Metadata handles http request to get the ledger metadata.
func (h *Handler) Metadata(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	entries, err := h.service.Metadata(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	gctx.JSON(http.StatusOK, metadataResponse{Data: entries})
}

// MintingAccount handles http request to get the ledger minting account.
func (h *Handler) MintingAccount(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	account, err := h.service.MintingAccount(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()
		respondError(gctx, err)

		return
	}

	res := mintingAccountResponse{Data: mintingAccountData{Account: account}}
	if account != nil {
		res.Data.Text = account.String()
	}

	gctx.JSON(http.StatusOK, res)
}
