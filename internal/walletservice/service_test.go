package walletservice

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/errorspkg"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/randompkg"
)

type stubIdentity struct {
	principal domain.Principal
}

func (s stubIdentity) Principal() domain.Principal         { return s.principal }
func (s stubIdentity) PublicKey() []byte                   { return nil }
func (s stubIdentity) Sign(message []byte) ([]byte, error) { return nil, nil }
func (s stubIdentity) Delegation() string                  { return "" }

type fixture struct {
	identity *MockIdentityService
	client   *MockLedgerClient
	service  *Service
	sess     *domain.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	f := &fixture{
		identity: NewMockIdentityService(ctrl),
		client:   NewMockLedgerClient(ctrl),
		sess:     domain.NewSession(stubIdentity{principal: randompkg.Principal()}, time.Now(), time.Now().Add(time.Hour)),
	}

	f.service = New(f.identity, func(*domain.Session) LedgerClient { return f.client }, Config{
		Decimals:      8,
		DefaultSymbol: "DLTK",
		StatusTTL:     time.Minute,
	})

	return f
}

func (f *fixture) ownAccount() domain.Account {
	return domain.Account{Owner: f.sess.Identity.Principal()}
}

func (f *fixture) expectTokenInfo() {
	f.client.EXPECT().Name(gomock.Any()).Return("Demo Token", nil)
	f.client.EXPECT().Symbol(gomock.Any()).Return("TKN", nil)
	f.client.EXPECT().TotalSupply(gomock.Any()).Return(big.NewInt(21_000_000_00000000), nil)
	f.client.EXPECT().Fee(gomock.Any()).Return(big.NewInt(10_000), nil)
}

func (f *fixture) login(t *testing.T, balance *big.Int) {
	t.Helper()

	f.identity.EXPECT().Login(gomock.Any()).Times(1).Return(f.sess, true, nil)
	f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Eq(f.ownAccount())).Times(1).Return(balance, nil)
	f.expectTokenInfo()

	require.NoError(t, f.service.Login(context.Background()))
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	state := f.service.State()
	require.True(t, state.Authenticated)
	require.Equal(t, domain.ViewWallet, state.View)
	require.Equal(t, f.sess.PrincipalText, state.Principal)
	require.Equal(t, ShortPrincipal(f.sess.PrincipalText), state.ShortPrincipal)
	require.Equal(t, "10.00000000", state.Balance)
	require.Equal(t, "TKN", state.Symbol)
	require.Equal(t, &TokenDisplay{
		Name:        "Demo Token",
		Symbol:      "TKN",
		TotalSupply: "21000000.00000000",
		Fee:         "0.00010000",
	}, state.Token)
	require.Nil(t, state.Status)
	require.False(t, state.Loading)

	// A second login keeps the session.
	require.NoError(t, f.service.Login(context.Background()))
	require.Equal(t, f.sess.PrincipalText, f.service.State().Principal)
}

func TestLoginCancelled(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.identity.EXPECT().Login(gomock.Any()).Times(1).Return(nil, false, nil)
	f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Any()).Times(0)

	require.NoError(t, f.service.Login(context.Background()))

	state := f.service.State()
	require.False(t, state.Authenticated)
	require.Nil(t, state.Status)
	require.Equal(t, "DLTK", state.Symbol)
	require.Empty(t, state.View)
}

func TestLoginError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.identity.EXPECT().Login(gomock.Any()).Times(1).Return(nil, false, errorspkg.ErrInternal)

	require.ErrorIs(t, f.service.Login(context.Background()), errorspkg.ErrInternal)
	require.False(t, f.service.Authenticated())
}

func TestLoginBalanceFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.identity.EXPECT().Login(gomock.Any()).Times(1).Return(f.sess, true, nil)
	f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Any()).Times(1).
		Return(nil, &domain.RemoteCallError{Method: "icrc1_balance_of", Err: errors.New("timeout")})
	f.expectTokenInfo()

	require.NoError(t, f.service.Login(context.Background()))

	state := f.service.State()
	require.True(t, state.Authenticated)
	require.Empty(t, state.Balance)
	require.NotNil(t, state.Status)
	require.Equal(t, StatusError, state.Status.Kind)
	require.Equal(t, MsgBalanceFailed, state.Status.Text)
}

func TestSubmitTransferAccepted(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	to := randompkg.Account()

	gomock.InOrder(
		f.client.EXPECT().
			Transfer(gomock.Any(), gomock.Any()).
			Times(1).
			DoAndReturn(func(_ context.Context, req domain.TransferRequest) (domain.TransferOutcome, error) {
				require.True(t, req.To.Equal(to))
				require.Equal(t, "250000000", req.Amount.String())
				require.Nil(t, req.Fee)
				require.Equal(t, []byte("lunch"), req.Memo)

				return domain.Accepted(big.NewInt(42)), nil
			}),
		// The ledger reports the new balance; it is not computed locally.
		f.client.EXPECT().
			BalanceOf(gomock.Any(), gomock.Eq(f.ownAccount())).
			Times(1).
			Return(big.NewInt(7_49990000), nil),
	)

	require.NoError(t, f.service.UpdateForm(Form{Recipient: to.String(), Amount: "2.5", Memo: "lunch"}))

	outcome, err := f.service.SubmitTransfer(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, outcome.Kind())

	state := f.service.State()
	require.Equal(t, "7.49990000", state.Balance)
	require.Equal(t, StatusSuccess, state.Status.Kind)
	require.Equal(t, "Transfer successful! Block: 42", state.Status.Text)
	require.Equal(t, Form{}, state.Form)
	require.False(t, state.TransferPending)
}

func TestSubmitTransferFailures(t *testing.T) {
	t.Parallel()

	remote := &domain.RemoteCallError{Method: "icrc1_transfer", Err: errors.New("connection reset")}

	testCases := []struct {
		name       string
		result     domain.TransferOutcome
		err        error
		checkError func(t *testing.T, err error)
		wantStatus string
	}{
		{
			name:   "Rejected",
			result: domain.Rejected("insufficient funds"),
			checkError: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
			wantStatus: "Transfer failed: insufficient funds",
		},
		{
			name: "RemoteCall",
			err:  remote,
			checkError: func(t *testing.T, err error) {
				require.ErrorIs(t, err, domain.ErrRemoteCall)
			},
			wantStatus: "Transfer failed: " + remote.Error(),
		},
		{
			name: "InterfaceMismatch",
			err:  domain.ErrInterfaceMismatch,
			checkError: func(t *testing.T, err error) {
				require.ErrorIs(t, err, domain.ErrInterfaceMismatch)
			},
			wantStatus: MsgUnexpectedReply,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.login(t, big.NewInt(10_00000000))

			f.client.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(1).Return(tc.result, tc.err)
			f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Any()).Times(0)

			form := Form{Recipient: randompkg.Account().String(), Amount: "1000000"}
			require.NoError(t, f.service.UpdateForm(form))

			_, err := f.service.SubmitTransfer(context.Background())
			tc.checkError(t, err)

			state := f.service.State()
			require.Equal(t, StatusError, state.Status.Kind)
			require.Equal(t, tc.wantStatus, state.Status.Text)
			require.Equal(t, form, state.Form)
			require.Equal(t, "10.00000000", state.Balance)
			require.False(t, state.TransferPending)
		})
	}
}

func TestSubmitTransferValidation(t *testing.T) {
	t.Parallel()

	recipient := randompkg.Account().String()

	testCases := []struct {
		name       string
		form       Form
		wantErr    error
		wantStatus string
	}{
		{name: "EmptyRecipient", form: Form{Amount: "1"}, wantErr: domain.ErrEmptyField, wantStatus: MsgFillAllFields},
		{name: "EmptyAmount", form: Form{Recipient: recipient}, wantErr: domain.ErrEmptyField, wantStatus: MsgFillAllFields},
		{name: "Blank", form: Form{Recipient: "  ", Amount: " "}, wantErr: domain.ErrEmptyField, wantStatus: MsgFillAllFields},
		{name: "BadRecipient", form: Form{Recipient: "not-a-principal", Amount: "1"}, wantErr: domain.ErrInvalidRecipient, wantStatus: MsgInvalidRecipient},
		{name: "OverPrecise", form: Form{Recipient: recipient, Amount: "1.123456789"}, wantErr: domain.ErrInvalidAmount, wantStatus: MsgInvalidAmount},
		{name: "Negative", form: Form{Recipient: recipient, Amount: "-1"}, wantErr: domain.ErrInvalidAmount, wantStatus: MsgInvalidAmount},
		{name: "Garbage", form: Form{Recipient: recipient, Amount: "!@#$"}, wantErr: domain.ErrInvalidAmount, wantStatus: MsgInvalidAmount},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t)
			f.login(t, big.NewInt(1))

			f.client.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(0)

			require.NoError(t, f.service.UpdateForm(tc.form))

			_, err := f.service.SubmitTransfer(context.Background())
			require.ErrorIs(t, err, tc.wantErr)

			state := f.service.State()
			require.Equal(t, tc.wantStatus, state.Status.Text)
			require.Equal(t, tc.form, state.Form)
			require.False(t, state.TransferPending)
		})
	}
}

func TestSubmitTransferPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	started := make(chan struct{})
	release := make(chan struct{})

	f.client.EXPECT().
		Transfer(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(context.Context, domain.TransferRequest) (domain.TransferOutcome, error) {
			close(started)
			<-release

			return domain.Accepted(big.NewInt(1)), nil
		})
	f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Any()).Times(1).Return(big.NewInt(5), nil)

	require.NoError(t, f.service.UpdateForm(Form{Recipient: randompkg.Account().String(), Amount: "1"}))

	done := make(chan error, 1)

	go func() {
		_, err := f.service.SubmitTransfer(context.Background())
		done <- err
	}()

	<-started

	require.True(t, f.service.State().TransferPending)

	_, err := f.service.SubmitTransfer(context.Background())
	require.ErrorIs(t, err, domain.ErrTransferPending)

	close(release)
	require.NoError(t, <-done)
	require.False(t, f.service.State().TransferPending)
}

func TestUpdateFormWhilePending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	started := make(chan struct{})
	release := make(chan struct{})

	f.client.EXPECT().
		Transfer(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(context.Context, domain.TransferRequest) (domain.TransferOutcome, error) {
			close(started)
			<-release

			return domain.Rejected("insufficient funds"), nil
		})

	original := Form{Recipient: randompkg.Account().String(), Amount: "1000000"}
	require.NoError(t, f.service.UpdateForm(original))

	done := make(chan error, 1)

	go func() {
		_, err := f.service.SubmitTransfer(context.Background())
		done <- err
	}()

	<-started

	err := f.service.UpdateForm(Form{Recipient: randompkg.Account().String(), Amount: "3"})
	require.ErrorIs(t, err, domain.ErrTransferPending)
	require.Equal(t, original, f.service.State().Form)

	close(release)
	require.NoError(t, <-done)

	state := f.service.State()
	require.Equal(t, original, state.Form)
	require.Equal(t, "Transfer failed: insufficient funds", state.Status.Text)
}

func TestEarlierBalanceDoesNotOverwriteLater(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	started := make(chan struct{})
	release := make(chan struct{})

	gomock.InOrder(
		f.client.EXPECT().
			BalanceOf(gomock.Any(), gomock.Eq(f.ownAccount())).
			Times(1).
			DoAndReturn(func(context.Context, domain.Account) (*big.Int, error) {
				close(started)
				<-release

				return big.NewInt(10_00000000), nil
			}),
		f.client.EXPECT().
			BalanceOf(gomock.Any(), gomock.Eq(f.ownAccount())).
			Times(1).
			Return(big.NewInt(7_50000000), nil),
	)
	f.client.EXPECT().Transfer(gomock.Any(), gomock.Any()).Times(1).Return(domain.Accepted(big.NewInt(42)), nil)

	done := make(chan error, 1)

	go func() {
		_, err := f.service.RefreshBalance(context.Background())
		done <- err
	}()

	<-started

	require.NoError(t, f.service.UpdateForm(Form{Recipient: randompkg.Account().String(), Amount: "2.5"}))

	outcome, err := f.service.SubmitTransfer(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, outcome.Kind())
	require.Equal(t, "7.50000000", f.service.State().Balance)

	close(release)
	require.ErrorIs(t, <-done, domain.ErrStaleResult)

	state := f.service.State()
	require.Equal(t, "7.50000000", state.Balance)
	require.False(t, state.Loading)
}

func TestLogoutDiscardsInFlightBalance(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	started := make(chan struct{})
	release := make(chan struct{})

	f.client.EXPECT().
		BalanceOf(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(context.Context, domain.Account) (*big.Int, error) {
			close(started)
			<-release

			return big.NewInt(99_00000000), nil
		})
	f.identity.EXPECT().Logout(gomock.Any(), gomock.Eq(f.sess)).Times(1).Return(nil)

	done := make(chan error, 1)

	go func() {
		_, err := f.service.RefreshBalance(context.Background())
		done <- err
	}()

	<-started

	require.True(t, f.service.State().Loading)
	require.NoError(t, f.service.Logout(context.Background()))

	close(release)
	require.ErrorIs(t, <-done, domain.ErrStaleResult)

	state := f.service.State()
	require.False(t, state.Authenticated)
	require.Empty(t, state.Balance)
	require.Nil(t, state.Token)
	require.False(t, state.Loading)
}

func TestLogoutDiscardsInFlightTransfer(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	started := make(chan struct{})
	release := make(chan struct{})

	f.client.EXPECT().
		Transfer(gomock.Any(), gomock.Any()).
		Times(1).
		DoAndReturn(func(context.Context, domain.TransferRequest) (domain.TransferOutcome, error) {
			close(started)
			<-release

			return domain.Accepted(big.NewInt(3)), nil
		})
	f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Any()).Times(0)
	f.identity.EXPECT().Logout(gomock.Any(), gomock.Any()).Times(1).Return(nil)

	require.NoError(t, f.service.UpdateForm(Form{Recipient: randompkg.Account().String(), Amount: "1"}))

	done := make(chan error, 1)

	go func() {
		_, err := f.service.SubmitTransfer(context.Background())
		done <- err
	}()

	<-started
	require.NoError(t, f.service.Logout(context.Background()))

	close(release)
	require.ErrorIs(t, <-done, domain.ErrStaleResult)

	state := f.service.State()
	require.False(t, state.Authenticated)
	require.Nil(t, state.Status)
	require.Equal(t, Form{}, state.Form)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(10_00000000))

	f.identity.EXPECT().Logout(gomock.Any(), gomock.Eq(f.sess)).Times(1).Return(nil)

	require.NoError(t, f.service.UpdateForm(Form{Recipient: "x", Amount: "1"}))
	require.NoError(t, f.service.Logout(context.Background()))

	state := f.service.State()
	require.Equal(t, Snapshot{Symbol: "DLTK"}, state)

	// Logging out twice is a no-op.
	require.NoError(t, f.service.Logout(context.Background()))

	_, err := f.service.RefreshBalance(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = f.service.SubmitTransfer(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestSetView(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	require.ErrorIs(t, f.service.SetView(domain.ViewTransfer), domain.ErrNotAuthenticated)

	f.login(t, big.NewInt(0))

	for _, view := range []domain.View{domain.ViewTransfer, domain.ViewHistory, domain.ViewWallet} {
		require.NoError(t, f.service.SetView(view))
		require.Equal(t, view, f.service.State().View)
	}

	require.ErrorIs(t, f.service.SetView("settings"), domain.ErrUnknownView)
	require.Equal(t, domain.ViewWallet, f.service.State().View)
}

func TestRefreshTokenInfoFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.identity.EXPECT().Login(gomock.Any()).Times(1).Return(f.sess, true, nil)
	f.client.EXPECT().BalanceOf(gomock.Any(), gomock.Any()).Times(1).Return(big.NewInt(1), nil)
	f.client.EXPECT().Name(gomock.Any()).AnyTimes().Return("", errorspkg.ErrInternal)
	f.client.EXPECT().Symbol(gomock.Any()).AnyTimes().Return("TKN", nil)
	f.client.EXPECT().TotalSupply(gomock.Any()).AnyTimes().Return(big.NewInt(1), nil)
	f.client.EXPECT().Fee(gomock.Any()).AnyTimes().Return(big.NewInt(1), nil)

	require.NoError(t, f.service.Login(context.Background()))

	state := f.service.State()
	require.Nil(t, state.Token)
	require.Equal(t, "DLTK", state.Symbol)
	require.Equal(t, "0.00000001", state.Balance)

	_, err := f.service.RefreshTokenInfo(context.Background())
	require.ErrorIs(t, err, errorspkg.ErrInternal)
}

func TestStatusExpires(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.login(t, big.NewInt(1))

	now := time.Now()
	f.service.now = func() time.Time { return now }

	require.NoError(t, f.service.UpdateForm(Form{}))

	_, err := f.service.SubmitTransfer(context.Background())
	require.ErrorIs(t, err, domain.ErrEmptyField)
	require.NotNil(t, f.service.State().Status)

	now = now.Add(2 * time.Minute)
	require.Nil(t, f.service.State().Status)
}

func TestPassThroughQueries(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.service.Metadata(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)

	_, err = f.service.MintingAccount(context.Background())
	require.ErrorIs(t, err, domain.ErrNotAuthenticated)

	f.login(t, big.NewInt(1))

	entries := []domain.MetadataEntry{{Key: "icrc1:symbol", Value: domain.MetadataValue{Kind: domain.MetadataText, Text: "TKN"}}}
	minting := randompkg.Account()

	f.client.EXPECT().Metadata(gomock.Any()).Times(1).Return(entries, nil)
	f.client.EXPECT().MintingAccount(gomock.Any()).Times(1).Return(&minting, nil)

	gotEntries, err := f.service.Metadata(context.Background())
	require.NoError(t, err)
	require.Equal(t, entries, gotEntries)

	gotMinting, err := f.service.MintingAccount(context.Background())
	require.NoError(t, err)
	require.True(t, gotMinting.Equal(minting))
}

func TestShortPrincipal(t *testing.T) {
	t.Parallel()

	long := randompkg.Principal().String()

	testCases := []struct {
		name string
		text string
		want string
	}{
		{name: "Anonymous", text: "2vxsx-fae", want: "2vxsx-fae"},
		{name: "Boundary", text: strings.Repeat("a", 23), want: strings.Repeat("a", 23)},
		{name: "Canister", text: "ryjl3-tyaaa-aaaaa-aaaba-cai", want: "ryjl3-tyaa...-aaaba-cai"},
		{name: "SelfAuthenticating", text: long, want: long[:10] + "..." + long[len(long)-10:]},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			require.Equal(t, tc.want, ShortPrincipal(tc.text))
		})
	}
}
