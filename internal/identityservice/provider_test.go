package identityservice

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/randompkg"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/tokenpkg"
)

func newInmemoryClient(t *testing.T, handler fasthttp.RequestHandler) *fasthttp.Client {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()

	go func() {
		_ = fasthttp.Serve(ln, handler)
	}()

	t.Cleanup(func() { _ = ln.Close() })

	return &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}
}

func TestHTTPProviderDelegate(t *testing.T) {
	t.Parallel()

	sessionKey := randompkg.Bytes(44)

	testCases := []struct {
		name          string
		handler       fasthttp.RequestHandler
		checkResponse func(t *testing.T, token string, err error)
	}{
		{
			name: "OK",
			handler: func(ctx *fasthttp.RequestCtx) {
				if string(ctx.Path()) != "/delegations" || !ctx.IsPost() {
					ctx.SetStatusCode(fasthttp.StatusNotFound)
					return
				}

				var req delegationRequest
				if err := json.Unmarshal(ctx.PostBody(), &req); err != nil {
					ctx.SetStatusCode(fasthttp.StatusBadRequest)
					return
				}

				if string(req.SessionPublicKey) != string(sessionKey) || req.MaxTimeToLive != time.Hour.Nanoseconds() {
					ctx.SetStatusCode(fasthttp.StatusBadRequest)
					return
				}

				ctx.SetContentType("application/json")
				ctx.SetBodyString(`{"delegation":"signed-token"}`)
			},
			checkResponse: func(t *testing.T, token string, err error) {
				require.NoError(t, err)
				require.Equal(t, "signed-token", token)
			},
		},
		{
			name: "NoContent",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusNoContent)
			},
			checkResponse: func(t *testing.T, token string, err error) {
				require.ErrorIs(t, err, domain.ErrLoginCancelled)
				require.Empty(t, token)
			},
		},
		{
			name: "Gone",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusGone)
			},
			checkResponse: func(t *testing.T, token string, err error) {
				require.ErrorIs(t, err, domain.ErrLoginCancelled)
			},
		},
		{
			name: "ServerError",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			},
			checkResponse: func(t *testing.T, token string, err error) {
				require.Error(t, err)
				require.NotErrorIs(t, err, domain.ErrLoginCancelled)
			},
		},
		{
			name: "EmptyDelegation",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetBodyString(`{}`)
			},
			checkResponse: func(t *testing.T, token string, err error) {
				require.Error(t, err)
			},
		},
		{
			name: "MalformedBody",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetBodyString(`{"delegation":`)
			},
			checkResponse: func(t *testing.T, token string, err error) {
				require.Error(t, err)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			provider := NewHTTPProvider("http://identity.local/", newInmemoryClient(t, tc.handler))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			token, err := provider.Delegate(ctx, sessionKey, time.Hour)
			tc.checkResponse(t, token, err)
		})
	}
}

func TestLocalProviderReusesKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first, err := NewLocalProvider(dir, tokenpkg.FormatPaseto)
	require.NoError(t, err)

	second, err := NewLocalProvider(dir, tokenpkg.FormatPaseto)
	require.NoError(t, err)

	require.Equal(t, first.PublicKey(), second.PublicKey())
	require.True(t, first.Principal().Equal(second.Principal()))

	sessionKey := randompkg.Bytes(44)

	token, err := first.Delegate(context.Background(), sessionKey, time.Minute)
	require.NoError(t, err)

	verifier, err := tokenpkg.NewMaker(tokenpkg.FormatPaseto, second.PublicKey(), nil)
	require.NoError(t, err)

	payload, err := verifier.VerifyToken(token)
	require.NoError(t, err)
	require.Equal(t, first.Principal().String(), payload.Principal)
	require.Equal(t, sessionKey, payload.SessionKey)
}

func TestLocalProviderCancelledContext(t *testing.T) {
	t.Parallel()

	provider, err := NewLocalProvider(t.TempDir(), tokenpkg.FormatJWT)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = provider.Delegate(ctx, randompkg.Bytes(44), time.Minute)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoadOrGenerateKeypairCorrupted(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, privateKeyFile), []byte("short"), 0o600))

	_, _, _, err := LoadOrGenerateKeypair(dir)
	require.Error(t, err)
}
