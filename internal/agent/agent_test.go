package agent

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/internal/domain"
	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/codecpkg"
)

var ledgerCanister = domain.Principal{0, 0, 0, 0, 0, 0, 0, 2, 1, 1}

type keyIdentity struct {
	private ed25519.PrivateKey
	der     []byte
}

func newKeyIdentity(t *testing.T) *keyIdentity {
	t.Helper()

	public, private, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(public)
	require.NoError(t, err)

	return &keyIdentity{private: private, der: der}
}

func (k *keyIdentity) Principal() domain.Principal { return domain.SelfAuthenticatingPrincipal(k.der) }
func (k *keyIdentity) PublicKey() []byte           { return k.der }
func (k *keyIdentity) Delegation() string          { return "delegation-token" }

func (k *keyIdentity) Sign(message []byte) ([]byte, error) {
	return ed25519.Sign(k.private, message), nil
}

func newTestAgent(t *testing.T, identity domain.Identity, timeout time.Duration, handler fasthttp.RequestHandler) *Agent {
	t.Helper()

	ln := fasthttputil.NewInmemoryListener()

	go func() {
		_ = fasthttp.Serve(ln, handler)
	}()

	t.Cleanup(func() { _ = ln.Close() })

	client := &fasthttp.Client{
		Dial: func(addr string) (net.Conn, error) {
			return ln.Dial()
		},
	}

	return New(Config{Host: "http://replica.local", Timeout: timeout, Client: client}, identity)
}

func writeCBOR(t *testing.T, ctx *fasthttp.RequestCtx, v any) {
	data, err := codecpkg.Marshal(v)
	require.NoError(t, err)

	ctx.SetContentType("application/cbor")
	ctx.SetBody(data)
}

// verifyEnvelope checks the request signature the way the replica does.
func verifyEnvelope(t *testing.T, body []byte) (envelope, bool) {
	var env envelope
	if err := codecpkg.Unmarshal(body, &env); err != nil {
		return env, false
	}

	key, err := x509.ParsePKIXPublicKey(env.SenderPubKey)
	if err != nil {
		return env, false
	}

	id, err := RequestID(env.Content)
	require.NoError(t, err)

	return env, ed25519.Verify(key.(ed25519.PublicKey), SignedMessage(id), env.SenderSig)
}

func TestQuery(t *testing.T) {
	t.Parallel()

	identity := newKeyIdentity(t)
	want := []byte{0x81, 0x18, 0x2a}

	a := newTestAgent(t, identity, time.Second, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/v2/canister/ryjl3-tyaaa-aaaaa-aaaba-cai/query" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}

		if string(ctx.Request.Header.ContentType()) != "application/cbor" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}

		env, ok := verifyEnvelope(t, ctx.PostBody())
		if !ok {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			return
		}

		if env.Content.MethodName != "icrc1_fee" ||
			env.Content.RequestType != RequestQuery ||
			!bytes.Equal(env.Content.Sender, identity.Principal()) ||
			env.SenderDelegation != "delegation-token" ||
			len(env.Content.Nonce) != 16 {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}

		writeCBOR(t, ctx, response{Status: "replied", Reply: &reply{Arg: want}})
	})

	got, err := a.Query(context.Background(), ledgerCanister, "icrc1_fee", []byte{0x80})
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestCall(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, newKeyIdentity(t), time.Second, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != "/api/v2/canister/ryjl3-tyaaa-aaaaa-aaaba-cai/call" {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}

		env, ok := verifyEnvelope(t, ctx.PostBody())
		if !ok || env.Content.RequestType != RequestCall {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			return
		}

		expiry := time.Unix(0, int64(env.Content.IngressExpiry))
		if expiry.Before(time.Now()) {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			return
		}

		writeCBOR(t, ctx, response{Status: "replied", Reply: &reply{Arg: env.Content.Arg}})
	})

	got, err := a.Call(context.Background(), ledgerCanister, "icrc1_transfer", []byte{0x81, 0x01})
	require.NoError(t, err)
	require.Equal(t, []byte{0x81, 0x01}, got)
}

func TestFailures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		handler  fasthttp.RequestHandler
		checkErr func(t *testing.T, err error)
	}{
		{
			name: "Rejected",
			handler: func(ctx *fasthttp.RequestCtx) {
				writeCBOR(t, ctx, response{Status: "rejected", RejectCode: 3, RejectMessage: "canister not found"})
			},
			checkErr: func(t *testing.T, err error) {
				var reject *RejectError
				require.ErrorAs(t, err, &reject)
				require.Equal(t, uint64(3), reject.Code)
				require.Equal(t, "canister not found", reject.Message)
			},
		},
		{
			name: "HTTPStatus",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			},
			checkErr: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrUnexpectedStatus)
			},
		},
		{
			name: "MalformedBody",
			handler: func(ctx *fasthttp.RequestCtx) {
				ctx.SetBody([]byte{0xff, 0x00})
			},
			checkErr: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
		{
			name: "UnknownStatus",
			handler: func(ctx *fasthttp.RequestCtx) {
				writeCBOR(t, ctx, response{Status: "processing"})
			},
			checkErr: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrUnexpectedStatus)
			},
		},
		{
			name: "ReplyWithoutPayload",
			handler: func(ctx *fasthttp.RequestCtx) {
				writeCBOR(t, ctx, response{Status: "replied"})
			},
			checkErr: func(t *testing.T, err error) {
				require.ErrorIs(t, err, ErrUnexpectedStatus)
			},
		},
		{
			name: "Timeout",
			handler: func(ctx *fasthttp.RequestCtx) {
				time.Sleep(500 * time.Millisecond)
				writeCBOR(t, ctx, response{Status: "replied", Reply: &reply{}})
			},
			checkErr: func(t *testing.T, err error) {
				require.Error(t, err)
			},
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			a := newTestAgent(t, newKeyIdentity(t), 100*time.Millisecond, tc.handler)

			got, err := a.Query(context.Background(), ledgerCanister, "icrc1_name", []byte{0x80})
			require.Nil(t, got)
			tc.checkErr(t, err)
		})
	}
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()

	a := newTestAgent(t, newKeyIdentity(t), time.Second, func(ctx *fasthttp.RequestCtx) {
		writeCBOR(t, ctx, response{Status: "replied", Reply: &reply{}})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Query(ctx, ledgerCanister, "icrc1_name", []byte{0x80})
	require.ErrorIs(t, err, context.Canceled)
}

func TestNoIdentity(t *testing.T) {
	t.Parallel()

	a := New(Config{Host: "http://replica.local"}, nil)

	_, err := a.Query(context.Background(), ledgerCanister, "icrc1_name", []byte{0x80})
	require.ErrorIs(t, err, ErrNoIdentity)
}

func TestRequestMetrics(t *testing.T) {
	a := newTestAgent(t, newKeyIdentity(t), time.Second, func(ctx *fasthttp.RequestCtx) {
		writeCBOR(t, ctx, response{Status: "rejected", RejectCode: 5, RejectMessage: "trap"})
	})

	before := testutil.ToFloat64(requestsTotal.WithLabelValues(RequestCall, "rejected"))

	_, err := a.Call(context.Background(), ledgerCanister, "icrc1_transfer", []byte{0x80})
	require.Error(t, err)

	after := testutil.ToFloat64(requestsTotal.WithLabelValues(RequestCall, "rejected"))
	require.Equal(t, before+1, after)
}
