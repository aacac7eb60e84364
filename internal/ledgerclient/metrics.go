package ledgerclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultOK          = "ok"
	resultRemoteError = "remote_error"
	resultMismatch    = "mismatch"
	resultAccepted    = "accepted"
	resultRejected    = "rejected"
)

var callsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "wallet_ledger_calls_total",
	Help: "Total ledger calls, labeled by method and result",
}, []string{"method", "result"})
