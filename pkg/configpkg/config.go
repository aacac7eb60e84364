// Package configpkg provides parsing functionality for environment variables.
package configpkg

import (
	"time"

	"github.com/spf13/viper"

	"github.com/Idri009/Token-Wallet-on-ICP-Blockchain/pkg/amountpkg"
)

// Config stores all configuration of the application.
//
// The values are read by viper from a config file or environment variables.
type Config struct {
	ServerAddress             string        `mapstructure:"SERVER_ADDRESS"`
	Environment               string        `mapstructure:"GO_ENV"`
	ReplicaHost               string        `mapstructure:"REPLICA_HOST"`
	LedgerCanisterID          string        `mapstructure:"LEDGER_CANISTER_ID"`
	IdentityProvider          string        `mapstructure:"IDENTITY_PROVIDER"`
	IdentityProviderURL       string        `mapstructure:"IDENTITY_PROVIDER_URL"`
	IdentityProviderPublicKey string        `mapstructure:"IDENTITY_PROVIDER_PUBLIC_KEY"`
	DelegationFormat          string        `mapstructure:"DELEGATION_FORMAT"`
	DelegationTTL             time.Duration `mapstructure:"DELEGATION_TTL"`
	IdentityDir               string        `mapstructure:"IDENTITY_DIR"`
	RequestTimeout            time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	IngressExpiry             time.Duration `mapstructure:"INGRESS_EXPIRY"`
	TokenDecimals             int32         `mapstructure:"TOKEN_DECIMALS"`
	DefaultSymbol             string        `mapstructure:"DEFAULT_SYMBOL"`
	StatusTTL                 time.Duration `mapstructure:"STATUS_TTL"`
}

// Identity provider kinds.
const (
	ProviderHTTP  = "http"
	ProviderLocal = "local"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_ADDRESS", "127.0.0.1:8080")
	v.SetDefault("GO_ENV", "production")
	v.SetDefault("REPLICA_HOST", "https://icp-api.io")
	v.SetDefault("IDENTITY_PROVIDER", ProviderLocal)
	v.SetDefault("DELEGATION_FORMAT", "paseto")
	v.SetDefault("DELEGATION_TTL", 8*time.Hour)
	v.SetDefault("IDENTITY_DIR", ".wallet")
	v.SetDefault("REQUEST_TIMEOUT", 30*time.Second)
	v.SetDefault("INGRESS_EXPIRY", 4*time.Minute)
	v.SetDefault("TOKEN_DECIMALS", amountpkg.Decimals)
	v.SetDefault("DEFAULT_SYMBOL", "DLTK")
	v.SetDefault("STATUS_TTL", 10*time.Second)
}

// Load read configuration from file or environment variables.
func Load(path string) (Config, error) {
	var c Config

	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("app")
	v.SetConfigType("env")

	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err != nil {
		return c, err
	}

	err = v.Unmarshal(&c)
	if err != nil {
		return c, err
	}

	return c, nil
}
