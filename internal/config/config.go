// Package config loads ledgerctl settings from an optional file, a .env file
// and LEDGER_* environment variables, in increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	ledger "github.com/luxfi/ledger-signer"
)

const EnvPrefix = "LEDGER"

const (
	KeyMock             = "mock"
	KeySettleDelay      = "settle_delay"
	KeyReconnectRetries = "reconnect_retries"
	KeyExchangeTimeout  = "exchange_timeout"
	KeyVendorID         = "vendor_id"
	KeyDisplayAddress   = "display_address"
	KeyChainCode        = "chain_code"
	KeyBitcoinPath      = "bitcoin_path"
	KeyEthereumPath     = "ethereum_path"
	KeyLogLevel         = "log_level"
)

// ErrInvalidConfig is returned when a value cannot be used.
var ErrInvalidConfig = errors.New("invalid config")

var loadDotEnv = EnsureDotEnv

// Config holds the resolved settings.
type Config struct {
	Mock             bool
	SettleDelay      time.Duration
	ReconnectRetries int
	ExchangeTimeout  time.Duration
	VendorID         uint16
	DisplayAddress   bool
	ChainCode        bool
	BitcoinPath      ledger.DerivationPath
	EthereumPath     ledger.DerivationPath
	LogLevel         string
}

// New returns a viper instance with defaults and env binding applied.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyMock, false)
	v.SetDefault(KeySettleDelay, ledger.DefaultSettleDelay)
	v.SetDefault(KeyReconnectRetries, ledger.DefaultReconnectRetries)
	v.SetDefault(KeyExchangeTimeout, ledger.DefaultExchangeTimeout)
	v.SetDefault(KeyVendorID, ledger.VendorLedger)
	v.SetDefault(KeyDisplayAddress, false)
	v.SetDefault(KeyChainCode, false)
	v.SetDefault(KeyBitcoinPath, ledger.BitcoinPath.String())
	v.SetDefault(KeyEthereumPath, ledger.EthereumPath.String())
	v.SetDefault(KeyLogLevel, "info")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) into v and resolves the settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		zap.S().Warnf("ignoring .env: %v", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &Config{
		Mock:             v.GetBool(KeyMock),
		SettleDelay:      v.GetDuration(KeySettleDelay),
		ReconnectRetries: v.GetInt(KeyReconnectRetries),
		ExchangeTimeout:  v.GetDuration(KeyExchangeTimeout),
		DisplayAddress:   v.GetBool(KeyDisplayAddress),
		ChainCode:        v.GetBool(KeyChainCode),
		LogLevel:         strings.ToLower(v.GetString(KeyLogLevel)),
	}

	vid := v.GetUint32(KeyVendorID)
	if vid == 0 || vid > 0xffff {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %d", KeyVendorID, vid)
	}
	cfg.VendorID = uint16(vid)

	if cfg.SettleDelay < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s must not be negative", KeySettleDelay)
	}
	if cfg.ReconnectRetries < 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s must not be negative", KeyReconnectRetries)
	}
	if cfg.ExchangeTimeout <= 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s must be positive", KeyExchangeTimeout)
	}

	var err error
	if cfg.BitcoinPath, err = parsePath(v, KeyBitcoinPath, ledger.MaxBitcoinPathLength); err != nil {
		return nil, err
	}
	if cfg.EthereumPath, err = parsePath(v, KeyEthereumPath, ledger.MaxEthereumPathLength); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parsePath(v *viper.Viper, key string, max int) (ledger.DerivationPath, error) {
	path, err := ledger.ParseDerivationPath(v.GetString(key))
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", key, err)
	}
	if len(path) > max {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %d components, at most %d", key, len(path), max)
	}
	return path, nil
}

// Options converts the settings into client options.
func (c *Config) Options() ledger.Options {
	return ledger.Options{
		Mock:            c.Mock,
		VendorID:        c.VendorID,
		ExchangeTimeout: c.ExchangeTimeout,
		Reconnect: &ledger.ReconnectPolicy{
			Delay:      c.SettleDelay,
			MaxRetries: c.ReconnectRetries,
		},
		DisplayAddress: c.DisplayAddress,
		ChainCode:      c.ChainCode,
		BitcoinPath:    c.BitcoinPath,
		EthereumPath:   c.EthereumPath,
	}
}
