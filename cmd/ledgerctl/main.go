package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	ledger "github.com/luxfi/ledger-signer"
	"github.com/luxfi/ledger-signer/internal/config"
)

// cli holds the state of one ledgerctl invocation.
type cli struct {
	cfgFile     string
	outputFmt   string
	deviceIndex int
	v           *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: config.New()}
	rootCmd := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Talk to a Ledger hardware signer",
		Long:          `ledgerctl lists attached Ledger devices, switches their app, derives accounts and signs messages without the private key ever leaving the device.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&c.cfgFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVarP(&c.outputFmt, "output", "o", "text", "output format: text or yaml")
	flags.IntVarP(&c.deviceIndex, "device", "d", 0, "index of the device in the discovery list")
	flags.Bool(config.KeyMock, false, "use the deterministic mock signer instead of USB devices")
	flags.String(config.KeyLogLevel, "info", "log level: debug, info, warn or error")
	flags.Duration(config.KeySettleDelay, ledger.DefaultSettleDelay, "wait before reconnecting after an app switch")
	_ = c.v.BindPFlag(config.KeyMock, flags.Lookup(config.KeyMock))
	_ = c.v.BindPFlag(config.KeyLogLevel, flags.Lookup(config.KeyLogLevel))
	_ = c.v.BindPFlag(config.KeySettleDelay, flags.Lookup(config.KeySettleDelay))

	rootCmd.AddCommand(
		c.newDevicesCmd(),
		c.newInfoCmd(),
		c.newAccountsCmd(),
		c.newSignCmd(),
	)
	return rootCmd
}

// execute runs cmd and reports a failure on its error stream.
func execute(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if err != nil {
		cmd.PrintErrln("ledgerctl:", err)
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	zap.ReplaceGlobals(ledger.NewLogger("info"))
	err := execute(ctx, newRootCmd())
	_ = zap.L().Sync()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// newClient resolves configuration and builds the signer client.
func (c *cli) newClient() (ledger.SignerClient, *config.Config, error) {
	cfg, err := config.Load(c.v, c.cfgFile)
	if err != nil {
		return nil, nil, err
	}
	logger := ledger.NewLogger(cfg.LogLevel)
	zap.ReplaceGlobals(logger)
	ledger.SetLogger(logger)
	if path := config.LoadedDotEnv(); path != "" {
		logger.Debug("loaded .env", zap.String("path", path))
	}
	return ledger.New(cfg.Options()), cfg, nil
}

// selectDevice discovers devices and picks the one at --device.
func (c *cli) selectDevice(ctx context.Context, client ledger.SignerClient) (ledger.Device, error) {
	devices, err := client.DiscoverDevices(ctx)
	if err != nil {
		return ledger.Device{}, err
	}
	if len(devices) == 0 {
		return ledger.Device{}, ledger.ErrDeviceNotFound
	}
	if c.deviceIndex < 0 || c.deviceIndex >= len(devices) {
		return ledger.Device{}, errors.Wrapf(ledger.ErrDeviceNotFound, "index %d, %d device(s) attached", c.deviceIndex, len(devices))
	}
	return devices[c.deviceIndex], nil
}

func networkFlag(cmd *cobra.Command) (ledger.Network, error) {
	name, err := cmd.Flags().GetString("network")
	if err != nil {
		return 0, err
	}
	return ledger.ParseNetwork(name)
}

func deviceLabel(i int, d ledger.Device) string {
	return strconv.Itoa(i) + ": " + d.String()
}
