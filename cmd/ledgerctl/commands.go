package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	ledger "github.com/luxfi/ledger-signer"
)

type deviceView struct {
	Index      int    `yaml:"index"`
	Device     string `yaml:"device"`
	Model      string `yaml:"model,omitempty"`
	AppName    string `yaml:"app,omitempty"`
	AppVersion string `yaml:"app_version,omitempty"`
}

type accountView struct {
	Device      string `yaml:"device"`
	Network     string `yaml:"network"`
	Path        string `yaml:"path"`
	Address     string `yaml:"address"`
	Checksummed string `yaml:"checksummed,omitempty"`
}

type signatureView struct {
	Device    string `yaml:"device"`
	Network   string `yaml:"network"`
	V         uint8  `yaml:"v"`
	R         string `yaml:"r"`
	S         string `yaml:"s"`
	Signature string `yaml:"signature"`
}

func (c *cli) render(w io.Writer, value interface{}, text func(io.Writer)) error {
	switch c.outputFmt {
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(value)
	case "text", "":
		text(w)
		return nil
	}
	return errors.Errorf("unknown output format %q", c.outputFmt)
}

func (c *cli) newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List attached devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.newClient()
			if err != nil {
				return err
			}
			devices, err := client.DiscoverDevices(cmd.Context())
			if err != nil {
				return err
			}
			views := make([]deviceView, len(devices))
			for i, d := range devices {
				views[i] = deviceView{Index: i, Device: d.String()}
			}
			return c.render(cmd.OutOrStdout(), views, func(w io.Writer) {
				if len(devices) == 0 {
					fmt.Fprintln(w, "no device found")
				}
				for i, d := range devices {
					fmt.Fprintln(w, deviceLabel(i, d))
				}
			})
		},
	}
}

func (c *cli) newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show model and running app of a device",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.newClient()
			if err != nil {
				return err
			}
			device, err := c.selectDevice(cmd.Context(), client)
			if err != nil {
				return err
			}
			info, err := client.GetDeviceInfo(cmd.Context(), device)
			if err != nil {
				return err
			}
			view := deviceView{Index: c.deviceIndex, Device: device.String()}
			if info != nil {
				view.Model, view.AppName, view.AppVersion = info.Model, info.AppName, info.AppVersion
			}
			return c.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				fmt.Fprintln(w, deviceLabel(c.deviceIndex, device))
				if info == nil {
					fmt.Fprintln(w, "  no hardware info available")
					return
				}
				fmt.Fprintf(w, "  model: %s\n", info.Model)
				if info.AppName != "" {
					fmt.Fprintf(w, "  app:   %s %s\n", info.AppName, info.AppVersion)
				}
			})
		},
	}
}

func (c *cli) newAccountsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Open the network app and derive its account",
		RunE: func(cmd *cobra.Command, args []string) error {
			network, err := networkFlag(cmd)
			if err != nil {
				return err
			}
			client, _, err := c.newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var devices []ledger.Device
			if all {
				if devices, err = client.DiscoverDevices(ctx); err != nil {
					return err
				}
				if len(devices) == 0 {
					return ledger.ErrDeviceNotFound
				}
			} else {
				device, err := c.selectDevice(ctx, client)
				if err != nil {
					return err
				}
				devices = []ledger.Device{device}
			}

			found, err := ledger.DiscoverAll(ctx, client, devices, network)
			if err != nil {
				return err
			}

			var views []accountView
			for _, d := range devices {
				for _, a := range found[d] {
					view := accountView{Device: d.String(), Network: a.Network.String(), Path: a.Path.String(), Address: a.Address}
					if cs := a.Checksummed(); cs != a.Address {
						view.Checksummed = cs
					}
					views = append(views, view)
				}
			}
			return c.render(cmd.OutOrStdout(), views, func(w io.Writer) {
				if len(views) == 0 {
					fmt.Fprintln(w, "no accounts available")
				}
				for _, view := range views {
					addr := view.Address
					if view.Checksummed != "" {
						addr = view.Checksummed
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", view.Device, view.Path, addr)
				}
			})
		},
	}
	cmd.Flags().StringP("network", "n", "ethereum", "network: bitcoin or ethereum")
	cmd.Flags().BoolVar(&all, "all", false, "derive on every attached device")
	return cmd
}

func (c *cli) newSignCmd() *cobra.Command {
	var (
		message string
		hexMsg  string
		openApp bool
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a message on the device",
		RunE: func(cmd *cobra.Command, args []string) error {
			network, err := networkFlag(cmd)
			if err != nil {
				return err
			}
			payload := []byte(message)
			if hexMsg != "" {
				if payload, err = hex.DecodeString(strings.TrimPrefix(hexMsg, "0x")); err != nil {
					return errors.Wrap(err, "decode --hex")
				}
			}

			client, _, err := c.newClient()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			device, err := c.selectDevice(ctx, client)
			if err != nil {
				return err
			}
			if openApp {
				if err := client.OpenApp(ctx, device, network); err != nil {
					return err
				}
			}
			sig, err := client.SignMessage(ctx, device, network, payload)
			if err != nil {
				return err
			}

			view := signatureView{
				Device:    device.String(),
				Network:   network.String(),
				V:         sig.V,
				R:         "0x" + hex.EncodeToString(sig.R[:]),
				S:         "0x" + hex.EncodeToString(sig.S[:]),
				Signature: sig.String(),
			}
			return c.render(cmd.OutOrStdout(), view, func(w io.Writer) {
				fmt.Fprintf(w, "v: %d\nr: %s\ns: %s\nsignature: %s\n", view.V, view.R, view.S, view.Signature)
			})
		},
	}
	cmd.Flags().StringP("network", "n", "ethereum", "network: bitcoin or ethereum")
	cmd.Flags().StringVarP(&message, "message", "m", "", "message to sign")
	cmd.Flags().StringVar(&hexMsg, "hex", "", "hex-encoded message to sign (overrides --message)")
	cmd.Flags().BoolVar(&openApp, "open-app", true, "open the network app before signing")
	return cmd
}
