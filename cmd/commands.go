package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	bluetooth "github.com/bluetuith-org/bluele/api/bluetooth"
	"github.com/bluetuith-org/bluele/cmd/config"
	"github.com/bluetuith-org/bluele/session"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"
)

// pollInterval is the maximum time the bus is waited on per iteration
// of a long-running command.
const pollInterval = 100 * time.Millisecond

var errInvalidArgs = errors.New("invalid arguments")

// devicesCommand lists the devices known to the adapter.
func devicesCommand() *cli.Command {
	return &cli.Command{
		Name:    "devices",
		Aliases: []string{"d"},
		Usage:   "List the devices known to the adapter.",
		Action: func(cliCtx *cli.Context) error {
			return withSession(cliCtx, func(_ *config.Config, s bluetooth.Session) error {
				return s.KnownDevices(printDevice)
			})
		},
	}
}

// scanCommand discovers devices for the provided duration, or until interrupted.
func scanCommand() *cli.Command {
	return &cli.Command{
		Name:    "scan",
		Aliases: []string{"s"},
		Usage:   "Discover nearby devices.",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Value:   10 * time.Second,
				Usage:   "Specify how long to scan for devices.",
			},
		},
		Action: func(cliCtx *cli.Context) error {
			return withSession(cliCtx, func(cfg *config.Config, s bluetooth.Session) error {
				ctx, cancel := commandContext(cliCtx.Duration("duration"))
				defer cancel()

				bar := progressbar.NewOptions64(
					-1,
					progressbar.OptionSpinnerType(34),
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("Scanning"),
					progressbar.OptionSetPredictTime(false),
					progressbar.OptionSetRenderBlankState(true),
					progressbar.OptionThrottle(200*time.Millisecond),
					progressbar.OptionClearOnFinish(),
				)
				defer bar.Finish()

				seen := make(map[bluetooth.MacAddress]struct{})
				if err := s.StartScan(func(device bluetooth.DeviceData) {
					if _, ok := seen[device.Address]; ok {
						return
					}

					seen[device.Address] = struct{}{}

					_ = bar.Clear()
					printDevice(device)
				}); err != nil {
					return err
				}
				defer s.StopScan()

				return driveUntil(ctx, s, func() {
					_ = bar.Add(1)
				})
			})
		},
	}
}

// infoCommand connects to a device and lists its services and characteristics.
func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Aliases:   []string{"i"},
		Usage:     "Show the services and characteristics of a device.",
		ArgsUsage: "<address>",
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.NArg() != 1 {
				return argsError(cliCtx)
			}

			return withDevice(cliCtx, func(_ *config.Config, _ bluetooth.Session, device bluetooth.Device) error {
				services, err := device.ServiceUUIDs()
				if err != nil {
					return err
				}

				uuids, err := device.CharacteristicUUIDs()
				if err != nil {
					return err
				}

				chars := make([]bluetooth.Characteristic, 0, len(uuids))
				for _, uuid := range uuids {
					c, err := device.Characteristic(uuid)
					if err != nil {
						return err
					}

					chars = append(chars, c)
				}

				printDeviceInfo(device, services, chars)

				for _, c := range chars {
					c.Release()
				}

				return nil
			})
		},
	}
}

// readCommand reads the value of a characteristic.
func readCommand() *cli.Command {
	return &cli.Command{
		Name:      "read",
		Aliases:   []string{"r"},
		Usage:     "Read the value of a characteristic.",
		ArgsUsage: "<address> <uuid>",
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.NArg() != 2 {
				return argsError(cliCtx)
			}

			return withCharacteristic(cliCtx, func(_ *config.Config, _ bluetooth.Session, c bluetooth.Characteristic) error {
				value, err := c.ReadValue()
				if err != nil {
					return err
				}

				printValue(c, value)

				return nil
			})
		},
	}
}

// writeCommand writes a hex-encoded value to a characteristic.
func writeCommand() *cli.Command {
	return &cli.Command{
		Name:      "write",
		Aliases:   []string{"W"},
		Usage:     "Write a hex-encoded value to a characteristic.",
		ArgsUsage: "<address> <uuid> <value>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "acquire",
				Aliases: []string{"q"},
				Usage:   "Write through an acquired file descriptor.",
			},
		},
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.NArg() != 3 {
				return argsError(cliCtx)
			}

			data, err := hex.DecodeString(strings.TrimPrefix(cliCtx.Args().Get(2), "0x"))
			if err != nil {
				return fmt.Errorf("%s: The value must be hex-encoded: %w", cliCtx.Args().Get(2), err)
			}

			return withCharacteristic(cliCtx, func(_ *config.Config, _ bluetooth.Session, c bluetooth.Characteristic) error {
				if !cliCtx.Bool("acquire") {
					return c.Write(data)
				}

				fd, err := c.AcquireWrite()
				if err != nil {
					return err
				}

				f := os.NewFile(uintptr(fd), c.Path())
				defer f.Close()

				_, err = f.Write(data)

				return err
			})
		},
	}
}

// notifyCommand prints the notified values of a characteristic.
func notifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "notify",
		Aliases:   []string{"n"},
		Usage:     "Print the notified values of a characteristic.",
		ArgsUsage: "<address> <uuid>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Stop after the specified number of values. (0 to never stop)",
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "Stop after the specified duration. (0 to never stop)",
			},
		},
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.NArg() != 2 {
				return argsError(cliCtx)
			}

			return withCharacteristic(cliCtx, func(_ *config.Config, s bluetooth.Session, c bluetooth.Characteristic) error {
				ctx, cancel := commandContext(cliCtx.Duration("duration"))
				defer cancel()

				count, received := cliCtx.Int("count"), 0
				if err := c.StartNotify(func(value []byte, c bluetooth.Characteristic) {
					printValue(c, value)

					received++
					if count > 0 && received >= count {
						cancel()
					}
				}); err != nil {
					return err
				}
				defer c.StopNotify()

				return driveUntil(ctx, s, nil)
			})
		},
	}
}

// withSession starts a session with the loaded configuration, and calls fn.
// Error events of the session are printed as warnings while fn runs.
func withSession(cliCtx *cli.Context, fn func(*config.Config, bluetooth.Session) error) error {
	cfg, err := loadConfig(cliCtx)
	if err != nil {
		return err
	}

	s, err := session.NewSession(cfg.Values.SessionConfig())
	if err != nil {
		return err
	}
	defer s.Close()

	if !cfg.Values.NoWarning {
		defer watchErrors()()
	}

	return fn(cfg, s)
}

// withDevice connects to the device whose address is the first argument, and calls fn.
func withDevice(cliCtx *cli.Context, fn func(*config.Config, bluetooth.Session, bluetooth.Device) error) error {
	return withSession(cliCtx, func(cfg *config.Config, s bluetooth.Session) error {
		device, err := s.Connect(cliCtx.Args().First(), cfg.Values.SelectedAddressType, func(d bluetooth.Device) {
			if !cfg.Values.NoWarning {
				printWarn(d.Address().String() + ": The device was disconnected")
			}
		})
		if err != nil {
			return err
		}
		defer device.Disconnect()

		return fn(cfg, s, device)
	})
}

// withCharacteristic looks up the characteristic whose UUID is the second argument
// on the connected device, and calls fn.
func withCharacteristic(cliCtx *cli.Context, fn func(*config.Config, bluetooth.Session, bluetooth.Characteristic) error) error {
	return withDevice(cliCtx, func(cfg *config.Config, s bluetooth.Session, device bluetooth.Device) error {
		c, err := device.Characteristic(cliCtx.Args().Get(1))
		if err != nil {
			return err
		}
		defer c.Release()

		return fn(cfg, s, c)
	})
}

// watchErrors prints all published error events as warnings, until
// the returned function is called.
func watchErrors() func() {
	sub, ok := bluetooth.ErrorEvents().Subscribe()
	if !ok {
		return func() {}
	}

	go func() {
		for ev := range sub.AddedEvents {
			printWarn(ev.Error())
		}
	}()

	return sub.Unsubscribe
}

// commandContext returns a context which is cancelled on an interrupt,
// or after the duration if it is positive.
func commandContext(duration time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	if duration <= 0 {
		return ctx, stop
	}

	ctx, cancel := context.WithTimeout(ctx, duration)

	return ctx, func() {
		cancel()
		stop()
	}
}

// driveUntil drives the session until the context is done.
func driveUntil(ctx context.Context, s bluetooth.Session, tick func()) error {
	for ctx.Err() == nil {
		if err := s.DriveLoop(pollInterval); err != nil {
			return err
		}

		if tick != nil {
			tick()
		}
	}

	return nil
}

func argsError(cliCtx *cli.Context) error {
	return fmt.Errorf("%w: usage: %s %s", errInvalidArgs, cliCtx.Command.FullName(), cliCtx.Command.ArgsUsage)
}
