package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/bluetuith-org/bluele/cmd/config"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v2"
)

// These values are set at compile-time.
var (
	Version  = ""
	Revision = ""
)

// Run runs the commandline application.
func Run() error {
	return newApp().Run(os.Args)
}

// newApp returns a new commandline application.
func newApp() *cli.App {
	cli.VersionPrinter = func(cCtx *cli.Context) {
		fmt.Fprintf(cCtx.App.Writer, "%s (%s)\n", Version, Revision)
	}

	return &cli.App{
		Name:                   "bluele",
		Usage:                  "Bluetooth LE client.",
		Version:                Version + " (" + Revision + ")",
		Description:            "A Bluetooth LE GATT client for the terminal.",
		Copyright:              "(c) bluetuith-org.",
		Compiled:               time.Now(),
		EnableBashCompletion:   true,
		UseShortOptionHandling: true,
		Suggest:                true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "adapter",
				Aliases: []string{"a"},
				EnvVars: []string{"BLUELE_ADAPTER"},
				Usage:   "Specify an adapter to use. (For example, hci0)",
			},
			&cli.StringFlag{
				Name:    "address-type",
				Aliases: []string{"t"},
				EnvVars: []string{"BLUELE_ADDRESS_TYPE"},
				Usage:   "Specify the address type of new devices. ('public' or 'random', both are tried if unset)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"L"},
				EnvVars: []string{"BLUELE_LOG_LEVEL"},
				Usage:   "Specify the log level. (For example, 'debug' or 'info')",
			},
			&cli.StringFlag{
				Name:    "connect-timeout",
				EnvVars: []string{"BLUELE_CONNECT_TIMEOUT"},
				Usage:   "Specify the timeout to connect to a new device. (For example, '15s')",
			},
			&cli.StringFlag{
				Name:    "services-timeout",
				EnvVars: []string{"BLUELE_SERVICES_TIMEOUT"},
				Usage:   "Specify the timeout for a device to resolve its services. (For example, '30s')",
			},
			&cli.StringFlag{
				Name:    "notify-timeout",
				EnvVars: []string{"BLUELE_NOTIFY_TIMEOUT"},
				Usage:   "Specify the timeout for a characteristic to start notifying. (For example, '5s')",
			},
			&cli.BoolFlag{
				Name:    "no-warning",
				Aliases: []string{"w"},
				EnvVars: []string{"BLUELE_NO_WARNING"},
				Usage:   "Do not display warnings.",
			},
			&cli.BoolFlag{
				Name:    "generate",
				Aliases: []string{"g"},
				Usage:   "Generate configuration.",
				Action: func(cliCtx *cli.Context, _ bool) error {
					k := koanf.New(".")

					cliCtx.Command.Name = "global"

					conf := config.NewConfig()
					if err := conf.Load(k, cliCtx); err != nil {
						return err
					}

					return conf.GenerateAndSave(k)
				},
			},
		},
		Commands: []*cli.Command{
			devicesCommand(),
			scanCommand(),
			infoCommand(),
			readCommand(),
			writeCommand(),
			notifyCommand(),
		},
		Action: func(cliCtx *cli.Context) error {
			if cliCtx.Bool("generate") {
				return nil
			}

			return cli.ShowAppHelp(cliCtx)
		},
		ExitErrHandler: func(_ *cli.Context, err error) {
			if err == nil {
				return
			}

			printError(err)
		},
	}
}

// loadConfig loads and validates the configuration from the global flags
// and the configuration file.
func loadConfig(cliCtx *cli.Context) (*config.Config, error) {
	lineage := cliCtx.Lineage()
	root := lineage[len(lineage)-1]

	// required for koanf to merge all global flags under the root namespace.
	if root.Command != nil {
		root.Command.Name = "global"
	}

	k, cfg := koanf.New("."), config.NewConfig()
	if err := cfg.Load(k, root); err != nil {
		return nil, err
	}
	if err := cfg.ValidateValues(); err != nil {
		return nil, err
	}

	return cfg, nil
}
