//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package main

import (
	"errors"
	"fmt"
	"io"

	cli "github.com/urfave/cli/v2"

	"github.com/yahoo/panoptes-dash/config"
	"github.com/yahoo/panoptes-dash/config/consul"
	"github.com/yahoo/panoptes-dash/config/etcd"
	"github.com/yahoo/panoptes-dash/config/yaml"
)

type loader func(string) (config.Config, error)

type cmd struct {
	configFile string
	consul     string
	etcd       string
	check      bool
}

// load loads the configuration from the selected backend,
// consul has precedence over etcd and etcd over the yaml file.
func (cm *cmd) load() (config.Config, error) {
	var (
		load loader
		arg  string
	)

	switch {
	case len(cm.consul) > 0:
		load, arg = consul.New, cm.consul
	case len(cm.etcd) > 0:
		load, arg = etcd.New, cm.etcd
	default:
		load, arg = yaml.New, cm.configFile
	}

	cfg, err := load(arg)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return cfg, nil
}

func getCli(args []string) (*cmd, error) {
	cm := cmd{}

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to a file in yaml format to read configuration",
		},
		&cli.StringFlag{
			Name:  "consul",
			Usage: "enable consul configuration management (path to a file in yaml format or -)",
		},
		&cli.StringFlag{
			Name:  "etcd",
			Usage: "enable etcd configuration management (path to a file in yaml format or -)",
		},
		&cli.BoolFlag{
			Name:  "check",
			Usage: "validate the sources configuration and exit",
		},
	}

	cli.AppHelpTemplate = `Panoptes Dash

-config filename       path to a file in yaml format to read configuration
-consul filename or -  enable consul configuration management
-etcd   filename or -  enable etcd configuration management
-check                 validate the sources configuration and exit
-help, -h      show help
-version, -v   show version

The sources write their samples to the series store (redis by default)
and the dashboards read them back or subscribe to their updates.
In case of consul or etcd, if you set dash as argument, it assumes
they available at localhost with default configuration.

`

	cli.VersionFlag = &cli.BoolFlag{
		Name: "version", Aliases: []string{"v"},
		Usage: "print only the version",
	}

	cli.VersionPrinter = func(c *cli.Context) {
		fmt.Printf("Panoptes Dash Version: %s\n\n", c.App.Version)
		cli.OsExiter(0)
	}

	cli.HelpPrinter = func(w io.Writer, templ string, data interface{}) {
		fmt.Fprint(w, templ)
		cli.OsExiter(0)
	}

	app := &cli.App{
		Version: config.GetVersion(),
		Flags:   flags,
		Action: func(c *cli.Context) error {
			cm = cmd{
				configFile: c.String("config"),
				consul:     c.String("consul"),
				etcd:       c.String("etcd"),
				check:      c.Bool("check"),
			}

			if len(cm.configFile)+len(cm.consul)+len(cm.etcd) < 1 {
				cli.ShowAppHelp(c)
				return errors.New("configuration not specified")
			}

			return nil
		},
	}

	err := app.Run(args)

	return &cm, err
}
