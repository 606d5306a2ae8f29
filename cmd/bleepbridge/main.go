// Package main is the entry point for bleepbridge: an HTTP gateway and CLI
// over a single configured object storage backend.
package main

import (
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "bleepbridge",
		Usage: "Move objects to and from AWS S3, OCI, Azure Blob, Dropbox and FTP through one interface",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to configuration file",
				EnvVars: []string{"BLEEPBRIDGE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "override storage.backend: AWS, OCI, AZURE, DROPBOX or FTP",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level: debug, info, warn, error (default: from config or info)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format: text, json (default: from config or text)",
			},
		},
		Before: loadConfig,
		Commands: []*cli.Command{
			serveCommand,
			getCommand,
			putCommand,
			copyCommand,
			removeCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "bleepbridge: %v\n", err)
		os.Exit(1)
	}
}
