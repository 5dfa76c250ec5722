package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/danmuck/nftp/cmd/internal/logcfg"
	"github.com/danmuck/nftp/src/client"
	logs "github.com/danmuck/smplog"
	"github.com/urfave/cli"
)

var (
	addrArg    string
	timeoutArg time.Duration
	outputArg  string
)

func newClient() (*client.Client, context.Context, context.CancelFunc) {
	c := client.New(addrArg)
	ctx, cancel := context.WithTimeout(context.Background(), timeoutArg)
	return c, ctx, cancel
}

func get(cliCtx *cli.Context) error {
	path := cliCtx.Args().First()
	if path == "" {
		return cli.NewExitError("get: missing remote path", 2)
	}
	c, ctx, cancel := newClient()
	defer cancel()

	var w io.Writer = os.Stdout
	if outputArg != "" && outputArg != "-" {
		f, err := os.Create(outputArg)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	n, err := c.Get(ctx, path, w)
	if err != nil {
		return fmt.Errorf("get %q: %w", path, err)
	}
	logs.Infof("received %s (%d bytes)", path, n)
	return nil
}

func list(*cli.Context) error {
	c, ctx, cancel := newClient()
	defer cancel()

	raw, err := c.List(ctx)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	fmt.Println(raw)
	return nil
}

func tree(*cli.Context) error {
	c, ctx, cancel := newClient()
	defer cancel()

	root, err := c.Tree(ctx)
	if err != nil {
		return fmt.Errorf("tree: %w", err)
	}
	fmt.Print(root.Render())
	return nil
}

func main() {
	logs.Configure(logcfg.Load())

	app := cli.NewApp()
	app.Name = "nftp"
	app.Usage = "fetch files and listings from an nFTP server"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr",
			Value:       "localhost:9000",
			Usage:       "server address",
			EnvVar:      "NFTP_ADDR",
			Destination: &addrArg,
		},
		cli.DurationFlag{
			Name:        "timeout",
			Value:       time.Minute,
			Usage:       "overall deadline per request",
			Destination: &timeoutArg,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:      "get",
			Usage:     "download one file",
			ArgsUsage: "<path>",
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:        "o",
					Usage:       "write to file instead of stdout",
					Destination: &outputArg,
				},
			},
			Action: get,
		},
		{
			Name:   "list",
			Usage:  "print the raw directory tree",
			Action: list,
		},
		{
			Name:   "tree",
			Usage:  "print the directory tree indented",
			Action: tree,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logs.Fatalf(err, "nftp failed")
	}
}
