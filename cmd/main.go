package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brettbedarf/memfs/api"
	"github.com/brettbedarf/memfs/config"
	"github.com/brettbedarf/memfs/internal/util"
	"github.com/brettbedarf/memfs/server"
	"github.com/brettbedarf/memfs/shell"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin, os.Stdout).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func newApp(in io.Reader, out io.Writer) *cli.App {
	return &cli.App{
		Name:      "memfs",
		Usage:     "an in-memory hierarchical file namespace with snapshot persistence",
		Reader:    in,
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a .yaml, .yml or .json config file",
			},
			&cli.StringFlag{
				Name:    "snapshot",
				Aliases: []string{"s"},
				Usage:   "snapshot file (.json, .yaml, optionally .zst or .gz); empty disables persistence",
			},
			&cli.IntFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Value:   config.InfoVerbose,
				Usage:   "log verbosity between 1 (error) and 5 (trace)",
			},
			&cli.BoolFlag{
				Name:  "no-clobber",
				Usage: "make mv and cp fail instead of replacing an existing entry",
			},
		},
		Action: runShell,
		Commands: []*cli.Command{
			{
				Name:   "shell",
				Usage:  "run the interactive command shell (default)",
				Action: runShell,
			},
			{
				Name:  "serve",
				Usage: "serve the HTTP API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "listen",
						Aliases: []string{"l"},
						Usage:   "listen address, e.g. :8000",
					},
					&cli.BoolFlag{
						Name:    "watch",
						Aliases: []string{"w"},
						Usage:   "reload the tree when another process rewrites the snapshot",
					},
				},
				Action: runServe,
			},
			{
				Name:      "mount",
				Usage:     "mount a read-only view of the namespace",
				ArgsUsage: "<dir>",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "umount",
						Aliases: []string{"u"},
						Usage:   "unmount dir first; useful after an unclean exit",
					},
				},
				Action: runMount,
			},
		},
	}
}

// loadConfig merges defaults, the config file, MEMFS_* env vars and flags,
// then initializes logging
func loadConfig(c *cli.Context) (*config.Config, error) {
	override := &config.ConfigOverride{}
	if c.IsSet("snapshot") {
		override.SnapshotPath = util.Pointer(c.String("snapshot"))
	}
	if c.IsSet("verbose") {
		override.LogLvl = util.Pointer(c.Int("verbose"))
	}
	if c.Bool("no-clobber") {
		override.Clobber = util.Pointer(false)
	}
	if c.IsSet("listen") {
		override.ListenAddr = util.Pointer(c.String("listen"))
	}
	if c.IsSet("watch") {
		override.Watch = util.Pointer(c.Bool("watch"))
	}

	cfg, err := config.Load(c.String("config"), override)
	if err != nil {
		return nil, err
	}
	util.InitializeLogger(cfg.LogLvl)
	return cfg, nil
}

func openMemFs(c *cli.Context) (*server.MemFs, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}
	logger := util.GetLogger("main")
	logger.Debug().Str("snapshot", cfg.SnapshotPath).Bool("clobber", cfg.Clobber).Msg("Configuration loaded")
	return server.New(cfg)
}

func runShell(c *cli.Context) (err error) {
	m, err := openMemFs(c)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, m.Close()) }()

	return shell.New(m, c.App.Reader, c.App.Writer).Run(c.Context)
}

func runServe(c *cli.Context) (err error) {
	logger := util.GetLogger("main")

	m, err := openMemFs(c)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, m.Close()) }()

	cfg := m.Config()
	if cfg.Watch {
		if err := m.Watch(); err != nil {
			return err
		}
	}

	srv := api.NewServer(cfg.ListenAddr, m)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-c.Context.Done():
	}

	logger.Info().Msg("Shutting down HTTP API")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runMount(c *cli.Context) (err error) {
	logger := util.GetLogger("main")

	mnt := c.Args().First()
	if mnt == "" {
		return errors.New("mount point not specified; it must be passed as the argument")
	}

	m, err := openMemFs(c)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, m.Close()) }()

	if c.Bool("umount") {
		// ignore the error when it was not mounted
		_ = exec.Command("fusermount", "-u", mnt).Run()
	}
	if err := m.Mount(mnt); err != nil {
		return fmt.Errorf("failed to mount: %w", err)
	}

	<-c.Context.Done()
	logger.Info().Str("mountpoint", mnt).Msg("Received signal, unmounting")
	return nil
}
