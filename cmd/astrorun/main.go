package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sawpanic/astrorun/internal/config"
	applog "github.com/sawpanic/astrorun/internal/log"
)

const (
	appName = "AstroRun"
	version = "v1.0.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("astrorun failed")
		stop()
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	flags      *config.Flags
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:     "astrorun",
		Short:   "Planetary positions, zodiac signs and aspects",
		Version: version,
		Long: appName + ` computes ecliptic positions for the Sun, Moon and planets,
maps dates onto zodiac signs and finds aspects between bodies.

Run 'astrorun serve' for the HTTP API or use the query commands directly.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}

	root.PersistentFlags().StringVar(&c.configPath, "config", config.DefaultPath, "path to the YAML config file")
	c.flags = config.BindFlags(root.PersistentFlags())

	root.AddCommand(
		c.serveCmd(),
		c.planetsCmd(),
		c.signsCmd(),
		c.signCmd(),
		c.aspectsCmd(),
	)
	return root
}

// load resolves file, environment and flags, in that order, then validates.
func (c *cli) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := applog.Setup(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr()); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}
