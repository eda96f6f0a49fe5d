package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/scr2ppm/internal/capture"
	"github.com/bryanchriswhite/scr2ppm/internal/config"
	"github.com/bryanchriswhite/scr2ppm/internal/logger"
	"github.com/bryanchriswhite/scr2ppm/internal/output"
	"github.com/bryanchriswhite/scr2ppm/internal/selector"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "scr2ppm",
		Short: "scr2ppm - Capture an X11 screen region as a PPM image",
		Long: `scr2ppm captures the whole screen, a window picked with the pointer,
or an area dragged out with the pointer, and writes it as a binary PPM (P6)
image to stdout or a file.

Diagnostics go to stderr so the image can be piped:
  scr2ppm -a | pnmtopng > area.png`,
		Example: `  # Capture the whole screen
  scr2ppm > screen.ppm

  # Click a window, wait 3 seconds, then capture it
  scr2ppm -w -d 3 > window.ppm

  # Drag out an area and write it to a file
  scr2ppm -a -o area.ppm`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCapture,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/scr2ppm/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	flags := rootCmd.Flags()
	flags.BoolP("screen", "s", false, "capture the whole screen")
	flags.BoolP("window", "w", false, "capture a window picked with the pointer")
	flags.BoolP("area", "a", false, "capture an area dragged out with the pointer")
	flags.IntP("delay", "d", 0, "seconds to wait between selection and capture")
	flags.StringP("output", "o", "", "write the image to FILE instead of stdout")
	flags.Bool("no-shm", false, "fetch pixels without the MIT-SHM extension")
	rootCmd.MarkFlagsMutuallyExclusive("screen", "window", "area")

	// Bind flags to viper
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("delay", flags.Lookup("delay"))
	viper.BindPFlag("output", flags.Lookup("output"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// loadConfig loads the config file and applies command-line overrides
func loadConfig(cmd *cobra.Command) (*config.Manager, error) {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		if logLevel := viper.GetString("log_level"); logLevel != "" {
			if err := configMgr.SetLogLevel(logLevel); err != nil {
				return nil, err
			}
		}
	}
	if viper.IsSet("delay") {
		if err := configMgr.Override("delay", viper.GetInt("delay")); err != nil {
			return nil, err
		}
	}
	if viper.IsSet("output") {
		if err := configMgr.Override("output", viper.GetString("output")); err != nil {
			return nil, err
		}
	}
	if noShm, _ := cmd.Flags().GetBool("no-shm"); noShm {
		if err := configMgr.Override("use_shm", false); err != nil {
			return nil, err
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	return configMgr, nil
}

// selectedMode returns the mode named by a flag, falling back to the config
func selectedMode(cmd *cobra.Command, fallback string) (capture.Mode, error) {
	for _, name := range []string{"screen", "window", "area"} {
		if on, _ := cmd.Flags().GetBool(name); on {
			return capture.ParseMode(name)
		}
	}
	return capture.ParseMode(fallback)
}

func runCapture(cmd *cobra.Command, args []string) error {
	configMgr, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log := logger.WithComponent("main")

	mode, err := selectedMode(cmd, cfg.Mode)
	if err != nil {
		return err
	}

	log.Debug().
		Str("config", configMgr.GetConfigPath()).
		Stringer("mode", mode).
		Int("delay", cfg.Delay).
		Bool("use_shm", cfg.UseShm).
		Msg("Starting capture")

	capturer, err := capture.NewX11Capturer(capture.X11Options{
		UseShm:    cfg.UseShm,
		Crosshair: cfg.Crosshair,
	})
	if err != nil {
		return err
	}
	if err := capturer.Start(); err != nil {
		capturer.Stop()
		return fmt.Errorf("failed to start %s capturer: %w", capturer.Name(), err)
	}
	defer capturer.Stop()

	resolver := capture.NewResolver(capturer, selector.New(capturer))
	resolver.SetBell(cfg.Bell)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shot := &capture.Shot{
		Capturer: capturer,
		Resolver: resolver,
		Output:   output.New(cfg.Output),
		Delay:    time.Duration(cfg.Delay) * time.Second,
	}
	return shot.Run(ctx, mode)
}
