package main

import (
	"fmt"
	"os"

	"github.com/earthboundkid/versioninfo/v2"
	"github.com/joho/godotenv"
	"github.com/rm-hull/blurr/cmd"
	"github.com/rm-hull/blurr/internal"
	"github.com/rm-hull/blurr/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeys maps command-line flags onto their configuration keys.
var flagKeys = map[string]string{
	"scale":  "scale_factor",
	"radius": "radius",
	"port":   "port",
	"debug":  "debug",
	"inbox":  "inbox_dir",
	"outbox": "outbox_dir",
}

func main() {
	var configFile string
	var restore bool
	var frames int
	var frameDelay float64
	var cfg *config.Config

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found")
	}

	rootCmd := &cobra.Command{
		Use:          "blurr",
		Long:         `Downscale and Gaussian blur images`,
		SilenceUsage: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			v, err := config.New(configFile)
			if err != nil {
				return err
			}
			if err := bindFlags(v, c.Flags()); err != nil {
				return err
			}
			cfg, err = config.Load(v)
			if err != nil {
				return err
			}
			internal.ConfigureLogging(os.Stderr, cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to a config file (default ./blurr.toml)")

	blurCmd := &cobra.Command{
		Use:   "blur <in> <out> [--scale <f>] [--radius <f>] [--restore]",
		Short: "Blur a single image and write it as PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.Blur(cfg.Engine(), args[0], args[1], restore)
		},
	}
	addBlurFlags(blurCmd)
	blurCmd.Flags().BoolVar(&restore, "restore", false, "Resample the blurred image back to the original size")

	animateCmd := &cobra.Command{
		Use:   "animate <in> <out.png> [--frames <n>] [--delay <s>] [--scale <f>] [--radius <f>]",
		Short: "Write an animated PNG with the blur radius ramping up",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return cmd.Animate(cfg.Engine(), args[0], args[1], frames, frameDelay)
		},
	}
	addBlurFlags(animateCmd)
	animateCmd.Flags().IntVar(&frames, "frames", 10, "Number of animation frames")
	animateCmd.Flags().Float64Var(&frameDelay, "delay", 0.1, "Delay between frames in seconds")

	apiServerCmd := &cobra.Command{
		Use:   "api-server [--port <port>] [--debug] [--inbox <path>] [--outbox <path>]",
		Short: "Start HTTP API server",
		Run: func(_ *cobra.Command, _ []string) {
			internal.ShowVersion()
			internal.UserInfo()
			internal.EnvironmentVars(config.EnvPrefix)
			cmd.ApiServer(cfg)
		},
	}
	apiServerCmd.Flags().Int("port", 8080, "Port to run HTTP server on")
	apiServerCmd.Flags().Bool("debug", false, "Enable debugging (pprof) - WARNING: do not enable in production")
	apiServerCmd.Flags().String("inbox", "", "Directory to watch for images to blur (disabled when empty)")
	apiServerCmd.Flags().String("outbox", "./data/outbox", "Directory blurred inbox images are written to")

	versionCmd := &cobra.Command{
		Use:              "version",
		Short:            "Print the version",
		PersistentPreRun: func(*cobra.Command, []string) {},
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(versioninfo.Short())
		},
	}

	rootCmd.AddCommand(blurCmd, animateCmd, apiServerCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func addBlurFlags(c *cobra.Command) {
	c.Flags().Float64("scale", 0.3, "Downscale factor in (0, 1]")
	c.Flags().Float64("radius", 15, "Blur radius in (0, 25]")
}

// bindFlags lets explicitly set flags override the config file and environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		if flag := flags.Lookup(name); flag != nil {
			if err := v.BindPFlag(key, flag); err != nil {
				return err
			}
		}
	}
	return nil
}
