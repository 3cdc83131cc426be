// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ledviz/internal/config"
	"ledviz/pkg/build"
)

// Commands main knows how to run.
const (
	CommandRun        = "run"
	CommandList       = "list"
	CommandEffects    = "effects"
	CommandTest       = "test"
	CommandInitConfig = "init-config"
)

// Options is the parsed command line.
type Options struct {
	Command    string
	ConfigPath string
	LogLevel   string
	Debug      bool

	InputDevice    int
	inputDeviceSet bool
	LowLatency     bool
	InputFile      string
	Loop           bool
	Record         bool
	Preview        bool
	NoControl      bool

	// Target of the test and init-config commands.
	Target string
}

// ParseArgs parses args (without the program name). It returns nil options
// when there is nothing left to do.
func ParseArgs(args []string) (*Options, error) {
	buildInfo := build.GetBuildFlags()
	options := &Options{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         buildInfo.Description,
		Version:       buildInfo.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = CommandRun
			options.inputDeviceSet = cmd.Flags().Changed("device")
			if options.Loop && options.InputFile == "" {
				return fmt.Errorf("--loop requires --input")
			}
			return nil
		},
	}
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandList
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "effects",
		Short: "List effects and their options",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandEffects
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "test <strip>",
		Short: "Scroll a red, green and blue pixel along a configured strip",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandTest
			options.Target = args[0]
		},
	})
	rootCmd.AddCommand(&cobra.Command{
		Use:   "init-config [path]",
		Short: "Write the built-in configuration to a file",
		Args:  cobra.MaximumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = CommandInitConfig
			options.Target = "config.yaml"
			if len(args) == 1 {
				options.Target = args[0]
			}
		},
	})

	// Configuration
	rootCmd.PersistentFlags().StringVarP(&options.ConfigPath, "config", "c", "",
		"Path to the YAML configuration file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&options.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides the configuration)")
	rootCmd.PersistentFlags().BoolVarP(&options.Debug, "verbose", "v", false,
		"Shorthand for --log-level debug")

	// Audio input
	rootCmd.Flags().IntVarP(&options.InputDevice, "device", "d", config.MinDeviceID,
		"Input device ID. Use the 'list' command to see available devices.")
	rootCmd.Flags().BoolVarP(&options.LowLatency, "low-latency", "l", false,
		"Open the input device with its low latency setting")
	rootCmd.Flags().StringVarP(&options.InputFile, "input", "i", "",
		"Replay a WAV file instead of capturing from a device")
	rootCmd.Flags().BoolVar(&options.Loop, "loop", false,
		"Restart the --input file when it ends")

	// Outputs
	rootCmd.Flags().BoolVarP(&options.Record, "record", "r", false,
		"Record captured audio to the configured recording directory")
	rootCmd.Flags().BoolVarP(&options.Preview, "preview", "p", false,
		"Show a terminal preview of every strip")
	rootCmd.Flags().BoolVar(&options.NoControl, "no-control", false,
		"Do not start the websocket control server")

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}
	if options.Command == "" {
		// Help or version was printed.
		return nil, nil
	}
	return options, nil
}

// Apply overrides cfg with the flags the user set.
func (o *Options) Apply(cfg *config.Config) {
	switch {
	case o.Debug:
		cfg.LogLevel = "debug"
	case o.LogLevel != "":
		cfg.LogLevel = o.LogLevel
	}
	if o.inputDeviceSet {
		cfg.Audio.InputDevice = o.InputDevice
	}
	if o.LowLatency {
		cfg.Audio.LowLatency = true
	}
	if o.InputFile != "" {
		cfg.Audio.InputFile = o.InputFile
	}
	if o.Record {
		cfg.Recording.Enabled = true
	}
	if o.NoControl {
		cfg.Control.Enabled = false
	}
}
