// SPDX-License-Identifier: GPL-3.0-only

// Package main provides the ksct command line tool for setting the colour
// temperature of X11 screens.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/shini4i/ksct/internal/gamma"
	"github.com/shini4i/ksct/internal/preset"
	"github.com/shini4i/ksct/internal/runner"
	"github.com/shini4i/ksct/internal/xrandr"
)

// errLocationRequired is returned when auto mode is used without a location.
var errLocationRequired = errors.New("--auto requires --lat and --lon")

// errMultiplePresets is returned when more than one preset flag is given.
var errMultiplePresets = errors.New("only one of --default, --day and --night can be given")

// cliFlags holds the values bound to the root command flags.
type cliFlags struct {
	screen  int
	crtc    int
	delta   bool
	toggle  bool
	auto    bool
	lat     float64
	lon     float64
	display string
	presets string

	saveDefault bool
	saveDay     bool
	saveNight   bool

	// latSet and lonSet record whether the location flags were given.
	latSet bool
	lonSet bool
}

var (
	verbose bool
	flags   cliFlags
	rootCmd = &cobra.Command{
		Use:   "ksct [flags] [temperature] [brightness]",
		Short: "Set the colour temperature of X11 screens",
		Long: `ksct sets the colour temperature and brightness of X11 screens through
the RandR gamma ramps.

Without arguments it prints the estimated temperature of each screen. A
temperature of 0 applies the default preset. With --delta the arguments are
added to the current values, and --toggle switches between the day and
night presets.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(verbose)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.latSet = cmd.Flags().Changed("lat")
			flags.lonSet = cmd.Flags().Changed("lon")
			return run(cmd.OutOrStdout(), flags, args)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flags.display, "display", "", "X display to connect to (default $DISPLAY)")
	rootCmd.PersistentFlags().StringVar(&flags.presets, "presets", "", "Presets file (default $XDG_CONFIG_HOME/ksct/presets.json)")

	f := rootCmd.Flags()
	f.IntVarP(&flags.screen, "screen", "s", -1, "Zero-based screen index (default all screens)")
	f.IntVarP(&flags.crtc, "crtc", "c", -1, "Zero-based CRTC index (default all CRTCs)")
	f.BoolVarP(&flags.delta, "delta", "d", false, "Shift the current temperature and brightness by the given values")
	f.BoolVarP(&flags.toggle, "toggle", "t", false, "Toggle between the day and night presets")
	f.BoolVar(&flags.auto, "auto", false, "Apply the day or night preset for the current sun position")
	f.Float64Var(&flags.lat, "lat", 0, "Latitude in degrees for --auto")
	f.Float64Var(&flags.lon, "lon", 0, "Longitude in degrees for --auto")
	f.BoolVarP(&flags.saveDefault, "default", "B", false, "Save the temperature and brightness as the default preset")
	f.BoolVarP(&flags.saveDay, "day", "D", false, "Save the temperature and brightness as the day preset")
	f.BoolVarP(&flags.saveNight, "night", "N", false, "Save the temperature and brightness as the night preset")

	rootCmd.AddCommand(serveCmd)
}

// setupLogging configures the global logger for the terminal.
func setupLogging(verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:     os.Stderr,
		NoColor: !isatty.IsTerminal(os.Stderr.Fd()),
	})
}

// buildOptions validates the command line and turns it into runner options.
func buildOptions(f cliFlags, args []string) (runner.Options, error) {
	target, err := runner.ParseTarget(args)
	if err != nil {
		return runner.Options{}, err
	}

	var save preset.Name
	count := 0
	for _, p := range []struct {
		set  bool
		name preset.Name
	}{
		{f.saveDefault, preset.Default},
		{f.saveDay, preset.Day},
		{f.saveNight, preset.Night},
	} {
		if p.set {
			save = p.name
			count++
		}
	}
	if count > 1 {
		return runner.Options{}, errMultiplePresets
	}

	if f.auto && (!f.latSet || !f.lonSet) {
		return runner.Options{}, errLocationRequired
	}

	opts := runner.Options{
		Screen:     f.screen,
		Crtc:       gamma.SingleCrtc(f.crtc),
		Delta:      f.delta,
		Toggle:     f.toggle,
		Auto:       f.auto,
		Latitude:   f.lat,
		Longitude:  f.lon,
		SavePreset: save,
		Target:     target,
	}

	if _, err := opts.Mode(); err != nil {
		return runner.Options{}, err
	}
	return opts, nil
}

// presetsPath returns the presets file from the flag or the default location.
func presetsPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return preset.DefaultPath()
}

// loadPresets resolves and reads the presets file. Only saving a preset
// needs the file itself; every other caller logs the problem and continues
// with the default presets. The returned path is empty when it could not be
// resolved.
func loadPresets(flagValue string, strict bool) (preset.Presets, string, error) {
	path, err := presetsPath(flagValue)
	if err != nil {
		if strict {
			return preset.Presets{}, "", err
		}
		log.Warn().Err(err).Msg("Failed to locate presets, using defaults")
		return preset.Defaults(), "", nil
	}

	presets, err := preset.Load(path)
	if err != nil {
		if strict {
			return preset.Presets{}, path, err
		}
		log.Warn().Err(err).Str("path", path).Msg("Failed to load presets, using defaults")
		return preset.Defaults(), path, nil
	}
	return presets, path, nil
}

func run(out io.Writer, f cliFlags, args []string) error {
	opts, err := buildOptions(f, args)
	if err != nil {
		return err
	}

	mode, _ := opts.Mode()
	presets, path, err := loadPresets(f.presets, mode == runner.ModeSavePreset)
	if err != nil {
		return err
	}
	if mode == runner.ModeSavePreset {
		r := runner.New(nil, runner.WithPresets(presets), runner.WithPresetsFile(path))
		_, err := r.Run(opts)
		return err
	}

	device, err := xrandr.Open(f.display)
	if err != nil {
		return err
	}
	controller := gamma.NewController(device)
	defer func() {
		if err := controller.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close X connection")
		}
	}()

	r := runner.New(controller, runner.WithPresets(presets), runner.WithPresetsFile(path))
	results, err := r.Run(opts)
	if mode == runner.ModeEstimate {
		printEstimates(out, results)
	}
	return err
}

// printEstimates writes one line per estimated screen.
func printEstimates(out io.Writer, results []runner.Result) {
	for _, res := range results {
		fmt.Fprintf(out, "Screen %d: temperature ~ %d %f\n", res.Screen, res.State.Temperature, res.State.Brightness)
	}
}

// hoistNumericArgs moves positional arguments behind "--" so that negative
// deltas such as "-500" are not parsed as shorthand flags. Values of flags
// that take an argument stay in place.
func hoistNumericArgs(fs *pflag.FlagSet, args []string) []string {
	var rest, positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--":
			positional = append(positional, args[i+1:]...)
			i = len(args)
		case isNumber(arg):
			positional = append(positional, arg)
		case strings.HasPrefix(arg, "--"):
			rest = append(rest, arg)
			name := arg[2:]
			if strings.Contains(name, "=") {
				continue
			}
			if takesValue(fs.Lookup(name)) && i+1 < len(args) {
				i++
				rest = append(rest, args[i])
			}
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			rest = append(rest, arg)
			shorthands := arg[1:]
			for j := 0; j < len(shorthands); j++ {
				if !takesValue(fs.ShorthandLookup(shorthands[j : j+1])) {
					continue
				}
				// "-s1" carries its value inline; "-s 1" uses the next argument.
				if j == len(shorthands)-1 && i+1 < len(args) {
					i++
					rest = append(rest, args[i])
				}
				break
			}
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return rest
	}
	return append(append(rest, "--"), positional...)
}

func isNumber(arg string) bool {
	_, err := strconv.ParseFloat(arg, 64)
	return err == nil
}

func takesValue(f *pflag.Flag) bool {
	return f != nil && f.NoOptDefVal == ""
}

// commandArgs returns the arguments to execute the root command with.
func commandArgs(args []string) []string {
	if cmd, _, err := rootCmd.Find(args); err == nil && cmd != rootCmd {
		return args
	}
	fs := pflag.NewFlagSet(rootCmd.Name(), pflag.ContinueOnError)
	fs.AddFlagSet(rootCmd.Flags())
	fs.AddFlagSet(rootCmd.PersistentFlags())
	return hoistNumericArgs(fs, args)
}

func main() {
	setupLogging(false)
	rootCmd.SetArgs(commandArgs(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("ksct failed")
	}
}
