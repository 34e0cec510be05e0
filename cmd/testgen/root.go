package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/speakeasy-api/testrecorder/synth"
)

// globalFlags are shared by all subcommands.
type globalFlags struct {
	config   string
	logLevel string
	pkg      string
	disable  []string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "testgen",
		Short:         "Generate Go tests from recorded snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().StringVarP(&flags.config, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "error, warn, info or debug")
	cmd.PersistentFlags().StringVarP(&flags.pkg, "package", "p", "", "import path of the package the tests are generated in")
	cmd.PersistentFlags().StringSliceVar(&flags.disable, "disable", nil, "adaptor names to leave out")

	cmd.AddCommand(newGenerateCmd(flags), newAdaptorsCmd(flags))
	return cmd
}

// options merges defaults, the config file and the flags, in that order.
func (f *globalFlags) options() (synth.Options, *synth.Config, error) {
	opts := synth.DefaultOptions()
	var cfg *synth.Config
	if f.config != "" {
		var err error
		if cfg, err = synth.LoadConfig(f.config); err != nil {
			return opts, nil, err
		}
		opts = cfg.Apply(opts)
	}
	if f.logLevel != "" {
		opts.LogLevel = f.logLevel
	}
	if f.pkg != "" {
		opts.Package = f.pkg
	}
	opts.Disabled = append(opts.Disabled, f.disable...)
	return opts, cfg, nil
}

// newLogger builds a console logger on w. Levels are colored when w is a
// terminal.
func newLogger(level string, w io.Writer) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if isTerminal(w) {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(w), lvl))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
