package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/speakeasy-api/testrecorder"
	"github.com/speakeasy-api/testrecorder/synth"
)

func newAdaptorsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "adaptors",
		Short: "List the adaptors in dispatch order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, _, err := flags.options()
			if err != nil {
				return err
			}
			opts.Logger = synth.NopLogger()
			s := synth.New(opts)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "construction:")
			listAdaptors(out, s.SetupAdaptors())
			fmt.Fprintln(out, "matchers:")
			listAdaptors(out, s.MatcherAdaptors())
			return nil
		},
	}
}

func listAdaptors[G any](w io.Writer, a *synth.Adaptors[G]) {
	for _, v := range testrecorder.Variants() {
		bucket := a.Bucket(v)
		if len(bucket) == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s:\n", v)
		for _, ad := range bucket {
			if p := ad.Parent(); p != "" {
				fmt.Fprintf(w, "    %s (specializes %s)\n", ad.Name(), p)
			} else {
				fmt.Fprintf(w, "    %s\n", ad.Name())
			}
		}
	}
}
