package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/binaryphile/wavtag/internal/inspect"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the chunks and tags of a WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rep, err := inspect.Read(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return printReport(cmd.OutOrStdout(), args[0], rep)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")

	return cmd
}

func printReport(w io.Writer, name string, rep *inspect.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s\n", name)
	fmt.Fprintf(tw, "format\t%d ch, %d Hz, %d-bit (type %d)\n",
		rep.Format.Channels, rep.Format.SampleRate, rep.Format.BitsPerSample, rep.Format.AudioFormat)
	fmt.Fprintf(tw, "data\t%d bytes\n", rep.DataLen)

	fmt.Fprintln(tw, "\nchunks")
	for _, c := range rep.Chunks {
		fmt.Fprintf(tw, "  %q\t%d\n", c.ID, c.Size)
	}

	if len(rep.Info) > 0 {
		fmt.Fprintln(tw, "\nINFO")
		for _, it := range rep.Info {
			fmt.Fprintf(tw, "  %s\t%s\n", it.ID, it.Value)
		}
	}

	if rep.ID3Version > 0 {
		fmt.Fprintf(tw, "\nID3v2.%d\n", rep.ID3Version)
		for _, fr := range rep.Frames {
			label := fr.ID
			if fr.Description != "" {
				label += " (" + fr.Description + ")"
			}
			if fr.Language != "" {
				label += " [" + fr.Language + "]"
			}
			fmt.Fprintf(tw, "  %s\t%s\n", label, fr.Text)
		}
	}

	return tw.Flush()
}
