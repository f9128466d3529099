package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sawpanic/astrorun/internal/domain/zodiac"
)

// queryFlags are shared by the read-only query commands.
type queryFlags struct {
	date   string
	asJSON bool
}

func (q *queryFlags) bind(cmd *cobra.Command, withDate bool) {
	if withDate {
		cmd.Flags().StringVar(&q.date, "date", "", "date as YYYY-MM-DD (default today, UTC)")
	}
	cmd.Flags().BoolVar(&q.asJSON, "json", false, "print JSON instead of a table")
}

func (c *cli) planetsCmd() *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "planets",
		Short: "Print the positions of every body at 00:00 UTC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := build(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := a.service.ParseDate(q.date)
			if err != nil {
				return err
			}
			positions, err := a.service.Planets(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if q.asJSON {
				return writeJSON(out, positions)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "BODY\tLONGITUDE\tLATITUDE\tDISTANCE (AU)\tSIGN\n")
			for _, p := range positions {
				fmt.Fprintf(tw, "%s\t%.4f\t%.4f\t%.6f\t%s\n", p.Body, p.Longitude, p.Latitude, p.DistanceAU, p.Constellation)
			}
			return tw.Flush()
		},
	}
	q.bind(cmd, true)
	return cmd
}

func (c *cli) signsCmd() *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "signs",
		Short: "Print the zodiac sign table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			signs := zodiac.Signs()
			out := cmd.OutOrStdout()
			if q.asJSON {
				return writeJSON(out, signs)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "SIGN\tSTART\tEND\tELEMENT\tQUALITY\n")
			for _, s := range signs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.Name, s.Start, s.End, s.Element, s.Quality)
			}
			return tw.Flush()
		},
	}
	q.bind(cmd, false)
	return cmd
}

func (c *cli) signCmd() *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "sign <YYYY-MM-DD>",
		Short: "Print the zodiac sign for a date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := build(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := a.service.ParseDate(args[0])
			if err != nil {
				return err
			}
			sign, err := a.service.Sign(date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if q.asJSON {
				return writeJSON(out, sign)
			}
			_, err = fmt.Fprintf(out, "%s: %s (%s, %s)\n", date, sign.Name, sign.Element, sign.Quality)
			return err
		},
	}
	q.bind(cmd, false)
	return cmd
}

func (c *cli) aspectsCmd() *cobra.Command {
	q := &queryFlags{}
	cmd := &cobra.Command{
		Use:   "aspects",
		Short: "Print the aspects between bodies at 00:00 UTC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := build(cmd.Context(), c.cfg, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			date, err := a.service.ParseDate(q.date)
			if err != nil {
				return err
			}
			aspects, err := a.service.Aspects(cmd.Context(), date)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if q.asJSON {
				return writeJSON(out, aspects)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "BODY\tBODY\tASPECT\tORB\n")
			for _, asp := range aspects {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", asp.Body1, asp.Body2, asp.Type, asp.Orb)
			}
			return tw.Flush()
		},
	}
	q.bind(cmd, true)
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
