package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	ltable "github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/log"
	"github.com/james-see/handchords/pkg/chords"
	"github.com/james-see/handchords/pkg/hands"
	"github.com/james-see/handchords/pkg/output"
	"github.com/spf13/cobra"
)

func runChords(cmd *cobra.Command, args []string) error {
	path := chordsPath
	if len(args) == 1 {
		path = args[0]
	}

	table, err := chords.LoadFile(path, log.FromContext(cmd.Context()))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	t := ltable.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#39FF14"))).
		Headers("HAND", "FINGER", "CHORD", "NOTES")
	for _, e := range table.Entries() {
		names := make([]string, len(e.Notes))
		for i, n := range e.Notes {
			names[i] = fmt.Sprintf("%s(%d)", n.Name(), int(n))
		}
		t.Row(e.Hand.String(), e.Finger.String(), e.Name, strings.Join(names, " "))
	}
	fmt.Fprintln(out, t.String())

	if d := table.Diagnostics(); len(d) > 0 {
		fmt.Fprintf(out, "\n%d rows skipped:\n", len(d))
		for _, re := range d {
			fmt.Fprintf(out, "  %s\n", re.Error())
		}
	}
	fmt.Fprintf(out, "\n%d of %d fingers mapped\n", table.Len(), chords.NumHands*chords.NumFingers)
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	names, err := output.ListPorts()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "MIDI outputs:")
	if len(names) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for i, name := range names {
		fmt.Fprintf(out, "  %d: %s\n", i, name)
	}

	serials, err := hands.SerialPorts()
	if err != nil {
		return fmt.Errorf("list serial ports: %w", err)
	}
	fmt.Fprintln(out, "Serial devices:")
	if len(serials) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, name := range serials {
		fmt.Fprintf(out, "  %s\n", name)
	}
	return nil
}

// runConfig prints the config file merged over the defaults, after
// validation, in a form --config accepts
func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
