/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/allbin/serialterm/internal/transport"
	"github.com/allbin/serialterm/internal/tui/colors"
	"github.com/allbin/serialterm/internal/tui/components"
	"github.com/allbin/serialterm/internal/tui/styles"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List the ports the selected driver can open.

The native driver reports every serial device the system enumerates:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)

The accessory driver only reports USB devices from supported adapter
families (FTDI, Silicon Labs, WCH, Prolific and CDC-ACM).

Example usage:
  serialterm list
  serialterm list --table
  serialterm list --filter usb --driver accessory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		ports := sess.DescribePorts()
		if errs := systemErrors(sess.Transcript().Records()); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return fmt.Errorf("failed to list ports")
		}

		filtered := filterPorts(ports, filterType)
		if len(filtered) == 0 {
			if filterType != "" {
				fmt.Printf("No serial ports found matching filter: %s\n", filterType)
			} else {
				fmt.Println("No serial ports found")
			}
			return nil
		}

		if tableFormat {
			fmt.Printf("Found %d serial port(s) via %s driver:\n", len(filtered), sess.DriverName())
			table := components.NewPortTable(filtered, styles.New(colors.ByName(cfg.TUI.Theme)))
			fmt.Println(table.View())
			return nil
		}
		for _, p := range filtered {
			fmt.Println(p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "f", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts keeps the ports matching filterType
func filterPorts(ports []transport.PortInfo, filterType string) []transport.PortInfo {
	var filtered []transport.PortInfo
	for _, p := range ports {
		if p.MatchesFilter(filterType) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}
