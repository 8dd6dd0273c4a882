/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"

	"github.com/allbin/serialterm/internal/transport"
	"github.com/spf13/cobra"
)

// infoCmd represents the info command
var infoCmd = &cobra.Command{
	Use:   "info <port>",
	Short: "Display detailed information about a serial port",
	Long: `Display what the selected driver knows about a port, including USB
metadata when the port belongs to a USB device.

Examples:
  serialterm info /dev/ttyUSB0
  serialterm info /dev/ttyACM0 --driver accessory`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portPath := args[0]

		sess, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer sess.Close()

		info, ok := findPort(sess.DescribePorts(), portPath)
		if !ok {
			return fmt.Errorf("port %s is not available via the %s driver", portPath, sess.DriverName())
		}

		fmt.Printf("Port Information: %s\n\n", info.Name)
		fmt.Printf("  Driver:      %s\n", sess.DriverName())
		fmt.Printf("  Description: %s\n", info.Description)
		fmt.Printf("  Mode:        %s\n", sess.Mode())

		if info.USB {
			fmt.Println("\nUSB Device Information:")
			if info.VendorID != "" {
				fmt.Printf("  Vendor ID:    %s\n", info.VendorID)
			}
			if info.ProductID != "" {
				fmt.Printf("  Product ID:   %s\n", info.ProductID)
			}
			if info.SerialNumber != "" {
				fmt.Printf("  Serial:       %s\n", info.SerialNumber)
			}
			if info.Product != "" {
				fmt.Printf("  Product:      %s\n", info.Product)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func findPort(ports []transport.PortInfo, name string) (transport.PortInfo, bool) {
	for _, p := range ports {
		if p.Name == name {
			return p, true
		}
	}
	return transport.PortInfo{}, false
}
