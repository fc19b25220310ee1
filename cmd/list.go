/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/spf13/cobra"

	"github.com/allbin/serialstream"
	"github.com/allbin/serialstream/internal/tui/colors"
)

const (
	columnKeyPort    = "port"
	columnKeyType    = "type"
	columnKeyDesc    = "desc"
	columnKeyUSB     = "usb"
	columnKeySerial  = "serial"
	columnKeyProduct = "product"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List available serial ports",
	Long: `List all available serial ports on the system.

This command scans for communication-capable serial devices including:
- USB serial adapters (ttyUSB*)
- USB CDC/ACM devices (ttyACM*)
- Standard serial ports (ttyS*)
- ARM/Raspberry Pi ports (ttyAMA*)
- And other platform-specific serial devices

Virtual terminals and pseudo-terminals are excluded from the listing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialstream.ListPorts()
		if err != nil {
			return fmt.Errorf("listing ports: %w", err)
		}

		filterType, _ := cmd.Flags().GetString("filter")
		tableFormat, _ := cmd.Flags().GetBool("table")

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
			fmt.Printf("Found %d serial port(s):\n\n", len(filtered))
			fmt.Println(renderTable(filtered))
		} else {
			for _, port := range filtered {
				fmt.Println(port)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().StringP("filter", "F", "", "Filter by port type: usb, standard, arm, all")
	listCmd.Flags().BoolP("table", "t", false, "Display output in a styled table format")
}

// filterPorts filters the port list based on the specified filter type
func filterPorts(ports []string, filterType string) []string {
	if filterType == "" || filterType == "all" {
		return ports
	}

	var filtered []string
	for _, port := range ports {
		name := strings.ToLower(port[strings.LastIndex(port, "/")+1:])
		switch strings.ToLower(filterType) {
		case "usb":
			if strings.HasPrefix(name, "ttyusb") || strings.HasPrefix(name, "ttyacm") {
				filtered = append(filtered, port)
			}
		case "standard":
			if strings.HasPrefix(name, "ttys") && !strings.HasPrefix(name, "ttysac") {
				filtered = append(filtered, port)
			}
		case "arm":
			if strings.HasPrefix(name, "ttyama") {
				filtered = append(filtered, port)
			}
		}
	}
	return filtered
}

// renderTable renders the ports with their USB metadata as a static table
func renderTable(ports []string) string {
	columns := []table.Column{
		table.NewColumn(columnKeyPort, "Port", 14),
		table.NewColumn(columnKeyType, "Type", 16),
		table.NewColumn(columnKeyDesc, "Description", 24),
		table.NewColumn(columnKeyUSB, "VID:PID", 11),
		table.NewColumn(columnKeySerial, "Serial", 14),
		table.NewColumn(columnKeyProduct, "Product", 20),
	}

	rows := make([]table.Row, 0, len(ports))
	for _, port := range ports {
		info, err := serialstream.GetPortInfo(port)
		if err != nil {
			rows = append(rows, table.NewRow(table.RowData{
				columnKeyPort: port,
				columnKeyType: "Unknown",
				columnKeyDesc: fmt.Sprintf("Error: %v", err),
			}))
			continue
		}
		rows = append(rows, table.NewRow(portRowData(info)))
	}

	return table.New(columns).
		WithRows(rows).
		BorderRounded().
		HeaderStyle(lipgloss.NewStyle().Bold(true).Foreground(colors.Mauve)).
		WithBaseStyle(lipgloss.NewStyle().Align(lipgloss.Left).BorderForeground(colors.Surface2)).
		View()
}

func portRowData(info *serialstream.PortInfo) table.RowData {
	usb := ""
	if info.VendorID != "" || info.ProductID != "" {
		usb = info.VendorID + ":" + info.ProductID
	}
	return table.RowData{
		columnKeyPort:    info.Name,
		columnKeyType:    getPortType(info.Name),
		columnKeyDesc:    info.Description,
		columnKeyUSB:     usb,
		columnKeySerial:  info.SerialNumber,
		columnKeyProduct: info.Product,
	}
}

// getPortType returns a more specific type classification for the port
func getPortType(name string) string {
	name = strings.ToLower(name)
	switch {
	case strings.HasPrefix(name, "ttyusb"):
		return "USB Serial"
	case strings.HasPrefix(name, "ttyacm"):
		return "USB CDC/ACM"
	case strings.HasPrefix(name, "ttyama"):
		return "ARM Serial"
	case strings.HasPrefix(name, "ttymxc"):
		return "i.MX Serial"
	case strings.HasPrefix(name, "ttysac"):
		return "Samsung Serial"
	case strings.HasPrefix(name, "ttyths"):
		return "Tegra Serial"
	case strings.HasPrefix(name, "ttyo"):
		return "OMAP Serial"
	case strings.HasPrefix(name, "ttys"):
		return "Standard Serial"
	default:
		return "Serial Port"
	}
}
