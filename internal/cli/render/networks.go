package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

var currentNetworkStyle = color.New(color.FgGreen, color.Bold)

// NetworksRenderer renders network lists
type NetworksRenderer struct {
	out  io.Writer
	json bool
}

// NewNetworksRenderer creates a new networks renderer
func NewNetworksRenderer(out io.Writer, json bool) *NetworksRenderer {
	return &NetworksRenderer{
		out:  out,
		json: json,
	}
}

type networkReport struct {
	Name    string `json:"name"`
	ChainID uint64 `json:"chainId,omitempty"`
	Current bool   `json:"current,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RenderNetworksList renders the list of networks with their chain IDs
func (r *NetworksRenderer) RenderNetworksList(result *usecase.ListNetworksResult) error {
	if r.json {
		reports := make([]networkReport, 0, len(result.Networks))
		for _, network := range result.Networks {
			report := networkReport{Name: network.Name, ChainID: network.ChainID, Current: network.Name == result.Current}
			if network.Error != nil {
				report.Error = network.Error.Error()
			}
			reports = append(reports, report)
		}
		return WriteJSON(r.out, reports)
	}

	if len(result.Networks) == 0 {
		fmt.Fprintln(r.out, "No networks configured in foundry.toml [rpc_endpoints]")
		return nil
	}

	fmt.Fprintln(r.out, "🌐 Available Networks:")
	fmt.Fprintln(r.out)

	// Render each network
	for _, network := range result.Networks {
		name := network.Name
		if name == result.Current {
			name = currentNetworkStyle.Sprint(name + " (current)")
		}
		if network.Error != nil {
			fmt.Fprintf(r.out, "  ❌ %s - Error: %v\n", name, network.Error)
		} else {
			fmt.Fprintf(r.out, "  ✅ %s - Chain ID: %d\n", name, network.ChainID)
		}
	}

	return nil
}
