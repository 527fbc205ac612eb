package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/uups-cli/internal/domain/models"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// Color styles for proxy output
var (
	chainHeader        = color.New(color.BgCyan, color.FgBlack, color.Bold)
	nameStyle          = color.New(color.FgCyan, color.Bold)
	addressStyle       = color.New(color.FgWhite)
	timestampStyle     = color.New(color.Faint)
	versionStyle       = color.New(color.FgMagenta)
	verifiedStyle      = color.New(color.FgGreen)
	reconciledStyle    = color.New(color.FgYellow)
	sectionHeaderStyle = color.New(color.Bold, color.FgHiWhite)
)

const timeLayout = "2006-01-02 15:04:05"

// ProxyRenderer renders proxy state, deployments and upgrades
type ProxyRenderer struct {
	out  io.Writer
	json bool
}

// NewProxyRenderer creates a new proxy renderer
func NewProxyRenderer(out io.Writer, json bool) *ProxyRenderer {
	return &ProxyRenderer{out: out, json: json}
}

// RenderDeploy renders the outcome of a proxy deployment
func (r *ProxyRenderer) RenderDeploy(result *usecase.DeployProxyResult) error {
	if r.json {
		return WriteJSON(r.out, result.Proxy)
	}

	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Deployed %s", nameStyle.Sprint(result.Proxy.Name))))
	fmt.Fprintln(r.out)
	r.renderProxyHeader(result.Proxy)
	r.renderRecord(result.Record)
	return nil
}

// RenderUpgrade renders the outcome of an upgrade
func (r *ProxyRenderer) RenderUpgrade(result *usecase.UpgradeProxyResult) error {
	if r.json {
		return WriteJSON(r.out, result.Proxy)
	}

	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Upgraded %s to version %d",
		nameStyle.Sprint(result.Proxy.Name), result.Record.Version)))
	fmt.Fprintln(r.out)
	r.renderProxyHeader(result.Proxy)
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Previous:      "), addressStyle.Sprint(result.Previous.Hex()))
	r.renderRecord(result.Record)
	return nil
}

// RenderStatus renders a proxy with its full version history
func (r *ProxyRenderer) RenderStatus(result *usecase.StatusResult) error {
	if r.json {
		return WriteJSON(r.out, struct {
			*models.ProxyState
			Verified bool `json:"verified"`
		}{result.Proxy, result.Verified})
	}

	r.renderProxyHeader(result.Proxy)
	if result.Verified {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Chain:         "), verifiedStyle.Sprint("✔︎ matches ledger"))
	}
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, sectionHeaderStyle.Sprint("History"))
	r.renderHistory(result.Proxy.History)
	return nil
}

func (r *ProxyRenderer) renderProxyHeader(proxy *models.ProxyState) {
	fmt.Fprintf(r.out, "%s %s\n", nameStyle.Sprint(proxy.Name), addressStyle.Sprint(proxy.Address.Hex()))
	fmt.Fprintf(r.out, "  %s %d\n", labelStyle.Sprint("Chain ID:      "), proxy.ChainID)
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Version:       "), versionStyle.Sprintf("v%d", proxy.Version))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Implementation:"), addressStyle.Sprint(proxy.CurrentImplementation.Hex()))
	if current := proxy.Current(); current != nil {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Contract:      "), current.ContractID)
	}
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Admin:         "), addressStyle.Sprint(proxy.Admin.Hex()))
}

func (r *ProxyRenderer) renderRecord(record *models.DeploymentRecord) {
	if record.Call != nil {
		fmt.Fprintf(r.out, "  %s %s(%s)\n", labelStyle.Sprint("Call:          "),
			record.Call.Method, strings.Join(record.Call.Args, ", "))
	}
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Transaction:   "), record.Tx.String())
	if record.Tx.BlockNumber > 0 {
		fmt.Fprintf(r.out, "  %s %d\n", labelStyle.Sprint("Block:         "), record.Tx.BlockNumber)
	}
	if record.ReconciledAfterTimeout {
		fmt.Fprintln(r.out, FormatWarning("Confirmation timed out; the outcome was read back from chain state"))
	}
}

func (r *ProxyRenderer) renderHistory(history []*models.DeploymentRecord) {
	t := newTable("VERSION", "KIND", "CONTRACT", "IMPLEMENTATION", "CALL", "TIMESTAMP")
	for _, record := range history {
		call := ""
		if record.Call != nil {
			call = record.Call.Method
		}
		version := versionStyle.Sprintf("v%d", record.Version)
		if record.ReconciledAfterTimeout {
			version += reconciledStyle.Sprint(" *")
		}
		t.AppendRow(table.Row{
			version,
			string(record.Kind),
			record.ContractID,
			addressStyle.Sprint(shortAddress(record.Implementation)),
			call,
			timestampStyle.Sprint(record.Timestamp.Local().Format(timeLayout)),
		})
	}
	fmt.Fprintln(r.out, t.Render())
}

// RenderList renders the proxies of the current chain
func (r *ProxyRenderer) RenderList(result *usecase.ProxyListResult) error {
	if r.json {
		return WriteJSON(r.out, struct {
			ChainID uint64               `json:"chainId"`
			Proxies []*models.ProxyState `json:"proxies"`
			Summary usecase.ProxySummary `json:"summary"`
		}{result.ChainID, result.Proxies, result.Summary})
	}

	if len(result.Proxies) == 0 {
		fmt.Fprintln(r.out, "No proxies found")
		return nil
	}

	fmt.Fprintln(r.out, chainHeader.Sprintf(" ⛓  chain %d ", result.ChainID))
	fmt.Fprintln(r.out)

	t := newTable("NAME", "ADDRESS", "VERSION", "CONTRACT", "UPDATED")
	for _, proxy := range result.Proxies {
		contract, updated := "", ""
		if current := proxy.Current(); current != nil {
			contract = current.ContractID
			updated = current.Timestamp.Local().Format(timeLayout)
		}
		t.AppendRow(table.Row{
			nameStyle.Sprint(proxy.Name),
			addressStyle.Sprint(proxy.Address.Hex()),
			versionStyle.Sprintf("v%d", proxy.Version),
			contract,
			timestampStyle.Sprint(updated),
		})
	}
	fmt.Fprintln(r.out, t.Render())
	fmt.Fprintln(r.out)

	contracts := make([]string, 0, len(result.Summary.ByContract))
	for name := range result.Summary.ByContract {
		contracts = append(contracts, name)
	}
	sort.Strings(contracts)
	parts := make([]string, 0, len(contracts))
	for _, name := range contracts {
		parts = append(parts, fmt.Sprintf("%s: %d", name, result.Summary.ByContract[name]))
	}
	fmt.Fprintf(r.out, "%d proxies, %d upgraded (%s)\n", result.Summary.Total, result.Summary.Upgraded, strings.Join(parts, ", "))
	return nil
}
