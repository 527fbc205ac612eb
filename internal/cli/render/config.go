package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/uups-cli/internal/domain/config"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// ConfigRenderer renders the checkout defaults and the profile they select
type ConfigRenderer struct {
	out  io.Writer
	json bool
}

func NewConfigRenderer(out io.Writer, json bool) *ConfigRenderer {
	return &ConfigRenderer{out: out, json: json}
}

type profileReport struct {
	Name           string  `json:"name"`
	ProxyArtifact  string  `json:"proxyArtifact"`
	ConfirmTimeout string  `json:"confirmTimeout"`
	GasMultiplier  float64 `json:"gasMultiplier"`
	AllowRenames   bool    `json:"allowRenames"`
	SenderKey      bool    `json:"senderKey"`
	StorageLayout  bool    `json:"storageLayout"`
}

// RenderConfig prints the saved defaults and the settings of the active profile.
// The sender key is only reported as set or unset.
func (r *ConfigRenderer) RenderConfig(result *usecase.ShowConfigResult) error {
	profile := profileReport{
		Name:           result.Profile,
		ProxyArtifact:  result.UUPS.ProxyArtifact,
		ConfirmTimeout: result.UUPS.ConfirmTimeout.String(),
		GasMultiplier:  result.UUPS.GasMultiplier,
		AllowRenames:   result.UUPS.AllowRenames,
		SenderKey:      result.UUPS.PrivateKey != "",
		StorageLayout:  result.StorageLayout,
	}

	if r.json {
		return WriteJSON(r.out, struct {
			Path    string        `json:"path"`
			Saved   bool          `json:"saved"`
			Local   any           `json:"local"`
			Profile profileReport `json:"profile"`
		}{getRelativePath(result.Path), result.Saved, result.Local, profile})
	}

	if result.Saved {
		fmt.Fprintf(r.out, "%s %s\n", sectionHeaderStyle.Sprint("Defaults"), labelStyle.Sprint(getRelativePath(result.Path)))
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Namespace:"), result.Local.Namespace)
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Network:  "), orUnset(result.Local.Network))
	} else {
		fmt.Fprintf(r.out, "No defaults saved in %s; set them with `uups config set`\n", getRelativePath(result.Path))
	}
	fmt.Fprintln(r.out)

	fmt.Fprintf(r.out, "%s %s\n", sectionHeaderStyle.Sprint("Profile"), nameStyle.Sprint(profile.Name))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Proxy artifact: "), orUnset(profile.ProxyArtifact))
	fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Confirm timeout:"), profile.ConfirmTimeout)
	fmt.Fprintf(r.out, "  %s %g\n", labelStyle.Sprint("Gas multiplier: "), profile.GasMultiplier)
	fmt.Fprintf(r.out, "  %s %t\n", labelStyle.Sprint("Allow renames:  "), profile.AllowRenames)
	if profile.SenderKey {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Sender key:     "), "set")
	} else {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Sender key:     "), "(not set)")
	}
	if profile.StorageLayout {
		fmt.Fprintf(r.out, "  %s %s\n", labelStyle.Sprint("Storage layout: "), verifiedStyle.Sprint("emitted"))
	} else {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("Profile %s does not emit storage layouts; upgrades cannot be validated", profile.Name)))
	}
	return nil
}

// RenderSet renders the result of setting a default
func (r *ConfigRenderer) RenderSet(result *usecase.SetConfigResult) error {
	if r.json {
		return WriteJSON(r.out, result.UpdatedConfig)
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("%s = %s", result.Key, result.Value)))
	fmt.Fprintf(r.out, "   saved in %s\n", getRelativePath(result.ConfigPath))
	return nil
}

// RenderRemove renders the result of removing a default
func (r *ConfigRenderer) RenderRemove(result *usecase.RemoveConfigResult) error {
	if r.json {
		return WriteJSON(r.out, result.UpdatedConfig)
	}
	switch result.Key {
	case config.ConfigKeyNamespace:
		fmt.Fprintln(r.out, FormatSuccess("namespace reset to default"))
	case config.ConfigKeyNetwork:
		fmt.Fprintln(r.out, FormatSuccess("network unset; chain commands now need --network"))
	}
	fmt.Fprintf(r.out, "   saved in %s\n", getRelativePath(result.ConfigPath))
	return nil
}

func orUnset(value string) string {
	if value == "" {
		return "(not set)"
	}
	return value
}
