package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/uups-cli/internal/usecase"
)

// CallRenderer renders read-only call results
type CallRenderer struct {
	out  io.Writer
	json bool
}

// NewCallRenderer creates a new call renderer
func NewCallRenderer(out io.Writer, json bool) *CallRenderer {
	return &CallRenderer{out: out, json: json}
}

// RenderCall prints one decoded return value per line
func (r *CallRenderer) RenderCall(result *usecase.CallProxyResult) error {
	if r.json {
		return WriteJSON(r.out, struct {
			Proxy     string   `json:"proxy"`
			Signature string   `json:"signature"`
			Values    []string `json:"values"`
		}{result.Proxy.DisplayName(), result.Signature, result.Values})
	}

	for _, value := range result.Values {
		fmt.Fprintln(r.out, value)
	}
	return nil
}
