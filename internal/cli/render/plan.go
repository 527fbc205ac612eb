package render

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/uups-cli/internal/usecase"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var stepStyles = map[usecase.StepStatus]*color.Color{
	usecase.StepApplied: color.New(color.FgGreen),
	usecase.StepSkipped: color.New(color.Faint),
	usecase.StepFailed:  color.New(color.FgRed, color.Bold),
	usecase.StepPending: color.New(color.FgYellow),
}

// PlanRenderer renders release plan outcomes
type PlanRenderer struct {
	out  io.Writer
	json bool
}

// NewPlanRenderer creates a new plan renderer
func NewPlanRenderer(out io.Writer, json bool) *PlanRenderer {
	return &PlanRenderer{out: out, json: json}
}

type stepReport struct {
	Step    int                `json:"step"`
	Action  string             `json:"action"`
	Status  usecase.StepStatus `json:"status"`
	Proxy   string             `json:"proxy,omitempty"`
	Version uint64             `json:"version,omitempty"`
	Error   *ErrorReport       `json:"error,omitempty"`
}

// RenderPlan prints every step with its status
func (r *PlanRenderer) RenderPlan(result *usecase.ApplyPlanResult) error {
	if r.json {
		steps := make([]stepReport, 0, len(result.Steps))
		for i, step := range result.Steps {
			report := stepReport{Step: i + 1, Action: step.Step.Describe(), Status: step.Status}
			if step.Record != nil {
				report.Proxy = step.Record.ProxyAddress.Hex()
				report.Version = step.Record.Version
			}
			if step.Err != nil {
				errReport := NewErrorReport(step.Err)
				report.Error = &errReport
			}
			steps = append(steps, report)
		}
		return WriteJSON(r.out, struct {
			Steps []stepReport `json:"steps"`
		}{steps})
	}

	title := cases.Title(language.English)
	t := newTable("#", "STEP", "STATUS", "DETAIL")
	for i, step := range result.Steps {
		detail := ""
		switch {
		case step.Record != nil:
			detail = fmt.Sprintf("%s v%d", shortAddress(step.Record.ProxyAddress), step.Record.Version)
		case step.Err != nil:
			detail = step.Err.Error()
		}
		status := title.String(string(step.Status))
		if style, ok := stepStyles[step.Status]; ok {
			status = style.Sprint(status)
		}
		t.AppendRow(table.Row{i + 1, step.Step.Describe(), status, detail})
	}
	fmt.Fprintln(r.out, t.Render())
	fmt.Fprintln(r.out)

	if result.Failed() == nil {
		fmt.Fprintln(r.out, FormatSuccess("Plan applied"))
	}
	return nil
}
