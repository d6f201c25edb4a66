package batch

import (
	"fmt"
	"strings"
	"time"

	"github.com/dnv-opensource/WindFarmer-automation/internal/efficiency"
	"github.com/dnv-opensource/WindFarmer-automation/internal/model"
)

const (
	StatusSuccess = "SUCCESS"
	StatusFail    = "FAIL"
)

// Result is the outcome of one scenario.
type Result struct {
	Scenario  string
	Status    string
	Err       error
	Breakdown *efficiency.Breakdown
	Full      *model.AepResultSet
	Subject   *model.AepResultSet
	Elapsed   time.Duration
}

type Report struct {
	Results []Result
}

func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSuccess {
			n++
		}
	}
	return n
}

func (r *Report) Failed() int { return len(r.Results) - r.Succeeded() }

// OK is true when every scenario succeeded.
func (r *Report) OK() bool { return r.Failed() == 0 }

// String renders the overall verdict followed by one line per scenario.
//
//	SUCCESS
//	Results:
//	north	Full yield 812.40 GWh/annum
func (r *Report) String() string {
	var b strings.Builder
	if r.OK() {
		b.WriteString(StatusSuccess)
	} else {
		b.WriteString(StatusFail)
	}
	b.WriteString("\nResults:\n")
	for _, res := range r.Results {
		if res.Status == StatusSuccess {
			fmt.Fprintf(&b, "%s\tFull yield %.2f GWh/annum\n", res.Scenario, res.Breakdown.FullYieldGWh())
		} else {
			fmt.Fprintf(&b, "%s\tFAIL: %v\n", res.Scenario, res.Err)
		}
	}
	return b.String()
}
