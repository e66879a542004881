// Package doctor runs health checks over the savedeck configuration and data
// directory. Checks constructed with fix enabled repair what they can and
// report repaired items as StatusFixed.
package doctor

import "context"

// Status represents the result status of a check item.
type Status int

const (
	StatusPass Status = iota
	StatusWarn
	StatusFail
	StatusFixed
)

func (s Status) String() string {
	switch s {
	case StatusPass:
		return "pass"
	case StatusWarn:
		return "warn"
	case StatusFail:
		return "fail"
	case StatusFixed:
		return "fixed"
	default:
		return "unknown"
	}
}

// CheckItem represents a single line item within a check result.
type CheckItem struct {
	Label   string `json:"label"`
	Status  Status `json:"-"`
	Detail  string `json:"detail,omitempty"`
	Fixable bool   `json:"fixable,omitempty"`

	// For JSON output
	StatusStr string `json:"status"`
}

func pass(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusPass, Detail: detail}
}

func warn(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusWarn, Detail: detail}
}

func fail(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusFail, Detail: detail}
}

// fixable is a warning that a run with fixing enabled would repair.
func fixable(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusWarn, Detail: detail, Fixable: true}
}

func fixed(label, detail string) CheckItem {
	return CheckItem{Label: label, Status: StatusFixed, Detail: detail}
}

// Result represents the outcome of a check containing multiple items.
type Result struct {
	Name  string      `json:"name"`
	Items []CheckItem `json:"items"`
}

func (r *Result) add(items ...CheckItem) {
	r.Items = append(r.Items, items...)
}

// Check defines the interface for a doctor check.
type Check interface {
	Name() string
	Run(ctx context.Context) Result
}

// RunAll executes all checks and returns their results.
func RunAll(ctx context.Context, checks []Check) []Result {
	results := make([]Result, 0, len(checks))
	for _, check := range checks {
		result := check.Run(ctx)
		for i := range result.Items {
			result.Items[i].StatusStr = result.Items[i].Status.String()
		}
		results = append(results, result)
	}
	return results
}

// Summary returns counts of passed, warned, and failed items across all
// results. Fixed items count as passed.
func Summary(results []Result) (passed, warned, failed int) {
	for _, r := range results {
		for _, item := range r.Items {
			switch item.Status {
			case StatusPass, StatusFixed:
				passed++
			case StatusWarn:
				warned++
			case StatusFail:
				failed++
			}
		}
	}
	return
}

// CountFixable returns the number of issues a run with fixing enabled would repair.
func CountFixable(results []Result) int {
	count := 0
	for _, r := range results {
		for _, item := range r.Items {
			if item.Fixable && item.Status == StatusWarn {
				count++
			}
		}
	}
	return count
}

// CountFixed returns the number of items repaired during the run.
func CountFixed(results []Result) int {
	count := 0
	for _, r := range results {
		for _, item := range r.Items {
			if item.Status == StatusFixed {
				count++
			}
		}
	}
	return count
}
