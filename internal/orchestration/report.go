package orchestration

import (
	"strings"
	"time"

	"github.com/imamik/pvecfg/internal/resource"
)

// Limits of the stderr excerpt attached to a failure.
const (
	maxExcerptLines = 20
	maxExcerptBytes = 2048
)

// Mode names the kind of pass a report describes.
type Mode string

const (
	ModeApply   Mode = "apply"
	ModeDestroy Mode = "destroy"
)

// Counts aggregates outcomes of a pass.
type Counts struct {
	Applied      int `json:"applied"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	Destroyed    int `json:"destroyed"`
	NotAttempted int `json:"not_attempted"`
}

// Failure describes one failed resource, or one failing host of it.
type Failure struct {
	Key       resource.Key       `json:"key"`
	ErrorKind resource.ErrorKind `json:"error_kind"`
	Host      string             `json:"host,omitempty"`
	Message   string             `json:"message"`
	Stderr    string             `json:"stderr,omitempty"`
}

// Report is the outcome of one pass.
type Report struct {
	PassID   string            `json:"pass_id"`
	Mode     Mode              `json:"mode"`
	Results  []resource.Result `json:"-"`
	Counts   Counts            `json:"counts"`
	Failures []Failure         `json:"failures,omitempty"`
	// Success is true iff no resource reached Failed.
	Success  bool          `json:"success"`
	Duration time.Duration `json:"duration"`
}

func newReport(passID string, mode Mode) *Report {
	return &Report{PassID: passID, Mode: mode, Success: true}
}

// add folds results into the report. destroying marks results of destroy work.
func (r *Report) add(results []resource.Result, destroying bool) {
	for _, res := range results {
		r.Results = append(r.Results, res)
		switch res.Outcome {
		case resource.OutcomeSucceeded:
			if destroying {
				r.Counts.Destroyed++
			} else {
				r.Counts.Applied++
			}
		case resource.OutcomeSkipped:
			// An absent resource counts as destroyed: its record is gone too.
			if destroying {
				r.Counts.Destroyed++
			} else {
				r.Counts.Skipped++
			}
		case resource.OutcomeNotAttempted:
			r.Counts.NotAttempted++
		default:
			r.Counts.Failed++
			r.Success = false
			r.Failures = append(r.Failures, failuresOf(res)...)
		}
	}
}

func failuresOf(res resource.Result) []Failure {
	errs := resource.Errors(res.Err)
	if len(errs) == 0 {
		return []Failure{{Key: res.Key, ErrorKind: resource.ErrorCommand, Message: "failed without an error"}}
	}

	out := make([]Failure, 0, len(errs))
	for _, e := range errs {
		msg := ""
		if e.Err != nil {
			msg = e.Err.Error()
		}
		out = append(out, Failure{
			Key:       res.Key,
			ErrorKind: e.Kind,
			Host:      e.Host,
			Message:   msg,
			Stderr:    Excerpt(e.Stderr),
		})
	}
	return out
}

// Excerpt keeps the tail of s: at most maxExcerptLines lines and
// maxExcerptBytes bytes.
func Excerpt(s string) string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return ""
	}

	lines := strings.Split(s, "\n")
	if len(lines) > maxExcerptLines {
		lines = lines[len(lines)-maxExcerptLines:]
	}
	out := strings.Join(lines, "\n")

	if len(out) > maxExcerptBytes {
		out = out[len(out)-maxExcerptBytes:]
		// Drop a partial first line, and with it any split UTF-8 sequence.
		if i := strings.IndexByte(out, '\n'); i >= 0 && i < len(out)-1 {
			out = out[i+1:]
		}
		out = strings.ToValidUTF8(out, "")
	}
	return out
}
