package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/httpdispatch/dispatcher"
)

// record is the serialized form of an outcome.
type record struct {
	Subscriber int    `json:"subscriber,omitempty" yaml:"subscriber,omitempty"`
	Status     int    `json:"status,omitempty" yaml:"status,omitempty"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Kind       string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Severity   string `json:"severity,omitempty" yaml:"severity,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	Body       string `json:"body,omitempty" yaml:"body,omitempty"`
	DurationMS int64  `json:"duration_ms" yaml:"duration_ms"`
}

func recordOf(o outcome) record {
	r := record{Subscriber: o.subscriber, DurationMS: o.took.Milliseconds()}
	if o.err != nil {
		r.Error = o.err.Error()
		var de *dispatcher.Error
		if errors.As(o.err, &de) {
			r.Kind = de.Kind.String()
			r.Severity = de.Severity().String()
		}
		if meta, ok := dispatcher.MetaOf(o.err); ok {
			r.Status = meta.StatusCode
			r.URL = meta.URLString()
		}
		return r
	}
	r.Status = o.resp.Meta.StatusCode
	r.URL = o.resp.Meta.URLString()
	r.Body = string(o.resp.Value)
	return r
}

type printer struct {
	w       io.Writer
	format  string
	noColor bool
}

// encode writes v as JSON or YAML, or calls text for the text format.
func (p printer) encode(v any, text func() error) error {
	switch p.format {
	case "json":
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return text()
	}
}

func (p printer) paint(attr color.Attribute, s string) string {
	if p.noColor {
		return s
	}
	return color.New(attr).Sprint(s)
}

// outcomes prints dispatch outcomes. A single outcome is encoded as an
// object, several as a list.
func (p printer) outcomes(request string, outcomes []outcome) error {
	records := make([]record, len(outcomes))
	for i, o := range outcomes {
		records[i] = recordOf(o)
	}
	var v any = records
	if len(records) == 1 {
		v = records[0]
	}
	return p.encode(v, func() error {
		for _, r := range records {
			if err := p.textRecord(request, r); err != nil {
				return err
			}
		}
		return nil
	})
}

func (p printer) textRecord(request string, r record) error {
	var b strings.Builder
	if r.Subscriber > 0 {
		fmt.Fprintf(&b, "%s ", p.paint(color.FgCyan, fmt.Sprintf("[subscriber %d]", r.Subscriber)))
	}
	b.WriteString(p.paint(color.Bold, request))
	if r.Status > 0 {
		attr := color.FgGreen
		if r.Status >= 400 {
			attr = color.FgRed
		}
		fmt.Fprintf(&b, " %s", p.paint(attr, fmt.Sprintf("%d %s", r.Status, http.StatusText(r.Status))))
	}
	fmt.Fprintf(&b, " (%dms)\n", r.DurationMS)

	if r.Kind != "" {
		fmt.Fprintf(&b, "%s %s\n", p.paint(color.FgRed, r.Kind+":"), r.Error)
	} else if r.Body != "" {
		b.WriteString(r.Body)
		if !strings.HasSuffix(r.Body, "\n") {
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(p.w, b.String())
	return err
}

// report prints a bench report.
func (p printer) report(r benchReport) error {
	return p.encode(r, func() error {
		var b strings.Builder
		fmt.Fprintf(&b, "requests: %d  ok: %s  failed: %s  rps: %.1f\n",
			r.Requests,
			p.paint(color.FgGreen, fmt.Sprint(r.Succeeded)),
			p.paint(color.FgRed, fmt.Sprint(r.Failed)),
			r.RPS)
		fmt.Fprintf(&b, "latency ms: mean %.2f  p50 %.2f  p90 %.2f  p99 %.2f  max %.2f\n",
			r.MeanMS, r.P50MS, r.P90MS, r.P99MS, r.MaxMS)

		names := make([]string, 0, len(r.Outcomes))
		for name := range r.Outcomes {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("outcomes:\n")
		for _, name := range names {
			fmt.Fprintf(&b, "  %-20s %d\n", name, r.Outcomes[name])
		}
		_, err := io.WriteString(p.w, b.String())
		return err
	})
}
