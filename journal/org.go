package journal

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
	"time"
)

var orgFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"pct": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return (a/b - 1) * 100
	},
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(OrgTemplate))

// Org renders the run as an org-mode entry.
func (r RunRecord) Org() (string, error) {
	buf := new(bytes.Buffer)
	if err := orgTemplate.Execute(buf, r); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteOrg writes the org-mode entry to path.
func (r RunRecord) WriteOrg(path string) error {
	s, err := r.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(s), 0o644)
}

// WriteOrgFile writes one org-mode entry per run to path.
func WriteOrgFile(path string, runs []RunRecord) error {
	buf := new(bytes.Buffer)
	for _, r := range runs {
		if err := orgTemplate.Execute(buf, r); err != nil {
			return fmt.Errorf("run %s: %w", r.RunID, err)
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const OrgTemplate = `* BACKTEST: {{.Strategy}} {{.Instruments}} {{.Frequency}}
:PROPERTIES:
:RUN_ID:       {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:     {{.Strategy}}
:FREQUENCY:    {{.Frequency}}
:INSTRUMENTS:  {{.Instruments}}
:START_DATE:   {{.Start.Format "2006-01-02"}}
:END_DATE:     {{.End.Format "2006-01-02"}}
:INITIAL_CASH: {{printf "%.2f" .InitialCash}}
:FINAL_NAV:    {{printf "%.2f" .FinalNAV}}
:CHANGE_PCT:   {{printf "%.2f" (pct .FinalNAV .InitialCash)}}
:TRANSACTIONS: {{.Transactions}}
:TRADES:       {{.Trades}}
:CREATED:      [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Ledger
| Item            | Value |
|-----------------+-------|
| Realized P/L    | {{printf "%.2f" .RealizedPnL}} |
| Winning trades  | {{.Wins}} |
| Losing trades   | {{.Losses}} |
| Total trades    | {{.Trades}} |
`
