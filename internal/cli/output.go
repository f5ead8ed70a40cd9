package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"n8napp/internal/config"
	"n8napp/internal/dashboard"
	"n8napp/internal/n8n"
)

// render writes v as JSON or YAML, or calls table for the default format.
func render(w io.Writer, format string, v any, table func(tw *tabwriter.Writer)) error {
	switch format {
	case config.OutputJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

func workflowTable(wfs []n8n.Workflow) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		fmt.Fprintln(tw, "ID\tNAME\tACTIVE\tUPDATED")
		for _, wf := range wfs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wf.ID, wf.Name, yesNo(wf.Active), dashboard.FormatTime(wf.UpdatedAt))
		}
		total, active := dashboard.Summary(wfs)
		fmt.Fprintf(tw, "\n%d workflows, %d active\n", total, active)
	}
}

func executionTable(execs []n8n.Execution) func(*tabwriter.Writer) {
	return func(tw *tabwriter.Writer) {
		if len(execs) == 0 {
			fmt.Fprintln(tw, "no executions")
			return
		}
		fmt.Fprintln(tw, "ID\tWORKFLOW\tSTATUS\tSTARTED\tDURATION")
		for _, e := range execs {
			dur := "-"
			if secs, ok := dashboard.Duration(e); ok {
				dur = strconv.FormatInt(secs, 10) + "s"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				e.ID, dashboard.DisplayName(e), dashboard.StatusLabel(e.Status),
				dashboard.FormatTime(e.StartedAt), dur)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// maskKey shows only the last four characters of an API key.
func maskKey(k string) string {
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
