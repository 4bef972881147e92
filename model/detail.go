package model

import (
	"fmt"
	"strings"

	"github.com/vaultx/vaultx-term/client"
	"github.com/vaultx/vaultx-term/inbox"
)

// DetailMarkdown renders a case as markdown for the detail pane.
func DetailMarkdown(d *client.CaseDetail) string {
	if d == nil {
		return ""
	}
	var b strings.Builder

	name := d.Patient.Name
	if name == "" {
		name = "Unknown patient"
	}
	fmt.Fprintf(&b, "# %s\n\n", name)
	fmt.Fprintf(&b, "**Status:** %s  \n", inbox.StatusLabel(d.Status))
	if d.SubmittedAt != "" {
		fmt.Fprintf(&b, "**Submitted:** %s  \n", d.SubmittedAt)
	}
	if d.Patient.DOB != "" {
		fmt.Fprintf(&b, "**DOB:** %s  \n", d.Patient.DOB)
	}
	if d.Patient.Phone != "" {
		fmt.Fprintf(&b, "**Phone:** %s  \n", d.Patient.Phone)
	}
	if d.Patient.Email != "" {
		fmt.Fprintf(&b, "**Email:** %s  \n", d.Patient.Email)
	}
	b.WriteString("\n")

	s := d.Summary
	if s == nil {
		b.WriteString("_No summary yet._\n")
	} else {
		writeSummary(&b, s)
	}

	if len(d.Documents) > 0 {
		b.WriteString("## Documents\n\n")
		for _, doc := range d.Documents {
			fmt.Fprintf(&b, "- %s (%s)\n", doc.FileName, doc.MimeType)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeSummary(b *strings.Builder, s *client.Summary) {
	if len(s.RedFlags) > 0 {
		b.WriteString("## Red flags\n\n")
		for _, f := range s.RedFlags {
			if f.Reason != "" {
				fmt.Fprintf(b, "- **%s**: %s\n", f.Flag, f.Reason)
			} else {
				fmt.Fprintf(b, "- **%s**\n", f.Flag)
			}
		}
		b.WriteString("\n")
	}

	if soap := s.SOAP; soap != nil {
		b.WriteString("## Subjective\n\n" + orDash(soap.Subjective) + "\n\n")
		b.WriteString("## Objective\n\n" + orDash(soap.Objective) + "\n\n")
		b.WriteString("## Assessment\n\n")
		if len(soap.Assessment) == 0 {
			b.WriteString("-\n")
		}
		for _, a := range soap.Assessment {
			if a.Rationale != "" {
				fmt.Fprintf(b, "- **%s**: %s\n", a.Condition, a.Rationale)
			} else {
				fmt.Fprintf(b, "- **%s**\n", a.Condition)
			}
		}
		b.WriteString("\n## Plan\n\n")
		if len(soap.Plan) == 0 {
			b.WriteString("-\n")
		}
		for _, p := range soap.Plan {
			fmt.Fprintf(b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	if len(s.DDx) > 0 {
		b.WriteString("## Differential\n\n")
		for _, d := range s.DDx {
			line := "- " + d.Condition
			if d.Likelihood != "" {
				line += " (" + d.Likelihood + ")"
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}
	if len(s.ICD10Codes) > 0 {
		b.WriteString("**ICD-10:** " + strings.Join(s.ICD10Codes, ", ") + "\n\n")
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
