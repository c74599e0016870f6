package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"opd-claims/models"
	"opd-claims/notify"
	"opd-claims/service"
	"opd-claims/upload"
)

// ListCommand is the CLI invocation that leads back to the claims dashboard.
const ListCommand = "opdclaims claims"

// Renderer writes views as plain text.
type Renderer struct {
	out io.Writer
}

// NewRenderer creates a renderer writing to out
func NewRenderer(out io.Writer) *Renderer {
	return &Renderer{out: out}
}

func (r *Renderer) printf(format string, args ...interface{}) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Renderer) table() *tabwriter.Writer {
	return tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
}

// Members renders the member selection list.
func (r *Renderer) Members(members []models.Member) error {
	if len(members) == 0 {
		r.printf("No members available\n")
		return nil
	}
	tw := r.table()
	fmt.Fprintln(tw, "ID\tNAME\tPOLICY\tJOINED\tLIMIT USED")
	for _, m := range members {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Name, m.PolicyID, FormatDate(m.JoinDate), FormatAmount(m.AnnualLimitUsed))
	}
	return tw.Flush()
}

// Member renders a single member.
func (r *Renderer) Member(m *models.Member) error {
	tw := r.table()
	fmt.Fprintf(tw, "Member\t%s\n", m.ID)
	fmt.Fprintf(tw, "Name\t%s\n", m.Name)
	fmt.Fprintf(tw, "Policy\t%s\n", m.PolicyID)
	if m.Gender != nil {
		fmt.Fprintf(tw, "Gender\t%s\n", *m.Gender)
	}
	fmt.Fprintf(tw, "Joined\t%s\n", FormatDate(m.JoinDate))
	fmt.Fprintf(tw, "Annual limit used\t%s\n", FormatAmount(m.AnnualLimitUsed))
	return tw.Flush()
}

// Files renders the file selection buffer with positions usable for removal.
func (r *Renderer) Files(files []upload.File) error {
	if len(files) == 0 {
		r.printf("No documents selected\n")
		return nil
	}
	tw := r.table()
	for i, f := range files {
		kind := "IMAGE"
		if f.IsPDF() {
			kind = "PDF"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", i+1, f.Name, kind, FormatSize(f.Size))
	}
	return tw.Flush()
}

// Listing renders the dashboard: statistics over every claim, the active
// filter and either the visible claims or the empty state.
func (r *Renderer) Listing(stats service.Stats, filter service.Filter, claims []models.Claim, empty *service.EmptyState) error {
	r.printf("Claims Dashboard\n\n")

	tw := r.table()
	fmt.Fprintf(tw, "Total Claims\t%d\n", stats.Total)
	fmt.Fprintf(tw, "Approved\t%d\n", stats.Approved)
	fmt.Fprintf(tw, "Pending\t%d\n", stats.Pending)
	fmt.Fprintf(tw, "Rejected\t%d\n", stats.Rejected)
	fmt.Fprintf(tw, "Total Approved\t%s\n", FormatAmount(stats.TotalApproved))
	if err := tw.Flush(); err != nil {
		return err
	}

	r.printf("\nFilter: %s\n\n", filter)

	if empty != nil {
		r.printf("%s\n%s\n", empty.Title, empty.Hint)
		if empty.ShowSubmit {
			r.printf("Submit a claim: opdclaims submit --member <id> --date <YYYY-MM-DD> --file <path>\n")
		}
		return nil
	}

	tw = r.table()
	fmt.Fprintln(tw, "CLAIM\tMEMBER\tTREATMENT\tSUBMITTED\tCLAIMED\tAPPROVED\tSTATUS")
	for _, c := range claims {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			c.ID,
			c.MemberID,
			FormatDate(c.TreatmentDate),
			FormatDate(c.SubmissionDate),
			FormatAmount(c.TotalAmount),
			FormatOptionalAmount(c.ApprovedAmount),
			c.Status.Label(),
		)
	}
	return tw.Flush()
}

// Detail renders a loaded claim with its decision and documents.
func (r *Renderer) Detail(v *service.DetailView) error {
	c := v.Claim
	r.printf("Claim %s  [%s]\n", c.ID, c.Status.Label())
	r.printf("Submitted on %s\n\n", FormatDateTime(c.SubmissionDate))

	r.printf("Claim Information\n")
	tw := r.table()
	fmt.Fprintf(tw, "  Member ID\t%s\n", c.MemberID)
	fmt.Fprintf(tw, "  Treatment Date\t%s\n", FormatDateTime(c.TreatmentDate))
	if c.HospitalName != nil && *c.HospitalName != "" {
		fmt.Fprintf(tw, "  Hospital\t%s\n", *c.HospitalName)
	}
	if c.Category != nil && *c.Category != "" {
		fmt.Fprintf(tw, "  Category\t%s\n", *c.Category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	r.printf("\nAmount Details\n")
	tw = r.table()
	fmt.Fprintf(tw, "  Claimed Amount\t%s\n", FormatAmount(c.TotalAmount))
	if c.ApprovedAmount != nil {
		fmt.Fprintf(tw, "  Approved Amount\t%s\n", FormatAmount(*c.ApprovedAmount))
	}
	if v.ShowRejectedAmount() {
		fmt.Fprintf(tw, "  Rejected Amount\t%s\n", FormatAmount(v.RejectedAmount()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if v.HasDecision() {
		if err := r.decision(v.Decision); err != nil {
			return err
		}
	}

	if len(v.Documents) > 0 {
		if err := r.documents(v.Documents); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) decision(d *models.Decision) error {
	r.printf("\nDecision Details\n")
	r.printf("  Confidence Score  %s\n", FormatPercent(d.ConfidenceScore))

	bullets := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		r.printf("\n  %s\n", title)
		for _, it := range items {
			r.printf("    - %s\n", it)
		}
	}
	bullets("Reasoning", d.Reasoning)
	bullets("Rejection Reasons", d.RejectionReasons)

	if len(d.Deductions) > 0 {
		r.printf("\n  Deductions\n")
		tw := r.table()
		for _, label := range d.Deductions.Labels() {
			fmt.Fprintf(tw, "    %s\t%s\n", label, FormatAmount(d.Deductions[label]))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if d.NextSteps != nil && *d.NextSteps != "" {
		r.printf("\n  Next Steps\n    %s\n", *d.NextSteps)
	}
	return nil
}

func (r *Renderer) documents(docs []models.Document) error {
	r.printf("\nDocuments (%d)\n", len(docs))
	for _, doc := range docs {
		line := fmt.Sprintf("  %s  %s", doc.Filename, strings.ToUpper(string(doc.DocumentType)))
		if doc.OCRConfidence != nil && *doc.OCRConfidence > 0 {
			line += fmt.Sprintf("  OCR %s", FormatPercent(*doc.OCRConfidence))
		}
		r.printf("%s\n", line)

		if len(doc.ExtractedData) > 0 {
			data, err := json.MarshalIndent(doc.ExtractedData, "    ", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode extracted data of %s: %w", doc.Filename, err)
			}
			r.printf("    %s\n", data)
		}
	}
	return nil
}

// DetailError renders the detail error state, which only offers a way back
// to the listing.
func (r *Renderer) DetailError(message string) {
	if message == "" {
		message = "Claim not found"
	}
	r.printf("Error Loading Claim\n%s\n\nBack to claims: %s\n", message, ListCommand)
}

// Toast renders one notification line.
func (r *Renderer) Toast(t notify.Toast) {
	var icon string
	switch t.Severity {
	case notify.SeveritySuccess:
		icon = "✓"
	case notify.SeverityError:
		icon = "✗"
	default:
		icon = "i"
	}
	r.printf("%s %s\n", icon, t.Message)
}

// FormatSize renders a byte count in kilobytes with two decimals.
func FormatSize(n int64) string {
	return fmt.Sprintf("%.2f KB", float64(n)/1024)
}
