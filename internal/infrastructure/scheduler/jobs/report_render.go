// Package jobs contains implementations of scheduled jobs for Study Tracker Hub.
package jobs

import (
	"fmt"
	"strings"

	"github.com/studyhub/study-tracker-hub/internal/application/query"
	"github.com/studyhub/study-tracker-hub/pkg/timeutil"
)

// Recorder receives the job-level counters. The metrics package provides the
// real implementation.
type Recorder interface {
	SessionsSwept(count int64)
	RefreshFailed()
	ReportPublished()
}

// NopRecorder is a Recorder that discards everything.
type NopRecorder struct{}

func (NopRecorder) SessionsSwept(count int64) {}
func (NopRecorder) RefreshFailed()            {}
func (NopRecorder) ReportPublished()          {}

// renderReport formats a ranked snapshot as the report message body.
func renderReport(title string, res *query.RankedSnapshotResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "<b>%s</b>\n", title)
	fmt.Fprintf(&b, "<i>%s</i>\n\n", res.Key)

	if len(res.Rows) == 0 {
		b.WriteString("No study time recorded yet.")
		return b.String()
	}

	for _, row := range res.Rows {
		marker := ""
		if row.LiveSeconds > 0 {
			marker = " ⏵" // studying right now
		}
		fmt.Fprintf(&b, "%d. %s — %s%s\n", row.Rank, row.DisplayName, timeutil.FormatSeconds(row.TotalSeconds), marker)
	}

	return b.String()
}
