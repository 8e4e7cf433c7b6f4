package usage

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/screenguard/screenguard/internal/domain"
)

const exportTimeLayout = "2006-01-02 15:04:05"

// WriteCSV writes per-package usage totals as CSV: package, app name,
// total milliseconds, formatted time, session count, session starts.
func WriteCSV(w io.Writer, totals []domain.UsageTotal, appInfo domain.AppInfoProvider) error {
	cw := csv.NewWriter(w)

	header := []string{"Package Name", "App Name", "Total Time (ms)", "Total Time (formatted)", "Sessions", "Start Times"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, total := range totals {
		starts := make([]string, len(total.SessionStarts))
		for i, t := range total.SessionStarts {
			starts[i] = t.Format(exportTimeLayout)
		}

		record := []string{
			string(total.Package),
			appInfo.DisplayName(total.Package),
			strconv.FormatInt(total.TotalForeground.Milliseconds(), 10),
			FormatDuration(total.TotalForeground),
			strconv.Itoa(len(total.SessionStarts)),
			strings.Join(starts, ";"),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportFileName builds a timestamped default export file name.
func ExportFileName(now time.Time) string {
	return "usage_stats_" + now.Format("20060102_150405") + ".csv"
}
