package db

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtnitsch/osm-extracts/internal/common"
	dbpkg "github.com/dtnitsch/osm-extracts/pkg/db"
	"github.com/urfave/cli/v2"
)

const timeLayout = "2006-01-02 15:04:05"

func openJournal(c *cli.Context) (*dbpkg.DB, error) {
	cfg, err := common.LoadConfig(c)
	if err != nil {
		return nil, err
	}
	database, err := dbpkg.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// RunsAction lists recent crawl and clip runs.
func RunsAction(c *cli.Context) error {
	database, err := openJournal(c)
	if err != nil {
		return err
	}
	defer database.Close()

	return PrintRuns(c.App.Writer, database, c.Int("limit"))
}

// PrintRuns writes the most recent runs as a table.
func PrintRuns(w io.Writer, database *dbpkg.DB, limit int) error {
	runs, err := database.ListRuns(limit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-6s %-20s %-10s %-8s %-8s %-8s %-8s %-40s\n",
		"ID", "Stage", "Started", "Status", "Lookups", "Failed", "Clips", "Failed", "Error")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for _, r := range runs {
		fmt.Fprintf(w, "%-6d %-6s %-20s %-10s %-8d %-8d %-8d %-8d %-40s\n",
			r.RunID,
			r.Stage,
			r.StartedAt.Local().Format(timeLayout),
			r.Status,
			r.Lookups,
			r.FailedLookups,
			r.Clips,
			r.FailedClips,
			truncate(r.ErrorMessage, 40),
		)
	}

	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	fmt.Fprintf(w, "\nTip: Use 'osm-extracts history show <id>' to see details\n")
	return nil
}

// RunAction shows the lookups and clips of one run (the latest when no id is given).
func RunAction(c *cli.Context) error {
	database, err := openJournal(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runID, err := GetRunIDOrLatest(c, database)
	if err != nil {
		return err
	}
	return PrintRun(c.App.Writer, database, runID, c.Bool("failed-only"))
}

// PrintRun writes the details of runID.
func PrintRun(w io.Writer, database *dbpkg.DB, runID int64, failedOnly bool) error {
	run, err := database.GetRun(runID)
	if err != nil {
		return err
	}
	lookups, err := database.GetRunLookups(runID, failedOnly)
	if err != nil {
		return fmt.Errorf("failed to get run lookups: %w", err)
	}
	clips, err := database.GetRunClips(runID)
	if err != nil {
		return fmt.Errorf("failed to get run clips: %w", err)
	}

	fmt.Fprintf(w, "Run %d (%s)\n", run.RunID, run.Stage)
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "Started:     %s\n", run.StartedAt.Local().Format(timeLayout))
	if run.FinishedAt != nil {
		fmt.Fprintf(w, "Finished:    %s\n", run.FinishedAt.Local().Format(timeLayout))
	}
	fmt.Fprintf(w, "Status:      %s\n", run.Status)
	if run.ErrorMessage != "" {
		fmt.Fprintf(w, "Error:       %s\n", run.ErrorMessage)
	}
	fmt.Fprintf(w, "Lookups:     %d total (%d failed)\n", run.Lookups, run.FailedLookups)
	fmt.Fprintf(w, "Clips:       %d total (%d failed)\n", run.Clips, run.FailedClips)

	if len(lookups) > 0 {
		fmt.Fprintf(w, "\nLookups (%d):\n", len(lookups))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for i, l := range lookups {
			status := "ok"
			if !l.OK {
				status = "failed"
			}
			fmt.Fprintf(w, "%3d. [%s] %s %s (%d, %dms)\n", i+1, status, l.Kind, l.RegionID, l.StatusCode, l.Duration.Milliseconds())
			if l.Error != "" {
				fmt.Fprintf(w, "     Error: %s\n", l.Error)
			}
		}
	}

	if len(clips) > 0 {
		fmt.Fprintf(w, "\nClips (%d):\n", len(clips))
		fmt.Fprintln(w, strings.Repeat("-", 60))
		for i, cl := range clips {
			if failedOnly && cl.Outcome != "failed" {
				continue
			}
			fmt.Fprintf(w, "%3d. [%s] %s/%s (%s)\n", i+1, cl.Outcome, cl.Country, cl.ProvinceName, cl.ProvinceID)
			if cl.OutputPath != "" {
				fmt.Fprintf(w, "     Output: %s\n", cl.OutputPath)
			}
			if cl.Error != "" {
				fmt.Fprintf(w, "     Error: %s\n", cl.Error)
			}
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
