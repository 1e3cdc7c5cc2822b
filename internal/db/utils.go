package db

import (
	"fmt"

	dbpkg "github.com/dtnitsch/osm-extracts/pkg/db"
	"github.com/urfave/cli/v2"
)

// GetRunIDOrLatest returns the run ID from args, or the latest run if not provided
func GetRunIDOrLatest(c *cli.Context, database *dbpkg.DB) (int64, error) {
	if c.NArg() == 0 {
		return LatestRunID(database)
	}

	var runID int64
	_, err := fmt.Sscanf(c.Args().First(), "%d", &runID)
	if err != nil {
		return 0, fmt.Errorf("invalid run ID: %s", c.Args().First())
	}
	return runID, nil
}

func LatestRunID(database *dbpkg.DB) (int64, error) {
	runs, err := database.ListRuns(1)
	if err != nil {
		return 0, fmt.Errorf("failed to get latest run: %w", err)
	}
	if len(runs) == 0 {
		return 0, fmt.Errorf("no runs found. Run 'osm-extracts crawl' first")
	}
	return runs[0].RunID, nil
}
