package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dtnitsch/osm-extracts/internal/clip"
	"github.com/dtnitsch/osm-extracts/internal/common"
	"github.com/dtnitsch/osm-extracts/internal/crawl"
	dbactions "github.com/dtnitsch/osm-extracts/internal/db"
	"github.com/dtnitsch/osm-extracts/pkg/db"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "osm-extracts",
		Usage: "Build per-province OpenStreetMap extracts from national extracts",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   common.DefaultConfigFile,
				Usage:   "YAML config file (ignored when the default file is missing)",
				EnvVars: []string{"OSMX_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "Only log errors",
			},
			&cli.StringFlag{
				Name:    "db",
				Value:   db.DefaultDBName,
				Usage:   "SQLite run journal",
				EnvVars: []string{"OSMX_DB"},
			},
			&cli.StringFlag{
				Name:    "metrics-file",
				Usage:   "Write Prometheus metrics to this file when a run ends",
				EnvVars: []string{"OSMX_METRICS_FILE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "crawl",
				Usage:  "Enrich a country/province hierarchy with Nominatim details and boundaries",
				Action: crawl.CrawlAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "input",
						Aliases: []string{"i"},
						Value:   crawl.DefaultInputFile,
						Usage:   "Hierarchy JSON: [{\"country\": id, \"provinces\": [id, ...]}]",
						EnvVars: []string{"OSMX_CRAWL_INPUT"},
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Value:   crawl.DefaultOutputFile,
						Usage:   "Enriched dataset JSON to write",
						EnvVars: []string{"OSMX_CRAWL_OUTPUT"},
					},
					&cli.DurationFlag{
						Name:    "request-interval",
						Usage:   "Minimum spacing between remote requests (default from config, 1s)",
						EnvVars: []string{"OSMX_REQUEST_INTERVAL"},
					},
				},
			},
			{
				Name:   "clip",
				Usage:  "Download national extracts and clip one extract per province",
				Action: clip.ClipAction,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "metadata",
						Aliases: []string{"m"},
						Value:   clip.DefaultMetadataFile,
						Usage:   "Enriched dataset JSON produced by crawl",
						EnvVars: []string{"OSMX_CLIP_METADATA"},
					},
					&cli.StringFlag{
						Name:    "urls",
						Aliases: []string{"u"},
						Value:   clip.DefaultURLsFile,
						Usage:   "JSON map of country id to national extract URL",
						EnvVars: []string{"OSMX_CLIP_URLS"},
					},
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "Directory for national and province extracts (default from config, output)",
						EnvVars: []string{"OSMX_OUTPUT_DIR"},
					},
					&cli.StringFlag{
						Name:    "osmosis",
						Usage:   "Path to the osmosis binary",
						EnvVars: []string{"OSMX_OSMOSIS"},
					},
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Check the PBF header of every fresh download",
					},
				},
			},
			{
				Name:   "history",
				Usage:  "List recent runs from the journal",
				Action: dbactions.RunsAction,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Number of runs to list (0 for all)",
					},
				},
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show the lookups and clips of a run",
						ArgsUsage: "[run-id]",
						Action:    dbactions.RunAction,
						Flags: []cli.Flag{
							&cli.BoolFlag{
								Name:  "failed-only",
								Usage: "Only show failed lookups and clips",
							},
						},
					},
				},
			},
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
