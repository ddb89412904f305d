// Command check-duplicates verifies that the observations table holds at
// most one row per (site_id, source, observation_time). Exit code 0 means
// the table is clean, 2 means duplicate groups exist.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/i474232898/weather-etl/internal/config"
	"github.com/i474232898/weather-etl/internal/store"
)

const maxShown = 10

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.DB, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	fmt.Println("Checking weather_observations for duplicates...")

	groups, err := st.FindDuplicates(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: duplicate query failed: %v\n", err)
		os.Exit(1)
	}

	if len(groups) == 0 {
		fmt.Println("OK: no duplicate groups found.")
		os.Exit(0)
	}

	fmt.Printf("ERROR: found %d duplicate groups:\n\n", len(groups))
	fmt.Printf("%-8s %-20s %-25s %-5s\n", "Site ID", "Source", "Observation Time", "Count")

	shown := groups
	if len(shown) > maxShown {
		shown = shown[:maxShown]
	}
	for _, g := range shown {
		fmt.Printf("%-8d %-20s %-25s %-5d\n", g.SiteID, g.Source, g.ObservationTime.Format("2006-01-02 15:04:05"), g.Count)
	}
	if rest := len(groups) - len(shown); rest > 0 {
		fmt.Printf("... and %d more groups\n", rest)
	}

	os.Exit(2)
}
