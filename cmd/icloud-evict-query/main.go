package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"

	"icloud-evict/internal/database"
	"icloud-evict/internal/disk"
	"icloud-evict/internal/exitcodes"
)

func main() {
	// Parse command-line flags
	dbPath := flag.String("db", defaultDBPath(), "Path to eviction history database")
	recent := flag.Int("recent", 0, "Show N most recent eviction events")
	stats := flag.Bool("stats", false, "Show eviction statistics")
	action := flag.String("action", "", "Filter by action (EVICT, DRY_RUN, ERROR)")
	failed := flag.Bool("failed", false, "Show failed eviction attempts")
	pathPattern := flag.String("path", "", "Filter by path pattern (SQL LIKE syntax)")
	largest := flag.Int("largest", 0, "Show N largest evictions")
	days := flag.Int("days", 30, "Number of days for statistics (default: 30)")
	jsonOutput := flag.Bool("json", false, "Output in JSON format")
	flag.Parse()

	// Open database
	db, err := database.NewEvictionDB(*dbPath)
	if err != nil {
		log.Fatalf("ERROR: Failed to open database %s: %v", *dbPath, err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("ERROR: Failed to close database: %v", err)
		}
	}()

	// Handle different query modes
	switch {
	case *stats:
		showStats(db, *days, *jsonOutput)
	case *recent > 0:
		showRecent(db, *recent, *jsonOutput)
	case *failed:
		showByAction(db, database.ActionError, *jsonOutput)
	case *action != "":
		showByAction(db, *action, *jsonOutput)
	case *pathPattern != "":
		showByPath(db, *pathPattern, *jsonOutput)
	case *largest > 0:
		showLargest(db, *largest, *jsonOutput)
	default:
		flag.Usage()
		fmt.Println("\nExamples:")
		fmt.Println("  icloud-evict-query --recent 10          # Show 10 most recent events")
		fmt.Println("  icloud-evict-query --stats              # Show eviction statistics")
		fmt.Println("  icloud-evict-query --failed             # Show failed attempts")
		fmt.Println("  icloud-evict-query --path '%/Documents/%' # Filter by path")
		fmt.Println("  icloud-evict-query --largest 10         # Show 10 largest evictions")
		os.Exit(exitcodes.InvalidConfig)
	}
}

// defaultDBPath matches the conventional location an operator would configure
// via database_path
func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "evictions.db"
	}
	return filepath.Join(home, "Library", "Application Support", "icloud-evict", "evictions.db")
}

func showStats(db *database.EvictionDB, days int, jsonOutput bool) {
	stats, err := db.GetEvictionStats(days)
	if err != nil {
		log.Fatalf("ERROR: Failed to get statistics: %v", err)
	}

	if jsonOutput {
		data, _ := json.MarshalIndent(stats, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Eviction Statistics (Last %d days)\n", days)
	fmt.Printf("Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Printf("Files Evicted:    %d\n", stats.TotalEvicted)
	fmt.Printf("Failed Attempts:  %d\n", stats.TotalFailed)
	fmt.Printf("Dry-Run Previews: %d\n", stats.TotalDryRun)
	fmt.Printf("Space Reclaimed:  %s\n", disk.FormatBytes(stats.TotalSpaceReclaimed))
}

func showRecent(db *database.EvictionDB, limit int, jsonOutput bool) {
	records, err := db.GetRecentEvictions(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to get recent events: %v", err)
	}
	output(records, jsonOutput)
}

func showByAction(db *database.EvictionDB, action string, jsonOutput bool) {
	records, err := db.GetEvictionsByAction(action)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by action: %v", err)
	}
	output(records, jsonOutput)
}

func showByPath(db *database.EvictionDB, pattern string, jsonOutput bool) {
	records, err := db.GetEvictionsByPath(pattern)
	if err != nil {
		log.Fatalf("ERROR: Failed to query by path: %v", err)
	}
	output(records, jsonOutput)
}

func showLargest(db *database.EvictionDB, limit int, jsonOutput bool) {
	records, err := db.GetLargestEvictions(limit)
	if err != nil {
		log.Fatalf("ERROR: Failed to query largest evictions: %v", err)
	}
	output(records, jsonOutput)
}

func output(records []database.EvictionRecord, jsonOutput bool) {
	if jsonOutput {
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return
	}
	printRecords(records)
}

func printRecords(records []database.EvictionRecord) {
	if len(records) == 0 {
		fmt.Println("No matching events")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIMESTAMP\tACTION\tSIZE\tPATH\tERROR")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Action,
			disk.FormatBytes(r.Size),
			r.Path,
			r.ErrorMessage,
		)
	}
	w.Flush()
}
