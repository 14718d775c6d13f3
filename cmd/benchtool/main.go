package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"ecs-bench/internal/archive"
	"ecs-bench/internal/bench"
	"ecs-bench/internal/metrics"
)

var (
	dataPath   = flag.String("data", "./data/archive", "Path to the archive database")
	jsonOutput = flag.Bool("json", false, "Output raw JSON instead of tables")
)

func main() {
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		return
	}

	store, err := archive.NewStore(archive.Config{DataPath: *dataPath})
	if err != nil {
		log.Fatalf("Failed to open archive at %s: %v", *dataPath, err)
	}
	defer store.Close()

	command := args[0]
	switch command {
	case "list":
		handleList(store)
	case "show":
		handleShow(store, args[1:])
	case "latest":
		handleLatest(store)
	case "export":
		handleExport(store, args[1:])
	case "delete", "del":
		handleDelete(store, args[1:])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleList(store *archive.Store) {
	entries, err := store.List()
	if err != nil {
		log.Fatalf("Failed to list archive: %v", err)
	}
	if len(entries) == 0 {
		fmt.Println("Archive is empty")
		return
	}
	fmt.Printf("%-32s %-25s %s\n", "ID", "TIMESTAMP", "RESULTS")
	for _, e := range entries {
		fmt.Printf("%-32s %-25s %d\n", e.ID, e.Timestamp, e.Results)
	}
}

func handleShow(store *archive.Store, args []string) {
	if len(args) != 1 {
		log.Fatal("Usage: benchtool show <id>")
	}
	report, err := store.Get(args[0])
	if err != nil {
		log.Fatalf("Failed to load report: %v", err)
	}
	printReport(report)
}

func handleLatest(store *archive.Store) {
	id, report, err := store.Latest()
	if err != nil {
		log.Fatalf("Failed to load latest report: %v", err)
	}
	fmt.Printf("ID: %s\n", id)
	printReport(report)
}

func handleExport(store *archive.Store, args []string) {
	if len(args) != 2 {
		log.Fatal("Usage: benchtool export <id> <file>")
	}
	report, err := store.Get(args[0])
	if err != nil {
		log.Fatalf("Failed to load report: %v", err)
	}
	data, err := report.ToJSON()
	if err != nil {
		log.Fatalf("Failed to serialize report: %v", err)
	}
	if err := os.WriteFile(args[1], data, 0644); err != nil {
		log.Fatalf("Failed to write %s: %v", args[1], err)
	}
	fmt.Printf("Exported %s to %s\n", args[0], args[1])
}

func handleDelete(store *archive.Store, args []string) {
	if len(args) != 1 {
		log.Fatal("Usage: benchtool delete <id>")
	}
	if err := store.Delete(args[0]); err != nil {
		log.Fatalf("Failed to delete report: %v", err)
	}
	fmt.Printf("Deleted %s\n", args[0])
}

func printReport(report *bench.Report) {
	if *jsonOutput {
		data, err := report.ToJSON()
		if err != nil {
			log.Fatalf("Failed to serialize report: %v", err)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("Run at %s (target %.1fms, %s, %d cores)\n\n",
		report.Timestamp, report.TargetFrameTimeMs,
		report.SystemInfo.OS, report.SystemInfo.CPUCores)
	fmt.Printf("%-28s %12s %14s %10s  %s\n", "WORKLOAD", "BREAKDOWN", "THROUGHPUT", "MEDIAN", "OUTCOME")
	for _, r := range report.Results {
		fmt.Printf("%-28s %12s %14s %8.2fms  %s\n",
			r.Workload,
			metrics.FormatCount(r.BreakdownPoint),
			metrics.FormatThroughput(r.ThroughputEPS),
			r.FrameTimeMs.Median,
			r.Outcome,
		)
	}
}

func printUsage() {
	fmt.Printf(`Benchmark archive inspector

Usage:
  %s [options] <command> [args]

Commands:
  list                 List archived reports
  latest               Show the most recent report
  show <id>            Show one report
  export <id> <file>   Write one report to a JSON file
  delete <id>          Remove one report from the archive

Options:
  -data string
        Path to the archive database (default "./data/archive")
  -json
        Output raw JSON instead of tables
`, os.Args[0])
}
