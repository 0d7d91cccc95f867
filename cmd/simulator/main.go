package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/abhandari/pipesim/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "Path to the configuration file")
	verbose := flag.Bool("v", false, "Enable verbose output")
	flag.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	if *verbose {
		logger.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	}

	logger.Println("Pipeline Hazard Simulator")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Printf("Falling back to the built-in default pipeline: %v", err)
		cfg = config.DefaultConfig()
	}

	fmt.Println("\nConfiguration Summary:")
	fmt.Printf("	Entry units: %d\n", len(cfg.InPorts)+countInOut(cfg))
	fmt.Printf("	Exit units: %d\n", len(cfg.OutPorts)+countInOut(cfg))
	fmt.Printf("	Internal units: %d\n", len(cfg.InternalUnits))
	fmt.Printf("	ISA mnemonics: %d\n", len(cfg.ISA))
	fmt.Printf("	Program lines: %d\n", len(cfg.Program))

	tl, err := cfg.Build()
	if err != nil {
		logger.Fatalf("Simulation failed: %v", err)
	}

	fmt.Println("\nTimeline:")
	for i, history := range tl.Histories {
		fmt.Printf("instr %d:", i)
		for _, entry := range history {
			fmt.Printf("\tcycle %d: %s", entry.Cycle, entry.Unit)
		}
		fmt.Println()
	}
	fmt.Printf("\nTotal cycles: %d\n", tl.TotalCycles())
}

func countInOut(cfg *config.Config) int {
	return len(cfg.InOutPorts)
}
