package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"multiverse/internal/config"
	"multiverse/internal/logging"
	"multiverse/internal/orchestrator"
	"multiverse/internal/snapshot"
	"multiverse/internal/universe"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// loadOptions resolves config file + flag overrides into validated options.
func loadOptions(cmd *cobra.Command) (config.Options, error) {
	configPath, _ := cmd.Flags().GetString("config")

	opts := config.Default()
	if configPath != "" {
		loaded, err := config.LoadFile(configPath)
		if err != nil {
			return config.Options{}, err
		}
		opts = loaded
	}

	if cmd.Flags().Changed("seed") {
		opts.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("orbits") {
		opts.Orbits, _ = cmd.Flags().GetInt("orbits")
	}
	if cmd.Flags().Changed("realms") {
		opts.Realms, _ = cmd.Flags().GetStringSlice("realms")
	}
	if cmd.Flags().Changed("enrichments") {
		names, _ := cmd.Flags().GetStringSlice("enrichments")
		opts.EnrichmentTypes = opts.EnrichmentTypes[:0]
		for _, name := range names {
			elem, err := universe.ParseStoryElement(name)
			if err != nil {
				return config.Options{}, err
			}
			opts.EnrichmentTypes = append(opts.EnrichmentTypes, elem)
		}
	}
	return opts, opts.Validate()
}

func addLaunchFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "path to a YAML config file")
	cmd.Flags().Int64("seed", 42, "universe seed")
	cmd.Flags().Int("orbits", 2, "torus cycles to run")
	cmd.Flags().StringSlice("realms", []string{"overworld", "tavern"}, "realm ids to generate")
	cmd.Flags().StringSlice("enrichments", []string{"dialogue", "npc_history"}, "enrichment types per cycle")
	cmd.Flags().Bool("verbose", false, "enable debug logging")
}

func buildLogger(cmd *cobra.Command) *logging.Logger {
	logger := logging.New("ENGINE")
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logger.SetMinLevel(logging.LevelDebug)
	}
	return logger
}

func printMetadata(meta *orchestrator.Metadata) {
	fmt.Println(bold("universe launched"))
	fmt.Printf("  %s %s\n", gray("id:"), meta.UniverseID)
	fmt.Printf("  %s %d\n", gray("seed:"), meta.Seed)
	fmt.Printf("  %s %s\n", gray("hash:"), cyan(meta.UniverseHash))
	fmt.Printf("  %s %d\n", gray("orbits:"), meta.TotalOrbitsCompleted)
	fmt.Printf("  %s %.2fms\n", gray("init:"), meta.InitializationTimeMS)

	realmIDs := make([]string, 0, len(meta.Realms))
	for id := range meta.Realms {
		realmIDs = append(realmIDs, id)
	}
	sort.Strings(realmIDs)
	for _, id := range realmIDs {
		fmt.Printf("  %s %s: %d entities\n", gray("realm"), green(id), meta.Realms[id])
	}
	fmt.Printf("  %s %d\n", gray("total:"), meta.TotalEntities)
}

func newDemoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Initialize a universe, run enrichment cycles, and integrate adapters",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}

			o, err := orchestrator.New(orchestrator.Config{Options: opts, Logger: buildLogger(cmd)})
			if err != nil {
				return err
			}
			meta, err := o.LaunchDemo(cmd.Context())
			if err != nil {
				return err
			}
			printMetadata(meta)

			if out, _ := cmd.Flags().GetString("snapshot"); out != "" {
				snap, err := o.ExportSnapshot(snapshot.ExportOptions{
					IncludeEnrichments: true,
					IncludeAuditTrail:  true,
					IncludeGovernance:  true,
				})
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("%s %s\n", gray("snapshot:"), out)
			}
			return nil
		},
	}
	addLaunchFlags(cmd)
	cmd.Flags().String("snapshot", "", "write a snapshot JSON to this path")
	return cmd
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a universe from a seed and validate its hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			expected, _ := cmd.Flags().GetString("validate-hash")

			_, meta, err := orchestrator.ReplayFromSeed(cmd.Context(), opts.Seed, opts, expected, buildLogger(cmd), nil)
			if err != nil {
				return err
			}
			if expected != "" {
				fmt.Println(green("replay hash validated"))
			}
			printMetadata(meta)
			return nil
		},
	}
	addLaunchFlags(cmd)
	cmd.Flags().String("validate-hash", "", "expected universe hash")
	return cmd
}
