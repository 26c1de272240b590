package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"bumpcast/internal/cascade"
	"bumpcast/internal/changelog"
	"bumpcast/internal/config"
	"bumpcast/internal/git"
	"bumpcast/internal/graph"
	"bumpcast/internal/history"
	"bumpcast/internal/intent"
	"bumpcast/internal/manifest"
	"bumpcast/internal/reactor"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "bumpcast",
		Short: "Cascade semantic-version bumps across a reactor of modules",
	}
	reactorRoot string
	configPath  string
	dbPath      string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&reactorRoot, "root", "r", ".", "Reactor root directory to scan for manifests")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "bumpcast.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", ".bumpcast.db", "Path to the local run-history database (SQLite)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadRun assembles everything a run needs: config, manifest index, intent
// store, dependency graph and the engine itself.
func loadRun() (*config.Config, *manifest.Index, *intent.Store, *cascade.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("📂 Scanning reactor: %s\n", reactorRoot)
	idx, err := manifest.NewScanner().Scan(reactorRoot)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	fmt.Printf("✅ Found %d manifests.\n", idx.Len())

	records, err := intent.LoadDir(filepath.Join(reactorRoot, cfg.Intents.Dir))
	if err != nil {
		return nil, nil, nil, nil, err
	}
	store := intent.NewStore(records)
	if store.Empty() {
		fmt.Println("ℹ️  No intent records found; only explicit bumps can trigger a cascade.")
	} else {
		fmt.Printf("📝 Loaded %d intent records.\n", len(records))
	}

	g := graph.Build(idx)
	fmt.Printf("🔗 Dependency graph: %d internal edges.\n", g.EdgeCount())

	policy := cascade.AbortOnMalformed
	if cfg.Run.OnMalformed == "skip" {
		policy = cascade.SkipOnMalformed
	}
	engine := cascade.New(store, g, idx, policy)
	engine.SetLogf(log.Printf)

	return cfg, idx, store, engine, nil
}

func printOutcome(res *cascade.Result) {
	for _, id := range sortedChangeIDs(res) {
		change := res.Changes[id]
		fmt.Printf("  ⬆️  %s: %s -> %s (%s)\n", id, change.Before, change.After, change.Origin)
	}
	for id, err := range res.Failed {
		fmt.Printf("  ❌ %s: %v\n", id, err)
	}
	fmt.Printf("📊 %d updated, %d skipped, %d failed.\n", len(res.Changes), len(res.Skipped), len(res.Failed))
}

func sortedChangeIDs(res *cascade.Result) []reactor.ArtifactID {
	ids := make([]reactor.ArtifactID, 0, len(res.Changes))
	for id := range res.Changes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute the bump cascade without touching any file",
	Run: func(cmd *cobra.Command, args []string) {
		_, _, _, engine, err := loadRun()
		if err != nil {
			log.Fatalf("Plan failed: %v", err)
		}

		res, err := engine.Run()
		if err != nil {
			if res != nil {
				printOutcome(res)
			}
			log.Fatalf("Plan failed: %v", err)
		}

		fmt.Println("🚀 Planned changes (dry run, nothing written):")
		printOutcome(res)
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Run the cascade and write manifests, changelogs and history",
	Run: func(cmd *cobra.Command, args []string) {
		started := time.Now()
		cfg, idx, store, engine, err := loadRun()
		if err != nil {
			log.Fatalf("Apply failed: %v", err)
		}

		res, err := engine.Run()
		if err != nil {
			// Nothing was flushed to disk; the working tree is untouched.
			if res != nil {
				printOutcome(res)
			}
			log.Fatalf("Apply aborted: %v", err)
		}

		if len(res.Changes) == 0 {
			fmt.Println("✅ Nothing to update.")
			return
		}

		var touched []string

		// 1. Merge changelogs next to each updated manifest.
		merger := changelog.NewMerger(changelogOptions(cfg))
		for _, id := range sortedChangeIDs(res) {
			change := res.Changes[id]
			m := idx.Get(id)
			path := filepath.Join(filepath.Dir(m.Path), cfg.Changelog.File)
			var notes []intent.ChangeNote
			if change.Origin == cascade.Explicit {
				notes = store.NotesFor(id)
			}
			if err := merger.MergeFile(path, change.After, notes, change.Origin == cascade.Cascaded); err != nil {
				log.Fatalf("Apply failed: %v", err)
			}
			touched = append(touched, path)
		}

		// 2. Flush mutated manifests.
		written, err := idx.SaveDirty(cfg.Run.Backup)
		if err != nil {
			log.Fatalf("Apply failed: %v", err)
		}
		touched = append(touched, written...)

		// 3. Consume the intent records, but keep them around when any
		// artifact failed so the author can fix and re-run.
		if len(res.Failed) == 0 {
			for _, rec := range store.Records() {
				if err := os.Remove(rec.Path); err != nil {
					log.Printf("⚠️  Failed to remove intent record %s: %v", rec.Path, err)
					continue
				}
				touched = append(touched, rec.Path)
			}
		}

		// 4. Record the run.
		hist, err := history.Open(dbPath)
		if err != nil {
			log.Printf("⚠️  Skipping run history: %v", err)
		} else {
			defer hist.Close()
			if _, err := hist.SaveRun(context.Background(), reactorRoot, started, res); err != nil {
				log.Printf("⚠️  Failed to record run history: %v", err)
			}
		}

		// 5. Stage everything we touched.
		if cfg.Run.GitStage {
			if err := git.Stage(reactorRoot, touched); err != nil {
				log.Printf("⚠️  %v", err)
			}
		}

		fmt.Println("🎉 Apply complete:")
		printOutcome(res)
		if len(res.Failed) > 0 {
			os.Exit(1)
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs and their version changes",
	Run: func(cmd *cobra.Command, args []string) {
		hist, err := history.Open(dbPath)
		if err != nil {
			log.Fatalf("Failed to open history database: %v", err)
		}
		defer hist.Close()

		runs, err := hist.ListRuns(context.Background(), 20)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("ℹ️  No recorded runs yet.")
			return
		}

		for _, run := range runs {
			fmt.Printf("run #%d  %s  (%s)\n", run.ID, run.StartedAt.Format(time.RFC3339), run.Root)
			for _, c := range run.Changes {
				fmt.Printf("  %s: %s -> %s (%s)\n", c.Artifact, c.Before, c.After, c.Origin)
			}
		}
	},
}

func changelogOptions(cfg *config.Config) changelog.Options {
	opts := changelog.DefaultOptions()
	if cfg.Changelog.Title != "" {
		opts.Title = cfg.Changelog.Title
	}
	if cfg.Changelog.HeaderTemplate != "" {
		opts.HeaderTemplate = cfg.Changelog.HeaderTemplate
	}
	if cfg.Changelog.DateLayout != "" {
		opts.DateLayout = cfg.Changelog.DateLayout
	}
	if cfg.Changelog.Labels.Major != "" {
		opts.Labels.Major = cfg.Changelog.Labels.Major
	}
	if cfg.Changelog.Labels.Minor != "" {
		opts.Labels.Minor = cfg.Changelog.Labels.Minor
	}
	if cfg.Changelog.Labels.Patch != "" {
		opts.Labels.Patch = cfg.Changelog.Labels.Patch
	}
	if cfg.Changelog.Labels.Other != "" {
		opts.Labels.Other = cfg.Changelog.Labels.Other
	}
	if cfg.Changelog.CascadeNote != "" {
		opts.CascadeNote = cfg.Changelog.CascadeNote
	}
	return opts
}
