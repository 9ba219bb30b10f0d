// Package main provides a command line tool for the competition rankings.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/fop-engine/internal/config"
	"github.com/yourusername/fop-engine/internal/logger"
	"github.com/yourusername/fop-engine/internal/models"
	"github.com/yourusername/fop-engine/internal/repository"
	"github.com/yourusername/fop-engine/internal/results"
	"github.com/yourusername/fop-engine/internal/sorter"
)

var defaultKeys = []string{"mTot", "wTot", "mSinclair", "wSinclair", "mwTeam"}

var (
	configFile string
	jsonOutput bool
	topN       int
	outputPath string

	cfg    *config.Config
	appLog *logrus.Logger
	store  *repository.Store
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "./config/config.yaml", "Path to configuration file")
	showCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result set as JSON")
	showCmd.Flags().IntVarP(&topN, "top", "n", 0, "Only print the first N entries of each list")
	dumpCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write fixtures to this file instead of stdout")

	rootCmd.AddCommand(showCmd, keysCmd, orderCmd, dumpCmd, importCmd)
}

var rootCmd = &cobra.Command{
	Use:   "rankings",
	Short: "Inspect competition rankings",
	Long:  `Computes the global result sets from the configured athlete store and prints them.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		var err error
		store, err = repository.Open(cmd.Context(), cfg, appLog)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
	},
}

var showCmd = &cobra.Command{
	Use:   "show [key...]",
	Short: "Print ranked lists and team totals",
	Example: `  rankings show mTot wTot
  rankings show mSinclair --top 3`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := compute(cmd.Context())
		if err != nil {
			return err
		}
		keys := args
		if len(keys) == 0 {
			keys = defaultKeys
		}
		if jsonOutput {
			return printJSON(rs, keys)
		}
		for _, k := range keys {
			if err := printKey(rs, k); err != nil {
				return err
			}
		}
		return nil
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the keys of the result set",
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := compute(cmd.Context())
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(rs))
		for k := range rs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Println(k)
		}
		return nil
	},
}

var orderCmd = &cobra.Command{
	Use:   "order <group>",
	Short: "Print the lifting order of a group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		g, err := store.Groups.FindByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to find group %q: %w", args[0], err)
		}
		athletes, err := store.Athletes.FindAllByGroupAndWeighIn(ctx, g, true)
		if err != nil {
			return err
		}
		for _, a := range sorter.LiftingOrderCopy(athletes) {
			fmt.Println(a.ShortDump())
		}
		return nil
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write the athlete store as a fixtures document",
	RunE: func(cmd *cobra.Command, args []string) error {
		mem := store.Memory
		if mem == nil {
			mem = repository.NewMemoryStore()
			target, err := repository.NewMemoryRepositories(mem)
			if err != nil {
				return err
			}
			if _, err := repository.Import(cmd.Context(), store.Repositories, target); err != nil {
				return err
			}
		}

		if outputPath == "" {
			return mem.Dump(os.Stdout)
		}
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		if err := mem.Dump(f); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var importCmd = &cobra.Command{
	Use:   "import <fixtures.yaml>",
	Short: "Load a fixtures document into the configured store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		comp, err := cfg.CompetitionModel()
		if err != nil {
			return err
		}
		src, err := repository.LoadMemoryStore(args[0], repository.MemoryOptions{
			LotSeed:  cfg.Competition.LotSeed,
			Settings: comp.RankingSettings(),
			Logger:   appLog,
		})
		if err != nil {
			return err
		}
		srcRepos, err := repository.NewMemoryRepositories(src)
		if err != nil {
			return err
		}
		n, err := repository.Import(cmd.Context(), srcRepos, store.Repositories)
		if err != nil {
			return err
		}
		appLog.WithFields(logrus.Fields{"athletes": n, "driver": cfg.Database.Driver}).Info("Fixtures imported")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func loadConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	var err error
	cfg, err = config.LoadWithDefaults(configFile)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	appLog = logger.New(logger.Options{Level: cfg.App.LogLevel, Format: cfg.App.LogFormat, Output: os.Stderr})
	return nil
}

func compute(ctx context.Context) (results.ResultSet, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	comp, err := cfg.CompetitionModel()
	if err != nil {
		return nil, err
	}
	ag := results.NewAggregator(comp.RankingSettings(), store.Athletes, nil, cfg.Rankings.TopN, appLog)
	return ag.Refresh(ctx)
}

func printJSON(rs results.ResultSet, keys []string) error {
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		v, ok := rs[k]
		if !ok {
			return fmt.Errorf("unknown result key %q", k)
		}
		out[k] = v
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printKey(rs results.ResultSet, key string) error {
	v, ok := rs[key]
	if !ok {
		return fmt.Errorf("unknown result key %q", key)
	}

	fmt.Printf("\n%s\n%s\n", key, strings.Repeat("=", len(key)))
	switch list := v.(type) {
	case []results.RankedAthlete:
		if topN > 0 && len(list) > topN {
			list = list[:topN]
		}
		for _, ra := range list {
			fmt.Printf("%4s  %-28s %-8s %-12s %9.3f\n",
				rankLabel(ra.Rank), ra.Athlete.FullName(), categoryCode(ra.Athlete), ra.Athlete.Team, ra.Score)
		}
	case []sorter.TeamScore:
		if topN > 0 && len(list) > topN {
			list = list[:topN]
		}
		for i, ts := range list {
			fmt.Printf("%4d  %-20s %5d points (%d athletes)\n", i+1, ts.Team, ts.Points, ts.Size)
		}
	case []string:
		fmt.Println(strings.Join(list, ", "))
	default:
		fmt.Println(v)
	}
	return nil
}

func rankLabel(rank int) string {
	if rank <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d", rank)
}

func categoryCode(a *models.Athlete) string {
	c := a.EffectiveCategory(cfg.Competition.UseRegistrationCategory)
	if c == nil {
		return ""
	}
	return c.Code
}
