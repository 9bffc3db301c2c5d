package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mkobayashi/jobscout/internal/logger"
	"github.com/mkobayashi/jobscout/internal/pipeline"
	"github.com/mkobayashi/jobscout/internal/store"
)

const (
	PromptResultsToFile = "Dump results to file"
	PromptCompanyReport = "Report by companies"
	PromptSaveFavorite  = "Save a job to favorites"
	PromptBack          = "back"
	PromptExit          = "Exit"
)

var errExit = errors.New("exit requested")

var resultPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptResultsToFile, PromptCompanyReport, PromptExit},
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Run an AI search for the given free-text query",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		search(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolP("plain", "p", false, "skip the AI pipeline and search the local job store by filters derived from the query flags")
	searchCmd.Flags().StringP("user", "u", "", "user id for search history and favorites")
	searchCmd.Flags().StringSliceP("location", "l", nil, "location filter for --plain search")
	searchCmd.Flags().StringSliceP("skill", "s", nil, "skill filter for --plain search")
	searchCmd.Flags().Int("min-salary", 0, "minimum yearly salary filter for --plain search")
}

// search is the main command for the cli.
func search(cmd *cobra.Command, query string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the jobscout", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	if config == nil {
		config = &Config{}
	}

	st, err := store.Open(config.DataDir)
	if err != nil {
		logger.Fatal("opening the job store", zap.Error(err))
	}
	defer st.Close()

	userID, _ := cmd.Flags().GetString("user")

	if plain, _ := cmd.Flags().GetBool("plain"); plain {
		plainSearch(ctx, cmd, st, userID, logger)
		return
	}

	gateway, err := newGateway(ctx, config.AI, logger)
	if err != nil {
		logger.Fatal("building the ai gateway", zap.Error(err))
	}

	orchestrator := newOrchestrator(gateway, st, config.AI, logger)

	result, err := orchestrator.RunPipeline(ctx, query, userID)
	if err != nil {
		logger.Fatal("search failed", zap.Error(err))
	}

	if len(result.Candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no matching jobs found"))
		return
	}

	printCandidates(result)

	for {
		_, action, err := resultPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleResultAction(action, result, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleResultAction(action string, result *pipeline.SearchResult, logger *zap.Logger) error {
	switch action {
	case PromptResultsToFile:
		filename, err := dumpToTmpFile(result)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		logger.Info("dumping result to file", zap.String("filename", filename))
		return nil
	case PromptCompanyReport:
		pretty, _ := json.MarshalIndent(reportByCompany(result.Candidates), "", "  ")
		logger.Info(string(pretty), zap.Int("candidates count", len(result.Candidates)))
		return nil
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// plainSearch queries the local job store directly, then lets the user save
// results to favorites one by one.
func plainSearch(ctx context.Context, cmd *cobra.Command, st *store.Store, userID string, logger *zap.Logger) {
	locations, _ := cmd.Flags().GetStringSlice("location")
	skills, _ := cmd.Flags().GetStringSlice("skill")
	minSalary, _ := cmd.Flags().GetInt("min-salary")

	filters := &store.JobFilters{
		Locations: locations,
		Skills:    skills,
		MinSalary: minSalary,
	}

	page, err := st.SearchJobs(ctx, filters, 0, 20)
	if err != nil {
		logger.Fatal("searching jobs", zap.Error(err))
	}

	if page.Total == 0 {
		logger.Info("exiting", zap.String("reason", "no jobs found"))
		return
	}

	logger.Info("jobs found", zap.Int("count", page.Total))

	if userID == "" {
		pretty, _ := json.MarshalIndent(page.Jobs, "", "  ")
		fmt.Println(string(pretty))
		return
	}

	if err := pickFavorites(ctx, st, page.Jobs, userID, logger); err != nil && !errors.Is(err, errExit) {
		logger.Fatal("exiting", zap.Error(err))
	}
}

// pickFavorites loops a selection prompt over the found jobs, saving each
// chosen one for the user.
func pickFavorites(ctx context.Context, st *store.Store, jobs []*store.Job, userID string, logger *zap.Logger) error {
	for {
		items := make([]string, 0, len(jobs)+1)
		for _, job := range jobs {
			items = append(items, fmt.Sprintf("%s %s / %s / %s", job.ID, job.Title, job.CompanyName, job.Location))
		}

		jobPrompt := promptui.Select{
			Label: "Choose a job to save and press ENTER",
			Items: append(items, PromptBack),
		}

		_, selected, err := jobPrompt.Run()
		if err != nil {
			return err
		}

		if selected == PromptBack {
			return nil
		}

		jobID := strings.Split(selected, " ")[0]
		if err := st.AddFavorite(ctx, userID, jobID); err != nil {
			return fmt.Errorf("saving favorite: %w", err)
		}

		logger.Info("saved to favorites", zap.String("job_id", jobID), zap.String("user_id", userID))
	}
}

func printCandidates(result *pipeline.SearchResult) {
	fmt.Printf("Search intent: %s\n\n", result.Intent.Summary)

	for i, candidate := range result.Candidates {
		fmt.Printf("%d. %s / %s (confidence %d%%, score %d)\n",
			i+1, candidate.Title, candidate.Company.Name, candidate.Confidence, candidate.MatchScore)
		for _, reason := range candidate.MatchReasons {
			fmt.Printf("   %s\n", reason)
		}
		if candidate.CompanyEvaluation != nil {
			fmt.Printf("   company score: %d\n", candidate.CompanyEvaluation.OverallScore)
		}
	}
	fmt.Println()
}

// reportByCompany counts candidates and carries the company score per company.
func reportByCompany(candidates []*pipeline.JobCandidate) map[string]map[string]int {
	report := make(map[string]map[string]int)
	for _, candidate := range candidates {
		entry, ok := report[candidate.Company.Name]
		if !ok {
			entry = map[string]int{}
			report[candidate.Company.Name] = entry
		}
		entry["candidates"]++
		if candidate.CompanyEvaluation != nil {
			entry["company_score"] = candidate.CompanyEvaluation.OverallScore
		}
	}
	return report
}

func dumpToTmpFile(result *pipeline.SearchResult) (string, error) {
	file, err := os.CreateTemp("", app+"-results-*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return "", err
	}

	return file.Name(), nil
}
