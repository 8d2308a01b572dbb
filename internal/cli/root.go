package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kyotaro/personasim/internal/config"
	"github.com/kyotaro/personasim/internal/export"
	"github.com/kyotaro/personasim/internal/extract"
	"github.com/kyotaro/personasim/internal/llm"
	"github.com/kyotaro/personasim/internal/observability"
	"github.com/kyotaro/personasim/internal/persona"
	"github.com/kyotaro/personasim/internal/pipeline"
	"github.com/kyotaro/personasim/internal/plan"
	"github.com/kyotaro/personasim/internal/progress"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "personasim",
	Short: "Test business plans against synthetic consumer personas",
	RunE: func(cmd *cobra.Command, args []string) error {
		flagTUI = true
		return runSimulate(cmd, args)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("personasim %s\n", Version)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full simulation: personas, opinions, scores, plan revision",
	RunE:  runSimulate,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Bulk-synthesize personas across age decades and genders, no opinions",
	RunE:  runSweep,
}

var (
	flagService         string
	flagTitle           string
	flagGender          string
	flagAgeStart        int
	flagAgeEnd          int
	flagCount           int
	flagBackend         string
	flagLocal           bool
	flagModel           string
	flagOutput          string
	flagPolicy          string
	flagValidateFilters bool
	flagChangeLog       bool
	flagVerbose         bool
	flagTUI             bool
	flagPacing          time.Duration
)

// Sweep gets its own flag variables. pflag writes each default into the
// bound variable at registration time, so sharing variables across
// commands would let the later registration clobber the earlier defaults.
var (
	sweepAgeStart int
	sweepAgeEnd   int
	sweepCount    int
	sweepBackend  string
	sweepLocal    bool
	sweepModel    string
	sweepOutput   string
	sweepVerbose  bool
)

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)

	runCmd.Flags().StringVarP(&flagService, "service", "i", "", "Service description file (.json for structured, anything else as free text)")
	runCmd.Flags().StringVar(&flagTitle, "title", "", "Service title (overrides the title from the description file)")
	runCmd.Flags().StringVarP(&flagGender, "gender", "g", "either", "Persona gender: male, female, other, either")
	runCmd.Flags().IntVar(&flagAgeStart, "age-start", 20, "Lower bound of the persona age range (decade: 10-100)")
	runCmd.Flags().IntVar(&flagAgeEnd, "age-end", 40, "Upper bound of the persona age range (decade: 10-100)")
	runCmd.Flags().IntVarP(&flagCount, "count", "c", 3, "Number of personas to simulate (1-10)")
	runCmd.Flags().StringVarP(&flagBackend, "backend", "b", "", "LLM backend: gemini, claude, nova, ollama (default from env)")
	runCmd.Flags().BoolVarP(&flagLocal, "local", "l", false, "Use the local Ollama backend (shorthand for --backend ollama)")
	runCmd.Flags().StringVarP(&flagModel, "model", "m", "", "Model name for the selected backend")
	runCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Export results to a CSV file")
	runCmd.Flags().StringVar(&flagPolicy, "policy", "abort", "On a persona's scoring failure: abort or skip")
	runCmd.Flags().BoolVar(&flagValidateFilters, "validate-filters", false, "Regenerate once when a persona misses the requested age or gender")
	runCmd.Flags().BoolVar(&flagChangeLog, "changelog", false, "Append a change summary to the revised plan")
	runCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging")
	runCmd.Flags().BoolVarP(&flagTUI, "tui", "t", false, "Interactive setup wizard")
	runCmd.Flags().DurationVar(&flagPacing, "pacing", 0, "Delay between personas on hosted backends (default 5s)")

	sweepCmd.Flags().IntVar(&sweepAgeStart, "age-start", 10, "First age decade to cover (10-100)")
	sweepCmd.Flags().IntVar(&sweepAgeEnd, "age-end", 100, "Last age decade to cover (10-100)")
	sweepCmd.Flags().IntVarP(&sweepCount, "count", "c", 1, "Personas per decade and gender cell (1-100)")
	sweepCmd.Flags().StringVarP(&sweepBackend, "backend", "b", "", "LLM backend: gemini, claude, nova, ollama (default from env)")
	sweepCmd.Flags().BoolVarP(&sweepLocal, "local", "l", false, "Use the local Ollama backend")
	sweepCmd.Flags().StringVarP(&sweepModel, "model", "m", "", "Model name for the selected backend")
	sweepCmd.Flags().StringVarP(&sweepOutput, "output", "o", "personas.csv", "CSV file for the synthesized profiles")
	sweepCmd.Flags().BoolVarP(&sweepVerbose, "verbose", "v", false, "Enable detailed logging")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadConfig builds the backend config from env plus flag overrides.
func loadConfig(backend, model string, local bool) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if local {
		cfg.Backend = config.BackendOllama
	}
	if backend != "" {
		if local && backend != config.BackendOllama {
			return nil, fmt.Errorf("--local and --backend %s are mutually exclusive", backend)
		}
		cfg.Backend = backend
	}
	if model != "" {
		switch cfg.Backend {
		case config.BackendGemini:
			cfg.GeminiModel = model
		case config.BackendClaude:
			cfg.ClaudeModel = model
		case config.BackendNova:
			cfg.NovaModel = model
		case config.BackendOllama:
			cfg.OllamaModel = model
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateAgeRange(ageStart, ageEnd int) error {
	if ageStart < 10 || ageStart > 100 || ageStart%10 != 0 {
		return fmt.Errorf("invalid age-start %d: must be a decade between 10 and 100", ageStart)
	}
	if ageEnd < 10 || ageEnd > 100 || ageEnd%10 != 0 {
		return fmt.Errorf("invalid age-end %d: must be a decade between 10 and 100", ageEnd)
	}
	if ageStart > ageEnd {
		return fmt.Errorf("age-start %d must not exceed age-end %d", ageStart, ageEnd)
	}
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	// Run interactive setup if requested
	if flagTUI {
		if err := runInteractiveSetup(); err != nil {
			return err
		}
	}

	if flagService == "" {
		return fmt.Errorf("--service (-i) is required")
	}

	gender, err := persona.ParseGender(flagGender)
	if err != nil {
		return fmt.Errorf("invalid gender %q: must be one of %s", flagGender, strings.Join(persona.GenderNames(), ", "))
	}

	if err := validateAgeRange(flagAgeStart, flagAgeEnd); err != nil {
		return err
	}

	if flagCount < 1 || flagCount > 10 {
		return fmt.Errorf("invalid count %d: must be between 1 and 10", flagCount)
	}

	policy, err := pipeline.ParsePolicy(flagPolicy)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flagBackend, flagModel, flagLocal)
	if err != nil {
		return err
	}

	svc, err := plan.Load(flagService)
	if err != nil {
		return err
	}
	if flagTitle != "" {
		svc.Title = flagTitle
	}

	logger := observability.InitLogger(flagVerbose)
	ctx := cmd.Context()

	tp, err := observability.InitTracer(ctx, "personasim", Version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
	} else if tp != nil {
		defer tp.Shutdown(ctx)
	}

	client, err := llm.New(ctx, cfg)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Client:          client,
		Service:         svc,
		Gender:          gender,
		AgeStart:        flagAgeStart,
		AgeEnd:          flagAgeEnd,
		Count:           flagCount,
		Hosted:          cfg.Hosted(),
		PacingDelay:     flagPacing,
		Policy:          policy,
		ValidateFilters: flagValidateFilters,
		AppendChangeLog: flagChangeLog,
		Logger:          logger,
	}

	// Wire up progress bar when not in verbose mode
	var renderer *progress.BarRenderer
	if !flagVerbose {
		renderer = progress.NewBarRenderer(os.Stdout)
		opts.OnProgress = renderer.Handle
	}

	result, runErr := pipeline.Run(ctx, opts)
	if renderer != nil {
		renderer.Finish()
	}

	if flagOutput != "" && len(result.Entries) > 0 {
		if err := export.ResultsToFile(flagOutput, result.Entries); err != nil {
			if runErr != nil {
				return fmt.Errorf("%w (export also failed: %v)", runErr, err)
			}
			return err
		}
		fmt.Printf("Results exported to %s\n", flagOutput)
	}
	if runErr != nil {
		return runErr
	}

	printResult(os.Stdout, result, flagVerbose)
	return nil
}

func printResult(w io.Writer, r *pipeline.Result, verbose bool) {
	fmt.Fprintln(w, "\nDesire levels:")
	for _, p := range r.Series() {
		fmt.Fprintf(w, "  %-20s %s %d\n", p.Name, strings.Repeat("#", p.Level), p.Level)
	}

	if verbose {
		labels := persona.FieldLabels()
		for _, e := range r.Entries {
			fmt.Fprintf(w, "\n--- %s (%d, %s) ---\n", e.Profile.Name, e.Profile.Age, e.Profile.Gender)
			for i, v := range e.Profile.FieldValues() {
				fmt.Fprintf(w, "%s: %s\n", labels[i], v)
			}
			fmt.Fprintln(w, e.OpinionText)
			fmt.Fprintf(w, "Desire level: %d  Reason: %s\n", e.Opinion.DesireLevel, e.Opinion.Reason)
		}
	}

	fmt.Fprintln(w, "\nRevised plan:")
	fmt.Fprintln(w, r.RevisedPlan)
}

func runSweep(cmd *cobra.Command, args []string) error {
	if err := validateAgeRange(sweepAgeStart, sweepAgeEnd); err != nil {
		return err
	}
	if sweepCount < 1 || sweepCount > 100 {
		return fmt.Errorf("invalid count %d: must be between 1 and 100", sweepCount)
	}

	cfg, err := loadConfig(sweepBackend, sweepModel, sweepLocal)
	if err != nil {
		return err
	}

	logger := observability.InitLogger(sweepVerbose)
	ctx := cmd.Context()

	client, err := llm.New(ctx, cfg)
	if err != nil {
		return err
	}

	synthesizer := persona.NewSynthesizer(client, logger)
	genders := []persona.GenderFilter{persona.GenderMale, persona.GenderFemale}

	var profiles []persona.Profile
	for decade := sweepAgeStart; decade <= sweepAgeEnd; decade += 10 {
		for _, g := range genders {
			for i := 0; i < sweepCount; i++ {
				if len(profiles) > 0 && cfg.Hosted() {
					if err := extract.Wait(ctx, 5*time.Second); err != nil {
						return err
					}
				}
				outcome := synthesizer.Synthesize(ctx, g, decade, decade)
				if !outcome.Ok() {
					logger.Warn("synthesis exhausted, skipping cell",
						"decade", decade, "gender", string(g))
					continue
				}
				profiles = append(profiles, *outcome.Value)
				fmt.Printf("[%d/%s] %s (%d)\n", decade, g, outcome.Value.Name, outcome.Value.Age)
			}
		}
	}

	if len(profiles) == 0 {
		return fmt.Errorf("no personas synthesized")
	}

	if err := export.ProfilesToFile(sweepOutput, profiles); err != nil {
		return err
	}
	fmt.Printf("%d profiles exported to %s\n", len(profiles), sweepOutput)
	return nil
}
