package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/feasibility-cli/internal/config"
	"github.com/sells-group/feasibility-cli/internal/cost"
	"github.com/sells-group/feasibility-cli/internal/engine"
	"github.com/sells-group/feasibility-cli/internal/judge"
	"github.com/sells-group/feasibility-cli/internal/mapper"
	"github.com/sells-group/feasibility-cli/internal/metrics"
	"github.com/sells-group/feasibility-cli/internal/model"
	"github.com/sells-group/feasibility-cli/internal/registry"
	"github.com/sells-group/feasibility-cli/internal/store"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score sites against a protocol and autofill its questionnaire",
	Long: "Evaluates every requirement in --requirements against each site (stored sites via --site, " +
		"profile files via --profile), explains the gaps, and answers the --questions questionnaire. " +
		"Several sites are evaluated concurrently and ranked best first.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		noJudge, _ := cmd.Flags().GetBool("no-judge")
		if noJudge {
			cfg.Judge.Enabled = false
		}
		if err := cfg.Validate(config.ModeEvaluate); err != nil {
			return err
		}

		opts, err := readEvaluateOptions(cmd)
		if err != nil {
			return err
		}

		var st store.Store
		if len(opts.siteIDs) > 0 || !opts.noSave {
			st, err = openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		inputs, err := buildInputs(ctx, st, opts)
		if err != nil {
			return err
		}

		m := metrics.New()
		eng, err := buildEngine(ctx, st, m, opts.noSave)
		if err != nil {
			return err
		}

		start := time.Now()
		var evals []*model.Evaluation
		var runErr error
		if len(inputs) == 1 {
			var ev *model.Evaluation
			ev, runErr = eng.Run(ctx, inputs[0])
			if ev != nil {
				evals = append(evals, ev)
			}
		} else {
			evals, runErr = eng.RunBatch(ctx, inputs)
		}

		if opts.asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(evals); err != nil {
				return eris.Wrap(err, "evaluate: encode")
			}
		} else {
			for _, ev := range evals {
				formatEvaluation(os.Stdout, ev)
			}
		}

		zap.L().Info("evaluate: complete",
			zap.Int("sites", len(inputs)),
			zap.Int("evaluated", len(evals)),
			zap.Duration("elapsed", time.Since(start)),
		)

		if opts.metricsFile != "" {
			if err := m.WriteFile(opts.metricsFile); err != nil {
				return err
			}
		}
		return runErr
	},
}

func init() {
	f := evaluateCmd.Flags()
	f.StringP("requirements", "r", "", "protocol requirements file (YAML or JSON)")
	f.StringP("questions", "q", "", "questionnaire file (YAML or JSON)")
	f.StringSlice("site", nil, "stored site ID to evaluate (repeatable)")
	f.StringSlice("profile", nil, "site profile file to evaluate (repeatable)")
	f.String("protocol", "", "protocol ID (defaults to the requirements file's protocol_id)")
	f.StringToString("override", nil, "what-if fact override key=value (repeatable)")
	f.Bool("no-judge", false, "disable the AI tier; unanswered questions stay unresolved")
	f.Bool("no-save", false, "do not persist evaluations")
	f.Bool("json", false, "print evaluations as JSON")
	f.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	_ = evaluateCmd.MarkFlagRequired("requirements")

	rootCmd.AddCommand(evaluateCmd)
}

type evaluateOptions struct {
	requirementsPath string
	questionsPath    string
	siteIDs          []string
	profilePaths     []string
	protocolID       string
	overrides        map[string]string
	noSave           bool
	asJSON           bool
	metricsFile      string
}

func readEvaluateOptions(cmd *cobra.Command) (evaluateOptions, error) {
	f := cmd.Flags()
	var o evaluateOptions
	o.requirementsPath, _ = f.GetString("requirements")
	o.questionsPath, _ = f.GetString("questions")
	o.siteIDs, _ = f.GetStringSlice("site")
	o.profilePaths, _ = f.GetStringSlice("profile")
	o.protocolID, _ = f.GetString("protocol")
	o.overrides, _ = f.GetStringToString("override")
	o.noSave, _ = f.GetBool("no-save")
	o.asJSON, _ = f.GetBool("json")
	o.metricsFile, _ = f.GetString("metrics-file")

	if len(o.siteIDs) == 0 && len(o.profilePaths) == 0 {
		return o, eris.New("evaluate: at least one --site or --profile is required")
	}
	return o, nil
}

// buildInputs loads the protocol once and pairs it with every requested
// site snapshot.
func buildInputs(ctx context.Context, st store.Store, o evaluateOptions) ([]engine.Input, error) {
	set, err := registry.LoadRequirements(o.requirementsPath)
	if err != nil {
		return nil, err
	}
	protocolID := o.protocolID
	if protocolID == "" {
		protocolID = set.ProtocolID
	}

	var questions []model.Question
	if o.questionsPath != "" {
		questions, err = registry.LoadQuestions(o.questionsPath)
		if err != nil {
			return nil, err
		}
	}

	var sites []model.SiteProfile
	for _, id := range o.siteIDs {
		site, err := st.GetSite(ctx, strings.TrimSpace(id))
		if err != nil {
			return nil, eris.Wrap(err, "evaluate: load site")
		}
		sites = append(sites, *site)
	}
	for _, path := range o.profilePaths {
		p, err := registry.LoadProfile(path)
		if err != nil {
			return nil, err
		}
		sites = append(sites, *p)
	}

	inputs := make([]engine.Input, len(sites))
	for i, site := range sites {
		inputs[i] = engine.Input{
			Site:         site,
			ProtocolID:   protocolID,
			Requirements: set.Requirements,
			Questions:    questions,
			Overrides:    o.overrides,
		}
	}
	return inputs, nil
}

func buildEngine(ctx context.Context, st store.Store, m *metrics.Metrics, noSave bool) (*engine.Engine, error) {
	mapperOpts := []mapper.Option{
		mapper.WithTimeout(time.Duration(cfg.Mapper.TimeoutSecs) * time.Second),
		mapper.WithConcurrency(cfg.Mapper.Concurrency),
	}
	if cfg.Mapper.SynonymsPath != "" {
		syn, err := mapper.LoadSynonyms(cfg.Mapper.SynonymsPath)
		if err != nil {
			return nil, err
		}
		mapperOpts = append(mapperOpts, mapper.WithSynonyms(syn))
	}

	opts := []engine.Option{
		engine.WithMapperOptions(mapperOpts...),
		engine.WithMetrics(m),
		engine.WithBatchConcurrency(cfg.Batch.MaxConcurrentSites),
	}
	if cfg.Judge.Enabled {
		j, err := judge.New(ctx, judgeConfig(cfg))
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithJudge(j))
	}
	if st != nil && !noSave {
		opts = append(opts, engine.WithStore(st))
	}
	return engine.New(opts...), nil
}

// judgeConfig selects the provider section named by judge.provider.
func judgeConfig(c *config.Config) judge.Config {
	jc := judge.Config{
		Provider:         c.Judge.Provider,
		APIKey:           c.ProviderKey(),
		MaxTokens:        c.Judge.MaxTokens,
		RatePerSecond:    c.Judge.RatePerSecond,
		Burst:            c.Judge.Burst,
		BreakerThreshold: c.Judge.BreakerThreshold,
		BreakerCooldown:  time.Duration(c.Judge.BreakerCooldownSecs) * time.Second,
		MemoTTL:          time.Duration(c.Judge.MemoTTLMins) * time.Minute,
		Pricing: cost.Rates{
			Anthropic: pricingTable(c.Pricing.Anthropic),
			OpenAI:    pricingTable(c.Pricing.OpenAI),
			Gemini:    pricingTable(c.Pricing.Gemini),
		},
	}
	switch strings.ToLower(c.Judge.Provider) {
	case "openai":
		jc.Model, jc.BaseURL = c.OpenAI.Model, c.OpenAI.BaseURL
	case "gemini", "google":
		jc.Model, jc.BaseURL = c.Gemini.Model, c.Gemini.BaseURL
	default:
		jc.Model, jc.BaseURL = c.Anthropic.Model, c.Anthropic.BaseURL
		jc.CacheTTL = c.Anthropic.CacheTTL
	}
	return jc
}

func pricingTable(in map[string]config.ModelPricing) map[string]cost.ModelRate {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]cost.ModelRate, len(in))
	for name, p := range in {
		out[name] = cost.ModelRate{
			Input:         p.Input,
			Output:        p.Output,
			CacheWriteMul: p.CacheWriteMul,
			CacheReadMul:  p.CacheReadMul,
		}
	}
	return out
}

// formatEvaluation writes a human-readable report of one evaluation to out.
func formatEvaluation(out io.Writer, ev *model.Evaluation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	status := "qualified"
	if ev.Score.Disqualified {
		status = "DISQUALIFIED (" + strings.Join(ev.Score.DisqualifyingRequirementIDs, ", ") + ")"
	}
	_, _ = fmt.Fprintf(w, "Evaluation:\t%s\n", ev.ID)
	_, _ = fmt.Fprintf(w, "Site:\t%s\n", ev.SiteID)
	_, _ = fmt.Fprintf(w, "Protocol:\t%s\n", ev.ProtocolID)
	if ev.WhatIf {
		_, _ = fmt.Fprintf(w, "What-if:\t%d override(s)\n", len(ev.Overrides))
	}
	if ev.Score.NoRequirements {
		_, _ = fmt.Fprintf(w, "Score:\t%d/100 (no requirements)\n", ev.Score.Overall)
	} else {
		_, _ = fmt.Fprintf(w, "Score:\t%d/100\n", ev.Score.Overall)
	}
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", status)
	_, _ = fmt.Fprintf(w, "Coverage:\t%d%%\n", ev.Score.CoveragePct)
	_ = w.Flush()

	if len(ev.Score.ByCategory) > 0 {
		cats := make([]string, 0, len(ev.Score.ByCategory))
		for c := range ev.Score.ByCategory {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		_, _ = fmt.Fprintln(out, "\nCategories:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range cats {
			cs := ev.Score.ByCategory[c]
			_, _ = fmt.Fprintf(w, "  %s\t%.1f/%.1f\n", c, cs.Earned, cs.Possible)
		}
		_ = w.Flush()
	}

	if len(ev.Gaps) > 0 {
		_, _ = fmt.Fprintln(out, "\nGaps:")
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, g := range ev.Gaps {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", g.RequirementID, g.Criticality, g.Outcome, g.Explanation)
		}
		_ = w.Flush()
	}

	if len(ev.Rejected) > 0 {
		_, _ = fmt.Fprintln(out, "\nRejected requirements:")
		for _, r := range ev.Rejected {
			_, _ = fmt.Fprintf(out, "  %s: %s\n", r.RequirementID, r.Reason)
		}
	}

	if len(ev.Answers) > 0 {
		_, _ = fmt.Fprintf(out, "\nAnswers (%d locked, %d unresolved, %d%% answered):\n",
			ev.Stats.Locked, ev.Stats.Unresolved, ev.Stats.Coverage)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, a := range ev.Answers {
			lock := ""
			if a.Locked {
				lock = "locked"
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n", a.QuestionID, a.Value, a.ConfidenceBand, a.Source, lock)
		}
		_ = w.Flush()
	}

	if ev.Usage.Calls > 0 {
		_, _ = fmt.Fprintf(out, "\nAI usage: %d calls, %d in / %d out tokens, $%.4f\n",
			ev.Usage.Calls, ev.Usage.InputTokens, ev.Usage.OutputTokens, ev.Usage.Cost)
	}
	_, _ = fmt.Fprintln(out)
}
