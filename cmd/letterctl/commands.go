package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"petition-workers/internal/common/config"
	"petition-workers/internal/common/genai"
	"petition-workers/internal/common/logger"
	"petition-workers/internal/letter/assembler"
	"petition-workers/internal/letter/compliance"
	"petition-workers/internal/models"
)

const (
	applicationSuffix = ".application.json"
	sectionsSuffix    = ".sections.json"
	reportSuffix      = ".report.json"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "letterctl",
		Short:         "Check and assemble petition letters from local JSON files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: configs/config.yaml lookup)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for pipeline diagnostics on stderr")

	root.AddCommand(newCheckCmd(opts), newAssembleCmd(opts), newBatchCmd(opts))
	return root
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var appPath, sectionsPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run the compliance rules over generated sections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.load(false)
			if err != nil {
				return err
			}
			app, err := readApplication(appPath)
			if err != nil {
				return err
			}
			sections, err := readSections(sectionsPath)
			if err != nil {
				return err
			}
			result := env.assembler.Check(app, sections)
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return usageError(err)
			}
			if !result.Passed {
				return &exitError{code: ExitFail}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&appPath, "application", "", "application JSON file")
	cmd.Flags().StringVar(&sectionsPath, "sections", "", "sections JSON file")
	_ = cmd.MarkFlagRequired("application")
	_ = cmd.MarkFlagRequired("sections")
	return cmd
}

func newAssembleCmd(opts *rootOptions) *cobra.Command {
	var appPath, sectionsPath string
	var documentOnly bool
	cmd := &cobra.Command{
		Use:   "assemble",
		Short: "Assemble the final letter, generating sections when none are given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := opts.load(sectionsPath == "")
			if err != nil {
				return err
			}
			app, err := readApplication(appPath)
			if err != nil {
				return err
			}
			var sections models.Sections
			if sectionsPath != "" {
				if sections, err = readSections(sectionsPath); err != nil {
					return err
				}
			}

			res, err := env.assembler.Assemble(cmd.Context(), app, sections)
			if err != nil {
				return usageError(err)
			}
			if documentOnly && res.Final {
				_, err = io.WriteString(cmd.OutOrStdout(), res.Document)
			} else {
				err = writeJSON(cmd.OutOrStdout(), res)
			}
			if err != nil {
				return usageError(err)
			}
			if !res.Final {
				return &exitError{code: ExitFail}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&appPath, "application", "", "application JSON file")
	cmd.Flags().StringVar(&sectionsPath, "sections", "", "sections JSON file; omitted means generate")
	cmd.Flags().BoolVar(&documentOnly, "document", false, "print only the rendered letter when it is final")
	_ = cmd.MarkFlagRequired("application")
	return cmd
}

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var outDir string
	var concurrency int
	cmd := &cobra.Command{
		Use:   "batch <dir>",
		Short: "Assemble every *" + applicationSuffix + " in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return usageError(fmt.Errorf("--concurrency must be at least 1"))
			}
			env, err := opts.load(true)
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = args[0]
			}
			summary, err := runBatch(cmd.Context(), env.assembler, args[0], outDir, concurrency)
			for _, line := range summary.lines() {
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			if err != nil {
				return usageError(err)
			}
			if summary.failed > 0 {
				return &exitError{code: ExitFail}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory for report files (default: the input directory)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "maximum letters assembled at once")
	return cmd
}

type environment struct {
	config    *config.Config
	assembler *assembler.Assembler
}

// load reads the configuration and builds the assembler. The generator is
// attached only when wanted and configured.
func (o *rootOptions) load(wantGenerator bool) (*environment, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFromFile(o.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, usageError(err)
	}

	log := logger.NewStructured(o.logLevel, "console")
	catalog, err := compliance.DefaultCatalog()
	if err != nil {
		return nil, usageError(err)
	}

	asmOpts := []assembler.Option{assembler.WithLogger(log)}
	if wantGenerator {
		if completer, err := genai.NewCompleter(cfg.APIs.GenAI); err == nil {
			gen := genai.NewSectionGenerator(completer, log).WithTimeout(config.GetDuration(cfg.APIs.GenAI.Timeout))
			asmOpts = append(asmOpts, assembler.WithGenerator(gen))
		} else {
			log.Warn("section generation unavailable", map[string]interface{}{"error": err.Error()})
		}
	}
	return &environment{
		config:    cfg,
		assembler: assembler.New(assembler.SettingsFromConfig(cfg.Letter), catalog, asmOpts...),
	}, nil
}

func readApplication(path string) (*models.Application, error) {
	var app models.Application
	if err := readJSON(path, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

func readSections(path string) (models.Sections, error) {
	var raw map[string]string
	if err := readJSON(path, &raw); err != nil {
		return nil, err
	}
	sections, err := models.ParseSections(raw)
	if err != nil {
		return nil, usageError(fmt.Errorf("%s: %w", path, err))
	}
	if sections == nil {
		sections = models.Sections{}
	}
	return sections, nil
}

func readJSON(path string, dst interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return usageError(err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return usageError(fmt.Errorf("%s: %w", path, err))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type batchSummary struct {
	mu      sync.Mutex
	results map[string]string
	failed  int
}

func (s *batchSummary) record(name, status string, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[name] = status
	if !final {
		s.failed++
	}
}

func (s *batchSummary) lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.results))
	for n := range s.results {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, n+": "+s.results[n])
	}
	return out
}

// runBatch assembles each application independently. A letter that is not
// final counts as failed; only I/O problems abort the batch.
func runBatch(ctx context.Context, a *assembler.Assembler, dir, outDir string, concurrency int) (*batchSummary, error) {
	summary := &batchSummary{results: map[string]string{}}
	inputs, err := filepath.Glob(filepath.Join(dir, "*"+applicationSuffix))
	if err != nil {
		return summary, err
	}
	if len(inputs) == 0 {
		return summary, fmt.Errorf("no *%s files in %s", applicationSuffix, dir)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return summary, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, input := range inputs {
		input := input
		g.Go(func() error {
			base := strings.TrimSuffix(filepath.Base(input), applicationSuffix)
			app, err := readApplication(input)
			if err != nil {
				return err
			}
			var sections models.Sections
			if sibling := filepath.Join(dir, base+sectionsSuffix); fileExists(sibling) {
				if sections, err = readSections(sibling); err != nil {
					return err
				}
			}

			res, err := a.Assemble(gctx, app, sections)
			if err != nil {
				summary.record(base, "error: "+err.Error(), false)
				return nil
			}
			f, err := os.Create(filepath.Join(outDir, base+reportSuffix))
			if err != nil {
				return err
			}
			defer f.Close()
			if err := writeJSON(f, res); err != nil {
				return err
			}

			status := "final"
			if !res.Final {
				status = "blocked"
				if res.Blocking != nil {
					status += " (" + string(res.Blocking.Code) + ")"
				}
			}
			summary.record(base, status, res.Final)
			return nil
		})
	}
	return summary, g.Wait()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
