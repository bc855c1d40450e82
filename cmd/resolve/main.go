// Command resolve identifies one medication from OCR text and prints the
// resolution as JSON. Text is read from --file or stdin.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zatekoja/medscan/backend/internal/adapters/providers/registry"
	"github.com/zatekoja/medscan/backend/internal/adapters/providers/websearch"
	"github.com/zatekoja/medscan/backend/internal/api/handlers"
	"github.com/zatekoja/medscan/backend/internal/application/services"
	"github.com/zatekoja/medscan/backend/internal/domain/entities"
	"github.com/zatekoja/medscan/backend/internal/domain/providers"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/medscan/backend/internal/infrastructure/observability"
	"github.com/zatekoja/medscan/backend/pkg/config"
	apperrors "github.com/zatekoja/medscan/backend/pkg/errors"
	"github.com/zatekoja/medscan/backend/pkg/secrets"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitRetakePhoto = 2
)

// exitError carries a process exit code out of a command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if args == nil {
		// cobra falls back to os.Args on nil
		args = []string{}
	}
	cmd := newRootCmd(stdin, stdout, stderr)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(stderr, err)
		var exit *exitError
		if errors.As(err, &exit) {
			return exit.code
		}
		return exitFailure
	}
	return exitOK
}

// shared holds what every subcommand needs once configuration is loaded.
type shared struct {
	service *services.MedicationResolutionService
	pretty  bool
	stdout  io.Writer
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	env := &shared{stdout: stdout}
	var (
		file        string
		lang        string
		others      string
		patientFile string
		noRegistry  bool
		preflight   bool
	)

	root := &cobra.Command{
		Use:           "resolve",
		Short:         "Identify a medication from OCR text",
		Long:          "Reads OCR text from --file or stdin, gathers registry and web evidence, and prints the structured record as JSON.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := secrets.NewVaultLoader(secrets.LoadVaultConfigFromEnv()).Apply(cmd.Context()); err != nil {
				fmt.Fprintf(stderr, "warning: vault secrets not loaded: %v\n", err)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			observability.InitLoggerWithWriter(cfg.OTEL.ServiceName+"-resolve", cfg.Env, stderr)
			env.service = newService(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			language, err := entities.ParseLanguage(lang)
			if err != nil {
				return err
			}
			ocrText, err := readInput(file, stdin)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			patient, err := readPatient(patientFile)
			if err != nil {
				return fmt.Errorf("failed to read patient context: %w", err)
			}

			result, err := env.service.Resolve(cmd.Context(), services.ResolveRequest{
				OCRText:          ocrText,
				Language:         language,
				Patient:          patient,
				OtherMedications: splitList(others),
				DisableRegistry:  noRegistry,
			})
			if err != nil {
				if apperrors.IsType(err, apperrors.ErrorTypeInput) {
					return &exitError{code: exitRetakePhoto, err: fmt.Errorf("retake photo: %w", err)}
				}
				log.Error().Err(err).Msg("resolution failed")
				return err
			}

			out := handlers.ResolveResponse{
				ScanID:       result.ID,
				Record:       result.Record,
				Interactions: result.Interactions,
			}
			if preflight {
				out.Preflight = result.Preflight
			}
			return env.write(out)
		},
	}

	root.PersistentFlags().BoolVar(&env.pretty, "pretty", false, "indent the JSON output")
	flags := root.Flags()
	flags.StringVarP(&file, "file", "f", "", "read OCR text from this file instead of stdin")
	flags.StringVarP(&lang, "lang", "l", "en", "output language (en or ar)")
	flags.StringVar(&others, "others", "", "comma-separated medications to check for interactions")
	flags.StringVar(&patientFile, "patient", "", "JSON file with patient context")
	flags.BoolVar(&noRegistry, "no-registry", false, "skip the drug registry lookup")
	flags.BoolVar(&preflight, "preflight", false, "include gathered evidence in the output")

	root.AddCommand(newInteractionsCmd(env))
	return root
}

func newInteractionsCmd(env *shared) *cobra.Command {
	var (
		target      entities.InteractionTarget
		ingredients string
		others      string
		lang        string
		patientFile string
	)

	cmd := &cobra.Command{
		Use:   "interactions",
		Short: "Check one medication against a list of others",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(target.DrugName) == "" && strings.TrimSpace(target.GenericName) == "" {
				return errors.New("--drug or --generic is required")
			}
			language, err := entities.ParseLanguage(lang)
			if err != nil {
				return err
			}
			patient, err := readPatient(patientFile)
			if err != nil {
				return fmt.Errorf("failed to read patient context: %w", err)
			}
			target.ActiveIngredients = splitList(ingredients)

			result := env.service.CheckInteractions(cmd.Context(), services.InteractionInput{
				Target:           target,
				Patient:          patient,
				OtherMedications: splitList(others),
				Language:         language,
			})
			return env.write(result)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&target.DrugName, "drug", "", "brand name of the medication")
	flags.StringVar(&target.GenericName, "generic", "", "generic name of the medication")
	flags.StringVar(&target.Strength, "strength", "", "strength, e.g. 200 mg")
	flags.StringVar(&ingredients, "ingredients", "", "comma-separated active ingredients")
	flags.StringVar(&others, "others", "", "comma-separated medications to check against")
	flags.StringVarP(&lang, "lang", "l", "en", "output language (en or ar)")
	flags.StringVar(&patientFile, "patient", "", "JSON file with patient context")
	return cmd
}

// newService builds the resolution pipeline without storage.
func newService(cfg *config.Config) *services.MedicationResolutionService {
	var registryProvider providers.DrugRegistryProvider
	if cfg.OpenFDA.Enabled {
		registryProvider = registry.NewOpenFDAClient(cfg.OpenFDA)
	}
	generator := openai.NewClient(cfg.OpenAI)

	return services.NewMedicationResolutionService(
		services.NewMedicationPreflightService(websearch.NewSerperClient(cfg.Search), registryProvider),
		services.NewMedicationAnalysisService(generator),
		services.NewInteractionGuardService(generator),
		nil,
		providers.SearchOptions{Num: cfg.Search.ResultCount, Region: cfg.Search.Region, Lang: cfg.Search.Language},
	)
}

func (s *shared) write(v interface{}) error {
	enc := json.NewEncoder(s.stdout)
	if s.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func readInput(file string, stdin io.Reader) (string, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
		return string(data), err
	}
	data, err := os.ReadFile(file)
	return string(data), err
}

// readPatient returns nil when no path is given.
func readPatient(path string) (*entities.PatientContext, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var patient entities.PatientContext
	if err := json.Unmarshal(data, &patient); err != nil {
		return nil, err
	}
	if patient.IsEmpty() {
		return nil, errors.New("patient context has no usable fields")
	}
	return &patient, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
