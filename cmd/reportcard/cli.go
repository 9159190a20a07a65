package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/repository"
	"github.com/noah-isme/reportcard/internal/service"
	"github.com/noah-isme/reportcard/pkg/config"
	"github.com/noah-isme/reportcard/pkg/export"
	"github.com/noah-isme/reportcard/pkg/storage"
)

var (
	readPINFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	cfg      *config.Config
	out      io.Writer
	logger   *zap.Logger
	settings *service.SettingsService
	students *service.StudentService
	reports  *service.ReportService
	exports  *service.ExportService
	lock     *service.LockService
	metrics  *service.MetricsService
}

func newCommandLine(cfg *config.Config, db *sqlx.DB, logr *zap.Logger, out io.Writer) (*commandLine, error) {
	store, err := storage.NewLocalStorage(cfg.Exports.Dir)
	if err != nil {
		return nil, err
	}

	metrics := service.NewMetricsService()
	engine := grading.NewEngine(grading.ParsePendingRule(cfg.Grading.PendingRule))
	csv := export.NewCSVExporter()

	studentRepo := repository.NewStudentRepository(db)
	settings := service.NewSettingsService(repository.NewSettingsRepository(db), studentRepo, db, logr)
	reports := service.NewReportService(studentRepo, settings, engine, metrics, logr)

	return &commandLine{
		cfg:      cfg,
		out:      out,
		logger:   logr,
		settings: settings,
		students: service.NewStudentService(studentRepo, settings, engine, csv, nil, logr),
		reports:  reports,
		exports:  service.NewExportService(reports, store, service.ExportConfig{ResultTTL: cfg.Exports.TTL}, metrics, logr, csv, export.NewPDFExporter()),
		lock: service.NewLockService(repository.NewLockRepository(db), service.LockConfig{
			MaxAttempts: cfg.Lock.MaxAttempts,
			Lockout:     cfg.Lock.Lockout,
		}, metrics, nil, logr),
		metrics: metrics,
	}, nil
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  settings show|set [flags]                 - view or change school settings")
	fmt.Fprintln(cli.out, "  student add|update|delete [flags]         - manage students")
	fmt.Fprintln(cli.out, "  student clean-pending                     - delete students with incomplete results")
	fmt.Fprintln(cli.out, "  student import -file FILE [-mode MODE]    - import name,className,subject,classScore,examScore rows")
	fmt.Fprintln(cli.out, "  score set|remove -id ID -subject NAME     - record or drop subject scores")
	fmt.Fprintln(cli.out, "  list|stats|dashboard [-class NAME]        - view processed results")
	fmt.Fprintln(cli.out, "  card -id ID                               - show one report card")
	fmt.Fprintln(cli.out, "  export csv|pdf [-class NAME]              - write results CSV or report card PDF")
	fmt.Fprintln(cli.out, "  export results [-class NAME]              - write the results table as PDF")
	fmt.Fprintln(cli.out, "  export delete -name FILE                  - delete one export file")
	fmt.Fprintln(cli.out, "  export cleanup                            - delete old export files")
	fmt.Fprintln(cli.out, "  pin set                                   - set the lock PIN (prompted)")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}
	ctx := context.Background()
	if err := cli.unlock(ctx); err != nil {
		return err
	}

	rest := args[2:]
	switch args[1] {
	case "settings":
		return cli.runSettings(ctx, rest)
	case "student":
		return cli.runStudent(ctx, rest)
	case "score":
		return cli.runScore(ctx, rest)
	case "list":
		return cli.runList(ctx, rest)
	case "stats":
		return cli.runStats(ctx, rest)
	case "dashboard":
		return cli.runDashboard(ctx, rest)
	case "card":
		return cli.runCard(ctx, rest)
	case "export":
		return cli.runExport(ctx, rest)
	case "pin":
		return cli.runPIN(ctx, rest)
	default:
		cli.printUsage()
		return errHelp
	}
}

// unlock asks for the PIN when the lock is required and one has been set.
func (cli *commandLine) unlock(ctx context.Context) error {
	if !cli.cfg.Lock.RequirePIN {
		return nil
	}
	enabled, err := cli.lock.Enabled(ctx)
	if err != nil || !enabled {
		return err
	}
	pin, err := cli.promptPIN("Enter PIN:")
	if err != nil {
		return err
	}
	return cli.lock.Verify(ctx, pin)
}

func (cli *commandLine) promptPIN(label string) (string, error) {
	fmt.Fprint(cli.out, label)
	pin, err := readPINFunc(int(os.Stdin.Fd()))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(pin)), nil
}

func (cli *commandLine) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return errHelp
		}
		return err
	}
	return nil
}

// visited reports which flags were given explicitly.
func visited(fs *flag.FlagSet) map[string]bool {
	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (cli *commandLine) subcommand(args []string, usage string) (string, []string, error) {
	if len(args) == 0 {
		fmt.Fprintln(cli.out, "Usage:", usage)
		return "", nil, errHelp
	}
	return args[0], args[1:], nil
}

// componentFlag collects repeated -component ID=SCORE values.
type componentFlag map[string]string

func (c componentFlag) String() string {
	parts := make([]string, 0, len(c))
	for k, v := range c {
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, ",")
}

func (c componentFlag) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return fmt.Errorf("component must look like ID=SCORE, got %q", raw)
	}
	c[strings.TrimSpace(key)] = value
	return nil
}
