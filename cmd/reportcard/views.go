package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/noah-isme/reportcard/internal/grading"
	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
)

func (cli *commandLine) classFlag(name string, args []string) (string, error) {
	fs := cli.flagSet(name)
	className := fs.String("class", "", "Restrict to one class; positions are ranked within it")
	if err := parseFlags(fs, args); err != nil {
		return "", err
	}
	return *className, nil
}

func (cli *commandLine) runList(ctx context.Context, args []string) error {
	className, err := cli.classFlag("list", args)
	if err != nil {
		return err
	}
	students, err := cli.reports.Roster(ctx, className)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POS\tNAME\tCLASS\tSUBJECTS\tTOTAL\tAVERAGE\tSTATUS\tID")
	for _, s := range students {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%d\t%s\t%s\n",
			s.ClassPosition, s.Name, s.ClassName, len(s.Subjects),
			strconv.FormatFloat(s.TotalScore, 'f', -1, 64), s.AverageScore, status(s), s.ID)
	}
	return w.Flush()
}

func (cli *commandLine) runStats(ctx context.Context, args []string) error {
	className, err := cli.classFlag("stats", args)
	if err != nil {
		return err
	}
	stats, err := cli.reports.Statistics(ctx, className)
	if err != nil {
		return err
	}
	cli.printStats(stats)
	return nil
}

func (cli *commandLine) printStats(stats models.ClassStatistics) {
	fmt.Fprintf(cli.out, "students: %d\npending: %d\nfailing: %d\npass rate: %d%%\nclass average: %d\n",
		stats.Total, stats.Pending, stats.Failing, stats.PassRate, stats.ClassAverage)
	if stats.IsOverCapacity {
		fmt.Fprintln(cli.out, "warning: roster exceeds the configured class size")
	}
}

func (cli *commandLine) runDashboard(ctx context.Context, args []string) error {
	className, err := cli.classFlag("dashboard", args)
	if err != nil {
		return err
	}
	dashboard, err := cli.reports.Dashboard(ctx, className)
	if err != nil {
		return err
	}
	cli.printStats(dashboard.Statistics)

	fmt.Fprintln(cli.out, "\ntop students:")
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	for _, s := range dashboard.TopStudents {
		fmt.Fprintf(w, "  %d\t%s\t%s\t%d\n", s.ClassPosition, s.Name, s.ClassName, s.AverageScore)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(cli.out, "\nsubjects:")
	w = tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  SUBJECT\tENTRIES\tAVERAGE\tHIGHEST\tLOWEST\tPASSED")
	for _, s := range dashboard.Subjects {
		fmt.Fprintf(w, "  %s\t%d\t%.2f\t%g\t%g\t%d\n", s.Name, s.Entries, s.Average, s.Highest, s.Lowest, s.Passed)
	}
	return w.Flush()
}

func (cli *commandLine) runCard(ctx context.Context, args []string) error {
	fs := cli.flagSet("card")
	id := fs.String("id", "", "Student ID")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}
	card, err := cli.reports.ReportCard(ctx, *id)
	if err != nil {
		return err
	}
	s := card.Student
	fmt.Fprintf(cli.out, "%s\n%s, %s\n", s.Name, s.ClassName, card.Settings.Term.Label())
	if !s.Pending {
		fmt.Fprintf(cli.out, "position %d of %d\n", s.ClassPosition, card.RosterSize)
	}
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SUBJECT\tCLASS (%d)\tEXAM (%d)\tTOTAL\tGRADE\tREMARK\n", card.Settings.ClassScoreMax, card.Settings.ExamScoreMax)
	for _, r := range s.Results {
		fmt.Fprintf(w, "%s\t%g\t%g\t%g\t%d\t%s\n", r.Name, r.ClassScore, r.ExamScore, r.Total, r.Grade, r.Remark)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "average %d: %s\n", s.AverageScore, status(s))
	return nil
}

func (cli *commandLine) runExport(ctx context.Context, args []string) error {
	sub, rest, err := cli.subcommand(args, "export csv|pdf|results|delete|cleanup")
	if err != nil {
		return err
	}
	switch sub {
	case "csv", "pdf", "results":
		className, err := cli.classFlag("export "+sub, rest)
		if err != nil {
			return err
		}
		var path string
		switch sub {
		case "csv":
			path, err = cli.exports.ExportCSV(ctx, className)
		case "pdf":
			path, err = cli.exports.ExportReportCards(ctx, className)
		default:
			path, err = cli.exports.ExportResultsPDF(ctx, className)
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cli.out, path)
		return nil
	case "delete":
		fs := cli.flagSet("export delete")
		name := fs.String("name", "", "Export file name inside the exports directory")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *name == "" {
			fs.Usage()
			return errHelp
		}
		if err := cli.exports.Remove(*name); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "deleted %s\n", *name)
		return nil
	case "cleanup":
		deleted, err := cli.exports.Cleanup()
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "removed %d old exports\n", len(deleted))
		return nil
	default:
		fmt.Fprintln(cli.out, "Usage: export csv|pdf|results|delete|cleanup")
		return errHelp
	}
}

func (cli *commandLine) runPIN(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] != "set" {
		fmt.Fprintln(cli.out, "Usage: pin set")
		return errHelp
	}
	if !cli.cfg.Lock.RequirePIN {
		enabled, err := cli.lock.Enabled(ctx)
		if err != nil {
			return err
		}
		if enabled {
			current, err := cli.promptPIN("Current PIN:")
			if err != nil {
				return err
			}
			if err := cli.lock.Verify(ctx, current); err != nil {
				return err
			}
		}
	}
	pin, err := cli.promptPIN("New PIN (4-6 digits):")
	if err != nil {
		return err
	}
	confirm, err := cli.promptPIN("Repeat PIN:")
	if err != nil {
		return err
	}
	if pin != confirm {
		return appErrors.WithField(appErrors.ErrValidation, "pin", "PINs do not match")
	}
	if err := cli.lock.SetPIN(ctx, pin); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "PIN saved")
	return nil
}

func status(s models.ProcessedStudent) string {
	if s.Pending {
		return "Pending"
	}
	return grading.PassLabel(s.AverageScore)
}
