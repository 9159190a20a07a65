package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/noah-isme/reportcard/internal/models"
	"github.com/noah-isme/reportcard/internal/service"
)

func (cli *commandLine) runSettings(ctx context.Context, args []string) error {
	sub, rest, err := cli.subcommand(args, "settings show|set")
	if err != nil {
		return err
	}
	switch sub {
	case "show":
		settings, err := cli.settings.Get(ctx)
		if err != nil {
			return err
		}
		return cli.printJSON(settings)
	case "set":
		return cli.settingsSet(ctx, rest)
	default:
		fmt.Fprintln(cli.out, "Usage: settings show|set")
		return errHelp
	}
}

func (cli *commandLine) settingsSet(ctx context.Context, args []string) error {
	fs := cli.flagSet("settings set")
	school := fs.String("school", "", "School name printed on report cards")
	classMax := fs.Int("class-max", 0, "Class score weight (10-100)")
	examMax := fs.Int("exam-max", 0, "Exam score weight (10-100); class and exam weights must sum to 100")
	classSize := fs.Int("class-size", 0, "Expected class size, 0 disables the over-capacity warning")
	level := fs.String("level", "", "CRECHE, NURSERY, KG, PRIMARY, JHS or SHS")
	schoolType := fs.String("type", "", "PUBLIC or PRIVATE")
	term := fs.String("term", "", "TERM_1, TERM_2 or TERM_3")
	year := fs.String("year", "", "Academic year as YYYY/YYYY")
	components := fs.String("components", "", "JSON file with the class assessment components")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	set := visited(fs)
	if len(set) == 0 {
		fs.Usage()
		return errHelp
	}

	var req service.UpdateSettingsRequest
	if set["school"] {
		req.SchoolName = school
	}
	if set["class-max"] {
		req.ClassScoreMax = classMax
	}
	if set["exam-max"] {
		req.ExamScoreMax = examMax
	}
	if set["class-size"] {
		req.ClassSize = classSize
	}
	if set["level"] {
		v := models.SchoolLevel(strings.ToUpper(strings.TrimSpace(*level)))
		req.Level = &v
	}
	if set["type"] {
		v := models.SchoolType(strings.ToUpper(strings.TrimSpace(*schoolType)))
		req.SchoolType = &v
	}
	if set["term"] {
		v := models.Term(strings.ToUpper(strings.TrimSpace(*term)))
		req.Term = &v
	}
	if set["year"] {
		req.AcademicYear = year
	}
	if set["components"] {
		library, err := readComponents(*components)
		if err != nil {
			return err
		}
		req.ComponentLibrary = &library
	}

	updated, err := cli.settings.Update(ctx, req)
	if err != nil {
		return err
	}
	return cli.printJSON(updated)
}

func readComponents(path string) ([]models.AssessmentComponent, error) {
	if strings.TrimSpace(path) == "" {
		return []models.AssessmentComponent{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read components file: %w", err)
	}
	var library []models.AssessmentComponent
	if err := json.Unmarshal(data, &library); err != nil {
		return nil, fmt.Errorf("parse components file: %w", err)
	}
	return library, nil
}

func (cli *commandLine) runStudent(ctx context.Context, args []string) error {
	sub, rest, err := cli.subcommand(args, "student add|update|delete|clean-pending|import")
	if err != nil {
		return err
	}
	switch sub {
	case "add":
		fs := cli.flagSet("student add")
		name := fs.String("name", "", "Student full name")
		className := fs.String("class", "", "Class name, e.g. JHS 1")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		student, err := cli.students.Add(ctx, service.AddStudentRequest{Name: *name, ClassName: *className})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "added %s (%s) id=%s\n", student.Name, student.ClassName, student.ID)
		return nil
	case "update":
		return cli.studentUpdate(ctx, rest)
	case "delete":
		fs := cli.flagSet("student delete")
		id := fs.String("id", "", "Student ID")
		if err := parseFlags(fs, rest); err != nil {
			return err
		}
		if *id == "" {
			fs.Usage()
			return errHelp
		}
		if err := cli.students.Delete(ctx, *id); err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "deleted %s\n", *id)
		return nil
	case "clean-pending":
		removed, err := cli.students.CleanPending(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "removed %d pending students\n", removed)
		return nil
	case "import":
		return cli.studentImport(ctx, rest)
	default:
		fmt.Fprintln(cli.out, "Usage: student add|update|delete|clean-pending|import")
		return errHelp
	}
}

func (cli *commandLine) studentUpdate(ctx context.Context, args []string) error {
	fs := cli.flagSet("student update")
	id := fs.String("id", "", "Student ID")
	name := fs.String("name", "", "New name")
	className := fs.String("class", "", "New class name")
	present := fs.Int("present", 0, "Days present")
	total := fs.Int("total", 0, "Total school days")
	clearAttendance := fs.Bool("clear-attendance", false, "Remove attendance")
	remark := fs.String("remark", "", "Class teacher's remark")
	conduct := fs.String("conduct", "", "Conduct")
	interest := fs.String("interest", "", "Interest")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}
	set := visited(fs)
	req := service.UpdateStudentRequest{ClearAttendance: *clearAttendance}
	if set["name"] {
		req.Name = name
	}
	if set["class"] {
		req.ClassName = className
	}
	if set["present"] {
		req.AttendancePresent = present
	}
	if set["total"] {
		req.AttendanceTotal = total
	}
	if set["remark"] {
		req.Remark = remark
	}
	if set["conduct"] {
		req.Conduct = conduct
	}
	if set["interest"] {
		req.Interest = interest
	}
	student, err := cli.students.UpdateDetails(ctx, *id, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "updated %s (%s)\n", student.Name, student.ClassName)
	return nil
}

func (cli *commandLine) studentImport(ctx context.Context, args []string) error {
	fs := cli.flagSet("student import")
	file := fs.String("file", "", "CSV file with name,className[,subject,classScore,examScore] columns")
	mode := fs.String("mode", service.ImportModeAtomic, "atomic or partialOnError")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if *file == "" {
		fs.Usage()
		return errHelp
	}
	f, err := os.Open(*file)
	if err != nil {
		return fmt.Errorf("open import file: %w", err)
	}
	defer f.Close() //nolint:errcheck

	result, err := cli.students.Import(ctx, f, service.ImportRequest{Mode: *mode})
	if result != nil {
		for _, failure := range result.Failures {
			fmt.Fprintf(cli.out, "line %d: %s\n", failure.Line, failure.Reason)
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "imported %d rows: %d created, %d updated, %d rejected\n", result.SuccessCount, result.Created, result.Updated, len(result.Failures))
	return nil
}

func (cli *commandLine) runScore(ctx context.Context, args []string) error {
	sub, rest, err := cli.subcommand(args, "score set|remove")
	if err != nil {
		return err
	}
	fs := cli.flagSet("score " + sub)
	id := fs.String("id", "", "Student ID")
	subject := fs.String("subject", "", "Subject name")
	classScore := fs.String("class", "", "Raw class score out of 100; empty clears it")
	examScore := fs.String("exam", "", "Raw exam score out of 100; empty clears it")
	components := componentFlag{}
	fs.Var(components, "component", "Component score as ID=SCORE or NAME=SCORE (repeatable)")
	if err := parseFlags(fs, rest); err != nil {
		return err
	}
	if *id == "" {
		fs.Usage()
		return errHelp
	}

	switch sub {
	case "set":
		set := visited(fs)
		req := service.SetScoreRequest{StudentID: *id, Subject: *subject, Components: components}
		if set["class"] {
			req.ClassScore = classScore
		}
		if set["exam"] {
			req.ExamScore = examScore
		}
		student, err := cli.students.SetScore(ctx, req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "recorded %s for %s\n", strings.TrimSpace(*subject), student.Name)
		return nil
	case "remove":
		student, err := cli.students.RemoveSubject(ctx, *id, *subject)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "removed %s from %s\n", strings.TrimSpace(*subject), student.Name)
		return nil
	default:
		fmt.Fprintln(cli.out, "Usage: score set|remove")
		return errHelp
	}
}

func (cli *commandLine) printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cli.out, string(data))
	return err
}
