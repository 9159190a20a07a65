package grading

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"

	"github.com/noah-isme/reportcard/internal/models"
	appErrors "github.com/noah-isme/reportcard/pkg/errors"
)

// MaxRawScore is the upper bound of the raw class/exam entry scale.
const MaxRawScore = 100

var (
	validate   *validator.Validate
	translator ut.Translator

	whitespace = regexp.MustCompile(`\s+`)

	personNameTag   = "person_name"
	personNameText  = "{0} may only contain letters, spaces, periods, hyphens and apostrophes"
	personNameRegex = regexp.MustCompile(`^[\p{L}\p{M} .'\-]+$`)

	classNameTag   = "class_name"
	classNameText  = "{0} may only contain letters, digits, spaces, periods, hyphens, apostrophes and slashes"
	classNameRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N} .'/\-]+$`)

	subjectNameTag   = "subject_name"
	subjectNameText  = "{0} may only contain letters, spaces, ampersands, apostrophes and hyphens"
	subjectNameRegex = regexp.MustCompile(`^[\p{L}\p{M} &'\-]+$`)

	academicYearTag   = "academic_year"
	academicYearText  = "{0} must look like 2024/2025 with consecutive years"
	academicYearRegex = regexp.MustCompile(`^(\d{4})/(\d{4})$`)

	scoreSplitTag  = "score_split"
	scoreSplitText = "classScoreMax and examScoreMax must add up to exactly 100"

	componentWeightsTag  = "component_weights"
	componentWeightsText = "component weights must add up to classScoreMax"

	uniqueComponentTag  = "unique_component"
	uniqueComponentText = "component names must be unique"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report JSON field names so messages line up with the input form.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerRegexTag(personNameTag, personNameText, personNameRegex)
	registerRegexTag(classNameTag, classNameText, classNameRegex)
	registerRegexTag(subjectNameTag, subjectNameText, subjectNameRegex)

	_ = validate.RegisterValidation(academicYearTag, academicYearValidation)
	registerTranslation(academicYearTag, academicYearText)

	validate.RegisterStructValidation(settingsStructValidation, models.SchoolSettings{})
	registerTranslation(scoreSplitTag, scoreSplitText)
	registerTranslation(componentWeightsTag, componentWeightsText)
	registerTranslation(uniqueComponentTag, uniqueComponentText)
}

func registerRegexTag(tag, text string, re *regexp.Regexp) {
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	registerTranslation(tag, text)
}

func registerTranslation(tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, false) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// academicYearValidation accepts "YYYY/YYYY" where the second year follows the first.
func academicYearValidation(fl validator.FieldLevel) bool {
	m := academicYearRegex.FindStringSubmatch(fl.Field().String())
	if m == nil {
		return false
	}
	start, _ := strconv.Atoi(m[1])
	end, _ := strconv.Atoi(m[2])
	return end == start+1
}

func settingsStructValidation(sl validator.StructLevel) {
	s, ok := sl.Current().Interface().(models.SchoolSettings)
	if !ok {
		return
	}
	if s.ClassScoreMax+s.ExamScoreMax != 100 {
		sl.ReportError(s.ExamScoreMax, "examScoreMax", "ExamScoreMax", scoreSplitTag, "")
	}
	if len(s.ComponentLibrary) == 0 {
		return
	}
	seen := make(map[string]bool, len(s.ComponentLibrary))
	var weights float64
	for _, c := range s.ComponentLibrary {
		key := strings.ToLower(collapse(c.Name))
		if seen[key] {
			sl.ReportError(s.ComponentLibrary, "componentLibrary", "ComponentLibrary", uniqueComponentTag, "")
		}
		seen[key] = true
		weights += c.Weight
	}
	if math.Abs(weights-float64(s.ClassScoreMax)) > 1e-9 {
		sl.ReportError(s.ComponentLibrary, "componentLibrary", "ComponentLibrary", componentWeightsTag, "")
	}
}

func collapse(raw string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(raw), " ")
}

// NormalizeStudentName trims and collapses whitespace, then enforces the
// 2-100 character limit and the allowed character set.
func NormalizeStudentName(raw string) (string, error) {
	name := collapse(raw)
	if err := validate.Var(name, "min=2,max=100,"+personNameTag); err != nil {
		return "", appErrors.WithField(appErrors.ErrInvalidName, "name", varMessage(err, "name", 2, 100, personNameText))
	}
	return name, nil
}

// NormalizeClassName applies the class label rules.
func NormalizeClassName(raw string) (string, error) {
	name := collapse(raw)
	if err := validate.Var(name, "min=1,max=50,"+classNameTag); err != nil {
		return "", appErrors.WithField(appErrors.ErrInvalidName, "className", varMessage(err, "className", 1, 50, classNameText))
	}
	return name, nil
}

// NormalizeSubjectName applies the subject name rules.
func NormalizeSubjectName(raw string) (string, error) {
	name := collapse(raw)
	if err := validate.Var(name, "min=1,max=100,"+subjectNameTag); err != nil {
		return "", appErrors.WithField(appErrors.ErrInvalidSubjectName, "subject", varMessage(err, "subject", 1, 100, subjectNameText))
	}
	return name, nil
}

func varMessage(err error, field string, min, max int, charsetText string) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "min", "max":
			return fmt.Sprintf("%s must be between %d and %d characters", field, min, max)
		}
	}
	return strings.Replace(charsetText, "{0}", field, 1)
}

// EnsureUniqueSubject rejects name when another subject of the student
// (other than exceptID) already uses it, ignoring case.
func EnsureUniqueSubject(existing []models.SubjectEntry, name, exceptID string) error {
	for _, subject := range existing {
		if subject.ID == exceptID && exceptID != "" {
			continue
		}
		if strings.EqualFold(subject.Name, name) {
			return appErrors.WithField(appErrors.ErrDuplicateSubject, "subject", fmt.Sprintf("%s is already recorded for this student", name))
		}
	}
	return nil
}

// ParseScore converts a text input into a score within [0, max]. An empty
// input means zero.
func ParseScore(text string, max float64) (float64, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, nil
	}
	value, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, appErrors.Clone(appErrors.ErrInvalidScore, fmt.Sprintf("%q is not a number", trimmed))
	}
	if value < 0 || value > max {
		return 0, appErrors.Clone(appErrors.ErrScoreOutOfRange, fmt.Sprintf("score must be between 0 and %s", formatMax(max)))
	}
	return value, nil
}

func formatMax(max float64) string {
	return strconv.FormatFloat(max, 'f', -1, 64)
}

// ValidateSettings checks the settings invariants. It never modifies the input.
func ValidateSettings(settings models.SchoolSettings) error {
	err := validate.Struct(settings)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return appErrors.Wrap(err, appErrors.ErrInvalidSettings.Code, appErrors.ErrInvalidSettings.Message)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := fieldKey(fe.Namespace())
		if _, dup := fields[key]; dup {
			continue
		}
		fields[key] = fe.Translate(translator)
	}
	return appErrors.WithFields(appErrors.ErrInvalidSettings, fields)
}

// fieldKey strips the struct name prefix from a validator namespace.
func fieldKey(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}

// NormalizeStudent normalizes names in place and checks scores against the
// settings. It is the gate every record passes before persistence.
func NormalizeStudent(record *models.StudentRecord, settings models.SchoolSettings) error {
	name, err := NormalizeStudentName(record.Name)
	if err != nil {
		return err
	}
	className, err := NormalizeClassName(record.ClassName)
	if err != nil {
		return err
	}
	record.Name, record.ClassName = name, className

	if err := validateAttendance(record.AttendancePresent, record.AttendanceTotal); err != nil {
		return err
	}

	components := componentIndex(settings.ComponentLibrary)
	for i := range record.Subjects {
		subject := &record.Subjects[i]
		subjectName, err := NormalizeSubjectName(subject.Name)
		if err != nil {
			return err
		}
		if err := EnsureUniqueSubject(record.Subjects[:i], subjectName, ""); err != nil {
			return err
		}
		subject.Name = subjectName
		if err := checkRange(subject.ClassScore, MaxRawScore, subjectName+".classScore"); err != nil {
			return err
		}
		if err := checkRange(subject.ExamScore, MaxRawScore, subjectName+".examScore"); err != nil {
			return err
		}
		for id, score := range subject.ComponentScores {
			component, ok := components[id]
			if !ok {
				return appErrors.WithField(appErrors.ErrValidation, subjectName+".components", fmt.Sprintf("unknown component %s", id))
			}
			if err := checkRange(score, component.MaxScore, subjectName+"."+component.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkRange(value, max float64, field string) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return appErrors.WithField(appErrors.ErrInvalidScore, field, "score must be a number")
	}
	if value < 0 || value > max {
		return appErrors.WithField(appErrors.ErrScoreOutOfRange, field, fmt.Sprintf("score must be between 0 and %s", formatMax(max)))
	}
	return nil
}

func validateAttendance(present, total *int) error {
	if present == nil && total == nil {
		return nil
	}
	if present == nil || total == nil {
		return appErrors.WithField(appErrors.ErrValidation, "attendance", "attendance needs both days present and total days")
	}
	if *present < 0 || *total < 0 || *present > *total {
		return appErrors.WithField(appErrors.ErrValidation, "attendance", "days present must be between 0 and total days")
	}
	return nil
}

func componentIndex(components []models.AssessmentComponent) map[string]models.AssessmentComponent {
	index := make(map[string]models.AssessmentComponent, len(components))
	for _, c := range components {
		index[c.ID] = c
	}
	return index
}

// ValidateStudent runs the NormalizeStudent checks on a copy of record.
func ValidateStudent(record models.StudentRecord, settings models.SchoolSettings) error {
	record.Subjects = append([]models.SubjectEntry(nil), record.Subjects...)
	return NormalizeStudent(&record, settings)
}
