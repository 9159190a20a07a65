package grading

// Grade is a position on the 1-9 basic school grading scale.
type Grade struct {
	Grade  int
	Remark string
}

var scale = []struct {
	min   float64
	grade Grade
}{
	{80, Grade{1, "Highest"}},
	{70, Grade{2, "Higher"}},
	{60, Grade{3, "High"}},
	{55, Grade{4, "High Average"}},
	{50, Grade{5, "Average"}},
	{45, Grade{6, "Low Average"}},
	{40, Grade{7, "Low"}},
	{35, Grade{8, "Lower"}},
	{0, Grade{9, "Lowest"}},
}

// SubjectGrade maps a subject total (0-100) onto the grading scale.
func SubjectGrade(total float64) Grade {
	for _, band := range scale {
		if total >= band.min {
			return band.grade
		}
	}
	return scale[len(scale)-1].grade
}
