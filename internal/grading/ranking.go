package grading

import (
	"sort"
	"strings"

	"github.com/noah-isme/reportcard/internal/models"
)

// competitionPositions returns, per input index, the 1-based competition rank
// of scores in descending order. Equal scores share a position and the next
// distinct score skips by the tie-group size. Ties keep input order.
func competitionPositions(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	positions := make([]int, len(scores))
	for rank, idx := range order {
		if rank > 0 && scores[idx] == scores[order[rank-1]] {
			positions[idx] = positions[order[rank-1]]
			continue
		}
		positions[idx] = rank + 1
	}
	return positions
}

// Rank assigns ClassPosition across the whole roster by descending average.
// Students without subjects take part with their average of 0.
func Rank(students []models.ProcessedStudent) {
	scores := make([]float64, len(students))
	for i, s := range students {
		scores[i] = float64(s.AverageScore)
	}
	for i, pos := range competitionPositions(scores) {
		students[i].ClassPosition = pos
	}
}

type subjectRef struct {
	student int
	result  int
}

// RankSubjects assigns per-subject positions among the completed entries of
// each subject. Incomplete entries keep position 0.
func RankSubjects(students []models.ProcessedStudent) {
	groups := make(map[string][]subjectRef)
	var keys []string
	for i := range students {
		for j, result := range students[i].Results {
			students[i].Results[j].Position = 0
			if result.Incomplete {
				continue
			}
			key := strings.ToLower(result.Name)
			if _, ok := groups[key]; !ok {
				keys = append(keys, key)
			}
			groups[key] = append(groups[key], subjectRef{student: i, result: j})
		}
	}
	for _, key := range keys {
		refs := groups[key]
		scores := make([]float64, len(refs))
		for k, ref := range refs {
			scores[k] = students[ref.student].Results[ref.result].Total
		}
		for k, pos := range competitionPositions(scores) {
			students[refs[k].student].Results[refs[k].result].Position = pos
		}
	}
}
