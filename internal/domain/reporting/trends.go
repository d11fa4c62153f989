package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Count is a case count that decodes from a JSON number or a numeric string.
type Count int

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return fmt.Errorf("count %q is not an integer", string(b))
	}
	*c = Count(n)
	return nil
}

// RawDiseaseRow is one grouped row as read from the store, before
// case folding.
type RawDiseaseRow struct {
	Diagnosis string `json:"diagnosis"`
	Count     Count  `json:"count"`
}

type DiseaseTrend struct {
	Diagnosis string `json:"diagnosis"`
	Count     int    `json:"count"`
}

// ConsolidateDiseaseTrends merges rows whose diagnosis matches after
// lower-casing and trimming. Each group keeps the spelling it was first
// seen with. The result is ordered by count, highest first; equal counts
// are ordered by the normalized name, so {Flu 5, Cold 5} lists Cold first.
func ConsolidateDiseaseTrends(rows []RawDiseaseRow) []DiseaseTrend {
	trends := make([]DiseaseTrend, 0, len(rows))
	keys := make([]string, 0, len(rows))
	index := make(map[string]int, len(rows))
	for _, r := range rows {
		key := trendKey(r.Diagnosis)
		if i, ok := index[key]; ok {
			trends[i].Count += int(r.Count)
			continue
		}
		index[key] = len(trends)
		keys = append(keys, key)
		trends = append(trends, DiseaseTrend{Diagnosis: r.Diagnosis, Count: int(r.Count)})
	}
	sort.Sort(byCountThenName{trends: trends, keys: keys})
	return trends
}

func trendKey(diagnosis string) string {
	return strings.ToLower(strings.TrimSpace(diagnosis))
}

// byCountThenName sorts trends and their normalized keys together.
type byCountThenName struct {
	trends []DiseaseTrend
	keys   []string
}

func (b byCountThenName) Len() int { return len(b.trends) }

func (b byCountThenName) Less(i, j int) bool {
	if b.trends[i].Count != b.trends[j].Count {
		return b.trends[i].Count > b.trends[j].Count
	}
	return b.keys[i] < b.keys[j]
}

func (b byCountThenName) Swap(i, j int) {
	b.trends[i], b.trends[j] = b.trends[j], b.trends[i]
	b.keys[i], b.keys[j] = b.keys[j], b.keys[i]
}

type TrendShare struct {
	Diagnosis  string  `json:"diagnosis"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type TrendSummary struct {
	TotalCases     int           `json:"total_cases"`
	UniqueDiseases int           `json:"unique_diseases"`
	MostCommon     *DiseaseTrend `json:"most_common"`
	Shares         []TrendShare  `json:"shares"`
}

// Summarize derives the report statistics from consolidated trends.
func Summarize(trends []DiseaseTrend) TrendSummary {
	s := TrendSummary{UniqueDiseases: len(trends), Shares: make([]TrendShare, 0, len(trends))}
	for _, t := range trends {
		s.TotalCases += t.Count
	}
	if len(trends) > 0 {
		first := trends[0]
		s.MostCommon = &first
	}
	for _, t := range trends {
		s.Shares = append(s.Shares, TrendShare{
			Diagnosis:  t.Diagnosis,
			Count:      t.Count,
			Percentage: Percentage(t.Count, s.TotalCases),
		})
	}
	return s
}

// Percentage returns count/total*100 rounded to one decimal, or 0 when
// total is 0.
func Percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}
