package analyzer

import (
	"fmt"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"

	"github.com/blackwell-systems/surveylca/internal/survey"
)

const (
	// jitterWidth spreads each integer code over [code, code+jitterWidth).
	jitterWidth = 0.5
	tickOffset  = jitterWidth / 2
)

// clusterIDs returns the distinct cluster labels in ascending order.
func clusterIDs(rows []survey.Labelled) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, r := range rows {
		if !seen[r.Cluster] {
			seen[r.Cluster] = true
			ids = append(ids, r.Cluster)
		}
	}
	sort.Ints(ids)
	return ids
}

// ClusterMeans averages each question's answers within each cluster.
func ClusterMeans(rows []survey.Labelled, questions []string) *Means {
	out := &Means{Questions: questions}

	byCluster := make(map[int][]survey.Labelled)
	for _, r := range rows {
		byCluster[r.Cluster] = append(byCluster[r.Cluster], r)
	}

	for _, c := range clusterIDs(rows) {
		members := byCluster[c]
		row := MeanRow{Cluster: c, Size: len(members), Means: make([]float64, len(questions))}
		col := make([]float64, len(members))
		for j := range questions {
			for i, m := range members {
				col[i] = float64(m.Answers[j])
			}
			row.Means[j] = stat.Mean(col, nil)
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// CrossTab tabulates clusters against one demographic column, normalising
// each demographic value's column to shares.
func CrossTab(rows []survey.Labelled, dimension string) (*Table, error) {
	labels, ok := Labels[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown demographic %q", dimension)
	}

	codes := make([]int, 0, len(labels))
	for code := range labels {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	colOf := make(map[int]int, len(codes))
	tab := &Table{Dimension: dimension, Codes: codes}
	for j, code := range codes {
		colOf[code] = j
		tab.Labels = append(tab.Labels, labels[code])
	}

	tab.Clusters = clusterIDs(rows)
	rowOf := make(map[int]int, len(tab.Clusters))
	for i, c := range tab.Clusters {
		rowOf[c] = i
		tab.Counts = append(tab.Counts, make([]int, len(codes)))
		tab.Share = append(tab.Share, make([]float64, len(codes)))
	}

	totals := make([]int, len(codes))
	for _, r := range rows {
		v, _ := r.Demographic(dimension)
		j, ok := colOf[v]
		if !ok {
			return nil, fmt.Errorf("serial %d: %s code %d has no label", r.Serial, dimension, v)
		}
		tab.Counts[rowOf[r.Cluster]][j]++
		totals[j]++
	}

	for i := range tab.Counts {
		for j, n := range tab.Counts[i] {
			if totals[j] > 0 {
				tab.Share[i][j] = float64(n) / float64(totals[j])
			}
		}
	}
	return tab, nil
}

// Scatter places every respondent at its (x, y) demographic codes plus
// uniform jitter so overlapping points stay visible. The same seed gives
// the same points.
func Scatter(rows []survey.Labelled, x, y string, seed uint64) (*ScatterData, error) {
	xLabels, ok := Labels[x]
	if !ok {
		return nil, fmt.Errorf("unknown demographic %q", x)
	}
	yLabels, ok := Labels[y]
	if !ok {
		return nil, fmt.Errorf("unknown demographic %q", y)
	}

	rng := rand.New(rand.NewSource(seed))
	out := &ScatterData{
		X:      x,
		Y:      y,
		Points: make([]Point, len(rows)),
		XTicks: ticks(xLabels),
		YTicks: ticks(yLabels),
	}
	for i, r := range rows {
		xv, _ := r.Demographic(x)
		yv, _ := r.Demographic(y)
		out.Points[i] = Point{
			Serial:  r.Serial,
			Cluster: r.Cluster,
			X:       float64(xv) + rng.Float64()*jitterWidth,
			Y:       float64(yv) + rng.Float64()*jitterWidth,
		}
	}
	return out, nil
}

func ticks(labels map[int]string) []Tick {
	codes := make([]int, 0, len(labels))
	for code := range labels {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	out := make([]Tick, len(codes))
	for i, code := range codes {
		out[i] = Tick{Position: float64(code) + tickOffset, Label: labels[code]}
	}
	return out
}
