package reporting

import (
	"fmt"
	"math"
)

// Arc is one slice of the distribution pie. Angles are in degrees,
// clockwise from twelve o'clock.
type Arc struct {
	Diagnosis  string  `json:"diagnosis"`
	Count      int     `json:"count"`
	StartAngle float64 `json:"start_angle"`
	EndAngle   float64 `json:"end_angle"`
	Sweep      float64 `json:"sweep"`
	LargeArc   bool    `json:"large_arc"`
	FullCircle bool    `json:"full_circle"`
	Path       string  `json:"path,omitempty"`
}

// DistributionArcs partitions the circle among trends in the given order.
// A single entry is a full circle. With no cases to share the result is
// empty.
func DistributionArcs(trends []DiseaseTrend) []Arc {
	if len(trends) == 1 {
		t := trends[0]
		return []Arc{{Diagnosis: t.Diagnosis, Count: t.Count, EndAngle: 360, Sweep: 360, LargeArc: true, FullCircle: true}}
	}
	total := 0
	for _, t := range trends {
		total += t.Count
	}
	arcs := make([]Arc, 0, len(trends))
	if total == 0 {
		return arcs
	}
	start := 0.0
	for i, t := range trends {
		sweep := float64(t.Count) / float64(total) * 360
		end := start + sweep
		if i == len(trends)-1 {
			end = 360
		}
		arcs = append(arcs, Arc{
			Diagnosis:  t.Diagnosis,
			Count:      t.Count,
			StartAngle: start,
			EndAngle:   end,
			Sweep:      sweep,
			LargeArc:   sweep > 180,
		})
		start = end
	}
	return arcs
}

// SVGPath renders the arc as an SVG path for a pie centred on (cx, cy).
func (a Arc) SVGPath(cx, cy, r float64) string {
	if a.FullCircle {
		return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 1 1 %.2f %.2f A %.2f %.2f 0 1 1 %.2f %.2f Z",
			cx-r, cy, r, r, cx+r, cy, r, r, cx-r, cy)
	}
	x1, y1 := point(cx, cy, r, a.StartAngle)
	x2, y2 := point(cx, cy, r, a.EndAngle)
	large := 0
	if a.LargeArc {
		large = 1
	}
	return fmt.Sprintf("M %.2f %.2f L %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f Z",
		cx, cy, x1, y1, r, r, large, x2, y2)
}

func point(cx, cy, r, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return cx + r*math.Sin(rad), cy - r*math.Cos(rad)
}
