// Package sample builds realistic demo feeding history.
package sample

import (
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"time"

	"github.com/verte-zerg/tuifeed/internal/model"
)

// DefaultDays is how much history Generate covers by default.
const DefaultDays = 90

// feedHours are the candidate feed times, roughly every two hours.
var feedHours = []int{1, 3, 5, 7, 9, 11, 13, 15, 17, 19, 21, 23}

// Generator produces randomized feeding history.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return NewSeeded(time.Now().UnixNano())
}

// NewSeeded returns a deterministic Generator.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// Generate returns days of history ending at now, newest first. Each day has
// 8 to 12 feeds; most use both sides and the rest close with a zero-length
// second side. Nothing ends after now.
func (g *Generator) Generate(now time.Time, days int) []model.Unit {
	if days <= 0 {
		days = DefaultDays
	}
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	cutoff := model.At(now)

	units := make([]model.Unit, 0, days*12)
	for day := days - 1; day >= 0; day-- {
		dayStart := today.AddDate(0, 0, -day)
		for _, hour := range g.pickHours(8 + g.rnd.Intn(5)) {
			unit := g.feed(dayStart, day, hour)
			if unit.EndTime > cutoff {
				continue
			}
			units = append(units, unit)
		}
	}
	model.SortNewestFirst(units)
	return units
}

func (g *Generator) pickHours(n int) []int {
	hours := append([]int(nil), feedHours...)
	g.rnd.Shuffle(len(hours), func(i, j int) { hours[i], hours[j] = hours[j], hours[i] })
	hours = hours[:n]
	sort.Ints(hours)
	return hours
}

func (g *Generator) feed(dayStart time.Time, day, hour int) model.Unit {
	offset := time.Duration(g.rnd.Intn(60)-30) * time.Minute
	firstEnd := dayStart.Add(time.Duration(hour)*time.Hour + offset)

	bothSides := g.rnd.Float64() < 0.7
	firstSecs := 600 + g.rnd.Intn(600)
	secondSecs := 0
	if bothSides {
		secondSecs = 600 + g.rnd.Intn(600)
	}
	first := model.SideLeft
	if g.rnd.Intn(2) == 0 {
		first = model.SideRight
	}

	firstAt := model.At(firstEnd)
	secondAt := firstAt.Add(time.Duration(secondSecs) * time.Second)
	return model.Unit{
		ID:   fmt.Sprintf("sample-%d-%d-%s", day, hour, strconv.FormatInt(g.rnd.Int63(), 36)),
		Kind: model.KindBreast,
		Sessions: []model.Session{
			{Side: first, Duration: firstSecs, EndTime: firstAt},
			{Side: first.Opposite(), Duration: secondSecs, EndTime: secondAt},
		},
		EndTime: secondAt,
	}
}
