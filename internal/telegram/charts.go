package telegram

import (
	"encoding/json"
	"fmt"
	"net/url"

	"mewego-bot/internal/domain"
	"mewego-bot/internal/service"
)

const quickChartURL = "https://quickchart.io/chart"

var statusColors = map[domain.LogStatus]string{
	domain.StatusDone:    "rgba(75, 192, 192, 0.9)",
	domain.StatusNotDone: "rgba(255, 99, 132, 0.8)",
	domain.StatusSkipped: "rgba(255, 206, 86, 0.8)",
}

const unmarkedColor = "rgba(201, 203, 207, 0.5)"

var barPalette = []string{
	"rgba(255, 99, 132, 0.8)",
	"rgba(54, 162, 235, 0.8)",
	"rgba(255, 206, 86, 0.8)",
	"rgba(75, 192, 192, 0.8)",
	"rgba(153, 102, 255, 0.8)",
	"rgba(255, 159, 64, 0.8)",
}

type chartDataset struct {
	Label           string   `json:"label,omitempty"`
	Data            []int    `json:"data"`
	BackgroundColor []string `json:"backgroundColor"`
	BorderWidth     int      `json:"borderWidth"`
}

type chartConfig struct {
	Type string `json:"type"`
	Data struct {
		Labels   []string       `json:"labels"`
		Datasets []chartDataset `json:"datasets"`
	} `json:"data"`
	Options map[string]any `json:"options"`
}

func chartURL(cfg chartConfig) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encode chart: %w", err)
	}
	return quickChartURL + "?c=" + url.QueryEscape(string(raw)), nil
}

func chartOptions(title string, indexAxis string, showValueAxis bool) map[string]any {
	opts := map[string]any{
		"plugins": map[string]any{
			"legend": map[string]any{"display": false},
			"title":  map[string]any{"display": true, "text": title},
		},
	}
	valueAxis := "y"
	if indexAxis != "" {
		opts["indexAxis"] = indexAxis
		valueAxis = "x"
	}
	if showValueAxis {
		opts["scales"] = map[string]any{
			valueAxis: map[string]any{"beginAtZero": true, "ticks": map[string]any{"stepSize": 1}},
		}
	} else {
		opts["scales"] = map[string]any{
			"y": map[string]any{"display": false},
			"x": map[string]any{"grid": map[string]any{"display": false}},
		}
	}
	return opts
}

// HabitCalendarChart draws one equal-height bar per day, colored by that day's mark.
func HabitCalendarChart(habitName string, marks []service.DayMark) (string, error) {
	var cfg chartConfig
	cfg.Type = "bar"

	ds := chartDataset{}
	for _, m := range marks {
		cfg.Data.Labels = append(cfg.Data.Labels, fmt.Sprintf("%02d", m.Date.Day))
		ds.Data = append(ds.Data, 1)
		color, ok := statusColors[m.Status]
		if !ok {
			color = unmarkedColor
		}
		ds.BackgroundColor = append(ds.BackgroundColor, color)
	}
	cfg.Data.Datasets = []chartDataset{ds}
	cfg.Options = chartOptions(fmt.Sprintf("%s — последние %d дней", habitName, len(marks)), "", false)

	return chartURL(cfg)
}

// StreakChart is a horizontal bar per habit with its current streak.
// It returns an empty URL when there is nothing to draw.
func StreakChart(reports []domain.HabitReport) (string, error) {
	if len(reports) == 0 {
		return "", nil
	}

	var cfg chartConfig
	cfg.Type = "bar"

	ds := chartDataset{Label: "Серия"}
	for i, r := range reports {
		cfg.Data.Labels = append(cfg.Data.Labels, shortName(r.Habit.Name, 15))
		ds.Data = append(ds.Data, r.Stats.CurrentStreak)
		ds.BackgroundColor = append(ds.BackgroundColor, barPalette[i%len(barPalette)])
	}
	cfg.Data.Datasets = []chartDataset{ds}
	cfg.Options = chartOptions("Текущие серии", "y", true)

	return chartURL(cfg)
}

// shortName cuts a label to max runes with an ellipsis.
func shortName(name string, max int) string {
	runes := []rune(name)
	if len(runes) <= max {
		return name
	}
	return string(runes[:max-1]) + "…"
}
