package domain

import "time"

// AlertCategory is the kind of weather risk an alert describes.
type AlertCategory string

const (
	AlertFloodRisk     AlertCategory = "flood_risk"
	AlertCycloneRisk   AlertCategory = "cyclone_risk"
	AlertLandslideRisk AlertCategory = "landslide_risk"
	AlertHeavyRain     AlertCategory = "heavy_rain"
	AlertStrongWind    AlertCategory = "strong_wind"
)

// Severity ranks an alert. The threshold engine emits warning/severe/extreme;
// the AI engine speaks low/medium/high/critical. Both fold onto one total
// order via Rank so mixed lists sort consistently.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeveritySevere  Severity = "severe"
	SeverityExtreme Severity = "extreme"

	// AI-native bands.
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank returns the position of s on the shared severity order. Higher is
// more urgent. Unknown severities rank lowest.
func (s Severity) Rank() int {
	switch s {
	case SeverityExtreme, SeverityCritical:
		return 3
	case SeveritySevere, SeverityHigh:
		return 2
	case SeverityWarning, SeverityMedium:
		return 1
	case SeverityLow:
		return 0
	default:
		return -1
	}
}

// AlertRecord is one derived risk signal for display. Records are recreated
// on every analysis cycle and never persisted by this service.
type AlertRecord struct {
	Type          AlertCategory `json:"type"`
	Severity      Severity      `json:"severity"`
	Title         string        `json:"title"`
	Message       string        `json:"message"`
	AffectedAreas []string      `json:"affectedAreas,omitempty"`
	Date          string        `json:"date,omitempty"`
	Timeframe     string        `json:"timeframe,omitempty"`
	Value         float64       `json:"value,omitempty"`
	Icon          string        `json:"icon"`
}

// AlertAnalysis is the structured result of one AI analysis call.
// It is cached by the analyzer and overwritten wholesale on every
// successful fetch.
type AlertAnalysis struct {
	OverallRisk     Severity      `json:"overallRisk"`
	RiskScore       int           `json:"riskScore"`
	PrimaryThreat   string        `json:"primaryThreat"`
	Alerts          []AlertRecord `json:"alerts"`
	Recommendations []string      `json:"recommendations,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	IsAI            bool          `json:"isAI"`
}

// Forecast is the daily weather outlook returned by the weather collaborator.
// Field names mirror the Open-Meteo response.
type Forecast struct {
	Daily ForecastDaily `json:"daily"`
}

// ForecastDaily holds parallel per-day series. Time entries are ISO dates
// (YYYY-MM-DD); precipitation is mm per 24h; wind is the daily 10m maximum
// in km/h.
type ForecastDaily struct {
	Time             []string  `json:"time"`
	PrecipitationSum []float64 `json:"precipitation_sum"`
	WindSpeed10mMax  []float64 `json:"wind_speed_10m_max"`
}

// Days returns the number of forecast days present in all series.
func (d ForecastDaily) Days() int {
	n := len(d.Time)
	if len(d.PrecipitationSum) < n {
		n = len(d.PrecipitationSum)
	}
	if len(d.WindSpeed10mMax) < n {
		n = len(d.WindSpeed10mMax)
	}
	return n
}

// alertIcons maps alert categories to their display icon. Unknown categories
// get the generic warning icon.
var alertIcons = map[AlertCategory]string{
	AlertFloodRisk:     "🌊",
	AlertCycloneRisk:   "🌀",
	AlertLandslideRisk: "⛰️",
	AlertHeavyRain:     "⛈️",
	AlertStrongWind:    "💨",
}

// IconFor returns the display icon for an alert category.
func IconFor(cat AlertCategory) string {
	if icon, ok := alertIcons[cat]; ok {
		return icon
	}
	return "⚠️"
}

// dayLabel renders an ISO date relative to now: "today", "tomorrow", or a
// short weekday/month/day label like "Mon, Jan 2".
func dayLabel(isoDate string, now time.Time) string {
	today := now.Format("2006-01-02")
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")

	switch isoDate {
	case today:
		return "today"
	case tomorrow:
		return "tomorrow"
	}

	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return isoDate
	}
	return t.Format("Mon, Jan 2")
}
