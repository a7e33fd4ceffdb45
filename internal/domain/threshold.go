package domain

import (
	"fmt"
	"sort"
)

// Rainfall and wind thresholds, mm/24h and km/h. Values follow the Sri
// Lanka Department of Meteorology advisory bands.
const (
	RainWarningMM = 75
	RainSevereMM  = 150
	RainExtremeMM = 200

	WindWarningKMH = 50
	WindSevereKMH  = 75
	WindExtremeKMH = 100
)

// thresholdWindowDays bounds how far ahead the deterministic engine looks.
// The forecast may carry more days; only the first three drive alerts.
const thresholdWindowDays = 3

// EvaluateForecast derives deterministic alerts from the first three forecast
// days. Each day contributes at most one rain alert (the highest band
// crossed) and at most one wind alert, plus a derived landslide alert when
// rainfall reaches the severe band. The result is sorted by descending
// severity; ties keep their emission order.
func EvaluateForecast(f Forecast) []AlertRecord {
	now := clock.Now()
	days := f.Daily.Days()
	if days > thresholdWindowDays {
		days = thresholdWindowDays
	}

	var alerts []AlertRecord
	for i := 0; i < days; i++ {
		date := f.Daily.Time[i]
		label := dayLabel(date, now)
		rain := f.Daily.PrecipitationSum[i]
		wind := f.Daily.WindSpeed10mMax[i]

		if a, ok := rainAlert(rain, date, label); ok {
			alerts = append(alerts, a)
		}
		if rain >= RainSevereMM {
			alerts = append(alerts, landslideAlert(rain, date, label))
		}
		if a, ok := windAlert(wind, date, label); ok {
			alerts = append(alerts, a)
		}
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() > alerts[j].Severity.Rank()
	})
	return alerts
}

// rainAlert returns the alert for the highest rainfall band crossed, if any.
func rainAlert(mm float64, date, label string) (AlertRecord, bool) {
	switch {
	case mm >= RainExtremeMM:
		return AlertRecord{
			Type:      AlertFloodRisk,
			Severity:  SeverityExtreme,
			Title:     "Severe Flood Risk",
			Message:   fmt.Sprintf("Extreme rainfall of %.0fmm expected %s. High flood risk in low-lying areas.", mm, label),
			Date:      date,
			Timeframe: label,
			Value:     mm,
			Icon:      IconFor(AlertFloodRisk),
		}, true
	case mm >= RainSevereMM:
		return AlertRecord{
			Type:      AlertHeavyRain,
			Severity:  SeveritySevere,
			Title:     "Heavy Rainfall Warning",
			Message:   fmt.Sprintf("Heavy rainfall of %.0fmm expected %s. Flooding possible in vulnerable areas.", mm, label),
			Date:      date,
			Timeframe: label,
			Value:     mm,
			Icon:      IconFor(AlertHeavyRain),
		}, true
	case mm >= RainWarningMM:
		return AlertRecord{
			Type:      AlertHeavyRain,
			Severity:  SeverityWarning,
			Title:     "Rainfall Advisory",
			Message:   fmt.Sprintf("Significant rainfall of %.0fmm expected %s. Stay alert for local flooding.", mm, label),
			Date:      date,
			Timeframe: label,
			Value:     mm,
			Icon:      IconFor(AlertHeavyRain),
		}, true
	}
	return AlertRecord{}, false
}

// landslideAlert is derived, not forecast: sustained severe rainfall
// saturates slopes, so every severe-or-worse rain day also raises a
// landslide alert one band below extreme.
func landslideAlert(mm float64, date, label string) AlertRecord {
	return AlertRecord{
		Type:      AlertLandslideRisk,
		Severity:  SeveritySevere,
		Title:     "Landslide Risk",
		Message:   fmt.Sprintf("Heavy rainfall (%.0fmm) %s raises landslide risk in hill country areas.", mm, label),
		Date:      date,
		Timeframe: label,
		Value:     mm,
		Icon:      IconFor(AlertLandslideRisk),
	}
}

// windAlert returns the alert for the highest wind band crossed, if any.
func windAlert(kmh float64, date, label string) (AlertRecord, bool) {
	switch {
	case kmh >= WindExtremeKMH:
		return AlertRecord{
			Type:      AlertCycloneRisk,
			Severity:  SeverityExtreme,
			Title:     "Cyclone Risk",
			Message:   fmt.Sprintf("Extreme winds of %.0fkm/h expected %s. Cyclonic conditions possible.", kmh, label),
			Date:      date,
			Timeframe: label,
			Value:     kmh,
			Icon:      IconFor(AlertCycloneRisk),
		}, true
	case kmh >= WindSevereKMH:
		return AlertRecord{
			Type:      AlertStrongWind,
			Severity:  SeveritySevere,
			Title:     "Strong Wind Warning",
			Message:   fmt.Sprintf("Strong winds of %.0fkm/h expected %s. Secure loose objects and avoid coastal areas.", kmh, label),
			Date:      date,
			Timeframe: label,
			Value:     kmh,
			Icon:      IconFor(AlertStrongWind),
		}, true
	case kmh >= WindWarningKMH:
		return AlertRecord{
			Type:      AlertStrongWind,
			Severity:  SeverityWarning,
			Title:     "Wind Advisory",
			Message:   fmt.Sprintf("Gusty winds of %.0fkm/h expected %s.", kmh, label),
			Date:      date,
			Timeframe: label,
			Value:     kmh,
			Icon:      IconFor(AlertStrongWind),
		}, true
	}
	return AlertRecord{}, false
}
