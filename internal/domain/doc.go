// Package domain models RescueHQ emergency reporting data.
//
// # Incidents
//
// An incident is one emergency report submitted by a field reporter. Reports
// are delivered to the external dispatch store; when connectivity is down or
// delivery fails with a retryable error they are wrapped in a
// QueuedSubmission and parked in the local durable queue until the sync
// engine replays them.
//
// Geolocation is optional on a report. It is never synthesized: a report
// without coordinates stays without coordinates and is flagged so operators
// can see the gap.
//
// # Weather risk
//
// The forecast comes from Open-Meteo as per-day precipitation (mm/24h) and
// peak wind speed (km/h). EvaluateForecast derives deterministic alerts from
// fixed thresholds based on Sri Lanka DMC guidelines:
//
//	rain:  >=75mm warning, >=150mm severe, >=200mm extreme
//	wind:  >=50km/h warning, >=75km/h severe, >=100km/h extreme
//
// The AI analysis path produces an AlertAnalysis with its own severity
// vocabulary (low/medium/high/critical); both vocabularies fold onto one
// total order so alert lists always sort the same way.
//
// # Errors
//
// Failures crossing a collaborator boundary are classified into a small
// taxonomy (validation, unavailable, timeout, rate-limited, unknown) that
// drives queueing and fallback decisions. See errors.go.
package domain
