package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"staffhub/internal/domain/attendance"
)

// policyFile mirrors attendance.Policy with YAML-friendly units. Absent keys keep the base value.
type policyFile struct {
	ToleranceMinutes            *int     `yaml:"tolerance_minutes"`
	AutoApproveToleranceMinutes *int     `yaml:"auto_approve_tolerance_minutes"`
	OvertimeThresholdMinutes    *int     `yaml:"overtime_threshold_minutes"`
	ReviewAfter                 string   `yaml:"review_after"`
	SelfResolveWindow           string   `yaml:"self_resolve_window"`
	MaxWeeklyHours              *float64 `yaml:"max_weekly_hours"`
	WellbeingWarningFraction    *float64 `yaml:"wellbeing_warning_fraction"`
	WeeklyOvertimeAlertMinutes  *int     `yaml:"weekly_overtime_alert_minutes"`
	MissingPunchGrace           string   `yaml:"missing_punch_grace"`
	GeofenceRadiusMeters        *float64 `yaml:"geofence_radius_meters"`
}

type policyDocument struct {
	Attendance policyFile `yaml:"attendance"`
}

// LoadPolicyFile overlays the `attendance:` section of a YAML file on base.
func LoadPolicyFile(path string, base attendance.Policy) (attendance.Policy, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("config: read policy file %s: %w", path, err)
	}

	var doc policyDocument
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return base, fmt.Errorf("config: parse policy yaml: %w", err)
	}
	return doc.Attendance.apply(base)
}

func (f policyFile) apply(p attendance.Policy) (attendance.Policy, error) {
	if f.ToleranceMinutes != nil {
		p.Tolerance = minutes(*f.ToleranceMinutes)
	}
	if f.AutoApproveToleranceMinutes != nil {
		p.AutoApproveTolerance = minutes(*f.AutoApproveToleranceMinutes)
	}
	if f.OvertimeThresholdMinutes != nil {
		p.OvertimeThreshold = minutes(*f.OvertimeThresholdMinutes)
	}
	if f.WeeklyOvertimeAlertMinutes != nil {
		p.WeeklyOvertimeAlert = minutes(*f.WeeklyOvertimeAlertMinutes)
	}
	if f.MaxWeeklyHours != nil {
		p.MaxWeeklyHours = *f.MaxWeeklyHours
	}
	if f.WellbeingWarningFraction != nil {
		p.WellbeingWarnFraction = *f.WellbeingWarningFraction
	}
	if f.GeofenceRadiusMeters != nil {
		p.GeofenceRadiusMeters = *f.GeofenceRadiusMeters
	}

	var err error
	if p.ReviewAfter, err = parseDurationOr(f.ReviewAfter, p.ReviewAfter); err != nil {
		return p, fmt.Errorf("config: attendance.review_after: %w", err)
	}
	if p.SelfResolveWindow, err = parseDurationOr(f.SelfResolveWindow, p.SelfResolveWindow); err != nil {
		return p, fmt.Errorf("config: attendance.self_resolve_window: %w", err)
	}
	if p.MissingPunchGrace, err = parseDurationOr(f.MissingPunchGrace, p.MissingPunchGrace); err != nil {
		return p, fmt.Errorf("config: attendance.missing_punch_grace: %w", err)
	}
	return p, nil
}

func parseDurationOr(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" {
		return fallback, nil
	}
	return time.ParseDuration(raw)
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
