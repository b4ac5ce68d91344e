package attendance

import (
	"fmt"
	"time"
)

// Policy holds the product thresholds of the time-clock engine.
type Policy struct {
	Tolerance             time.Duration
	AutoApproveTolerance  time.Duration
	OvertimeThreshold     time.Duration
	ReviewAfter           time.Duration
	SelfResolveWindow     time.Duration
	MaxWeeklyHours        float64
	WellbeingWarnFraction float64
	WeeklyOvertimeAlert   time.Duration
	MissingPunchGrace     time.Duration
	GeofenceRadiusMeters  float64
}

func DefaultPolicy() Policy {
	return Policy{
		Tolerance:             15 * time.Minute,
		AutoApproveTolerance:  15 * time.Minute,
		OvertimeThreshold:     30 * time.Minute,
		ReviewAfter:           48 * time.Hour,
		SelfResolveWindow:     24 * time.Hour,
		MaxWeeklyHours:        40,
		WellbeingWarnFraction: 0.9,
		WeeklyOvertimeAlert:   5 * time.Hour,
		MissingPunchGrace:     2 * time.Hour,
		GeofenceRadiusMeters:  200,
	}
}

func (p Policy) Validate() error {
	if p.Tolerance < 0 {
		return fmt.Errorf("attendance policy: tolerance must not be negative")
	}
	if p.AutoApproveTolerance < 0 {
		return fmt.Errorf("attendance policy: auto-approve tolerance must not be negative")
	}
	if p.OvertimeThreshold < 0 {
		return fmt.Errorf("attendance policy: overtime threshold must not be negative")
	}
	if p.ReviewAfter <= 0 {
		return fmt.Errorf("attendance policy: review-after must be positive")
	}
	if p.SelfResolveWindow <= 0 {
		return fmt.Errorf("attendance policy: self-resolve window must be positive")
	}
	if p.MaxWeeklyHours <= 0 {
		return fmt.Errorf("attendance policy: max weekly hours must be positive")
	}
	if p.WellbeingWarnFraction <= 0 || p.WellbeingWarnFraction > 1 {
		return fmt.Errorf("attendance policy: wellbeing warning fraction must be in (0,1]")
	}
	if p.MissingPunchGrace < 0 {
		return fmt.Errorf("attendance policy: missing punch grace must not be negative")
	}
	if p.GeofenceRadiusMeters < 0 {
		return fmt.Errorf("attendance policy: geofence radius must not be negative")
	}
	return nil
}

// ForMerchant applies the merchant overrides on top of p.
func (p Policy) ForMerchant(m Merchant) Policy {
	out := p
	if m.ToleranceMinutes != nil && *m.ToleranceMinutes >= 0 {
		out.Tolerance = time.Duration(*m.ToleranceMinutes) * time.Minute
	}
	if m.AutoApproveToleranceMinutes != nil && *m.AutoApproveToleranceMinutes >= 0 {
		out.AutoApproveTolerance = time.Duration(*m.AutoApproveToleranceMinutes) * time.Minute
	}
	return out
}
