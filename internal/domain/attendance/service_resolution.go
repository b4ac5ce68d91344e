package attendance

import (
	"context"
	"log/slog"
	"strings"
)

// ResolveAnomaly settles an open anomaly. Employees self-correct their own
// anomalies inside the self-resolution window; merchants and admins approve
// or reject.
func (s *Service) ResolveAnomaly(ctx context.Context, in ResolveInput) (Anomaly, error) {
	if strings.TrimSpace(in.AnomalyID) == "" {
		return Anomaly{}, ErrAnomalyNotFound
	}
	reason := in.Reason
	if reason == "" {
		if in.Actor.IsEmployee() {
			return Anomaly{}, ErrInvalidReason
		}
		reason = ReasonNotSpecified
	}
	if !reason.Valid() {
		return Anomaly{}, ErrInvalidReason
	}
	at := in.At
	if at.IsZero() {
		at = s.clock.Now()
	}

	var resolved Anomaly
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		a, err := s.store.GetAnomaly(txCtx, in.AnomalyID)
		if err != nil {
			return err
		}

		var target AnomalyStatus
		switch {
		case in.Actor.IsEmployee():
			if a.EmployeeID != in.Actor.EmployeeID {
				return ErrNotShiftOwner
			}
			if a.Status.Terminal() {
				return ErrAnomalyTerminal
			}
			if at.Sub(a.CreatedAt) > s.policy.SelfResolveWindow {
				return ErrResolveWindowClosed
			}
			target = StatusSelfCorrected
		case in.Actor.IsMerchant(), in.Actor.IsAdmin():
			if in.Actor.IsMerchant() && a.MerchantID != in.Actor.MerchantID {
				return ErrMerchantScope
			}
			if a.Status.Terminal() {
				return ErrAnomalyTerminal
			}
			switch in.Decision {
			case "", DecisionApprove:
				target = StatusManuallyApproved
			case DecisionReject:
				target = StatusRejected
			default:
				return ErrInvalidDecision
			}
		default:
			return ErrRoleNotAllowed
		}
		if !CanTransition(a.Status, target) {
			return ErrInvalidTransition
		}

		ok, err := s.store.TransitionAnomaly(txCtx, a.ID, []AnomalyStatus{a.Status}, target, &reason, in.Actor.UserID, at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAnomalyTerminal
		}
		resolvedAt := at
		a.Status = target
		a.ResolutionReason = &reason
		a.ResolvedAt = &resolvedAt
		a.ResolvedBy = in.Actor.UserID
		resolved = a
		return nil
	})
	if err != nil {
		return Anomaly{}, err
	}
	s.recorder.AnomalyTransitioned(resolved.Status)
	return resolved, nil
}

// AutoValidateSweep approves pending anomalies whose deviation falls inside the
// auto-approve band and escalates the ones left pending past the review age.
// Every transition is conditional on the anomaly still being pending, so a
// concurrent resolution always wins over the sweep.
func (s *Service) AutoValidateSweep(ctx context.Context, merchantID string) (SweepResult, error) {
	now := s.clock.Now()
	merchant, err := s.store.GetMerchant(ctx, merchantID)
	if err != nil {
		return SweepResult{}, err
	}
	policy := s.policy.ForMerchant(merchant)

	pending, err := s.store.ListAnomaliesByStatus(ctx, merchant.ID, []AnomalyStatus{StatusPending})
	if err != nil {
		return SweepResult{}, err
	}

	result := SweepResult{MerchantID: merchant.ID}
	var escalated []Anomaly
	reason := ReasonNotSpecified
	for _, a := range pending {
		result.Scanned++
		if delta, ok := a.Delta(); ok && WithinTolerance(delta, policy.AutoApproveTolerance) {
			moved, err := s.store.TransitionAnomaly(ctx, a.ID, []AnomalyStatus{StatusPending}, StatusAutoApproved, &reason, SystemActor, now)
			if err != nil {
				return result, err
			}
			if moved {
				result.Approved++
				s.recorder.AnomalyTransitioned(StatusAutoApproved)
			}
			continue
		}
		if now.Sub(a.CreatedAt) > policy.ReviewAfter {
			moved, err := s.store.TransitionAnomaly(ctx, a.ID, []AnomalyStatus{StatusPending}, StatusRequiresReview, nil, SystemActor, now)
			if err != nil {
				return result, err
			}
			if moved {
				a.Status = StatusRequiresReview
				escalated = append(escalated, a)
				s.recorder.AnomalyTransitioned(StatusRequiresReview)
			}
		}
	}
	result.Escalated = len(escalated)

	if len(escalated) > 0 {
		if err := s.notifier.AnomaliesEscalated(ctx, merchant.ID, escalated); err != nil {
			slog.Warn("escalation notification failed", "merchantId", merchant.ID, "count", len(escalated), "err", err)
		}
	}
	return result, nil
}

// BatchApprove approves every open anomaly on the given shifts. Shifts with
// nothing left to approve are counted as skipped.
func (s *Service) BatchApprove(ctx context.Context, shiftIDs []string, actor Actor) (BatchResult, error) {
	if !actor.IsMerchant() && !actor.IsAdmin() {
		return BatchResult{}, ErrRoleNotAllowed
	}
	ids := dedupe(shiftIDs)
	if len(ids) == 0 {
		return BatchResult{}, ErrMissingShiftID
	}
	now := s.clock.Now()

	var result BatchResult
	err := s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		open, err := s.store.ListAnomaliesForShifts(txCtx, ids, openStatuses)
		if err != nil {
			return err
		}
		if actor.IsMerchant() {
			for _, a := range open {
				if a.MerchantID != actor.MerchantID {
					return ErrMerchantScope
				}
			}
		}

		approvedShifts := make(map[string]struct{}, len(ids))
		result.ByMerchant = map[string]int{}
		for _, a := range open {
			reason := ReasonNotSpecified
			if a.ResolutionReason != nil {
				reason = *a.ResolutionReason
			}
			moved, err := s.store.TransitionAnomaly(txCtx, a.ID, openStatuses, StatusManuallyApproved, &reason, actor.UserID, now)
			if err != nil {
				return err
			}
			if moved {
				result.Approved++
				result.ByMerchant[a.MerchantID]++
				approvedShifts[a.ShiftID] = struct{}{}
			}
		}
		result.Skipped = len(ids) - len(approvedShifts)
		return nil
	})
	if err != nil {
		return BatchResult{}, err
	}
	for i := 0; i < result.Approved; i++ {
		s.recorder.AnomalyTransitioned(StatusManuallyApproved)
	}
	return result, nil
}

// DetectMissingPunches flags shifts that ended more than the grace period ago
// without a check-in or a check-out.
func (s *Service) DetectMissingPunches(ctx context.Context, merchantID string) (MissingPunchResult, error) {
	now := s.clock.Now()
	merchant, err := s.store.GetMerchant(ctx, merchantID)
	if err != nil {
		return MissingPunchResult{}, err
	}
	policy := s.policy.ForMerchant(merchant)

	result := MissingPunchResult{MerchantID: merchant.ID}
	err = s.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		shifts, err := s.store.ListUnpunchedShifts(txCtx, merchant.ID, now.Add(-policy.MissingPunchGrace))
		if err != nil {
			return err
		}
		for _, sa := range shifts {
			var t AnomalyType
			switch {
			case sa.CheckIn == nil:
				t = AnomalyMissingCheckIn
			case sa.CheckOut == nil:
				t = AnomalyMissingCheckOut
			default:
				continue
			}
			_, created, err := s.openAnomaly(txCtx, sa.Shift, t, nil, now)
			if err != nil {
				return err
			}
			if !created {
				continue
			}
			if t == AnomalyMissingCheckIn {
				result.MissingCheckIn++
			} else {
				result.MissingCheckOut++
			}
			if err := s.store.UpdateShiftStatus(txCtx, sa.Shift.ID, ShiftAnomalous); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return MissingPunchResult{}, err
	}
	for i := 0; i < result.MissingCheckIn; i++ {
		s.recorder.AnomalyRaised(AnomalyMissingCheckIn)
	}
	for i := 0; i < result.MissingCheckOut; i++ {
		s.recorder.AnomalyRaised(AnomalyMissingCheckOut)
	}
	return result, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
