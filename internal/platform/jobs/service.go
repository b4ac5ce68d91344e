package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"staffhub/internal/domain/attendance"
	"staffhub/internal/platform/config"
	"staffhub/internal/platform/db"
)

const (
	JobAutoValidate = "attendance_auto_validate"
	JobMissingPunch = "attendance_missing_punches"
	queueCapacity   = 128
	statusRunning   = "running"
	statusCompleted = "completed"
	statusFailed    = "failed"
)

// Attendance is the part of the engine the schedulers drive.
type Attendance interface {
	AutoValidateSweep(ctx context.Context, merchantID string) (attendance.SweepResult, error)
	DetectMissingPunches(ctx context.Context, merchantID string) (attendance.MissingPunchResult, error)
}

type MerchantLister interface {
	ListMerchantIDs(ctx context.Context) ([]string, error)
}

type Service struct {
	DB        db.Queryer
	Cfg       config.Config
	engine    Attendance
	merchants MerchantLister
	queue     chan job
}

type job struct {
	Type       string
	MerchantID string
	Run        func(context.Context) (any, error)
}

func New(q db.Queryer, cfg config.Config, engine Attendance, merchants MerchantLister) *Service {
	return &Service{
		DB:        q,
		Cfg:       cfg,
		engine:    engine,
		merchants: merchants,
		queue:     make(chan job, queueCapacity),
	}
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	if s.Cfg.AutoValidateInterval > 0 {
		go s.schedule(ctx, s.Cfg.AutoValidateInterval, JobAutoValidate, s.autoValidate)
	}
	if s.Cfg.MissingPunchInterval > 0 {
		go s.schedule(ctx, s.Cfg.MissingPunchInterval, JobMissingPunch, s.detectMissing)
	}
}

func (s *Service) Enqueue(jobType, merchantID string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, MerchantID: merchantID, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType, "merchantId", merchantID)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType, merchantID string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, MerchantID: merchantID, Run: run})
}

// AutoValidateNow runs the sweep for one merchant synchronously, recording it like a scheduled run.
func (s *Service) AutoValidateNow(ctx context.Context, merchantID string) (attendance.SweepResult, error) {
	details, err := s.RunNow(ctx, JobAutoValidate, merchantID, func(ctx context.Context) (any, error) {
		return s.autoValidate(ctx, merchantID)
	})
	result, _ := details.(attendance.SweepResult)
	return result, err
}

func (s *Service) DetectMissingNow(ctx context.Context, merchantID string) (attendance.MissingPunchResult, error) {
	details, err := s.RunNow(ctx, JobMissingPunch, merchantID, func(ctx context.Context) (any, error) {
		return s.detectMissing(ctx, merchantID)
	})
	result, _ := details.(attendance.MissingPunchResult)
	return result, err
}

func (s *Service) autoValidate(ctx context.Context, merchantID string) (any, error) {
	return s.engine.AutoValidateSweep(ctx, merchantID)
}

func (s *Service) detectMissing(ctx context.Context, merchantID string) (any, error) {
	return s.engine.DetectMissingPunches(ctx, merchantID)
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "merchantId", j.MerchantID, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.DB != nil {
		if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (merchant_id, job_type, status)
    VALUES (NULLIF($1,'')::uuid,$2,$3)
    RETURNING id
  `, j.MerchantID, j.Type, statusRunning).Scan(&runID); err != nil {
			slog.Warn("job run insert failed", "err", err)
		}
	}

	details, err := j.Run(ctx)
	status := statusCompleted
	if err != nil {
		status = statusFailed
		details = map[string]any{"error": err.Error()}
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, details_json = $2, completed_at = now()
      WHERE id = $3
    `, status, detailsJSON, runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	if err != nil {
		return nil, err
	}
	return details, nil
}

func (s *Service) schedule(ctx context.Context, interval time.Duration, jobType string, run func(context.Context, string) (any, error)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			merchants, err := s.merchants.ListMerchantIDs(ctx)
			if err != nil {
				slog.Warn("scheduler merchant lookup failed", "jobType", jobType, "err", err)
				continue
			}
			for _, merchantID := range merchants {
				merchant := merchantID
				s.Enqueue(jobType, merchant, func(ctx context.Context) (any, error) {
					return run(ctx, merchant)
				})
			}
		}
	}
}
