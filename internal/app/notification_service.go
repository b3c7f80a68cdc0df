// internal/app/notification_service.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"license_notification_bot/internal/domain/license"
	"license_notification_bot/internal/domain/messenger"
)

// NotificationService defines the operations of the license expiry pipeline.
type NotificationService interface {
	// RunCycle loads every source, evaluates expiry against today and sends
	// one alert per matching record to the configured group.
	RunCycle(ctx context.Context) (CycleReport, error)
	// ListExpiring evaluates the current sources without sending anything.
	ListExpiring(ctx context.Context) ([]license.Evaluation, error)
}

// RecordLoader yields the full license collection for one cycle.
type RecordLoader interface {
	LoadAll(ctx context.Context) ([]license.Record, error)
}

// AlertPublisher receives a copy of every delivered alert. Optional.
type AlertPublisher interface {
	Publish(ctx context.Context, alert Alert) error
}

// Alert is one rendered notification produced by a cycle.
type Alert struct {
	CycleID     string
	Evaluation  license.Evaluation
	Text        string
	EvaluatedAt time.Time
}

// CycleReport summarises one run of the pipeline.
type CycleReport struct {
	CycleID string
	Loaded  int
	Matched int
	Sent    int
	Failed  int
}

// ExpiryNotificationService implements the NotificationService interface.
type ExpiryNotificationService struct {
	records   RecordLoader
	messenger messenger.Client
	publisher AlertPublisher
	groupName string
	logger    *logrus.Entry
	now       func() time.Time
}

func NewExpiryNotificationService(
	records RecordLoader,
	client messenger.Client,
	publisher AlertPublisher, // may be nil
	groupName string,
	logger *logrus.Entry,
) *ExpiryNotificationService {
	return &ExpiryNotificationService{
		records:   records,
		messenger: client,
		publisher: publisher,
		groupName: groupName,
		logger:    logger,
		now:       time.Now,
	}
}

// RunCycle executes one Aggregator -> Evaluator -> Formatter -> Sender pass.
// A failed send is logged and does not stop the remaining alerts; all send
// failures are joined into the returned error.
func (s *ExpiryNotificationService) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{CycleID: uuid.NewString()}
	logCtx := s.logger.WithField("cycle_id", report.CycleID)
	now := s.now()

	logCtx.Info("Starting license expiry check")

	records, err := s.records.LoadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load licenses: %w", err)
	}
	report.Loaded = len(records)

	matches := FilterExpiring(records, now)
	report.Matched = len(matches)

	group, err := s.messenger.FindGroup(ctx, s.groupName)
	if err != nil {
		logCtx.WithError(err).WithFields(logrus.Fields{
			"group":   s.groupName,
			"pending": len(matches),
		}).Error("Destination group could not be resolved, no alerts sent this cycle")
		return report, err
	}

	if len(matches) == 0 {
		logCtx.WithField("records", report.Loaded).Info("No licenses at an alert threshold today")
		return report, nil
	}

	var sendErrs []error
	for _, match := range matches {
		entryLog := logCtx.WithFields(logrus.Fields{
			"bank":      match.Record.BankName,
			"license":   match.Record.LicenseID,
			"days_left": match.DaysLeft,
			"source":    match.Record.Source,
		})

		text := RenderAlert(match.Record, match.DaysLeft)
		if err := s.messenger.Send(ctx, group, text); err != nil {
			report.Failed++
			entryLog.WithError(err).Error("Failed to send license alert")
			sendErrs = append(sendErrs, err)
			continue
		}
		report.Sent++
		entryLog.Info("License alert sent")

		if s.publisher == nil {
			continue
		}
		alert := Alert{CycleID: report.CycleID, Evaluation: match, Text: text, EvaluatedAt: now}
		if err := s.publisher.Publish(ctx, alert); err != nil {
			entryLog.WithError(err).Warn("Failed to publish license alert event")
		}
	}

	logCtx.WithFields(logrus.Fields{
		"records": report.Loaded,
		"matched": report.Matched,
		"sent":    report.Sent,
		"failed":  report.Failed,
	}).Info("License expiry check finished")

	if len(sendErrs) > 0 {
		return report, fmt.Errorf("%d of %d alerts failed: %w", report.Failed, report.Matched, errors.Join(sendErrs...))
	}
	return report, nil
}

// ListExpiring returns today's threshold matches without notifying anyone.
func (s *ExpiryNotificationService) ListExpiring(ctx context.Context) ([]license.Evaluation, error) {
	records, err := s.records.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load licenses: %w", err)
	}
	return FilterExpiring(records, s.now()), nil
}
