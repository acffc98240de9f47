// Package sync orchestrates pushing passing grades into Learndot. It drives
// the Learndot client for a single grade event or for a batch run over many
// learners, logging and continuing on per-item failures so one learner never
// blocks the rest.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/open-craft/learndot-sync/internal/grades"
	"github.com/open-craft/learndot-sync/internal/learndot"
	"github.com/open-craft/learndot-sync/internal/logger"
	"github.com/open-craft/learndot-sync/internal/mappings"
)

// Options control a batch run.
type Options struct {
	// Usernames restricts the run to these learners; empty means all
	Usernames []string

	// CourseKeys restricts the run to these courses; empty means all
	CourseKeys []string

	// Unconditional skips the status-log check and re-sends every status
	Unconditional bool

	// CreatedAfter/CreatedBefore restrict the run to grade records whose
	// platform enrollment was created in the given range. Zero values leave
	// the corresponding bound open.
	CreatedAfter  time.Time
	CreatedBefore time.Time
}

// Summary reports what a batch run did.
type Summary struct {
	// Processed is the number of grade records examined
	Processed int

	// Updated is the number of enrolment updates attempted successfully
	Updated int

	// Skipped is records not acted on: not passed, no contact, or outside
	// the requested scope
	Skipped int

	// Failed is records whose update failed; each failure is logged
	Failed int
}

// Manager coordinates enrolment updates.
type Manager struct {
	client   learndot.Client
	mappings *mappings.Store
	grades   grades.Source
}

// NewManager creates a sync manager. The grade source may be nil when only
// single-event handling is used.
func NewManager(client learndot.Client, store *mappings.Store, source grades.Source) *Manager {
	return &Manager{
		client:   client,
		mappings: store,
		grades:   source,
	}
}

// HandleGradeNowPassed processes one "grade now passed" event: it resolves
// the learner's Learndot contact and marks their current enrolment PASSED for
// every component mapped to the course. Per-component failures are logged and
// do not stop the remaining components.
func (m *Manager) HandleGradeNowPassed(ctx context.Context, learner learndot.Learner, courseKey string) error {
	logger.Infof("Updating Learndot enrolment for new passing grade: user=%s, course=%s", learner, courseKey)

	contactID, err := m.client.GetContactID(ctx, learner)
	if err != nil {
		return err
	}
	if contactID == 0 {
		logger.Errorf("Could not locate Learndot contact for user %s", learner)
		return nil
	}

	for _, componentID := range m.mappings.ComponentsForCourse(courseKey) {
		enrolmentID, err := m.client.GetEnrolmentID(ctx, contactID, componentID)
		if err != nil {
			logger.Errorf("Could not resolve enrolment for contact %d, component %d: %v", contactID, componentID, err)
			continue
		}
		if enrolmentID == 0 {
			logger.Errorf("No enrolment found for contact %d, component %d", contactID, componentID)
			continue
		}

		if err := m.client.SetEnrolmentStatusToPassed(ctx, enrolmentID, false); err != nil {
			logger.Errorf("Could not set status of enrolment %d: %v", enrolmentID, err)
			continue
		}
		logger.Infof(
			"Enrolment status set to %s for enrolment %d of learner %s in course %s",
			learndot.StatusPassed, enrolmentID, learner, courseKey,
		)
	}

	return nil
}

// RunBatch walks the mapped courses, reads their grade records, and marks the
// enrolments of passing learners PASSED. It fails only when the course filter
// matches no mappings; per-record failures are counted and logged.
func (m *Manager) RunBatch(ctx context.Context, opts Options) (Summary, error) {
	var summary Summary

	selected := m.mappings.FilterByCourses(opts.CourseKeys)
	if len(selected) == 0 {
		if len(opts.CourseKeys) > 0 {
			return summary, fmt.Errorf("no course mappings were found for the specified course IDs")
		}
		return summary, fmt.Errorf("no course mappings were found")
	}

	runID := uuid.NewString()
	logger.Infof("Starting batch enrolment update %s over %d course mappings", runID, len(selected))

	usernames := toSet(opts.Usernames)

	for _, cm := range selected {
		logger.Infof("[%s] Processing grade records in course %s", runID, cm.CourseKey)

		records, err := m.grades.Records(ctx, cm.CourseKey)
		if err != nil {
			logger.Errorf("[%s] Could not read grade records for course %s: %v", runID, cm.CourseKey, err)
			continue
		}

		for _, record := range records {
			if len(usernames) > 0 {
				if _, ok := usernames[record.Learner.Username]; !ok {
					continue
				}
			}
			if !inCreatedRange(record.CreatedAt, opts.CreatedAfter, opts.CreatedBefore) {
				continue
			}

			summary.Processed++

			if !record.Passed {
				logger.Infof(
					"[%s] Not setting enrolment status for user %s in course %s, because the grade is not passing",
					runID, record.Learner, cm.CourseKey,
				)
				summary.Skipped++
				continue
			}

			contactID, err := m.client.GetContactID(ctx, record.Learner)
			if err != nil {
				logger.Errorf("[%s] Could not resolve contact for user %s: %v", runID, record.Learner, err)
				summary.Failed++
				continue
			}
			if contactID == 0 {
				logger.Infof(
					"[%s] Not setting enrolment status for user %s in course %s, because no contact was found",
					runID, record.Learner, cm.CourseKey,
				)
				summary.Skipped++
				continue
			}

			if err := m.client.CheckEnrolmentAndSetPassed(ctx, contactID, cm.ComponentID, opts.Unconditional); err != nil {
				logger.Errorf(
					"[%s] Could not update enrolment for contact %d, component %d: %v",
					runID, contactID, cm.ComponentID, err,
				)
				summary.Failed++
				continue
			}
			summary.Updated++
		}
	}

	logger.Infof(
		"[%s] Batch enrolment update finished: processed=%d updated=%d skipped=%d failed=%d",
		runID, summary.Processed, summary.Updated, summary.Skipped, summary.Failed,
	)

	return summary, nil
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}

func inCreatedRange(created, after, before time.Time) bool {
	if !after.IsZero() && created.Before(after) {
		return false
	}
	if !before.IsZero() && created.After(before) {
		return false
	}
	return true
}
