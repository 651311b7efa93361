package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/metrics"
	"github.com/b1411/finka/internal/staging"
	"github.com/b1411/finka/internal/validation"
)

// ErrSubmissionBlocked is returned when gating is on and the record still
// has validation errors.
var ErrSubmissionBlocked = errors.New("submission blocked by validation errors")

// ETLPublisher queues ledger rebuilds. *amqp.Client implements it.
type ETLPublisher interface {
	PublishETLRequest(ctx context.Context, scope core.Scope) error
}

type RecordStore interface {
	staging.RecordReader
	staging.RecordWriter
}

// WorkflowService moves staging records through draft, submitted and
// approved, and stores new records.
type WorkflowService struct {
	store     RecordStore
	publisher ETLPublisher
	validator *validation.Service
	gate      bool
	metrics   *metrics.Metrics
	logger    *log.Logger
}

type WorkflowConfig struct {
	// GateSubmissions refuses submit when the record has validation errors.
	GateSubmissions bool
	Metrics         *metrics.Metrics
	Logger          *log.Logger
}

// NewWorkflowService wires the service. publisher may be nil, in which case
// approvals do not queue ETL runs.
func NewWorkflowService(store RecordStore, validator *validation.Service, publisher ETLPublisher, cfg WorkflowConfig) *WorkflowService {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	return &WorkflowService{
		store:     store,
		publisher: publisher,
		validator: validator,
		gate:      cfg.GateSubmissions,
		metrics:   cfg.Metrics,
		logger:    logger.WithComponent(log.ComponentWorkflow),
	}
}

// SaveRecord stores a record after its field checks pass. Saving resets an
// existing record to draft. Approved records can only be changed by an
// approver role.
func (s *WorkflowService) SaveRecord(ctx context.Context, actor core.Scope, rec core.Record) (core.Record, []validation.Issue, error) {
	m := rec.Base()
	if actor.OrgUnitCode != "" && m.OrgUnitCode != actor.OrgUnitCode {
		return nil, nil, fmt.Errorf("%w: record belongs to %s", core.ErrInvalidScope, m.OrgUnitCode)
	}
	if m.ID != "" {
		if err := s.checkOverwrite(ctx, actor, rec.Domain(), m.ID); err != nil {
			return nil, nil, err
		}
	}
	if issues := validation.ValidateRecord(rec); len(issues) > 0 {
		return nil, issues, nil
	}

	m.Status = core.StatusDraft
	if m.UserID == "" {
		m.UserID = actor.UserID
	}
	rec, err := core.WithMeta(rec, m)
	if err != nil {
		return nil, nil, err
	}
	saved, err := s.store.Save(ctx, rec)
	if err != nil {
		return nil, nil, fmt.Errorf("save record: %w", err)
	}
	s.invalidate(saved.Base())

	s.logger.InfoContext(ctx, "Staging record saved",
		log.FieldOperation, log.OpCreate,
		log.FieldDomain, saved.Domain(),
		log.FieldRecordID, saved.Base().ID,
		log.FieldOrgUnit, saved.Base().OrgUnitCode,
		log.FieldPeriod, saved.Base().PeriodYM)
	return saved, nil, nil
}

// Transition applies action to a record and returns it in its new state.
// Approving a record queues an ETL run for its branch and period.
func (s *WorkflowService) Transition(ctx context.Context, actor core.Scope, domain core.Domain, id string, action core.Action) (core.Record, error) {
	rec, err := s.store.Get(ctx, domain, id)
	if err != nil {
		return nil, err
	}
	m := rec.Base()
	if actor.OrgUnitCode != "" && m.OrgUnitCode != actor.OrgUnitCode {
		return nil, fmt.Errorf("%w: record belongs to %s", core.ErrInvalidScope, m.OrgUnitCode)
	}

	next, err := m.Status.Transition(action)
	if err != nil {
		return nil, err
	}
	if action == core.ActionApprove && !actor.Role.Approver() {
		return nil, fmt.Errorf("%w: role %q cannot approve", core.ErrInvalidTransition, actor.Role)
	}

	if s.gate && action == core.ActionSubmit && s.validator != nil {
		if err := s.checkSubmission(ctx, m); err != nil {
			return nil, err
		}
	}

	if err := s.store.UpdateStatus(ctx, domain, id, next); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	s.invalidate(m)
	s.metrics.ObserveTransition(string(domain), string(action))

	s.logger.InfoContext(ctx, "Record status changed",
		log.FieldOperation, log.OpTransition,
		log.FieldDomain, domain,
		log.FieldRecordID, id,
		log.FieldOrgUnit, m.OrgUnitCode,
		log.FieldPeriod, m.PeriodYM,
		log.FieldUserID, actor.UserID,
		"from", m.Status,
		"to", next)

	if next == core.StatusApproved {
		s.requestETL(ctx, core.Scope{OrgUnitCode: m.OrgUnitCode, PeriodYM: m.PeriodYM, UserID: actor.UserID})
	}

	return s.store.Get(ctx, domain, id)
}

// checkOverwrite refuses saving over a record of another branch, and over
// an approved record unless actor is an approver.
func (s *WorkflowService) checkOverwrite(ctx context.Context, actor core.Scope, domain core.Domain, id string) error {
	existing, err := s.store.Get(ctx, domain, id)
	if errors.Is(err, core.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load record: %w", err)
	}
	em := existing.Base()
	if actor.OrgUnitCode != "" && em.OrgUnitCode != actor.OrgUnitCode {
		return fmt.Errorf("%w: record belongs to %s", core.ErrInvalidScope, em.OrgUnitCode)
	}
	if em.Status == core.StatusApproved && !actor.Role.Approver() {
		return fmt.Errorf("%w: %s %s is approved", core.ErrInvalidTransition, domain, id)
	}
	return nil
}

func (s *WorkflowService) checkSubmission(ctx context.Context, m core.Meta) error {
	res, err := s.validator.Validate(ctx, core.Scope{OrgUnitCode: m.OrgUnitCode, PeriodYM: m.PeriodYM})
	if err != nil {
		return fmt.Errorf("validate before submit: %w", err)
	}
	for _, issue := range res.Errors {
		if issue.RecordID == m.ID {
			return fmt.Errorf("%w: %s", ErrSubmissionBlocked, issue.Message)
		}
	}
	return nil
}

func (s *WorkflowService) invalidate(m core.Meta) {
	if s.validator != nil {
		s.validator.Invalidate(m.OrgUnitCode, m.PeriodYM)
	}
}

// requestETL never fails the transition; the approval is already stored.
func (s *WorkflowService) requestETL(ctx context.Context, scope core.Scope) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No ETL publisher configured, skipping request",
			log.FieldOrgUnit, scope.OrgUnitCode,
			log.FieldPeriod, scope.PeriodYM)
		return
	}
	if err := s.publisher.PublishETLRequest(ctx, scope); err != nil {
		s.logger.ErrorContext(ctx, "Failed to queue ETL run",
			log.FieldOrgUnit, scope.OrgUnitCode,
			log.FieldPeriod, scope.PeriodYM,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
	}
}
