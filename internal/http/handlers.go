package http

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/b1411/finka/internal/core"
	"github.com/b1411/finka/internal/export"
	"github.com/b1411/finka/internal/log"
	"github.com/b1411/finka/internal/stats"
	"github.com/go-chi/chi/v5"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

// handleReady checks the staging store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Store.LastUpdated(r.Context(), ""); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed",
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "store unavailable").Write(w)
		return
	}
	NewResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleValidation(w http.ResponseWriter, r *http.Request) {
	scope, err := ParseScope(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	res, err := s.deps.Validator.Validate(r.Context(), scope)
	if err != nil {
		s.fail(w, r, "Validation failed", err)
		return
	}
	NewResponse().JSON(res).Write(w)
}

// handleETL runs the pipeline for a scope. With publish=true the result
// replaces the scope's stored ledgers; otherwise it is only returned.
func (s *Server) handleETL(w http.ResponseWriter, r *http.Request) {
	scope, err := ParseScope(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	if !ParseBool(r, "publish", false) {
		res := s.deps.Pipeline.RunFullETLProcess(r.Context(), scope)
		writeRun(w, res.Success, res)
		return
	}

	if s.deps.Publisher == nil {
		ErrorResponse(http.StatusServiceUnavailable, "ledger publishing is not configured").Write(w)
		return
	}
	res, err := s.deps.Publisher.Process(r.Context(), scope)
	if err != nil && res.Success {
		// The run worked but storing it did not.
		s.fail(w, r, "Ledger publication failed", err)
		return
	}
	writeRun(w, res.Success, res)
}

// writeRun reports a failed run as 422 with the run report as body.
func writeRun(w http.ResponseWriter, ok bool, res any) {
	status := http.StatusOK
	if !ok {
		status = http.StatusUnprocessableEntity
	}
	NewResponse().Status(status).JSON(res).Write(w)
}

// handleConsolidated returns the published FOT lines, or with live=true
// consolidates the approved staging data without storing anything.
func (s *Server) handleConsolidated(w http.ResponseWriter, r *http.Request) {
	scope, err := ParseScope(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var lines []core.ConsolidatedLine
	if ParseBool(r, "live", false) {
		lines, err = s.deps.Pipeline.ConsolidateDataToFOT(r.Context(), scope.OrgUnitCode, scope.PeriodYM)
	} else {
		var l core.Ledgers
		l, err = s.deps.Store.Ledgers(r.Context(), scope)
		lines = l.Consolidated
	}
	if err != nil {
		s.fail(w, r, "Reading consolidated ledger failed", err)
		return
	}
	if lines == nil {
		lines = []core.ConsolidatedLine{}
	}
	NewResponse().JSON(map[string]any{"scope": scope, "lines": lines}).Write(w)
}

// handleExport streams the scope's ledgers as an xlsx workbook. live=true
// exports a fresh pipeline run instead of the published ledgers.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	scope, err := ParseScope(r)
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	var ledgers core.Ledgers
	if ParseBool(r, "live", false) {
		res := s.deps.Pipeline.RunFullETLProcess(r.Context(), scope)
		if !res.Success {
			UnprocessableEntityError("etl run failed", res.Errors).Write(w)
			return
		}
		ledgers = res.Ledgers()
	} else if ledgers, err = s.deps.Store.Ledgers(r.Context(), scope); err != nil {
		s.fail(w, r, "Reading ledgers failed", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, ledgers); err != nil {
		s.fail(w, r, "Workbook export failed", err)
		return
	}
	NewResponse().
		Header("Content-Disposition", fmt.Sprintf(`attachment; filename="finka_%s_%s.xlsx"`, scope.OrgUnitCode, scope.PeriodYM)).
		Bytes(xlsxContentType, buf.Bytes()).
		Write(w)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	org := sanitizeInput(r.URL.Query().Get("org"))
	NewResponse().JSON(stats.Collect(r.Context(), s.deps.Store, org)).Write(w)
}

func (s *Server) handleCreateRecord(w http.ResponseWriter, r *http.Request) {
	domain, err := core.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	rec, err := readRecord(r, domain)
	if err != nil {
		if errors.Is(err, errBodyTooLarge) {
			ErrorResponse(http.StatusRequestEntityTooLarge, err.Error()).Write(w)
			return
		}
		BadRequestError(err.Error()).Write(w)
		return
	}

	saved, issues, err := s.deps.Workflow.SaveRecord(r.Context(), ParseActor(r), rec)
	if err != nil {
		s.fail(w, r, "Saving record failed", err)
		return
	}
	if len(issues) > 0 {
		UnprocessableEntityError("record failed validation", issues).Write(w)
		return
	}
	NewResponse().Status(http.StatusCreated).JSON(saved).Write(w)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	domain, err := core.ParseDomain(chi.URLParam(r, "domain"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	action, err := core.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	rec, err := s.deps.Workflow.Transition(r.Context(), ParseActor(r), domain, chi.URLParam(r, "id"), action)
	if err != nil {
		s.fail(w, r, "Status transition failed", err)
		return
	}
	NewResponse().JSON(rec).Write(w)
}

// fail logs err when it is not the caller's fault and writes the mapped
// error response.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	resp := FromError(err)
	if statusFor(err) >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), msg,
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldError, err)
	}
	resp.Write(w)
}
