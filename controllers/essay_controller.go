package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ElysiaEssayCorrector/RAG-Vinicius/db"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/grading"
	reportfmt "github.com/ElysiaEssayCorrector/RAG-Vinicius/internal/report"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/models"
	"github.com/ElysiaEssayCorrector/RAG-Vinicius/services"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// EssayController exposes the grading service over HTTP.
type EssayController struct {
	service *services.GradingService
	logger  *zap.Logger
}

func NewEssayController(service *services.GradingService, logger *zap.Logger) *EssayController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EssayController{service: service, logger: logger}
}

// GradeEssay scores an essay and returns the report.
func (ec *EssayController) GradeEssay(c *gin.Context) {
	var req models.GradeEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	report, err := ec.service.Grade(c.Request.Context(), req.Theme, req.Essay)
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GradeEssayAsync starts a background run.
func (ec *EssayController) GradeEssayAsync(c *gin.Context) {
	var req models.GradeEssayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}

	runID := ec.service.GradeAsync(req.Theme, req.Essay)
	c.JSON(http.StatusAccepted, gin.H{
		"runId":       runID,
		"statusUrl":   "/essays/runs/" + runID,
		"progressUrl": "/essays/runs/" + runID + "/progress",
	})
}

func (ec *EssayController) GetRun(c *gin.Context) {
	status, err := ec.service.Run(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (ec *EssayController) GetReport(c *gin.Context) {
	report, err := ec.service.Report(c.Request.Context(), c.Param("id"))
	if errors.Is(err, db.ErrReportNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		ec.logger.Error("failed to load report", zap.String("report_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load report"})
		return
	}

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, report)
	case "markdown":
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(reportfmt.Markdown(report)))
	case "html":
		html, err := reportfmt.HTML(report)
		if err != nil {
			ec.logger.Error("failed to render report", zap.String("report_id", report.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be json, markdown or html"})
	}
}

func (ec *EssayController) ListReports(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxListLimit)
	}

	reports, err := ec.service.ListReports(c.Request.Context(), limit)
	if err != nil {
		ec.logger.Error("failed to list reports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reports"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

// SuggestStructure proposes an essay outline for a theme.
func (ec *EssayController) SuggestStructure(c *gin.Context) {
	var req models.StructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	out, err := ec.service.SuggestStructure(c.Request.Context(), req.Theme)
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// AnalyzeRepertoire evaluates the sociocultural repertoire of an essay.
func (ec *EssayController) AnalyzeRepertoire(c *gin.Context) {
	var req models.RepertoireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badPayload(c)
		return
	}
	out, err := ec.service.AnalyzeRepertoire(c.Request.Context(), req.Essay)
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func badPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload", "kind": grading.KindInput})
}

// StatusFor maps a pipeline failure to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, grading.ErrEmptyContext):
		return http.StatusUnprocessableEntity
	case errors.Is(err, grading.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	}
	switch grading.FailureKindOf(err) {
	case grading.KindInput:
		return http.StatusBadRequest
	case grading.KindScoring:
		return http.StatusBadGateway
	case grading.KindCanceled:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (ec *EssayController) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	kind := grading.FailureKindOf(err)
	stage, competency := grading.StageOf(err)

	body := gin.H{"error": err.Error(), "kind": kind}
	if stage != "" {
		body["stage"] = stage
	}
	if competency > 0 {
		body["competency"] = competency
	}
	if status >= http.StatusInternalServerError {
		ec.logger.Error("request failed", zap.String("kind", string(kind)), zap.String("stage", string(stage)), zap.Error(err))
	}
	c.Error(err)
	c.JSON(status, body)
}
