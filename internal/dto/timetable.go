package dto

import (
	"time"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
)

// GenerationConfig overrides scheduler defaults for a single run.
type GenerationConfig struct {
	MaxBacktrackSteps   int                `json:"maxBacktrackSteps" validate:"omitempty,min=1"`
	TimeBudgetMs        int                `json:"timeBudgetMs" validate:"omitempty,min=1"`
	RandomSeed          *int64             `json:"randomSeed,omitempty"`
	SoftWeightOverrides map[string]float64 `json:"softWeightOverrides,omitempty"`
}

// GenerateTimetableRequest asks the engine to build a timetable for a snapshot.
type GenerateTimetableRequest struct {
	State  models.TimetableState `json:"state"`
	Meta   models.TimetableMeta  `json:"meta"`
	Config GenerationConfig      `json:"config"`
}

// GenerateTimetableResponse returns a generated proposal with its audit.
type GenerateTimetableResponse struct {
	ProposalID string            `json:"proposalId"`
	ExpiresAt  time.Time         `json:"expiresAt"`
	Result     *scheduler.Result `json:"result"`
	Conflicts  []models.Conflict `json:"conflicts"`
	Summary    ConflictSummary   `json:"summary"`
}

// BatchGenerateRequest runs several independent snapshots.
type BatchGenerateRequest struct {
	Items []GenerateTimetableRequest `json:"items" validate:"required,min=1,max=16"`
}

// BatchItemResult reports one snapshot outcome; Error is set when it failed.
type BatchItemResult struct {
	Index    int                        `json:"index"`
	Proposal *GenerateTimetableResponse `json:"proposal,omitempty"`
	Error    *BatchItemError            `json:"error,omitempty"`
}

// BatchItemError mirrors the application error envelope for a batch item.
type BatchItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchGenerateResponse lists per-snapshot outcomes in request order.
type BatchGenerateResponse struct {
	Items []BatchItemResult `json:"items"`
}

// AuditTimetableRequest audits an arbitrary timetable against a snapshot.
type AuditTimetableRequest struct {
	Timetable models.Timetable      `json:"timetable"`
	State     models.TimetableState `json:"state"`
}

// AuditStoredRequest audits a persisted timetable against a snapshot.
type AuditStoredRequest struct {
	State models.TimetableState `json:"state"`
}

// ConflictSummary counts conflicts per severity.
type ConflictSummary struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// AuditTimetableResponse lists detected conflicts.
type AuditTimetableResponse struct {
	Conflicts []models.Conflict `json:"conflicts"`
	Summary   ConflictSummary   `json:"summary"`
	Cached    bool              `json:"cached"`
}

// SaveTimetableRequest persists a generated proposal.
type SaveTimetableRequest struct {
	ProposalID   string `json:"proposalId" validate:"required"`
	AllowPartial bool   `json:"allowPartial"`
}

// TimetableQuery filters persisted timetables.
type TimetableQuery struct {
	Department string `form:"department" json:"department"`
	Semester   int    `form:"semester" json:"semester" validate:"omitempty,min=1"`
	Year       int    `form:"year" json:"year" validate:"omitempty,min=2000"`
	Shift      string `form:"shift" json:"shift" validate:"omitempty,oneof=MORNING EVENING"`
	Status     string `form:"status" json:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Page       int    `form:"page" json:"page"`
	PageSize   int    `form:"page_size" json:"page_size"`
}

// TimetableDetail is a persisted timetable with its slots.
type TimetableDetail struct {
	Record    models.TimetableRecord `json:"record"`
	Timetable models.Timetable       `json:"timetable"`
}

// RunStatus is the lifecycle of an asynchronous generation run.
type RunStatus string

const (
	RunQueued    RunStatus = "queued"
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunResponse reports an asynchronous generation run.
type RunResponse struct {
	ID         string                     `json:"id"`
	Status     RunStatus                  `json:"status"`
	Proposal   *GenerateTimetableResponse `json:"proposal,omitempty"`
	Error      *BatchItemError            `json:"error,omitempty"`
	CreatedAt  time.Time                  `json:"createdAt"`
	FinishedAt *time.Time                 `json:"finishedAt,omitempty"`
}

// ExportFormat selects a rendering for stored timetables.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// ExportFile is a rendered timetable document.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
