package service

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/export"
)

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, record *models.TimetableRecord) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.TimetableRecord, int, error)
	FindByID(ctx context.Context, id string) (*models.TimetableRecord, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, record *models.TimetableRecord) error
}

type timetableSlotRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, slots []models.TimetableSlotRecord) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableSlotRecord, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// TimetableServiceConfig tunes engine defaults and service behaviour.
type TimetableServiceConfig struct {
	MaxBacktrackSteps int
	TimeBudget        time.Duration
	MaxTimeBudget     time.Duration
	SlotMinutes       int
	LoadSpread        int
	ProposalTTL       time.Duration
	CacheTTL          time.Duration
	BatchConcurrency  int
	RunRetention      time.Duration
	ExportsEnabled    bool
	PDFTitle          string
}

// TimetableService orchestrates generation, auditing and persistence of timetables.
type TimetableService struct {
	timetables timetableRepository
	slots      timetableSlotRepository
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	csv        csvRenderer
	pdf        pdfRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
	store      *proposalStore
	runs       *runStore
	queue      runQueue
	now        func() time.Time
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	timetables timetableRepository,
	slots timetableSlotRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	if cfg.MaxTimeBudget <= 0 {
		cfg.MaxTimeBudget = 30 * time.Second
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	if cfg.RunRetention <= 0 {
		cfg.RunRetention = time.Hour
	}
	if cfg.LoadSpread <= 0 {
		cfg.LoadSpread = 3
	}
	if cfg.PDFTitle == "" {
		cfg.PDFTitle = "Weekly Timetable"
	}
	svc := &TimetableService{
		timetables: timetables,
		slots:      slots,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
	svc.store = newProposalStore(cfg.ProposalTTL, svc.clock)
	svc.runs = newRunStore(cfg.RunRetention, svc.clock)
	return svc
}

func (s *TimetableService) clock() time.Time {
	return s.now()
}

// Generate runs the engine on a snapshot, audits the outcome and keeps it as
// a proposal that can later be saved.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req.Config); err != nil {
		return nil, validationFailure(err, "invalid timetable generation config")
	}
	if err := s.validator.Struct(req.Meta); err != nil {
		return nil, validationFailure(err, "invalid timetable metadata")
	}

	opts := s.options(req)
	result, err := scheduler.Generate(ctx, req.State, opts)
	if result != nil {
		s.metrics.ObserveGeneration(string(result.Status), result.Stats.Steps, result.Stats.Backtracks, result.Stats.Elapsed)
	}
	if err != nil {
		return nil, s.engineFailure(err, result)
	}

	conflicts, err := scheduler.Audit(*result.Timetable, req.State, s.auditOptions())
	if err != nil {
		return nil, s.engineFailure(err, nil)
	}
	s.metrics.RecordConflicts(conflicts)

	fields := []zap.Field{
		zap.String("fingerprint", result.Fingerprint),
		zap.String("status", string(result.Status)),
		zap.Int("placed", result.Stats.Placed),
		zap.Int("sessions", result.Stats.Sessions),
		zap.Int("steps", result.Stats.Steps),
		zap.Int("backtracks", result.Stats.Backtracks),
		zap.Duration("elapsed", result.Stats.Elapsed),
		zap.Int("conflicts", len(conflicts)),
	}
	if result.Truncated {
		s.logger.Warn("timetable generation truncated", append(fields, zap.String("reason", result.Reason))...)
	} else {
		s.logger.Info("timetable generated", fields...)
	}

	proposal := timetableProposal{
		ID:        uuid.NewString(),
		Result:    result,
		Conflicts: conflicts,
		CreatedAt: s.now(),
	}
	s.store.Save(proposal)

	return proposal.response(s.cfg.ProposalTTL), nil
}

// GenerateBatch runs independent snapshots concurrently. Item failures are
// reported per item and do not abort the batch.
func (s *TimetableService) GenerateBatch(ctx context.Context, req dto.BatchGenerateRequest) (*dto.BatchGenerateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationFailure(err, "invalid batch generation payload")
	}

	items := make([]dto.BatchItemResult, len(req.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.BatchConcurrency)
	for i := range req.Items {
		i := i
		g.Go(func() error {
			items[i].Index = i
			proposal, err := s.Generate(gctx, req.Items[i])
			if err != nil {
				appErr := appErrors.FromError(err)
				items[i].Error = &dto.BatchItemError{Code: appErr.Code, Message: appErr.Message}
				return nil
			}
			items[i].Proposal = proposal
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "batch generation failed")
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, "batch generation cancelled")
	}
	return &dto.BatchGenerateResponse{Items: items}, nil
}

// Audit reports every conflict of a timetable against a snapshot. Results
// are cached by content hash.
func (s *TimetableService) Audit(ctx context.Context, req dto.AuditTimetableRequest) (*dto.AuditTimetableResponse, error) {
	return s.audit(ctx, "audit:", req)
}

// audit runs the auditor behind the cache. Keys are the prefix followed by
// the content hash of the request.
func (s *TimetableService) audit(ctx context.Context, prefix string, req dto.AuditTimetableRequest) (*dto.AuditTimetableResponse, error) {
	hash, err := s.auditHash(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash audit payload")
	}
	key := prefix + hash

	var cached dto.AuditTimetableResponse
	if s.cache.Get(ctx, key, &cached) {
		cached.Cached = true
		return &cached, nil
	}

	conflicts, err := scheduler.Audit(req.Timetable, req.State, s.auditOptions())
	if err != nil {
		return nil, s.engineFailure(err, nil)
	}
	s.metrics.RecordConflicts(conflicts)

	resp := &dto.AuditTimetableResponse{Conflicts: conflicts, Summary: summarize(conflicts)}
	s.cache.Set(ctx, key, resp, s.cfg.CacheTTL)
	s.logger.Debug("timetable audited",
		zap.String("timetable_id", req.Timetable.ID),
		zap.Int("slots", len(req.Timetable.Slots)),
		zap.Int("conflicts", len(conflicts)),
	)
	return resp, nil
}

// Save persists a stored proposal as a new draft version.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", validationFailure(err, "invalid save timetable payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if !req.AllowPartial {
		if proposal.Result.Status != scheduler.StatusComplete {
			return "", appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("proposal is %s; set allowPartial to keep it", proposal.Result.Status))
		}
		if summarize(proposal.Conflicts).High > 0 {
			return "", appErrors.Clone(appErrors.ErrConflict, "proposal contains high severity conflicts")
		}
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tt := proposal.Result.Timetable
	metaPayload := map[string]any{
		"proposalId":  proposal.ID,
		"fingerprint": proposal.Result.Fingerprint,
		"status":      proposal.Result.Status,
		"stats":       proposal.Result.Stats,
		"seed":        proposal.Result.Seed,
		"conflicts":   summarize(proposal.Conflicts),
		"generatedAt": proposal.CreatedAt,
	}
	metaBytes, err := json.Marshal(metaPayload)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	start := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	record := &models.TimetableRecord{
		Title:       tt.Title,
		Description: tt.Description,
		Department:  tt.Department,
		Semester:    tt.Semester,
		Year:        tt.Year,
		Shift:       tt.Shift,
		Status:      models.TimetableStatusDraft,
		Meta:        types.JSONText(metaBytes),
	}
	if err = s.timetables.CreateVersioned(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return "", err
	}

	rows := make([]models.TimetableSlotRecord, 0, len(tt.Slots))
	for _, slot := range tt.Slots {
		rows = append(rows, models.SlotRecordFrom(record.ID, slot))
	}
	if err = s.slots.InsertBatch(ctx, tx, rows); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable slots")
		return "", err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable")
		return "", err
	}
	s.metrics.ObserveDBQuery("timetable_save", time.Since(start))
	s.store.Delete(proposal.ID)

	s.logger.Info("timetable saved",
		zap.String("timetable_id", record.ID),
		zap.String("department", record.Department),
		zap.Int("version", record.Version),
		zap.Int("slots", len(rows)),
	)
	return record.ID, nil
}

// Get loads a persisted timetable with its slots.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableDetail, error) {
	start := time.Now()
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "timetable not found", "failed to load timetable")
	}
	rows, err := s.slots.ListByTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable slots")
	}
	s.metrics.ObserveDBQuery("timetable_get", time.Since(start))
	return &dto.TimetableDetail{Record: *record, Timetable: record.Timetable(rows)}, nil
}

// List returns persisted timetables and pagination metadata.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableRecord, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, validationFailure(err, "invalid timetable filter")
	}
	filter := models.TimetableFilter{
		Department: strings.TrimSpace(query.Department),
		Semester:   query.Semester,
		Year:       query.Year,
		Shift:      models.Shift(query.Shift),
		Status:     models.TimetableStatus(query.Status),
		Page:       query.Page,
		PageSize:   query.PageSize,
	}
	start := time.Now()
	records, total, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	s.metrics.ObserveDBQuery("timetable_list", time.Since(start))

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return records, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Delete removes a draft timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		return notFoundOr(err, "timetable not found", "failed to load timetable")
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrFinalized, "only draft timetables can be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		return notFoundOr(err, "timetable not found", "failed to delete timetable")
	}
	s.cache.Invalidate(ctx, storedAuditPrefix(id)+"*")
	s.logger.Info("timetable deleted", zap.String("timetable_id", id))
	return nil
}

// Publish marks a draft as published and archives the previously published
// version of the same department/semester/year/shift.
func (s *TimetableService) Publish(ctx context.Context, id string) (*models.TimetableRecord, error) {
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "timetable not found", "failed to load timetable")
	}
	switch record.Status {
	case models.TimetableStatusPublished:
		return record, nil
	case models.TimetableStatusArchived:
		return nil, appErrors.Clone(appErrors.ErrFinalized, "archived timetables cannot be published")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.ArchivePublished(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive published timetables")
		return nil, err
	}
	if err = s.timetables.UpdateStatus(ctx, tx, id, models.TimetableStatusPublished); err != nil {
		err = notFoundOr(err, "timetable not found", "failed to publish timetable")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit publish")
		return nil, err
	}

	record.Status = models.TimetableStatusPublished
	s.logger.Info("timetable published", zap.String("timetable_id", id), zap.Int("version", record.Version))
	return record, nil
}

// AuditStored audits a persisted timetable against the supplied snapshot.
func (s *TimetableService) AuditStored(ctx context.Context, id string, req dto.AuditStoredRequest) (*dto.AuditTimetableResponse, error) {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.audit(ctx, storedAuditPrefix(id), dto.AuditTimetableRequest{Timetable: detail.Timetable, State: req.State})
}

func storedAuditPrefix(id string) string {
	return "audit:stored:" + id + ":"
}

// Export renders a persisted timetable as CSV or PDF.
func (s *TimetableService) Export(ctx context.Context, id string, format dto.ExportFormat) (*dto.ExportFile, error) {
	if !s.cfg.ExportsEnabled {
		return nil, appErrors.Clone(appErrors.ErrServiceDisabled, "timetable exports are disabled")
	}
	if format == "" {
		format = dto.ExportCSV
	}
	if format != dto.ExportCSV && format != dto.ExportPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dataset := export.TimetableDataset(detail.Timetable, s.slotMinutes())
	name := fmt.Sprintf("timetable-%s-v%d", sanitizeFilename(detail.Record.Department), detail.Record.Version)
	switch format {
	case dto.ExportPDF:
		title := s.cfg.PDFTitle
		if detail.Record.Title != "" {
			title = detail.Record.Title
		}
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &dto.ExportFile{Filename: name + ".pdf", ContentType: "application/pdf", Content: content}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &dto.ExportFile{Filename: name + ".csv", ContentType: "text/csv", Content: content}, nil
	}
}

func (s *TimetableService) slotMinutes() int {
	if s.cfg.SlotMinutes > 0 {
		return s.cfg.SlotMinutes
	}
	return 60
}

func (s *TimetableService) options(req dto.GenerateTimetableRequest) scheduler.Options {
	opts := scheduler.Options{
		MaxBacktrackSteps: s.cfg.MaxBacktrackSteps,
		TimeBudget:        s.cfg.TimeBudget,
		RandomSeed:        req.Config.RandomSeed,
		SoftWeights:       req.Config.SoftWeightOverrides,
		SlotMinutes:       s.cfg.SlotMinutes,
		Meta:              req.Meta,
		Now:               s.now,
	}
	if req.Config.MaxBacktrackSteps > 0 {
		opts.MaxBacktrackSteps = req.Config.MaxBacktrackSteps
	}
	if req.Config.TimeBudgetMs > 0 {
		opts.TimeBudget = time.Duration(req.Config.TimeBudgetMs) * time.Millisecond
	}
	if opts.TimeBudget > s.cfg.MaxTimeBudget {
		opts.TimeBudget = s.cfg.MaxTimeBudget
	}
	return opts
}

func (s *TimetableService) auditOptions() scheduler.AuditOptions {
	return scheduler.AuditOptions{SlotMinutes: s.cfg.SlotMinutes, LoadSpread: s.cfg.LoadSpread}
}

func (s *TimetableService) auditHash(req dto.AuditTimetableRequest) (string, error) {
	payload, err := json.Marshal(struct {
		Slots       []models.TimetableSlot `json:"slots"`
		State       models.TimetableState  `json:"state"`
		SlotMinutes int                    `json:"slotMinutes"`
		LoadSpread  int                    `json:"loadSpread"`
	}{req.Timetable.Slots, req.State, s.cfg.SlotMinutes, s.cfg.LoadSpread})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// engineFailure maps engine errors onto application errors.
func (s *TimetableService) engineFailure(err error, result *scheduler.Result) error {
	var verr *scheduler.ValidationError
	if errors.As(err, &verr) {
		return appErrors.WithDetails(
			appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable input"),
			"fields", verr.Fields,
		)
	}
	var ierr *scheduler.InfeasibilityError
	if errors.As(err, &ierr) {
		fields := []zap.Field{zap.Int("units", len(ierr.Report.Units))}
		appErr := appErrors.WithDetails(
			appErrors.Wrap(err, appErrors.ErrInfeasible.Code, appErrors.ErrInfeasible.Status, appErrors.ErrInfeasible.Message),
			"report", ierr.Report,
		)
		if result != nil {
			fields = append(fields, zap.String("fingerprint", result.Fingerprint), zap.String("reason", result.Reason))
			appErr = appErrors.WithDetails(appErr, "reason", result.Reason)
		}
		s.logger.Warn("timetable infeasible", fields...)
		return appErr
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.Wrap(err, appErrors.ErrCancelled.Code, appErrors.ErrCancelled.Status, "timetable generation cancelled")
	}
	s.logger.Error("timetable engine failure", zap.Error(err))
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable engine failure")
}

// validationFailure converts validator errors into a field list.
func validationFailure(err error, message string) error {
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErr
	}
	fields := make([]scheduler.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, scheduler.FieldError{Field: fe.Namespace(), Message: "failed " + fe.Tag() + " check"})
	}
	return appErrors.WithDetails(appErr, "fields", fields)
}

func notFoundOr(err error, notFound, internal string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internal)
}

func summarize(conflicts []models.Conflict) dto.ConflictSummary {
	var out dto.ConflictSummary
	for _, c := range conflicts {
		switch c.Severity {
		case models.SeverityHigh:
			out.High++
		case models.SeverityMedium:
			out.Medium++
		case models.SeverityLow:
			out.Low++
		}
	}
	return out
}

func sanitizeFilename(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return "untitled"
	}
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// --- Proposal store ---

type timetableProposal struct {
	ID        string
	Result    *scheduler.Result
	Conflicts []models.Conflict
	CreatedAt time.Time
}

func (p timetableProposal) response(ttl time.Duration) *dto.GenerateTimetableResponse {
	return &dto.GenerateTimetableResponse{
		ProposalID: p.ID,
		ExpiresAt:  p.CreatedAt.Add(ttl),
		Result:     p.Result,
		Conflicts:  p.Conflicts,
		Summary:    summarize(p.Conflicts),
	}
}

type proposalStore struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration, now func() time.Time) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		now:   now,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, item := range s.items {
		if s.now().Sub(item.CreatedAt) > s.ttl {
			delete(s.items, id)
		}
	}
	s.items[proposal.ID] = proposal
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if s.now().Sub(proposal.CreatedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
