package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/backup"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/changelog"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/ledger"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/metrics"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/model"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/resolve"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/store"
	"github.com/Red-Mage-Creative/thought-chronicle-sub000/internal/validate"
)

type Phase string

const (
	PhaseBackup   Phase = "backup"
	PhaseMigrate  Phase = "migrate"
	PhaseValidate Phase = "validate"
	PhaseRepair   Phase = "repair"
	PhaseSave     Phase = "save"
	PhaseComplete Phase = "complete"
)

// Progress is reported as the runner moves through a pass. Step and Total
// are set during PhaseMigrate; Summary is set on PhaseComplete.
type Progress struct {
	Phase   Phase
	Step    int
	Total   int
	Message string
	Summary *Summary
}

// ProgressFunc observes a run. It cannot alter or stop it.
type ProgressFunc func(Progress)

type Summary struct {
	EntitiesChecked  int `json:"entitiesChecked"`
	ThoughtsChecked  int `json:"thoughtsChecked"`
	CampaignsChecked int `json:"campaignsChecked"`
	IssuesFixed      int `json:"issuesFixed"`
}

type Result struct {
	FromVersion  string
	ToVersion    string
	FreshInstall bool
	BackedUp     bool
	Executed     []string
	Summary      Summary
	Invalid      int
	Issues       []validate.Issue
	Repair       *resolve.RepairReport
}

// Runner executes one migration pass against a store. It assumes exclusive
// access to the store for the duration of Run.
type Runner struct {
	store       store.Store
	registry    *Registry
	ledger      *ledger.Ledger
	vault       *backup.Vault
	validator   *validate.Validator
	identity    model.Identity
	target      ledger.Version
	progress    ProgressFunc
	logger      *zap.Logger
	now         func() time.Time
	resolveOpts []resolve.Option
}

type Option func(*Runner)

// WithTarget caps the pass at v instead of the newest registered version.
func WithTarget(v ledger.Version) Option {
	return func(r *Runner) { r.target = v }
}

// WithIdentity sets the campaign and user that auto-created entities are
// attributed to.
func WithIdentity(identity model.Identity) Option {
	return func(r *Runner) { r.identity = identity }
}

func WithValidator(v *validate.Validator) Option {
	return func(r *Runner) { r.validator = v }
}

func WithProgress(fn ProgressFunc) Option {
	return func(r *Runner) { r.progress = fn }
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

func WithResolverOptions(opts ...resolve.Option) Option {
	return func(r *Runner) { r.resolveOpts = append(r.resolveOpts, opts...) }
}

func NewRunner(s store.Store, registry *Registry, logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if registry == nil {
		registry = Default()
	}
	r := &Runner{
		store:    s,
		registry: registry,
		ledger:   ledger.New(s),
		vault:    backup.New(s, logger),
		target:   registry.Latest(),
		logger:   logger.Named("migrate"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.validator == nil {
		r.validator = validate.New(nil)
	}
	return r
}

// Run brings the store to the target version. With nothing pending it only
// validates and repairs. A failing step or invalid records after migration
// restore the pre-run snapshot and return an error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	stored, hasStored, err := r.ledger.StoredVersion(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := r.store.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading store: %w", err)
	}

	result := &Result{
		ToVersion:    r.target.String(),
		FreshInstall: !hasStored,
		Executed:     []string{},
	}
	var pending []Migration
	if hasStored {
		result.FromVersion = stored.String()
		pending = r.registry.Pending(stored, r.target)
		if r.target.Less(stored) {
			r.logger.Warn("stored version is newer than this build, leaving it unchanged",
				zap.String("stored", stored.String()),
				zap.String("target", r.target.String()))
			result.ToVersion = stored.String()
		}
	}

	logger := r.logger.With(
		zap.String("from", result.FromVersion),
		zap.String("to", result.ToVersion))

	if len(pending) == 0 {
		if result.FreshInstall {
			logger.Info("fresh install, recording target version without migrating")
		} else {
			logger.Debug("no pending migrations, validating store")
		}
		return r.finish(ctx, doc, result, nil)
	}

	logger.Info("starting migration", zap.Int("steps", len(pending)))
	r.report(Progress{Phase: PhaseBackup, Message: "snapshotting store"})
	if _, err := r.vault.Snapshot(ctx); err != nil {
		metrics.MigrationRuns.WithLabelValues(metrics.ResultFailure).Inc()
		return nil, fmt.Errorf("backing up store before migration: %w", err)
	}
	result.BackedUp = true

	executed := make([]LogEntry, 0, len(pending))
	for i, m := range pending {
		r.report(Progress{Phase: PhaseMigrate, Step: i + 1, Total: len(pending), Message: m.String()})
		logger.Info("running migration", zap.String("version", m.Version), zap.String("name", m.Name))

		start := time.Now()
		next, err := runStep(m, doc)
		metrics.MigrationStepDuration.WithLabelValues(m.Version).Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, r.fail(ctx, m.Version, m.Name, &StepError{Version: m.Version, Name: m.Name, Err: err})
		}
		doc = next
		executed = append(executed, LogEntry{Version: m.Version, Migration: m.Name, Success: true})
	}
	return r.finish(ctx, doc, result, executed)
}

// finish validates, repairs and persists doc. executed is nil for passes that
// ran no migration step; only those passes tolerate invalid records.
func (r *Runner) finish(ctx context.Context, doc *model.Document, result *Result, executed []LogEntry) (*Result, error) {
	migrated := executed != nil
	abort := func(err error) (*Result, error) {
		if migrated {
			return nil, r.fail(ctx, result.ToVersion, "finalize", err)
		}
		return nil, err
	}

	r.report(Progress{Phase: PhaseValidate, Message: "validating records"})
	checked := r.validator.ValidateDocument(doc)
	recordValidation(checked)

	result.Summary = Summary{
		EntitiesChecked:  checked.Checked(model.KindEntity),
		ThoughtsChecked:  checked.Checked(model.KindThought),
		CampaignsChecked: checked.Checked(model.KindCampaign),
		IssuesFixed:      checked.Fixed(),
	}
	result.Issues = checked.Issues()
	result.Invalid = checked.InvalidCount()

	if result.Invalid > 0 {
		if migrated {
			err := fmt.Errorf("%w: %d record(s)", ErrInvalidRecords, result.Invalid)
			return nil, r.fail(ctx, result.ToVersion, "post-migration-validation", err)
		}
		r.logger.Warn("store has invalid records, keeping them as is", zap.Int("invalid", result.Invalid))
	}

	r.report(Progress{Phase: PhaseRepair, Message: "repairing entity references"})
	view := validView(doc, checked)
	if view.Skipped > 0 {
		r.logger.Warn("records skipped by reference repair", zap.Int("records", view.Skipped))
	}
	report := repairReferences(view.Data, r.identity, r.logger, r.resolveOpts...)
	if err := view.Apply(doc); err != nil {
		return abort(fmt.Errorf("writing repaired references: %w", err))
	}
	changelog.CompactAll(&doc.PendingChanges)
	result.Repair = report
	result.Summary.IssuesFixed += report.TotalOrphans
	metrics.ReferencesRepaired.Add(float64(report.TotalOrphans))
	metrics.EntitiesAutoCreated.Add(float64(len(report.Created)))

	r.report(Progress{Phase: PhaseSave, Message: "saving store"})
	if err := r.store.SaveData(ctx, doc); err != nil {
		return abort(fmt.Errorf("saving store: %w", err))
	}
	if migrated || result.FreshInstall {
		if err := r.ledger.SetStoredVersion(ctx, ledger.MustParse(result.ToVersion)); err != nil {
			return abort(err)
		}
	}

	now := r.now().UTC()
	for i := range executed {
		executed[i].Timestamp = now
		result.Executed = append(result.Executed, executed[i].Migration)
	}
	if err := appendLog(ctx, r.store, executed...); err != nil {
		return nil, err
	}

	if migrated {
		metrics.MigrationRuns.WithLabelValues(metrics.ResultSuccess).Inc()
	} else {
		metrics.MigrationRuns.WithLabelValues(metrics.ResultSkipped).Inc()
	}
	r.report(Progress{Phase: PhaseComplete, Message: "done", Summary: &result.Summary})
	r.logger.Info("store is consistent",
		zap.String("version", result.ToVersion),
		zap.Int("migrations", len(result.Executed)),
		zap.Int("issues_fixed", result.Summary.IssuesFixed),
		zap.Int("auto_created", len(report.Created)))
	return result, nil
}

// fail restores the snapshot and records a failed log entry. It returns
// cause, joined with the restore error if restoring also failed.
func (r *Runner) fail(ctx context.Context, version, name string, cause error) error {
	r.logger.Error("migration failed, restoring snapshot",
		zap.String("version", version),
		zap.String("name", name),
		zap.Error(cause))

	_, restoreErr := r.vault.Restore(ctx)
	entry := LogEntry{
		Version:   version,
		Migration: name,
		Timestamp: r.now().UTC(),
		Success:   false,
		Error:     cause.Error(),
	}
	if err := appendLog(ctx, r.store, entry); err != nil {
		r.logger.Warn("could not record failed migration", zap.Error(err))
	}

	if restoreErr != nil {
		metrics.MigrationRuns.WithLabelValues(metrics.ResultFailure).Inc()
		return errors.Join(cause, fmt.Errorf("restoring snapshot: %w", restoreErr))
	}
	metrics.MigrationRuns.WithLabelValues(metrics.ResultRestored).Inc()
	return cause
}

func (r *Runner) report(p Progress) {
	if r.progress != nil {
		r.progress(p)
	}
}

// runStep turns a panicking migration into an ordinary failure.
func runStep(m Migration, doc *model.Document) (out *model.Document, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	out, err = m.Up(doc)
	if err == nil && out == nil {
		err = errors.New("migration returned no document")
	}
	return out, err
}

func recordValidation(checked validate.DocumentResult) {
	for _, kind := range model.Kinds {
		batch := checked.Batches[kind]
		metrics.RecordsValidated.WithLabelValues(string(kind), "valid").Add(float64(len(batch.Valid)))
		metrics.RecordsValidated.WithLabelValues(string(kind), "invalid").Add(float64(len(batch.Invalid)))
	}
}
