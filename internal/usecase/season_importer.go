package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/riskibarqy/touchdown-picks/internal/domain/game"
	"github.com/riskibarqy/touchdown-picks/internal/domain/importjob"
	"github.com/riskibarqy/touchdown-picks/internal/domain/ingest"
	"github.com/riskibarqy/touchdown-picks/internal/domain/player"
	"github.com/riskibarqy/touchdown-picks/internal/domain/team"
	"github.com/riskibarqy/touchdown-picks/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultMaxWeeks = 18

type gameGrader interface {
	GradeGame(ctx context.Context, gameID string) (int, error)
}

type ImportRequest struct {
	JobID      string
	Season     int
	Weeks      []int
	GradeGames bool
}

// ImportReport is what an import produced, also on failure.
type ImportReport struct {
	Stats  importjob.Stats
	Errors []string
}

// SeasonImporter pulls a season from the provider into the store, one game
// bundle at a time.
type SeasonImporter struct {
	provider   NFLDataProvider
	ingestRepo ingest.Repository
	grader     gameGrader
	progress   ProgressTracker
	maxWeeks   int
	logger     *logging.Logger
	clock      clockwork.Clock
}

func NewSeasonImporter(
	provider NFLDataProvider,
	ingestRepo ingest.Repository,
	grader gameGrader,
	progress ProgressTracker,
	maxWeeks int,
	logger *logging.Logger,
) *SeasonImporter {
	if maxWeeks <= 0 {
		maxWeeks = defaultMaxWeeks
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &SeasonImporter{
		provider:   provider,
		ingestRepo: ingestRepo,
		grader:     grader,
		progress:   progress,
		maxWeeks:   maxWeeks,
		logger:     logger,
		clock:      clockwork.NewRealClock(),
	}
}

// Import runs the whole request. Provider and store failures on a week abort
// the import; bad results and grading failures only add to report.Errors.
func (i *SeasonImporter) Import(ctx context.Context, req ImportRequest) (ImportReport, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeasonImporter.Import",
		attribute.String("job.id", req.JobID),
		attribute.Int("season", req.Season),
	)
	defer span.End()

	run := &importRun{importer: i, req: req}
	for _, week := range i.weeks(req.Weeks) {
		if err := ctx.Err(); err != nil {
			return run.report, err
		}
		if err := run.importWeek(ctx, week); err != nil {
			recordSpanError(span, err)
			return run.report, err
		}
	}

	i.logger.InfoContext(ctx, "season import finished",
		"job_id", req.JobID,
		"season", req.Season,
		"games_processed", run.report.Stats.GamesProcessed,
		"games_graded", run.report.Stats.GamesGraded,
		"errors", len(run.report.Errors),
	)
	return run.report, nil
}

func (i *SeasonImporter) weeks(requested []int) []int {
	if len(requested) > 0 {
		return requested
	}
	out := make([]int, 0, i.maxWeeks)
	for week := 1; week <= i.maxWeeks; week++ {
		out = append(out, week)
	}
	return out
}

type importRun struct {
	importer *SeasonImporter
	req      ImportRequest
	report   ImportReport
}

func (r *importRun) importWeek(ctx context.Context, week int) error {
	i := r.importer
	r.publish(ctx, week, "fetching games")

	games, err := i.provider.FetchGames(ctx, r.req.Season, week)
	if err != nil {
		return fmt.Errorf("fetch games season=%d week=%d: %w", r.req.Season, week, err)
	}
	r.report.Stats.TotalGames += len(games)

	for _, item := range games {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.importGame(ctx, week, item); err != nil {
			return err
		}
		r.report.Stats.GamesProcessed++
		r.publish(ctx, week, "game "+item.ExternalID)
	}
	return nil
}

func (r *importRun) importGame(ctx context.Context, week int, item ExternalGame) error {
	i := r.importer

	saved, err := i.ingestRepo.SaveBundle(ctx, toGameBundle(r.req.Season, week, item))
	if err != nil {
		return fmt.Errorf("save game %s: %w", item.ExternalID, err)
	}
	r.report.Stats.TeamsCreated += saved.TeamsCreated
	r.report.Stats.PlayersCreated += saved.PlayersCreated
	if saved.GameCreated {
		r.report.Stats.GamesCreated++
	}
	if saved.GameUpdated {
		r.report.Stats.GamesUpdated++
	}

	if saved.Game.IsGraded() || game.NormalizeStatus(item.Status) != game.StatusCompleted {
		return nil
	}

	completed, err := r.recordFinal(ctx, saved.Game, item.ExternalID)
	if err != nil || !completed {
		return err
	}
	if r.req.GradeGames && i.grader != nil {
		r.grade(ctx, saved.Game.ID)
	}
	return nil
}

// recordFinal stores validated final data and reports whether the game is now
// COMPLETED and ungraded.
func (r *importRun) recordFinal(ctx context.Context, g game.Game, externalID string) (bool, error) {
	i := r.importer

	result, found, err := i.provider.FetchGameResult(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("fetch result for game %s: %w", externalID, err)
	}
	if !found {
		return false, nil
	}
	scorers, found, err := i.provider.FetchTouchdownScorers(ctx, externalID)
	if err != nil {
		return false, fmt.Errorf("fetch touchdown scorers for game %s: %w", externalID, err)
	}
	if !found {
		scorers = ExternalTouchdownScorers{}
	}

	if problems := ValidateGameResult(externalID, result, scorers); len(problems) > 0 {
		msg := fmt.Sprintf("game %s: invalid result data: %s", externalID, strings.Join(problems, "; "))
		r.addError(msg)
		i.logger.WarnContext(ctx, "skipping game with invalid result data", "game_external_id", externalID, "problems", problems)
		return false, nil
	}

	final, err := r.resolveScorers(ctx, externalID, result, scorers)
	if err != nil {
		return false, err
	}
	changed, err := i.ingestRepo.RecordFinal(ctx, g.ID, final)
	if err != nil {
		return false, fmt.Errorf("record final for game %s: %w", externalID, err)
	}
	return changed, nil
}

// resolveScorers maps provider ids to player ids. Scorers missing from the
// roster are dropped since no pick can reference them.
func (r *importRun) resolveScorers(ctx context.Context, externalID string, result ExternalGameResult, scorers ExternalTouchdownScorers) (ingest.FinalResult, error) {
	i := r.importer

	lookup := game.NormalizeScorers(scorers.FirstScorerID, scorers.AllScorerIDs)
	resolved, err := i.ingestRepo.ResolvePlayerIDs(ctx, lookup)
	if err != nil {
		return ingest.FinalResult{}, fmt.Errorf("resolve scorers for game %s: %w", externalID, err)
	}

	final := ingest.FinalResult{
		HomeScore:       result.HomeScore,
		AwayScore:       result.AwayScore,
		FirstTDScorerID: resolved[strings.TrimSpace(scorers.FirstScorerID)],
		AllTDScorerIDs:  make([]string, 0, len(lookup)),
	}
	for _, providerID := range lookup {
		playerID, ok := resolved[providerID]
		if !ok {
			i.logger.WarnContext(ctx, "touchdown scorer not on any roster", "game_external_id", externalID, "player_external_id", providerID)
			continue
		}
		final.AllTDScorerIDs = append(final.AllTDScorerIDs, playerID)
	}
	return final, nil
}

func (r *importRun) grade(ctx context.Context, gameID string) {
	i := r.importer

	picks, err := i.grader.GradeGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		r.addError(fmt.Sprintf("game %s: grading failed: %v", gameID, err))
		i.logger.WarnContext(ctx, "grading imported game failed", "game_id", gameID, "error", err)
		return
	}
	r.report.Stats.GamesGraded++
	r.report.Stats.PicksGraded += picks
}

func (r *importRun) addError(msg string) {
	r.report.Errors = importjob.AppendError(r.report.Errors, msg)
}

func (r *importRun) publish(ctx context.Context, week int, step string) {
	i := r.importer
	if i.progress == nil || r.req.JobID == "" {
		return
	}
	i.progress.UpdateProgress(ctx, r.req.JobID, importjob.Progress{
		JobID:       r.req.JobID,
		Status:      importjob.StatusRunning,
		Stats:       r.report.Stats,
		CurrentWeek: week,
		CurrentStep: step,
		Errors:      append([]string{}, r.report.Errors...),
		UpdatedAt:   i.clock.Now().UTC(),
	})
}

func toGameBundle(season, week int, item ExternalGame) ingest.GameBundle {
	if item.Season > 0 {
		season = item.Season
	}
	if item.Week > 0 {
		week = item.Week
	}

	// COMPLETED is only written by RecordFinal once the result is validated.
	status := game.NormalizeStatus(item.Status)
	if status == game.StatusCompleted {
		status = game.StatusInProgress
	}

	bundle := ingest.GameBundle{
		Game: game.Game{
			ExternalID: strings.TrimSpace(item.ExternalID),
			Season:     season,
			Week:       week,
			KickoffAt:  item.KickoffAt.UTC(),
			Status:     status,
		},
		HomeTeam: toTeam(item.HomeTeam),
		AwayTeam: toTeam(item.AwayTeam),
		Players:  make([]player.Player, 0, len(item.Players)),
	}
	for _, p := range item.Players {
		bundle.Players = append(bundle.Players, player.Player{
			ExternalID:   strings.TrimSpace(p.ExternalID),
			TeamID:       strings.TrimSpace(p.TeamExternalID),
			Name:         strings.TrimSpace(p.Name),
			Position:     strings.TrimSpace(p.Position),
			JerseyNumber: p.JerseyNumber,
			IsActive:     true,
		})
	}
	return bundle
}

func toTeam(item ExternalTeam) team.Team {
	return team.Team{
		ExternalID:   strings.TrimSpace(item.ExternalID),
		Name:         strings.TrimSpace(item.Name),
		Abbreviation: strings.TrimSpace(item.Abbreviation),
		City:         strings.TrimSpace(item.City),
	}
}
