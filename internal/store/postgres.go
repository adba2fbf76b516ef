package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/meetingbrain/assistant/internal/config"
	"github.com/meetingbrain/assistant/internal/models"
)

// PostgresStore is the production ArtifactStore, backed by a pgx
// connection pool. All reads run through context-scoped queries; there is
// no query retry here — retries, if any, belong to the caller (§5). Every
// query is bounded by queryTimeout so a stalled connection blocks a turn
// for at most that long instead of indefinitely.
type PostgresStore struct {
	pool          *pgxpool.Pool
	queryTimeout  time.Duration
	snippetBudget int
}

// NewPostgresStore connects using cfg.PostgresDSN and verifies reachability
// with a ping.
func NewPostgresStore(ctx context.Context, cfg config.Config) (*PostgresStore, error) {
	pool, err := pgxpool.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &PostgresStore{pool: pool, queryTimeout: cfg.ArtifactStoreTimeout, snippetBudget: cfg.TranscriptSnippetCharBudget}, nil
}

// bound derives a per-call context capped at s.queryTimeout.
func (s *PostgresStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// Close releases the underlying pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) GetTranscriptByID(ctx context.Context, id string) (*models.Meeting, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		SELECT m.id, m.company_id, c.name, m.meeting_date, m.internal_team, m.customer_names
		FROM meetings m JOIN companies c ON c.id = m.company_id
		WHERE m.id = $1`, id)

	var meeting models.Meeting
	var meetingDate *time.Time
	var internalTeam, customerNames string
	if err := row.Scan(&meeting.ID, &meeting.CompanyID, &meeting.CompanyName, &meetingDate, &internalTeam, &customerNames); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMeetingNotFound
		}
		return nil, fmt.Errorf("store: get transcript: %w", err)
	}
	meeting.MeetingDate = meetingDate
	meeting.InternalTeam = splitAttendees(internalTeam)
	meeting.CustomerNames = splitAttendees(customerNames)

	chunks, err := s.GetChunksForTranscript(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	meeting.Chunks = chunks
	return &meeting, nil
}

// splitAttendees implements the Attendees retriever's field-parsing rule
// directly against the raw comma-separated column, so the Meeting the
// store returns already carries split name lists.
func splitAttendees(field string) []string {
	if strings.TrimSpace(field) == "" {
		return nil
	}
	parts := strings.Split(field, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *PostgresStore) GetChunksForTranscript(ctx context.Context, id string, limit int) ([]models.Chunk, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	query := `SELECT chunk_index, speaker, role, content FROM chunks WHERE meeting_id = $1 ORDER BY chunk_index ASC`
	args := []interface{}{id}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: get chunks: %w", err)
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var role string
		if err := rows.Scan(&c.ChunkIndex, &c.Speaker, &role, &c.Content); err != nil {
			return nil, fmt.Errorf("store: scan chunk: %w", err)
		}
		c.MeetingID = id
		c.Role = models.SpeakerRole(role)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetQAPairsByTranscript(ctx context.Context, id string) ([]models.QAPair, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT question, asker, status, answer_evidence, answerer, question_turn, resolution_turn
		FROM qa_pairs WHERE meeting_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get qa pairs: %w", err)
	}
	defer rows.Close()

	var out []models.QAPair
	for rows.Next() {
		var qa models.QAPair
		var status string
		var resolutionTurn *int
		if err := rows.Scan(&qa.Question, &qa.Asker, &status, &qa.AnswerEvidence, &qa.Answerer, &qa.QuestionTurn, &resolutionTurn); err != nil {
			return nil, fmt.Errorf("store: scan qa pair: %w", err)
		}
		qa.MeetingID = id
		qa.Status = models.QAStatus(status)
		qa.ResolutionTurn = resolutionTurn
		out = append(out, qa)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetMeetingActionItemsByTranscript(ctx context.Context, id string) ([]models.ActionItem, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT action, owner, type, deadline, evidence, confidence, is_primary
		FROM action_items WHERE meeting_id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("store: get action items: %w", err)
	}
	defer rows.Close()

	var out []models.ActionItem
	for rows.Next() {
		var a models.ActionItem
		if err := rows.Scan(&a.Action, &a.Owner, &a.Type, &a.Deadline, &a.Evidence, &a.Confidence, &a.IsPrimary); err != nil {
			return nil, fmt.Errorf("store: scan action item: %w", err)
		}
		a.MeetingID = id
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindCompaniesByName(ctx context.Context, query string) ([]CompanyMatch, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT id, name FROM companies
		WHERE name ILIKE $1 OR name ILIKE $2
		ORDER BY (name ILIKE $1) DESC, name ASC
		LIMIT 10`, query+"%", "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("store: find companies: %w", err)
	}
	defer rows.Close()
	return scanCompanyMatches(rows)
}

func (s *PostgresStore) FindCompaniesByContactName(ctx context.Context, query string) ([]CompanyMatch, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT c.id, c.name FROM companies c
		JOIN meetings m ON m.company_id = c.id
		WHERE m.internal_team ILIKE $1 OR m.customer_names ILIKE $1
		ORDER BY c.name ASC
		LIMIT 10`, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("store: find companies by contact: %w", err)
	}
	defer rows.Close()
	return scanCompanyMatches(rows)
}

func scanCompanyMatches(rows pgx.Rows) ([]CompanyMatch, error) {
	var out []CompanyMatch
	for rows.Next() {
		var m CompanyMatch
		if err := rows.Scan(&m.CompanyID, &m.CompanyName); err != nil {
			return nil, fmt.Errorf("store: scan company match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) RecentMeetingsForCompany(ctx context.Context, companyID string, limit int) ([]models.MeetingContext, error) {
	return s.recentMeetings(ctx, `
		SELECT m.id, m.company_id, c.name, m.meeting_date FROM meetings m
		JOIN companies c ON c.id = m.company_id
		WHERE m.company_id = $1
		ORDER BY COALESCE(m.meeting_date, m.created_at) DESC
		LIMIT $2`, companyID, limit)
}

func (s *PostgresStore) RecentMeetingsGlobal(ctx context.Context, limit int) ([]models.MeetingContext, error) {
	return s.recentMeetings(ctx, `
		SELECT m.id, m.company_id, c.name, m.meeting_date FROM meetings m
		JOIN companies c ON c.id = m.company_id
		ORDER BY COALESCE(m.meeting_date, m.created_at) DESC
		LIMIT $1`, limit)
}

func (s *PostgresStore) recentMeetings(ctx context.Context, query string, args ...interface{}) ([]models.MeetingContext, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: recent meetings: %w", err)
	}
	defer rows.Close()

	var out []models.MeetingContext
	for rows.Next() {
		var mc models.MeetingContext
		var date *time.Time
		if err := rows.Scan(&mc.MeetingID, &mc.CompanyID, &mc.CompanyName, &date); err != nil {
			return nil, fmt.Errorf("store: scan meeting context: %w", err)
		}
		mc.MeetingDate = date
		out = append(out, mc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SearchChunksByKeyword(ctx context.Context, meetingIDs []string, keyword string, maxPerMeeting int) ([]ChunkExcerpt, error) {
	if len(meetingIDs) == 0 {
		return nil, nil
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT meeting_id, speaker, role, content FROM chunks
		WHERE meeting_id = ANY($1) AND content ILIKE $2
		LIMIT 200`, meetingIDs, "%"+keyword+"%")
	if err != nil {
		return nil, fmt.Errorf("store: search chunks: %w", err)
	}
	defer rows.Close()

	perMeeting := map[string]int{}
	var out []ChunkExcerpt
	for rows.Next() {
		var ex ChunkExcerpt
		var role, content string
		if err := rows.Scan(&ex.MeetingID, &ex.Speaker, &role, &content); err != nil {
			return nil, fmt.Errorf("store: scan chunk excerpt: %w", err)
		}
		if perMeeting[ex.MeetingID] >= maxPerMeeting {
			continue
		}
		ex.Role = models.SpeakerRole(role)
		ex.Excerpt = truncateSnippet(content, s.snippetBudget)
		perMeeting[ex.MeetingID]++
		out = append(out, ex)
	}
	return out, rows.Err()
}

// truncateSnippet bounds an excerpt to the configured character budget
// (§4.3's fast path), cutting on a rune boundary so multi-byte speech
// doesn't get mangled mid-character.
func truncateSnippet(content string, budget int) string {
	if budget <= 0 || len(content) <= budget {
		return content
	}
	r := []rune(content)
	if len(r) <= budget {
		return content
	}
	return string(r[:budget])
}

func (s *PostgresStore) RawQuery(ctx context.Context, sqlText string, params ...interface{}) ([]Row, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("store: raw query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out []Row
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("store: raw query scan: %w", err)
		}
		row := make(Row, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
