package store

import (
	"context"
	"sort"
	"strings"

	"github.com/meetingbrain/assistant/internal/models"
)

// FakeStore is an in-memory ArtifactStore used by component tests across
// the module. It is not behind a _test.go file because several packages
// (resolver, orchestrator, contracts, assistant) need to construct fixture
// data for their own tests without depending on a live Postgres instance.
type FakeStore struct {
	Meetings    map[string]*models.Meeting
	QAPairs     map[string][]models.QAPair
	ActionItems map[string][]models.ActionItem
	Companies   map[string]string // companyID -> name
}

// NewFakeStore returns an empty FakeStore ready for fixtures to be added.
func NewFakeStore() *FakeStore {
	return &FakeStore{
		Meetings:    map[string]*models.Meeting{},
		QAPairs:     map[string][]models.QAPair{},
		ActionItems: map[string][]models.ActionItem{},
		Companies:   map[string]string{},
	}
}

func (f *FakeStore) AddMeeting(m *models.Meeting) {
	f.Meetings[m.ID] = m
	f.Companies[m.CompanyID] = m.CompanyName
}

func (f *FakeStore) GetTranscriptByID(_ context.Context, id string) (*models.Meeting, error) {
	m, ok := f.Meetings[id]
	if !ok {
		return nil, ErrMeetingNotFound
	}
	return m, nil
}

func (f *FakeStore) GetChunksForTranscript(_ context.Context, id string, limit int) ([]models.Chunk, error) {
	m, ok := f.Meetings[id]
	if !ok {
		return nil, nil
	}
	if limit > 0 && limit < len(m.Chunks) {
		return m.Chunks[:limit], nil
	}
	return m.Chunks, nil
}

func (f *FakeStore) GetQAPairsByTranscript(_ context.Context, id string) ([]models.QAPair, error) {
	return f.QAPairs[id], nil
}

func (f *FakeStore) GetMeetingActionItemsByTranscript(_ context.Context, id string) ([]models.ActionItem, error) {
	return f.ActionItems[id], nil
}

func (f *FakeStore) FindCompaniesByName(_ context.Context, query string) ([]CompanyMatch, error) {
	q := strings.ToLower(query)
	var out []CompanyMatch
	for id, name := range f.Companies {
		if strings.HasPrefix(strings.ToLower(name), q) || strings.Contains(strings.ToLower(name), q) {
			out = append(out, CompanyMatch{CompanyID: id, CompanyName: name})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompanyName < out[j].CompanyName })
	return out, nil
}

func (f *FakeStore) FindCompaniesByContactName(_ context.Context, query string) ([]CompanyMatch, error) {
	q := strings.ToLower(query)
	seen := map[string]bool{}
	var out []CompanyMatch
	for _, m := range f.Meetings {
		for _, name := range append(append([]string{}, m.InternalTeam...), m.CustomerNames...) {
			if strings.Contains(strings.ToLower(name), q) && !seen[m.CompanyID] {
				seen[m.CompanyID] = true
				out = append(out, CompanyMatch{CompanyID: m.CompanyID, CompanyName: m.CompanyName})
			}
		}
	}
	return out, nil
}

func (f *FakeStore) RecentMeetingsForCompany(_ context.Context, companyID string, limit int) ([]models.MeetingContext, error) {
	var out []models.MeetingContext
	for _, m := range f.Meetings {
		if m.CompanyID != companyID {
			continue
		}
		out = append(out, toMeetingContext(m))
	}
	sortMeetingsByDateDesc(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeStore) RecentMeetingsGlobal(_ context.Context, limit int) ([]models.MeetingContext, error) {
	var out []models.MeetingContext
	for _, m := range f.Meetings {
		out = append(out, toMeetingContext(m))
	}
	sortMeetingsByDateDesc(out)
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *FakeStore) SearchChunksByKeyword(_ context.Context, meetingIDs []string, keyword string, maxPerMeeting int) ([]ChunkExcerpt, error) {
	want := map[string]bool{}
	for _, id := range meetingIDs {
		want[id] = true
	}
	kw := strings.ToLower(keyword)
	var out []ChunkExcerpt
	perMeeting := map[string]int{}
	for id, m := range f.Meetings {
		if !want[id] {
			continue
		}
		for _, c := range m.Chunks {
			if perMeeting[id] >= maxPerMeeting {
				break
			}
			if strings.Contains(strings.ToLower(c.Content), kw) {
				out = append(out, ChunkExcerpt{MeetingID: id, Speaker: c.Speaker, Role: c.Role, Excerpt: c.Content})
				perMeeting[id]++
			}
		}
	}
	return out, nil
}

func (f *FakeStore) RawQuery(_ context.Context, _ string, _ ...interface{}) ([]Row, error) {
	return nil, nil
}

func toMeetingContext(m *models.Meeting) models.MeetingContext {
	return models.MeetingContext{
		MeetingID:   m.ID,
		CompanyID:   m.CompanyID,
		CompanyName: m.CompanyName,
		MeetingDate: m.MeetingDate,
	}
}

func sortMeetingsByDateDesc(mcs []models.MeetingContext) {
	sort.SliceStable(mcs, func(i, j int) bool {
		di, dj := mcs[i].MeetingDate, mcs[j].MeetingDate
		if di == nil || dj == nil {
			return di != nil
		}
		return di.After(*dj)
	})
}
