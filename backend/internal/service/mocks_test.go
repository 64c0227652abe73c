package service

import (
	"context"
	"slices"
	"sync"

	"github.com/itchan-dev/mediable/shared/domain"
)

// memStore is an in-memory AssociationStorage and MediaFinder with the same
// upsert semantics as the postgres pivot table.
type memStore struct {
	mu     sync.Mutex
	media  map[domain.MediaId]domain.Media
	rows   []domain.Association
	findFn func(ids []domain.MediaId) ([]domain.Media, error)
	err    error

	listCalls int
	findCalls int
}

func newMemStore(media ...domain.Media) *memStore {
	s := &memStore{media: make(map[domain.MediaId]domain.Media)}
	for _, m := range media {
		s.media[m.Id] = m
	}
	return s
}

func (s *memStore) ListAssociations(ctx context.Context, owner domain.Owner) ([]domain.AttachedMedia, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.AttachedMedia
	for _, row := range s.rows {
		if row.Owner == owner {
			out = append(out, domain.AttachedMedia{Media: s.mediaOrStub(row.MediaId), Channel: row.Channel})
		}
	}
	return out, nil
}

func (s *memStore) SyncChannel(ctx context.Context, owner domain.Owner, ids []domain.MediaId, channel domain.ChannelName) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	created := 0
	for _, id := range ids {
		idx := slices.IndexFunc(s.rows, func(a domain.Association) bool { return a.Owner == owner && a.MediaId == id })
		if idx >= 0 {
			s.rows[idx].Channel = channel
			continue
		}
		s.rows = append(s.rows, domain.Association{Owner: owner, MediaId: id, Channel: channel})
		created++
	}
	return created, nil
}

func (s *memStore) DetachMedia(ctx context.Context, owner domain.Owner, ids []domain.MediaId) (int, error) {
	return s.detach(func(a domain.Association) bool {
		return a.Owner == owner && (ids == nil || slices.Contains(ids, a.MediaId))
	})
}

func (s *memStore) DetachChannel(ctx context.Context, owner domain.Owner, channel domain.ChannelName) (int, error) {
	return s.detach(func(a domain.Association) bool { return a.Owner == owner && a.Channel == channel })
}

func (s *memStore) detach(match func(domain.Association) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	before := len(s.rows)
	s.rows = slices.DeleteFunc(s.rows, match)
	return before - len(s.rows), nil
}

func (s *memStore) FindMedia(ctx context.Context, ids []domain.MediaId) ([]domain.Media, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.findFn != nil {
		return s.findFn(ids)
	}
	var out []domain.Media
	seen := make(map[domain.MediaId]bool)
	for _, id := range ids {
		if m, ok := s.media[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) mediaOrStub(id domain.MediaId) domain.Media {
	if m, ok := s.media[id]; ok {
		return m
	}
	return domain.Media{Id: id}
}

func (s *memStore) channelOf(owner domain.Owner, id domain.MediaId) (domain.ChannelName, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var channel domain.ChannelName
	count := 0
	for _, row := range s.rows {
		if row.Owner == owner && row.MediaId == id {
			channel = row.Channel
			count++
		}
	}
	return channel, count
}

type MockSubmitter struct {
	mu         sync.Mutex
	SubmitFunc func(req domain.ConversionRequest) error
	requests   []domain.ConversionRequest
}

func (m *MockSubmitter) Submit(ctx context.Context, req domain.ConversionRequest) error {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.SubmitFunc != nil {
		return m.SubmitFunc(req)
	}
	return nil
}

func (m *MockSubmitter) Requests() []domain.ConversionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

// prefixUrls builds URLs as /media/<path> or /media/<conversion>/<path>.
type prefixUrls struct{}

func (prefixUrls) Url(m domain.Media, conversion domain.ConversionName) string {
	if conversion == "" {
		return "/media/" + m.FilePath
	}
	return "/media/" + conversion + "/" + m.FilePath
}
