package handler

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/itchan-dev/mediable/backend/internal/service"
	"github.com/itchan-dev/mediable/shared/config"
	"github.com/itchan-dev/mediable/shared/domain"
)

// --- Mock for MediaService ---

type MockMediaService struct {
	MockUpload func(ctx context.Context, in service.UploadInput) (domain.Media, error)
	MockGet    func(ctx context.Context, id domain.MediaId) (domain.Media, error)
	MockDelete func(ctx context.Context, id domain.MediaId) error
}

func (m *MockMediaService) Upload(ctx context.Context, in service.UploadInput) (domain.Media, error) {
	if m.MockUpload != nil {
		return m.MockUpload(ctx, in)
	}
	return domain.Media{}, nil
}

func (m *MockMediaService) Get(ctx context.Context, id domain.MediaId) (domain.Media, error) {
	if m.MockGet != nil {
		return m.MockGet(ctx, id)
	}
	return domain.Media{Id: id}, nil
}

func (m *MockMediaService) Delete(ctx context.Context, id domain.MediaId) error {
	if m.MockDelete != nil {
		return m.MockDelete(ctx, id)
	}
	return nil
}

func (m *MockMediaService) Urls(media domain.Media) domain.MediaUrls {
	return domain.MediaUrls{Original: "/media/" + media.FileName, Conversions: map[string]string{}}
}

// --- In-memory association storage ---

type fakeAssociations struct {
	mu    sync.Mutex
	media map[domain.MediaId]domain.Media
	rows  []domain.AttachedMedia
	owner []domain.Owner
	err   error
}

func newFakeAssociations(media ...domain.Media) *fakeAssociations {
	f := &fakeAssociations{media: make(map[domain.MediaId]domain.Media)}
	for _, m := range media {
		f.media[m.Id] = m
	}
	return f
}

func (f *fakeAssociations) ListAssociations(ctx context.Context, owner domain.Owner) ([]domain.AttachedMedia, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.AttachedMedia
	for i, row := range f.rows {
		if f.owner[i] == owner {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeAssociations) SyncChannel(ctx context.Context, owner domain.Owner, ids []domain.MediaId, channel domain.ChannelName) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	created := 0
	for _, id := range ids {
		found := false
		for i := range f.rows {
			if f.owner[i] == owner && f.rows[i].Id == id {
				f.rows[i].Channel = channel
				found = true
			}
		}
		if !found {
			f.rows = append(f.rows, domain.AttachedMedia{Media: f.media[id], Channel: channel})
			f.owner = append(f.owner, owner)
			created++
		}
	}
	return created, nil
}

func (f *fakeAssociations) remove(owner domain.Owner, match func(domain.AttachedMedia) bool) int {
	removed := 0
	rows, owners := f.rows[:0:0], f.owner[:0:0]
	for i, row := range f.rows {
		if f.owner[i] == owner && match(row) {
			removed++
			continue
		}
		rows = append(rows, row)
		owners = append(owners, f.owner[i])
	}
	f.rows, f.owner = rows, owners
	return removed
}

func (f *fakeAssociations) DetachMedia(ctx context.Context, owner domain.Owner, ids []domain.MediaId) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove(owner, func(am domain.AttachedMedia) bool {
		return ids == nil || slices.Contains(ids, am.Id)
	}), nil
}

func (f *fakeAssociations) DetachChannel(ctx context.Context, owner domain.Owner, channel domain.ChannelName) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remove(owner, func(am domain.AttachedMedia) bool { return am.Channel == channel }), nil
}

func (f *fakeAssociations) FindMedia(ctx context.Context, ids []domain.MediaId) ([]domain.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Media
	for _, id := range ids {
		if m, ok := f.media[id]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

type MockSubmitter struct {
	mu       sync.Mutex
	requests []domain.ConversionRequest
}

func (s *MockSubmitter) Submit(ctx context.Context, req domain.ConversionRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return nil
}

type fixedUrls struct{}

func (fixedUrls) Url(m domain.Media, conversion domain.ConversionName) string {
	if conversion == "" {
		return "/media/" + m.FileName
	}
	return "/media/" + conversion + "-" + m.FileName
}

// --- Test wiring ---

type testEnv struct {
	store     *fakeAssociations
	submitter *MockSubmitter
	media     *MockMediaService
	handler   *Handler
	router    http.Handler
}

func testOwnerTypes() service.OwnerTypes {
	return service.OwnerTypes{
		"post": func(r *service.ChannelRegistry) {
			r.AddChannel("gallery").PerformConversions("thumb")
			r.AddChannel(domain.DefaultChannel)
		},
		"user": nil,
	}
}

func newTestEnv(media ...domain.Media) *testEnv {
	store := newFakeAssociations(media...)
	submitter := &MockSubmitter{}
	mediaService := &MockMediaService{}
	factory := service.NewMediableFactory(store, store, submitter, fixedUrls{}, testOwnerTypes())
	cfg := &config.Config{}
	cfg.Public.Media.MaxUploadSizeBytes = 1 << 20
	cfg.Public.Media.AllowedMimeTypes = []string{"image/gif", "image/png"}
	h := New(factory, mediaService, Readiness{DB: &MockHealthChecker{}}, cfg)

	r := chi.NewRouter()
	r.Route("/v1/owners/{type}", func(r chi.Router) {
		r.Get("/channels", h.GetChannels)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/media", h.GetMedia)
			r.Post("/media", h.AttachMedia)
			r.Delete("/media", h.DetachMedia)
			r.Get("/media/has", h.HasMedia)
			r.Get("/media/first", h.GetFirstMedia)
			r.Get("/media/first-url", h.GetFirstMediaUrl)
			r.Delete("/channels/{channel}", h.ClearMediaChannel)
		})
	})
	r.Post("/v1/media", h.UploadMedia)
	r.Get("/v1/media/{id}", h.GetMediaRecord)
	r.Delete("/v1/media/{id}", h.DeleteMediaRecord)

	return &testEnv{store: store, submitter: submitter, media: mediaService, handler: h, router: r}
}
