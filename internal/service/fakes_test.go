package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/ragserve/internal/llm"
	"github.com/quarrylabs/ragserve/internal/store"
	"github.com/quarrylabs/ragserve/internal/vectorstore"
)

// In-memory store fakes backing the service tests.

type fakeUserStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*store.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[int64]*store.User{}}
}

func (f *fakeUserStore) Insert(_ context.Context, email, hashedPassword string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return nil, store.ErrDuplicate
		}
	}
	f.nextID++
	u := &store.User{
		ID:             f.nextID,
		UUID:           uuid.New(),
		Email:          email,
		HashedPassword: hashedPassword,
		IsActive:       true,
		CreatedAt:      time.Now(),
	}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id int64) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

type fakeProjectStore struct {
	mu       sync.Mutex
	nextID   int64
	projects map[int64]*store.Project
	// raceOnCreate simulates a concurrent request winning the insert: the
	// next Create call inserts the row itself and reports a duplicate.
	raceOnCreate bool
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{projects: map[int64]*store.Project{}}
}

func (f *fakeProjectStore) Create(_ context.Context, userID, code int64) (*store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.raceOnCreate {
		f.raceOnCreate = false
		f.nextID++
		p := &store.Project{
			ID:        f.nextID,
			UUID:      uuid.New(),
			UserID:    userID,
			Code:      code,
			CreatedAt: time.Now(),
		}
		f.projects[p.ID] = p
		return nil, store.ErrDuplicate
	}
	for _, p := range f.projects {
		if p.UserID == userID && p.Code == code {
			return nil, store.ErrDuplicate
		}
	}
	f.nextID++
	p := &store.Project{
		ID:        f.nextID,
		UUID:      uuid.New(),
		UserID:    userID,
		Code:      code,
		CreatedAt: time.Now(),
	}
	f.projects[p.ID] = p
	return p, nil
}

func (f *fakeProjectStore) GetOrCreate(ctx context.Context, userID, code int64) (*store.Project, error) {
	if p, err := f.GetByCodeForUser(ctx, userID, code); err == nil {
		return p, nil
	}
	return f.Create(ctx, userID, code)
}

func (f *fakeProjectStore) GetByCodeForUser(_ context.Context, userID, code int64) (*store.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.projects {
		if p.UserID == userID && p.Code == code {
			return p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeProjectStore) ListForUser(_ context.Context, userID int64, page, pageSize int) ([]store.Project, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []store.Project
	for _, p := range f.projects {
		if p.UserID == userID {
			all = append(all, *p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (f *fakeProjectStore) Delete(_ context.Context, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.projects[projectID]; !ok {
		return store.ErrNotFound
	}
	delete(f.projects, projectID)
	return nil
}

type fakeAssetStore struct {
	mu     sync.Mutex
	nextID int64
	assets map[int64]*store.Asset
}

func newFakeAssetStore() *fakeAssetStore {
	return &fakeAssetStore{assets: map[int64]*store.Asset{}}
}

func (f *fakeAssetStore) Insert(_ context.Context, projectID int64, assetType, name string, size int64) (*store.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.ProjectID == projectID && a.Name == name {
			return nil, store.ErrDuplicate
		}
	}
	f.nextID++
	a := &store.Asset{
		ID:        f.nextID,
		UUID:      uuid.New(),
		ProjectID: projectID,
		Type:      assetType,
		Name:      name,
		Size:      size,
		CreatedAt: time.Now(),
	}
	f.assets[a.ID] = a
	return a, nil
}

func (f *fakeAssetStore) GetByName(_ context.Context, projectID int64, name string) (*store.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assets {
		if a.ProjectID == projectID && a.Name == name {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeAssetStore) GetByID(_ context.Context, assetID, projectID int64) (*store.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assets[assetID]; ok && a.ProjectID == projectID {
		return a, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeAssetStore) listWhere(match func(*store.Asset) bool) []store.Asset {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.Asset
	for _, a := range f.assets {
		if match(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *fakeAssetStore) ListByType(_ context.Context, projectID int64, assetType string) ([]store.Asset, error) {
	return f.listWhere(func(a *store.Asset) bool {
		return a.ProjectID == projectID && a.Type == assetType
	}), nil
}

func (f *fakeAssetStore) ListByProject(_ context.Context, projectID int64) ([]store.Asset, error) {
	return f.listWhere(func(a *store.Asset) bool { return a.ProjectID == projectID }), nil
}

func (f *fakeAssetStore) CountByProject(ctx context.Context, projectID int64) (int64, error) {
	assets, _ := f.ListByProject(ctx, projectID)
	return int64(len(assets)), nil
}

func (f *fakeAssetStore) DeleteByID(_ context.Context, assetID, projectID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assets[assetID]; ok && a.ProjectID == projectID {
		delete(f.assets, assetID)
		return nil
	}
	return store.ErrNotFound
}

type fakeChunkStore struct {
	mu     sync.Mutex
	nextID int64
	chunks []store.Chunk
}

func newFakeChunkStore() *fakeChunkStore {
	return &fakeChunkStore{}
}

func (f *fakeChunkStore) InsertMany(_ context.Context, chunks []store.Chunk, _ int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range chunks {
		f.nextID++
		chunks[i].ID = f.nextID
		chunks[i].UUID = uuid.New()
		f.chunks = append(f.chunks, chunks[i])
	}
	return len(chunks), nil
}

func (f *fakeChunkStore) GetPage(_ context.Context, projectID int64, page, pageSize int) ([]store.Chunk, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []store.Chunk
	for _, c := range f.chunks {
		if c.ProjectID == projectID {
			all = append(all, c)
		}
	}
	start := (page - 1) * pageSize
	if start >= len(all) {
		return nil, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (f *fakeChunkStore) IDsByAsset(_ context.Context, projectID, assetID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []int64
	for _, c := range f.chunks {
		if c.ProjectID == projectID && c.AssetID == assetID {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (f *fakeChunkStore) TotalCount(_ context.Context, projectID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, c := range f.chunks {
		if c.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (f *fakeChunkStore) DeleteByProject(_ context.Context, projectID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []store.Chunk
	var removed int64
	for _, c := range f.chunks {
		if c.ProjectID == projectID {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	f.chunks = kept
	return removed, nil
}

type fakeQueryLogStore struct {
	mu   sync.Mutex
	logs []store.QueryLog
}

func (f *fakeQueryLogStore) Insert(_ context.Context, log *store.QueryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	log.ID = int64(len(f.logs) + 1)
	f.logs = append(f.logs, *log)
	return nil
}

// fakeVectorStore is an in-memory vectorstore.Store.
type fakeVectorStore struct {
	mu          sync.Mutex
	collections map[string][]vectorstore.Record
	insertErr   error
	searchErr   error
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{collections: map[string][]vectorstore.Record{}}
}

func (f *fakeVectorStore) CreateCollection(_ context.Context, name string, _ int, reset bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; ok {
		if !reset {
			return false, nil
		}
	}
	f.collections[name] = nil
	return true, nil
}

func (f *fakeVectorStore) CollectionExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	return ok, nil
}

func (f *fakeVectorStore) CollectionInfo(_ context.Context, name string) (*vectorstore.CollectionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records, ok := f.collections[name]
	if !ok {
		return nil, vectorstore.ErrCollectionNotFound
	}
	return &vectorstore.CollectionInfo{
		Name:          name,
		VectorsCount:  int64(len(records)),
		PointsCount:   int64(len(records)),
		SegmentsCount: 1,
		Status:        "green",
	}, nil
}

func (f *fakeVectorStore) DeleteCollection(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.collections[name]
	delete(f.collections, name)
	return ok, nil
}

func (f *fakeVectorStore) InsertMany(_ context.Context, name string, records []vectorstore.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	if _, ok := f.collections[name]; !ok {
		return vectorstore.ErrCollectionNotFound
	}
	f.collections[name] = append(f.collections[name], records...)
	return nil
}

func (f *fakeVectorStore) SearchByVector(_ context.Context, name string, _ []float32, limit int) ([]vectorstore.RetrievedDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	records := f.collections[name]
	var out []vectorstore.RetrievedDocument
	for i, r := range records {
		if i >= limit {
			break
		}
		out = append(out, vectorstore.RetrievedDocument{Text: r.Text, Score: 0.9})
	}
	return out, nil
}

func (f *fakeVectorStore) DeleteByIDs(_ context.Context, name string, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	var kept []vectorstore.Record
	for _, r := range f.collections[name] {
		if !drop[r.ID] {
			kept = append(kept, r)
		}
	}
	f.collections[name] = kept
	return nil
}

func (f *fakeVectorStore) DeleteByFilter(_ context.Context, name string, filter vectorstore.Filter) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []vectorstore.Record
	var removed int64
	for _, r := range f.collections[name] {
		if filter.AssetID != 0 && r.Metadata["asset_id"] == filter.AssetID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	f.collections[name] = kept
	return removed, nil
}

func (f *fakeVectorStore) Close() error { return nil }

// fakeProvider is a deterministic llm.Provider.
type fakeProvider struct {
	unavailable bool
	embedErr    error
	generateErr error
	answer      string
	emptyAnswer bool
	// generateCalls records the prompts passed to Generate.
	generateCalls []string
	embedCalls    int
}

func (f *fakeProvider) Embed(_ context.Context, texts []string, _ llm.EmbedKind) ([][]float32, error) {
	f.embedCalls++
	if f.unavailable {
		return nil, llm.ErrUnavailable
	}
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ []llm.Message) (string, error) {
	f.generateCalls = append(f.generateCalls, prompt)
	if f.unavailable {
		return "", llm.ErrUnavailable
	}
	if f.generateErr != nil {
		return "", f.generateErr
	}
	if f.emptyAnswer {
		return "", nil
	}
	if f.answer == "" {
		return "generated answer", nil
	}
	return f.answer, nil
}

func (f *fakeProvider) NormalizeText(text string) string {
	return strings.TrimSpace(text)
}

func (f *fakeProvider) SystemRole() string { return "system" }

func (f *fakeProvider) Available() bool { return !f.unavailable }
