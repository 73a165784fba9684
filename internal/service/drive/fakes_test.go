package drive

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"cloudsyncpro/internal/domain"
	"cloudsyncpro/internal/domain/models"
	"cloudsyncpro/internal/domain/repositories"
	"cloudsyncpro/internal/storage"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// memStore keeps folders and files in maps and mimics the postgres constraints
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	folders map[int64]*models.Folder
	files   map[int64]*models.File
	locks   int // LockHierarchy calls
}

func newMemStore() *memStore {
	return &memStore{
		folders: make(map[int64]*models.Folder),
		files:   make(map[int64]*models.File),
	}
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type memFolderRepo struct{ s *memStore }

func (r *memFolderRepo) counts(id int64) models.ChildCounts {
	var c models.ChildCounts
	for _, f := range r.s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			c.Subfolders++
		}
	}
	for _, f := range r.s.files {
		if f.FolderID != nil && *f.FolderID == id {
			c.Files++
		}
	}
	return c
}

func (r *memFolderRepo) annotated(f *models.Folder) models.Folder {
	out := *f
	c := r.counts(f.ID)
	out.SubfolderCount = c.Subfolders
	out.FileCount = c.Files
	return out
}

func (r *memFolderRepo) List(ctx context.Context, filter repositories.FolderFilter) ([]models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Folder
	for _, f := range r.s.folders {
		if filter.OwnerID != nil && f.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.ParentScoped && !sameParent(f.ParentID, filter.ParentID) {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, r.annotated(f))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memFolderRepo) GetByID(ctx context.Context, id int64) (*models.Folder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "folder not found"}
	}
	out := r.annotated(f)
	return &out, nil
}

func (r *memFolderRepo) Insert(ctx context.Context, name string, parentID *int64, ownerID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if parentID != nil {
		if _, ok := r.s.folders[*parentID]; !ok {
			return 0, &domain.NotFoundError{Message: "parent folder not found"}
		}
	}
	r.s.nextID++
	now := time.Now()
	r.s.folders[r.s.nextID] = &models.Folder{
		ID:        r.s.nextID,
		Name:      name,
		ParentID:  parentID,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.s.nextID, nil
}

func (r *memFolderRepo) Rename(ctx context.Context, id int64, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return &domain.NotFoundError{Message: "folder not found"}
	}
	f.Name = name
	return nil
}

func (r *memFolderRepo) Reparent(ctx context.Context, id int64, parentID *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.folders[id]
	if !ok {
		return &domain.NotFoundError{Message: "folder not found"}
	}
	f.ParentID = parentID
	return nil
}

func (r *memFolderRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.folders[id]; !ok {
		return &domain.NotFoundError{Message: "folder not found"}
	}
	if c := r.counts(id); !c.IsEmpty() {
		return &domain.NotEmptyError{Message: "folder contains files or subfolders", Subfolders: c.Subfolders, Files: c.Files}
	}
	delete(r.s.folders, id)
	return nil
}

func (r *memFolderRepo) CountChildren(ctx context.Context, id int64) (models.ChildCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.counts(id), nil
}

func (r *memFolderRepo) IsDescendant(ctx context.Context, folderID, ancestorID int64, maxDepth int) (bool, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	children := func(frontier []int64) []int64 {
		var next []int64
		for _, f := range r.s.folders {
			for _, p := range frontier {
				if f.ParentID != nil && *f.ParentID == p {
					next = append(next, f.ID)
				}
			}
		}
		return next
	}

	frontier := []int64{ancestorID}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		frontier = children(frontier)
		for _, id := range frontier {
			if id == folderID {
				return true, false, nil
			}
		}
	}
	return false, len(children(frontier)) > 0, nil
}

func (r *memFolderRepo) LockHierarchy(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.locks++
	return nil
}

func (r *memFolderRepo) GetPath(ctx context.Context, id int64, maxDepth int) ([]models.PathSegment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var chain []models.PathSegment
	cur, ok := r.s.folders[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "folder not found"}
	}
	for cur != nil && len(chain) < maxDepth {
		chain = append(chain, models.PathSegment{ID: cur.ID, Name: cur.Name})
		if cur.ParentID == nil {
			break
		}
		cur = r.s.folders[*cur.ParentID]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	for i := range chain {
		chain[i].Level = i
	}
	return chain, nil
}

func (r *memFolderRepo) GetSubtreeStats(ctx context.Context, id int64) (*models.FolderStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	direct := r.counts(id)
	stats := &models.FolderStats{
		FolderID:         id,
		DirectSubfolders: direct.Subfolders,
		DirectFiles:      direct.Files,
	}

	subtree := map[int64]bool{id: true}
	for changed := true; changed; {
		changed = false
		for _, f := range r.s.folders {
			if f.ParentID != nil && subtree[*f.ParentID] && !subtree[f.ID] {
				subtree[f.ID] = true
				changed = true
			}
		}
	}
	stats.TotalSubfolders = len(subtree) - 1
	for _, f := range r.s.files {
		if f.FolderID != nil && subtree[*f.FolderID] {
			stats.TotalFiles++
			stats.TotalBytes += f.Size
		}
	}
	return stats, nil
}

func (r *memFolderRepo) ExistsSiblingWithName(ctx context.Context, name string, parentID *int64, ownerID int64, excludeID *int64) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, f := range r.s.folders {
		if excludeID != nil && f.ID == *excludeID {
			continue
		}
		if f.OwnerID == ownerID && f.Name == name && sameParent(f.ParentID, parentID) {
			return true, nil
		}
	}
	return false, nil
}

type memFileRepo struct{ s *memStore }

func (r *memFileRepo) matches(f *models.File, filter repositories.FileFilter) bool {
	if filter.OwnerID != nil && f.OwnerID != *filter.OwnerID {
		return false
	}
	if filter.FolderScoped && !sameParent(f.FolderID, filter.FolderID) {
		return false
	}
	if filter.Search != "" && !strings.Contains(strings.ToLower(f.Name), strings.ToLower(filter.Search)) {
		return false
	}
	if filter.Category != "" && f.Category != filter.Category {
		return false
	}
	return true
}

func (r *memFileRepo) Create(ctx context.Context, file *models.File) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if file.FolderID != nil {
		if _, ok := r.s.folders[*file.FolderID]; !ok {
			return &domain.NotFoundError{Message: "folder not found"}
		}
	}
	r.s.nextID++
	file.ID = r.s.nextID
	file.CreatedAt = time.Now().Add(time.Duration(file.ID) * time.Millisecond)
	file.UpdatedAt = file.CreatedAt
	stored := *file
	r.s.files[file.ID] = &stored
	return nil
}

func (r *memFileRepo) GetByID(ctx context.Context, id int64) (*models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.files[id]
	if !ok {
		return nil, &domain.NotFoundError{Message: "file not found"}
	}
	out := *f
	return &out, nil
}

func (r *memFileRepo) List(ctx context.Context, filter repositories.FileFilter) ([]models.File, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.File
	for _, f := range r.s.files {
		if r.matches(f, filter) {
			out = append(out, *f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memFileRepo) Count(ctx context.Context, filter repositories.FileFilter) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for _, f := range r.s.files {
		if r.matches(f, filter) {
			n++
		}
	}
	return n, nil
}

func (r *memFileRepo) Rename(ctx context.Context, id int64, name string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.files[id]
	if !ok {
		return &domain.NotFoundError{Message: "file not found"}
	}
	f.Name = name
	return nil
}

func (r *memFileRepo) Reparent(ctx context.Context, id int64, folderID *int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	f, ok := r.s.files[id]
	if !ok {
		return &domain.NotFoundError{Message: "file not found"}
	}
	f.FolderID = folderID
	return nil
}

func (r *memFileRepo) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.files[id]; !ok {
		return &domain.NotFoundError{Message: "file not found"}
	}
	delete(r.s.files, id)
	return nil
}

func (r *memFileRepo) Stats(ctx context.Context, ownerID *int64, now time.Time) (*models.FileStats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := &models.FileStats{GlobalScope: ownerID == nil}
	for _, f := range r.s.files {
		if ownerID != nil && f.OwnerID != *ownerID {
			continue
		}
		stats.TotalFiles++
		stats.TotalBytes += f.Size
		if f.CreatedAt.After(now.AddDate(0, 0, -7)) {
			stats.Last7Days++
		}
		if f.CreatedAt.After(now.AddDate(0, 0, -30)) {
			stats.Last30Days++
		}
	}
	return stats, nil
}

func (r *memFileRepo) CountByCategory(ctx context.Context, ownerID *int64) (map[models.FileCategory]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make(map[models.FileCategory]int, len(models.AllCategories))
	for _, c := range models.AllCategories {
		out[c] = 0
	}
	for _, f := range r.s.files {
		if ownerID != nil && f.OwnerID != *ownerID {
			continue
		}
		out[f.Category]++
	}
	return out, nil
}

// passthroughTx runs fn directly; the in-memory repos are already serialized
type passthroughTx struct{ calls int }

func (t *passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	t.calls++
	return fn(ctx)
}

// memObjects is an in-memory storage.Provider
type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	deleteErr error
}

func newMemObjects() *memObjects {
	return &memObjects{objects: make(map[string][]byte)}
}

func (m *memObjects) Save(ctx context.Context, key string, r io.Reader, contentType string) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return int64(len(data)), nil
}

func (m *memObjects) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.objects[key]; !ok {
		return fs.ErrNotExist
	}
	delete(m.objects, key)
	return nil
}

func (m *memObjects) URL(key string) string { return "http://files.test/" + key }

func (m *memObjects) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}
