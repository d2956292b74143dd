package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
)

// MemoryStore keeps posts, accounts, analytics and history in process memory.
// Every method holds one mutex, so conditional updates behave like the
// single-statement updates of the postgres repositories.
type MemoryStore struct {
	mu       sync.Mutex
	now      func() time.Time
	postSeq  int64
	accSeq   int64
	histSeq  int64
	posts    map[int64]*models.Post
	accounts map[int64]*models.SocialAccount
	metrics  map[int64]map[string]*models.PlatformAnalytics
	history  []*models.PostingHistory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		posts:    make(map[int64]*models.Post),
		accounts: make(map[int64]*models.SocialAccount),
		metrics:  make(map[int64]map[string]*models.PlatformAnalytics),
	}
}

// SetClock replaces the time source used for created_at and updated_at.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) Posts() PostRepository { return memoryPosts{m} }
func (m *MemoryStore) Accounts() SocialAccountRepository { return memoryAccounts{m} }
func (m *MemoryStore) Analytics() AnalyticsRepository { return memoryAnalytics{m} }
func (m *MemoryStore) PostingHistory() PostingHistoryRepository { return memoryHistory{m} }

type memoryPosts struct{ m *MemoryStore }

func (r memoryPosts) Create(_ context.Context, post *models.Post) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	m.postSeq++
	p := post.Clone()
	p.ID = m.postSeq
	p.PublishedAt = nil
	p.LastError = nil
	p.Analytics = nil
	p.CreatedAt = m.now()
	p.UpdatedAt = p.CreatedAt
	m.posts[p.ID] = p
	return p.ID, nil
}

func (r memoryPosts) GetByID(_ context.Context, id int64) (*models.Post, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.posts[id].Clone(), nil
}

func (r memoryPosts) CheckByUserID(_ context.Context, postID, userID int64) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[postID]
	return ok && p.UserID == userID, nil
}

func (r memoryPosts) filter(keep func(*models.Post) bool) []*models.Post {
	var out []*models.Post
	for _, p := range r.m.posts {
		if keep(p) {
			out = append(out, p.Clone())
		}
	}
	return out
}

func (r memoryPosts) ListByUserAndStatus(_ context.Context, userID int64, status string, limit, offset int) ([]*models.Post, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := r.filter(func(p *models.Post) bool {
		return p.UserID == userID && (status == "" || p.Status == status)
	})
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})

	if offset >= len(posts) {
		return nil, nil
	}
	posts = posts[offset:]
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (r memoryPosts) CountByUserAndStatus(_ context.Context, userID int64, status string) (int, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(r.filter(func(p *models.Post) bool {
		return p.UserID == userID && (status == "" || p.Status == status)
	})), nil
}

func sortBySchedule(posts []*models.Post) {
	sort.Slice(posts, func(i, j int) bool {
		a, b := posts[i].ScheduledAt, posts[j].ScheduledAt
		if a != nil && b != nil && !a.Equal(*b) {
			return a.Before(*b)
		}
		return posts[i].ID < posts[j].ID
	})
}

func (r memoryPosts) ListScheduled(_ context.Context, userID int64) ([]*models.Post, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := r.filter(func(p *models.Post) bool {
		return p.UserID == userID && p.Status == models.PostStatusScheduled
	})
	sortBySchedule(posts)
	return posts, nil
}

func (r memoryPosts) ListUpdatedSince(_ context.Context, userID int64, since time.Time) ([]*models.Post, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := r.filter(func(p *models.Post) bool {
		return p.UserID == userID && p.UpdatedAt.After(since)
	})
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].UpdatedAt.Equal(posts[j].UpdatedAt) {
			return posts[i].UpdatedAt.Before(posts[j].UpdatedAt)
		}
		return posts[i].ID < posts[j].ID
	})
	return posts, nil
}

func isDue(p *models.Post, now time.Time) bool {
	return p.Status == models.PostStatusScheduled && p.ScheduledAt != nil && !p.ScheduledAt.After(now)
}

func (r memoryPosts) FindDuePosts(_ context.Context, now time.Time, limit int) ([]*models.Post, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	posts := r.filter(func(p *models.Post) bool { return isDue(p, now) })
	sortBySchedule(posts)
	if limit > 0 && limit < len(posts) {
		posts = posts[:limit]
	}
	return posts, nil
}

func (r memoryPosts) TryClaim(_ context.Context, id int64, from, to string) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.Status != from {
		return false, nil
	}
	p.Status = to
	p.UpdatedAt = m.now()
	return true, nil
}

func (r memoryPosts) ClaimDue(_ context.Context, id int64, now time.Time) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || !isDue(p, now) {
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	p.UpdatedAt = m.now()
	return true, nil
}

func (r memoryPosts) SetTerminalStatus(_ context.Context, id int64, status string, publishedAt *time.Time, lastError models.PlatformResults) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.Status != models.PostStatusPublishing {
		return false, nil
	}
	p.Status = status
	p.PublishedAt = nil
	if publishedAt != nil {
		t := *publishedAt
		p.PublishedAt = &t
	}
	p.LastError = append(models.PlatformResults(nil), lastError...)
	if lastError == nil {
		p.LastError = nil
	}
	p.UpdatedAt = m.now()
	return true, nil
}

func (r memoryPosts) Schedule(_ context.Context, id int64, from []string, when time.Time) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || !slices.Contains(from, p.Status) {
		return false, nil
	}
	p.Status = models.PostStatusScheduled
	p.ScheduledAt = &when
	p.PublishedAt = nil
	p.LastError = nil
	p.UpdatedAt = m.now()
	return true, nil
}

func (r memoryPosts) Cancel(_ context.Context, id int64) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.Status = models.PostStatusDraft
	p.ScheduledAt = nil
	p.UpdatedAt = m.now()
	return true, nil
}

func (r memoryPosts) FailStale(_ context.Context, olderThan time.Time, message string) ([]int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []int64
	for id, p := range m.posts {
		if p.Status != models.PostStatusPublishing || !p.UpdatedAt.Before(olderThan) {
			continue
		}
		results := make(models.PlatformResults, 0, len(p.Platforms))
		for _, platform := range p.Platforms {
			results = append(results, models.PlatformResult{Platform: platform, Message: message})
		}
		p.Status = models.PostStatusFailed
		p.PublishedAt = nil
		p.LastError = results
		p.UpdatedAt = m.now()
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r memoryPosts) Remove(_ context.Context, id int64) (bool, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.posts[id]
	if !ok || p.Status == models.PostStatusPublishing {
		return false, nil
	}
	delete(m.posts, id)
	delete(m.metrics, id)
	return true, nil
}

type memoryAccounts struct{ m *MemoryStore }

func cloneAccount(sa *models.SocialAccount) *models.SocialAccount {
	if sa == nil {
		return nil
	}
	c := *sa
	return &c
}

func (r memoryAccounts) Create(_ context.Context, sa *models.SocialAccount) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.UserID == sa.UserID && existing.Platform == sa.Platform && existing.AccountID == sa.AccountID {
			existing.AccountName = sa.AccountName
			existing.AccountUsername = sa.AccountUsername
			existing.ProfilePicture = sa.ProfilePicture
			existing.AccessToken = sa.AccessToken
			existing.RefreshToken = sa.RefreshToken
			existing.TokenExpiresAt = sa.TokenExpiresAt
			existing.IsActive = sa.IsActive
			existing.UpdatedAt = m.now()
			return existing.ID, nil
		}
	}

	m.accSeq++
	c := cloneAccount(sa)
	c.ID = m.accSeq
	if c.CreatedAt.IsZero() {
		c.CreatedAt = m.now()
	}
	c.UpdatedAt = m.now()
	m.accounts[c.ID] = c
	return c.ID, nil
}

func (r memoryAccounts) GetByID(_ context.Context, id int64) (*models.SocialAccount, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneAccount(m.accounts[id]), nil
}

func (r memoryAccounts) list(keep func(*models.SocialAccount) bool) []*models.SocialAccount {
	var out []*models.SocialAccount
	for _, sa := range r.m.accounts {
		if keep(sa) {
			out = append(out, cloneAccount(sa))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r memoryAccounts) ListByUserID(_ context.Context, userID int64) ([]*models.SocialAccount, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.list(func(sa *models.SocialAccount) bool { return sa.UserID == userID }), nil
}

func (r memoryAccounts) ListActiveByUserAndPlatform(_ context.Context, userID int64, platform string) ([]*models.SocialAccount, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.list(func(sa *models.SocialAccount) bool {
		return sa.UserID == userID && sa.Platform == platform && sa.IsActive
	}), nil
}

func (r memoryAccounts) ListByTimeInterval(_ context.Context, initialTime, finalTime time.Time) ([]*models.SocialAccount, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.list(func(sa *models.SocialAccount) bool {
		return sa.IsActive && sa.RefreshToken != "" && !sa.TokenExpiresAt.After(finalTime)
	}), nil
}

func (r memoryAccounts) CheckByUserID(_ context.Context, accountID, userID int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sa, ok := r.m.accounts[accountID]
	return ok && sa.UserID == userID, nil
}

func (r memoryAccounts) SetToken(_ context.Context, accountID int64, oldAccessToken string, upd *models.SocialAccount) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	sa, ok := m.accounts[accountID]
	if !ok || sa.AccessToken != oldAccessToken {
		return ErrTokenChanged
	}
	if upd.AccessToken != "" {
		sa.AccessToken = upd.AccessToken
	}
	if upd.RefreshToken != "" {
		sa.RefreshToken = upd.RefreshToken
	}
	sa.TokenExpiresAt = upd.TokenExpiresAt
	sa.UpdatedAt = m.now()
	return nil
}

func (r memoryAccounts) Deactivate(_ context.Context, id int64) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	if sa, ok := m.accounts[id]; ok {
		sa.IsActive = false
		sa.UpdatedAt = m.now()
	}
	return nil
}

func (r memoryAccounts) Remove(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.accounts, id)
	return nil
}

type memoryAnalytics struct{ m *MemoryStore }

func (r memoryAnalytics) Upsert(_ context.Context, pa *models.PlatformAnalytics) error {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	byPlatform, ok := m.metrics[pa.PostID]
	if !ok {
		byPlatform = make(map[string]*models.PlatformAnalytics)
		m.metrics[pa.PostID] = byPlatform
	}
	c := *pa
	byPlatform[pa.Platform] = &c
	return nil
}

func (r memoryAnalytics) ListByPostID(_ context.Context, postID int64) ([]*models.PlatformAnalytics, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.PlatformAnalytics
	for _, pa := range m.metrics[postID] {
		c := *pa
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

type memoryHistory struct{ m *MemoryStore }

func (r memoryHistory) Create(_ context.Context, ph *models.PostingHistory) (int64, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	m.histSeq++
	c := *ph
	c.ID = m.histSeq
	c.CreatedAt = m.now()
	m.history = append(m.history, &c)
	return c.ID, nil
}

func (r memoryHistory) ListByPostID(_ context.Context, postID int64) ([]*models.PostingHistory, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*models.PostingHistory
	for _, ph := range m.history {
		if ph.PostID == postID {
			c := *ph
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r memoryHistory) LatestSuccessful(_ context.Context, postID int64) ([]*models.PostingHistory, error) {
	m := r.m
	m.mu.Lock()
	defer m.mu.Unlock()

	latest := make(map[string]*models.PostingHistory)
	for _, ph := range m.history {
		if ph.PostID == postID && ph.Success {
			latest[ph.Platform] = ph
		}
	}

	out := make([]*models.PostingHistory, 0, len(latest))
	for _, ph := range latest {
		c := *ph
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}
