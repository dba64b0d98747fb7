package recommend

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/communiconnect/insights/internal/models"
	"github.com/communiconnect/insights/internal/repository"
)

type mockPosts struct {
	liked       []models.Post
	byQuartier  []models.Post
	searchable  []models.Post
	sharedLikes map[string]int
	locals      []models.User
	posts       int
	likes       int
	comments    int
	hours       []int
	reciprocal  int
	categories  []repository.CategoryCount
	geoRatio    float64
}

func (m *mockPosts) AddPost(ctx context.Context, p *models.Post) error           { return nil }
func (m *mockPosts) AddLike(ctx context.Context, l *models.PostLike) error       { return nil }
func (m *mockPosts) AddComment(ctx context.Context, c *models.PostComment) error { return nil }
func (m *mockPosts) LikedPosts(ctx context.Context, userID string) ([]models.Post, error) {
	return m.liked, nil
}
func (m *mockPosts) PostsByQuartier(ctx context.Context, quartier string, limit int) ([]models.Post, error) {
	if len(m.byQuartier) > limit {
		return m.byQuartier[:limit], nil
	}
	return m.byQuartier, nil
}
func (m *mockPosts) SearchPosts(ctx context.Context, keyword string, limit int) ([]models.Post, error) {
	var out []models.Post
	for _, p := range m.searchable {
		if strings.Contains(strings.ToLower(p.Title+" "+p.Content), strings.ToLower(keyword)) {
			out = append(out, p)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
func (m *mockPosts) SharedLikeCounts(ctx context.Context, userID string) (map[string]int, error) {
	return m.sharedLikes, nil
}
func (m *mockPosts) ActiveUsersInQuartier(ctx context.Context, quartier string, since time.Time, limit int) ([]models.User, error) {
	return m.locals, nil
}
func (m *mockPosts) UserEngagement(ctx context.Context, userID string) (int, int, int, error) {
	return m.posts, m.likes, m.comments, nil
}
func (m *mockPosts) UserActivityHours(ctx context.Context, userID string) ([]int, error) {
	return m.hours, nil
}
func (m *mockPosts) ReciprocalLikeCount(ctx context.Context, userID string) (int, error) {
	return m.reciprocal, nil
}
func (m *mockPosts) LikedCategoryCounts(ctx context.Context, userID string) ([]repository.CategoryCount, error) {
	return m.categories, nil
}
func (m *mockPosts) QuartierLikeRatio(ctx context.Context, userID string) (float64, error) {
	return m.geoRatio, nil
}

type mockUsers struct {
	users map[string]models.User
}

func (m *mockUsers) AddUser(ctx context.Context, u *models.User) error { return nil }
func (m *mockUsers) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func TestTopKeywords(t *testing.T) {
	docs := []string{
		"Coupure d'électricité à Madina ce soir",
		"Encore une coupure d'électricité dans le quartier",
		"Match de football au stade",
	}
	keywords := TopKeywords(docs, 3)
	if len(keywords) == 0 {
		t.Fatal("expected keywords from non-empty corpus")
	}

	found := false
	for _, k := range keywords {
		if k == "coupure" || k == "électricité" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a repeated term among top keywords, got %v", keywords)
	}
}

func TestTopKeywords_EmptyCorpus(t *testing.T) {
	if got := TopKeywords(nil, 5); got != nil {
		t.Errorf("expected nil for empty corpus, got %v", got)
	}
	if got := TopKeywords([]string{"le la les et"}, 5); got != nil {
		t.Errorf("expected nil for all-stopword corpus, got %v", got)
	}
}

func TestPeakHours(t *testing.T) {
	hours := []int{20, 20, 20, 8, 8, 13}
	got := peakHours(hours, 2)
	if len(got) != 2 || got[0] != 20 || got[1] != 8 {
		t.Errorf("peakHours = %v, want [20 8]", got)
	}
	if peakHours(nil, 3) != nil {
		t.Error("expected nil for no activity")
	}
}

func TestRecommend_PostsBlendAndSort(t *testing.T) {
	posts := &mockPosts{
		liked: []models.Post{
			{ID: "l1", Title: "coupure électricité Madina", Content: "encore coupure"},
		},
		byQuartier: []models.Post{
			{ID: "q1", AuthorID: "other", Quartier: "Madina", Likes: 3, Comments: 1},
			{ID: "q2", AuthorID: "other", Quartier: "Madina", Likes: 10, Comments: 5},
		},
		searchable: []models.Post{
			{ID: "s1", AuthorID: "other", Title: "grosse coupure secteur", Likes: 7},
			{ID: "q1", AuthorID: "other", Title: "coupure", Likes: 3, Comments: 1}, // dup of q1
		},
	}
	users := &mockUsers{users: map[string]models.User{
		"me": {ID: "me", Quartier: "Madina"},
	}}
	e := NewEngine(posts, users, time.Minute)

	bundle, err := e.Recommend(context.Background(), "me", Options{Limit: 10, IncludePosts: true})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(bundle.Posts) != 3 {
		t.Fatalf("expected 3 deduplicated posts, got %d", len(bundle.Posts))
	}
	// Sorted by likes+comments desc: q2 (15), s1 (7), q1 (4).
	if bundle.Posts[0].ID != "q2" || bundle.Posts[1].ID != "s1" || bundle.Posts[2].ID != "q1" {
		t.Errorf("unexpected order: %s, %s, %s",
			bundle.Posts[0].ID, bundle.Posts[1].ID, bundle.Posts[2].ID)
	}
}

func TestRecommend_ExcludesOwnPosts(t *testing.T) {
	posts := &mockPosts{
		byQuartier: []models.Post{
			{ID: "mine", AuthorID: "me", Quartier: "Madina", Likes: 99},
			{ID: "q1", AuthorID: "other", Quartier: "Madina", Likes: 1},
		},
	}
	users := &mockUsers{users: map[string]models.User{
		"me": {ID: "me", Quartier: "Madina"},
	}}
	e := NewEngine(posts, users, time.Minute)

	bundle, err := e.Recommend(context.Background(), "me", Options{Limit: 5, IncludePosts: true})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}
	for _, p := range bundle.Posts {
		if p.AuthorID == "me" {
			t.Errorf("own post %s recommended", p.ID)
		}
	}
}

func TestRecommend_UsersBlend(t *testing.T) {
	posts := &mockPosts{
		sharedLikes: map[string]int{"u2": 5, "u3": 2},
		locals: []models.User{
			{ID: "u4", Name: "Aissatou", Quartier: "Madina"},
			{ID: "u2", Name: "Mamadou", Quartier: "Madina"}, // already via shared likes
		},
	}
	users := &mockUsers{users: map[string]models.User{
		"me": {ID: "me", Quartier: "Madina"},
		"u2": {ID: "u2", Name: "Mamadou", Quartier: "Madina"},
	}}
	e := NewEngine(posts, users, time.Minute)

	bundle, err := e.Recommend(context.Background(), "me", Options{Limit: 4, IncludeUsers: true})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	if len(bundle.Users) != 3 {
		t.Fatalf("expected 3 user recommendations, got %d", len(bundle.Users))
	}
	if bundle.Users[0].UserID != "u2" || bundle.Users[0].SharedLikes != 5 {
		t.Errorf("expected u2 ranked first by shared likes, got %+v", bundle.Users[0])
	}
	seen := make(map[string]bool)
	for _, u := range bundle.Users {
		if seen[u.UserID] {
			t.Errorf("duplicate user recommendation %s", u.UserID)
		}
		seen[u.UserID] = true
	}
}

func TestRecommend_Activities(t *testing.T) {
	p := &Profile{PostCount: 0, CommentCount: 1, ReciprocalContacts: 1, GeographicEngagement: 0.1}
	acts := recommendActivities(p)
	if len(acts) != 3 {
		t.Fatalf("expected all 3 activity rules to fire, got %d", len(acts))
	}

	engaged := &Profile{PostCount: 10, CommentCount: 10, ReciprocalContacts: 8, GeographicEngagement: 0.9}
	if got := recommendActivities(engaged); len(got) != 0 {
		t.Errorf("expected no suggestions for an engaged user, got %d", len(got))
	}
}

func TestRecommend_CachesBundle(t *testing.T) {
	posts := &mockPosts{
		byQuartier: []models.Post{{ID: "q1", AuthorID: "other", Likes: 1}},
	}
	users := &mockUsers{users: map[string]models.User{
		"me": {ID: "me", Quartier: "Madina"},
	}}
	e := NewEngine(posts, users, time.Minute)
	ctx := context.Background()

	first, err := e.Recommend(ctx, "me", Options{Limit: 5, IncludePosts: true})
	if err != nil {
		t.Fatalf("Recommend failed: %v", err)
	}

	// Mutate the backing data; the cached bundle should still be served.
	posts.byQuartier = nil
	second, err := e.Recommend(ctx, "me", Options{Limit: 5, IncludePosts: true})
	if err != nil {
		t.Fatalf("second Recommend failed: %v", err)
	}
	if len(second.Posts) != len(first.Posts) {
		t.Errorf("expected cached bundle, got %d posts vs %d", len(second.Posts), len(first.Posts))
	}
}

func TestInsights_Levels(t *testing.T) {
	posts := &mockPosts{posts: 20, likes: 20, comments: 15, reciprocal: 12}
	users := &mockUsers{users: map[string]models.User{}}
	e := NewEngine(posts, users, time.Minute)

	ins, err := e.Insights(context.Background(), "me")
	if err != nil {
		t.Fatalf("Insights failed: %v", err)
	}
	if ins.EngagementLevel != "high" {
		t.Errorf("expected high engagement, got %s", ins.EngagementLevel)
	}
	if ins.SocialReach != "connected" {
		t.Errorf("expected connected reach, got %s", ins.SocialReach)
	}
}

func TestTrending_KeywordsFromPosts(t *testing.T) {
	posts := &mockPosts{
		byQuartier: []models.Post{
			{ID: "p1", Title: "Inondation route Donka", Likes: 4, Comments: 2},
			{ID: "p2", Title: "Inondation marché", Likes: 1},
		},
	}
	users := &mockUsers{users: map[string]models.User{}}
	e := NewEngine(posts, users, time.Minute)

	tr, err := e.Trending(context.Background(), "Madina", 10)
	if err != nil {
		t.Fatalf("Trending failed: %v", err)
	}
	if tr.TotalLikes != 5 || tr.TotalComments != 2 {
		t.Errorf("engagement totals = %d/%d, want 5/2", tr.TotalLikes, tr.TotalComments)
	}
	found := false
	for _, k := range tr.Keywords {
		if k == "inondation" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected 'inondation' among trending keywords, got %v", tr.Keywords)
	}
}
