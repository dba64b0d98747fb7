// Package recommend builds per-user behavior profiles and blends them into
// post, user, category and activity recommendations. Every stage degrades to
// an empty result on failure; a broken stage never fails the whole call.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/communiconnect/insights/internal/models"
	"github.com/communiconnect/insights/internal/repository"
)

const profileKeywords = 10

type Engine struct {
	posts repository.PostRepository
	users repository.UserRepository
	cache *gocache.Cache
	ttl   time.Duration
}

func NewEngine(posts repository.PostRepository, users repository.UserRepository, ttl time.Duration) *Engine {
	return &Engine{
		posts: posts,
		users: users,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Profile is the behavior summary the blending stages read.
type Profile struct {
	UserID               string   `json:"user_id"`
	Quartier             string   `json:"quartier"`
	PostCount            int      `json:"post_count"`
	LikeCount            int      `json:"like_count"`
	CommentCount         int      `json:"comment_count"`
	TopKeywords          []string `json:"top_keywords"`
	GeographicEngagement float64  `json:"geographic_engagement"`
	PeakHours            []int    `json:"peak_hours"`
	ReciprocalContacts   int      `json:"reciprocal_contacts"`
}

func (e *Engine) Profile(ctx context.Context, userID string) (*Profile, error) {
	posts, likes, comments, err := e.posts.UserEngagement(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user engagement: %w", err)
	}

	p := &Profile{
		UserID:       userID,
		PostCount:    posts,
		LikeCount:    likes,
		CommentCount: comments,
	}

	if u, err := e.users.GetUser(ctx, userID); err != nil {
		slog.Error("profile user lookup failed", "user_id", userID, "error", err)
	} else if u != nil {
		p.Quartier = u.Quartier
	}

	if liked, err := e.posts.LikedPosts(ctx, userID); err != nil {
		slog.Error("profile liked posts failed", "user_id", userID, "error", err)
	} else {
		docs := make([]string, 0, len(liked))
		for _, post := range liked {
			docs = append(docs, post.Title+" "+post.Content)
		}
		p.TopKeywords = TopKeywords(docs, profileKeywords)
	}

	if ratio, err := e.posts.QuartierLikeRatio(ctx, userID); err != nil {
		slog.Error("profile quartier ratio failed", "user_id", userID, "error", err)
	} else {
		p.GeographicEngagement = ratio
	}

	if hours, err := e.posts.UserActivityHours(ctx, userID); err != nil {
		slog.Error("profile activity hours failed", "user_id", userID, "error", err)
	} else {
		p.PeakHours = peakHours(hours, 3)
	}

	if n, err := e.posts.ReciprocalLikeCount(ctx, userID); err != nil {
		slog.Error("profile reciprocal count failed", "user_id", userID, "error", err)
	} else {
		p.ReciprocalContacts = n
	}

	return p, nil
}

// peakHours returns the n most frequent hours of day, most active first.
func peakHours(hours []int, n int) []int {
	if len(hours) == 0 {
		return nil
	}
	freq := make(map[int]int)
	for _, h := range hours {
		freq[h]++
	}
	type hc struct{ hour, count int }
	ranked := make([]hc, 0, len(freq))
	for h, c := range freq {
		ranked = append(ranked, hc{h, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].hour < ranked[j].hour
	})
	if n > len(ranked) {
		n = len(ranked)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = ranked[i].hour
	}
	return out
}

type UserRecommendation struct {
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Quartier    string `json:"quartier"`
	SharedLikes int    `json:"shared_likes,omitempty"`
	Reason      string `json:"reason"`
}

type CategoryRecommendation struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type Activity struct {
	Suggestion string `json:"suggestion"`
	Priority   string `json:"priority"`
}

type Bundle struct {
	Posts      []models.Post            `json:"posts,omitempty"`
	Users      []UserRecommendation     `json:"users,omitempty"`
	Categories []CategoryRecommendation `json:"content_categories,omitempty"`
	Activities []Activity               `json:"activities,omitempty"`
}

type Options struct {
	Limit             int
	IncludePosts      bool
	IncludeUsers      bool
	IncludeContent    bool
	IncludeActivities bool
}

func (e *Engine) Recommend(ctx context.Context, userID string, opts Options) (*Bundle, error) {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	cacheKey := fmt.Sprintf("rec:%s:%d:%t%t%t%t", userID, opts.Limit,
		opts.IncludePosts, opts.IncludeUsers, opts.IncludeContent, opts.IncludeActivities)
	if cached, found := e.cache.Get(cacheKey); found {
		return cached.(*Bundle), nil
	}

	profile, err := e.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	bundle := &Bundle{}
	if opts.IncludePosts {
		bundle.Posts = e.recommendPosts(ctx, profile, opts.Limit)
	}
	if opts.IncludeUsers {
		bundle.Users = e.recommendUsers(ctx, profile, opts.Limit)
	}
	if opts.IncludeContent {
		bundle.Categories = e.recommendCategories(ctx, userID, opts.Limit)
	}
	if opts.IncludeActivities {
		bundle.Activities = recommendActivities(profile)
	}

	e.cache.Set(cacheKey, bundle, e.ttl)
	return bundle, nil
}

// recommendPosts blends same-quartier popular posts with keyword matches on
// the profile's top two keywords, re-sorted by engagement.
func (e *Engine) recommendPosts(ctx context.Context, p *Profile, limit int) []models.Post {
	half := limit / 2
	if half < 1 {
		half = 1
	}

	var merged []models.Post
	seen := make(map[string]bool)
	add := func(posts []models.Post) {
		for _, post := range posts {
			if !seen[post.ID] && post.AuthorID != p.UserID {
				seen[post.ID] = true
				merged = append(merged, post)
			}
		}
	}

	if p.Quartier != "" {
		local, err := e.posts.PostsByQuartier(ctx, p.Quartier, half)
		if err != nil {
			slog.Error("quartier post recommendations failed", "user_id", p.UserID, "error", err)
		} else {
			add(local)
		}
	}

	keywords := p.TopKeywords
	if len(keywords) > 2 {
		keywords = keywords[:2]
	}
	for _, kw := range keywords {
		matches, err := e.posts.SearchPosts(ctx, kw, half)
		if err != nil {
			slog.Error("keyword post recommendations failed", "keyword", kw, "error", err)
			continue
		}
		add(matches)
	}

	sort.Slice(merged, func(i, j int) bool {
		ei, ej := merged[i].Likes+merged[i].Comments, merged[j].Likes+merged[j].Comments
		if ei != ej {
			return ei > ej
		}
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// recommendUsers blends same-quartier active users with users who liked
// overlapping posts, ranked by shared-like count.
func (e *Engine) recommendUsers(ctx context.Context, p *Profile, limit int) []UserRecommendation {
	half := limit / 2
	if half < 1 {
		half = 1
	}

	var out []UserRecommendation
	seen := map[string]bool{p.UserID: true}

	shared, err := e.posts.SharedLikeCounts(ctx, p.UserID)
	if err != nil {
		slog.Error("shared like recommendations failed", "user_id", p.UserID, "error", err)
		shared = nil
	}
	type su struct {
		id string
		n  int
	}
	ranked := make([]su, 0, len(shared))
	for id, n := range shared {
		ranked = append(ranked, su{id, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].n != ranked[j].n {
			return ranked[i].n > ranked[j].n
		}
		return ranked[i].id < ranked[j].id
	})
	for _, s := range ranked {
		if len(out) >= half {
			break
		}
		if seen[s.id] {
			continue
		}
		seen[s.id] = true
		rec := UserRecommendation{UserID: s.id, SharedLikes: s.n, Reason: "shared_interests"}
		if u, err := e.users.GetUser(ctx, s.id); err == nil && u != nil {
			rec.Name = u.Name
			rec.Quartier = u.Quartier
		}
		out = append(out, rec)
	}

	if p.Quartier != "" {
		since := time.Now().AddDate(0, 0, -30)
		locals, err := e.posts.ActiveUsersInQuartier(ctx, p.Quartier, since, limit)
		if err != nil {
			slog.Error("quartier user recommendations failed", "user_id", p.UserID, "error", err)
		} else {
			for _, u := range locals {
				if len(out) >= limit {
					break
				}
				if seen[u.ID] {
					continue
				}
				seen[u.ID] = true
				out = append(out, UserRecommendation{
					UserID:   u.ID,
					Name:     u.Name,
					Quartier: u.Quartier,
					Reason:   "same_quartier",
				})
			}
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (e *Engine) recommendCategories(ctx context.Context, userID string, limit int) []CategoryRecommendation {
	counts, err := e.posts.LikedCategoryCounts(ctx, userID)
	if err != nil {
		slog.Error("category recommendations failed", "user_id", userID, "error", err)
		return nil
	}
	var out []CategoryRecommendation
	for _, c := range counts {
		if len(out) >= limit {
			break
		}
		out = append(out, CategoryRecommendation{Category: c.Category, Count: c.Count})
	}
	return out
}

// recommendActivities is a fixed rule list over the profile.
func recommendActivities(p *Profile) []Activity {
	var out []Activity
	if p.PostCount+p.CommentCount < 2 {
		out = append(out, Activity{
			Suggestion: "Publiez ou commentez pour dynamiser votre présence",
			Priority:   "high",
		})
	}
	if p.ReciprocalContacts < 5 {
		out = append(out, Activity{
			Suggestion: "Suivez de nouveaux voisins pour élargir votre réseau",
			Priority:   "medium",
		})
	}
	if p.GeographicEngagement < 0.3 {
		out = append(out, Activity{
			Suggestion: "Participez aux discussions de votre quartier",
			Priority:   "medium",
		})
	}
	return out
}
