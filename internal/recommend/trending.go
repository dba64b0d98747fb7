package recommend

import (
	"context"
	"fmt"

	"github.com/communiconnect/insights/internal/models"
)

type Trending struct {
	Quartier      string        `json:"quartier"`
	Posts         []models.Post `json:"posts"`
	Keywords      []string      `json:"keywords"`
	TotalLikes    int           `json:"total_likes"`
	TotalComments int           `json:"total_comments"`
}

// Trending ranks a quartier's most engaged posts and extracts the keywords
// dominating them.
func (e *Engine) Trending(ctx context.Context, quartier string, limit int) (*Trending, error) {
	if limit <= 0 {
		limit = 10
	}

	posts, err := e.posts.PostsByQuartier(ctx, quartier, limit)
	if err != nil {
		return nil, fmt.Errorf("trending posts: %w", err)
	}

	t := &Trending{Quartier: quartier, Posts: posts}
	docs := make([]string, 0, len(posts))
	for _, p := range posts {
		docs = append(docs, p.Title+" "+p.Content)
		t.TotalLikes += p.Likes
		t.TotalComments += p.Comments
	}
	t.Keywords = TopKeywords(docs, 5)
	return t, nil
}

type Optimization struct {
	ContentType   string   `json:"content_type"`
	BestHours     []int    `json:"best_hours"`
	TopCategories []string `json:"top_categories"`
	Suggestion    string   `json:"suggestion"`
}

// Optimize suggests posting times and a content mix from the user's own
// activity pattern and liked categories.
func (e *Engine) Optimize(ctx context.Context, userID, contentType string) (*Optimization, error) {
	profile, err := e.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	opt := &Optimization{
		ContentType: contentType,
		BestHours:   profile.PeakHours,
	}

	cats := e.recommendCategories(ctx, userID, 3)
	for _, c := range cats {
		opt.TopCategories = append(opt.TopCategories, c.Category)
	}

	switch {
	case len(opt.BestHours) == 0:
		opt.Suggestion = "Pas encore assez d'activité pour optimiser vos horaires"
	case profile.GeographicEngagement < 0.3:
		opt.Suggestion = "Ciblez votre quartier aux heures de pointe pour plus de portée"
	default:
		opt.Suggestion = "Publiez pendant vos heures de pointe habituelles"
	}
	return opt, nil
}

type Insights struct {
	Profile         *Profile `json:"profile"`
	EngagementLevel string   `json:"engagement_level"`
	SocialReach     string   `json:"social_reach"`
	ContentAffinity []string `json:"content_affinity"`
}

// Insights summarizes a user's engagement, social and content signals.
func (e *Engine) Insights(ctx context.Context, userID string) (*Insights, error) {
	profile, err := e.Profile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("build profile: %w", err)
	}

	ins := &Insights{Profile: profile, ContentAffinity: profile.TopKeywords}

	total := profile.PostCount + profile.LikeCount + profile.CommentCount
	switch {
	case total >= 50:
		ins.EngagementLevel = "high"
	case total >= 10:
		ins.EngagementLevel = "medium"
	default:
		ins.EngagementLevel = "low"
	}

	switch {
	case profile.ReciprocalContacts >= 10:
		ins.SocialReach = "connected"
	case profile.ReciprocalContacts >= 3:
		ins.SocialReach = "growing"
	default:
		ins.SocialReach = "isolated"
	}
	return ins, nil
}
