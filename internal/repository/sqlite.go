package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/communiconnect/insights/internal/models"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			quartier TEXT,
			commune TEXT,
			prefecture TEXT,
			region TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			category TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			latitude REAL,
			longitude REAL,
			quartier TEXT,
			city TEXT,
			reliability_score REAL NOT NULL DEFAULT 50,
			created_at DATETIME NOT NULL,
			resolved_at DATETIME,
			FOREIGN KEY (author_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS alert_reports (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			reporter_id TEXT NOT NULL,
			type TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (alert_id) REFERENCES alerts(id)
		);

		CREATE TABLE IF NOT EXISTS help_offers (
			id TEXT PRIMARY KEY,
			alert_id TEXT NOT NULL,
			helper_id TEXT NOT NULL,
			message TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (alert_id) REFERENCES alerts(id)
		);

		CREATE TABLE IF NOT EXISTS achievements (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			points_earned INTEGER NOT NULL,
			earned_at DATETIME NOT NULL,
			UNIQUE (user_id, type)
		);

		CREATE TABLE IF NOT EXISTS user_levels (
			user_id TEXT PRIMARY KEY,
			level INTEGER NOT NULL,
			points INTEGER NOT NULL,
			experience INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			author_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content TEXT,
			category TEXT,
			quartier TEXT,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS post_likes (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			UNIQUE (post_id, user_id),
			FOREIGN KEY (post_id) REFERENCES posts(id)
		);

		CREATE TABLE IF NOT EXISTS post_comments (
			id TEXT PRIMARY KEY,
			post_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			content TEXT,
			created_at DATETIME NOT NULL,
			FOREIGN KEY (post_id) REFERENCES posts(id)
		);

		CREATE INDEX IF NOT EXISTS idx_alerts_author ON alerts(author_id);
		CREATE INDEX IF NOT EXISTS idx_alerts_created ON alerts(created_at);
		CREATE INDEX IF NOT EXISTS idx_alerts_quartier ON alerts(quartier);
		CREATE INDEX IF NOT EXISTS idx_reports_alert ON alert_reports(alert_id);
		CREATE INDEX IF NOT EXISTS idx_help_alert ON help_offers(alert_id);
		CREATE INDEX IF NOT EXISTS idx_help_helper ON help_offers(helper_id);
		CREATE INDEX IF NOT EXISTS idx_likes_user ON post_likes(user_id);
		CREATE INDEX IF NOT EXISTS idx_posts_quartier ON posts(quartier);
  	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// --- users ---

func (s *SQLiteDB) AddUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, quartier, commune, prefecture, region, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Quartier, u.Commune, u.Prefecture, u.Region, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, quartier, commune, prefecture, region, created_at
		FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &u.Quartier, &u.Commune, &u.Prefecture, &u.Region, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- alerts ---

func (s *SQLiteDB) AddAlert(ctx context.Context, a *models.Alert) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, author_id, category, status, title, description,
			latitude, longitude, quartier, city, reliability_score, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.AuthorID, a.Category, a.Status, a.Title, a.Description,
		a.Latitude, a.Longitude, a.Quartier, a.City, a.ReliabilityScore, a.CreatedAt, a.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetAlert(ctx context.Context, id string) (*models.Alert, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, author_id, category, status, title, description,
			latitude, longitude, quartier, city, reliability_score, created_at, resolved_at
		FROM alerts WHERE id = ?`, id)

	a, err := scanAlert(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return a, nil
}

func (s *SQLiteDB) UpdateAlertStatus(ctx context.Context, id string, status models.AlertStatus, resolvedAt *time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, resolved_at = COALESCE(?, resolved_at) WHERE id = ?`,
		status, resolvedAt, id)
	if err != nil {
		return fmt.Errorf("update alert status: %w", err)
	}
	return nil
}

func (s *SQLiteDB) SetAlertReliability(ctx context.Context, id string, score float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET reliability_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("set alert reliability: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ListAlertsByAuthor(ctx context.Context, authorID string) ([]models.Alert, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, author_id, category, status, title, description,
			latitude, longitude, quartier, city, reliability_score, created_at, resolved_at
		FROM alerts WHERE author_id = ? ORDER BY created_at DESC`, authorID)
	if err != nil {
		return nil, fmt.Errorf("list alerts by author: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		alerts = append(alerts, *a)
	}
	return alerts, rows.Err()
}

func (s *SQLiteDB) AuthorStatusCounts(ctx context.Context, authorID string) (StatusCounts, error) {
	var c StatusCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'false_alarm' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'resolved' THEN 1 ELSE 0 END), 0)
		FROM alerts WHERE author_id = ?`, authorID).
		Scan(&c.Total, &c.Confirmed, &c.FalseAlarms, &c.Resolved)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("author status counts: %w", err)
	}
	return c, nil
}

func (s *SQLiteDB) AddReport(ctx context.Context, r *models.AlertReport) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alert_reports (id, alert_id, reporter_id, type, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		r.ID, r.AlertID, r.ReporterID, r.Type, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *SQLiteDB) ReportCounts(ctx context.Context, alertID string) (int, int, error) {
	var confirmed, falseAlarm int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'confirmed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'false_alarm' THEN 1 ELSE 0 END), 0)
		FROM alert_reports WHERE alert_id = ?`, alertID).
		Scan(&confirmed, &falseAlarm)
	if err != nil {
		return 0, 0, fmt.Errorf("report counts: %w", err)
	}
	return confirmed, falseAlarm, nil
}

func (s *SQLiteDB) AddHelpOffer(ctx context.Context, h *models.HelpOffer) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO help_offers (id, alert_id, helper_id, message, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.AlertID, h.HelperID, h.Message, h.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert help offer: %w", err)
	}
	return nil
}

// --- analytics aggregates ---

func (s *SQLiteDB) DailyAlertCounts(ctx context.Context, since time.Time) ([]DailyCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(created_at), COUNT(*)
		FROM alerts WHERE created_at >= ?
		GROUP BY date(created_at) ORDER BY date(created_at)`, since)
	if err != nil {
		return nil, fmt.Errorf("daily alert counts: %w", err)
	}
	defer rows.Close()

	var counts []DailyCount
	for rows.Next() {
		var day string
		var c DailyCount
		if err := rows.Scan(&day, &c.Count); err != nil {
			return nil, fmt.Errorf("scan daily count: %w", err)
		}
		c.Day, err = time.Parse("2006-01-02", day)
		if err != nil {
			return nil, fmt.Errorf("parse day %q: %w", day, err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLiteDB) QuartierAlertCounts(ctx context.Context, since time.Time) ([]QuartierCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT quartier, COUNT(*) AS n,
			COALESCE(AVG(latitude), 0), COALESCE(AVG(longitude), 0),
			(SELECT category FROM alerts a2
			 WHERE a2.quartier = a.quartier AND a2.created_at >= ?
			 GROUP BY category ORDER BY COUNT(*) DESC, category LIMIT 1)
		FROM alerts a
		WHERE created_at >= ? AND quartier != ''
		GROUP BY quartier ORDER BY n DESC`, since, since)
	if err != nil {
		return nil, fmt.Errorf("quartier alert counts: %w", err)
	}
	defer rows.Close()

	var counts []QuartierCount
	for rows.Next() {
		var q QuartierCount
		if err := rows.Scan(&q.Quartier, &q.Count, &q.Latitude, &q.Longitude, &q.Category); err != nil {
			return nil, fmt.Errorf("scan quartier count: %w", err)
		}
		counts = append(counts, q)
	}
	return counts, rows.Err()
}

func (s *SQLiteDB) CategoryAlertCounts(ctx context.Context, since time.Time) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*) AS n
		FROM alerts WHERE created_at >= ?
		GROUP BY category ORDER BY n DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("category alert counts: %w", err)
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLiteDB) AuthorReliabilityScores(ctx context.Context) ([]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT AVG(reliability_score) FROM alerts GROUP BY author_id`)
	if err != nil {
		return nil, fmt.Errorf("author reliability scores: %w", err)
	}
	defer rows.Close()

	var scores []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan reliability: %w", err)
		}
		scores = append(scores, v)
	}
	return scores, rows.Err()
}

func (s *SQLiteDB) ResolutionLatencies(ctx context.Context, since time.Time) ([]time.Duration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT created_at, resolved_at FROM alerts
		WHERE resolved_at IS NOT NULL AND created_at >= ?`, since)
	if err != nil {
		return nil, fmt.Errorf("resolution latencies: %w", err)
	}
	defer rows.Close()

	var out []time.Duration
	for rows.Next() {
		var created, resolved time.Time
		if err := rows.Scan(&created, &resolved); err != nil {
			return nil, fmt.Errorf("scan latency: %w", err)
		}
		if resolved.After(created) {
			out = append(out, resolved.Sub(created))
		}
	}
	return out, rows.Err()
}

func (s *SQLiteDB) FirstHelpLatencies(ctx context.Context, since time.Time) ([]time.Duration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.created_at, MIN(h.created_at)
		FROM alerts a JOIN help_offers h ON h.alert_id = a.id
		WHERE a.created_at >= ?
		GROUP BY a.id`, since)
	if err != nil {
		return nil, fmt.Errorf("first help latencies: %w", err)
	}
	defer rows.Close()

	var out []time.Duration
	for rows.Next() {
		var created, firstHelp time.Time
		if err := rows.Scan(&created, &firstHelp); err != nil {
			return nil, fmt.Errorf("scan help latency: %w", err)
		}
		if firstHelp.After(created) {
			out = append(out, firstHelp.Sub(created))
		}
	}
	return out, rows.Err()
}

func (s *SQLiteDB) Engagement(ctx context.Context, since time.Time) (EngagementCounts, error) {
	var e EngagementCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM alerts WHERE created_at >= ?),
			(SELECT COUNT(*) FROM alert_reports WHERE created_at >= ?),
			(SELECT COUNT(*) FROM help_offers WHERE created_at >= ?)`,
		since, since, since).
		Scan(&e.Alerts, &e.Reports, &e.HelpOffers)
	if err != nil {
		return EngagementCounts{}, fmt.Errorf("engagement counts: %w", err)
	}
	return e, nil
}

// --- gamification ---

func (s *SQLiteDB) InsertAchievement(ctx context.Context, a *models.Achievement) (bool, error) {
	// INSERT OR IGNORE rides the (user_id, type) unique index so concurrent
	// unlock attempts collapse into a single row instead of erroring.
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO achievements (id, user_id, type, points_earned, earned_at)
		VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.Type, a.PointsEarned, a.EarnedAt)
	if err != nil {
		return false, fmt.Errorf("insert achievement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert achievement rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteDB) ListAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, type, points_earned, earned_at
		FROM achievements WHERE user_id = ? ORDER BY earned_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}
	defer rows.Close()

	var out []models.Achievement
	for rows.Next() {
		var a models.Achievement
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &a.PointsEarned, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("scan achievement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteDB) SumAchievementPoints(ctx context.Context, userID string) (int, error) {
	var sum int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(points_earned), 0) FROM achievements WHERE user_id = ?`, userID).
		Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum achievement points: %w", err)
	}
	return sum, nil
}

func (s *SQLiteDB) UpsertUserLevel(ctx context.Context, lvl *models.UserLevel) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user_levels (user_id, level, points, experience, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			level = excluded.level,
			points = excluded.points,
			experience = excluded.experience,
			updated_at = excluded.updated_at`,
		lvl.UserID, lvl.Level, lvl.Points, lvl.Experience, lvl.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert user level: %w", err)
	}
	return nil
}

func (s *SQLiteDB) GetUserLevel(ctx context.Context, userID string) (*models.UserLevel, error) {
	var lvl models.UserLevel
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, level, points, experience, updated_at
		FROM user_levels WHERE user_id = ?`, userID).
		Scan(&lvl.UserID, &lvl.Level, &lvl.Points, &lvl.Experience, &lvl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user level: %w", err)
	}
	return &lvl, nil
}

func (s *SQLiteDB) HelpOfferCountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM help_offers WHERE helper_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("help offer count: %w", err)
	}
	return n, nil
}

func (s *SQLiteDB) AvgAlertReliability(ctx context.Context, authorID string) (float64, error) {
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(reliability_score) FROM alerts WHERE author_id = ?`, authorID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("avg alert reliability: %w", err)
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (s *SQLiteDB) ActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT user_id FROM (
			SELECT author_id AS user_id, created_at FROM alerts
			UNION ALL
			SELECT reporter_id, created_at FROM alert_reports
			UNION ALL
			SELECT helper_id, created_at FROM help_offers
		) WHERE created_at >= ?
		ORDER BY user_id`, since)
	if err != nil {
		return nil, fmt.Errorf("active user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- posts ---

const postColumns = `
	p.id, p.author_id, p.title, p.content, p.category, p.quartier, p.created_at,
	(SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id),
	(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id)`

func (s *SQLiteDB) AddPost(ctx context.Context, p *models.Post) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, title, content, category, quartier, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.AuthorID, p.Title, p.Content, p.Category, p.Quartier, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (s *SQLiteDB) AddLike(ctx context.Context, l *models.PostLike) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO post_likes (id, post_id, user_id, created_at)
		VALUES (?, ?, ?, ?)`,
		l.ID, l.PostID, l.UserID, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

func (s *SQLiteDB) AddComment(ctx context.Context, c *models.PostComment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_comments (id, post_id, user_id, content, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.PostID, c.UserID, c.Content, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

func (s *SQLiteDB) LikedPosts(ctx context.Context, userID string) ([]models.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p JOIN post_likes pl ON pl.post_id = p.id
		WHERE pl.user_id = ? ORDER BY pl.created_at DESC`, userID)
}

func (s *SQLiteDB) PostsByQuartier(ctx context.Context, quartier string, limit int) ([]models.Post, error) {
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		WHERE p.quartier = ?
		ORDER BY (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id) +
			(SELECT COUNT(*) FROM post_comments c WHERE c.post_id = p.id) DESC,
			p.created_at DESC
		LIMIT ?`, quartier, limit)
}

func (s *SQLiteDB) SearchPosts(ctx context.Context, keyword string, limit int) ([]models.Post, error) {
	pattern := "%" + keyword + "%"
	return s.queryPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		WHERE p.title LIKE ? COLLATE NOCASE OR p.content LIKE ? COLLATE NOCASE
		ORDER BY p.created_at DESC
		LIMIT ?`, pattern, pattern, limit)
}

func (s *SQLiteDB) queryPosts(ctx context.Context, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Content, &p.Category,
			&p.Quartier, &p.CreatedAt, &p.Likes, &p.Comments); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *SQLiteDB) SharedLikeCounts(ctx context.Context, userID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT other.user_id, COUNT(*)
		FROM post_likes mine
		JOIN post_likes other ON other.post_id = mine.post_id AND other.user_id != mine.user_id
		WHERE mine.user_id = ?
		GROUP BY other.user_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("shared like counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan shared likes: %w", err)
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (s *SQLiteDB) ActiveUsersInQuartier(ctx context.Context, quartier string, since time.Time, limit int) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.name, u.quartier, u.commune, u.prefecture, u.region, u.created_at
		FROM users u
		WHERE u.quartier = ? AND EXISTS (
			SELECT 1 FROM posts p WHERE p.author_id = u.id AND p.created_at >= ?
			UNION
			SELECT 1 FROM post_likes l WHERE l.user_id = u.id AND l.created_at >= ?
		)
		ORDER BY u.id LIMIT ?`, quartier, since, since, limit)
	if err != nil {
		return nil, fmt.Errorf("active users in quartier: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Quartier, &u.Commune, &u.Prefecture, &u.Region, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteDB) UserEngagement(ctx context.Context, userID string) (int, int, int, error) {
	var posts, likes, comments int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE author_id = ?),
			(SELECT COUNT(*) FROM post_likes WHERE user_id = ?),
			(SELECT COUNT(*) FROM post_comments WHERE user_id = ?)`,
		userID, userID, userID).
		Scan(&posts, &likes, &comments)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("user engagement: %w", err)
	}
	return posts, likes, comments, nil
}

func (s *SQLiteDB) UserActivityHours(ctx context.Context, userID string) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(strftime('%H', created_at) AS INTEGER) FROM (
			SELECT created_at FROM posts WHERE author_id = ?
			UNION ALL
			SELECT created_at FROM post_likes WHERE user_id = ?
			UNION ALL
			SELECT created_at FROM post_comments WHERE user_id = ?
		)`, userID, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("user activity hours: %w", err)
	}
	defer rows.Close()

	var hours []int
	for rows.Next() {
		var h int
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan hour: %w", err)
		}
		hours = append(hours, h)
	}
	return hours, rows.Err()
}

func (s *SQLiteDB) ReciprocalLikeCount(ctx context.Context, userID string) (int, error) {
	// Pairs of users who have both liked each other's content.
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT p.author_id)
		FROM post_likes mine
		JOIN posts p ON p.id = mine.post_id AND p.author_id != ?
		WHERE mine.user_id = ? AND EXISTS (
			SELECT 1 FROM post_likes back
			JOIN posts myp ON myp.id = back.post_id
			WHERE back.user_id = p.author_id AND myp.author_id = ?
		)`, userID, userID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reciprocal like count: %w", err)
	}
	return n, nil
}

func (s *SQLiteDB) LikedCategoryCounts(ctx context.Context, userID string) ([]CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.category, COUNT(*) AS n
		FROM post_likes l JOIN posts p ON p.id = l.post_id
		WHERE l.user_id = ? AND p.category != ''
		GROUP BY p.category ORDER BY n DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("liked category counts: %w", err)
	}
	defer rows.Close()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scan liked category: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *SQLiteDB) QuartierLikeRatio(ctx context.Context, userID string) (float64, error) {
	var total, local int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN p.quartier = u.quartier THEN 1 ELSE 0 END), 0)
		FROM post_likes l
		JOIN posts p ON p.id = l.post_id
		JOIN users u ON u.id = l.user_id
		WHERE l.user_id = ?`, userID).Scan(&total, &local)
	if err != nil {
		return 0, fmt.Errorf("quartier like ratio: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(local) / float64(total), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(r rowScanner) (*models.Alert, error) {
	var a models.Alert
	err := r.Scan(&a.ID, &a.AuthorID, &a.Category, &a.Status, &a.Title, &a.Description,
		&a.Latitude, &a.Longitude, &a.Quartier, &a.City, &a.ReliabilityScore,
		&a.CreatedAt, &a.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
