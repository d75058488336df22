package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/abm312/expert-suitability-engine/internal/model"
	"github.com/abm312/expert-suitability-engine/internal/tracing"
)

// DB is the subset of pgxpool.Pool used by the repositories. pgxmock pools satisfy it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const creatorColumns = `
		SELECT id, channel_id, channel_name, channel_description, thumbnail_url, country,
		       total_subscribers, total_views, total_videos, channel_created_date,
		       external_links, last_fetched_at
		FROM creators`

const videoColumns = `
		SELECT v.creator_id, v.video_id, v.title, v.description, v.thumbnail_url, v.published_at,
		       v.duration_seconds, v.views, v.likes, v.comments, v.has_captions, v.tags,
		       t.text, t.language, t.embedding
		FROM videos v
		LEFT JOIN transcripts t ON t.video_id = v.video_id`

const snapshotColumns = `
		SELECT creator_id, date, subscriber_count, view_count, video_count
		FROM metrics_snapshots`

const (
	listCreatorsQuery  = creatorColumns + ` ORDER BY id`
	listVideosQuery    = videoColumns + ` ORDER BY v.creator_id, v.published_at DESC NULLS LAST`
	listSnapshotsQuery = snapshotColumns + ` ORDER BY creator_id, date`

	findCreatorQuery   = creatorColumns + ` WHERE id = $1`
	findVideosQuery    = videoColumns + ` WHERE v.creator_id = $1 ORDER BY v.published_at DESC NULLS LAST`
	findSnapshotsQuery = snapshotColumns + ` WHERE creator_id = $1 ORDER BY date`

	existsQuery    = `SELECT EXISTS (SELECT 1 FROM creators WHERE channel_id = $1)`
	channelIDQuery = `SELECT channel_id FROM creators WHERE id = $1`
	countQuery     = `SELECT COUNT(*) FROM creators`

	upsertCreatorQuery = `
		INSERT INTO creators (channel_id, channel_name, channel_description, thumbnail_url, country,
		                      total_subscribers, total_views, total_videos, channel_created_date,
		                      external_links, last_fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (channel_id) DO UPDATE SET
			channel_name = EXCLUDED.channel_name,
			channel_description = EXCLUDED.channel_description,
			thumbnail_url = EXCLUDED.thumbnail_url,
			country = EXCLUDED.country,
			total_subscribers = EXCLUDED.total_subscribers,
			total_views = EXCLUDED.total_views,
			total_videos = EXCLUDED.total_videos,
			channel_created_date = COALESCE(EXCLUDED.channel_created_date, creators.channel_created_date),
			external_links = EXCLUDED.external_links,
			last_fetched_at = EXCLUDED.last_fetched_at,
			refresh_failed_at = NULL,
			updated_at = NOW()
		RETURNING id`

	upsertVideoQuery = `
		INSERT INTO videos (creator_id, video_id, title, description, thumbnail_url, published_at,
		                    duration_seconds, views, likes, comments, has_captions, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (video_id) DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			thumbnail_url = EXCLUDED.thumbnail_url,
			duration_seconds = EXCLUDED.duration_seconds,
			views = EXCLUDED.views,
			likes = EXCLUDED.likes,
			comments = EXCLUDED.comments,
			has_captions = EXCLUDED.has_captions,
			tags = EXCLUDED.tags`

	upsertTranscriptQuery = `
		INSERT INTO transcripts (video_id, text, language, embedding)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (video_id) DO UPDATE SET
			text = EXCLUDED.text,
			language = EXCLUDED.language,
			embedding = COALESCE(EXCLUDED.embedding, transcripts.embedding)`

	upsertSnapshotQuery = `
		INSERT INTO metrics_snapshots (creator_id, date, subscriber_count, view_count, video_count)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (creator_id, date) DO UPDATE SET
			subscriber_count = EXCLUDED.subscriber_count,
			view_count = EXCLUDED.view_count,
			video_count = EXCLUDED.video_count`

	updateScoresQuery = `
		UPDATE creators
		SET overall_score = $2, metric_scores = $3, updated_at = NOW()
		WHERE id = $1`

	listStaleQuery = `
		SELECT id FROM creators
		WHERE last_fetched_at IS NULL OR last_fetched_at < $1
		ORDER BY GREATEST(last_fetched_at, refresh_failed_at) NULLS FIRST, id
		LIMIT $2`

	markRefreshFailedQuery = `UPDATE creators SET refresh_failed_at = $2 WHERE id = $1`

	saveSearchQuery = `
		INSERT INTO search_queries (id, query_text, topic_embedding, filters, weights, results_count)
		VALUES ($1, $2, $3, $4, $5, $6)`
)

// listOrder maps the accepted sort keys to their ORDER BY clause. Only keys in this
// map ever reach the SQL text.
var listOrder = map[string]string{
	model.SortOverallScore: "overall_score DESC NULLS LAST, id",
	model.SortSubscribers:  "total_subscribers DESC, id",
	model.SortCreatedAt:    "created_at DESC, id",
}

func listSummariesQuery(order string) string {
	return `
		SELECT id, channel_id, channel_name, thumbnail_url, total_subscribers, total_views,
		       overall_score, last_fetched_at
		FROM creators
		ORDER BY ` + order + `
		LIMIT $1 OFFSET $2`
}

type CreatorRepo struct {
	db DB
}

func NewCreatorRepo(db DB) *CreatorRepo {
	return &CreatorRepo{db: db}
}

// ListSnapshots loads every creator together with its videos, transcripts and
// metrics history.
func (r *CreatorRepo) ListSnapshots(ctx context.Context) (_ []*model.CreatorSnapshot, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "creators", "SELECT")
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, listCreatorsQuery)
	if err != nil {
		return nil, err
	}
	creators, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.CreatorSnapshot, error) {
		return scanCreator(row)
	})
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*model.CreatorSnapshot, len(creators))
	for _, c := range creators {
		byID[c.ID] = c
	}

	if err := r.attachVideos(ctx, byID, listVideosQuery); err != nil {
		return nil, err
	}
	if err := r.attachSnapshots(ctx, byID, listSnapshotsQuery); err != nil {
		return nil, err
	}
	return creators, nil
}

// FindByID returns one creator snapshot, or pgx.ErrNoRows.
func (r *CreatorRepo) FindByID(ctx context.Context, id int64) (_ *model.CreatorSnapshot, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "creators", "SELECT")
	defer func() { end(err) }()

	c, err := scanCreator(r.db.QueryRow(ctx, findCreatorQuery, id))
	if err != nil {
		return nil, err
	}
	byID := map[int64]*model.CreatorSnapshot{id: c}
	if err := r.attachVideos(ctx, byID, findVideosQuery, id); err != nil {
		return nil, err
	}
	if err := r.attachSnapshots(ctx, byID, findSnapshotsQuery, id); err != nil {
		return nil, err
	}
	return c, nil
}

func scanCreator(row pgx.Row) (*model.CreatorSnapshot, error) {
	c := &model.CreatorSnapshot{}
	err := row.Scan(
		&c.ID, &c.ChannelID, &c.Name, &c.Description, &c.ThumbnailURL, &c.Country,
		&c.Subscribers, &c.Views, &c.VideoCount, &c.CreatedAt,
		&c.ExternalLinks, &c.LastFetchedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.ExternalLinks == nil {
		c.ExternalLinks = []string{}
	}
	c.Videos = []model.VideoSnapshot{}
	c.Snapshots = []model.MetricsSnapshot{}
	return c, nil
}

func (r *CreatorRepo) attachVideos(ctx context.Context, byID map[int64]*model.CreatorSnapshot, query string, args ...any) error {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load videos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			creatorID int64
			v         model.VideoSnapshot
			text      *string
			language  *string
			embedding *pgvector.Vector
		)
		err := rows.Scan(
			&creatorID, &v.VideoID, &v.Title, &v.Description, &v.ThumbnailURL, &v.PublishedAt,
			&v.DurationSeconds, &v.Views, &v.Likes, &v.Comments, &v.HasCaptions, &v.Tags,
			&text, &language, &embedding,
		)
		if err != nil {
			return fmt.Errorf("scan video: %w", err)
		}
		if v.Tags == nil {
			v.Tags = []string{}
		}
		if text != nil {
			v.Transcript = &model.TranscriptSnapshot{Text: *text}
			if language != nil {
				v.Transcript.Language = *language
			}
			if embedding != nil {
				v.Transcript.Embedding = embedding.Slice()
			}
		}
		if c, ok := byID[creatorID]; ok {
			c.Videos = append(c.Videos, v)
		}
	}
	return rows.Err()
}

func (r *CreatorRepo) attachSnapshots(ctx context.Context, byID map[int64]*model.CreatorSnapshot, query string, args ...any) error {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			creatorID int64
			s         model.MetricsSnapshot
		)
		if err := rows.Scan(&creatorID, &s.Date, &s.Subscribers, &s.Views, &s.VideoCount); err != nil {
			return fmt.Errorf("scan snapshot: %w", err)
		}
		if c, ok := byID[creatorID]; ok {
			c.Snapshots = append(c.Snapshots, s)
		}
	}
	return rows.Err()
}

// ExistsByChannelID reports whether a channel is already in the corpus.
func (r *CreatorRepo) ExistsByChannelID(ctx context.Context, channelID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, existsQuery, channelID).Scan(&exists)
	return exists, err
}

// ChannelIDOf returns the provider channel ID of a creator, or pgx.ErrNoRows.
func (r *CreatorRepo) ChannelIDOf(ctx context.Context, creatorID int64) (string, error) {
	var channelID string
	err := r.db.QueryRow(ctx, channelIDQuery, creatorID).Scan(&channelID)
	return channelID, err
}

// UpsertCreator writes a channel, its videos, their transcripts and the day's
// counters in one transaction and returns the creator ID.
func (r *CreatorRepo) UpsertCreator(ctx context.Context, in model.CreatorUpsert) (_ int64, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "creators", "UPSERT")
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	d := in.Details
	links := d.ExternalLinks
	if links == nil {
		links = []string{}
	}

	var id int64
	err = tx.QueryRow(ctx, upsertCreatorQuery,
		d.ChannelID, d.Name, d.Description, d.ThumbnailURL, d.Country,
		d.Subscribers, d.Views, d.VideoCount, d.CreatedAt,
		links, in.FetchedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert creator: %w", err)
	}

	for _, v := range in.Videos {
		tags := v.Tags
		if tags == nil {
			tags = []string{}
		}
		_, err = tx.Exec(ctx, upsertVideoQuery,
			id, v.VideoID, v.Title, v.Description, v.ThumbnailURL, v.PublishedAt,
			v.DurationSeconds, v.Views, v.Likes, v.Comments, v.HasCaptions, tags,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert video %s: %w", v.VideoID, err)
		}
		if v.HasTranscript() {
			_, err = tx.Exec(ctx, upsertTranscriptQuery,
				v.VideoID, v.Transcript.Text, v.Transcript.Language, vectorArg(v.Transcript.Embedding))
			if err != nil {
				return 0, fmt.Errorf("upsert transcript %s: %w", v.VideoID, err)
			}
		}
	}

	s := in.Snapshot
	if _, err = tx.Exec(ctx, upsertSnapshotQuery, id, s.Date, s.Subscribers, s.Views, s.VideoCount); err != nil {
		return 0, fmt.Errorf("upsert snapshot: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// List returns one page of creator summaries and the total creator count.
func (r *CreatorRepo) List(ctx context.Context, sortBy string, limit, offset int) (_ []model.CreatorSummary, _ int, err error) {
	ctx, end := tracing.StartDBSpan(ctx, "creators", "SELECT")
	defer func() { end(err) }()

	order, ok := listOrder[sortBy]
	if !ok {
		return nil, 0, fmt.Errorf("unsupported sort key %q", sortBy)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, listSummariesQuery(order), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	creators := []model.CreatorSummary{}
	for rows.Next() {
		var c model.CreatorSummary
		err := rows.Scan(&c.ID, &c.ChannelID, &c.Name, &c.ThumbnailURL,
			&c.Subscribers, &c.Views, &c.OverallScore, &c.LastFetchedAt)
		if err != nil {
			return nil, 0, err
		}
		creators = append(creators, c)
	}
	return creators, total, rows.Err()
}

// UpdateScores caches the latest scoring result on the creator row.
func (r *CreatorRepo) UpdateScores(ctx context.Context, id int64, res *model.ScoringResult) error {
	scores, err := json.Marshal(res.MetricScores)
	if err != nil {
		return fmt.Errorf("encode metric scores: %w", err)
	}
	tag, err := r.db.Exec(ctx, updateScoresQuery, id, res.OverallScore, scores)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListStale returns creators never fetched or last fetched before the cutoff,
// oldest first.
func (r *CreatorRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	rows, err := r.db.Query(ctx, listStaleQuery, before, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// MarkRefreshFailed records a failed refresh attempt. ListStale orders by the later
// of the last fetch and the last failure, so a creator that keeps failing moves
// behind the others instead of holding the head of every batch.
func (r *CreatorRepo) MarkRefreshFailed(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, markRefreshFailedQuery, id, at)
	return err
}

// SaveSearch records a completed search. An empty embedding is stored as NULL.
func (r *CreatorRepo) SaveSearch(ctx context.Context, entry model.SearchLog) (err error) {
	ctx, end := tracing.StartDBSpan(ctx, "search_queries", "INSERT")
	defer func() { end(err) }()

	filters, err := json.Marshal(entry.Filters)
	if err != nil {
		return fmt.Errorf("encode filters: %w", err)
	}
	weights, err := json.Marshal(entry.Weights)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}

	_, err = r.db.Exec(ctx, saveSearchQuery,
		entry.SearchID, entry.Query, vectorArg(entry.TopicEmbedding), filters, weights, entry.ResultsCount)
	return err
}

// vectorArg binds v as a vector parameter, or NULL when it is empty.
func vectorArg(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}
