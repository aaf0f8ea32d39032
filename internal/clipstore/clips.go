package clipstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const clipColumns = `series, episode_timeframe, link, audio_path, transcript,
        llm_violence_prediction, violence, created_at, updated_at`

// Add inserts a new clip. Inserting an existing (series, key) pair fails with ErrDuplicate.
func (s *Store) Add(ctx context.Context, clip Clip) error {
	if strings.TrimSpace(clip.Series) == "" || strings.TrimSpace(clip.Key) == "" {
		return errors.New("add clip: series and key are required")
	}
	if strings.TrimSpace(clip.Link) == "" {
		return fmt.Errorf("add clip %s: link is required", clip.Key)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx,
		`INSERT INTO clips (`+clipColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		clip.Series,
		clip.Key,
		clip.Link,
		nullableString(clip.AudioPath),
		nullableString(clip.Transcript),
		nullableInt(clip.Prediction),
		nullableInt(clip.Label),
		timestamp,
		timestamp,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("add clip %s/%s: %w", clip.Series, clip.Key, ErrDuplicate)
		}
		return fmt.Errorf("add clip %s/%s: %w", clip.Series, clip.Key, err)
	}
	return nil
}

// SetAudioPath records where the clip's audio was written.
func (s *Store) SetAudioPath(ctx context.Context, series, key, path string) error {
	return s.update(ctx, "audio_path", series, key, nullableString(path))
}

// SetTranscript stores the transcript text for a clip.
func (s *Store) SetTranscript(ctx context.Context, series, key, transcript string) error {
	return s.update(ctx, "transcript", series, key, nullableString(transcript))
}

// SetPrediction stores the classifier output (0 or 1).
func (s *Store) SetPrediction(ctx context.Context, series, key string, prediction int) error {
	if err := checkBinary(prediction); err != nil {
		return fmt.Errorf("set prediction: %w", err)
	}
	return s.update(ctx, "llm_violence_prediction", series, key, prediction)
}

// SetLabel stores the manual ground-truth label (0 or 1). A nil label clears it.
func (s *Store) SetLabel(ctx context.Context, series, key string, label *int) error {
	if label != nil {
		if err := checkBinary(*label); err != nil {
			return fmt.Errorf("set label: %w", err)
		}
	}
	return s.update(ctx, "violence", series, key, nullableInt(label))
}

// ResetPredictions clears classifier output so the series is classified again.
// An empty series resets every clip. It returns the number of clips touched.
func (s *Store) ResetPredictions(ctx context.Context, series string) (int, error) {
	query := `UPDATE clips SET llm_violence_prediction = NULL, updated_at = ?
        WHERE llm_violence_prediction IS NOT NULL`
	args := []any{time.Now().UTC().Format(time.RFC3339Nano)}
	if series != "" {
		query += " AND series = ?"
		args = append(args, series)
	}
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("reset predictions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset predictions: %w", err)
	}
	return int(affected), nil
}

func (s *Store) update(ctx context.Context, column, series, key string, value any) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE clips SET `+column+` = ?, updated_at = ? WHERE series = ? AND episode_timeframe = ?`,
		value,
		time.Now().UTC().Format(time.RFC3339Nano),
		series,
		key,
	)
	if err != nil {
		return fmt.Errorf("update %s for %s/%s: %w", column, series, key, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s for %s/%s: %w", column, series, key, err)
	}
	if affected == 0 {
		return fmt.Errorf("update %s for %s/%s: %w", column, series, key, ErrNotFound)
	}
	return nil
}

// Get returns a single clip.
func (s *Store) Get(ctx context.Context, series, key string) (*Clip, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+clipColumns+` FROM clips WHERE series = ? AND episode_timeframe = ?`,
		series, key,
	)
	clip, err := scanClip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s/%s: %w", series, key, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", series, key, err)
	}
	return clip, nil
}

// List returns clips matching the filter ordered by series then key.
func (s *Store) List(ctx context.Context, filter Filter) ([]Clip, error) {
	var (
		where []string
		args  []any
	)
	if filter.Series != "" {
		where = append(where, "series = ?")
		args = append(args, filter.Series)
	}
	if filter.NeedsTranscript {
		where = append(where, "transcript IS NULL AND audio_path IS NOT NULL")
	}
	if filter.NeedsPrediction {
		where = append(where, "transcript IS NOT NULL AND llm_violence_prediction IS NULL")
	}
	if filter.NeedsLabel {
		where = append(where, "transcript IS NOT NULL AND violence IS NULL")
	}
	if filter.OnlyViolent {
		where = append(where, "llm_violence_prediction = 1")
	}
	if filter.OnlyDisagreements {
		where = append(where, "violence IS NOT NULL AND llm_violence_prediction IS NOT NULL AND violence <> llm_violence_prediction")
	}

	query := `SELECT ` + clipColumns + ` FROM clips`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY series ASC, episode_timeframe ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		clip, err := scanClip(rows)
		if err != nil {
			return nil, fmt.Errorf("list clips: %w", err)
		}
		clips = append(clips, *clip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	return clips, nil
}

// Stats aggregates progress for a series; an empty series covers the whole dataset.
func (s *Store) Stats(ctx context.Context, series string) (Stats, error) {
	query := `SELECT
        COUNT(1),
        COUNT(audio_path),
        COUNT(transcript),
        COUNT(llm_violence_prediction),
        COALESCE(SUM(CASE WHEN llm_violence_prediction = 1 THEN 1 ELSE 0 END), 0),
        COUNT(violence),
        COALESCE(SUM(CASE WHEN violence IS NOT NULL AND llm_violence_prediction IS NOT NULL THEN 1 ELSE 0 END), 0),
        COALESCE(SUM(CASE WHEN violence IS NOT NULL AND violence = llm_violence_prediction THEN 1 ELSE 0 END), 0)
        FROM clips`
	var args []any
	if series != "" {
		query += " WHERE series = ?"
		args = append(args, series)
	}
	var st Stats
	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&st.Total,
		&st.WithAudio,
		&st.Transcribed,
		&st.Classified,
		&st.Violent,
		&st.Labeled,
		&st.Evaluated,
		&st.Correct,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("clip stats: %w", err)
	}
	return st, nil
}

// Series lists every series present in the store with its clip count.
func (s *Store) Series(ctx context.Context) ([]SeriesSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT series, COUNT(1) FROM clips GROUP BY series ORDER BY series ASC`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()
	var out []SeriesSummary
	for rows.Next() {
		var summary SeriesSummary
		if err := rows.Scan(&summary.Name, &summary.Clips); err != nil {
			return nil, fmt.Errorf("list series: %w", err)
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	return out, nil
}
