package clipstore

import (
	"database/sql"
	"fmt"
	"time"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanClip(row scanner) (*Clip, error) {
	var (
		clip       Clip
		audioPath  sql.NullString
		transcript sql.NullString
		prediction sql.NullInt64
		label      sql.NullInt64
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(
		&clip.Series,
		&clip.Key,
		&clip.Link,
		&audioPath,
		&transcript,
		&prediction,
		&label,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	clip.AudioPath = audioPath.String
	clip.Transcript = transcript.String
	clip.Prediction = intPtr(prediction)
	clip.Label = intPtr(label)
	clip.CreatedAt = parseTime(createdAt)
	clip.UpdatedAt = parseTime(updatedAt)
	return &clip, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func intPtr(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int64)
	return &v
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func checkBinary(value int) error {
	if value != 0 && value != 1 {
		return fmt.Errorf("value %d is not 0 or 1", value)
	}
	return nil
}
