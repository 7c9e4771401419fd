package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"reddittrack/internal/post"
)

// DateLayout names daily export and report files.
const DateLayout = "2006-01-02"

// Daily is the on-disk layout of a daily export.
type Daily struct {
	Date       string          `json:"date"`
	TotalPosts int             `json:"total_posts"`
	Posts      []post.Enriched `json:"posts"`
}

// DailyPath returns <dir>/posts_YYYY-MM-DD.json for the given day.
func DailyPath(dir string, day time.Time) string {
	return filepath.Join(dir, "posts_"+day.Format(DateLayout)+".json")
}

// WriteDaily writes the day's enriched posts, replacing any export already
// written for that day.
func WriteDaily(dir string, day time.Time, posts []post.Enriched) (string, error) {
	if posts == nil {
		posts = []post.Enriched{}
	}
	data, err := json.MarshalIndent(Daily{
		Date:       day.Format(DateLayout),
		TotalPosts: len(posts),
		Posts:      posts,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal daily export: %w", err)
	}

	path := DailyPath(dir, day)
	if err := writeFileAtomic(path, data); err != nil {
		return "", fmt.Errorf("write daily export: %w", err)
	}
	return path, nil
}

// ReadDaily loads a daily export.
func ReadDaily(path string) (Daily, error) {
	var daily Daily
	data, err := os.ReadFile(path)
	if err != nil {
		return daily, fmt.Errorf("read daily export: %w", err)
	}
	if err := json.Unmarshal(data, &daily); err != nil {
		return daily, fmt.Errorf("parse daily export %s: %w", path, err)
	}
	return daily, nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
