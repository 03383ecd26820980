package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"admin-service/model"
)

// isoMillis matches the timestamp format of the dashboard API.
const isoMillis = "2006-01-02T15:04:05.000Z"

type metadataEntry struct {
	ID        string   `json:"id"`
	Username  string   `json:"username"`
	Text      string   `json:"text"`
	Category  string   `json:"category"`
	CreatedAt string   `json:"createdAt"`
	Likes     int      `json:"likes"`
	Comments  int      `json:"comments"`
	Hashtags  []string `json:"hashtags"`
	ImageURL  string   `json:"imageUrl"`
}

// Metadata renders metadata.json for the posts in selector order.
func Metadata(posts []model.PostRecord) ([]byte, error) {
	entries := make([]metadataEntry, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		hashtags := p.Hashtags
		if hashtags == nil {
			hashtags = []string{}
		}
		entries = append(entries, metadataEntry{
			ID:        p.ID.Hex(),
			Username:  p.Username(unknownUser),
			Text:      p.Text,
			Category:  p.Category,
			CreatedAt: formatTime(p.CreatedAt),
			Likes:     p.LikeCount(),
			Comments:  p.CommentCount(),
			Hashtags:  hashtags,
			ImageURL:  p.Image,
		})
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return data, nil
}

// CaptionsCSV renders captions.csv: one row per post with an image. Both
// fields are always quoted and only embedded quotes are escaped.
func CaptionsCSV(posts []model.PostRecord) []byte {
	var b strings.Builder
	b.WriteString("Image Name,Meme Caption\n")
	for i := range posts {
		p := &posts[i]
		if p.Image == "" {
			continue
		}
		b.WriteString(`"`)
		b.WriteString(FilenameFor(p))
		b.WriteString(`","`)
		b.WriteString(strings.ReplaceAll(p.Text, `"`, `""`))
		b.WriteString("\"\n")
	}
	return []byte(b.String())
}

// Details renders the per-post text file stored under details/.
func Details(p *model.PostRecord) []byte {
	lines := []string{
		"Post ID: " + p.ID.Hex(),
		"User: " + p.Username(unknownUser),
		"Text: " + p.Text,
		"Category: " + p.Category,
		"Created: " + formatTime(p.CreatedAt),
		fmt.Sprintf("Likes: %d", p.LikeCount()),
		fmt.Sprintf("Comments: %d", p.CommentCount()),
		"Hashtags: " + strings.Join(p.Hashtags, ", "),
		"Caption Placement: " + p.CaptionPlacement,
		"Image URL: " + p.Image,
	}
	return []byte(strings.Join(lines, "\n"))
}

// SummaryJSON renders summary.json.
func SummaryJSON(s model.ExportSummary) ([]byte, error) {
	if s.Errors == nil {
		s.Errors = []model.ExportError{}
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	return data, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
