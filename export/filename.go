package export

import (
	"strings"
	"time"
	"unicode/utf16"

	"admin-service/model"
)

const unknownUser = "unknown"

// Filename builds the archive name shared by images/, memes/, details/ and
// captions.csv: <YYYY-MM-DD>_<sanitized username>_<post id>.jpg. The date is
// the UTC calendar day of createdAt.
func Filename(createdAt time.Time, username, postID string) string {
	name := SanitizeUsername(username)
	// A trailing "_" from sanitizing doubles as the id separator, so
	// "John Doe!" gives john_doe_abc123 and not john_doe__abc123. Existing
	// downloads are named this way; keep it.
	sep := "_"
	if strings.HasSuffix(name, "_") {
		sep = ""
	}
	return createdAt.UTC().Format(dateLayout) + "_" + name + sep + postID + ".jpg"
}

// FilenameFor applies Filename to a post, using "unknown" when the author
// no longer exists.
func FilenameFor(p *model.PostRecord) string {
	return Filename(p.CreatedAt, p.Username(unknownUser), p.ID.Hex())
}

// SanitizeUsername lower-cases ASCII letters and digits and replaces every
// other character with one underscore per UTF-16 code unit.
func SanitizeUsername(username string) string {
	var b strings.Builder
	b.Grow(len(username))
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			n := utf16.RuneLen(r)
			if n < 1 {
				n = 1
			}
			b.WriteString(strings.Repeat("_", n))
		}
	}
	return b.String()
}
