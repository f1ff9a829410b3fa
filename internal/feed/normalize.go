package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidInput is returned when a posts array or rule config cannot be decoded.
var ErrInvalidInput = errors.New("invalid input")

// rawPost mirrors Post with loosely typed fields, as produced by the extension
// and by hand-edited capture files.
type rawPost struct {
	ID               json.RawMessage `json:"id"`
	URL              string          `json:"url"`
	AuthorName       string          `json:"authorName"`
	AuthorProfileURL string          `json:"authorProfileUrl"`
	AuthorFollowers  json.RawMessage `json:"authorFollowers"`
	Content          string          `json:"content"`
	Reactions        json.RawMessage `json:"reactions"`
	Comments         json.RawMessage `json:"comments"`
	Reposts          json.RawMessage `json:"reposts"`
	Hashtags         []string        `json:"hashtags"`
	CommentSnippets  []string        `json:"commentSnippets"`
	CommentsPreview  []string        `json:"commentsPreview"`
	PostedAt         string          `json:"postedAt"`
}

// DecodePosts decodes either a JSON array of posts or an object with a
// "posts" array into strict Post values.
func DecodePosts(data []byte) ([]Post, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty posts payload", ErrInvalidInput)
	}

	var items []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("%w: decoding posts array: %v", ErrInvalidInput, err)
		}
	case '{':
		var wrapper struct {
			Posts json.RawMessage `json:"posts"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, fmt.Errorf("%w: decoding posts object: %v", ErrInvalidInput, err)
		}
		if len(bytes.TrimSpace(wrapper.Posts)) == 0 || bytes.TrimSpace(wrapper.Posts)[0] != '[' {
			return nil, fmt.Errorf("%w: expected a posts array", ErrInvalidInput)
		}
		if err := json.Unmarshal(wrapper.Posts, &items); err != nil {
			return nil, fmt.Errorf("%w: decoding posts array: %v", ErrInvalidInput, err)
		}
	default:
		return nil, fmt.Errorf("%w: expected a posts array", ErrInvalidInput)
	}

	posts := make([]Post, 0, len(items))
	for i, item := range items {
		var raw rawPost
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, fmt.Errorf("%w: post %d: %v", ErrInvalidInput, i, err)
		}
		posts = append(posts, raw.toPost())
	}
	return posts, nil
}

// DecodeMatches decodes a JSON array of shortlisted posts, as returned by
// an earlier analysis, keeping their reasons and matched criteria.
func DecodeMatches(data []byte) ([]Match, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil, fmt.Errorf("%w: expected a shortlisted array", ErrInvalidInput)
	}

	var items []struct {
		rawPost
		Reasons         []Reason `json:"shortlistReasons"`
		MatchedCriteria []string `json:"matchedCriteria"`
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("%w: decoding shortlisted array: %v", ErrInvalidInput, err)
	}

	matches := make([]Match, 0, len(items))
	for _, item := range items {
		matches = append(matches, Match{
			Post:            item.toPost(),
			Reasons:         item.Reasons,
			MatchedCriteria: item.MatchedCriteria,
		})
	}
	return matches, nil
}

func (r rawPost) toPost() Post {
	p := Post{
		ID:               looseString(r.ID),
		URL:              strings.TrimSpace(r.URL),
		AuthorName:       strings.TrimSpace(r.AuthorName),
		AuthorProfileURL: strings.TrimSpace(r.AuthorProfileURL),
		AuthorFollowers:  parseCount(r.AuthorFollowers),
		Content:          r.Content,
		Reactions:        parseCount(r.Reactions),
		Comments:         parseCount(r.Comments),
		Reposts:          parseCount(r.Reposts),
		Hashtags:         make([]string, 0, len(r.Hashtags)),
		CommentSnippets:  compact(r.CommentSnippets),
		PostedAt:         r.PostedAt,
	}
	if len(p.CommentSnippets) == 0 {
		p.CommentSnippets = compact(r.CommentsPreview)
	}
	for _, h := range r.Hashtags {
		if h = strings.TrimPrefix(strings.TrimSpace(h), "#"); h != "" {
			p.Hashtags = append(p.Hashtags, h)
		}
	}
	if p.AuthorName == "" {
		p.AuthorName = "Unknown"
	}
	if p.ID == "" {
		p.ID = p.URL
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return p
}

// DecodeRuleConfig overlays the fields present in data onto base and
// normalizes the result. Numbers may be JSON numbers or numeric strings,
// and the legacy "maxPosts" key is accepted for maxPostsToAnalyze.
func DecodeRuleConfig(data []byte, base RuleConfig) (RuleConfig, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return RuleConfig{}, fmt.Errorf("%w: missing config", ErrInvalidInput)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return RuleConfig{}, fmt.Errorf("%w: decoding config: %v", ErrInvalidInput, err)
	}

	cfg := base
	ints := []struct {
		key   string
		dst   *int
		bound bool
	}{
		{"maxPosts", &cfg.MaxPostsToAnalyze, true},
		{"maxPostsToAnalyze", &cfg.MaxPostsToAnalyze, true},
		{"shortlistSize", &cfg.ShortlistSize, true},
		{"minReactions", &cfg.MinReactions, false},
		{"minComments", &cfg.MinComments, false},
		{"minReposts", &cfg.MinReposts, false},
		{"minFollowers", &cfg.MinFollowers, false},
	}
	for _, f := range ints {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		if n := parseCount(raw); n != nil {
			*f.dst = *n
		} else if f.bound && isPresent(raw) {
			// Unreadable bounds clamp to the minimum in Normalize.
			*f.dst = 0
		}
	}

	if raw, ok := fields["mentionKeyword"]; ok {
		cfg.MentionKeyword = looseString(raw)
	}
	if raw, ok := fields["watchlist"]; ok {
		cfg.Watchlist = looseStrings(raw)
	}
	if raw, ok := fields["hashtags"]; ok {
		cfg.Hashtags = looseStrings(raw)
	}
	if raw, ok := fields["requireFollowers"]; ok {
		var b bool
		if err := json.Unmarshal(raw, &b); err == nil {
			cfg.RequireFollowers = b
		}
	}
	if raw, ok := fields["ordering"]; ok {
		cfg.Ordering = Ordering(strings.ToLower(looseString(raw)))
	}

	return cfg.Normalize(), nil
}

var countPattern = regexp.MustCompile(`^([0-9][0-9,]*(?:\.[0-9]+)?)\s*([kKmM])?`)

// parseCount reads a counter that may be a JSON number or a display string
// such as "1,234", "1.2K" or "3M reactions". Absent or unreadable values
// yield nil; negative values clamp to 0.
func parseCount(raw json.RawMessage) *int {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return clampCount(f)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	m := countPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return nil
	}
	switch strings.ToLower(m[2]) {
	case "k":
		f *= 1_000
	case "m":
		f *= 1_000_000
	}
	return clampCount(f)
}

func clampCount(f float64) *int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(math.Round(f))
	if n < 0 {
		n = 0
	}
	return &n
}

func isPresent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	// Numeric ids and the like.
	return strings.Trim(string(raw), `"`)
}

// looseStrings accepts either an array of strings or a single
// comma/newline separated string, as typed into the config form.
func looseStrings(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return compact(list)
	}
	s := looseString(raw)
	if s == "" {
		return nil
	}
	return compact(strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' }))
}

var hashtagPattern = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)

// ExtractHashtags returns the distinct #tags found in text, without the '#',
// in order of first appearance.
func ExtractHashtags(text string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(m[1])
		if seen[key] {
			continue
		}
		seen[key] = true
		tags = append(tags, m[1])
	}
	return tags
}
