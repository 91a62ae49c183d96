// Package catalog holds the in-memory meme index, the search engine built on
// top of it, and the coordinator that keeps the index and the durable store
// in step.
package catalog

import (
	"math"
	"regexp"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MaxTitleLen    = 50
	MaxTagTitleLen = 20
	// MaxLikes is the largest like count the store columns hold.
	MaxLikes = math.MaxInt32
)

// Item is a cataloged meme. Tags holds canonical tag titles in ascending order.
type Item struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	Likes int      `json:"likes"`
	Owner string   `json:"owner,omitempty"`
	Tags  []string `json:"tags"`
}

// HasTag reports whether the item carries the given canonical tag title.
func (it Item) HasTag(title string) bool {
	_, ok := slices.BinarySearch(it.Tags, title)
	return ok
}

// Tag is a label together with the number of items that carry it.
type Tag struct {
	Title      string `json:"title"`
	UsageCount int    `json:"count"`
}

// NewItem is the input to Catalog.Add.
type NewItem struct {
	Title string
	Likes int
	Tags  []string
}

// Validate checks a normalized NewItem.
func (n NewItem) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, titleRules()...),
		validation.Field(&n.Likes, validation.Min(0), validation.Max(MaxLikes)),
		validation.Field(&n.Tags, validation.Required, validation.Each(tagRules()...)),
	)
}

// Edit replaces fields of the item currently titled Title. Zero values keep
// the existing field: an empty NewTitle, nil Tags, nil Likes.
type Edit struct {
	Title    string
	NewTitle string
	Tags     []string
	Likes    *int
}

// Validate checks a normalized Edit.
func (e Edit) Validate() error {
	rules := []*validation.FieldRules{
		validation.Field(&e.Title, validation.Required),
		validation.Field(&e.NewTitle, titleRules()[1:]...),
		validation.Field(&e.Likes, validation.Min(0), validation.Max(MaxLikes)),
	}
	if e.Tags != nil {
		rules = append(rules, validation.Field(&e.Tags, validation.Required.Error("an item needs at least one tag"), validation.Each(tagRules()...)))
	}
	return validation.ValidateStruct(&e, rules...)
}

var (
	noSlash = regexp.MustCompile(`^[^/]*$`)
	// Item titles name media files, so neither path separator may appear.
	noSeparator = regexp.MustCompile(`^[^/\\]*$`)
)

func titleRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(1, MaxTitleLen),
		validation.Match(noSeparator).Error(`must not contain '/' or '\'`),
	}
}

func tagRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.RuneLength(1, MaxTagTitleLen),
		validation.Match(noSlash).Error("must not contain '/'"),
	}
}

// NormalizeTitle returns the canonical form of an item or tag title.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeTags canonicalizes, de-duplicates and sorts tag titles. A nil input
// stays nil so that Edit can tell "keep" from "replace with nothing".
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		out = append(out, NormalizeTitle(t))
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func (n *NewItem) normalize() {
	n.Title = NormalizeTitle(n.Title)
	n.Tags = NormalizeTags(n.Tags)
}

func (e *Edit) normalize() {
	e.Title = NormalizeTitle(e.Title)
	e.NewTitle = NormalizeTitle(e.NewTitle)
	e.Tags = NormalizeTags(e.Tags)
}
