package bank

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/gokatarajesh/paper-builder/internal/failure"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

// Query selects a candidate pool.
type Query struct {
	Class    string         `json:"class"`
	Subject  string         `json:"subject"`
	Chapters []string       `json:"chapters"`
	Category paper.Category `json:"category"`
	// Source is exercise, additional or pastPaper. Empty takes every source.
	Source string `json:"source"`
	// Marks stamped on each candidate; zero uses the category default.
	Marks int `json:"marks"`
}

// Validate checks the query before any data is fetched.
func (q Query) Validate() error {
	const op = "bank.query"
	if strings.TrimSpace(q.Class) == "" {
		return failure.Constraint(op, "select a class")
	}
	if strings.TrimSpace(q.Subject) == "" {
		return failure.Constraint(op, "select a subject")
	}
	if len(q.Chapters) == 0 {
		return failure.Constraint(op, "select at least one chapter")
	}
	if !q.Category.Valid() {
		return failure.Constraint(op, fmt.Sprintf("unknown question type %q", q.Category))
	}
	if q.Marks < 0 {
		return failure.Constraint(op, "marks per question must be positive")
	}
	return nil
}

// Resolve extracts the flat, de-duplicated candidate list for q. It is a pure read
// of b; every call assigns fresh temp ids.
func Resolve(b *Bank, q Query) ([]paper.Question, error) {
	const op = "bank.resolve"
	if err := q.Validate(); err != nil {
		return nil, err
	}

	class, ok := findClass(b, q.Class)
	if !ok {
		return nil, failure.NotFound(op, fmt.Sprintf("class %q", q.Class))
	}
	subject, ok := findSubject(class, q.Subject)
	if !ok {
		return nil, failure.NotFound(op, fmt.Sprintf("subject %q in %s", q.Subject, class.Name))
	}

	wanted := make(map[string]struct{}, len(q.Chapters))
	for _, name := range q.Chapters {
		wanted[foldName(name)] = struct{}{}
	}

	var (
		matchedChapters int
		objectChapters  int
		bucketsFound    int
		sourcesFound    int
		entries         []Entry
	)
	for _, chapter := range subject.Chapters {
		if _, ok := wanted[foldName(chapter.Name)]; !ok {
			continue
		}
		matchedChapters++
		if chapter.Kind == ChapterBareName {
			continue
		}
		objectChapters++

		bucket, ok := findBucket(chapter, q.Category)
		if !ok {
			continue
		}
		bucketsFound++

		switch bucket.Kind {
		case BucketArray:
			sourcesFound++
			entries = append(entries, bucket.Questions...)
		case BucketBySource:
			for _, src := range bucket.Sources {
				if q.Source == "" || foldSource(src.Key) == foldSource(q.Source) {
					sourcesFound++
					entries = append(entries, src.Questions...)
				}
			}
		}
	}

	switch {
	case matchedChapters == 0:
		return nil, failure.NotFound(op, "selected chapters")
	case objectChapters == 0:
		return nil, failure.Empty(op, "no questions available for the selected chapters")
	case bucketsFound == 0:
		return nil, failure.NotFound(op, strings.ToLower(q.Category.Label()))
	case sourcesFound == 0 && q.Source == "":
		return nil, failure.NotFound(op, "question sources")
	case sourcesFound == 0:
		return nil, failure.NotFound(op, fmt.Sprintf("%s source", q.Source))
	}

	marks := q.Marks
	if marks == 0 {
		marks = q.Category.DefaultMarks()
	}

	out := make([]paper.Question, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Text) == "" {
			continue
		}
		if q.Category == paper.CategoryMCQ && len(e.Options) == 0 {
			continue
		}
		key := dedupKey(e)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, paper.Question{
			TempID:        paper.NewTempID(q.Category, len(out)),
			ID:            e.ID,
			Text:          e.Text,
			Category:      q.Category,
			Marks:         marks,
			Options:       cloneOptions(e.Options, q.Category),
			CorrectAnswer: e.CorrectAnswer,
		})
	}
	if len(out) == 0 {
		return nil, failure.Empty(op, "no questions available")
	}
	return out, nil
}

func findClass(b *Bank, identifier string) (Class, bool) {
	if b == nil {
		return Class{}, false
	}
	want := ClassKey(identifier)
	for _, c := range b.Classes {
		if ClassKey(c.Name) == want {
			return c, true
		}
	}
	return Class{}, false
}

func findSubject(c Class, name string) (Subject, bool) {
	want := foldName(name)
	for _, s := range c.Subjects {
		if foldName(s.Name) == want {
			return s, true
		}
	}
	return Subject{}, false
}

// findBucket returns the first bucket whose key starts with the category prefix.
func findBucket(ch Chapter, c paper.Category) (Bucket, bool) {
	prefix := c.KeyPrefix()
	for _, b := range ch.Buckets {
		if strings.HasPrefix(strings.ToLower(b.Key), prefix) {
			return b, true
		}
	}
	return Bucket{}, false
}

// ClassKey normalises a class identifier to its digits, so "Class 9" and "9" match.
// Identifiers without digits compare by trimmed, case-folded text.
func ClassKey(identifier string) string {
	var digits strings.Builder
	for _, r := range identifier {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}
	if digits.Len() > 0 {
		return digits.String()
	}
	return foldName(identifier)
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// foldSource compares source keys ignoring case and separators ("past_paper" == "pastPaper").
func foldSource(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func dedupKey(e Entry) string {
	if e.ID != "" {
		return "id:" + e.ID
	}
	return "text:" + strings.Join(strings.Fields(strings.ToLower(e.Text)), " ")
}

func cloneOptions(opts paper.Options, c paper.Category) paper.Options {
	if c != paper.CategoryMCQ || len(opts) == 0 {
		return nil
	}
	out := make(paper.Options, len(opts))
	copy(out, opts)
	return out
}
