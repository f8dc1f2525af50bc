package bank

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gokatarajesh/paper-builder/internal/jsonx"
	"github.com/gokatarajesh/paper-builder/internal/paper"
)

// Field aliases seen across bank exports.
var (
	classNameKeys    = []string{"class", "name", "className", "id"}
	subjectNameKeys  = []string{"name", "subject", "subjectName"}
	chapterNameKeys  = []string{"name", "chapter", "title", "chapterName"}
	questionTextKeys = []string{"question", "questionText", "text", "statement"}
	questionIDKeys   = []string{"_id", "id"}
	answerKeys       = []string{"correctAnswer", "answer", "correct"}
)

// Bank is a parsed question bank: class -> subjects -> chapters -> category buckets.
type Bank struct {
	Classes []Class
}

type Class struct {
	Name     string
	Subjects []Subject
}

type Subject struct {
	Name     string
	Chapters []Chapter
}

// ChapterKind tells whether a chapter carries question data.
type ChapterKind int

const (
	// ChapterObject is a chapter with category buckets.
	ChapterObject ChapterKind = iota
	// ChapterBareName is a chapter listed only by name; it contributes no questions.
	ChapterBareName
)

type Chapter struct {
	Kind    ChapterKind
	Name    string
	Buckets []Bucket
}

// BucketKind tells how a category bucket stores its questions.
type BucketKind int

const (
	// BucketArray holds questions directly.
	BucketArray BucketKind = iota
	// BucketBySource maps a source name to its questions.
	BucketBySource
)

// Bucket is one category key of a chapter, e.g. "mcqs" or "shortQuestions".
type Bucket struct {
	Key       string
	Kind      BucketKind
	Questions []Entry
	Sources   []SourceBucket
}

type SourceBucket struct {
	Key       string
	Questions []Entry
}

// Entry is a bank question before it is placed on a paper.
type Entry struct {
	ID            string
	Text          string
	Options       paper.Options
	CorrectAnswer string
}

// Parse classifies a raw bank payload. The top level may be an array of classes,
// an object with a "classes" field, or a single class object.
func Parse(payload []byte) (*Bank, error) {
	raw := json.RawMessage(payload)
	switch jsonx.ShapeOf(raw) {
	case jsonx.ShapeArray:
		return parseClassList(raw)
	case jsonx.ShapeObject:
		fields, err := jsonx.Fields(raw)
		if err != nil {
			return nil, fmt.Errorf("bank: %w", err)
		}
		if classes, ok := jsonx.Lookup(fields, "classes"); ok {
			return parseClassList(classes)
		}
		class, err := parseClass(fields)
		if err != nil {
			return nil, err
		}
		return &Bank{Classes: []Class{class}}, nil
	case jsonx.ShapeNull:
		return &Bank{}, nil
	}
	return nil, fmt.Errorf("bank: expected an array or object of classes")
}

func parseClassList(raw json.RawMessage) (*Bank, error) {
	items, err := jsonx.Elements(raw)
	if err != nil {
		return nil, fmt.Errorf("bank: classes: %w", err)
	}
	b := &Bank{Classes: make([]Class, 0, len(items))}
	for i, item := range items {
		fields, err := objectFields(item)
		if err != nil {
			return nil, fmt.Errorf("bank: class %d: %w", i+1, err)
		}
		class, err := parseClass(fields)
		if err != nil {
			return nil, err
		}
		b.Classes = append(b.Classes, class)
	}
	return b, nil
}

func parseClass(fields []jsonx.Field) (Class, error) {
	class := Class{Name: firstText(fields, classNameKeys...)}
	raw, ok := jsonx.Lookup(fields, "subjects")
	if !ok || jsonx.ShapeOf(raw) == jsonx.ShapeNull {
		return class, nil
	}
	items, err := jsonx.Elements(raw)
	if err != nil {
		return Class{}, fmt.Errorf("bank: class %q subjects: %w", class.Name, err)
	}
	for i, item := range items {
		sf, err := objectFields(item)
		if err != nil {
			return Class{}, fmt.Errorf("bank: class %q subject %d: %w", class.Name, i+1, err)
		}
		subject, err := parseSubject(sf)
		if err != nil {
			return Class{}, fmt.Errorf("bank: class %q: %w", class.Name, err)
		}
		class.Subjects = append(class.Subjects, subject)
	}
	return class, nil
}

func parseSubject(fields []jsonx.Field) (Subject, error) {
	subject := Subject{Name: firstText(fields, subjectNameKeys...)}
	raw, ok := jsonx.Lookup(fields, "chapters")
	if !ok || jsonx.ShapeOf(raw) == jsonx.ShapeNull {
		return subject, nil
	}
	items, err := jsonx.Elements(raw)
	if err != nil {
		return Subject{}, fmt.Errorf("subject %q chapters: %w", subject.Name, err)
	}
	for i, item := range items {
		chapter, err := parseChapter(item)
		if err != nil {
			return Subject{}, fmt.Errorf("subject %q chapter %d: %w", subject.Name, i+1, err)
		}
		subject.Chapters = append(subject.Chapters, chapter)
	}
	return subject, nil
}

func parseChapter(raw json.RawMessage) (Chapter, error) {
	switch jsonx.ShapeOf(raw) {
	case jsonx.ShapeString, jsonx.ShapeScalar:
		return Chapter{Kind: ChapterBareName, Name: jsonx.Text(raw)}, nil
	case jsonx.ShapeObject:
	default:
		return Chapter{}, fmt.Errorf("expected a name or an object")
	}

	fields, err := jsonx.Fields(raw)
	if err != nil {
		return Chapter{}, err
	}
	chapter := Chapter{Kind: ChapterObject, Name: firstText(fields, chapterNameKeys...)}
	for _, f := range fields {
		if isMetaKey(f.Key) {
			continue
		}
		switch jsonx.ShapeOf(f.Value) {
		case jsonx.ShapeArray:
			entries, err := parseEntries(f.Value)
			if err != nil {
				return Chapter{}, fmt.Errorf("%s: %w", f.Key, err)
			}
			chapter.Buckets = append(chapter.Buckets, Bucket{Key: f.Key, Kind: BucketArray, Questions: entries})
		case jsonx.ShapeObject:
			bucket, err := parseSourceBucket(f)
			if err != nil {
				return Chapter{}, fmt.Errorf("%s: %w", f.Key, err)
			}
			chapter.Buckets = append(chapter.Buckets, bucket)
		}
	}
	return chapter, nil
}

func parseSourceBucket(f jsonx.Field) (Bucket, error) {
	fields, err := jsonx.Fields(f.Value)
	if err != nil {
		return Bucket{}, err
	}
	bucket := Bucket{Key: f.Key, Kind: BucketBySource}
	for _, sf := range fields {
		if isMetaKey(sf.Key) || jsonx.ShapeOf(sf.Value) != jsonx.ShapeArray {
			continue
		}
		entries, err := parseEntries(sf.Value)
		if err != nil {
			return Bucket{}, fmt.Errorf("%s: %w", sf.Key, err)
		}
		bucket.Sources = append(bucket.Sources, SourceBucket{Key: sf.Key, Questions: entries})
	}
	return bucket, nil
}

func parseEntries(raw json.RawMessage) ([]Entry, error) {
	items, err := jsonx.Elements(raw)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		switch jsonx.ShapeOf(item) {
		case jsonx.ShapeString:
			entries = append(entries, Entry{Text: jsonx.Text(item)})
		case jsonx.ShapeObject:
			entry, err := parseEntry(item)
			if err != nil {
				return nil, fmt.Errorf("question %d: %w", i+1, err)
			}
			entries = append(entries, entry)
		case jsonx.ShapeNull:
		default:
			return nil, fmt.Errorf("question %d: unsupported shape", i+1)
		}
	}
	return entries, nil
}

func parseEntry(raw json.RawMessage) (Entry, error) {
	fields, err := jsonx.Fields(raw)
	if err != nil {
		return Entry{}, err
	}
	entry := Entry{
		ID:            idText(fields),
		Text:          firstText(fields, questionTextKeys...),
		CorrectAnswer: firstText(fields, answerKeys...),
	}
	if opts, ok := jsonx.Lookup(fields, "options"); ok {
		entry.Options, err = paper.DecodeOptions(opts)
		if err != nil {
			return Entry{}, fmt.Errorf("options: %w", err)
		}
	}
	return entry, nil
}

// idText reads the bank id, unwrapping extended JSON object ids.
func idText(fields []jsonx.Field) string {
	raw, ok := jsonx.Lookup(fields, questionIDKeys...)
	if !ok {
		return ""
	}
	if jsonx.ShapeOf(raw) == jsonx.ShapeObject {
		inner, err := jsonx.Fields(raw)
		if err != nil {
			return ""
		}
		return firstText(inner, "$oid")
	}
	return jsonx.Text(raw)
}

func firstText(fields []jsonx.Field, names ...string) string {
	for _, name := range names {
		if raw, ok := jsonx.Lookup(fields, name); ok {
			if text := strings.TrimSpace(jsonx.Text(raw)); text != "" {
				return text
			}
		}
	}
	return ""
}

func objectFields(raw json.RawMessage) ([]jsonx.Field, error) {
	if jsonx.ShapeOf(raw) != jsonx.ShapeObject {
		return nil, fmt.Errorf("expected an object")
	}
	return jsonx.Fields(raw)
}

// isMetaKey skips ids and extended JSON markers that sit beside category buckets.
func isMetaKey(key string) bool {
	return strings.HasPrefix(key, "_") || strings.HasPrefix(key, "$")
}
