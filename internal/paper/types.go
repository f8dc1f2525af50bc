package paper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/gokatarajesh/paper-builder/internal/jsonx"
)

// Category is the question type a batch (and every question in it) belongs to.
type Category string

const (
	CategoryMCQ   Category = "mcq"
	CategoryShort Category = "short"
	CategoryLong  Category = "long"
)

// Categories lists the sections of a paper in print order.
var Categories = []Category{CategoryMCQ, CategoryShort, CategoryLong}

// Source buckets inside a chapter's category.
const (
	SourceExercise   = "exercise"
	SourceAdditional = "additional"
	SourcePastPaper  = "pastPaper"
)

// DefaultMarks is the per-question mark a category starts with.
func (c Category) DefaultMarks() int {
	switch c {
	case CategoryShort:
		return 2
	case CategoryLong:
		return 5
	default:
		return 1
	}
}

// KeyPrefix is the lower-case prefix used to match loosely named category keys
// ("mcqs", "shortQuestions", "long_questions").
func (c Category) KeyPrefix() string {
	s := string(c)
	if len(s) > 4 {
		return s[:4]
	}
	return s
}

func (c Category) Valid() bool {
	return c == CategoryMCQ || c == CategoryShort || c == CategoryLong
}

// Label is the section heading used on the printed paper.
func (c Category) Label() string {
	switch c {
	case CategoryMCQ:
		return "Multiple Choice Questions"
	case CategoryShort:
		return "Short Questions"
	case CategoryLong:
		return "Long Questions"
	}
	return string(c)
}

// ParseCategory accepts the canonical names and their loose variants.
func ParseCategory(s string) (Category, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Categories {
		if strings.HasPrefix(norm, c.KeyPrefix()) {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown question category %q", s)
}

// NewTempID builds a session-local identity: category, position and a random suffix.
func NewTempID(c Category, index int) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s-%d-%s", c, index, suffix)
}

// Option is one MCQ choice.
type Option struct {
	Key  string
	Text string
}

// Options keeps MCQ choices in display order. It encodes as a JSON object whose
// key order is preserved in both directions.
type Options []Option

// Get returns the text for key.
func (o Options) Get(key string) (string, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Text, true
		}
	}
	return "", false
}

func (o Options) clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	copy(out, o)
	return out
}

func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(opt.Key)
		if err != nil {
			return nil, err
		}
		text, err := json.Marshal(opt.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(text)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Options) UnmarshalJSON(data []byte) error {
	opts, err := DecodeOptions(data)
	if err != nil {
		return err
	}
	*o = opts
	return nil
}

// DecodeOptions reads either an object (letter -> text) or an array of texts,
// which is lettered a, b, c, ... in order. Arrays longer than the alphabet
// switch to numeric keys from the 27th entry on.
func DecodeOptions(raw json.RawMessage) (Options, error) {
	switch jsonx.ShapeOf(raw) {
	case jsonx.ShapeNull:
		return nil, nil
	case jsonx.ShapeArray:
		items, err := jsonx.Elements(raw)
		if err != nil {
			return nil, err
		}
		opts := make(Options, 0, len(items))
		for i, item := range items {
			opts = append(opts, Option{Key: optionKey(i), Text: jsonx.Text(item)})
		}
		return opts, nil
	case jsonx.ShapeObject:
		fields, err := jsonx.Fields(raw)
		if err != nil {
			return nil, err
		}
		opts := make(Options, 0, len(fields))
		for _, f := range fields {
			opts = append(opts, Option{Key: f.Key, Text: jsonx.Text(f.Value)})
		}
		return opts, nil
	}
	return nil, fmt.Errorf("options must be an object or an array")
}

func optionKey(i int) string {
	if i < 26 {
		return string(rune('a' + i))
	}
	return strconv.Itoa(i + 1)
}

// Question is one entry of a batch.
type Question struct {
	TempID        string   `json:"tempId"`
	ID            string   `json:"id,omitempty"`
	Text          string   `json:"questionText"`
	Category      Category `json:"type"`
	Marks         int      `json:"marks"`
	Options       Options  `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer,omitempty"`
}

// Clone returns a deep copy.
func (q Question) Clone() Question {
	q.Options = q.Options.clone()
	return q
}

// BatchConfig is the shared scoring and layout rule of a batch.
type BatchConfig struct {
	Total            int `json:"total"`
	Attempt          int `json:"attempt"`
	MarksPerQuestion int `json:"marksPerQuestion"`
	LayoutColumns    int `json:"layoutColumns"`
}

// UnmarshalJSON also accepts the older "marks" spelling of marksPerQuestion.
func (c *BatchConfig) UnmarshalJSON(data []byte) error {
	type plain BatchConfig
	var aux struct {
		plain
		Marks *int `json:"marks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = BatchConfig(aux.plain)
	if c.MarksPerQuestion == 0 && aux.Marks != nil {
		c.MarksPerQuestion = *aux.Marks
	}
	return nil
}

// Batch groups questions of one category added together.
type Batch struct {
	Type      Category    `json:"type"`
	Config    BatchConfig `json:"config"`
	Questions []Question  `json:"questions"`
}

func (b Batch) clone() Batch {
	qs := make([]Question, len(b.Questions))
	for i, q := range b.Questions {
		qs[i] = q.Clone()
	}
	b.Questions = qs
	return b
}

// Marks sums the marks of the questions currently in the batch.
func (b Batch) Marks() int {
	total := 0
	for _, q := range b.Questions {
		total += q.Marks
	}
	return total
}

// ChoiceNote is the "attempt N of M" instruction, empty when every question must be answered.
func (b Batch) ChoiceNote() string {
	if b.Config.Attempt <= 0 || b.Config.Attempt >= b.Config.Total {
		return ""
	}
	return fmt.Sprintf("Attempt any %d questions out of %d", b.Config.Attempt, b.Config.Total)
}

// Info is the printed header of the paper.
type Info struct {
	Class      string `json:"class"`
	Subject    string `json:"subject"`
	TotalMarks int    `json:"totalMarks"`
	Date       string `json:"date,omitempty"`
	Time       string `json:"time,omitempty"`
}

// Style carries presentation settings. The assembler stores it untouched.
type Style struct {
	FontFamily   string          `json:"fontFamily,omitempty"`
	FontSize     int             `json:"fontSize,omitempty"`
	HeadingSize  int             `json:"headingSize,omitempty"`
	Watermark    string          `json:"watermark,omitempty"`
	LogoURL      string          `json:"logoUrl,omitempty"`
	TemplateID   string          `json:"templateId,omitempty"`
	MCQColumns   int             `json:"mcqColumns,omitempty"`
	ShortColumns int             `json:"shortColumns,omitempty"`
	LongColumns  int             `json:"longColumns,omitempty"`
	Extra        json.RawMessage `json:"extra,omitempty"`
}
