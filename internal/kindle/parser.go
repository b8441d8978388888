package kindle

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/mrlokans/kindle-enex/internal/entities"
)

// headerLines is the number of fixed-position lines at the top of an export.
const headerLines = 4

// Result is the outcome of parsing one Kindle highlights export.
type Result struct {
	Book       entities.BookProperties
	Highlights []entities.Highlight

	// LineKinds counts how each input line was classified.
	LineKinds map[LineKind]int
}

// NoteCount returns how many highlights carry a note.
func (r *Result) NoteCount() int {
	n := 0
	for _, h := range r.Highlights {
		if h.HasNote() {
			n++
		}
	}
	return n
}

// Parser parses the text Kindle shows under "Your Notes and Highlights".
//
// The expected layout is:
//
//	<title> by <author>
//	You have <N> highlighted passages
//	You have <N> notes
//	Last annotated on <date>
//	<quote>Read more at location <N> <anything>
//	Note: <text> Edit
//	Add a note
//
// Parser is stateless; every call works on its own state.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// ParseText splits text into lines and parses them.
// A trailing carriage return is dropped from each line.
func (p *Parser) ParseText(text string) (*Result, error) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return p.Parse(lines)
}

// ParseReader reads all lines from r and parses them.
func (p *Parser) ParseReader(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading highlights: %w", err)
	}

	return p.Parse(lines)
}

// Parse extracts the book header and the ordered highlights from lines.
// It stops at the first line it cannot make sense of.
func (p *Parser) Parse(lines []string) (*Result, error) {
	book, err := parseHeader(lines)
	if err != nil {
		return nil, err
	}

	state := parseState{
		result: &Result{
			Book:       *book,
			Highlights: []entities.Highlight{},
			LineKinds:  make(map[LineKind]int),
		},
	}

	for i, raw := range lines {
		if err := state.consume(i, raw); err != nil {
			return nil, err
		}
	}

	return state.result, nil
}

// parseState accumulates highlights for a single Parse call.
type parseState struct {
	result *Result
}

func (s *parseState) consume(position int, raw string) error {
	line := Classify(raw)

	switch line.Kind {
	case NoteLine:
		last := len(s.result.Highlights) - 1
		if last < 0 {
			return &ParseError{Kind: KindOrphanNote, Position: position, Line: raw}
		}
		h := &s.result.Highlights[last]
		if h.HasNote() {
			log.Printf("Kindle parser: replacing note for location %s (line %d)", h.Location, position+1)
		}
		h.Note = line.Note

	case QuoteLine:
		s.result.Highlights = append(s.result.Highlights, entities.Highlight{
			Quote:    strings.TrimSpace(line.Quote),
			Location: line.Location,
		})

	case IgnorableLine:
		if position < headerLines {
			line.Kind = HeaderLine
		}

	default:
		return &ParseError{Kind: KindUnrecognizedLine, Position: position, Line: raw}
	}

	s.result.LineKinds[line.Kind]++
	return nil
}

func parseHeader(lines []string) (*entities.BookProperties, error) {
	lineAt := func(i int) string {
		if i < len(lines) {
			return lines[i]
		}
		return ""
	}
	malformed := func(i int, expected string) error {
		return &ParseError{Kind: KindMalformedHeader, Position: i, Line: lineAt(i), Expected: expected}
	}

	book := &entities.BookProperties{}

	m := titleAuthorPattern.FindStringSubmatch(lineAt(0))
	if m == nil {
		return nil, malformed(0, `"<title> by <author>"`)
	}
	book.Title = m[titleAuthorPattern.SubexpIndex("title")]
	book.Author = m[titleAuthorPattern.SubexpIndex("author")]

	count, ok := matchCount(passageCountPattern, lineAt(1))
	if !ok {
		return nil, malformed(1, `"You have <N> highlighted passages"`)
	}
	book.PassageCount = count

	count, ok = matchCount(noteCountPattern, lineAt(2))
	if !ok {
		return nil, malformed(2, `"You have <N> notes"`)
	}
	book.NoteCount = count

	m = lastAnnotatedPattern.FindStringSubmatch(lineAt(3))
	if m == nil {
		return nil, malformed(3, `"Last annotated on <date>"`)
	}
	book.LastAnnotated = m[lastAnnotatedPattern.SubexpIndex("date")]

	return book, nil
}

func matchCount(pattern *regexp.Regexp, line string) (int, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[pattern.SubexpIndex("count")])
	if err != nil {
		return 0, false
	}
	return n, true
}
