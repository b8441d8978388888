package kindle

import "regexp"

// LineKind tags how a line of the export was classified.
type LineKind int

const (
	UnknownLine LineKind = iota
	HeaderLine
	NoteLine
	QuoteLine
	IgnorableLine
)

func (k LineKind) String() string {
	switch k {
	case HeaderLine:
		return "header"
	case NoteLine:
		return "note"
	case QuoteLine:
		return "quote"
	case IgnorableLine:
		return "ignorable"
	default:
		return "unknown"
	}
}

const (
	readMoreMarker = "Read more at location "
	addANoteLine   = "Add a note"
)

// Patterns are anchored: a line matches only when the whole line has the shape.
var (
	// "The Pragmatic Programmer by Andrew Hunt and David Thomas"
	titleAuthorPattern = regexp.MustCompile(`^(?P<title>.*) by (?P<author>.*)$`)

	// "You have 12 highlighted passages"
	passageCountPattern = regexp.MustCompile(`^You have (?P<count>\d+) highlighted passage.*$`)

	// "You have 3 notes"
	noteCountPattern = regexp.MustCompile(`^You have (?P<count>\d+) note.*$`)

	// "Last annotated on March 5, 2016"
	lastAnnotatedPattern = regexp.MustCompile(`^Last annotated on (?P<date>.*)$`)

	// "Note: worth rereading Edit"
	notePattern = regexp.MustCompile(`^Note: (?P<note>.*) Edit$`)

	// "Care about your craft.Read more at location 219 • Delete this highlight"
	quotePattern = regexp.MustCompile(`^(?P<quote>.*)` + regexp.QuoteMeta(readMoreMarker) + `(?P<location>\d+) .*$`)
)

// Line is the result of classifying one line of input.
type Line struct {
	Kind     LineKind
	Raw      string
	Quote    string
	Location string
	Note     string
}

type lineMatcher struct {
	name  string
	match func(raw string) (Line, bool)
}

// bodyMatchers are tried in order; the first match decides the line kind.
var bodyMatchers = []lineMatcher{
	{name: "note", match: matchNote},
	{name: "quote", match: matchQuote},
	{name: "ignorable", match: matchIgnorable},
}

// Classify returns the first matching line kind, UnknownLine when none match.
func Classify(raw string) Line {
	for _, m := range bodyMatchers {
		if line, ok := m.match(raw); ok {
			return line
		}
	}
	return Line{Kind: UnknownLine, Raw: raw}
}

func matchNote(raw string) (Line, bool) {
	m := notePattern.FindStringSubmatch(raw)
	if m == nil {
		return Line{}, false
	}
	return Line{Kind: NoteLine, Raw: raw, Note: m[notePattern.SubexpIndex("note")]}, true
}

func matchQuote(raw string) (Line, bool) {
	m := quotePattern.FindStringSubmatch(raw)
	if m == nil {
		return Line{}, false
	}
	return Line{
		Kind:     QuoteLine,
		Raw:      raw,
		Quote:    m[quotePattern.SubexpIndex("quote")],
		Location: m[quotePattern.SubexpIndex("location")],
	}, true
}

func matchIgnorable(raw string) (Line, bool) {
	switch {
	case raw == "",
		raw == addANoteLine,
		titleAuthorPattern.MatchString(raw),
		lastAnnotatedPattern.MatchString(raw),
		passageCountPattern.MatchString(raw),
		noteCountPattern.MatchString(raw):
		return Line{Kind: IgnorableLine, Raw: raw}, true
	}
	return Line{}, false
}
