package extract

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/DruizrGit/CondoPricePrediction/pkg/schema"
)

// Rooms is the aggregate derived from a room listing.
type Rooms struct {
	Storeys   int   // highest storey class over all rooms
	FloorArea Value // summed area of above-grade rooms, missing if any of them had no usable area
}

// ComputeRooms derives the storey count and floor area from the room
// entries of a container. A room that cannot be walked or classified
// counts as below grade; the walk always continues with the next room.
func ComputeRooms(items *goquery.Selection, rs schema.RoomSchema) (Rooms, []Diagnostic) {
	var diags []Diagnostic
	note := func(field string, i int, err error) {
		diags = append(diags, Diagnostic{Field: field, Err: fmt.Errorf("room %d: %w", i, err)})
	}

	maxStorey := 0
	total := 0.0
	missingArea := false

	for i := 0; i < items.Length(); i++ {
		leaf, err := descend(items.Eq(i), rs.Path)
		if err != nil {
			note(rs.StoreysName(), i, err)
			continue
		}

		storey := 0
		if node, err := Resolve(leaf, rs.Level); err != nil {
			note(rs.StoreysName(), i, fmt.Errorf("level: %w", err))
		} else if text, err := ReadText(node, schema.TextFull); err != nil {
			note(rs.StoreysName(), i, fmt.Errorf("level: %w", err))
		} else if storey, err = ClassifyStorey(text); err != nil {
			note(rs.StoreysName(), i, err)
		}

		if storey > maxStorey {
			maxStorey = storey
		}
		if storey <= 0 {
			// Below-grade rooms never count towards floor area.
			continue
		}

		area, err := roomArea(leaf, rs.Area)
		if err != nil {
			missingArea = true
			note(rs.AreaName(), i, err)
			continue
		}
		total += area
	}

	rooms := Rooms{Storeys: maxStorey, FloorArea: Float(round2(total))}
	if missingArea {
		rooms.FloorArea = Missing()
	}
	return rooms, diags
}

// descend follows one locator per depth from an entry down to its leaf.
func descend(node *goquery.Selection, path []schema.Locator) (*goquery.Selection, error) {
	for depth, loc := range path {
		next, err := Resolve(node, loc)
		if err != nil {
			return nil, fmt.Errorf("depth %d: %w", depth, err)
		}
		node = next
	}
	return node, nil
}

func roomArea(leaf *goquery.Selection, loc schema.Locator) (float64, error) {
	node, err := Resolve(leaf, loc)
	if err != nil {
		return 0, fmt.Errorf("area: %w", err)
	}
	text, err := ReadText(node, schema.TextOwn)
	if err != nil {
		return 0, fmt.Errorf("area: %w", err)
	}
	return ParseArea(text)
}

// ClassifyStorey maps a room's level text to a storey class by its first
// character: L, B, S are below grade (0); M, G, I, F are the main floor (1);
// U is the upper floor (2); a digit is taken literally. Anything else
// classifies as 0 and returns an ErrParse error alongside.
func ClassifyStorey(level string) (int, error) {
	level = strings.TrimSpace(level)
	r, _ := utf8.DecodeRuneInString(level)
	if r == utf8.RuneError {
		return 0, fmt.Errorf("%w: empty storey level", ErrParse)
	}

	switch unicode.ToUpper(r) {
	case 'L', 'B', 'S':
		return 0, nil
	case 'M', 'G', 'I', 'F':
		return 1, nil
	case 'U':
		return 2, nil
	}

	if r >= '0' && r <= '9' {
		return int(r - '0'), nil
	}
	return 0, fmt.Errorf("%w: unrecognized storey level %q, counted as below grade", ErrParse, level)
}

// ParseArea reads room dimensions shaped like "3.5 m x 4.2 m" and returns
// their product rounded to two decimals.
func ParseArea(text string) (float64, error) {
	tokens := strings.Fields(text)
	if len(tokens) < 4 {
		return 0, fmt.Errorf("%w: area %q is not shaped like \"<num> <unit> x <num> <unit>\"", ErrParse, text)
	}

	width, err := parseDimension(tokens[0])
	if err != nil {
		return 0, fmt.Errorf("%w: area %q: %v", ErrParse, text, err)
	}
	length, err := parseDimension(tokens[3])
	if err != nil {
		return 0, fmt.Errorf("%w: area %q: %v", ErrParse, text, err)
	}
	return round2(width * length), nil
}

func parseDimension(token string) (float64, error) {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("dimension %q is not finite", token)
	}
	return v, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
