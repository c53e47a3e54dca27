package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Ring is a closed or open coordinate sequence.
type Ring []LatLng

// Polygon is an outer ring followed by holes.
type Polygon []Ring

// ErrWKT is wrapped by every parse failure.
var ErrWKT = errors.New("geo: malformed wkt")

// ParseWKT parses POINT, POLYGON and MULTIPOLYGON geometries (WKT order is
// "lon lat"). A POINT becomes one polygon holding a one-point ring. An
// optional "SRID=n;" prefix and Z/M suffixes are accepted; coordinate pairs
// that do not parse are skipped.
func ParseWKT(text string) ([]Polygon, error) {
	s := strings.TrimSpace(text)
	if i := strings.IndexByte(s, ';'); i >= 0 && strings.HasPrefix(strings.ToUpper(s), "SRID=") {
		s = strings.TrimSpace(s[i+1:])
	}
	if s == "" {
		return nil, nil
	}

	open := strings.IndexByte(s, '(')
	if open < 0 {
		if strings.HasSuffix(strings.ToUpper(s), "EMPTY") {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: missing '('", ErrWKT)
	}
	kind := strings.ToUpper(strings.Fields(s[:open] + " x")[0])

	p := &wktParser{src: s, pos: open}
	root, err := p.node()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, fmt.Errorf("%w: trailing input at %d", ErrWKT, p.pos)
	}

	switch kind {
	case "POINT":
		if len(root.coords) == 0 {
			return nil, nil
		}
		return []Polygon{{Ring{root.coords[0]}}}, nil
	case "POLYGON":
		return []Polygon{polygonOf(root)}, nil
	case "MULTIPOLYGON":
		polys := make([]Polygon, 0, len(root.children))
		for _, child := range root.children {
			polys = append(polys, polygonOf(child))
		}
		return polys, nil
	default:
		return nil, fmt.Errorf("%w: unsupported geometry %q", ErrWKT, kind)
	}
}

// Rings is ParseWKT for display code: malformed input yields no polygons.
func Rings(text string) []Polygon {
	polys, err := ParseWKT(text)
	if err != nil {
		return nil
	}
	return polys
}

func polygonOf(n wktNode) Polygon {
	if n.children == nil {
		return Polygon{Ring(n.coords)}
	}
	poly := make(Polygon, 0, len(n.children))
	for _, ring := range n.children {
		poly = append(poly, Ring(ring.coords))
	}
	return poly
}

type wktNode struct {
	children []wktNode
	coords   []LatLng
}

type wktParser struct {
	src string
	pos int
}

func (p *wktParser) skipSpace() {
	for p.pos < len(p.src) && strings.ContainsRune(" \t\r\n", rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *wktParser) node() (wktNode, error) {
	p.skipSpace()
	if p.pos >= len(p.src) || p.src[p.pos] != '(' {
		return wktNode{}, fmt.Errorf("%w: expected '(' at %d", ErrWKT, p.pos)
	}
	p.pos++
	p.skipSpace()

	if p.pos < len(p.src) && p.src[p.pos] == '(' {
		var n wktNode
		n.children = []wktNode{}
		for {
			child, err := p.node()
			if err != nil {
				return wktNode{}, err
			}
			n.children = append(n.children, child)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return wktNode{}, fmt.Errorf("%w: unexpected end", ErrWKT)
			}
			switch p.src[p.pos] {
			case ',':
				p.pos++
			case ')':
				p.pos++
				return n, nil
			default:
				return wktNode{}, fmt.Errorf("%w: unexpected %q at %d", ErrWKT, p.src[p.pos], p.pos)
			}
		}
	}

	end := strings.IndexByte(p.src[p.pos:], ')')
	if end < 0 {
		return wktNode{}, fmt.Errorf("%w: unclosed coordinate list", ErrWKT)
	}
	body := p.src[p.pos : p.pos+end]
	p.pos += end + 1
	if strings.ContainsRune(body, '(') {
		return wktNode{}, fmt.Errorf("%w: nested '(' in coordinates", ErrWKT)
	}
	return wktNode{coords: parseCoords(body)}, nil
}

func parseCoords(body string) []LatLng {
	var out []LatLng
	for _, pair := range strings.Split(body, ",") {
		fields := strings.Fields(pair)
		if len(fields) < 2 {
			continue
		}
		lng, errX := strconv.ParseFloat(fields[0], 64)
		lat, errY := strconv.ParseFloat(fields[1], 64)
		if errX != nil || errY != nil || !finite(lng) || !finite(lat) {
			continue
		}
		out = append(out, LatLng{Lat: lat, Lng: lng})
	}
	return out
}
