package ingest

import (
	"errors"
	"strconv"
	"strings"

	"github.com/alvmarrod/graph-weaver/internal/graph"
)

var (
	// ErrComment marks a comment or blank line
	ErrComment = errors.New("comment line")
	// ErrMalformedRecord marks a line that does not hold two vertex IDs
	ErrMalformedRecord = errors.New("malformed record")
)

// Options control how raw lines are turned into edges
type Options struct {
	// CommentPrefix marks lines to skip. Empty disables comment detection.
	CommentPrefix string
	// Delimiter separates the two fields. Empty splits on any whitespace.
	Delimiter string
	// SkipSelfLoops drops edges whose endpoints are equal
	SkipSelfLoops bool
}

// DefaultOptions matches the SNAP edge-list layout
func DefaultOptions() Options {
	return Options{CommentPrefix: "#"}
}

// ParseLine extracts an edge from one record. Fields after the second are ignored.
func ParseLine(line string, opts Options) (graph.Edge, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return graph.Edge{}, ErrComment
	}
	if opts.CommentPrefix != "" && strings.HasPrefix(trimmed, opts.CommentPrefix) {
		return graph.Edge{}, ErrComment
	}

	var fields []string
	if opts.Delimiter == "" {
		fields = strings.Fields(trimmed)
	} else {
		fields = strings.SplitN(trimmed, opts.Delimiter, 3)
	}
	if len(fields) < 2 {
		return graph.Edge{}, ErrMalformedRecord
	}

	src, err := parseVertex(fields[0])
	if err != nil {
		return graph.Edge{}, err
	}
	dst, err := parseVertex(fields[1])
	if err != nil {
		return graph.Edge{}, err
	}

	return graph.Edge{Src: src, Dst: dst}, nil
}

func parseVertex(field string) (graph.VertexID, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(field), 10, 64)
	if err != nil || v < 0 {
		return 0, ErrMalformedRecord
	}
	return graph.VertexID(v), nil
}
