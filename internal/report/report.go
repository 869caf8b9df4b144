package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/alvmarrod/graph-weaver/internal/analysis"
	"github.com/alvmarrod/graph-weaver/internal/storage"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTable is returned when a table name is not one of the report tables
var ErrUnknownTable = errors.New("unknown result table")

// Row is one ranked entry: a vertex or component key and its metric
type Row struct {
	Key   int64
	Value float64
}

// Table is one named, ranked result table
type Table struct {
	Name        string
	Analysis    string
	KeyColumn   string
	ValueColumn string
	// Integer marks counts, printed without a fractional part
	Integer bool
	Rows    []Row
}

// table suffixes, in output order
var kinds = []struct {
	suffix, analysis, key, value string
	integer                      bool
}{
	{"outdegree", analysis.AnalysisDegrees, "id", "outDegree", true},
	{"indegree", analysis.AnalysisDegrees, "id", "inDegree", true},
	{"pagerank", analysis.AnalysisPageRank, "id", "pagerank", false},
	{"components", analysis.AnalysisComponents, "component", "count", true},
	{"triangles", analysis.AnalysisTriangles, "id", "count", true},
}

// TableName returns the name of a table for a ranking size, e.g. top5_pagerank
func TableName(k int, suffix string) string {
	return fmt.Sprintf("top%d_%s", k, suffix)
}

// Tables converts the ranked tables of a report into output tables.
// Tables of failed analyses are skipped.
func Tables(rep *analysis.Report, k int) []Table {
	rows := map[string][]Row{
		"outdegree":  degreeRows(rep.OutDegree, true),
		"indegree":   degreeRows(rep.InDegree, false),
		"pagerank":   make([]Row, 0, len(rep.PageRank)),
		"components": make([]Row, 0, len(rep.Components)),
		"triangles":  make([]Row, 0, len(rep.Triangles)),
	}
	for _, r := range rep.PageRank {
		rows["pagerank"] = append(rows["pagerank"], Row{Key: int64(r.Vertex), Value: r.Score})
	}
	for _, r := range rep.Components {
		rows["components"] = append(rows["components"], Row{Key: int64(r.Label), Value: float64(r.Size)})
	}
	for _, r := range rep.Triangles {
		rows["triangles"] = append(rows["triangles"], Row{Key: int64(r.Vertex), Value: float64(r.Count)})
	}

	tables := make([]Table, 0, len(kinds))
	for _, kind := range kinds {
		if _, failed := rep.Errors[kind.analysis]; failed {
			continue
		}
		tables = append(tables, Table{
			Name:        TableName(k, kind.suffix),
			Analysis:    kind.analysis,
			KeyColumn:   kind.key,
			ValueColumn: kind.value,
			Integer:     kind.integer,
			Rows:        rows[kind.suffix],
		})
	}
	return tables
}

func degreeRows(records []analysis.DegreeRecord, out bool) []Row {
	rows := make([]Row, 0, len(records))
	for _, r := range records {
		d := r.InDegree
		if out {
			d = r.OutDegree
		}
		rows = append(rows, Row{Key: int64(r.Vertex), Value: float64(d)})
	}
	return rows
}

// Lookup returns the table with the given name
func Lookup(tables []Table, name string) (Table, error) {
	for _, t := range tables {
		if t.Name == name {
			return t, nil
		}
	}
	return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

func (t Table) formatValue(v float64) string {
	if t.Integer {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes every table to <dir>/<name>.csv with a header row
func WriteCSV(dir string, tables []Table) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, t := range tables {
		path := filepath.Join(dir, t.Name+".csv")
		if err := writeTableCSV(path, t); err != nil {
			return err
		}
		logrus.Debugf("Wrote %s (%d rows)", path, len(t.Rows))
	}
	return nil
}

func writeTableCSV(path string, t Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write([]string{t.KeyColumn, t.ValueColumn}); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	for _, r := range t.Rows {
		if err := w.Write([]string{strconv.FormatInt(r.Key, 10), t.formatValue(r.Value)}); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}

// Print renders the tables as aligned text, followed by run totals
func Print(w io.Writer, rep *analysis.Report, tables []Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Graph: %s vertices, %s edges\n\n",
		humanize.Comma(int64(rep.Vertices)), humanize.Comma(int64(rep.Edges)))

	for _, t := range tables {
		fmt.Fprintf(tw, "%s\n", t.Name)
		fmt.Fprintf(tw, "%s\t%s\n", t.KeyColumn, t.ValueColumn)
		for _, r := range t.Rows {
			value := t.formatValue(r.Value)
			if !t.Integer {
				value = strconv.FormatFloat(r.Value, 'f', 6, 64)
			}
			fmt.Fprintf(tw, "%d\t%s\n", r.Key, value)
		}
		fmt.Fprintln(tw)
	}

	if _, ok := rep.Errors[analysis.AnalysisPageRank]; !ok {
		fmt.Fprintf(tw, "PageRank:\t%d iterations, converged=%t, delta=%.3g\n",
			rep.PageRankStats.Iterations, rep.PageRankStats.Converged, rep.PageRankStats.Delta)
	}
	if _, ok := rep.Errors[analysis.AnalysisComponents]; !ok {
		fmt.Fprintf(tw, "Components:\t%s components in %d rounds, converged=%t\n",
			humanize.Comma(int64(rep.ComponentsStats.Count)), rep.ComponentsStats.Rounds, rep.ComponentsStats.Converged)
	}
	if _, ok := rep.Errors[analysis.AnalysisTriangles]; !ok {
		fmt.Fprintf(tw, "Triangles:\t%s total\n", humanize.Comma(rep.TriangleTotal))
	}
	for _, name := range []string{analysis.AnalysisDegrees, analysis.AnalysisPageRank, analysis.AnalysisComponents, analysis.AnalysisTriangles} {
		if err, ok := rep.Errors[name]; ok {
			fmt.Fprintf(tw, "FAILED %s:\t%v\n", name, err)
		}
	}

	return tw.Flush()
}

// ResultRows flattens the tables into rows for persistence; ranks start at 1
func ResultRows(tables []Table) []storage.ResultRow {
	var rows []storage.ResultRow
	for _, t := range tables {
		for i, r := range t.Rows {
			rows = append(rows, storage.ResultRow{
				Table: t.Name,
				Rank:  i + 1,
				Key:   r.Key,
				Value: r.Value,
			})
		}
	}
	return rows
}
