package util

import (
	"fmt"
	"html/template"
	"io"
	"os"
)

// Table is a set of equally shaped data sets sharing row and column
// headers, e.g. one data set per statistic of methods × problems.
type Table struct {
	Title                  string
	ColHeaders, RowHeaders []string
	Data                   map[string][][]float64
}

// check verifies that every data set matches the headers.
func (t *Table) check() error {
	if t == nil {
		return fmt.Errorf("util: nil data table")
	}

	rows, cols := len(t.RowHeaders), len(t.ColHeaders)
	for name, dataSet := range t.Data {
		if len(dataSet) != rows {
			return fmt.Errorf("util: table %q, data set %q: %d rows for %d row headers", t.Title, name, len(dataSet), rows)
		}
		for i, row := range dataSet {
			if len(row) != cols {
				return fmt.Errorf("util: table %q, data set %q: row %d has %d columns for %d column headers", t.Title, name, i, len(row), cols)
			}
		}
	}
	return nil
}

// WriteTablesFile writes the tables as an HTML document to filePath.
func WriteTablesFile(tables []Table, filePath string) (err error) {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("util: opening %s: %w", filePath, err)
	}
	defer func() {
		if cErr := file.Close(); cErr != nil && err == nil {
			err = fmt.Errorf("util: closing %s: %w", filePath, cErr)
		}
	}()

	return WriteTablesHTML(tables, file)
}

// WriteTablesHTML writes the tables as an HTML document to output.
// Nothing is written when a table is inconsistent.
func WriteTablesHTML(tables []Table, output io.Writer) error {
	for i := range tables {
		if err := tables[i].check(); err != nil {
			return err
		}
	}

	if err := document.Execute(output, tables); err != nil {
		return fmt.Errorf("util: executing table template: %w", err)
	}
	return nil
}

var document = template.Must(template.New("document").Funcs(template.FuncMap{
	"odd": func(i int) bool { return i%2 == 1 },
}).Parse(`<!DOCTYPE html>
<html>
<head>
    <style type="text/css">
        .results {
            font-family: "Trebuchet MS", Arial, Helvetica, sans-serif;
            width: 100%;
            border-collapse: collapse;
        }
        .results td, .results th {
            font-size: 1em;
            border: 1px solid #98bf21;
            padding: 3px 7px 2px 7px;
        }
        .results th {
            font-size: 1.1em;
            text-align: left;
            padding-top: 5px;
            padding-bottom: 4px;
            background-color: #A7C942;
            color: #ffffff;
        }
        .results tr.alt td {
            color: #000000;
            background-color: #EAF2D3;
        }
        caption {
            text-align: left;
        }
    </style>
</head>
<body>
{{range $table := .}}
	<h2>{{.Title}}</h2>
	{{range $name, $data := $table.Data}}
	<table class="results">
	  <caption>{{$table.Title}} - {{$name}}</caption>
	  <tr>
		<th></th>
		{{range $table.ColHeaders}}<th>{{.}}</th>{{end}}
	  </tr>
	  {{range $i, $row := $data}}
	  <tr{{if odd $i}} class="alt"{{end}}>
		<th>{{index $table.RowHeaders $i}}</th>
		{{range $row}}<td>{{printf "%.6g" .}}</td>{{end}}
	  </tr>
	  {{end}}
	</table>
	{{end}}
{{end}}
</body>
</html>
`))
