package linecount

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// Header is the first row of every report.
var Header = []string{"org_name", "repo_name", "language", "files", "blank", "comment", "code"}

// Row is one language count for one repository.
type Row struct {
	Org  string
	Repo string
	Language
}

// WriteCSV writes the header and rows in order.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			r.Org,
			r.Repo,
			r.Name,
			strconv.FormatInt(r.Files, 10),
			strconv.FormatInt(r.Blank, 10),
			strconv.FormatInt(r.Comment, 10),
			strconv.FormatInt(r.Code, 10),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row %s/%s: %w", r.Org, r.Repo, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
