package assembly

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pterm/pterm"
)

// ExhibitRef is one exhibit map record, used by the document update
// script to link exhibit mentions to bundle pages.
type ExhibitRef struct {
	ID   string `json:"id"`
	Page int    `json:"page"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Summary is the outcome of a join-exhibit run in report order: other
// errors, then missing files, then the added entries.
type Summary struct {
	Errors     []*Entry
	NotFound   []string
	Added      []*Entry
	ExhibitMap map[string]ExhibitRef
}

func Summarize(entries []*Entry) *Summary {
	s := &Summary{ExhibitMap: make(map[string]ExhibitRef)}
	for _, e := range entries {
		switch {
		case e.NotFound():
			s.NotFound = append(s.NotFound, e.Name)
		case e.Err != nil:
			s.Errors = append(s.Errors, e)
		default:
			s.Added = append(s.Added, e)
		}
		if e.ExhibitID != "" {
			s.ExhibitMap[e.Name] = ExhibitRef{
				ID:   e.ExhibitID,
				Page: e.PageNumber,
				Text: fmt.Sprintf("%s p%d", e.ExhibitID, e.PageNumber),
				URL:  e.URL,
			}
		}
	}
	return s
}

// ExhibitMapJSON returns the exhibit map keyed by entry name.
func (s *Summary) ExhibitMapJSON() ([]byte, error) {
	return json.MarshalIndent(s.ExhibitMap, "", "  ")
}

// Render prints the summary tables and the exhibit map to w.
func (s *Summary) Render(w io.Writer) error {
	for _, e := range s.Errors {
		fmt.Fprintf(w, "Error in entry %s: %v\n", e.Name, e.Err)
	}
	for _, name := range s.NotFound {
		fmt.Fprintf(w, "File not found: %s\n", name)
	}
	if len(s.Added) > 0 {
		data := pterm.TableData{{"Name", "Exhibit", "Page", "Width", "Height"}}
		for _, e := range s.Added {
			data = append(data, []string{
				e.Name,
				orDash(e.ExhibitID),
				strconv.Itoa(e.PageNumber),
				strconv.FormatFloat(e.Width, 'f', -1, 64),
				strconv.FormatFloat(e.Height, 'f', -1, 64),
			})
		}
		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, table)
	}
	js, err := s.ExhibitMapJSON()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Exhibit map:\n%s\n", js)
	return nil
}
