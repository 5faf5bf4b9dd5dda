package nfo

import (
	"encoding/xml"
	"strconv"
)

type xmlShowOut struct {
	XMLName xml.Name `xml:"tvshow"`
	Title   string   `xml:"title,omitempty"`
	Plot    string   `xml:"plot,omitempty"`
	Year    string   `xml:"year,omitempty"`
	Genres  []string `xml:"genre"`
	Thumb   string   `xml:"thumb,omitempty"`
}

// Marshal renders the record as a <tvshow> document that Parse reads back
// to an equal record.
func (r ShowRecord) Marshal() ([]byte, error) {
	out := xmlShowOut{
		Title:  deref(r.Title),
		Plot:   deref(r.Plot),
		Genres: r.Genres,
		Thumb:  deref(r.ThumbURL),
	}
	if r.Year != nil {
		out.Year = strconv.Itoa(*r.Year)
	}
	body, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
