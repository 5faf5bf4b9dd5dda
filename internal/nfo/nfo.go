// Package nfo parses Kodi-style .nfo sidecar files.
//
// Two schemas are recognized by their root element: <tvshow> describes a
// series and <episodedetails> describes one episode. Fields that are absent
// or blank come back as nil, never as zero values.
package nfo

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

var (
	ErrParseFailure      = errors.New("nfo: malformed sidecar")
	ErrUnsupportedSchema = errors.New("nfo: unsupported schema")
)

const (
	RootShow    = "tvshow"
	RootEpisode = "episodedetails"
)

// Record is either a ShowRecord or an EpisodeRecord.
type Record interface {
	Root() string
}

type ShowRecord struct {
	Title    *string
	Plot     *string
	Year     *int
	Genres   []string
	ThumbURL *string
}

func (ShowRecord) Root() string { return RootShow }

type EpisodeRecord struct {
	ShowTitle *string
	Title     *string
	Plot      *string
	Year      *int
	Season    *int
	Episode   *int
	Aired     *string
	Genres    []string
}

func (EpisodeRecord) Root() string { return RootEpisode }

type xmlShow struct {
	XMLName   xml.Name `xml:"tvshow"`
	Title     string   `xml:"title"`
	Plot      string   `xml:"plot"`
	Year      string   `xml:"year"`
	Premiered string   `xml:"premiered"`
	Genres    []string `xml:"genre"`
	Thumbs    []string `xml:"thumb"`
}

type xmlEpisode struct {
	XMLName   xml.Name `xml:"episodedetails"`
	ShowTitle string   `xml:"showtitle"`
	Title     string   `xml:"title"`
	Plot      string   `xml:"plot"`
	Year      string   `xml:"year"`
	Season    string   `xml:"season"`
	Episode   string   `xml:"episode"`
	Aired     string   `xml:"aired"`
	Genres    []string `xml:"genre"`
}

// Parse decodes one sidecar. Content after the root element is ignored,
// since scrapers often append a bare URL line to the XML.
func Parse(data []byte) (Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader

	start, err := rootElement(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
	}

	switch start.Name.Local {
	case RootShow:
		var x xmlShow
		if err := dec.DecodeElement(&x, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return x.record(), nil
	case RootEpisode:
		var x xmlEpisode
		if err := dec.DecodeElement(&x, &start); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return x.record(), nil
	default:
		return nil, fmt.Errorf("%w: <%s>", ErrUnsupportedSchema, start.Name.Local)
	}
}

// ParseFile reads name from fsys and parses it.
func ParseFile(fsys fs.FS, name string) (Record, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, err
	}
	rec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return rec, nil
}

func rootElement(dec *xml.Decoder) (xml.StartElement, error) {
	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, errors.New("no root element")
			}
			return xml.StartElement{}, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			return t, nil
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return xml.StartElement{}, errors.New("text before root element")
			}
		}
	}
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "iso-8859-1", "latin1", "latin-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "us-ascii", "ascii":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

func (x xmlShow) record() ShowRecord {
	year := optInt(x.Year)
	if year == nil {
		year = yearOf(x.Premiered)
	}
	var thumb *string
	for _, t := range x.Thumbs {
		if thumb = optString(t); thumb != nil {
			break
		}
	}
	return ShowRecord{
		Title:    optString(x.Title),
		Plot:     optString(x.Plot),
		Year:     year,
		Genres:   cleanList(x.Genres),
		ThumbURL: thumb,
	}
}

func (x xmlEpisode) record() EpisodeRecord {
	year := optInt(x.Year)
	if year == nil {
		year = yearOf(x.Aired)
	}
	return EpisodeRecord{
		ShowTitle: optString(x.ShowTitle),
		Title:     optString(x.Title),
		Plot:      optString(x.Plot),
		Year:      year,
		Season:    optInt(x.Season),
		Episode:   optInt(x.Episode),
		Aired:     optString(x.Aired),
		Genres:    cleanList(x.Genres),
	}
}

func optString(raw string) *string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil
	}
	return &v
}

// optInt treats negative numbers as missing; Kodi writes -1 for unknown.
func optInt(raw string) *int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

func yearOf(date string) *int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return nil
	}
	return optInt(date[:4])
}

func cleanList(raw []string) []string {
	var out []string
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
