package nfo

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strp(s string) *string { return &s }
func intp(i int) *int       { return &i }

const sampleShow = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<tvshow>
  <title>Twin Peaks</title>
  <plot>An FBI agent investigates a murder.</plot>
  <year>1990</year>
  <genre>Drama</genre>
  <genre> Mystery </genre>
  <genre></genre>
  <thumb aspect="poster"></thumb>
  <thumb aspect="poster">https://example.org/poster.jpg</thumb>
</tvshow>
https://www.thetvdb.com/?tab=series&id=70533`

const sampleEpisode = `<episodedetails>
  <showtitle>Twin Peaks</showtitle>
  <title>Pilot</title>
  <season>1</season>
  <episode>0</episode>
  <plot>Laura Palmer is found.</plot>
  <aired>1990-04-08</aired>
</episodedetails>`

func TestParseShow(t *testing.T) {
	rec, err := Parse([]byte(sampleShow))
	require.NoError(t, err)

	want := ShowRecord{
		Title:    strp("Twin Peaks"),
		Plot:     strp("An FBI agent investigates a murder."),
		Year:     intp(1990),
		Genres:   []string{"Drama", "Mystery"},
		ThumbURL: strp("https://example.org/poster.jpg"),
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("show record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, RootShow, rec.Root())
}

func TestParseEpisode(t *testing.T) {
	rec, err := Parse([]byte(sampleEpisode))
	require.NoError(t, err)

	want := EpisodeRecord{
		ShowTitle: strp("Twin Peaks"),
		Title:     strp("Pilot"),
		Plot:      strp("Laura Palmer is found."),
		Year:      intp(1990),
		Season:    intp(1),
		Episode:   intp(0),
		Aired:     strp("1990-04-08"),
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("episode record mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMissingFieldsAreNil(t *testing.T) {
	rec, err := Parse([]byte(`<episodedetails><title>  </title><season>-1</season><episode>two</episode></episodedetails>`))
	require.NoError(t, err)

	ep, ok := rec.(EpisodeRecord)
	require.True(t, ok)
	assert.Nil(t, ep.Title)
	assert.Nil(t, ep.Plot)
	assert.Nil(t, ep.Season)
	assert.Nil(t, ep.Episode)
	assert.Nil(t, ep.Year)
	assert.Nil(t, ep.Genres)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]struct {
		input string
		want  error
	}{
		"empty":          {input: "", want: ErrParseFailure},
		"plain text":     {input: "just a url http://x", want: ErrParseFailure},
		"unclosed":       {input: "<tvshow><title>Broken</title>", want: ErrParseFailure},
		"mismatched":     {input: "<episodedetails><title>x</plot></episodedetails>", want: ErrParseFailure},
		"movie root":     {input: "<movie><title>Heat</title></movie>", want: ErrUnsupportedSchema},
		"unknown encode": {input: `<?xml version="1.0" encoding="EBCDIC"?><tvshow/>`, want: ErrParseFailure},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec, err := Parse([]byte(tc.input))
			assert.Nil(t, rec)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestParseLatin1(t *testing.T) {
	data := append([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><tvshow><title>Caf`), 0xe9)
	data = append(data, []byte(`</title></tvshow>`)...)

	rec, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "Café", *rec.(ShowRecord).Title)
}

func TestShowRoundTrip(t *testing.T) {
	inputs := []string{
		sampleShow,
		`<tvshow><title>Only Title</title></tvshow>`,
		`<tvshow><year>2001</year><genre>Animation</genre></tvshow>`,
		`<tvshow><title>Fish &amp; Chips</title><premiered>1974-09-01</premiered><genre>Comedy</genre><genre>Food</genre></tvshow>`,
	}
	for _, in := range inputs {
		first, err := Parse([]byte(in))
		require.NoError(t, err)
		show := first.(ShowRecord)

		out, err := show.Marshal()
		require.NoError(t, err)

		second, err := Parse(out)
		require.NoError(t, err)
		again := second.(ShowRecord)

		assert.Equal(t, show.Title, again.Title)
		assert.Equal(t, show.Year, again.Year)
		assert.Equal(t, show.Genres, again.Genres)
	}
}

func TestParseFile(t *testing.T) {
	fsys := fstest.MapFS{
		"show/tvshow.nfo": {Data: []byte(sampleShow)},
		"show/bad.nfo":    {Data: []byte("<tvshow>")},
	}

	rec, err := ParseFile(fsys, "show/tvshow.nfo")
	require.NoError(t, err)
	assert.Equal(t, "Twin Peaks", *rec.(ShowRecord).Title)

	_, err = ParseFile(fsys, "show/bad.nfo")
	assert.ErrorIs(t, err, ErrParseFailure)
	assert.Contains(t, err.Error(), "show/bad.nfo")

	_, err = ParseFile(fsys, "show/missing.nfo")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrParseFailure)
}
