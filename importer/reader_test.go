package importer

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rr *RowReader) []Row {
	t.Helper()
	var rows []Row
	for {
		row, err := rr.Next()
		if errors.Is(err, io.EOF) {
			return rows
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
}

func TestRowReader_MapsRecognisedColumns(t *testing.T) {
	rr, err := NewRowReader(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	assert.Empty(t, rr.MissingColumns())

	rows := readAll(t, rr)
	require.Len(t, rows, 5)

	assert.Equal(t, Row{
		Line:         2,
		Name:         "Darth Vadar",
		Location:     "Death Star, Tatooine",
		Affiliations: "Sith",
		Weapon:       "Lightsaber",
		Vehicle:      "Tiefighter",
	}, rows[0])
	assert.Equal(t, "", rows[2].Vehicle)
	assert.Equal(t, "", rows[4].Affiliations)
	assert.Equal(t, 6, rows[4].Line)
}

func TestRowReader_HeaderNormalisation(t *testing.T) {
	input := "\xEF\xBB\xBF  NAME , Home World,AFFILIATIONS ,Weapon\n" +
		"Han Solo,Corellia,Rebel Alliance,DL-44\n"

	rr, err := NewRowReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "Han Solo", rows[0].Name)
	assert.Equal(t, "Rebel Alliance", rows[0].Affiliations)
	assert.Equal(t, "DL-44", rows[0].Weapon)
	assert.Equal(t, "", rows[0].Location, "'Home World' is not a recognised column")
}

func TestRowReader_ShortRowsAndBlankLines(t *testing.T) {
	input := "Name,Affiliations,Weapon,Vehicle\n" +
		"Leia Organa,Rebel Alliance\n" +
		"\n" +
		"  Lando Calrissian  , Rebel Alliance ,, Millennium Falcon \n"

	rr, err := NewRowReader(strings.NewReader(input))
	require.NoError(t, err)

	rows := readAll(t, rr)
	require.Len(t, rows, 3)
	assert.Equal(t, "Leia Organa", rows[0].Name)
	assert.Equal(t, "", rows[0].Weapon)
	assert.Equal(t, Row{Line: 3}, rows[1], "blank line comes back as an empty row")
	assert.Equal(t, "Lando Calrissian", rows[2].Name)
	assert.Equal(t, "Rebel Alliance", rows[2].Affiliations)
	assert.Equal(t, "Millennium Falcon", rows[2].Vehicle)
	assert.Equal(t, 4, rows[2].Line)
}

func TestRowReader_BlankLineAccounting(t *testing.T) {
	cases := []struct {
		name  string
		input string
		lines []int
	}{
		{"no trailing newline", "Name,Affiliations\nLuke,Jedi", []int{2}},
		{"single trailing newline", "Name,Affiliations\nLuke,Jedi\n", []int{2}},
		{"trailing blank lines", "Name,Affiliations\nLuke,Jedi\n\n\n", []int{2, 3, 4}},
		{"blank run between records", "Name,Affiliations\r\nLuke,Jedi\r\n\r\n\r\nLeia,Rebel\r\n", []int{2, 3, 4, 5}},
		{"blank line after header", "Name,Affiliations\n\nLuke,Jedi\n", []int{2, 3}},
		{"quoted newline spans lines", "Name,Affiliations\n\"Luke\nSkywalker\",Jedi\n\nLeia,Rebel\n", []int{2, 4, 5}},
		{"header only", "Name,Affiliations\n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, err := NewRowReader(strings.NewReader(tc.input))
			require.NoError(t, err)

			var lines []int
			for _, row := range readAll(t, rr) {
				lines = append(lines, row.Line)
			}
			assert.Equal(t, tc.lines, lines)
		})
	}
}

func TestRowReader_MissingColumns(t *testing.T) {
	rr, err := NewRowReader(strings.NewReader("Name,Location\nYoda,Dagobah\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"affiliations"}, rr.MissingColumns())

	rows := readAll(t, rr)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Affiliations)
}

func TestRowReader_StructuralErrors(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := NewRowReader(strings.NewReader(""))
		assert.ErrorIs(t, err, ErrMissingHeader)
	})

	t.Run("unterminated quote in header", func(t *testing.T) {
		_, err := NewRowReader(strings.NewReader("Name,\"Location\n"))
		assert.ErrorIs(t, err, ErrMalformedCSV)
	})

	t.Run("unterminated quote in a row", func(t *testing.T) {
		rr, err := NewRowReader(strings.NewReader("Name,Affiliations\nLuke Skywalker,\"Jedi Order\n"))
		require.NoError(t, err)

		_, err = rr.Next()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformedCSV)
	})
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Name":            "name",
		"  Affiliations ": "affiliations",
		"Home   World":    "home_world",
		"Weapon(s)":       "weapons",
		"":                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeHeader(in), "input %q", in)
	}
}
