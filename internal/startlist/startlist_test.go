package startlist

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhaf82/Handtiming/internal/store"
	"github.com/simhaf82/Handtiming/internal/timing"
)

func TestParseSemicolonWithHeader(t *testing.T) {
	data := "Startnummer;Nachname;Vorname;Geschlecht;Jahrgang\n" +
		"1;Meier;Anna;W;1990\n" +
		"2;Huber;Ben;M;1985\n"

	rows, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, timing.StartlistRow{
		StartNumber: "1", LastName: "Meier", FirstName: "Anna", Gender: "W", YearOfBirth: "1990",
	}, rows[0])
	assert.Equal(t, "2", rows[1].StartNumber)
}

func TestParseCommaWithoutHeader(t *testing.T) {
	data := "10,Wagner,Clara,W,2001\n11,Schulz,David,M,1999\n"

	rows, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Wagner", rows[0].LastName)
	assert.Equal(t, "David", rows[1].FirstName)
}

func TestParseShortRowsAndBlankLines(t *testing.T) {
	data := "5;Meier\n\n;\n6;Huber;Ben\n"

	rows, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, timing.StartlistRow{StartNumber: "5", LastName: "Meier"}, rows[0])
	assert.Equal(t, timing.StartlistRow{StartNumber: "6", LastName: "Huber", FirstName: "Ben"}, rows[1])
}

func TestParseSemicolonWinsWhenBothPresent(t *testing.T) {
	// a name containing a comma must not flip the separator
	data := "7;Meier, Dr.;Anna\n"

	rows, err := Parse(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Meier, Dr.", rows[0].LastName)
}

func TestImportReplacesStartlist(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := New(st)
	ctx := context.Background()

	rows, err := svc.Import(ctx, "ev1", strings.NewReader("1;Meier\n2;Huber\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = svc.Import(ctx, "ev1", strings.NewReader("3;Wagner\n"))
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	got, err := svc.Rows(ctx, "ev1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].StartNumber)
}

func TestImportRejectsEmptyFile(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	svc := New(st)

	_, err = svc.Import(context.Background(), "ev1", strings.NewReader("Startnummer;Nachname\n"))
	assert.ErrorIs(t, err, timing.ErrValidation)

	rows, rerr := svc.Rows(context.Background(), "ev1")
	require.NoError(t, rerr)
	assert.Empty(t, rows)
}

func TestDeleteMissingStartlistIsFine(t *testing.T) {
	st, err := store.NewFileStore(t.TempDir())
	require.NoError(t, err)
	assert.NoError(t, New(st).Delete(context.Background(), "nobody"))
}
