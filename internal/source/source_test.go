package source

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatic_GroupsByDoctype(t *testing.T) {
	src := Static(
		Record{Doctype: "GP Task", Name: "1"},
		Record{Doctype: "GP Page", Name: "2"},
		Record{Doctype: "GP Task", Name: "3"},
	)

	assert.Equal(t, []string{"GP Page", "GP Task"}, src.Doctypes())

	var names []string
	err := src.Each(context.Background(), "GP Task", func(r Record) error {
		names = append(names, r.Name)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "3"}, names)
}

func TestStatic_StopsOnError(t *testing.T) {
	src := Static(Record{Doctype: "GP Page", Name: "1"}, Record{Doctype: "GP Page", Name: "2"})
	stop := errors.New("stop")

	calls := 0
	err := src.Each(context.Background(), "GP Page", func(Record) error {
		calls++
		return stop
	})

	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestStatic_HonoursCancellation(t *testing.T) {
	src := Static(Record{Doctype: "GP Page", Name: "1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := src.Each(ctx, "GP Page", func(Record) error { return nil })

	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupDoctype(t *testing.T) {
	d, ok := LookupDoctype("GP Task")
	require.True(t, ok)
	assert.Equal(t, "description", d.ContentColumn)

	_, ok = LookupDoctype("GP Comment")
	assert.False(t, ok)
}

func TestSelectQuery(t *testing.T) {
	d, _ := LookupDoctype("GP Task")

	assert.Equal(t,
		`SELECT "name", "title", "description", "team", "project", "owner", "modified" FROM "tabGP Task" ORDER BY "name"`,
		selectQuery(d))
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "x")
	assert.Error(t, err)
}
