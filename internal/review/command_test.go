package review

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Command
		wantErr bool
	}{
		{name: "next short", input: "n", want: Command{Action: ActionNext}},
		{name: "next long", input: " NEXT ", want: Command{Action: ActionNext}},
		{name: "prev", input: "p", want: Command{Action: ActionPrev}},
		{name: "prev long", input: "prev", want: Command{Action: ActionPrev}},
		{name: "quit", input: "q", want: Command{Action: ActionQuit}},
		{name: "edit compact", input: "e5", want: Command{Action: ActionEdit, Number: 5}},
		{name: "edit spaced", input: "edit 12", want: Command{Action: ActionEdit, Number: 12}},
		{name: "delete compact", input: "d3", want: Command{Action: ActionDelete, Number: 3}},
		{name: "delete spaced", input: "delete 7", want: Command{Action: ActionDelete, Number: 7}},
		{name: "edit without number", input: "e", wantErr: true},
		{name: "delete non numeric", input: "dx", wantErr: true},
		{name: "unknown", input: "x", wantErr: true},
		{name: "empty", input: "   ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCommand(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEditChoice(t *testing.T) {
	got, err := ParseEditChoice("c", 20)
	require.NoError(t, err)
	assert.True(t, got.Cancel)

	got, err = ParseEditChoice("M", 20.5)
	require.NoError(t, err)
	assert.False(t, got.Cancel)
	assert.InDelta(t, 20.5, got.Value, 1e-9)

	got, err = ParseEditChoice(" -3.25 ", 20)
	require.NoError(t, err)
	assert.InDelta(t, -3.25, got.Value, 1e-9)

	for _, bad := range []string{"", "abc", "NaN", "inf"} {
		_, err = ParseEditChoice(bad, 20)
		assert.ErrorIs(t, err, ErrInvalidValue, bad)
	}
}

func TestParseConfirm(t *testing.T) {
	assert.True(t, ParseConfirm("y"))
	assert.True(t, ParseConfirm("YES"))
	assert.False(t, ParseConfirm(""))
	assert.False(t, ParseConfirm("n"))
	assert.False(t, ParseConfirm("sure"))
}
