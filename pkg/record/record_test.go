package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dateFields = []string{"DATA_ENTRADA", "DATA_SAIDA"}

func TestFormat_RewritesDates(t *testing.T) {
	in := Record{"Title": "t", "DATA_ENTRADA": "2024-03-05", "DATA_SAIDA": "2024-12-31"}

	out, err := Format(in, dateFields)
	require.NoError(t, err)

	assert.Equal(t, "2024-03-05T00:00:00Z", out["DATA_ENTRADA"])
	assert.Equal(t, "2024-12-31T00:00:00Z", out["DATA_SAIDA"])
	assert.Equal(t, "2024-03-05", in["DATA_ENTRADA"], "input must not be mutated")
}

func TestFormat_SkipsMissingAndEmptyDates(t *testing.T) {
	in := Record{"Title": "t", "DATA_SAIDA": ""}

	out, err := Format(in, dateFields)
	require.NoError(t, err)

	_, present := out["DATA_ENTRADA"]
	assert.False(t, present)
	assert.Equal(t, "", out["DATA_SAIDA"])
}

func TestFormat_MalformedDateReturnsOriginal(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "day first", value: "05/03/2024"},
		{name: "out of range", value: "2024-13-40"},
		{name: "already timestamp", value: "2024-03-05T00:00:00Z"},
		{name: "garbage", value: "amanhã"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Record{"PROCESSO": "123", "DATA_ENTRADA": "2024-01-01", "DATA_SAIDA": tt.value}

			out, err := Format(in, dateFields)
			assert.Error(t, err)
			assert.Equal(t, in, out)
			_, hasTitle := out["Title"]
			assert.False(t, hasTitle)
			assert.Equal(t, "2024-01-01", in["DATA_ENTRADA"])
		})
	}
}

func TestEnsureTitle(t *testing.T) {
	r := Record{"PROCESSO": "50500.000001/2024"}
	EnsureTitle(r)
	assert.Equal(t, "50500.000001/2024", r["Title"])

	r = Record{"PROCESSO": "1", "Title": "kept"}
	EnsureTitle(r)
	assert.Equal(t, "kept", r["Title"])

	r = Record{"Other": "x"}
	EnsureTitle(r)
	_, ok := r["Title"]
	assert.False(t, ok)
}

func TestFormat_BackfillsTitle(t *testing.T) {
	out, err := Format(Record{"PROCESSO": "42"}, nil)
	require.NoError(t, err)
	assert.Equal(t, Record{"PROCESSO": "42", "Title": "42"}, out)
}
