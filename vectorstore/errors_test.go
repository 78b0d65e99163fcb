package vectorstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiagnose(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "missing id",
			err:  errors.New("Id is not provided in the upsert request"),
			want: ErrMissingIDField,
		},
		{
			name: "null string length",
			err:  errors.New("string.length() of field content is null"),
			want: ErrNullStringField,
		},
		{
			name: "null value",
			err:  errors.New("null value found in varchar field"),
			want: ErrNullStringField,
		},
		{
			name: "collection access",
			err:  errors.New("collection hr_docs does not exist"),
			want: ErrCollectionAccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diagnose(tt.err)
			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestDiagnosePassesThroughUnclassified(t *testing.T) {
	err := errors.New("deadline exceeded")
	assert.Equal(t, err, Diagnose(err))
	assert.NoError(t, Diagnose(nil))
}

func TestIsNotLoaded(t *testing.T) {
	assert.True(t, isNotLoaded(errors.New("error: Collection not loaded into memory")))
	assert.False(t, isNotLoaded(errors.New("collection missing")))
	assert.False(t, isNotLoaded(nil))
}
