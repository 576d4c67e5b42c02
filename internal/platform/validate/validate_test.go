// internal/platform/validate/validate_test.go
package validate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type window struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required,gtfield=From"`
}

type holder struct {
	Name    string   `json:"name" validate:"required"`
	Windows []window `json:"windows" validate:"dive"`
}

func TestStruct_UsesJSONFieldNames(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := Struct(holder{Windows: []window{{From: from, To: from.Add(-time.Hour)}}})
	require.Error(t, err)

	var errs Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 2)
	assert.Equal(t, "name", errs[0].Field)
	assert.Equal(t, "windows[0].to", errs[1].Field)
	assert.Contains(t, errs[0].Message, "name is a required field")
	assert.Equal(t, "to must be greater than from", errs[1].Message)
}

func TestErrors_NameTheField(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	err := Struct(holder{Name: "x", Windows: []window{{From: from, To: from}}})
	require.Error(t, err)

	assert.Equal(t, "windows[0].to: to must be greater than from", err.Error())
}

func TestStruct_Valid(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, Struct(holder{Name: "ok", Windows: []window{{From: from, To: from.Add(time.Hour)}}}))
}
