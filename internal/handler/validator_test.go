package handler

import (
    "testing"

    "github.com/go-playground/validator/v10"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestRegisterTagsReportsFailure(t *testing.T) {
    err := registerTags(validator.New(), map[string]validator.Func{"": isoDate})
    require.Error(t, err)
    assert.Contains(t, err.Error(), "register validation")

    assert.NoError(t, registerTags(validator.New(), map[string]validator.Func{"isodate": isoDate}))
}

func TestCustomTags(t *testing.T) {
    rv := NewValidator()
    type in struct {
        Day    string `json:"day" validate:"isodate"`
        Arrive string `json:"arrive" validate:"omitempty,clock"`
    }
    assert.NoError(t, rv.Validate(in{Day: "2025-12-01", Arrive: "15:00"}))

    err := rv.Validate(in{Day: "2025-13-01"})
    require.Error(t, err)
    assert.Equal(t, CodeInvalidDate, validationCode(err).Code)

    err = rv.Validate(in{Day: "2025-12-01", Arrive: "25:00"})
    require.Error(t, err)
    assert.Equal(t, "arrive", validationCode(err).Field)
}
