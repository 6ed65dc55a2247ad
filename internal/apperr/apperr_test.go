package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidation(t *testing.T) {
	var v Validation
	require.NoError(t, v.Err())

	v.Require("title", "  ")
	v.Require("description", "something")
	v.Add("title", "second message is ignored")
	v.Add("end_date", "must not be before start_date")

	err := v.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	assert.Equal(t, map[string]string{
		"title":    "is required",
		"end_date": "must not be before start_date",
	}, FieldErrors(err))
	assert.Equal(t, "validation failed: end_date: must not be before start_date; title: is required", err.Error())
}

func TestUnavailable(t *testing.T) {
	assert.Nil(t, Unavailable(nil, "query"))

	cause := errors.New("connection refused")
	err := Unavailable(cause, "query votes")

	assert.True(t, errors.Is(err, ErrBackendUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "query votes: connection refused")
	assert.Nil(t, FieldErrors(err))
}

func TestHTTPStatus(t *testing.T) {
	var v Validation
	v.Add("title", "is required")

	tests := []struct {
		err  error
		want int
	}{
		{v.Err(), http.StatusBadRequest},
		{ErrUnauthenticated, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.Wrap(ErrNotFound, "poll p1"), http.StatusNotFound},
		{ErrAlreadyVoted, http.StatusConflict},
		{ErrPollNotVotable, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{Unavailable(errors.New("timeout"), "query"), http.StatusServiceUnavailable},
		{errors.New("unexpected"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
	assert.True(t, IsNotFound(errors.Wrap(ErrNotFound, "candidate")))
}
