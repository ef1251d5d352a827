package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"gocohort/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := ConfigInvalid("CLUSTER_K must be between 2 and 20")
	wrapped := Wrap(base, "failed to load clustering configuration")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, "failed to load clustering configuration: CLUSTER_K must be between 2 and 20", wrapped.Error())
	assert.Nil(t, Wrap(nil, "ignored"))
}

func TestFromDomain(t *testing.T) {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{core.NewInsufficientDataError("prepare", 5, 10), CodeInsufficientData, http.StatusUnprocessableEntity},
		{&core.MalformedFeatureError{ActorID: "a1", Column: "coherence"}, CodeMalformedFeature, http.StatusBadRequest},
		{fmt.Errorf("%w: run 42", core.ErrRunNotFound), CodeNotFound, http.StatusNotFound},
		{core.NewInvalidParameterError("kmeans", "k", 1), CodeInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("save cohorts: %w", core.ErrPersistence), CodeDatabaseError, http.StatusServiceUnavailable},
		{core.ErrAllAlgorithmsFailed, CodeClusteringFailed, http.StatusUnprocessableEntity},
		{stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			appErr := FromDomain(tc.err)
			assert.Equal(t, tc.code, GetCode(appErr))
			assert.True(t, stderrors.Is(appErr, tc.err))
			assert.Equal(t, tc.status, HTTPStatus(tc.err))
		})
	}

	existing := NotFound("cohort")
	assert.Same(t, existing, FromDomain(existing))
	assert.Nil(t, FromDomain(nil))
}
