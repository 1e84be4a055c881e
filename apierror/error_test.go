package apierror_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/headStarter-Travel-app/travelAppBackend/apierror"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := apierror.New(errors.New("test error"), 0)
	require.Equal(t, "test error", err.Error())

	err = apierror.New(nil, http.StatusNotFound)
	require.Equal(t, fmt.Sprintf("%d %s", http.StatusNotFound, http.StatusText(http.StatusNotFound)), err.Error())

	err = apierror.New(nil, 0)
	require.Equal(t, "", err.Error())

	err = apierror.New(nil, 999)
	require.Equal(t, "999", err.Error())
}

func TestFromResponse(t *testing.T) {
	err := apierror.FromResponse(0, []byte(" quota exceeded\n"))
	require.Equal(t, "quota exceeded", err.Error())

	err = apierror.FromResponse(http.StatusTooManyRequests, []byte(" quota exceeded\n"))
	require.Equal(t, "quota exceeded", err.Error())

	ae, ok := err.(*apierror.Error)
	require.True(t, ok)
	require.Equal(t, http.StatusTooManyRequests, ae.Status())

	err = apierror.FromResponse(http.StatusUnauthorized, nil)
	require.Equal(t, fmt.Sprintf("%d %s", http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized)), err.Error())
}

func TestEncodeDecode(t *testing.T) {
	data := apierror.EncodeError(nil)
	require.Nil(t, data)

	derr := apierror.DecodeError(nil)
	require.Nil(t, derr)

	derr = apierror.DecodeError([]byte("not json"))
	require.ErrorContains(t, derr, "cannot decode error message")

	err := apierror.New(errors.New("no places near origin"), http.StatusNotFound)
	data = apierror.EncodeError(err)

	derr = apierror.DecodeError(data)
	require.Equal(t, "no places near origin", derr.Error())

	ae, ok := derr.(*apierror.Error)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, ae.Status())
	require.Equal(t, fmt.Sprintf("%d %s: no places near origin", http.StatusNotFound, http.StatusText(http.StatusNotFound)), ae.Text())

	someErr := errors.New("some error")
	data = apierror.EncodeError(someErr)

	derr = apierror.DecodeError(data)
	require.Equal(t, "some error", derr.Error())
	_, ok = derr.(*apierror.Error)
	require.False(t, ok)
}

func TestEncodeFailures(t *testing.T) {
	err := apierror.NotFound("no recommendations")
	data := apierror.EncodeError(err, errors.New("food: timeout"), errors.New("park: 502"))
	require.JSONEq(t, `{"message":"not found: no recommendations","status":404,"failures":["food: timeout","park: 502"]}`, string(data))
}

func TestUnwrap(t *testing.T) {
	errEOF := errors.New("end of file")
	err := apierror.New(errEOF, 0)
	require.ErrorIs(t, err, errEOF)
}

func TestKinds(t *testing.T) {
	cause := errors.New("connection refused")

	err := apierror.Validation("latMin %v > latMax %v", 2, 1)
	require.ErrorIs(t, err, apierror.ErrValidation)
	require.Equal(t, http.StatusBadRequest, apierror.StatusOf(err))
	require.Equal(t, "validation error: latMin 2 > latMax 1", err.Error())

	err = apierror.NotFound("nothing here")
	require.ErrorIs(t, err, apierror.ErrNotFound)
	require.Equal(t, http.StatusNotFound, apierror.StatusOf(err))

	err = apierror.Auth(cause)
	require.ErrorIs(t, err, apierror.ErrAuth)
	require.ErrorIs(t, err, cause)
	require.Equal(t, http.StatusServiceUnavailable, apierror.StatusOf(err))

	err = apierror.Store(cause)
	require.ErrorIs(t, err, apierror.ErrStore)
	require.ErrorIs(t, err, cause)
	require.Equal(t, http.StatusInternalServerError, apierror.StatusOf(err))

	// Wrapping twice does not nest the kind.
	again := apierror.Store(err)
	require.Equal(t, err.Error(), again.Error())

	upstream := apierror.FromResponse(http.StatusTooManyRequests, []byte("slow down"))
	err = apierror.Provider(upstream)
	require.ErrorIs(t, err, apierror.ErrProvider)
	require.Equal(t, http.StatusBadGateway, apierror.StatusOf(err))
	var inner *apierror.Error
	require.ErrorAs(t, errors.Unwrap(err), &inner)

	require.Equal(t, http.StatusInternalServerError, apierror.StatusOf(cause))
}
