package errors_test

import (
	"errors"
	"testing"

	apperrors "github.com/skryldev/chainconv/errors"
)

func TestRouteError_UnwrapAndIs(t *testing.T) {
	wrapped := apperrors.Wrap(apperrors.CategorySearch, "search.find", apperrors.ErrNoRoute)
	if !errors.Is(wrapped, apperrors.ErrNoRoute) {
		t.Error("expected errors.Is to see through RouteError.Unwrap")
	}
}

func TestWrap_NilIsNil(t *testing.T) {
	if apperrors.Wrap(apperrors.CategoryConvert, "op", nil) != nil {
		t.Error("Wrap(nil) must return nil")
	}
}

func TestIsRetryable(t *testing.T) {
	transient := apperrors.Transient("convert.retry", errors.New("temporary"))
	if !apperrors.IsRetryable(transient) {
		t.Error("Transient errors must report IsRetryable true")
	}

	permanent := apperrors.New(apperrors.CategoryConvert, "convert", errors.New("permanent"))
	if apperrors.IsRetryable(permanent) {
		t.Error("New errors must report IsRetryable false")
	}
}

func TestIsCategory(t *testing.T) {
	err := apperrors.New(apperrors.CategoryStore, "store.load", errors.New("disk full"))
	if !apperrors.IsCategory(err, apperrors.CategoryStore) {
		t.Error("expected CategoryStore match")
	}
	if apperrors.IsCategory(err, apperrors.CategoryConvert) {
		t.Error("expected no match for a different category")
	}
	if apperrors.IsCategory(errors.New("plain"), apperrors.CategoryStore) {
		t.Error("a plain error must never match any category")
	}
}

func TestErrUnsupportedFormat(t *testing.T) {
	err := apperrors.ErrUnsupportedFormat("avif")
	if !apperrors.IsCategory(err, apperrors.CategoryConvert) {
		t.Error("expected CategoryConvert")
	}
}
