package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScanErrorMessageCarriesCode(t *testing.T) {
	err := NewUnknownColumnError("mem://t.parquet", "z")
	require.Equal(t, "PSC0005 - Source mem://t.parquet does not have a column z", err.Error())
	require.Equal(t, SchemaMismatch, err.Code)
	require.Equal(t, "mem://t.parquet", err.Source)
	require.True(t, err.CallerDefect())
}

func TestCallerDefect(t *testing.T) {
	require.True(t, NewClosureCorruptedError("bad magic").CallerDefect())
	require.False(t, NewSourceUnavailableError("s3://b/k", nil).CallerDefect())
	require.False(t, NewPredicateEvaluationError("oops").CallerDefect())
}

func TestHasCodeThroughWrapping(t *testing.T) {
	cause := fmt.Errorf("no such file")
	var err error = NewSourceUnavailableError("file:///tmp/x", cause)
	err = Wrap(err, "probing")
	err = WithStack(err)
	require.True(t, HasCode(err, SourceUnavailable))
	require.False(t, HasCode(err, SchemaMismatch))
	require.True(t, Is(err, cause))
	se, ok := AsScanError(err)
	require.True(t, ok)
	require.Equal(t, "file:///tmp/x", se.Source)
}

func TestWithSourceDoesNotOverwrite(t *testing.T) {
	err := NewPredicateEvaluationError("bad").WithSource("a")
	require.Equal(t, "a", err.Source)
	err = err.WithSource("b")
	require.Equal(t, "a", err.Source)
}

func TestSingleRootStack(t *testing.T) {
	root := New("root")
	wrapped := Wrap(root, "outer")
	require.NotNil(t, root.(stackTracer).StackTrace())
	require.Nil(t, wrapped.(stackTracer).StackTrace())
	require.Equal(t, "outer: root", wrapped.Error())
	require.Equal(t, root, Cause(wrapped))
	require.Same(t, root, WithStack(root))
}

func TestMaybeAddStack(t *testing.T) {
	require.Nil(t, MaybeAddStack(nil))
	se := NewInvalidConfigurationError("x")
	require.Equal(t, se, MaybeAddStack(se))
	plain := fmt.Errorf("plain")
	withStack := MaybeAddStack(plain)
	require.NotEqual(t, plain, withStack)
	require.True(t, Is(withStack, plain))
}
