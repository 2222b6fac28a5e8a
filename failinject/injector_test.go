package failinject

import (
	"testing"

	"github.com/squareup/pranascan/errors"
	"github.com/stretchr/testify/require"
)

func TestFailpoint(t *testing.T) {
	inj := NewInjector()
	require.NoError(t, inj.Start())
	fp := inj.GetFailpoint(ScanNextBatch)
	require.NoError(t, fp.CheckFail())

	calls := 0
	fp.SetFailAction(func() error {
		calls++
		if calls == 2 {
			return errors.New("boom")
		}
		return nil
	})
	require.NoError(t, fp.CheckFail())
	require.Error(t, fp.CheckFail())
	fp.Deactivate()
	require.NoError(t, fp.CheckFail())
	require.Equal(t, 2, calls)

	_, err := inj.RegisterFailpoint(ScanNextBatch)
	require.Error(t, err)
	require.Panics(t, func() {
		inj.GetFailpoint("unknown")
	})
}

func TestDummyInjector(t *testing.T) {
	inj := NewDummyInjector()
	fp := inj.GetFailpoint(ScanOpenSource)
	fp.SetFailAction(func() error { return errors.New("never") })
	require.NoError(t, fp.CheckFail())
}
