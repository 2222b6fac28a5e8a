package common

import (
	"io"
	"sort"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// InvokeCloser closes closer, logging rather than returning any error. Used on exit paths where an earlier
// error is already being returned.
func InvokeCloser(closer io.Closer) {
	if closer != nil {
		if err := closer.Close(); err != nil {
			log.Warnf("failed to close %T: %v", closer, err)
		}
	}
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// CopyStringMap returns a copy of m; nil stays nil.
func CopyStringMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	res := make(map[string]string, len(m))
	for k, v := range m {
		res[k] = v
	}
	return res
}

const atFalse = 0
const atTrue = 1

type AtomicBool struct {
	val int32
}

func (a *AtomicBool) Get() bool {
	return atomic.LoadInt32(&a.val) == atTrue
}

func (a *AtomicBool) Set(val bool) {
	atomic.StoreInt32(&a.val, a.toInt(val))
}

func (a *AtomicBool) toInt(val bool) int32 {
	if val {
		return atTrue
	}
	return atFalse
}
