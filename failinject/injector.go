/*
 *  Copyright 2022 Square Inc.
 *
 *  Licensed under the Apache License, Version 2.0 (the "License");
 *  you may not use this file except in compliance with the License.
 *  You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 *  Unless required by applicable law or agreed to in writing, software
 *  distributed under the License is distributed on an "AS IS" BASIS,
 *  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *  See the License for the specific language governing permissions and
 *  limitations under the License.
 */

package failinject

import (
	"fmt"
	"sync"

	"github.com/squareup/pranascan/common"
	"github.com/squareup/pranascan/errors"
)

// Failpoints checked by scans.
const (
	// ScanOpenSource is checked after a scan has opened its source and before it reads any batch.
	ScanOpenSource = "scan_open_source"
	// ScanNextBatch is checked before every batch request.
	ScanNextBatch = "scan_next_batch"
)

func NewInjector() Injector {
	return &defaultInjector{failpoints: make(map[string]*defaultFailpoint)}
}

type Injector interface {
	RegisterFailpoint(name string) (Failpoint, error)
	GetFailpoint(name string) Failpoint
	Start() error
	Stop() error
}

type Failpoint interface {
	CheckFail() error
	SetFailAction(action FailAction)
	Deactivate()
}

type FailAction func() error

type defaultInjector struct {
	failpoints map[string]*defaultFailpoint
	lock       sync.Mutex
}

type defaultFailpoint struct {
	name       string
	active     common.AtomicBool
	lock       sync.Mutex
	failAction FailAction
}

func (i *defaultInjector) RegisterFailpoint(name string) (Failpoint, error) {
	i.lock.Lock()
	defer i.lock.Unlock()
	if _, ok := i.failpoints[name]; ok {
		return nil, errors.Errorf("failpoint %s already registered", name)
	}
	fp := &defaultFailpoint{
		name: name,
	}
	i.failpoints[name] = fp
	return fp, nil
}

func (i *defaultInjector) GetFailpoint(name string) Failpoint {
	i.lock.Lock()
	defer i.lock.Unlock()
	fp, ok := i.failpoints[name]
	if !ok {
		panic(fmt.Sprintf("cannot find failpoint %s", name))
	}
	return fp
}

func (f *defaultFailpoint) CheckFail() error {
	if !f.active.Get() {
		return nil
	}
	f.lock.Lock()
	action := f.failAction
	f.lock.Unlock()
	if action == nil {
		return nil
	}
	return action()
}

func (f *defaultFailpoint) SetFailAction(action FailAction) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.failAction = action
	f.active.Set(action != nil)
}

func (f *defaultFailpoint) Deactivate() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.active.Set(false)
	f.failAction = nil
}

func (i *defaultInjector) Start() error {
	for _, name := range []string{ScanOpenSource, ScanNextBatch} {
		if _, err := i.RegisterFailpoint(name); err != nil {
			return err
		}
	}
	return nil
}

func (i *defaultInjector) Stop() error {
	return nil
}
