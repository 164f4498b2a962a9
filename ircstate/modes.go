package ircstate

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrNotEnoughModeParameters is returned by UpdateModes when a mode that
	// takes a parameter has none left to consume.
	ErrNotEnoughModeParameters = errors.New("not enough parameters for mode change")
)

// ModeSet is a set of mode characters, safe for concurrent use.
type ModeSet struct {
	sync.RWMutex
	modes map[rune]struct{}
}

// NewModeSet returns a ModeSet holding the characters of initial.
func NewModeSet(initial string) *ModeSet {
	ms := &ModeSet{modes: make(map[rune]struct{})}
	for _, m := range initial {
		ms.modes[m] = struct{}{}
	}
	return ms
}

// Add adds a mode to the set.
func (ms *ModeSet) Add(mode rune) {
	ms.Lock()
	defer ms.Unlock()
	ms.modes[mode] = struct{}{}
}

// Remove removes a mode from the set.
func (ms *ModeSet) Remove(mode rune) {
	ms.Lock()
	defer ms.Unlock()
	delete(ms.modes, mode)
}

// Has reports whether mode is in the set.
func (ms *ModeSet) Has(mode rune) bool {
	ms.RLock()
	defer ms.RUnlock()
	_, ok := ms.modes[mode]
	return ok
}

// Len returns the number of modes in the set.
func (ms *ModeSet) Len() int {
	ms.RLock()
	defer ms.RUnlock()
	return len(ms.modes)
}

// Clear empties the set.
func (ms *ModeSet) Clear() {
	ms.Lock()
	defer ms.Unlock()
	ms.modes = make(map[rune]struct{})
}

// Runes returns the modes in the set, sorted.
func (ms *ModeSet) Runes() []rune {
	ms.RLock()
	result := make([]rune, 0, len(ms.modes))
	for m := range ms.modes {
		result = append(result, m)
	}
	ms.RUnlock()
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// String returns the modes as a sorted string, e.g. "imnt".
func (ms *ModeSet) String() string {
	return string(ms.Runes())
}

// ModeParamFunc reports whether a mode consumes a parameter when it is
// being added (adding == true) or removed.
type ModeParamFunc func(adding bool, mode rune) bool

// ParamModes returns a ModeParamFunc for a fixed set of modes that always
// take a parameter.
func ParamModes(modes string) ModeParamFunc {
	return func(adding bool, mode rune) bool {
		return strings.ContainsRune(modes, mode)
	}
}

// UpdateModes applies a mode string such as "+o-v+i" to set.
//
// Modes for which takesParam returns true consume the next unconsumed entry
// of params and are passed to handleParam instead of being stored in set.
// All other modes are added to or removed from set directly. set may be
// nil when every mode is expected to be parameterized. Modes processed
// before a failure stay applied.
func UpdateModes(set *ModeSet, modes string, params []string, takesParam ModeParamFunc, handleParam func(adding bool, mode rune, param string)) error {
	adding := true
	for _, mode := range modes {
		switch mode {
		case '+':
			adding = true
			continue
		case '-':
			adding = false
			continue
		}

		if takesParam != nil && takesParam(adding, mode) {
			if len(params) == 0 {
				return ErrNotEnoughModeParameters
			}
			param := params[0]
			params = params[1:]
			if handleParam != nil {
				handleParam(adding, mode, param)
			}
			continue
		}

		if set == nil {
			continue
		}
		if adding {
			set.Add(mode)
		} else {
			set.Remove(mode)
		}
	}
	return nil
}
