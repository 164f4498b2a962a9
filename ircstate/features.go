// written by Daniel Oaks <daniel@danieloaks.net>
// released under the ISC license

package ircstate

import (
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/goshuirc/ircclient/ircmap"
)

var (
	// ErrIsupportPrefixInvalid is returned for a PREFIX value that is not of
	// the form (modes)symbols with both groups the same length.
	ErrIsupportPrefixInvalid = errors.New("ISUPPORT PREFIX value is invalid")
)

// PrefixMapping pairs a membership prefix symbol with its channel mode, e.g.
// '@' and 'o'.
type PrefixMapping struct {
	Symbol rune
	Mode   rune
}

// defaultFeatures are assumed until the server says otherwise.
var defaultFeatures = []string{"CASEMAPPING=rfc1459", "CHANTYPES=#&", "CHANMODES=beI,k,l,imnpst", "PREFIX=(ov)@+"}

// Features holds the server features advertised with RPL_ISUPPORT, along
// with the values derived from them.
type Features struct {
	sync.RWMutex
	values map[string]string
	flags  map[string]bool

	prefix      []PrefixMapping
	chanModes   [4]string
	chanTypes   string
	casemapping ircmap.MappingType
}

// NewFeatures returns a Features holding the protocol defaults.
func NewFeatures() *Features {
	var f Features
	f.reset()
	return &f
}

func (f *Features) reset() {
	f.values = make(map[string]string)
	f.flags = make(map[string]bool)
	for _, token := range defaultFeatures {
		f.parseToken(token)
	}
}

// Reset restores the protocol defaults.
func (f *Features) Reset() {
	f.Lock()
	defer f.Unlock()
	f.reset()
}

// Parse folds the given RPL_ISUPPORT tokens (KEY, KEY=VALUE or -KEY) into
// the table. Every token is applied; the first error met is returned.
func (f *Features) Parse(tokens ...string) (err error) {
	f.Lock()
	defer f.Unlock()
	for _, token := range tokens {
		if perr := f.parseToken(token); perr != nil && err == nil {
			err = perr
		}
	}
	return
}

func (f *Features) parseToken(token string) error {
	if token == "" {
		return nil
	}
	if token[0] == '-' {
		name := strings.ToUpper(token[1:])
		delete(f.values, name)
		delete(f.flags, name)
		return nil
	}

	name, value, hasValue := strings.Cut(token, "=")
	name = strings.ToUpper(name)
	value = unescapeISupportValue(value)
	f.flags[name] = hasValue
	f.values[name] = value

	switch name {
	case "PREFIX":
		prefix, err := ParsePrefix(value)
		if err != nil {
			return err
		}
		f.prefix = prefix
	case "CHANMODES":
		var groups [4]string
		copy(groups[:], strings.Split(value, ","))
		f.chanModes = groups
	case "CHANTYPES":
		f.chanTypes = value
	case "CASEMAPPING":
		f.casemapping = ircmap.ParseMapping(value)
	}
	return nil
}

// ParsePrefix parses a PREFIX value such as "(ov)@+" into its ordered
// mode/symbol pairs. An empty value yields no mappings.
func ParsePrefix(value string) ([]PrefixMapping, error) {
	if value == "" {
		return nil, nil
	}
	if value[0] != '(' {
		return nil, ErrIsupportPrefixInvalid
	}
	modes, symbols, found := strings.Cut(value[1:], ")")
	if !found {
		return nil, ErrIsupportPrefixInvalid
	}
	modeRunes, symbolRunes := []rune(modes), []rune(symbols)
	if len(modeRunes) != len(symbolRunes) {
		return nil, ErrIsupportPrefixInvalid
	}
	result := make([]PrefixMapping, len(modeRunes))
	for i := range modeRunes {
		result[i] = PrefixMapping{Symbol: symbolRunes[i], Mode: modeRunes[i]}
	}
	return result, nil
}

func unescapeISupportValue(in string) (out string) {
	if strings.IndexByte(in, '\\') == -1 {
		return in
	}
	var buf strings.Builder
	for i := 0; i < len(in); {
		if in[i] == '\\' && i+3 < len(in) && in[i+1] == 'x' {
			hex := in[i+2 : i+4]
			if octet, err := strconv.ParseUint(hex, 16, 8); err == nil {
				buf.WriteByte(byte(octet))
				i += 4
				continue
			}
		}
		buf.WriteByte(in[i])
		i++
	}
	return buf.String()
}

// Get returns the value of a feature and whether the feature is present.
func (f *Features) Get(name string) (value string, present bool) {
	f.RLock()
	defer f.RUnlock()
	value, present = f.values[strings.ToUpper(name)]
	return
}

// HasValue reports whether a present feature was given as KEY=VALUE.
func (f *Features) HasValue(name string) bool {
	f.RLock()
	defer f.RUnlock()
	return f.flags[strings.ToUpper(name)]
}

// Int returns the integer value of a feature such as NICKLEN.
func (f *Features) Int(name string) (int, bool) {
	value, present := f.Get(name)
	if !present {
		return 0, false
	}
	num, err := strconv.Atoi(value)
	if err != nil || num < 0 {
		return 0, false
	}
	return num, true
}

// All returns a copy of the feature table.
func (f *Features) All() map[string]string {
	f.RLock()
	defer f.RUnlock()
	result := make(map[string]string, len(f.values))
	for k, v := range f.values {
		result[k] = v
	}
	return result
}

// Prefix returns the ordered PREFIX mappings, highest rank first.
func (f *Features) Prefix() []PrefixMapping {
	f.RLock()
	defer f.RUnlock()
	return append([]PrefixMapping(nil), f.prefix...)
}

// ModeForSymbol returns the membership mode for a prefix symbol, e.g. 'o' for '@'.
func (f *Features) ModeForSymbol(symbol rune) (rune, bool) {
	f.RLock()
	defer f.RUnlock()
	for _, p := range f.prefix {
		if p.Symbol == symbol {
			return p.Mode, true
		}
	}
	return 0, false
}

// SymbolForMode returns the prefix symbol for a membership mode.
func (f *Features) SymbolForMode(mode rune) (rune, bool) {
	f.RLock()
	defer f.RUnlock()
	for _, p := range f.prefix {
		if p.Mode == mode {
			return p.Symbol, true
		}
	}
	return 0, false
}

// IsPrefixMode reports whether mode is a membership mode.
func (f *Features) IsPrefixMode(mode rune) bool {
	_, ok := f.SymbolForMode(mode)
	return ok
}

// SplitPrefixes strips the membership prefix symbols from the front of a
// NAMES or WHO entry, returning the corresponding modes and the bare name.
func (f *Features) SplitPrefixes(entry string) (modes string, name string) {
	var modeRunes []rune
	for i, r := range entry {
		mode, ok := f.ModeForSymbol(r)
		if !ok {
			return string(modeRunes), entry[i:]
		}
		modeRunes = append(modeRunes, mode)
	}
	return string(modeRunes), ""
}

// ChannelTypes returns the channel name prefixes (CHANTYPES).
func (f *Features) ChannelTypes() string {
	f.RLock()
	defer f.RUnlock()
	return f.chanTypes
}

// IsChannelName reports whether name begins with one of the CHANTYPES.
func (f *Features) IsChannelName(name string) bool {
	if name == "" {
		return false
	}
	return strings.ContainsRune(f.ChannelTypes(), []rune(name)[0])
}

// ChannelModeTakesParam reports whether a channel mode consumes a
// parameter, following PREFIX and the CHANMODES categories: list (A) and
// always-parameterized (B) modes always do, C modes only when set.
func (f *Features) ChannelModeTakesParam(adding bool, mode rune) bool {
	if f.IsPrefixMode(mode) {
		return true
	}
	f.RLock()
	defer f.RUnlock()
	switch {
	case strings.ContainsRune(f.chanModes[0], mode), strings.ContainsRune(f.chanModes[1], mode):
		return true
	case strings.ContainsRune(f.chanModes[2], mode):
		return adding
	}
	return false
}

// IsListMode reports whether mode is a CHANMODES type A (list) mode.
func (f *Features) IsListMode(mode rune) bool {
	f.RLock()
	defer f.RUnlock()
	return strings.ContainsRune(f.chanModes[0], mode)
}

// Casemapping returns the casemapping advertised with CASEMAPPING.
func (f *Features) Casemapping() ircmap.MappingType {
	f.RLock()
	defer f.RUnlock()
	return f.casemapping
}
