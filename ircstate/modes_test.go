package ircstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paramCall struct {
	adding bool
	mode   rune
	param  string
}

func TestUpdateModes(t *testing.T) {
	set := NewModeSet("v")
	var calls []paramCall
	err := UpdateModes(set, "+o-v", []string{"alice"}, ParamModes("o"), func(adding bool, mode rune, param string) {
		calls = append(calls, paramCall{adding, mode, param})
	})
	require.NoError(t, err)
	assert.Equal(t, []paramCall{{true, 'o', "alice"}}, calls)
	assert.False(t, set.Has('v'))
	assert.False(t, set.Has('o'))
}

func TestUpdateModesMixedSigns(t *testing.T) {
	set := NewModeSet("s")
	require.NoError(t, UpdateModes(set, "+nt-s+i", nil, nil, nil))
	assert.Equal(t, "int", set.String())
}

func TestUpdateModesNotEnoughParameters(t *testing.T) {
	set := NewModeSet("")
	err := UpdateModes(set, "+io", nil, ParamModes("o"), nil)
	assert.ErrorIs(t, err, ErrNotEnoughModeParameters)
	assert.True(t, set.Has('i'), "modes before the failure stay applied")
}

func TestUpdateModesConditionalParameter(t *testing.T) {
	features := NewFeatures()
	set := NewModeSet("")
	var params []string
	err := UpdateModes(set, "+l-l", []string{"10"}, features.ChannelModeTakesParam, func(adding bool, mode rune, param string) {
		params = append(params, param)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, params)
}

func TestModeSet(t *testing.T) {
	set := NewModeSet("ba")
	assert.Equal(t, 2, set.Len())
	assert.Equal(t, []rune{'a', 'b'}, set.Runes())
	set.Clear()
	assert.Equal(t, "", set.String())
}
