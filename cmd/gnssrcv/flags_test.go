package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSatIDList_ZeroMeansAll32(t *testing.T) {
	ids := satIDList(0)
	assert.Len(t, ids, 32)
	assert.Equal(t, 1, ids[0])
	assert.Equal(t, 32, ids[31])
}

func TestSatIDList_SinglePRN(t *testing.T) {
	assert.Equal(t, []int{5}, satIDList(5))
}

func TestPickFormat_ExplicitWins(t *testing.T) {
	assert.Equal(t, "i8", pickFormat("i8", "capture.f32"))
}

func TestPickFormat_GuessesFromExtension(t *testing.T) {
	assert.Equal(t, "2xi16", pickFormat("", "capture.i16"))
	assert.Equal(t, "i8", pickFormat("", "capture.i8"))
	assert.Equal(t, "2xf32", pickFormat("", "capture.unknown"))
}
