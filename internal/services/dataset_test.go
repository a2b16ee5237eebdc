package services

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tessitura-labs/lookback-api/internal/lookback"
	"github.com/tessitura-labs/lookback-api/internal/models"
)

func newTestEncoder(t *testing.T) *lookback.Encoder {
	t.Helper()
	enc, err := lookback.New(lookback.DefaultConfig())
	require.NoError(t, err)
	return enc
}

func TestEncodeExample(t *testing.T) {
	enc := newTestEncoder(t)
	melody := models.Melody{60, -2, 62, -1, 64}

	example, err := encodeExample(enc, 3, melody)
	require.NoError(t, err)

	assert.Equal(t, 3, example.Position)
	assert.Equal(t, 5, example.NumSteps)

	// Stored JSON round-trips to the encoder's own output.
	var inputs [][]float64
	require.NoError(t, json.Unmarshal([]byte(example.Inputs), &inputs))
	var labels []int
	require.NoError(t, json.Unmarshal([]byte(example.Labels), &labels))

	wantInputs, wantLabels := enc.EncodeSequence(melody.Events())
	assert.Equal(t, wantInputs, inputs)
	assert.Equal(t, wantLabels, labels)

	var events models.Melody
	require.NoError(t, json.Unmarshal([]byte(example.Events), &events))
	assert.Equal(t, melody, events)
}

func TestEncodeExampleRejectsBadMelodies(t *testing.T) {
	enc := newTestEncoder(t)

	// Out-of-range pitch
	_, err := encodeExample(enc, 0, models.Melody{60, 200})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMelody)

	// Too short to produce a training pair
	_, err = encodeExample(enc, 1, models.Melody{60})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMelody)
}

func TestEncodeMelodiesKeepsOrder(t *testing.T) {
	enc := newTestEncoder(t)
	svc := NewDatasetService(nil, nil, 4)

	melodies := make([]models.Melody, 20)
	for i := range melodies {
		melodies[i] = models.Melody{48 + i, -2, 48 + i, -1}
	}

	examples, totalSteps, err := svc.encodeMelodies(enc, melodies)
	require.NoError(t, err)
	require.Len(t, examples, 20)
	assert.Equal(t, 20*4, totalSteps)

	for i, example := range examples {
		assert.Equal(t, i, example.Position, "example %d out of order", i)

		var events models.Melody
		require.NoError(t, json.Unmarshal([]byte(example.Events), &events))
		assert.Equal(t, melodies[i], events)
	}
}

func TestEncodeMelodiesPropagatesMelodyErrors(t *testing.T) {
	enc := newTestEncoder(t)
	svc := NewDatasetService(nil, nil, 2)

	melodies := []models.Melody{
		{60, -2, 62},
		{60, 999}, // out of range
		{64, -1, 60},
	}

	_, _, err := svc.encodeMelodies(enc, melodies)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidMelody)
}

func TestEncodeMelodiesSingleWorker(t *testing.T) {
	enc := newTestEncoder(t)
	svc := NewDatasetService(nil, nil, 1)

	examples, totalSteps, err := svc.encodeMelodies(enc, []models.Melody{{60, -2, -1}})
	require.NoError(t, err)
	require.Len(t, examples, 1)
	assert.Equal(t, 3, totalSteps)
}

func TestFormatLookbacks(t *testing.T) {
	assert.Equal(t, "16,32", formatLookbacks([]int{16, 32}))
	assert.Equal(t, "8", formatLookbacks([]int{8}))
	assert.Equal(t, "", formatLookbacks(nil))
}
