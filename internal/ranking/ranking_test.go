package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recifedata/crimecast/internal/model"
)

func sample() *Ranking {
	return New(map[string]int{
		"Recife":     12,
		"Boa Viagem": 40,
		"afogados":   12,
		"Ibura":      3,
		"Casa Forte": 12,
	})
}

func TestNew_OrderAndTieBreak(t *testing.T) {
	t.Parallel()

	got := sample().TopN(10)
	require.Len(t, got, 5)

	names := make([]string, len(got))
	for i, e := range got {
		names[i] = e.Neighborhood
		assert.Equal(t, i+1, e.Position)
	}
	assert.Equal(t, []string{"Boa Viagem", "afogados", "Casa Forte", "Recife", "Ibura"}, names)
}

func TestNew_Deterministic(t *testing.T) {
	t.Parallel()

	for range 20 {
		assert.Equal(t, sample().TopN(5), sample().TopN(5))
	}
}

func TestTopN_Bounds(t *testing.T) {
	t.Parallel()

	r := sample()
	assert.Empty(t, r.TopN(0))
	assert.NotNil(t, r.TopN(0))
	assert.Empty(t, r.TopN(-3))
	assert.Len(t, r.TopN(2), 2)
	assert.Len(t, r.TopN(500), r.Len(), "no padding past the population")

	assert.Empty(t, New(nil).TopN(5))
}

func TestTopN_ReturnsCopy(t *testing.T) {
	t.Parallel()

	r := sample()
	top := r.TopN(1)
	top[0].Neighborhood = "mutated"
	assert.Equal(t, "Boa Viagem", r.TopN(1)[0].Neighborhood)
}

func TestPosition(t *testing.T) {
	t.Parallel()

	r := sample()
	pos, err := r.Position("BOA VIAGEM")
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = r.Position("recife")
	require.NoError(t, err)
	assert.Equal(t, 4, pos)

	_, err = r.Position("Atlantis")
	var ue *model.UnknownEntityError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"afogados", "Boa Viagem", "Casa Forte", "Ibura", "Recife"}, ue.Roster)
}
