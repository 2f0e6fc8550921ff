package js8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrid(t *testing.T) {
	lon, lat, err := ParseGrid("FN31")
	require.NoError(t, err)
	assert.InDelta(t, -73.0, lon, 1e-9)
	assert.InDelta(t, 41.5, lat, 1e-9)

	lon, lat, err = ParseGrid("fn31pr")
	require.NoError(t, err)
	assert.InDelta(t, -72.7083, lon, 1e-3)
	assert.InDelta(t, 41.7292, lat, 1e-3)

	for _, bad := range []string{"", "FN3", "ZZ00", "FNAA", "FN31ZZ"} {
		_, _, err := ParseGrid(bad)
		assert.Error(t, err, bad)
	}
}

func TestApplyGridIfHeartbeat(t *testing.T) {
	assert.Equal(t, "@HB HEARTBEAT FN31", ApplyGridIfHeartbeat("@HB HEARTBEAT", "fn31pr"))
	assert.Equal(t, "CQ CQ CQ FN31", ApplyGridIfHeartbeat(" CQ CQ CQ ", "FN31"))
	assert.Equal(t, "CQ CQ EM12", ApplyGridIfHeartbeat("CQ CQ EM12", "FN31"))
	assert.Equal(t, "K1ABC HELLO", ApplyGridIfHeartbeat("K1ABC HELLO", "FN31"))
	assert.Equal(t, "CQ CQ", ApplyGridIfHeartbeat("CQ CQ", "FN"))
}
