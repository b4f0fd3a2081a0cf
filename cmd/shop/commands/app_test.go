package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dyluth/shop/internal/cartcache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogMutation(t *testing.T) {
	tests := []struct {
		name      string
		mutation  cartcache.Mutation
		wantLevel string
		wantLog   bool
	}{
		{
			name:      "committed",
			mutation:  cartcache.Mutation{Requested: cartcache.KindDecrement, Kind: cartcache.KindRemove, ItemID: 7, Phase: cartcache.PhaseCommitted},
			wantLevel: "info",
			wantLog:   true,
		},
		{
			name:      "rolled back",
			mutation:  cartcache.Mutation{Requested: cartcache.KindIncrement, Kind: cartcache.KindIncrement, ItemID: 7, Phase: cartcache.PhaseRolledBack, Err: errors.New("stock")},
			wantLevel: "warn",
			wantLog:   true,
		},
		{
			name:     "still applying",
			mutation: cartcache.Mutation{ItemID: 7, Phase: cartcache.PhaseApplying},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logMutation(zerolog.New(&buf))(tt.mutation)

			if !tt.wantLog {
				assert.Empty(t, buf.String())
				return
			}
			var line map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, string(tt.mutation.Requested), line["requested"])
			assert.Equal(t, string(tt.mutation.Kind), line["sent"])
			assert.Equal(t, tt.mutation.Phase.String(), line["phase"])
			assert.EqualValues(t, 7, line["item_id"])
		})
	}
}
