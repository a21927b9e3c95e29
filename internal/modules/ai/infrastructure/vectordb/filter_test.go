package vectordb

import (
	"testing"

	"MarketMind/internal/modules/ai/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMilvusExpr(t *testing.T) {
	tests := []struct {
		name   string
		filter repository.Filter
		want   string
	}{
		{
			name:   "owner only",
			filter: repository.Filter{OwnerID: 7},
			want:   `owner_id == 7`,
		},
		{
			name:   "kinds in",
			filter: repository.Filter{OwnerID: 7, KindsIn: []string{"Company Name", "Tone of Voice"}},
			want:   `owner_id == 7 && kind in ["Company Name","Tone of Voice"]`,
		},
		{
			name:   "kinds not in",
			filter: repository.Filter{OwnerID: 3, KindsNotIn: []string{"Company Name"}},
			want:   `owner_id == 3 && kind not in ["Company Name"]`,
		},
		{
			name:   "quotes are escaped",
			filter: repository.Filter{OwnerID: 1, KindsIn: []string{`say "hi"`}},
			want:   `owner_id == 1 && kind in ["say \"hi\""]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MilvusExpr(tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFiltersRejectMissingOwner(t *testing.T) {
	_, err := MilvusExpr(repository.Filter{KindsIn: []string{"Note"}})
	assert.ErrorIs(t, err, repository.ErrMissingOwner)

	_, err = QdrantFilter(repository.Filter{})
	assert.ErrorIs(t, err, repository.ErrMissingOwner)
}

func TestQdrantFilter(t *testing.T) {
	f, err := QdrantFilter(repository.Filter{OwnerID: 9, KindsIn: []string{"A"}, KindsNotIn: []string{"B", "C"}})
	require.NoError(t, err)
	assert.Len(t, f.Must, 2)
	assert.Len(t, f.MustNot, 1)
	assert.Equal(t, fieldOwnerID, f.Must[0].GetField().GetKey())
	assert.Equal(t, int64(9), f.Must[0].GetField().GetMatch().GetInteger())
	assert.Equal(t, []string{"B", "C"}, f.MustNot[0].GetField().GetMatch().GetKeywords().GetStrings())
}
