package messages

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/weft/internal/core/domain"
)

func TestViewType_String(t *testing.T) {
	tests := []struct {
		view ViewType
		want string
	}{
		{ViewSearch, "search"},
		{ViewRender, "render"},
		{ViewHelp, "help"},
		{ViewType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.view.String())
		})
	}
}

func TestViewType_ZeroIsSearch(t *testing.T) {
	var v ViewType
	assert.Equal(t, ViewSearch, v)
}

func TestMessages_CarryPayloads(t *testing.T) {
	hit := domain.SearchHit{ShortID: "b7", DocID: "doc-1", Kind: domain.KindParagraph}
	sel := HitSelected{Hit: hit, Query: "body"}
	assert.Equal(t, "doc-1", sel.Hit.DocID)

	loaded := RenderLoaded{DocID: "doc-1", Result: &domain.RenderResult{Text: "x\n"}}
	assert.Nil(t, loaded.Full)
	assert.Equal(t, "x\n", loaded.Result.Text)

	failed := NodeExpanded{ShortID: "zz", Err: errors.New("not found")}
	assert.Error(t, failed.Err)
}
