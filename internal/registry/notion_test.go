package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/feasibility-cli/pkg/notion"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockNotionClient struct {
	mock.Mock
}

func (m *mockNotionClient) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func questionPage(id, key, text, section string, objective *bool) notionapi.Page {
	props := notionapi.Properties{
		"Text": &notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{{PlainText: text}},
		},
		"Status": &notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: "Active"},
		},
	}
	if key != "" {
		props["Key"] = &notionapi.RichTextProperty{
			Type:     notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{{PlainText: key}},
		}
	}
	if section != "" {
		props["Section"] = &notionapi.SelectProperty{
			Type:   notionapi.PropertyTypeSelect,
			Select: notionapi.Option{Name: section},
		}
	}
	if objective != nil {
		props["Objective"] = &notionapi.CheckboxProperty{
			Type:     notionapi.PropertyTypeCheckbox,
			Checkbox: *objective,
		}
	}
	return notionapi.Page{ID: notionapi.ObjectID(id), Properties: props}
}

func TestLoadQuestionRegistry(t *testing.T) {
	no := false
	mc := new(mockNotionClient)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "q-db", mock.MatchedBy(func(r *notionapi.DatabaseQueryRequest) bool {
		return r.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			questionPage("page-1", "q-ct", "How many CT scanners?", "Facilities", nil),
			questionPage("page-2", "", "Is staffing adequate?", "", &no),
		},
		HasMore:    true,
		NextCursor: "c2",
	}, nil).Once()
	mc.On("QueryDatabase", ctx, "q-db", mock.MatchedBy(func(r *notionapi.DatabaseQueryRequest) bool {
		return r.StartCursor == "c2"
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{
			questionPage("page-3", "q-blank", "", "", nil),
			questionPage("page-4", "q-ct", "Duplicate of the first", "", nil),
		},
	}, nil).Once()

	qs, err := LoadQuestionRegistry(ctx, mc, "q-db")
	require.NoError(t, err)
	require.Len(t, qs, 2)

	assert.Equal(t, "q-ct", qs[0].ID)
	assert.Equal(t, "How many CT scanners?", qs[0].Text)
	assert.Equal(t, "Facilities", qs[0].Section)
	assert.True(t, qs[0].IsObjective)

	assert.Equal(t, "page-2", qs[1].ID)
	assert.False(t, qs[1].IsObjective)
	mc.AssertExpectations(t)
}

func TestLoadQuestionRegistry_Error(t *testing.T) {
	mc := new(mockNotionClient)
	mc.On("QueryDatabase", mock.Anything, "q-db", mock.Anything).Return(nil, assert.AnError)

	qs, err := LoadQuestionRegistry(context.Background(), mc, "q-db")
	require.Error(t, err)
	assert.Nil(t, qs)
	assert.Contains(t, err.Error(), "registry: load question registry")
}

func TestLoadQuestionRegistry_AccessDeniedKeepsKind(t *testing.T) {
	mc := new(mockNotionClient)
	denied := eris.Wrap(notion.ErrAccessDenied, "notion: query database q-db")
	mc.On("QueryDatabase", mock.Anything, "q-db", mock.Anything).Return(nil, denied)

	_, err := LoadQuestionRegistry(context.Background(), mc, "q-db")
	require.Error(t, err)
	assert.True(t, errors.Is(err, notion.ErrAccessDenied), "got %v", err)
}
