package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// maxPages bounds pagination in case a cursor never terminates.
const maxPages = 1000

// QueryAll fetches every page of a database query, following cursors.
// filter may be nil.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page
	var cursor notionapi.Cursor
	for i := 0; i < maxPages; i++ {
		req := &notionapi.DatabaseQueryRequest{StartCursor: cursor}
		if filter != nil {
			req.Filter = filter.Filter
			req.Sorts = filter.Sorts
			req.PageSize = filter.PageSize
		}
		resp, err := c.QueryDatabase(ctx, dbID, req)
		if err != nil {
			return nil, eris.Wrapf(err, "notion: query all page %d", i+1)
		}
		all = append(all, resp.Results...)
		if !resp.HasMore || resp.NextCursor == "" {
			return all, nil
		}
		cursor = resp.NextCursor
	}
	return nil, eris.Errorf("notion: database %s exceeded %d pages", dbID, maxPages)
}

// QueryByStatus fetches all pages whose Status property equals status.
func QueryByStatus(ctx context.Context, c Client, dbID, status string) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: status,
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrapf(err, "notion: query status %q", status)
	}
	return pages, nil
}

// PlainText concatenates the plain text of a rich text run.
func PlainText(rts []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range rts {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}

// TextProperty returns the text of a title, rich text or select property.
func TextProperty(p notionapi.Page, name string) string {
	switch prop := p.Properties[name].(type) {
	case *notionapi.TitleProperty:
		return PlainText(prop.Title)
	case *notionapi.RichTextProperty:
		return PlainText(prop.RichText)
	case *notionapi.SelectProperty:
		return prop.Select.Name
	case *notionapi.StatusProperty:
		return prop.Status.Name
	default:
		return ""
	}
}

// CheckboxProperty returns a checkbox value and whether the property exists.
func CheckboxProperty(p notionapi.Page, name string) (bool, bool) {
	cb, ok := p.Properties[name].(*notionapi.CheckboxProperty)
	if !ok {
		return false, false
	}
	return cb.Checkbox, true
}
