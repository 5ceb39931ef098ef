package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// NotionClient talks to the Notion API with an integration token. The
// integration needs access to the budget database.
type NotionClient struct {
	api *notionapi.Client
}

var _ NotionService = (*NotionClient)(nil)

func NewNotionClient(token string, opts ...notionapi.ClientOption) *NotionClient {
	return &NotionClient{api: notionapi.NewClient(notionapi.Token(token), opts...)}
}

func (n *NotionClient) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(databaseID),
		},
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("CreatePage: database %s: %w", databaseID, err)
	}
	return page, nil
}

func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	return n.patch(ctx, "UpdatePage", pageID, &notionapi.PageUpdateRequest{Properties: properties})
}

// QueryDatabase fetches a single result page; callers follow NextCursor.
func (n *NotionClient) QueryDatabase(ctx context.Context, databaseID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	resp, err := n.api.Database.Query(ctx, notionapi.DatabaseID(databaseID), req)
	if err != nil {
		return nil, fmt.Errorf("QueryDatabase: database %s: %w", databaseID, err)
	}
	return resp, nil
}

// DeletePage archives; the API cannot remove a page outright.
func (n *NotionClient) DeletePage(ctx context.Context, pageID string) error {
	_, err := n.patch(ctx, "DeletePage", pageID, &notionapi.PageUpdateRequest{Archived: true})
	return err
}

func (n *NotionClient) patch(ctx context.Context, op, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	page, err := n.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	if err != nil {
		return nil, fmt.Errorf("%s: page %s: %w", op, pageID, err)
	}
	return page, nil
}
