package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/xenking/doh/internal/domain/item"
)

// ListItems fetches the items of a store.
//
// The request goes to the API endpoint itself: the service currently serves
// a single catalogue, so storeID is only recorded in the log.
func (c *Client) ListItems(ctx context.Context, storeID string) ([]item.Item, error) {
	c.lg.Debug("List items", zap.String("store_id", storeID))

	list, err := Do(ctx, c, Get(c.baseURL, nil), item.DecodeList)
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// GetItems starts ListItems in the background.
func (c *Client) GetItems(ctx context.Context, storeID string) *Future[[]item.Item] {
	return Go(ctx, func(ctx context.Context) ([]item.Item, error) {
		return c.ListItems(ctx, storeID)
	})
}
