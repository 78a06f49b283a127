// Package persistence stores order snapshots in DynamoDB so the in-memory
// order store can be rebuilt when the service starts.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/go-orderdesk/internal/aws"
	"github.com/imrishuroy/go-orderdesk/internal/orders"
)

// saveCondition keeps a snapshot from replacing a newer one when saves of
// the same order finish out of order.
const saveCondition = "attribute_not_exists(order_id) OR attribute_not_exists(#v) OR #v < :v"

// ErrStaleSnapshot is returned by Save when the table already holds the same
// or a newer version of the order.
var ErrStaleSnapshot = errors.New("a newer order snapshot is already stored")

// Repository encapsulates operations on the orders table.
type Repository struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewRepository creates a new orders Repository.
func NewRepository(client aws.DynamoDBAPI, tableName string) *Repository {
	return &Repository{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Save writes the full snapshot of o when it is newer than the stored one.
// An older or equal version yields ErrStaleSnapshot and leaves the row alone.
func (r *Repository) Save(ctx context.Context, o orders.Order) error {
	item, err := attributevalue.MarshalMap(FromModel(o, r.nowFunc()))
	if err != nil {
		return fmt.Errorf("marshal order item: %w", err)
	}
	cond := saveCondition
	_, err = r.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &r.tableName,
		Item:                item,
		ConditionExpression: &cond,
		ExpressionAttributeNames: map[string]string{
			"#v": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatUint(o.Version, 10)},
		},
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "ConditionalCheckFailedException" {
			return fmt.Errorf("order=%s version=%d: %w", o.ID, o.Version, ErrStaleSnapshot)
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (r *Repository) Get(ctx context.Context, orderID string) (*orders.Order, error) {
	out, err := r.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &r.tableName,
		Key: map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: orderID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var row OrderRow
	if err := attributevalue.UnmarshalMap(out.Item, &row); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	o, err := row.ToModel()
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// LoadAll scans the whole table, following pagination, and returns every order.
func (r *Repository) LoadAll(ctx context.Context) ([]orders.Order, error) {
	var out []orders.Order
	p := dyn.NewScanPaginator(r.client, &dyn.ScanInput{TableName: &r.tableName})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var rows []OrderRow
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &rows); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, row := range rows {
			o, err := row.ToModel()
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
	}
	return out, nil
}
