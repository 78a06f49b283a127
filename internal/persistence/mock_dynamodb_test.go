package persistence

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo keeps one table in memory keyed by order_id. Scan returns
// pageSize items per call so pagination is exercised.
type mockDynamo struct {
	mu        sync.Mutex
	items     map[string]map[string]types.AttributeValue
	pageSize  int
	scanCalls int
	scanErr   error
}

func newMockDynamo(pageSize int) *mockDynamo {
	return &mockDynamo{items: map[string]map[string]types.AttributeValue{}, pageSize: pageSize}
}

func orderKey(item map[string]types.AttributeValue) (string, error) {
	attr, ok := item["order_id"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing order_id")
	}
	return attr.Value, nil
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := orderKey(in.Item)
	if err != nil {
		return nil, err
	}
	// mirrors saveCondition: only a strictly newer version replaces a row
	if in.ConditionExpression != nil {
		incoming := parseVersion(in.ExpressionAttributeValues[":v"])
		if existing, ok := m.items[k]; ok && parseVersion(existing["version"]) >= incoming {
			return nil, &types.ConditionalCheckFailedException{}
		}
	}
	m.items[k] = in.Item
	return &dyn.PutItemOutput{}, nil
}

func parseVersion(av types.AttributeValue) uint64 {
	attr, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	v, _ := strconv.ParseUint(attr.Value, 10, 64)
	return v
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k, err := orderKey(in.Key)
	if err != nil {
		return nil, err
	}
	return &dyn.GetItemOutput{Item: m.items[k]}, nil
}

func (m *mockDynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	return nil, errors.New("update not supported")
}

func (m *mockDynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanCalls++
	if m.scanErr != nil {
		return nil, m.scanErr
	}

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	start := 0
	if in.ExclusiveStartKey != nil {
		last, _ := orderKey(in.ExclusiveStartKey)
		start, _ = slices.BinarySearch(keys, last)
		start++
	}
	end := min(start+m.pageSize, len(keys))

	out := &dyn.ScanOutput{}
	for _, k := range keys[start:end] {
		out.Items = append(out.Items, m.items[k])
	}
	if end < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{
			"order_id": &types.AttributeValueMemberS{Value: keys[end-1]},
		}
	}
	return out, nil
}
