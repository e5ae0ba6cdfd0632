// Package dynamo provides a metastore.Store backed by DynamoDB. The
// conditional writes DynamoDB offers supply the compare-and-swap
// semantics that publishing a new index snapshot requires.
//
// Table schema:
//   - Partition key: index_id (string)
//   - Attributes: version (number), record (string, JSON)
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name segbuild-index-metadata \
//	  --attribute-definitions AttributeName=index_id,AttributeType=S \
//	  --key-schema AttributeName=index_id,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
package dynamo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/segbuild/metastore"
	"github.com/hupe1980/segbuild/model"
)

// Client is the subset of the DynamoDB API the store uses.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store implements metastore.Store on a DynamoDB table.
type Store struct {
	client    Client
	tableName string
}

// NewStore creates a new DynamoDB metadata store.
func NewStore(client Client, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
	}
}

// Load returns the current version of the record.
func (s *Store) Load(ctx context.Context, id model.IndexID) (metastore.IndexMetadata, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		ConsistentRead: aws.Bool(true),
		Key: map[string]types.AttributeValue{
			"index_id": &types.AttributeValueMemberS{Value: string(id)},
		},
	})
	if err != nil {
		return metastore.IndexMetadata{}, fmt.Errorf("dynamodb get: %w", err)
	}
	if resp.Item == nil {
		return metastore.IndexMetadata{}, metastore.ErrNotFound
	}

	return decodeItem(resp.Item)
}

// CompareAndSwap replaces the record using a DynamoDB conditional write.
func (s *Store) CompareAndSwap(ctx context.Context, expectedVersion uint64, rec metastore.IndexMetadata) error {
	rec.Version = expectedVersion + 1

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal index metadata: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item: map[string]types.AttributeValue{
			"index_id": &types.AttributeValueMemberS{Value: string(rec.ID)},
			"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(rec.Version, 10)},
			"record":   &types.AttributeValueMemberS{Value: string(data)},
		},
	}

	if expectedVersion == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(index_id)")
	} else {
		input.ConditionExpression = aws.String("version = :expected")
		input.ExpressionAttributeValues = map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: strconv.FormatUint(expectedVersion, 10)},
		}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return metastore.ErrConflict
		}
		return fmt.Errorf("dynamodb put: %w", err)
	}

	return nil
}

// List returns every record in the table.
func (s *Store) List(ctx context.Context) ([]metastore.IndexMetadata, error) {
	var recs []metastore.IndexMetadata

	var startKey map[string]types.AttributeValue
	for {
		resp, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamodb scan: %w", err)
		}

		for _, item := range resp.Items {
			rec, err := decodeItem(item)
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}

		if resp.LastEvaluatedKey == nil {
			break
		}
		startKey = resp.LastEvaluatedKey
	}

	return recs, nil
}

func decodeItem(item map[string]types.AttributeValue) (metastore.IndexMetadata, error) {
	recordAttr, ok := item["record"].(*types.AttributeValueMemberS)
	if !ok {
		return metastore.IndexMetadata{}, errors.New("invalid record attribute")
	}

	var rec metastore.IndexMetadata
	if err := json.Unmarshal([]byte(recordAttr.Value), &rec); err != nil {
		return metastore.IndexMetadata{}, fmt.Errorf("unmarshal index metadata: %w", err)
	}

	return rec, nil
}
