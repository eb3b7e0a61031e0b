package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/fmgo/bundlestore"
)

// ErrConcurrentPublish is returned when another writer published a release
// between reading the latest version and committing the next one.
var ErrConcurrentPublish = errors.New("concurrent publish detected")

// DDBClient is the subset of the DynamoDB API used for release pointers.
// *dynamodb.Client satisfies it; tests substitute a fake.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ReleaseStore couples an S3 bundle store with a DynamoDB pointer table so
// "the latest published model" can be advanced atomically. S3 alone lacks
// compare-and-swap; DynamoDB conditional writes provide it.
//
// Table schema:
//   - Partition key: scope (string) — a namespace, e.g. "s3://bucket/models"
//   - Sort key: version (number) — monotonically increasing release number
//
// Create the table with:
//
//	aws dynamodb create-table \
//	  --table-name fmgo-releases \
//	  --attribute-definitions AttributeName=scope,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=scope,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type ReleaseStore struct {
	store *Store
	ddb   DDBClient
	table string
	scope string
}

// NewReleaseStore creates a release store over an existing S3 bundle store.
func NewReleaseStore(store *Store, ddb DDBClient, table, scope string) *ReleaseStore {
	return &ReleaseStore{store: store, ddb: ddb, table: table, scope: scope}
}

// Publish uploads the bundle under name and atomically advances the
// release pointer to it. A concurrent publisher racing for the same
// version number surfaces as ErrConcurrentPublish; retrying re-reads the
// version and is safe.
func (r *ReleaseStore) Publish(ctx context.Context, name string, data []byte) error {
	if err := r.store.Put(ctx, name, data); err != nil {
		return err
	}

	version, _, err := r.latestVersion(ctx)
	if err != nil {
		return err
	}

	_, err = r.ddb.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			"scope":       &types.AttributeValueMemberS{Value: r.scope},
			"version":     &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", version+1)},
			"bundle_name": &types.AttributeValueMemberS{Value: name},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrConcurrentPublish
		}
		return fmt.Errorf("commit release to DynamoDB: %w", err)
	}
	return nil
}

// Latest returns the most recently published bundle and its name.
func (r *ReleaseStore) Latest(ctx context.Context) ([]byte, string, error) {
	version, name, err := r.latestVersion(ctx)
	if err != nil {
		return nil, "", err
	}
	if version == 0 {
		return nil, "", bundlestore.ErrNotFound
	}

	data, err := r.store.Get(ctx, name)
	if err != nil {
		return nil, "", err
	}
	return data, name, nil
}

// latestVersion queries DynamoDB for the newest release row.
func (r *ReleaseStore) latestVersion(ctx context.Context) (uint64, string, error) {
	resp, err := r.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.table),
		KeyConditionExpression: aws.String("#s = :scope"),
		ExpressionAttributeNames: map[string]string{
			"#s": "scope",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":scope": &types.AttributeValueMemberS{Value: r.scope},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return 0, "", fmt.Errorf("query releases: %w", err)
	}
	if len(resp.Items) == 0 {
		return 0, "", nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return 0, "", errors.New("invalid version attribute in release row")
	}
	nameAttr, ok := item["bundle_name"].(*types.AttributeValueMemberS)
	if !ok {
		return 0, "", errors.New("invalid bundle_name attribute in release row")
	}

	var version uint64
	if _, err := fmt.Sscanf(versionAttr.Value, "%d", &version); err != nil {
		return 0, "", fmt.Errorf("parse release version: %w", err)
	}
	return version, nameAttr.Value, nil
}
